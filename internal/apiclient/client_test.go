package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, WithTimeout(2*time.Second))
}

func TestFetchTemperature(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/temp" {
			t.Errorf("request = %s %s; want GET /api/temp", r.Method, r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"temperature":27.5,"humidity":70.1,"pressure":1009.2,"altitude":12.3,"ldr":41000,"lamp_auto":"on"}`)
	})

	got, err := c.FetchTemperature(context.Background())
	if err != nil {
		t.Fatalf("FetchTemperature: %v", err)
	}
	if got.Temperature == nil || *got.Temperature != 27.5 {
		t.Errorf("Temperature = %v; want 27.5", got.Temperature)
	}
	if got.LDR == nil || *got.LDR != 41000 || got.LampAuto != "on" {
		t.Errorf("LDR/LampAuto = %v/%q", got.LDR, got.LampAuto)
	}
	if got.Altitude == nil || *got.Altitude != 12.3 {
		t.Errorf("Altitude = %v; want 12.3", got.Altitude)
	}
}

func TestFetchTemperature_nullFields(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"temperature":null,"ldr":null,"lamp_auto":"off","altitude":null}`)
	})

	got, err := c.FetchTemperature(context.Background())
	if err != nil {
		t.Fatalf("FetchTemperature: %v", err)
	}
	if got.Temperature != nil || got.LDR != nil || got.Altitude != nil {
		t.Errorf("expected nil readings, got %+v", got)
	}
}

func TestFetchHistory(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/temp-history" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"labels":["07:10","07:11"],"temperature":[25,26],"humidity":[60,null],"pressure":[1010,1011]}`)
	})

	got, err := c.FetchHistory(context.Background())
	if err != nil {
		t.Fatalf("FetchHistory: %v", err)
	}
	if len(got.Labels) != 2 || got.Labels[1] != "07:11" {
		t.Errorf("Labels = %v", got.Labels)
	}
	if *got.Temperature[1] != 26 || got.Humidity[1] != nil || *got.Pressure[0] != 1010 {
		t.Errorf("series = %+v", got)
	}
}

func TestFetchCoop(t *testing.T) {
	tests := []struct {
		name string
		body string
		want [3]string
	}{
		{name: "object", body: `{"ayam":10,"pakan":3,"air":8}`, want: [3]string{"10", "3", "8"}},
		{name: "array summed", body: `[{"ayam":2,"pakan":1,"air":0},{"ayam":3,"air":5}]`, want: [3]string{"5", "1", "5"}},
		{name: "placeholder", body: `{"ayam":"-","pakan":"-","air":"-"}`, want: [3]string{"-", "-", "-"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/kandang" {
					t.Errorf("path = %s", r.URL.Path)
				}
				_, _ = io.WriteString(w, tt.body)
			})
			got, err := c.FetchCoop(context.Background())
			if err != nil {
				t.Fatalf("FetchCoop: %v", err)
			}
			have := [3]string{got.Ayam.String(), got.Pakan.String(), got.Air.String()}
			if have != tt.want {
				t.Errorf("got %v; want %v", have, tt.want)
			}
		})
	}
}

func TestFetchDeviceStatus(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/pompa/status" {
			t.Errorf("path = %s; want /api/pompa/status", r.URL.Path)
		}
		_, _ = io.WriteString(w, `{"device":"pompa","status":"on"}`)
	})

	got, err := c.FetchDeviceStatus(context.Background(), "pompa")
	if err != nil {
		t.Fatalf("FetchDeviceStatus: %v", err)
	}
	if got.Status != "on" || got.Device != "pompa" {
		t.Errorf("got %+v", got)
	}
}

func TestSetDevice(t *testing.T) {
	var (
		mu   sync.Mutex
		body map[string]string
		ct   string
	)
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/kipas" {
			t.Errorf("request = %s %s; want POST /api/kipas", r.Method, r.URL.Path)
		}
		mu.Lock()
		defer mu.Unlock()
		ct = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_, _ = io.WriteString(w, `not even json`)
	})

	if err := c.SetDevice(context.Background(), "kipas", "off"); err != nil {
		t.Fatalf("SetDevice: %v", err)
	}
	mu.Lock()
	defer mu.Unlock()
	if body["action"] != "off" {
		t.Errorf("action = %q; want off", body["action"])
	}
	if !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestErrors(t *testing.T) {
	t.Run("non-2xx wraps ErrUnexpectedStatus", func(t *testing.T) {
		c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"error":"Device not found"}`)
		})
		_, err := c.FetchDeviceStatus(context.Background(), "buzzer")
		if !errors.Is(err, ErrUnexpectedStatus) {
			t.Fatalf("err = %v; want ErrUnexpectedStatus", err)
		}
		if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "Device not found") {
			t.Errorf("err = %q; want status and body", err.Error())
		}
		if err := c.SetDevice(context.Background(), "buzzer", "on"); !errors.Is(err, ErrUnexpectedStatus) {
			t.Errorf("SetDevice err = %v; want ErrUnexpectedStatus", err)
		}
	})

	t.Run("malformed JSON", func(t *testing.T) {
		c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"temperature":`)
		})
		_, err := c.FetchTemperature(context.Background())
		if err == nil || !strings.Contains(err.Error(), "decode /api/temp") {
			t.Fatalf("err = %v; want decode error", err)
		}
		if errors.Is(err, ErrUnexpectedStatus) {
			t.Error("decode error must not wrap ErrUnexpectedStatus")
		}
	})

	t.Run("network error", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()
		c := New(url, WithTimeout(500*time.Millisecond))
		if _, err := c.FetchHistory(context.Background()); err == nil {
			t.Fatal("FetchHistory against closed server = nil error")
		}
	})

	t.Run("context canceled", func(t *testing.T) {
		c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{}`)
		})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := c.FetchCoop(ctx); err == nil {
			t.Fatal("FetchCoop with canceled ctx = nil error")
		}
	})
}

func TestWithHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":"off"}`)
	}))
	t.Cleanup(srv.Close)

	c := New(srv.URL, WithHTTPClient(srv.Client()))
	if c.BaseURL() != srv.URL {
		t.Errorf("BaseURL = %q", c.BaseURL())
	}
	got, err := c.FetchDeviceStatus(context.Background(), "lamp")
	if err != nil {
		t.Fatalf("FetchDeviceStatus: %v", err)
	}
	if got.Status != "off" {
		t.Errorf("Status = %q; want off", got.Status)
	}
}
