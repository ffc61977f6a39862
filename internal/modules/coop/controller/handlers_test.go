package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"kandang-monitor/internal/modules/coop/service"
	"kandang-monitor/internal/types"
)

type mockService struct {
	snapshot   types.Snapshot
	history    types.HistorySeries
	historyErr error
	tally      types.CoopTally
	devices    map[string]string
	setErr     error
	setCalls   []string
}

func (m *mockService) Snapshot() types.Snapshot { return m.snapshot }

func (m *mockService) History(context.Context) (types.HistorySeries, error) {
	return m.history, m.historyErr
}

func (m *mockService) Tally(context.Context) types.CoopTally { return m.tally }

func (m *mockService) DeviceStatus(device string) (string, error) {
	st, ok := m.devices[device]
	if !ok {
		return "", service.ErrUnknownDevice
	}
	return st, nil
}

func (m *mockService) SetDevice(_ context.Context, device, action string) (string, error) {
	m.setCalls = append(m.setCalls, device+"="+action)
	if m.setErr != nil {
		return "", m.setErr
	}
	if !types.IsDevice(device) || !types.IsAction(action) {
		return "", service.ErrInvalidCommand
	}
	m.devices[device] = action
	return action, nil
}

func (m *mockService) Status() types.ServerStatus {
	return types.ServerStatus{Status: "online", IP: "10.0.0.5", DeviceCount: 5}
}

func newTestMux(m *mockService) *http.ServeMux {
	mux := http.NewServeMux()
	NewCoopController(m).RegisterRoutes(mux)
	return mux
}

func f(v float64) *float64 { return &v }

func do(mux *http.ServeMux, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func Test_handleTemp(t *testing.T) {
	mux := newTestMux(&mockService{snapshot: types.Snapshot{Temperature: f(27.4), LDR: f(1200), LampAuto: "off"}})
	rec := do(mux, http.MethodGet, "/api/temp", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode(t, rec)
	if body["temperature"] != 27.4 || body["ldr"] != 1200.0 || body["lamp_auto"] != "off" {
		t.Errorf("body = %v", body)
	}
	if v, ok := body["altitude"]; !ok || v != nil {
		t.Errorf("altitude = %v, present %v; want explicit null", v, ok)
	}
}

func Test_handleHistory(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		mux := newTestMux(&mockService{history: types.HistorySeries{
			Labels:      []string{"07:10"},
			Temperature: []*float64{f(25)},
			Humidity:    []*float64{nil},
			Pressure:    []*float64{f(1010)},
		}})
		rec := do(mux, http.MethodGet, "/api/temp-history", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		want := `{"labels":["07:10"],"temperature":[25],"humidity":[null],"pressure":[1010]}`
		if got := strings.TrimSpace(rec.Body.String()); got != want {
			t.Errorf("body = %s; want %s", got, want)
		}
	})
	t.Run("error", func(t *testing.T) {
		mux := newTestMux(&mockService{historyErr: errors.New("db")})
		rec := do(mux, http.MethodGet, "/api/temp-history", "")
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d; want 500", rec.Code)
		}
	})
}

func Test_handleKandang(t *testing.T) {
	mux := newTestMux(&mockService{tally: types.PlaceholderTally()})
	rec := do(mux, http.MethodGet, "/api/kandang", "")
	if got := strings.TrimSpace(rec.Body.String()); got != `{"ayam":"-","pakan":"-","air":"-"}` {
		t.Errorf("body = %s", got)
	}
}

func Test_handleStatus(t *testing.T) {
	mux := newTestMux(&mockService{})
	body := decode(t, do(mux, http.MethodGet, "/api/status", ""))
	if body["status"] != "online" || body["ip"] != "10.0.0.5" || body["device_count"] != 5.0 {
		t.Errorf("body = %v", body)
	}
}

func Test_handleDeviceStatus(t *testing.T) {
	mux := newTestMux(&mockService{devices: map[string]string{"lamp": "on"}})

	rec := do(mux, http.MethodGet, "/api/lamp/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := decode(t, rec); body["device"] != "lamp" || body["status"] != "on" {
		t.Errorf("body = %v", body)
	}

	rec = do(mux, http.MethodGet, "/api/buzzer/status", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d; want 404", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"error":"Device not found"}` {
		t.Errorf("body = %s", got)
	}
}

func Test_handleSetDevice(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
		wantBody string
	}{
		{name: "turn on", path: "/api/kipas", body: `{"action":"on"}`, wantCode: 200, wantBody: `{"device":"kipas","status":"on"}`},
		{name: "turn off", path: "/api/pakan", body: `{"action":"off"}`, wantCode: 200, wantBody: `{"device":"pakan","status":"off"}`},
		{name: "unknown device", path: "/api/buzzer", body: `{"action":"on"}`, wantCode: 400, wantBody: `{"error":"Invalid device or action"}`},
		{name: "bad action", path: "/api/lamp", body: `{"action":"blink"}`, wantCode: 400, wantBody: `{"error":"Invalid device or action"}`},
		{name: "missing action", path: "/api/lamp", body: `{}`, wantCode: 400, wantBody: `{"error":"Invalid device or action"}`},
		{name: "malformed body", path: "/api/lamp", body: `{"action":`, wantCode: 400, wantBody: `{"error":"Invalid device or action"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestMux(&mockService{devices: map[string]string{}})
			rec := do(mux, http.MethodPost, tt.path, tt.body)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d; want %d", rec.Code, tt.wantCode)
			}
			if got := strings.TrimSpace(rec.Body.String()); got != tt.wantBody {
				t.Errorf("body = %s; want %s", got, tt.wantBody)
			}
		})
	}

	t.Run("storage failure is 500", func(t *testing.T) {
		mux := newTestMux(&mockService{devices: map[string]string{}, setErr: errors.New("disk full")})
		rec := do(mux, http.MethodPost, "/api/lamp", `{"action":"on"}`)
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d; want 500", rec.Code)
		}
	})
}
