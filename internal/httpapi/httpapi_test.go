package httpapi

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"

	"kandang-monitor/internal/config"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestHealthz(t *testing.T) {
	mux := NewMux(openDB(t), nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d want=%d", rec.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("body.status=%q want=ok", body["status"])
	}
}

func TestHealthz_dbDown(t *testing.T) {
	db := openDB(t)
	_ = db.Close()
	mux := NewMux(db, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status=%d want=500", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "kandang_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	mux := NewMux(openDB(t), reg)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "kandang_test_total 1") {
		t.Errorf("metrics output missing counter:\n%s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	NewMux(openDB(t), nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("metrics without gatherer: status=%d want=404", rec.Code)
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	h := requestLogger(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/dashboard/devices/lamp/toggle", nil))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode log: %v (%q)", err, buf.String())
	}
	if entry["msg"] != "http request" || entry["status"] != 418.0 || entry["method"] != "POST" {
		t.Errorf("log entry = %v", entry)
	}
}

func TestRequestLogger_pollsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})

	h := requestLogger(logger, ok)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/temp", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/dashboard/partials/clock", nil))
	if buf.Len() != 0 {
		t.Errorf("poll requests logged at info: %s", buf.String())
	}
}

func TestIsPollPath(t *testing.T) {
	tests := map[string]bool{
		"/api/temp":                      true,
		"/api/lamp/status":               true,
		"/dashboard/partials/readings":   true,
		"/metrics":                       true,
		"/":                              false,
		"/dashboard/devices/lamp/toggle": false,
		"/healthz":                       false,
	}
	for path, want := range tests {
		if got := isPollPath(path); got != want {
			t.Errorf("isPollPath(%q) = %v; want %v", path, got, want)
		}
	}
}

func TestServer_corsOnAPIOnly(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/temp", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {})

	cfg := config.Config{HTTPAddr: ":0", CORSAllowedOrigins: []string{"http://panel.local"}}
	srv := NewServer(cfg, mux, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	get := func(path string) *http.Response {
		req, _ := http.NewRequest(http.MethodGet, ts.URL+path, nil)
		req.Header.Set("Origin", "http://panel.local")
		resp, err := ts.Client().Do(req)
		if err != nil {
			t.Fatalf("get %s: %v", path, err)
		}
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	if got := get("/api/temp").Header.Get("Access-Control-Allow-Origin"); got != "http://panel.local" {
		t.Errorf("/api/temp allow-origin = %q", got)
	}
	if got := get("/healthz").Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("/healthz allow-origin = %q; want none", got)
	}
}

func TestServer_noCORSConfigured(t *testing.T) {
	mux := http.NewServeMux()
	cfg := config.Config{HTTPAddr: ":9999"}
	srv := NewServer(cfg, mux, slog.Default())
	if srv.Addr != ":9999" || srv.ReadHeaderTimeout == 0 {
		t.Errorf("server = %+v", srv)
	}
}
