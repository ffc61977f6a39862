package db

import (
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"kandang-monitor/internal/config"
)

func TestBuildDSN(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		cfg  config.Config
		want string
	}{
		{
			name: "explicit DSN wins",
			cfg:  config.Config{SQLiteDSN: "file::memory:?cache=shared", SQLitePath: "ignored.db"},
			want: "file::memory:?cache=shared",
		},
		{
			name: "plain path",
			cfg:  config.Config{SQLitePath: filepath.Join(dir, "a.db")},
			want: "file:" + filepath.Join(dir, "a.db") + "?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL",
		},
		{
			name: "file prefix with params",
			cfg:  config.Config{SQLitePath: "file:" + filepath.Join(dir, "b.db") + "?mode=rwc"},
			want: "file:" + filepath.Join(dir, "b.db") + "?mode=rwc&_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildDSN(tt.cfg)
			if err != nil {
				t.Fatalf("buildDSN: %v", err)
			}
			if got != tt.want {
				t.Errorf("buildDSN = %q; want %q", got, tt.want)
			}
		})
	}
}

func TestOpen_createsDirectoryAndPings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "kandang.db")
	cfg := config.Config{
		LogLevel:           slog.LevelInfo,
		SQLiteDriver:       "sqlite3",
		SQLitePath:         path,
		SQLiteMaxOpenConns: 1,
		SQLiteMaxIdleConns: 1,
	}

	conn, err := Open(cfg, slog.Default())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() {
		if err := Close(conn); err != nil {
			t.Fatalf("Close: %v", err)
		}
	}()

	var ok int
	if err := conn.QueryRow(`SELECT 1`).Scan(&ok); err != nil || ok != 1 {
		t.Fatalf("SELECT 1 = %d, %v", ok, err)
	}
}

func TestOpen_debugUsesLoggingConnector(t *testing.T) {
	handler := &captureHandler{}
	cfg := config.Config{
		LogLevel:     slog.LevelDebug,
		SQLiteDriver: "sqlite3",
		SQLiteDSN:    ":memory:",
	}

	conn, err := Open(cfg, slog.New(handler))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.Exec(`CREATE TABLE devices (name TEXT)`); err != nil {
		t.Fatalf("exec: %v", err)
	}
	recs := handler.recordsFor(t, "sql")
	if len(recs) == 0 {
		t.Fatal("expected sql records at debug level")
	}
	if !strings.Contains(recs[len(recs)-1]["sql"].String(), "CREATE TABLE devices") {
		t.Errorf("sql = %q", recs[len(recs)-1]["sql"].String())
	}
}

func TestOpen_unknownDriver(t *testing.T) {
	cfg := config.Config{SQLiteDriver: "nope", SQLiteDSN: ":memory:"}
	if _, err := Open(cfg, slog.Default()); err == nil {
		t.Fatal("Open(unknown driver) = nil error; want error")
	}
}

func TestClose_nil(t *testing.T) {
	if err := Close(nil); err != nil {
		t.Fatalf("Close(nil) = %v; want nil", err)
	}
}
