package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"kandang-monitor/internal/migrate"
	"kandang-monitor/internal/types"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Fatalf("close db: %v", err)
		}
	})
	if err := migrate.Run(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func f(v float64) *float64 { return &v }

func TestInsertAndRecentReadings(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 7, 0, 0, 0, time.UTC)

	for i := 0; i < 25; i++ {
		err := repo.InsertReading(ctx, types.Telemetry{
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
			Temperature: f(20 + float64(i)),
			Humidity:    f(60),
			Pressure:    f(1010),
		})
		if err != nil {
			t.Fatalf("InsertReading %d: %v", i, err)
		}
	}

	got, err := repo.RecentReadings(ctx, 20)
	if err != nil {
		t.Fatalf("RecentReadings: %v", err)
	}
	if len(got) != 20 {
		t.Fatalf("len = %d; want 20", len(got))
	}
	if *got[0].Temperature != 25 || *got[19].Temperature != 44 {
		t.Errorf("window = %v..%v; want 25..44 oldest first", *got[0].Temperature, *got[19].Temperature)
	}
	if !got[19].Timestamp.Equal(base.Add(24 * time.Minute)) {
		t.Errorf("last ts = %v", got[19].Timestamp)
	}
	if got[0].LDR != nil || got[0].Altitude != nil {
		t.Errorf("missing fields should stay nil: %+v", got[0])
	}
}

func TestRecentReadings_empty(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	got, err := repo.RecentReadings(context.Background(), 20)
	if err != nil {
		t.Fatalf("RecentReadings: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d; want 0", len(got))
	}
}

func TestDeviceStates(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	states, err := repo.DeviceStates(ctx)
	if err != nil {
		t.Fatalf("DeviceStates: %v", err)
	}
	if len(states) != 5 {
		t.Fatalf("devices = %v; want 5 seeded", states)
	}
	for name, st := range states {
		if st != "off" {
			t.Errorf("%s = %q; want off", name, st)
		}
	}

	if err := repo.SetDeviceState(ctx, "pompa", "on"); err != nil {
		t.Fatalf("SetDeviceState: %v", err)
	}
	states, _ = repo.DeviceStates(ctx)
	if states["pompa"] != "on" {
		t.Errorf("pompa = %q; want on", states["pompa"])
	}
}

func TestSetDeviceState_errors(t *testing.T) {
	repo := NewRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.SetDeviceState(ctx, "buzzer", "on"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("unknown device err = %v; want ErrDeviceNotFound", err)
	}
	if err := repo.SetDeviceState(ctx, "lamp", "blink"); err == nil {
		t.Error("invalid status accepted; want CHECK constraint error")
	}
}

func TestParseTimestamp(t *testing.T) {
	if _, err := parseTimestamp("2025-05-01T07:00:00Z"); err != nil {
		t.Errorf("RFC3339: %v", err)
	}
	if _, err := parseTimestamp("2025-05-01T07:00:00.123456Z"); err != nil {
		t.Errorf("RFC3339Nano: %v", err)
	}
	if _, err := parseTimestamp("yesterday"); err == nil {
		t.Error("garbage accepted")
	}
}
