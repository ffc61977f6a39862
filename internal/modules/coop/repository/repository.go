package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"kandang-monitor/internal/types"
)

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/get-recent-readings.sql
var getRecentReadingsSQL string

//go:embed sql/get-devices.sql
var getDevicesSQL string

//go:embed sql/set-device-status.sql
var setDeviceStatusSQL string

// Fixed-width so that ORDER BY ts sorts chronologically.
const tsLayout = "2006-01-02T15:04:05.000Z07:00"

var ErrDeviceNotFound = errors.New("device not found")

type CoopRepository interface {
	InsertReading(ctx context.Context, t types.Telemetry) error
	// RecentReadings returns up to limit readings, oldest first.
	RecentReadings(ctx context.Context, limit int) ([]types.Telemetry, error)
	DeviceStates(ctx context.Context) (map[string]string, error)
	SetDeviceState(ctx context.Context, device, status string) error
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) CoopRepository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) InsertReading(ctx context.Context, t types.Telemetry) error {
	_, err := r.db.ExecContext(ctx, insertReadingSQL,
		t.Timestamp.UTC().Format(tsLayout),
		nullable(t.Temperature),
		nullable(t.Humidity),
		nullable(t.Pressure),
		nullable(t.Altitude),
		nullable(t.LDR),
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

func (r *repositoryImpl) RecentReadings(ctx context.Context, limit int) ([]types.Telemetry, error) {
	rows, err := r.db.QueryContext(ctx, getRecentReadingsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close recent readings rows", "error", err)
		}
	}()

	var out []types.Telemetry
	for rows.Next() {
		var (
			ts                        string
			temp, hum, pres, alt, ldr sql.NullFloat64
		)
		if err := rows.Scan(&ts, &temp, &hum, &pres, &alt, &ldr); err != nil {
			return nil, err
		}
		parsed, err := parseTimestamp(ts)
		if err != nil {
			return nil, err
		}
		out = append(out, types.Telemetry{
			Timestamp:   parsed,
			Temperature: fromNull(temp),
			Humidity:    fromNull(hum),
			Pressure:    fromNull(pres),
			Altitude:    fromNull(alt),
			LDR:         fromNull(ldr),
		})
	}
	return out, rows.Err()
}

func (r *repositoryImpl) DeviceStates(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, getDevicesSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close devices rows", "error", err)
		}
	}()
	out := make(map[string]string)
	for rows.Next() {
		var name, status string
		if err := rows.Scan(&name, &status); err != nil {
			return nil, err
		}
		out[name] = status
	}
	return out, rows.Err()
}

func (r *repositoryImpl) SetDeviceState(ctx context.Context, device, status string) error {
	res, err := r.db.ExecContext(ctx, setDeviceStatusSQL, status, device)
	if err != nil {
		return fmt.Errorf("set device %s: %w", device, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, device)
	}
	return nil
}

func parseTimestamp(ts string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		var err2 error
		t, err2 = time.Parse(time.RFC3339, ts)
		if err2 != nil {
			return time.Time{}, fmt.Errorf("parse timestamp %q: RFC3339Nano: %w; RFC3339: %w", ts, err, err2)
		}
	}
	return t, nil
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func fromNull(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
