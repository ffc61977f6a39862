// Package influx mirrors coop telemetry and device changes into InfluxDB.
package influx

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"kandang-monitor/internal/types"
)

const (
	telemetryMeasurement = "kandang_telemetry"
	deviceMeasurement    = "kandang_device"
)

type Sink struct {
	client influxdb2.Client
	write  api.WriteAPIBlocking
}

func NewSink(url, token, org, bucket string) *Sink {
	client := influxdb2.NewClient(url, token)
	return &Sink{client: client, write: client.WriteAPIBlocking(org, bucket)}
}

// Ping checks that the server reports itself healthy.
func (s *Sink) Ping(ctx context.Context) error {
	health, err := s.client.Health(ctx)
	if err != nil {
		return fmt.Errorf("influx health: %w", err)
	}
	if health.Status != "pass" {
		msg := ""
		if health.Message != nil {
			msg = *health.Message
		}
		return fmt.Errorf("influx unhealthy: %s %s", health.Status, msg)
	}
	return nil
}

// WriteTelemetry stores the readings present in t. Messages without readings
// are skipped.
func (s *Sink) WriteTelemetry(ctx context.Context, t types.Telemetry) error {
	fields := map[string]interface{}{}
	addField(fields, "temperature_c", t.Temperature)
	addField(fields, "humidity_pct", t.Humidity)
	addField(fields, "pressure_hpa", t.Pressure)
	addField(fields, "altitude_m", t.Altitude)
	addField(fields, "ldr", t.LDR)
	if len(fields) == 0 {
		return nil
	}

	tags := map[string]string{}
	if t.Source != "" {
		tags["source"] = t.Source
	}
	p := influxdb2.NewPoint(telemetryMeasurement, tags, fields, t.Timestamp)
	if err := s.write.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("write telemetry point: %w", err)
	}
	return nil
}

func (s *Sink) WriteDeviceState(ctx context.Context, device, status string, at time.Time) error {
	on := 0
	if status == types.ActionOn {
		on = 1
	}
	p := influxdb2.NewPoint(deviceMeasurement,
		map[string]string{"device": device},
		map[string]interface{}{"on": on},
		at,
	)
	if err := s.write.WritePoint(ctx, p); err != nil {
		return fmt.Errorf("write device point: %w", err)
	}
	return nil
}

func (s *Sink) Close() {
	s.client.Close()
}

func addField(fields map[string]interface{}, name string, v *float64) {
	if v != nil {
		fields[name] = *v
	}
}
