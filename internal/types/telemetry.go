package types

import "time"

// Telemetry is one sensor message published by the coop controller.
type Telemetry struct {
	Source      string    `json:"source,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature *float64  `json:"temperature_c,omitempty"`
	Humidity    *float64  `json:"humidity_pct,omitempty"`
	Pressure    *float64  `json:"pressure_hpa,omitempty"`
	Altitude    *float64  `json:"altitude_m,omitempty"`
	LDR         *float64  `json:"ldr,omitempty"`
}
