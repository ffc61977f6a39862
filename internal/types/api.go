package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

const (
	ActionOn  = "on"
	ActionOff = "off"
)

// Devices lists the controllable actuators in dashboard order.
var Devices = []string{"lamp", "kipas", "pemanas", "pompa", "pakan"}

func IsDevice(name string) bool {
	return slices.Contains(Devices, name)
}

func IsAction(action string) bool {
	return action == ActionOn || action == ActionOff
}

// Snapshot is the body of GET /api/temp.
type Snapshot struct {
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Pressure    *float64 `json:"pressure"`
	Altitude    *float64 `json:"altitude"`
	LDR         *float64 `json:"ldr"`
	LampAuto    string   `json:"lamp_auto"`
}

// HistorySeries is the body of GET /api/temp-history. The value slices are
// aligned with Labels; nil entries are gaps.
type HistorySeries struct {
	Labels      []string   `json:"labels"`
	Temperature []*float64 `json:"temperature"`
	Humidity    []*float64 `json:"humidity"`
	Pressure    []*float64 `json:"pressure"`
}

// DeviceStatus is the body of GET /api/{device}/status and POST /api/{device}.
type DeviceStatus struct {
	Device string `json:"device,omitempty"`
	Status string `json:"status"`
}

// DeviceCommand is the body of POST /api/{device}.
type DeviceCommand struct {
	Action string `json:"action"`
}

// Count is one coop tally field. The upstream reports numbers, or a
// placeholder string such as "-" when it has nothing to report.
type Count struct {
	Value   float64
	Text    string
	Present bool
	Numeric bool
}

func NumberCount(v float64) Count {
	return Count{Value: v, Present: true, Numeric: true}
}

func TextCount(s string) Count {
	return Count{Text: s, Present: true}
}

func (c *Count) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*c = Count{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*c = Count{Value: v, Text: s, Present: true, Numeric: true}
			return nil
		}
		*c = TextCount(s)
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		// Booleans and objects carry no count; treat them as absent.
		*c = Count{}
		return nil
	}
	*c = NumberCount(v)
	return nil
}

func (c Count) MarshalJSON() ([]byte, error) {
	switch {
	case !c.Present:
		return []byte("null"), nil
	case c.Numeric:
		return json.Marshal(c.Value)
	default:
		return json.Marshal(c.Text)
	}
}

func (c Count) String() string {
	if c.Numeric {
		return strconv.FormatFloat(c.Value, 'f', -1, 64)
	}
	return c.Text
}

// CoopTally is the body of GET /api/kandang: livestock, feed and water counts.
type CoopTally struct {
	Ayam  Count `json:"ayam"`
	Pakan Count `json:"pakan"`
	Air   Count `json:"air"`
}

// PlaceholderTally is reported when no upstream tally is available.
func PlaceholderTally() CoopTally {
	return CoopTally{Ayam: TextCount("-"), Pakan: TextCount("-"), Air: TextCount("-")}
}

// SumTallies adds the tallies field by field. Missing or non-numeric fields
// count as zero, so every field of the result is numeric.
func SumTallies(items []CoopTally) CoopTally {
	var ayam, pakan, air float64
	for _, it := range items {
		ayam += numeric(it.Ayam)
		pakan += numeric(it.Pakan)
		air += numeric(it.Air)
	}
	return CoopTally{Ayam: NumberCount(ayam), Pakan: NumberCount(pakan), Air: NumberCount(air)}
}

func numeric(c Count) float64 {
	if c.Numeric {
		return c.Value
	}
	return 0
}

// ParseCoopTally decodes either a single tally object or an array of tallies,
// summing the array.
func ParseCoopTally(b []byte) (CoopTally, error) {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) == 0 {
		return CoopTally{}, fmt.Errorf("empty coop tally body")
	}
	if trimmed[0] == '[' {
		var items []CoopTally
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return CoopTally{}, fmt.Errorf("decode coop tally list: %w", err)
		}
		return SumTallies(items), nil
	}
	var t CoopTally
	if err := json.Unmarshal(trimmed, &t); err != nil {
		return CoopTally{}, fmt.Errorf("decode coop tally: %w", err)
	}
	return t, nil
}

// ServerStatus is the body of GET /api/status.
type ServerStatus struct {
	Status      string `json:"status"`
	IP          string `json:"ip"`
	DeviceCount int    `json:"device_count"`
}
