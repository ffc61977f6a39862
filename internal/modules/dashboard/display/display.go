// Package display turns controller readings into the text and CSS classes
// shown on the dashboard.
package display

import (
	"math"
	"strconv"
	"strings"
	"time"

	"kandang-monitor/internal/types"
)

const (
	Placeholder      = "--"
	TempPlaceholder  = "--°C"
	LightPlaceholder = "-- Lux"
	TempUnavailable  = "Tidak Tersedia"

	TempLow   = "TERLALU RENDAH"
	TempHigh  = "TERLALU PANAS"
	TempIdeal = "IDEAL"

	LampOnText  = "MENYALA 🔆"
	LampOffText = "MATI 🌑"

	DeviceOnText  = "Status: 🔆 Hidup"
	DeviceOffText = "Status: 🌑 Mati"
	LabelTurnOff  = "Matikan"
	LabelTurnOn   = "Nyalakan"

	lowBound  = 24.0
	highBound = 30.0
	barMax    = 45.0
)

// Number formats v the way the dashboard always has: shortest decimal form.
func Number(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func isNumber(v *float64) bool {
	return v != nil && !math.IsNaN(*v) && !math.IsInf(*v, 0)
}

// TemperatureView drives #temperature, #temp-status and #temp-progress-bar.
type TemperatureView struct {
	Text        string
	Status      string
	StatusClass string
	BarClass    string
	// BarWidth is a percentage in [0, 100].
	BarWidth float64
	// AriaValue is empty when there is no reading.
	AriaValue string
}

func Temperature(t *float64) TemperatureView {
	if !isNumber(t) {
		return TemperatureView{
			Text:        TempPlaceholder,
			Status:      TempUnavailable,
			StatusClass: "fw-bold fs-3 text-secondary",
			BarClass:    "progress-bar bg-secondary",
			BarWidth:    0,
		}
	}
	v := *t

	status, color, bar := TempIdeal, "text-success", "bg-success"
	switch {
	case v < lowBound:
		status, color, bar = TempLow, "text-info", "bg-info"
	case v > highBound:
		status, color, bar = TempHigh, "text-danger", "bg-danger"
	}

	return TemperatureView{
		Text:        Number(v) + "°C",
		Status:      status,
		StatusClass: "fw-bold fs-3 " + color,
		BarClass:    "progress-bar " + bar,
		BarWidth:    math.Min(math.Max(v, 0), barMax) / barMax * 100,
		AriaValue:   Number(v),
	}
}

// LightView drives #ldr and #lamp-auto-status.
type LightView struct {
	Text       string
	Lamp       string
	LampClass  string
	LampActive bool
}

func Light(ldr *float64, lampStatus string) LightView {
	v := LightView{Text: LightPlaceholder, Lamp: LampOffText, LampClass: "fw-bold text-secondary"}
	if isNumber(ldr) {
		v.Text = Number(*ldr) + " Lux"
	}
	if lampStatus == types.ActionOn {
		v.Lamp, v.LampClass, v.LampActive = LampOnText, "fw-bold text-success", true
	}
	return v
}

// AltitudeView drives #altitude; the unit is rendered in a <small>.
type AltitudeView struct {
	Value string
	Unit  string
}

func (a AltitudeView) String() string {
	if a.Unit == "" {
		return a.Value
	}
	return a.Value + " " + a.Unit
}

func Altitude(alt *float64) AltitudeView {
	if alt == nil {
		return AltitudeView{Value: Placeholder}
	}
	return AltitudeView{Value: Number(*alt), Unit: "m"}
}

// CoopView drives #jumlah-ayam, #jumlah-pakan and #jumlah-air.
type CoopView struct {
	Ayam  string
	Pakan string
	Air   string
}

func Coop(t types.CoopTally) CoopView {
	return CoopView{Ayam: count(t.Ayam), Pakan: count(t.Pakan), Air: count(t.Air)}
}

func count(c types.Count) string {
	if !c.Present {
		return Placeholder
	}
	return c.String()
}

// DeviceView drives one .device-control card.
type DeviceView struct {
	On          bool
	StatusText  string
	ButtonClass string
	Label       string
}

func Device(status string) DeviceView {
	if status == types.ActionOn {
		return DeviceView{On: true, StatusText: DeviceOnText, ButtonClass: "btn-on", Label: LabelTurnOff}
	}
	return DeviceView{StatusText: DeviceOffText, ButtonClass: "btn-off", Label: LabelTurnOn}
}

// NextAction derives the toggle action from the label currently shown on the
// button: a "Matikan" (turn off) label means the device is on.
func NextAction(label string) string {
	if strings.Contains(strings.ToLower(label), "matikan") {
		return types.ActionOff
	}
	return types.ActionOn
}

// Clock formats local time as the id-ID 24h clock, e.g. "07.05.09".
func Clock(t time.Time) string {
	return t.Format("15.04.05")
}
