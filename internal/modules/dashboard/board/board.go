// Package board holds what the dashboard page currently shows. Every element
// has exactly one setter; writers may race, and the last write wins.
package board

import (
	"sync"

	"kandang-monitor/internal/modules/dashboard/chart"
	"kandang-monitor/internal/modules/dashboard/display"
	"kandang-monitor/internal/types"
)

// Element IDs the page template and the HTMX partials rely on.
const (
	IDTemperature = "temperature"
	IDTempStatus  = "temp-status"
	IDTempBar     = "temp-progress-bar"
	IDLDR         = "ldr"
	IDLampAuto    = "lamp-auto-status"
	IDAltitude    = "altitude"
	IDAyam        = "jumlah-ayam"
	IDPakan       = "jumlah-pakan"
	IDAir         = "jumlah-air"
	IDClock       = "digital-clock"
	IDChart       = "tempChart"
)

// DeviceCard is one .device-control card, keyed by its data-device name.
type DeviceCard struct {
	Name string
	display.DeviceView
}

// State is a consistent copy of the board for rendering.
type State struct {
	Temperature display.TemperatureView
	Light       display.LightView
	Altitude    display.AltitudeView
	Coop        display.CoopView
	Clock       string
	Devices     []DeviceCard
	Chart       chart.Data
}

func (s State) Device(name string) (DeviceCard, bool) {
	for _, d := range s.Devices {
		if d.Name == name {
			return d, true
		}
	}
	return DeviceCard{}, false
}

type Board struct {
	mu          sync.RWMutex
	temperature display.TemperatureView
	light       display.LightView
	altitude    display.AltitudeView
	coop        display.CoopView
	clock       string
	devices     map[string]display.DeviceView
	order       []string

	chart *chart.Chart
}

// New returns a board in its page-load state for the given devices.
func New(devices []string) *Board {
	b := &Board{
		temperature: display.Temperature(nil),
		light:       display.Light(nil, ""),
		altitude:    display.Altitude(nil),
		coop:        display.Coop(types.CoopTally{}),
		devices:     make(map[string]display.DeviceView, len(devices)),
		order:       append([]string{}, devices...),
		chart:       chart.New(),
	}
	for _, d := range devices {
		b.devices[d] = display.Device(types.ActionOff)
	}
	return b
}

func (b *Board) SetTemperature(v display.TemperatureView) {
	b.mu.Lock()
	b.temperature = v
	b.mu.Unlock()
}

func (b *Board) SetLight(v display.LightView) {
	b.mu.Lock()
	b.light = v
	b.mu.Unlock()
}

func (b *Board) SetAltitude(v display.AltitudeView) {
	b.mu.Lock()
	b.altitude = v
	b.mu.Unlock()
}

func (b *Board) SetCoop(v display.CoopView) {
	b.mu.Lock()
	b.coop = v
	b.mu.Unlock()
}

func (b *Board) SetClock(s string) {
	b.mu.Lock()
	b.clock = s
	b.mu.Unlock()
}

// SetDevice updates a device card. Unknown devices are ignored, the same way
// a missing card is skipped on the page.
func (b *Board) SetDevice(name string, v display.DeviceView) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.devices[name]; !ok {
		return false
	}
	b.devices[name] = v
	return true
}

func (b *Board) SetChart(h types.HistorySeries) {
	b.chart.Replace(h)
}

// ToggleLabel returns the label currently shown on a device's toggle button.
func (b *Board) ToggleLabel(name string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	d, ok := b.devices[name]
	return d.Label, ok
}

func (b *Board) HasDevice(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.devices[name]
	return ok
}

func (b *Board) Snapshot() State {
	b.mu.RLock()
	s := State{
		Temperature: b.temperature,
		Light:       b.light,
		Altitude:    b.altitude,
		Coop:        b.coop,
		Clock:       b.clock,
		Devices:     make([]DeviceCard, 0, len(b.order)),
	}
	for _, name := range b.order {
		s.Devices = append(s.Devices, DeviceCard{Name: name, DeviceView: b.devices[name]})
	}
	b.mu.RUnlock()

	s.Chart = b.chart.Data()
	return s
}
