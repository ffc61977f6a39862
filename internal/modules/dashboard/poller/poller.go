// Package poller keeps the dashboard board in step with the backend API.
//
// Devices, the sensor snapshot and the coop tally refresh on one cadence, the
// chart history on a slower one and the clock every second. Each fetch runs on
// its own goroutine: slow requests are not coalesced or cancelled by newer
// ticks, and whichever finishes last owns the element it writes.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"kandang-monitor/internal/modules/dashboard/board"
	"kandang-monitor/internal/modules/dashboard/display"
	"kandang-monitor/internal/types"
)

var (
	ErrUnknownDevice   = errors.New("unknown device")
	ErrInvalidInterval = errors.New("poll interval must be positive")
)

// Backend is the slice of the API client the poller needs.
type Backend interface {
	FetchTemperature(ctx context.Context) (types.Snapshot, error)
	FetchHistory(ctx context.Context) (types.HistorySeries, error)
	FetchCoop(ctx context.Context) (types.CoopTally, error)
	FetchDeviceStatus(ctx context.Context, device string) (types.DeviceStatus, error)
	SetDevice(ctx context.Context, device, action string) error
}

// FailureCounter records failed fetches per endpoint.
type FailureCounter interface {
	FetchFailed(endpoint string)
}

type Intervals struct {
	Devices time.Duration
	History time.Duration
	Clock   time.Duration
}

func DefaultIntervals() Intervals {
	return Intervals{Devices: 5 * time.Second, History: 60 * time.Second, Clock: time.Second}
}

// Validate rejects non-positive cadences; Start cannot tick with them.
func (i Intervals) Validate() error {
	for _, c := range []struct {
		name string
		d    time.Duration
	}{
		{"devices", i.Devices},
		{"history", i.History},
		{"clock", i.Clock},
	} {
		if c.d <= 0 {
			return fmt.Errorf("%w: %s interval is %s", ErrInvalidInterval, c.name, c.d)
		}
	}
	return nil
}

type Poller struct {
	backend   Backend
	board     *board.Board
	devices   []string
	failures  FailureCounter
	logger    *slog.Logger
	intervals Intervals
	now       func() time.Time

	wg sync.WaitGroup
}

func New(backend Backend, b *board.Board, devices []string, failures FailureCounter, intervals Intervals, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		backend:   backend,
		board:     b,
		devices:   append([]string{}, devices...),
		failures:  failures,
		logger:    logger.With("component", "dashboard-poller"),
		intervals: intervals,
		now:       time.Now,
	}
}

// Start refreshes everything once and then keeps polling until ctx is done.
// It returns immediately.
func (p *Poller) Start(ctx context.Context) error {
	if err := p.intervals.Validate(); err != nil {
		return err
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(ctx)
	}()
	p.logger.Info("dashboard poller started",
		"devices_every", p.intervals.Devices,
		"history_every", p.intervals.History,
		"clock_every", p.intervals.Clock,
	)
	return nil
}

// Wait blocks until the polling loop and every in-flight fetch have returned.
func (p *Poller) Wait() {
	p.wg.Wait()
}

func (p *Poller) run(ctx context.Context) {
	devices := time.NewTicker(p.intervals.Devices)
	defer devices.Stop()
	history := time.NewTicker(p.intervals.History)
	defer history.Stop()
	clock := time.NewTicker(p.intervals.Clock)
	defer clock.Stop()

	p.RefreshAll(ctx)
	p.RefreshChart(ctx)
	p.RefreshClock()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("dashboard poller stopped")
			return
		case <-devices.C:
			p.RefreshAll(ctx)
		case <-history.C:
			p.RefreshChart(ctx)
		case <-clock.C:
			p.RefreshClock()
		}
	}
}

func (p *Poller) spawn(fn func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		fn()
	}()
}

// RefreshAll starts one fetch per device plus the snapshot and coop fetches.
func (p *Poller) RefreshAll(ctx context.Context) {
	for _, d := range p.devices {
		p.spawn(func() { p.refreshDevice(ctx, d) })
	}
	p.spawn(func() { p.refreshTemperature(ctx) })
	p.spawn(func() { p.refreshCoop(ctx) })
}

func (p *Poller) RefreshChart(ctx context.Context) {
	p.spawn(func() { p.refreshHistory(ctx) })
}

func (p *Poller) RefreshClock() {
	p.board.SetClock(display.Clock(p.now()))
}

func (p *Poller) refreshTemperature(ctx context.Context) {
	snap, err := p.backend.FetchTemperature(ctx)
	if err != nil {
		p.fail("/api/temp", slog.LevelError, "fetch temperature failed", err)
		p.board.SetTemperature(display.Temperature(nil))
		return
	}
	p.board.SetTemperature(display.Temperature(snap.Temperature))
	p.board.SetLight(display.Light(snap.LDR, snap.LampAuto))
	p.board.SetAltitude(display.Altitude(snap.Altitude))
}

func (p *Poller) refreshCoop(ctx context.Context) {
	tally, err := p.backend.FetchCoop(ctx)
	if err != nil {
		p.fail("/api/kandang", slog.LevelError, "fetch coop tally failed", err)
		return
	}
	p.board.SetCoop(display.Coop(tally))
}

func (p *Poller) refreshHistory(ctx context.Context) {
	h, err := p.backend.FetchHistory(ctx)
	if err != nil {
		p.fail("/api/temp-history", slog.LevelError, "fetch history failed", err)
		return
	}
	p.board.SetChart(h)
}

func (p *Poller) refreshDevice(ctx context.Context, device string) {
	st, err := p.backend.FetchDeviceStatus(ctx, device)
	if err != nil {
		p.fail(statusEndpoint(device), slog.LevelWarn, "fetch device status failed", err, "device", device)
		return
	}
	p.board.SetDevice(device, display.Device(st.Status))
}

// Toggle flips a device based on the label its button currently shows, then
// re-reads that device's status once whether or not the command succeeded.
func (p *Poller) Toggle(ctx context.Context, device string) error {
	label, ok := p.board.ToggleLabel(device)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownDevice, device)
	}
	action := display.NextAction(label)

	if err := p.backend.SetDevice(ctx, device, action); err != nil {
		p.fail("/api/"+device, slog.LevelError, "toggle device failed", err, "device", device, "action", action)
	} else {
		p.logger.Info("device toggled", "device", device, "action", action)
	}

	p.refreshDevice(ctx, device)
	return nil
}

func (p *Poller) fail(endpoint string, level slog.Level, msg string, err error, attrs ...any) {
	if p.failures != nil {
		p.failures.FetchFailed(endpoint)
	}
	attrs = append(attrs, "endpoint", endpoint, "error", err)
	p.logger.Log(context.Background(), level, msg, attrs...)
}

func statusEndpoint(device string) string {
	return "/api/" + device + "/status"
}
