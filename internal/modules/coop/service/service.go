// Package service holds the coop controller state: latest sensor snapshot,
// device registry, automatic lamp control and the over-temperature alarm.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"sync"
	"time"

	"kandang-monitor/internal/config"
	"kandang-monitor/internal/modules/coop/repository"
	"kandang-monitor/internal/types"
)

const historySize = 20

var (
	ErrUnknownDevice  = errors.New("device not found")
	ErrInvalidCommand = errors.New("invalid device or action")
)

// Publisher forwards device commands to the controller hardware.
type Publisher interface {
	PublishDeviceState(ctx context.Context, device, status string) error
}

// Sink mirrors telemetry and device changes into a time-series store.
type Sink interface {
	WriteTelemetry(ctx context.Context, t types.Telemetry) error
	WriteDeviceState(ctx context.Context, device, status string, at time.Time) error
}

type Gauges interface {
	ObserveTelemetry(t types.Telemetry)
	TelemetryReceived(result string)
	SetDeviceState(device, status string)
	SetAlarm(active bool)
}

type TallySource interface {
	FetchTally(ctx context.Context) (types.CoopTally, error)
}

// Deps are the optional collaborators of the service; nil members are skipped.
type Deps struct {
	Publisher Publisher
	Sink      Sink
	Gauges    Gauges
	Tally     TallySource
}

type Service struct {
	repo       repository.CoopRepository
	deps       Deps
	thresholds config.Thresholds
	logger     *slog.Logger
	now        func() time.Time
	ip         string

	mu      sync.RWMutex
	latest  types.Telemetry
	devices map[string]string
	alarm   bool
}

func NewService(repo repository.CoopRepository, thresholds config.Thresholds, deps Deps, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	devices := make(map[string]string, len(types.Devices))
	for _, d := range types.Devices {
		devices[d] = types.ActionOff
	}
	return &Service{
		repo:       repo,
		deps:       deps,
		thresholds: thresholds,
		logger:     logger.With("component", "coop"),
		now:        time.Now,
		ip:         localIP(),
		devices:    devices,
	}
}

// Load restores the persisted device states.
func (s *Service) Load(ctx context.Context) error {
	states, err := s.repo.DeviceStates(ctx)
	if err != nil {
		return fmt.Errorf("load device states: %w", err)
	}
	s.mu.Lock()
	for name, st := range states {
		if _, ok := s.devices[name]; ok {
			s.devices[name] = st
		}
	}
	s.mu.Unlock()

	if s.deps.Gauges != nil {
		for name, st := range states {
			s.deps.Gauges.SetDeviceState(name, st)
		}
	}
	return nil
}

// HandleTelemetry stores one sensor message and applies the automatic rules.
// It is the MQTT telemetry handler.
func (s *Service) HandleTelemetry(t types.Telemetry) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	t.Temperature = round1(t.Temperature)
	t.Humidity = round1(t.Humidity)
	t.Pressure = round1(t.Pressure)
	t.Altitude = round1(t.Altitude)

	if err := s.repo.InsertReading(ctx, t); err != nil {
		s.received("error")
		return err
	}
	s.received("ok")

	s.mu.Lock()
	merge(&s.latest, t)
	alarmChanged := false
	if t.Temperature != nil {
		active := *t.Temperature > s.thresholds.TempMax
		alarmChanged = active != s.alarm
		s.alarm = active
	}
	alarm := s.alarm
	s.mu.Unlock()

	if s.deps.Gauges != nil {
		s.deps.Gauges.ObserveTelemetry(t)
		s.deps.Gauges.SetAlarm(alarm)
	}
	if alarmChanged {
		s.logger.Warn("temperature alarm changed", "active", alarm, "temperature", *t.Temperature, "max", s.thresholds.TempMax)
	}
	if t.LDR != nil {
		s.autoLamp(ctx, *t.LDR)
	}
	if s.deps.Sink != nil {
		if err := s.deps.Sink.WriteTelemetry(ctx, t); err != nil {
			s.logger.Warn("mirror telemetry failed", "error", err)
		}
	}
	return nil
}

// autoLamp switches the lamp with hysteresis: on above LampOn, off below
// LampOff, unchanged in between.
func (s *Service) autoLamp(ctx context.Context, ldr float64) {
	s.mu.RLock()
	lamp := s.devices["lamp"]
	s.mu.RUnlock()

	var want string
	switch {
	case ldr > s.thresholds.LampOn && lamp == types.ActionOff:
		want = types.ActionOn
	case ldr < s.thresholds.LampOff && lamp == types.ActionOn:
		want = types.ActionOff
	default:
		return
	}
	if _, err := s.SetDevice(ctx, "lamp", want); err != nil {
		s.logger.Error("automatic lamp control failed", "ldr", ldr, "error", err)
		return
	}
	s.logger.Info("automatic lamp control", "ldr", ldr, "status", want)
}

func (s *Service) Snapshot() types.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return types.Snapshot{
		Temperature: s.latest.Temperature,
		Humidity:    s.latest.Humidity,
		Pressure:    s.latest.Pressure,
		Altitude:    s.latest.Altitude,
		LDR:         s.latest.LDR,
		LampAuto:    s.devices["lamp"],
	}
}

// History returns the last readings labelled with their local "HH:MM" time.
func (s *Service) History(ctx context.Context) (types.HistorySeries, error) {
	readings, err := s.repo.RecentReadings(ctx, historySize)
	if err != nil {
		return types.HistorySeries{}, fmt.Errorf("recent readings: %w", err)
	}
	h := types.HistorySeries{
		Labels:      make([]string, 0, len(readings)),
		Temperature: make([]*float64, 0, len(readings)),
		Humidity:    make([]*float64, 0, len(readings)),
		Pressure:    make([]*float64, 0, len(readings)),
	}
	for _, r := range readings {
		h.Labels = append(h.Labels, r.Timestamp.Local().Format("15:04"))
		h.Temperature = append(h.Temperature, r.Temperature)
		h.Humidity = append(h.Humidity, r.Humidity)
		h.Pressure = append(h.Pressure, r.Pressure)
	}
	return h, nil
}

func (s *Service) DeviceStatus(device string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.devices[device]
	if !ok {
		return "", ErrUnknownDevice
	}
	return st, nil
}

// SetDevice persists the new state and forwards it to the controller.
func (s *Service) SetDevice(ctx context.Context, device, action string) (string, error) {
	if !types.IsDevice(device) || !types.IsAction(action) {
		return "", ErrInvalidCommand
	}
	if err := s.repo.SetDeviceState(ctx, device, action); err != nil {
		return "", err
	}

	s.mu.Lock()
	prev := s.devices[device]
	s.devices[device] = action
	s.mu.Unlock()

	if s.deps.Gauges != nil {
		s.deps.Gauges.SetDeviceState(device, action)
	}
	if s.deps.Publisher != nil {
		if err := s.deps.Publisher.PublishDeviceState(ctx, device, action); err != nil {
			s.logger.Warn("publish device command failed", "device", device, "status", action, "error", err)
		}
	}
	if prev != action && s.deps.Sink != nil {
		if err := s.deps.Sink.WriteDeviceState(ctx, device, action, s.now()); err != nil {
			s.logger.Warn("mirror device state failed", "device", device, "error", err)
		}
	}
	return action, nil
}

// Tally returns the upstream coop tally, or the "-" placeholder when there
// is no upstream or it cannot be read.
func (s *Service) Tally(ctx context.Context) types.CoopTally {
	if s.deps.Tally == nil {
		return types.PlaceholderTally()
	}
	t, err := s.deps.Tally.FetchTally(ctx)
	if err != nil {
		s.logger.Warn("coop tally unavailable", "error", err)
		return types.PlaceholderTally()
	}
	return t
}

func (s *Service) AlarmActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.alarm
}

func (s *Service) Status() types.ServerStatus {
	return types.ServerStatus{Status: "online", IP: s.ip, DeviceCount: len(types.Devices)}
}

func (s *Service) received(result string) {
	if s.deps.Gauges != nil {
		s.deps.Gauges.TelemetryReceived(result)
	}
}

// merge copies the readings present in src over dst.
func merge(dst *types.Telemetry, src types.Telemetry) {
	dst.Timestamp = src.Timestamp
	if src.Source != "" {
		dst.Source = src.Source
	}
	for _, p := range []struct {
		d **float64
		s *float64
	}{
		{&dst.Temperature, src.Temperature},
		{&dst.Humidity, src.Humidity},
		{&dst.Pressure, src.Pressure},
		{&dst.Altitude, src.Altitude},
		{&dst.LDR, src.LDR},
	} {
		if p.s != nil {
			v := *p.s
			*p.d = &v
		}
	}
}

func round1(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := math.Round(*v*10) / 10
	return &r
}

// localIP reports the first non-loopback IPv4 address of this host.
func localIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok && !ipn.IP.IsLoopback() && ipn.IP.To4() != nil {
			return ipn.IP.String()
		}
	}
	return ""
}
