package main

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/lmittmann/tint"

	"kandang-monitor/internal/apiclient"
	"kandang-monitor/internal/modules/dashboard/board"
	"kandang-monitor/internal/modules/dashboard/poller"
	"kandang-monitor/internal/types"
)

// failureLog records which endpoints failed during a refresh.
type failureLog struct {
	mu        sync.Mutex
	endpoints []string
}

func (f *failureLog) FetchFailed(endpoint string) {
	f.mu.Lock()
	f.endpoints = append(f.endpoints, endpoint)
	f.mu.Unlock()
}

func (f *failureLog) drain() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.endpoints
	f.endpoints = nil
	return out
}

// session is one board fed by one poller against the configured backend.
type session struct {
	board    *board.Board
	poller   *poller.Poller
	failures *failureLog
}

// newLogger is silent unless verbose; failures are summarized after each
// refresh instead.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
	}))
}

func newSession(backend poller.Backend, intervals poller.Intervals, logger *slog.Logger) *session {
	s := &session{
		board:    board.New(types.Devices),
		failures: &failureLog{},
	}
	s.poller = poller.New(backend, s.board, types.Devices, s.failures, intervals, logger)
	return s
}

func newRemoteSession(opts *rootOptions, stderr io.Writer, intervals poller.Intervals) *session {
	client := apiclient.New(opts.backend, apiclient.WithTimeout(opts.timeout))
	return newSession(client, intervals, newLogger(stderr, opts.verbose))
}

// refresh fetches every board field once and waits for the results.
func (s *session) refresh(ctx context.Context) []string {
	s.poller.RefreshAll(ctx)
	s.poller.RefreshChart(ctx)
	s.poller.RefreshClock()
	s.poller.Wait()
	return s.failures.drain()
}
