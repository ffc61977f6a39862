package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"kandang-monitor/internal/apiclient"
	"kandang-monitor/internal/config"
	"kandang-monitor/internal/db"
	"kandang-monitor/internal/httpapi"
	"kandang-monitor/internal/influx"
	"kandang-monitor/internal/metrics"
	"kandang-monitor/internal/migrate"
	"kandang-monitor/internal/modules/coop"
	cooprepo "kandang-monitor/internal/modules/coop/repository"
	coopservice "kandang-monitor/internal/modules/coop/service"
	"kandang-monitor/internal/modules/dashboard"
	"kandang-monitor/internal/modules/dashboard/board"
	"kandang-monitor/internal/modules/dashboard/poller"
	"kandang-monitor/internal/modules/dashboard/views"
	"kandang-monitor/internal/mqtt"
	"kandang-monitor/internal/types"
)

func Run(ctx context.Context, cfg config.Config) error {
	logger := slog.Default()
	logger.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"backendURL", cfg.BackendURL,
		"sqliteDriver", cfg.SQLiteDriver,
		"sqlitePath", cfg.SQLitePath,
		"sqliteMaxOpenConns", cfg.SQLiteMaxOpenConns,
		"sqliteMaxIdleConns", cfg.SQLiteMaxIdleConns,
		"sqliteConnMaxLifetime", cfg.SQLiteConnMaxLifetime,
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
		"kandangSource", cfg.KandangSourceURL != "",
		"influx", cfg.InfluxURL != "",
		"thresholds", cfg.Thresholds,
	)

	dbConn, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(dbConn); err != nil {
			logger.Error("db close", "error", err)
		}
	}()
	if err := migrate.Run(ctx, dbConn); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if err := views.LoadTemplates(); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	mqttClient := mqtt.NewClient(cfg, logger)
	deps := coopservice.Deps{Publisher: mqttClient, Gauges: m}
	if cfg.KandangSourceURL != "" {
		deps.Tally = coopservice.NewUpstreamTally(cfg.KandangSourceURL, 10*time.Second)
	}
	if cfg.InfluxURL != "" {
		sink := influx.NewSink(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket)
		defer sink.Close()
		if err := sink.Ping(ctx); err != nil {
			logger.Warn("influx unavailable, mirroring anyway", "error", err)
		}
		deps.Sink = sink
	}

	svc := coopservice.NewService(cooprepo.NewRepository(dbConn), cfg.Thresholds, deps, logger)
	if err := svc.Load(ctx); err != nil {
		return err
	}

	mux := httpapi.NewMux(dbConn, reg)
	// Handler before Connect: the broker may deliver right after CONNACK.
	coop.RegisterFeature(mux, svc, mqttClient)

	intervals := poller.Intervals{
		Devices: cfg.DevicePollInterval,
		History: cfg.HistoryPollInterval,
		Clock:   cfg.ClockInterval,
	}
	if err := intervals.Validate(); err != nil {
		return err
	}
	b := board.New(types.Devices)
	p := poller.New(apiclient.New(cfg.BackendURL), b, types.Devices, m, intervals, logger)
	dashboard.RegisterFeature(mux, b, p, intervals)

	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.HTTPAddr, err)
	}
	srv := httpapi.NewServer(cfg, mux, logger)

	var bg sync.WaitGroup
	bg.Add(1)
	go func() {
		defer bg.Done()
		connectMQTT(ctx, mqttClient, logger)
	}()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	if err := p.Start(pollCtx); err != nil {
		mqttClient.Disconnect()
		bg.Wait()
		_ = srv.Close()
		return err
	}

	select {
	case <-ctx.Done():
	case err := <-errCh:
		stopPolling()
		p.Wait()
		mqttClient.Disconnect()
		bg.Wait()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stopPolling()
	p.Wait()

	logger.Info("mqtt disconnecting")
	mqttClient.Disconnect()
	bg.Wait()

	logger.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}

// connectMQTT keeps trying the broker until it accepts or ctx is done. The
// server runs without telemetry in the meantime.
func connectMQTT(ctx context.Context, c *mqtt.Client, logger *slog.Logger) {
	const (
		attemptTimeout = 5 * time.Second
		retryDelay     = 5 * time.Second
	)
	for attempt := 1; ; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		err := c.Connect(attemptCtx)
		cancel()
		if err == nil {
			return
		}
		if ctx.Err() != nil || errors.Is(err, mqtt.ErrStopped) {
			return
		}
		logger.Warn("mqtt connection failed (continuing without mqtt)", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(retryDelay):
		}
	}
}
