package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	SQLiteDriver          string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration

	MQTTBroker        string
	MQTTPort          int
	MQTTClientID      string
	MQTTTopic         string
	MQTTCommandPrefix string

	// BackendURL is the base URL the dashboard polls. Defaults to this process.
	BackendURL string
	// KandangSourceURL is the upstream serving coop tallies; empty disables it.
	KandangSourceURL string

	DevicePollInterval  time.Duration
	HistoryPollInterval time.Duration
	ClockInterval       time.Duration

	InfluxURL    string
	InfluxToken  string
	InfluxOrg    string
	InfluxBucket string

	CORSAllowedOrigins []string

	Thresholds Thresholds
}

func LoadFromEnv() (Config, error) {
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	logLevelStr := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = "info"
	}
	level, err := parseLogLevel(logLevelStr)
	if err != nil {
		return Config{}, err
	}

	httpAddr := envOr("HTTP_ADDR", ":8080")

	maxOpenConns, err := intFromEnv("DB_MAX_OPEN_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	maxIdleConns, err := intFromEnv("DB_MAX_IDLE_CONNS", 1)
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := durationFromEnv("DB_CONN_MAX_LIFETIME", 0)
	if err != nil {
		return Config{}, err
	}

	mqttPort, err := intFromEnv("MQTT_PORT", 1883)
	if err != nil {
		return Config{}, err
	}
	if mqttPort <= 0 || mqttPort > 65535 {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %d (must be 1-65535)", mqttPort)
	}
	mqttClientID := envOr("MQTT_CLIENT_ID", "kandang-server-"+uuid.NewString()[:8])

	devicePoll, err := positiveDurationFromEnv("DEVICE_POLL_INTERVAL", 5*time.Second)
	if err != nil {
		return Config{}, err
	}
	historyPoll, err := positiveDurationFromEnv("HISTORY_POLL_INTERVAL", 60*time.Second)
	if err != nil {
		return Config{}, err
	}
	clockInterval, err := positiveDurationFromEnv("CLOCK_INTERVAL", time.Second)
	if err != nil {
		return Config{}, err
	}

	backendURL := strings.TrimRight(envOr("BACKEND_URL", defaultBackendURL(httpAddr)), "/")

	thresholds, err := LoadThresholds(strings.TrimSpace(os.Getenv("THRESHOLDS_FILE")))
	if err != nil {
		return Config{}, err
	}

	return Config{
		AppEnv:   appEnv,
		LogLevel: level,
		HTTPAddr: httpAddr,

		SQLiteDriver:          envOr("DB_DRIVER", "sqlite3"),
		SQLiteDSN:             strings.TrimSpace(os.Getenv("DB_DSN")),
		SQLitePath:            envOr("SQLITE_PATH", "../dev/sqlite/kandang.db"),
		SQLiteMaxOpenConns:    maxOpenConns,
		SQLiteMaxIdleConns:    maxIdleConns,
		SQLiteConnMaxLifetime: connMaxLifetime,

		MQTTBroker:        envOr("MQTT_BROKER", "localhost"),
		MQTTPort:          mqttPort,
		MQTTClientID:      mqttClientID,
		MQTTTopic:         envOr("MQTT_TOPIC", "kandang/telemetry"),
		MQTTCommandPrefix: strings.TrimRight(envOr("MQTT_COMMAND_PREFIX", "kandang"), "/"),

		BackendURL:       backendURL,
		KandangSourceURL: strings.TrimSpace(os.Getenv("KANDANG_SOURCE_URL")),

		DevicePollInterval:  devicePoll,
		HistoryPollInterval: historyPoll,
		ClockInterval:       clockInterval,

		InfluxURL:    strings.TrimSpace(os.Getenv("INFLUX_URL")),
		InfluxToken:  strings.TrimSpace(os.Getenv("INFLUX_TOKEN")),
		InfluxOrg:    strings.TrimSpace(os.Getenv("INFLUX_ORG")),
		InfluxBucket: envOr("INFLUX_BUCKET", "kandang"),

		CORSAllowedOrigins: splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),

		Thresholds: thresholds,
	}, nil
}

// defaultBackendURL points the dashboard at the API served by this process.
func defaultBackendURL(httpAddr string) string {
	if strings.HasPrefix(httpAddr, ":") {
		return "http://127.0.0.1" + httpAddr
	}
	return "http://" + httpAddr
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func intFromEnv(key string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return n, nil
}

func durationFromEnv(key string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return d, nil
}

func positiveDurationFromEnv(key string, def time.Duration) (time.Duration, error) {
	d, err := durationFromEnv(key, def)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be > 0", key, d)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
