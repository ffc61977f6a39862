package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"kandang-monitor/internal/types"
)

type Metrics struct {
	temperature   prometheus.Gauge
	humidity      prometheus.Gauge
	pressure      prometheus.Gauge
	altitude      prometheus.Gauge
	lightLevel    prometheus.Gauge
	deviceState   *prometheus.GaugeVec
	alarmActive   prometheus.Gauge
	telemetry     *prometheus.CounterVec
	fetchFailures *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kandang_temperature_celsius",
			Help: "Latest coop temperature in degree celsius.",
		}),
		humidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kandang_humidity_percent",
			Help: "Latest coop relative humidity in percent.",
		}),
		pressure: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kandang_pressure_hpa",
			Help: "Latest barometric pressure in hPa.",
		}),
		altitude: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kandang_altitude_meters",
			Help: "Altitude derived from pressure.",
		}),
		lightLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kandang_light_level",
			Help: "Latest LDR reading.",
		}),
		deviceState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kandang_device_on",
			Help: "Device state, 1 when on.",
		}, []string{"device"}),
		alarmActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "kandang_alarm_active",
			Help: "1 while the over-temperature alarm is sounding.",
		}),
		telemetry: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kandang_telemetry_messages_total",
			Help: "Telemetry messages received, by result.",
		}, []string{"result"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "kandang_dashboard_fetch_failures_total",
			Help: "Failed dashboard fetches, by endpoint.",
		}, []string{"endpoint"}),
	}
	reg.MustRegister(
		m.temperature,
		m.humidity,
		m.pressure,
		m.altitude,
		m.lightLevel,
		m.deviceState,
		m.alarmActive,
		m.telemetry,
		m.fetchFailures,
	)
	return m
}

// ObserveTelemetry updates the sensor gauges for the fields present in t.
func (m *Metrics) ObserveTelemetry(t types.Telemetry) {
	setIf(m.temperature, t.Temperature)
	setIf(m.humidity, t.Humidity)
	setIf(m.pressure, t.Pressure)
	setIf(m.altitude, t.Altitude)
	setIf(m.lightLevel, t.LDR)
}

func (m *Metrics) TelemetryReceived(result string) {
	m.telemetry.WithLabelValues(result).Inc()
}

func (m *Metrics) SetDeviceState(device, status string) {
	v := 0.0
	if status == types.ActionOn {
		v = 1
	}
	m.deviceState.WithLabelValues(device).Set(v)
}

func (m *Metrics) SetAlarm(active bool) {
	if active {
		m.alarmActive.Set(1)
		return
	}
	m.alarmActive.Set(0)
}

func (m *Metrics) FetchFailed(endpoint string) {
	m.fetchFailures.WithLabelValues(endpoint).Inc()
}

func setIf(g prometheus.Gauge, v *float64) {
	if v != nil {
		g.Set(*v)
	}
}
