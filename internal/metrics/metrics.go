// Package metrics defines the Prometheus instruments of the control loops.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	CyclesH           = "The total number of control cycles, by zone and outcome"
	CyclesN           = "fuzzyhvac_cycles_total"
	InferenceH        = "Time spent in guarded inference per cycle, in seconds"
	InferenceN        = "fuzzyhvac_inference_seconds"
	OutputActivationH = "Aggregated activation of each output set in the last accepted cycle"
	OutputActivationN = "fuzzyhvac_output_activation"
	RuleFiringsH      = "The total number of times each rule fired with positive strength"
	RuleFiringsN      = "fuzzyhvac_rule_firings_total"
	SignalH           = "The last control signal sent to the actuator"
	SignalN           = "fuzzyhvac_control_signal"
	TemperatureErrorH = "The last accepted temperature error (setpoint minus indoor), in degrees Celsius"
	TemperatureErrorN = "fuzzyhvac_temperature_error"
)

// Metrics groups the per-zone instruments.
type Metrics struct {
	cycles     *prometheus.CounterVec
	inference  *prometheus.HistogramVec
	activation *prometheus.GaugeVec
	firings    *prometheus.CounterVec
	signal     *prometheus.GaugeVec
	tempErr    *prometheus.GaugeVec
}

// New registers the instruments with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		cycles: f.NewCounterVec(prometheus.CounterOpts{
			Name: CyclesN,
			Help: CyclesH,
		}, []string{"zone", "outcome"}),
		inference: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    InferenceN,
			Help:    InferenceH,
			Buckets: prometheus.ExponentialBuckets(5e-6, 4, 8),
		}, []string{"zone"}),
		activation: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: OutputActivationN,
			Help: OutputActivationH,
		}, []string{"zone", "set"}),
		firings: f.NewCounterVec(prometheus.CounterOpts{
			Name: RuleFiringsN,
			Help: RuleFiringsH,
		}, []string{"zone", "rule"}),
		signal: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: SignalN,
			Help: SignalH,
		}, []string{"zone"}),
		tempErr: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: TemperatureErrorN,
			Help: TemperatureErrorH,
		}, []string{"zone"}),
	}
}

// Cycle counts one finished cycle.
func (m *Metrics) Cycle(zone, outcome string) {
	m.cycles.WithLabelValues(zone, outcome).Inc()
}

// Inference records how long one guarded inference took.
func (m *Metrics) Inference(zone string, d time.Duration) {
	m.inference.WithLabelValues(zone).Observe(d.Seconds())
}

// Decision records an accepted cycle. sets lists every output set so that
// sets left inactive drop back to zero.
func (m *Metrics) Decision(zone string, temperatureError, signal float64, sets []string, activation map[string]float64, fired []string) {
	m.tempErr.WithLabelValues(zone).Set(temperatureError)
	m.signal.WithLabelValues(zone).Set(signal)
	for _, s := range sets {
		m.activation.WithLabelValues(zone, s).Set(activation[s])
	}
	for _, r := range fired {
		m.firings.WithLabelValues(zone, r).Inc()
	}
}

// Signal records the signal actually sent, e.g. the zero of an emergency stop.
func (m *Metrics) Signal(zone string, signal float64) {
	m.signal.WithLabelValues(zone).Set(signal)
}
