package metrics

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus is a generic Sink backed by dynamically-labeled vectors, kept
// deliberately small — it exists to give the core something real to call,
// not to be a full metrics system (spec.md §1 scopes telemetry out beyond
// its interface).
type Prometheus struct {
	counters   sync.Map // name -> *prometheus.CounterVec
	histograms sync.Map // name -> *prometheus.HistogramVec
	gauges     sync.Map // name -> *prometheus.GaugeVec
}

func NewPrometheus() *Prometheus { return &Prometheus{} }

func (p *Prometheus) IncCounter(name string, labels map[string]string) {
	keys, vals := splitLabels(labels)
	v := p.loadOrRegisterCounter(name, keys)
	v.WithLabelValues(vals...).Inc()
}

func (p *Prometheus) ObserveLatency(name string, labels map[string]string, seconds float64) {
	keys, vals := splitLabels(labels)
	v := p.loadOrRegisterHistogram(name, keys)
	v.WithLabelValues(vals...).Observe(seconds)
}

func (p *Prometheus) SetGauge(name string, labels map[string]string, value float64) {
	keys, vals := splitLabels(labels)
	v := p.loadOrRegisterGauge(name, keys)
	v.WithLabelValues(vals...).Set(value)
}

func (p *Prometheus) loadOrRegisterCounter(name string, keys []string) *prometheus.CounterVec {
	if v, ok := p.counters.Load(name); ok {
		return v.(*prometheus.CounterVec)
	}
	v := promauto.NewCounterVec(prometheus.CounterOpts{Namespace: "tradecapture", Name: name}, keys)
	actual, _ := p.counters.LoadOrStore(name, v)
	return actual.(*prometheus.CounterVec)
}

func (p *Prometheus) loadOrRegisterHistogram(name string, keys []string) *prometheus.HistogramVec {
	if v, ok := p.histograms.Load(name); ok {
		return v.(*prometheus.HistogramVec)
	}
	v := promauto.NewHistogramVec(prometheus.HistogramOpts{Namespace: "tradecapture", Name: name}, keys)
	actual, _ := p.histograms.LoadOrStore(name, v)
	return actual.(*prometheus.HistogramVec)
}

func (p *Prometheus) loadOrRegisterGauge(name string, keys []string) *prometheus.GaugeVec {
	if v, ok := p.gauges.Load(name); ok {
		return v.(*prometheus.GaugeVec)
	}
	v := promauto.NewGaugeVec(prometheus.GaugeOpts{Namespace: "tradecapture", Name: name}, keys)
	actual, _ := p.gauges.LoadOrStore(name, v)
	return actual.(*prometheus.GaugeVec)
}

// splitLabels returns label names sorted lexically, with values in the
// matching order. Sorting matters: WithLabelValues binds by position, and
// the label-name set for a given metric name must be registered in the
// same order on every call.
func splitLabels(labels map[string]string) (keys, vals []string) {
	keys = make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals = make([]string, 0, len(labels))
	for _, k := range keys {
		vals = append(vals, labels[k])
	}
	return keys, vals
}
