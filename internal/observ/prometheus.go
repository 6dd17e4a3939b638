package observ

import (
	"net/http"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// promRegistry mirrors the in-memory registry into real Prometheus
// exposition format (client_golang), so operators get /metrics without
// losing the lightweight JSON dump at Handler(). Vectors are created
// lazily on first use, keyed by metric name; a vector's label names are
// the sorted label keys of that first use, so label sets must stay
// consistent per name, matching client_golang's own requirement.
type promRegistry struct {
	mu         sync.Mutex
	registry   *prometheus.Registry
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

var prom = &promRegistry{
	registry:   prometheus.NewRegistry(),
	counters:   map[string]*prometheus.CounterVec{},
	gauges:     map[string]*prometheus.GaugeVec{},
	histograms: map[string]*prometheus.HistogramVec{},
}

func labelKeys(labels map[string]string) []string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p *promRegistry) counterVec(name string, labels map[string]string) *prometheus.CounterVec {
	p.mu.Lock()
	defer p.mu.Unlock()
	cv, ok := p.counters[name]
	if !ok {
		cv = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: name}, labelKeys(labels))
		p.registry.MustRegister(cv)
		p.counters[name] = cv
	}
	return cv
}

func (p *promRegistry) gaugeVec(name string, labels map[string]string) *prometheus.GaugeVec {
	p.mu.Lock()
	defer p.mu.Unlock()
	gv, ok := p.gauges[name]
	if !ok {
		gv = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: name}, labelKeys(labels))
		p.registry.MustRegister(gv)
		p.gauges[name] = gv
	}
	return gv
}

func (p *promRegistry) histogramVec(name string, labels map[string]string) *prometheus.HistogramVec {
	p.mu.Lock()
	defer p.mu.Unlock()
	hv, ok := p.histograms[name]
	if !ok {
		hv = prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: name}, labelKeys(labels))
		p.registry.MustRegister(hv)
		p.histograms[name] = hv
	}
	return hv
}

// PrometheusHandler serves the real Prometheus exposition format at /metrics.
func PrometheusHandler() http.Handler {
	return promhttp.HandlerFor(prom.registry, promhttp.HandlerOpts{})
}
