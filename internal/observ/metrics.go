package observ

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

type registry struct {
	mu       sync.Mutex
	counters map[string]map[string]int64 // name -> labelsKey -> count
	gauges   map[string]map[string]float64 // name -> labelsKey -> value
	hist     map[string]map[string][]float64
}

var reg = &registry{
	counters: map[string]map[string]int64{},
	gauges:   map[string]map[string]float64{},
	hist:     map[string]map[string][]float64{},
}

// canonicalize label map so key order is stable
func canonLabels(lbl map[string]string) string {
	if len(lbl) == 0 {
		return ""
	}
	keys := make([]string, 0, len(lbl))
	for k := range lbl {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(lbl[k])
	}
	return b.String()
}

func IncCounter(name string, labels map[string]string) {
	IncCounterBy(name, labels, 1.0)
}

func IncCounterBy(name string, labels map[string]string, value float64) {
	reg.mu.Lock()
	m, ok := reg.counters[name]
	if !ok {
		m = map[string]int64{}
		reg.counters[name] = m
	}
	k := canonLabels(labels)
	m[k] += int64(value)
	reg.mu.Unlock()

	prom.counterVec(name, labels).With(labels).Add(value)
}

func SetGauge(name string, value float64, labels map[string]string) {
	reg.mu.Lock()
	m, ok := reg.gauges[name]
	if !ok {
		m = map[string]float64{}
		reg.gauges[name] = m
	}
	k := canonLabels(labels)
	m[k] = value
	reg.mu.Unlock()

	prom.gaugeVec(name, labels).With(labels).Set(value)
}

func Observe(name string, value float64, labels map[string]string) {
	reg.mu.Lock()
	m, ok := reg.hist[name]
	if !ok {
		m = map[string][]float64{}
		reg.hist[name] = m
	}
	k := canonLabels(labels)
	m[k] = append(m[k], value)
	reg.mu.Unlock()

	prom.histogramVec(name, labels).With(labels).Observe(value)
}

// RecordHistogram records a histogram observation
func RecordHistogram(name string, value float64, labels map[string]string) {
	Observe(name, value, labels)
}

// RecordGauge records a gauge value
func RecordGauge(name string, value float64, labels map[string]string) {
	SetGauge(name, value, labels)
}

// RecordDuration records a duration metric
func RecordDuration(name string, duration time.Duration, labels map[string]string) {
	Observe(name+"_ms", float64(duration.Milliseconds()), labels)
}

// Basic text/JSON dump for quick checks (not Prometheus format on purpose)
func Handler() http.Handler {
	type dump struct {
		Counters map[string]map[string]int64     `json:"counters"`
		Gauges   map[string]map[string]float64   `json:"gauges"`
		Hist     map[string]map[string][]float64 `json:"histograms"`
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reg.mu.Lock()
		defer reg.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(dump{Counters: reg.counters, Gauges: reg.gauges, Hist: reg.hist})
	})
}

// HealthStatus represents overall system health status
type HealthStatus struct {
	Status    string                 `json:"status"`    // "healthy", "degraded", "failed"
	Timestamp string                 `json:"timestamp"` // ISO 8601
	Uptime    string                 `json:"uptime"`    // Duration since start
	Version   string                 `json:"version"`   // Build version
	Metrics   HealthMetrics          `json:"metrics"`   // Key metrics
	Details   map[string]interface{} `json:"details"`   // Additional health details
}

// HealthMetrics holds key metrics for dealer health reporting.
type HealthMetrics struct {
	TickLatencyP95Ms  int64   `json:"tick_latency_p95_ms"`
	TickSuccessRate   float64 `json:"tick_success_rate"`
	DepositRetries    int64   `json:"deposit_retries_total"`
	LedgerErrors      int64   `json:"ledger_errors_total"`
	PendingTransfers  int64   `json:"pending_transfers"`
	MoneySafetyGaps   int64   `json:"money_safety_gaps_total"` // ledger insert failed after a successful on-chain pay
}

var (
	startTime = time.Now()
	version   = "dev" // Set via build flags
)

// SetVersion sets the version string for health reports
func SetVersion(v string) {
	version = v
}

// HealthHandler returns a comprehensive health endpoint for operator monitoring
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reg.mu.Lock()
		defer reg.mu.Unlock()
		
		health := HealthStatus{
			Status:    calculateOverallHealthStatus(),
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Uptime:    time.Since(startTime).String(),
			Version:   version,
			Metrics:   calculateHealthMetrics(),
			Details:   gatherHealthDetails(),
		}
		
		// Set appropriate HTTP status code
		statusCode := http.StatusOK
		switch health.Status {
		case "degraded":
			statusCode = http.StatusPartialContent // 206
		case "failed":
			statusCode = http.StatusServiceUnavailable // 503
		}
		
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		_ = json.NewEncoder(w).Encode(health)
	})
}

// calculateOverallHealthStatus determines the overall health status
func calculateOverallHealthStatus() string {
	// Check for critical failures
	if hasFailedComponents() {
		return "failed"
	}
	
	// Check for degraded performance
	if hasDegradedComponents() {
		return "degraded"
	}
	
	return "healthy"
}

// calculateHealthMetrics computes key metrics from raw telemetry
func calculateHealthMetrics() HealthMetrics {
	metrics := HealthMetrics{}

	if tickLatency, exists := reg.hist["dealer_tick_latency_ms"]; exists {
		for _, samples := range tickLatency {
			if len(samples) > 0 {
				metrics.TickLatencyP95Ms = int64(p95(samples))
				break
			}
		}
	}

	var ticksTotal, ticksOK int64
	if ticks, exists := reg.counters["dealer_ticks_total"]; exists {
		for _, count := range ticks {
			ticksTotal += count
		}
	}
	if ok, exists := reg.counters["dealer_ticks_ok_total"]; exists {
		for _, count := range ok {
			ticksOK += count
		}
	}
	if ticksTotal > 0 {
		metrics.TickSuccessRate = float64(ticksOK) / float64(ticksTotal)
	}

	if retries, exists := reg.counters["dealer_deposit_retry_total"]; exists {
		for _, count := range retries {
			metrics.DepositRetries += count
		}
	}
	if errs, exists := reg.counters["dealer_ledger_errors_total"]; exists {
		for _, count := range errs {
			metrics.LedgerErrors += count
		}
	}
	if pending, exists := reg.gauges["dealer_pending_transfers"]; exists {
		for _, v := range pending {
			metrics.PendingTransfers = int64(v)
			break
		}
	}
	if gaps, exists := reg.counters["dealer_money_safety_gap_total"]; exists {
		for _, count := range gaps {
			metrics.MoneySafetyGaps += count
		}
	}

	return metrics
}

func p95(samples []float64) float64 {
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)
	idx := int(float64(len(sorted)) * 0.95)
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// hasFailedComponents reports whether the dealer has logged a money-safety
// gap (spec §9) or an excessive tick error rate.
func hasFailedComponents() bool {
	if gaps, exists := reg.counters["dealer_money_safety_gap_total"]; exists {
		for _, count := range gaps {
			if count > 0 {
				return true
			}
		}
	}

	var ticksTotal, ticksOK int64
	if ticks, exists := reg.counters["dealer_ticks_total"]; exists {
		for _, count := range ticks {
			ticksTotal += count
		}
	}
	if ok, exists := reg.counters["dealer_ticks_ok_total"]; exists {
		for _, count := range ok {
			ticksOK += count
		}
	}
	if ticksTotal > 10 && float64(ticksTotal-ticksOK)/float64(ticksTotal) > 0.5 {
		return true
	}
	return false
}

// hasDegradedComponents reports elevated tick latency or deposit retries.
func hasDegradedComponents() bool {
	if tickLatency, exists := reg.hist["dealer_tick_latency_ms"]; exists {
		for _, samples := range tickLatency {
			if len(samples) > 10 && p95(samples) > 5000 {
				return true
			}
		}
	}
	if retries, exists := reg.counters["dealer_deposit_retry_total"]; exists {
		for _, count := range retries {
			if count > 0 {
				return true
			}
		}
	}
	return false
}

// gatherHealthDetails collects additional health information.
func gatherHealthDetails() map[string]interface{} {
	details := make(map[string]interface{})

	ledgerErrors := map[string]int64{}
	if errs, exists := reg.counters["dealer_ledger_errors_total"]; exists {
		for k, count := range errs {
			ledgerErrors[k] = count
		}
	}
	details["ledger_errors"] = ledgerErrors

	return details
}

// Simple health handler (legacy)
func Health() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
}
