// Package httpapi is the dealer's outward-facing query surface — a thin
// pass-through kept outside core scope but still part of a complete repo.
// Routed with gorilla/mux.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/kappalabs/hedging-dealer/internal/dealer"
	"github.com/kappalabs/hedging-dealer/internal/observ"
)

// NewRouter wires GET /health, /healthz, /price, /metrics, and /status
// against d.
func NewRouter(d *dealer.Dealer) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", observ.Health().ServeHTTP).Methods(http.MethodGet)
	r.HandleFunc("/healthz", observ.HealthHandler().ServeHTTP).Methods(http.MethodGet)
	r.Handle("/metrics", observ.PrometheusHandler()).Methods(http.MethodGet)
	r.HandleFunc("/status", statusHandler(d)).Methods(http.MethodGet)
	r.HandleFunc("/price", priceHandler(d)).Methods(http.MethodGet)
	return r
}

func priceHandler(d *dealer.Dealer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		price := d.LastSpotPrice()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			BtcPriceInUsd float64 `json:"btc_price_in_usd"`
		}{price})
	}
}

func statusHandler(d *dealer.Dealer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		outcome, err := d.LastStatus()

		resp := struct {
			Outcome *dealer.TickOutcome `json:"last_tick_outcome,omitempty"`
			Error   string              `json:"last_tick_error,omitempty"`
		}{Outcome: outcome}
		if err != nil {
			resp.Error = err.Error()
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}
