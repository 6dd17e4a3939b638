package alerts

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/kappalabs/hedging-dealer/internal/config"
)

// AlertKind classifies a dealer alert for routing/formatting and for the
// SendAlert policy check.
type AlertKind string

const (
	KindTickFailure        AlertKind = "TICK_FAILURE"
	KindHalvingExhausted    AlertKind = "HALVING_EXHAUSTED"
	KindMoneySafetyGap      AlertKind = "MONEY_SAFETY_GAP"
)

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type SlackAttachment struct {
	Color  string       `json:"color"`
	Fields []SlackField `json:"fields"`
}

type SlackMessage struct {
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments,omitempty"`
}

// AlertRequest describes one dealer alert candidate.
type AlertRequest struct {
	Kind      AlertKind
	Address   string // transfer address, when applicable
	Detail    string // error message or free-form context
	Timestamp time.Time
}

type queuedAlert struct {
	req       AlertRequest
	attempts  int
	nextRetry time.Time
	hash      string
}

// SlackClient is a webhook alerter for tick failures, exhausted halving
// retries, and money-safety-gap events: a bounded queue, sha256 dedupe,
// sliding-window rate limit, and a retry-with-backoff worker goroutine.
type SlackClient struct {
	cfg         config.Alerting
	httpClient  *http.Client
	queue       chan queuedAlert
	dedupeCache map[string]time.Time
	rateLimiter []time.Time
	mu          sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	metrics     *AlertMetrics
}

type AlertMetrics struct {
	AlertsSentTotal    int64
	WebhookErrorsTotal int64
	AlertQueueDepth    int64
	RateLimitHitsTotal int64
	AlertQueueDropped  int64
}

func NewSlackClient(cfg config.Alerting) *SlackClient {
	ctx, cancel := context.WithCancel(context.Background())

	client := &SlackClient{
		cfg:         cfg,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		queue:       make(chan queuedAlert, 1000),
		dedupeCache: make(map[string]time.Time),
		ctx:         ctx,
		cancel:      cancel,
		metrics:     &AlertMetrics{},
	}

	go client.worker()
	go client.cleanup()

	return client
}

func (s *SlackClient) SendAlert(req AlertRequest) {
	if !s.cfg.Enabled {
		return
	}

	hash := s.generateHash(req)

	s.mu.Lock()
	if lastSent, exists := s.dedupeCache[hash]; exists {
		if time.Since(lastSent) < 60*time.Second {
			s.mu.Unlock()
			return
		}
	}
	s.dedupeCache[hash] = time.Now()
	s.mu.Unlock()

	if s.isRateLimited() {
		s.mu.Lock()
		s.metrics.RateLimitHitsTotal++
		s.mu.Unlock()
		return
	}

	alert := queuedAlert{req: req, attempts: 0, nextRetry: time.Now(), hash: hash}

	select {
	case s.queue <- alert:
		s.mu.Lock()
		s.metrics.AlertQueueDepth++
		s.mu.Unlock()
	default:
		s.mu.Lock()
		s.metrics.AlertQueueDropped++
		s.mu.Unlock()
	}
}

func (s *SlackClient) generateHash(req AlertRequest) string {
	data := fmt.Sprintf("%s:%s:%s", req.Kind, req.Address, req.Detail)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)[:16]
}

func (s *SlackClient) isRateLimited() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-time.Minute)

	filtered := make([]time.Time, 0, len(s.rateLimiter))
	for _, t := range s.rateLimiter {
		if t.After(cutoff) {
			filtered = append(filtered, t)
		}
	}
	s.rateLimiter = filtered

	if len(filtered) >= s.cfg.RateLimitPerMin {
		return true
	}

	s.rateLimiter = append(s.rateLimiter, now)
	return false
}

func (s *SlackClient) worker() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case alert := <-s.queue:
			s.mu.Lock()
			s.metrics.AlertQueueDepth--
			s.mu.Unlock()

			if time.Now().Before(alert.nextRetry) {
				go func() {
					time.Sleep(time.Until(alert.nextRetry))
					select {
					case s.queue <- alert:
						s.mu.Lock()
						s.metrics.AlertQueueDepth++
						s.mu.Unlock()
					case <-s.ctx.Done():
					default:
						s.mu.Lock()
						s.metrics.AlertQueueDropped++
						s.mu.Unlock()
					}
				}()
				continue
			}

			if s.sendWebhook(alert.req) {
				s.mu.Lock()
				s.metrics.AlertsSentTotal++
				s.mu.Unlock()
				continue
			}

			alert.attempts++
			if alert.attempts < 3 {
				backoff := time.Duration(math.Pow(2, float64(alert.attempts))) * time.Second
				jitter := time.Duration(rand.Float64() * float64(backoff) * 0.1)
				alert.nextRetry = time.Now().Add(backoff + jitter)

				select {
				case s.queue <- alert:
					s.mu.Lock()
					s.metrics.AlertQueueDepth++
					s.mu.Unlock()
				case <-s.ctx.Done():
				default:
					s.mu.Lock()
					s.metrics.AlertQueueDropped++
					s.mu.Unlock()
				}
			} else {
				s.mu.Lock()
				s.metrics.WebhookErrorsTotal++
				s.mu.Unlock()
			}
		}
	}
}

func (s *SlackClient) sendWebhook(req AlertRequest) bool {
	msg := s.formatMessage(req)

	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("failed to marshal alert message: %v", err)
		return false
	}

	if len(payload) > 4000 {
		payload = payload[:3900]
		payload = append(payload, []byte("...\"}")...)
	}

	resp, err := s.httpClient.Post(s.cfg.WebhookURL, "application/json", bytes.NewReader(payload))
	if err != nil {
		log.Printf("alert webhook error: %v", err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		log.Printf("alert webhook failed with status %d", resp.StatusCode)
		return false
	}

	return true
}

func (s *SlackClient) formatMessage(req AlertRequest) SlackMessage {
	emoji := "⚠️"
	color := "warning"
	if req.Kind == KindMoneySafetyGap {
		emoji = "🚨"
		color = "danger"
	}

	text := fmt.Sprintf("%s Dealer alert: %s", emoji, req.Kind)

	fields := []SlackField{
		{Title: "Kind", Value: string(req.Kind), Short: true},
		{Title: "Time", Value: req.Timestamp.Format("15:04:05 MST"), Short: true},
	}
	if req.Address != "" {
		fields = append(fields, SlackField{Title: "Address", Value: req.Address, Short: true})
	}
	if req.Detail != "" {
		detail := req.Detail
		if len(detail) > 300 {
			detail = detail[:300] + "..."
		}
		fields = append(fields, SlackField{Title: "Detail", Value: detail, Short: false})
	}

	return SlackMessage{
		Text:        text,
		Attachments: []SlackAttachment{{Color: color, Fields: fields}},
	}
}

func (s *SlackClient) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			cutoff := time.Now().Add(-5 * time.Minute)
			for hash, timestamp := range s.dedupeCache {
				if timestamp.Before(cutoff) {
					delete(s.dedupeCache, hash)
				}
			}
			s.mu.Unlock()
		}
	}
}

func (s *SlackClient) Close() {
	s.cancel()
}

func (s *SlackClient) GetMetrics() AlertMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.metrics
}
