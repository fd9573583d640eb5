// Package observability carries tracing setup and the in-process metrics
// served on /metrics.
package observability

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/yungbote/studycards/internal/platform/logger"
)

// Metrics methods are nil-safe so callers can hold a nil *Metrics when
// metrics are disabled.
type Metrics struct {
	apiRequests   *CounterVec
	apiLatency    *HistogramVec
	apiInflight   *Gauge
	genRequests   *CounterVec
	genLatency    *HistogramVec
	cacheLookups  *CounterVec
	historyEvicts *CounterVec
	sseClients    *Gauge
	redisUp       *Gauge
}

func NewMetrics() *Metrics {
	return &Metrics{
		apiRequests: NewCounterVec("studycards_api_requests_total", "HTTP requests by method, route and status.", []string{"method", "route", "status"}),
		apiLatency:  NewHistogramVec("studycards_api_request_duration_seconds", "HTTP request latency.", []string{"method", "route"}, nil),
		apiInflight: NewGauge("studycards_api_inflight_requests", "HTTP requests currently being served."),
		genRequests: NewCounterVec("studycards_generation_requests_total", "Generation calls by action and outcome.", []string{"action", "outcome"}),
		genLatency: NewHistogramVec("studycards_generation_duration_seconds", "Generation call latency including the retry.", []string{"action"},
			[]float64{0.5, 1, 2, 5, 10, 20, 30, 61}),
		cacheLookups:  NewCounterVec("studycards_cache_lookups_total", "Session cache lookups by result.", []string{"result"}),
		historyEvicts: NewCounterVec("studycards_history_events_total", "History change events by type.", []string{"type"}),
		sseClients:    NewGauge("studycards_sse_clients", "Connected SSE clients."),
		redisUp:       NewGauge("studycards_redis_up", "1 when the last redis ping succeeded."),
	}
}

func (m *Metrics) ObserveAPI(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.Inc(method, route, strconv.Itoa(status))
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) APIInflightInc() {
	if m != nil {
		m.apiInflight.Inc()
	}
}

func (m *Metrics) APIInflightDec() {
	if m != nil {
		m.apiInflight.Dec()
	}
}

// ObserveGeneration records one Generate call. outcome is "ok", "timeout",
// "network", "server", "parse" or "canceled".
func (m *Metrics) ObserveGeneration(action, outcome string, dur time.Duration) {
	if m == nil {
		return
	}
	m.genRequests.Inc(action, outcome)
	m.genLatency.Observe(dur.Seconds(), action)
}

// ObserveCache records a session cache lookup: "hit", "miss", "error" or "guest".
func (m *Metrics) ObserveCache(result string) {
	if m != nil {
		m.cacheLookups.Inc(result)
	}
}

func (m *Metrics) IncHistoryEvent(eventType string) {
	if m != nil {
		m.historyEvicts.Inc(eventType)
	}
}

func (m *Metrics) SSEClientConnected() {
	if m != nil {
		m.sseClients.Inc()
	}
}

func (m *Metrics) SSEClientDisconnected() {
	if m != nil {
		m.sseClients.Dec()
	}
}

type pinger interface {
	Ping(ctx context.Context) error
}

// StartRedisCollector pings rdb every interval until ctx is done.
func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb pinger, interval time.Duration) {
	if m == nil || rdb == nil {
		return
	}
	if interval <= 0 {
		interval = 15 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := rdb.Ping(ctx); err != nil {
					m.redisUp.Set(0)
					log.Warn("metrics: redis ping failed", "error", err)
					continue
				}
				m.redisUp.Set(1)
			}
		}
	}()
}

func (m *Metrics) WriteHTTP(w http.ResponseWriter, _ *http.Request) {
	if m == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_ = m.WritePrometheus(w)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.genRequests, m.genLatency,
		m.cacheLookups, m.historyEvicts,
		m.sseClients, m.redisUp,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}
