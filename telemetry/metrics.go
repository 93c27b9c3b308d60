// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	CommandsHandled *prometheus.CounterVec
	CommandFailures prometheus.Counter
	StoreReads      prometheus.Counter
	StoreWrites     prometheus.Counter
	MessagesSent    prometheus.Counter

	// Histograms (seconds)
	CommandDuration prometheus.Observer

	// Gauges
	QuoteCountGauge *prometheus.GaugeVec
	ChatConnected   prometheus.Gauge // 1=connected,0=disconnected
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		CommandsHandled = promauto.NewCounterVec(prometheus.CounterOpts{Name: "quote_commands_handled_total", Help: "Number of quote command invocations handled, by routed action"}, []string{"action"})
		CommandFailures = promauto.NewCounter(prometheus.CounterOpts{Name: "quote_command_failures_total", Help: "Number of quote commands that failed against the store"})
		StoreReads = promauto.NewCounter(prometheus.CounterOpts{Name: "quote_store_reads_total", Help: "Number of quote document reads"})
		StoreWrites = promauto.NewCounter(prometheus.CounterOpts{Name: "quote_store_writes_total", Help: "Number of quote document writes"})
		MessagesSent = promauto.NewCounter(prometheus.CounterOpts{Name: "quote_chat_messages_sent_total", Help: "Number of chat messages sent by the bot"})
		CommandDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "quote_command_duration_seconds", Help: "Command handling duration seconds", Buckets: prometheus.DefBuckets})
		QuoteCountGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{Name: "quote_store_records", Help: "Current number of records per store location"}, []string{"location"})
		ChatConnected = promauto.NewGauge(prometheus.GaugeOpts{Name: "quote_chat_connected", Help: "Chat connection up=1 down=0"})
	})
}

// SetQuoteCount records the current record count for a store location.
func SetQuoteCount(location string, n int) {
	if QuoteCountGauge != nil {
		QuoteCountGauge.WithLabelValues(location).Set(float64(n))
	}
}

// SetChatConnected sets the chat connection gauge.
func SetChatConnected(up bool) {
	if ChatConnected != nil {
		if up {
			ChatConnected.Set(1)
		} else {
			ChatConnected.Set(0)
		}
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------
type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding correlation id (if absent) and the id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	v := ctx.Value(corrKey)
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
