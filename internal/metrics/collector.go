package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/objectfs/swiftclient/pkg/errors"
	"github.com/objectfs/swiftclient/pkg/types"
)

// Collector turns exchange, retry and call notifications into Prometheus
// metrics. It implements types.Observer, types.RetryObserver and
// types.CallObserver.
type Collector struct {
	mu       sync.RWMutex
	config   *Config
	registry *prometheus.Registry

	// Prometheus metrics
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorCounter    *prometheus.CounterVec
	retryCounter    *prometheus.CounterVec
	backoffSeconds  prometheus.Counter
	callCounter     *prometheus.CounterVec
	callAttempts    *prometheus.HistogramVec
	callDuration    *prometheus.HistogramVec

	// Internal tracking
	operations map[string]*OperationMetrics
	lastReset  time.Time
}

// Config represents metrics configuration
type Config struct {
	Enabled   bool              `yaml:"enabled"`
	Labels    map[string]string `yaml:"labels"`
	Namespace string            `yaml:"namespace"`
	Subsystem string            `yaml:"subsystem"`
}

// OperationMetrics tracks metrics for a specific operation type
type OperationMetrics struct {
	Calls         int64         `json:"calls"`
	Attempts      int64         `json:"attempts"`
	Retries       int64         `json:"retries"`
	Errors        int64         `json:"errors"`
	TotalDuration time.Duration `json:"total_duration"`
	AvgDuration   time.Duration `json:"avg_duration"`
	LastCall      time.Time     `json:"last_call"`
}

// NewCollector creates a new metrics collector
func NewCollector(config *Config) (*Collector, error) {
	if config == nil {
		config = &Config{
			Enabled:   true,
			Namespace: "swiftclient",
			Labels:    make(map[string]string),
		}
	}

	if !config.Enabled {
		return &Collector{config: config}, nil
	}

	collector := &Collector{
		config:     config,
		registry:   prometheus.NewRegistry(),
		operations: make(map[string]*OperationMetrics),
		lastReset:  time.Now(),
	}

	collector.initMetrics()
	if err := collector.registerMetrics(); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	return collector, nil
}

// Registry returns the collector's registry, nil when disabled.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if !c.config.Enabled {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// ObserveExchange records one HTTP round trip.
func (c *Collector) ObserveExchange(ex types.Exchange) {
	if !c.config.Enabled {
		return
	}

	statusLabel := "error"
	if ex.Err == nil || ex.Status != 0 {
		statusLabel = strconv.Itoa(ex.Status)
	}
	c.requestCounter.With(prometheus.Labels{
		"operation": ex.Operation,
		"method":    ex.Method,
		"status":    statusLabel,
	}).Inc()
	c.requestDuration.With(prometheus.Labels{
		"operation": ex.Operation,
		"method":    ex.Method,
	}).Observe(ex.Duration.Seconds())

	if ex.Err != nil {
		c.errorCounter.With(prometheus.Labels{
			"operation": ex.Operation,
			"type":      classifyError(ex.Err),
		}).Inc()
	}
}

// ObserveRetry records a backoff before another attempt.
func (c *Collector) ObserveRetry(ev types.RetryEvent) {
	if !c.config.Enabled {
		return
	}

	c.retryCounter.With(prometheus.Labels{
		"operation": ev.Operation,
		"reason":    ev.Reason,
	}).Inc()
	c.backoffSeconds.Add(ev.Backoff.Seconds())

	c.mu.Lock()
	c.operation(ev.Operation).Retries++
	c.mu.Unlock()
}

// ObserveCall records the outcome of a whole call.
func (c *Collector) ObserveCall(ev types.CallEvent) {
	if !c.config.Enabled {
		return
	}

	c.mu.Lock()
	m := c.operation(ev.Operation)
	m.Calls++
	m.Attempts += int64(ev.Attempts)
	m.TotalDuration += ev.Duration
	m.AvgDuration = time.Duration(int64(m.TotalDuration) / m.Calls)
	m.LastCall = time.Now()
	if ev.Err != nil {
		m.Errors++
	}
	c.mu.Unlock()

	c.callCounter.With(prometheus.Labels{
		"operation": ev.Operation,
		"status":    map[bool]string{true: "success", false: "error"}[ev.Err == nil],
	}).Inc()
	c.callAttempts.With(prometheus.Labels{"operation": ev.Operation}).Observe(float64(ev.Attempts))
	c.callDuration.With(prometheus.Labels{"operation": ev.Operation}).Observe(ev.Duration.Seconds())
}

// GetMetrics returns current metrics
func (c *Collector) GetMetrics() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	operations := make(map[string]*OperationMetrics, len(c.operations))
	for k, v := range c.operations {
		copied := *v
		operations[k] = &copied
	}

	return map[string]interface{}{
		"operations": operations,
		"last_reset": c.lastReset,
		"uptime":     time.Since(c.lastReset),
	}
}

// ResetMetrics resets the internal per-operation tracking. Prometheus
// counters are cumulative and are not touched.
func (c *Collector) ResetMetrics() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.operations = make(map[string]*OperationMetrics)
	c.lastReset = time.Now()
}

// operation must be called with mu held.
func (c *Collector) operation(name string) *OperationMetrics {
	m, ok := c.operations[name]
	if !ok {
		m = &OperationMetrics{}
		c.operations[name] = m
	}
	return m
}

func (c *Collector) initMetrics() {
	constLabels := prometheus.Labels(c.config.Labels)

	c.requestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   c.config.Namespace,
			Subsystem:   c.config.Subsystem,
			Name:        "requests_total",
			Help:        "Total number of HTTP requests sent",
			ConstLabels: constLabels,
		},
		[]string{"operation", "method", "status"},
	)

	c.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   c.config.Namespace,
			Subsystem:   c.config.Subsystem,
			Name:        "request_duration_seconds",
			Help:        "Duration of HTTP requests in seconds",
			Buckets:     prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~32s
			ConstLabels: constLabels,
		},
		[]string{"operation", "method"},
	)

	c.errorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   c.config.Namespace,
			Subsystem:   c.config.Subsystem,
			Name:        "request_errors_total",
			Help:        "Total number of requests that got no response",
			ConstLabels: constLabels,
		},
		[]string{"operation", "type"},
	)

	c.retryCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   c.config.Namespace,
			Subsystem:   c.config.Subsystem,
			Name:        "retries_total",
			Help:        "Total number of retried attempts",
			ConstLabels: constLabels,
		},
		[]string{"operation", "reason"},
	)

	c.backoffSeconds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   c.config.Namespace,
			Subsystem:   c.config.Subsystem,
			Name:        "backoff_seconds_total",
			Help:        "Total time spent sleeping between attempts",
			ConstLabels: constLabels,
		},
	)

	c.callCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace:   c.config.Namespace,
			Subsystem:   c.config.Subsystem,
			Name:        "calls_total",
			Help:        "Total number of client calls",
			ConstLabels: constLabels,
		},
		[]string{"operation", "status"},
	)

	c.callAttempts = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   c.config.Namespace,
			Subsystem:   c.config.Subsystem,
			Name:        "call_attempts",
			Help:        "Attempts needed per client call",
			Buckets:     prometheus.LinearBuckets(1, 1, 10),
			ConstLabels: constLabels,
		},
		[]string{"operation"},
	)

	c.callDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace:   c.config.Namespace,
			Subsystem:   c.config.Subsystem,
			Name:        "call_duration_seconds",
			Help:        "Duration of client calls including backoff",
			Buckets:     prometheus.ExponentialBuckets(0.001, 2, 18),
			ConstLabels: constLabels,
		},
		[]string{"operation"},
	)
}

func (c *Collector) registerMetrics() error {
	metrics := []prometheus.Collector{
		c.requestCounter,
		c.requestDuration,
		c.errorCounter,
		c.retryCounter,
		c.backoffSeconds,
		c.callCounter,
		c.callAttempts,
		c.callDuration,
	}

	for _, metric := range metrics {
		if err := c.registry.Register(metric); err != nil {
			return err
		}
	}

	return nil
}

func classifyError(err error) string {
	e, ok := errors.As(err)
	if !ok {
		return "other"
	}
	switch e.Code {
	case errors.ErrCodeCertificateInvalid:
		return "certificate"
	case errors.ErrCodeTransport:
		return "transport"
	case errors.ErrCodeValidationFailed:
		return "validation"
	default:
		return "other"
	}
}
