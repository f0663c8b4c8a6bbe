package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const defaultTracerName = "github.com/obsedit/obsedit"

// Config configures a Recorder.
type Config struct {
	// Namespace is the metrics namespace (default: "obsedit").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry receives the metrics and backs Handler.
	// Default: a new registry per Recorder.
	Registry *prometheus.Registry

	// TracerProvider creates the tracer (default: otel.GetTracerProvider()).
	TracerProvider trace.TracerProvider

	// TracerName is the instrumentation name of the tracer.
	TracerName string
}

// Option configures a Recorder.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *Config) {
		c.TracerProvider = tp
	}
}

// WithTracerName sets the tracer name.
func WithTracerName(name string) Option {
	return func(c *Config) {
		c.TracerName = name
	}
}

func defaultConfig() Config {
	return Config{
		Namespace:  "obsedit",
		Buckets:    prometheus.DefBuckets,
		TracerName: defaultTracerName,
	}
}

type metrics struct {
	transactions   *prometheus.CounterVec
	txDuration     prometheus.Histogram
	txUpdates      prometheus.Histogram
	handlerCalls   *prometheus.CounterVec
	readerRuns     *prometheus.CounterVec
	readerDuration prometheus.Histogram
	liveAutoruns   prometheus.Gauge
	operations     *prometheus.CounterVec
}

func initMetrics(config Config) *metrics {
	factory := promauto.With(config.Registry)

	return &metrics{
		transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transactions_total",
			Help:        "Total number of committed observable transactions",
			ConstLabels: config.ConstLabels,
		}, []string{"name"}),

		txDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transaction_duration_seconds",
			Help:        "Time from opening to committing a transaction in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		txUpdates: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transaction_updates",
			Help:        "Observer updates recorded per transaction",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{0, 1, 2, 4, 8, 16, 32, 64},
		}),

		handlerCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "handler_calls_total",
			Help:        "Total number of change handler calls",
			ConstLabels: config.ConstLabels,
		}, []string{"observable", "rerun"}),

		readerRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reader_runs_total",
			Help:        "Total number of autorun reader runs",
			ConstLabels: config.ConstLabels,
		}, []string{"autorun"}),

		readerDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "reader_duration_seconds",
			Help:        "Autorun reader run duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		liveAutoruns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "live_autoruns",
			Help:        "Number of registered, undisposed autoruns",
			ConstLabels: config.ConstLabels,
		}),

		operations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "operations_total",
			Help:        "Total number of editor operations",
			ConstLabels: config.ConstLabels,
		}, []string{"command", "status"}),
	}
}

// Recorder collects dispatcher metrics and spans. It is safe for concurrent
// use.
type Recorder struct {
	registry *prometheus.Registry
	m        *metrics
	tracer   trace.Tracer

	mu    sync.Mutex
	opCtx context.Context
	spans map[uint64]trace.Span
}

// New creates a Recorder.
func New(opts ...Option) *Recorder {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}
	if config.TracerProvider == nil {
		config.TracerProvider = otel.GetTracerProvider()
	}

	return &Recorder{
		registry: config.Registry,
		m:        initMetrics(config),
		tracer:   config.TracerProvider.Tracer(config.TracerName),
		spans:    make(map[uint64]trace.Span),
	}
}

// Registry returns the registry holding the Recorder's metrics.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// Handler serves the Recorder's metrics in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// StartOperation opens a span for one editor operation. Transactions started
// before the returned func is called become children of it. The func records
// err on the span and in obsedit_operations_total.
func (r *Recorder) StartOperation(ctx context.Context, command string, attrs ...attribute.KeyValue) (context.Context, func(err error)) {
	attrs = append(attrs, attribute.String("obsedit.command", command))
	spanCtx, span := r.tracer.Start(ctx, "obsedit "+command,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)

	r.mu.Lock()
	prev := r.opCtx
	r.opCtx = spanCtx
	r.mu.Unlock()

	return spanCtx, func(err error) {
		r.mu.Lock()
		r.opCtx = prev
		r.mu.Unlock()

		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
		r.m.operations.WithLabelValues(command, status).Inc()
	}
}

// TransactionStarted implements observable.Hooks.
func (r *Recorder) TransactionStarted(id uint64, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	parent := r.opCtx
	if parent == nil {
		parent = context.Background()
	}
	_, span := r.tracer.Start(parent, "obsedit.tx "+txLabel(name),
		trace.WithAttributes(attribute.Int64("obsedit.tx_id", int64(id))),
	)
	r.spans[id] = span
}

// TransactionCommitted implements observable.Hooks.
func (r *Recorder) TransactionCommitted(id uint64, name string, updates int, elapsed time.Duration) {
	r.m.transactions.WithLabelValues(txLabel(name)).Inc()
	r.m.txDuration.Observe(elapsed.Seconds())
	r.m.txUpdates.Observe(float64(updates))

	r.mu.Lock()
	span, ok := r.spans[id]
	delete(r.spans, id)
	r.mu.Unlock()
	if ok {
		span.SetAttributes(attribute.Int("obsedit.updates", updates))
		span.End()
	}
}

// HandlerCalled implements observable.Hooks.
func (r *Recorder) HandlerCalled(autorun, changed string, rerun bool) {
	r.m.handlerCalls.WithLabelValues(changed, strconv.FormatBool(rerun)).Inc()
	if span := r.currentSpan(); span != nil {
		span.AddEvent("handle change", trace.WithAttributes(
			attribute.String("obsedit.autorun", autorun),
			attribute.String("obsedit.observable", changed),
			attribute.Bool("obsedit.rerun", rerun),
		))
	}
}

// ReaderRan implements observable.Hooks.
func (r *Recorder) ReaderRan(autorun string, elapsed time.Duration) {
	r.m.readerRuns.WithLabelValues(autorun).Inc()
	r.m.readerDuration.Observe(elapsed.Seconds())
}

// AutorunCreated implements observable.Hooks.
func (r *Recorder) AutorunCreated(string) { r.m.liveAutoruns.Inc() }

// AutorunDisposed implements observable.Hooks.
func (r *Recorder) AutorunDisposed(string) { r.m.liveAutoruns.Dec() }

// currentSpan returns the span of the operation in progress.
func (r *Recorder) currentSpan() trace.Span {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.opCtx == nil {
		return nil
	}
	return trace.SpanFromContext(r.opCtx)
}

// txLabel bounds label cardinality for unnamed transactions.
func txLabel(name string) string {
	if name == "" {
		return "anonymous"
	}
	return name
}
