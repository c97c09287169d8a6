package metrics

import (
	"context"
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	reg           *prometheus.Registry
	daysTotal     *prometheus.CounterVec
	variants      prometheus.Gauge
	stageDuration *prometheus.HistogramVec
	sinkWrites    *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	requests      *prometheus.HistogramVec
}

// New creates a recorder on its own registry, with Go and process collectors attached.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		daysTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "variantmap_days_total",
				Help: "Trading days seen per pipeline stage",
			},
			[]string{"stage"},
		),
		variants: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "variantmap_variants",
				Help: "Distinct variants in the last map",
			},
		),
		stageDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "variantmap_stage_duration_seconds",
				Help:    "Duration of pipeline stages in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		sinkWrites: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "variantmap_sink_writes_total",
				Help: "Map sink writes by sink and result",
			},
			[]string{"sink", "result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "variantmap_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		requests: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "variantmap_http_request_duration_seconds",
				Help:    "API request latency",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "status"},
		),
	}
}

// Registry exposes the underlying registry for /metrics and pushing.
func (r *Recorder) Registry() *prometheus.Registry { return r.reg }

func (r *Recorder) RecordDays(stage string, n int) {
	r.daysTotal.WithLabelValues(stage).Add(float64(n))
}

func (r *Recorder) RecordVariants(n int) { r.variants.Set(float64(n)) }

func (r *Recorder) RecordStageDuration(stage string, seconds float64) {
	r.stageDuration.WithLabelValues(stage).Observe(seconds)
}

func (r *Recorder) RecordSinkWrite(sink string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	r.sinkWrites.WithLabelValues(sink, result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordRequest(endpoint string, status int, seconds float64) {
	r.requests.WithLabelValues(endpoint, strconv.Itoa(status)).Observe(seconds)
}

// Push sends the registry to a Pushgateway under job, grouped by run id.
func (r *Recorder) Push(ctx context.Context, url, job, runID string) error {
	p := push.New(url, job).Gatherer(r.reg)
	if runID != "" {
		p = p.Grouping("run_id", runID)
	}
	if err := p.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
