package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "momentum"

// Recorder prometheus 指标. nil Recorder 可以安全调用, 什么也不做
type Recorder struct {
	fetchTotal     *prometheus.CounterVec
	fetchErrors    *prometheus.CounterVec
	fetchLatency   *prometheus.HistogramVec
	limiterWait    prometheus.Histogram
	universeSize   prometheus.Gauge
	universeReload *prometheus.CounterVec
	signals        *prometheus.CounterVec
	alerts         *prometheus.CounterVec
	cycleDuration  prometheus.Histogram
	cleanupDeleted prometheus.Counter
}

func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		fetchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "requests_total",
			Help:      "Exchange REST requests by endpoint",
		}, []string{"endpoint"}),
		fetchErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "errors_total",
			Help:      "Failed exchange REST requests by endpoint and status",
		}, []string{"endpoint", "status"}),
		fetchLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "duration_seconds",
			Help:      "Exchange REST request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),
		limiterWait: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "limiter_wait_seconds",
			Help:      "Time spent waiting for a rate limiter token",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 30, 60},
		}),
		universeSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "universe",
			Name:      "liquid_symbols",
			Help:      "Number of liquid symbols in the current snapshot",
		}),
		universeReload: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "universe",
			Name:      "refreshes_total",
			Help:      "Universe refreshes by result",
		}, []string{"result"}),
		signals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "signals_total",
			Help:      "Momentum signals detected",
		}, []string{"timeframe", "direction"}),
		alerts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alert",
			Name:      "outcomes_total",
			Help:      "Alert outcomes by status and reason",
		}, []string{"status", "reason"}),
		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a full scan cycle",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		cleanupDeleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dedup",
			Name:      "cleanup_deleted_total",
			Help:      "Alert records removed by retention cleanup",
		}),
	}
}

func (r *Recorder) ObserveFetch(endpoint string, d time.Duration) {
	if r == nil {
		return
	}
	r.fetchTotal.WithLabelValues(endpoint).Inc()
	r.fetchLatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

func (r *Recorder) FetchError(endpoint, status string) {
	if r == nil {
		return
	}
	r.fetchErrors.WithLabelValues(endpoint, status).Inc()
}

func (r *Recorder) LimiterWait(d time.Duration) {
	if r == nil {
		return
	}
	r.limiterWait.Observe(d.Seconds())
}

func (r *Recorder) UniverseRefreshed(size int, err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.universeReload.WithLabelValues("error").Inc()
		return
	}
	r.universeReload.WithLabelValues("ok").Inc()
	r.universeSize.Set(float64(size))
}

func (r *Recorder) SignalDetected(timeframe, direction string) {
	if r == nil {
		return
	}
	r.signals.WithLabelValues(timeframe, direction).Inc()
}

func (r *Recorder) AlertOutcome(status, reason string) {
	if r == nil {
		return
	}
	r.alerts.WithLabelValues(status, reason).Inc()
}

func (r *Recorder) ScanCycle(d time.Duration) {
	if r == nil {
		return
	}
	r.cycleDuration.Observe(d.Seconds())
}

func (r *Recorder) CleanupDeleted(n int64) {
	if r == nil {
		return
	}
	r.cleanupDeleted.Add(float64(n))
}
