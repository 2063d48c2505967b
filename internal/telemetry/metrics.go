package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zetareticula/modelflow/internal/domain"
)

// Metrics — Prometheus-метрики ядра оркестрации.
//
// Реализует executor.EventSink: каждый переход стадии инкрементирует
// счётчик, терминальные переходы дополнительно фиксируют длительность.
// Итоги runs учитывает Notifier через ObserveRun.
type Metrics struct {
	stageTransitions *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	stageRetries     *prometheus.CounterVec
	runsTotal        *prometheus.CounterVec
	runDuration      prometheus.Histogram
}

// NewMetrics регистрирует метрики в reg.
// nil reg — глобальный prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		stageTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "modelflow_stage_transitions_total",
			Help: "Total stage state transitions by stage kind and target state",
		}, []string{"kind", "to"}),

		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "modelflow_stage_duration_seconds",
			Help:    "Stage wall-clock duration from first attempt to terminal state",
			Buckets: prometheus.ExponentialBuckets(0.1, 4, 10),
		}, []string{"kind", "to"}),

		stageRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "modelflow_stage_retries_total",
			Help: "Total stage retry attempts by stage kind",
		}, []string{"kind"}),

		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "modelflow_runs_total",
			Help: "Total pipeline runs by outcome",
		}, []string{"outcome"}),

		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "modelflow_run_duration_seconds",
			Help:    "Pipeline run wall-clock duration",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
	}
}

// StageTransition учитывает переход стадии.
// Переход RUNNING → RUNNING — повторная попытка, терминальный переход
// дополнительно фиксирует длительность стадии.
func (m *Metrics) StageTransition(ev domain.TransitionEvent) {
	m.stageTransitions.WithLabelValues(string(ev.Kind), string(ev.To)).Inc()

	if ev.From == domain.StageRunning && ev.To == domain.StageRunning {
		m.stageRetries.WithLabelValues(string(ev.Kind)).Inc()
	}

	if ev.To.IsTerminal() {
		m.stageDuration.WithLabelValues(string(ev.Kind), string(ev.To)).Observe(ev.Duration.Seconds())
	}
}

// ObserveRun фиксирует итог и длительность run.
func (m *Metrics) ObserveRun(outcome domain.RunOutcome, d time.Duration) {
	m.runsTotal.WithLabelValues(string(outcome)).Inc()
	m.runDuration.Observe(d.Seconds())
}
