package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zetareticula/modelflow/internal/domain"
	"github.com/zetareticula/modelflow/internal/telemetry"
)

// ErrRunNotFinished — run передан Notifier'у до финализации:
// есть стадия в нетерминальном состоянии. Нарушение контракта Executor'а.
var ErrRunNotFinished = errors.New("run has non-terminal stages")

// StageFailure — описание одной упавшей стадии для сообщения.
type StageFailure struct {
	// StageID — идентификатор стадии.
	StageID string `json:"stage_id"`

	// Status — терминальный статус (FAILED или TIMED_OUT).
	Status domain.StageStatus `json:"status"`

	// Error — текст последней ошибки.
	Error string `json:"error"`

	// Attempts — сколько попыток было израсходовано.
	Attempts int `json:"attempts"`
}

// Message — итоговое сообщение о run.
type Message struct {
	// RunID — идентификатор run.
	RunID uuid.UUID `json:"run_id"`

	// Outcome — итог run.
	Outcome domain.RunOutcome `json:"outcome"`

	// Text — человекочитаемый текст сообщения.
	Text string `json:"text"`

	// ModelVersion — версия модели, прошедшая конвейер (если разрешена).
	ModelVersion string `json:"model_version,omitempty"`

	// FailedStages — упавшие стадии в детерминированном порядке.
	FailedStages []StageFailure `json:"failed_stages,omitempty"`

	// Duration — длительность run.
	Duration time.Duration `json:"duration"`
}

// Notifier строит итоговое сообщение и рассылает его по sinks.
type Notifier struct {
	versionStage string
	versionKey   string

	sinks   []Sink
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// Config — конфигурация Notifier.
type Config struct {
	// VersionStage/VersionKey — откуда в снимке Context Store
	// читать версию модели для текста сообщения.
	VersionStage string
	VersionKey   string

	// Sinks — получатели сообщения. Пусто — только лог через Logger.
	Sinks []Sink

	// Metrics — учёт итогов runs (опционально).
	Metrics *telemetry.Metrics

	// Logger — логгер.
	Logger *slog.Logger
}

// New создаёт новый Notifier.
func New(cfg Config) *Notifier {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Notifier{
		versionStage: cfg.VersionStage,
		versionKey:   cfg.VersionKey,
		sinks:        cfg.Sinks,
		metrics:      cfg.Metrics,
		logger:       logger,
	}
}

// Summarize вычисляет итог run и строит сообщение.
// Итог записывается в run.Outcome — это единственное место,
// где он вычисляется.
func (n *Notifier) Summarize(run *domain.Run) (*Message, error) {
	for _, id := range run.StageIDs() {
		if !run.Stages[id].IsFinished() {
			return nil, fmt.Errorf("%w: stage %s is %s", ErrRunNotFinished, id, run.Stages[id].Status)
		}
	}

	failures := collectFailures(run)

	outcome := domain.OutcomeSuccess
	switch {
	case run.Cancelled:
		outcome = domain.OutcomeAborted
	case len(failures) > 0:
		outcome = domain.OutcomePartialFailure
	}
	run.Outcome = outcome

	version, _ := run.Value(n.versionStage, n.versionKey)

	return &Message{
		RunID:        run.ID,
		Outcome:      outcome,
		Text:         composeText(outcome, version, failures),
		ModelVersion: version,
		FailedStages: failures,
		Duration:     run.Duration(),
	}, nil
}

// Notify строит сообщение и доставляет его по всем sinks.
// Ошибки доставки логируются и агрегируются, но итог run не меняют.
func (n *Notifier) Notify(ctx context.Context, run *domain.Run) (*Message, error) {
	msg, err := n.Summarize(run)
	if err != nil {
		return nil, err
	}

	if n.metrics != nil {
		n.metrics.ObserveRun(msg.Outcome, msg.Duration)
	}

	n.logger.Info("run summarized",
		"run_id", msg.RunID.String(),
		"outcome", string(msg.Outcome),
		"failed_stages", len(msg.FailedStages),
	)

	var deliveryErrs []error
	for _, sink := range n.sinks {
		if err := sink.Deliver(ctx, msg); err != nil {
			n.logger.Warn("notification delivery failed",
				"run_id", msg.RunID.String(),
				"error", err,
			)
			deliveryErrs = append(deliveryErrs, err)
		}
	}

	return msg, errors.Join(deliveryErrs...)
}

// collectFailures собирает FAILED/TIMED_OUT стадии в порядке ID.
func collectFailures(run *domain.Run) []StageFailure {
	var failures []StageFailure
	for _, id := range run.StageIDs() {
		st := run.Stages[id]
		if !st.Status.IsFailure() {
			continue
		}
		failures = append(failures, StageFailure{
			StageID:  st.ID,
			Status:   st.Status,
			Error:    st.Error,
			Attempts: st.Attempt,
		})
	}
	sort.Slice(failures, func(i, j int) bool { return failures[i].StageID < failures[j].StageID })
	return failures
}

// composeText строит человекочитаемый текст сообщения.
func composeText(outcome domain.RunOutcome, version string, failures []StageFailure) string {
	switch outcome {
	case domain.OutcomeSuccess:
		if version != "" {
			return fmt.Sprintf("✅ Pipeline completed successfully! Deployed model version: %s", version)
		}
		return "✅ Pipeline completed successfully!"

	case domain.OutcomeAborted:
		return "⚠️ Pipeline run was aborted before completion."

	default:
		parts := make([]string, 0, len(failures))
		for _, f := range failures {
			parts = append(parts, fmt.Sprintf("%s (%s: %s)", f.StageID, f.Status, f.Error))
		}
		return "❌ Pipeline failed. Failed stages: " + strings.Join(parts, ", ")
	}
}
