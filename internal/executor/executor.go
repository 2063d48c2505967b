package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zetareticula/modelflow/internal/ctxstore"
	"github.com/zetareticula/modelflow/internal/domain"
	"github.com/zetareticula/modelflow/internal/graph"
	"github.com/zetareticula/modelflow/internal/sensor"
)

// EventSink — потребитель событий переходов стадий.
//
// Executor гарантирует эмиссию события на каждый переход; события одной
// стадии приходят в причинном порядке. Реализации: метрики (telemetry),
// накопители в тестах, внешние коллекторы.
type EventSink interface {
	StageTransition(ev domain.TransitionEvent)
}

// EventSinkFunc — адаптер функции к интерфейсу EventSink.
type EventSinkFunc func(ev domain.TransitionEvent)

// StageTransition реализует EventSink.
func (f EventSinkFunc) StageTransition(ev domain.TransitionEvent) {
	f(ev)
}

// Executor выполняет граф стадий.
//
// Обходит топологические батчи по порядку; стадии внутри батча
// независимы и выполняются конкурентно (worker pool). Конкурентность —
// оптимизация, а не требование корректности: стадии без ребра между
// собой не видят записей друг друга в Context Store.
type Executor struct {
	defaultRetry *domain.RetryPolicy
	concurrency  int
	sinks        []EventSink
	logger       *slog.Logger
}

// Config — конфигурация Executor.
type Config struct {
	// DefaultRetry — политика retry для стадий без собственной.
	// Обычно строится из RunConfig (cfg.RetryPolicy()).
	// nil — одна попытка без retry.
	DefaultRetry *domain.RetryPolicy

	// Concurrency — максимум одновременно выполняемых стадий батча.
	// <= 0 — без ограничения (размер батча).
	Concurrency int

	// Events — потребители событий переходов.
	Events []EventSink

	// Logger — логгер.
	Logger *slog.Logger
}

// New создаёт новый Executor.
func New(cfg Config) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	defaultRetry := cfg.DefaultRetry
	if defaultRetry == nil {
		defaultRetry = &domain.RetryPolicy{MaxAttempts: 1}
	}

	return &Executor{
		defaultRetry: defaultRetry,
		concurrency:  cfg.Concurrency,
		sinks:        cfg.Events,
		logger:       logger,
	}
}

// Execute выполняет граф и возвращает завершённый run.
//
// Валидация графа и проверка привязок payload'ов выполняются до старта:
// некорректный граф падает сразу, без частичного выполнения. При выходе
// без ошибки каждая стадия run находится в терминальном состоянии.
// Итог run (Outcome) не вычисляется — это работа Notifier'а.
func (e *Executor) Execute(ctx context.Context, g *graph.Graph, bindings Bindings) (*domain.Run, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("validate graph: %w", err)
	}
	for _, st := range g.Stages() {
		if _, ok := bindings[st.ID]; !ok && st.Kind != domain.KindSentinel {
			return nil, fmt.Errorf("%w: %s", ErrNoPayload, st.ID)
		}
	}

	batches, err := g.Batches()
	if err != nil {
		return nil, err
	}

	// Run работает с копиями стадий: граф после валидации неизменяем
	// и может описывать несколько запусков.
	stages := make(map[string]*domain.Stage, g.Size())
	for _, st := range g.Stages() {
		stages[st.ID] = st.Clone()
	}
	run := domain.NewRun(stages)
	store := ctxstore.New(g.IsAncestor)

	logger := e.logger.With("run_id", run.ID.String())
	logger.Info("run started", "stages", g.Size(), "batches", len(batches))

	for _, batch := range batches {
		if ctx.Err() != nil {
			break
		}

		grp := new(errgroup.Group)
		if e.concurrency > 0 {
			grp.SetLimit(e.concurrency)
		}
		for _, id := range batch {
			st := stages[id]
			grp.Go(func() error {
				e.runStage(ctx, run, g, store, bindings, st, logger)
				return nil
			})
		}
		// Стадии не возвращают ошибок в группу: сбои фиксируются
		// в состоянии стадии и распространяются вниз как SKIPPED.
		grp.Wait()
	}

	// Отмена run: всё, что не успело завершиться, помечается SKIPPED
	// с причиной отмены — стадий в нетерминальном состоянии не остаётся.
	if ctx.Err() != nil {
		run.Cancelled = true
		reason := "run cancelled: " + ctx.Err().Error()
		for _, id := range run.StageIDs() {
			st := stages[id]
			if !st.IsFinished() {
				e.skip(run, st, reason, logger)
			}
		}
	}

	run.Values = store.Snapshot()
	run.MarkFinished()

	logger.Info("run finished",
		"duration", run.Duration(),
		"cancelled", run.Cancelled,
	)
	return run, nil
}

// runStage выполняет одну стадию до терминального состояния.
func (e *Executor) runStage(ctx context.Context, run *domain.Run, g *graph.Graph, store *ctxstore.Store, bindings Bindings, st *domain.Stage, logger *slog.Logger) {
	log := logger.With("stage_id", st.ID, "kind", string(st.Kind))

	if ctx.Err() != nil {
		e.skip(run, st, "run cancelled: "+ctx.Err().Error(), log)
		return
	}

	// Гейт зависимостей: сбой предшественника инфекционен.
	if reason := gateReason(run, g.Incoming(st.ID)); reason != "" {
		e.skip(run, st, reason, log)
		return
	}

	invoker, ok := bindings[st.ID]
	if !ok {
		invoker = sentinelPayload{} // проверено в Execute: только sentinel
	}

	policy := st.Retry
	if policy == nil {
		policy = e.defaultRetry
	}
	maxAttempts := policy.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	// Собственный таймаут стадии покрывает все попытки.
	stageCtx := ctx
	cancel := context.CancelFunc(func() {})
	if policy.Timeout > 0 {
		stageCtx, cancel = context.WithTimeout(ctx, policy.Timeout)
	}
	defer cancel()

	env := &Env{Run: run, Stage: st, Store: store, Logger: log}

	from := st.Status
	st.MarkRunning()
	e.emit(run, st, from, "")
	log.Info("stage started", "attempt", st.Attempt)

	for {
		result, err := invoker.Invoke(stageCtx, env)
		if err == nil {
			e.succeed(run, st, store, result, log)
			return
		}

		switch {
		case ctx.Err() != nil:
			// Отменён весь run: стадия пропускается, не падает.
			if c, isCanceller := invoker.(Canceller); isCanceller {
				c.OnCancel(context.WithoutCancel(ctx))
			}
			e.skip(run, st, "run cancelled: "+ctx.Err().Error(), log)
			return

		case errors.Is(err, sensor.ErrTimedOut) || errors.Is(stageCtx.Err(), context.DeadlineExceeded):
			// Таймаут терминален: retry после него не выполняются.
			from = st.Status
			st.MarkTimedOut(err.Error())
			e.emit(run, st, from, st.Error)
			log.Warn("stage timed out", "attempt", st.Attempt, "error", err)
			return

		case isFatal(err):
			e.fail(run, st, err.Error(), log)
			return
		}

		if !st.CanRetry(maxAttempts) {
			e.fail(run, st, err.Error(), log)
			return
		}

		delay := backoff(st.Attempt, policy)
		log.Debug("retrying stage",
			"attempt", st.Attempt,
			"max_attempts", maxAttempts,
			"delay", delay,
			"error", err,
		)

		select {
		case <-time.After(delay):
		case <-stageCtx.Done():
			if ctx.Err() != nil {
				e.skip(run, st, "run cancelled: "+ctx.Err().Error(), log)
			} else {
				from = st.Status
				st.MarkTimedOut("stage timeout elapsed during retry backoff")
				e.emit(run, st, from, st.Error)
			}
			return
		}

		// Повторная попытка: RUNNING → RUNNING с новым номером попытки.
		from = st.Status
		st.MarkRunning()
		e.emit(run, st, from, err.Error())
	}
}

// succeed фиксирует успех стадии и записывает outputs в Context Store.
func (e *Executor) succeed(run *domain.Run, st *domain.Stage, store *ctxstore.Store, result *Result, log *slog.Logger) {
	outcome := ""
	var outputs map[string]string
	if result != nil {
		outcome = result.Outcome
		outputs = result.Outputs
	}

	for key, value := range outputs {
		if err := store.Put(st.ID, key, value); err != nil {
			e.fail(run, st, fmt.Sprintf("store outputs: %v", err), log)
			return
		}
	}

	from := st.Status
	st.MarkSucceeded(outcome)
	e.emit(run, st, from, "")
	if outcome != "" {
		log.Info("stage succeeded", "attempt", st.Attempt, "outcome", outcome)
	} else {
		log.Info("stage succeeded", "attempt", st.Attempt)
	}
}

// fail переводит стадию в FAILED с текстом последней ошибки.
func (e *Executor) fail(run *domain.Run, st *domain.Stage, errMsg string, log *slog.Logger) {
	from := st.Status
	st.MarkFailed(errMsg)
	e.emit(run, st, from, errMsg)
	log.Warn("stage failed", "attempt", st.Attempt, "error", errMsg)
}

// skip переводит стадию в SKIPPED с причиной.
func (e *Executor) skip(run *domain.Run, st *domain.Stage, reason string, log *slog.Logger) {
	from := st.Status
	st.MarkSkipped(reason)
	e.emit(run, st, from, reason)
	log.Info("stage skipped", "stage_id", st.ID, "reason", reason)
}

// emit рассылает событие перехода всем потребителям.
// Вызывается синхронно после применения перехода: события одной стадии
// упорядочены причинно.
func (e *Executor) emit(run *domain.Run, st *domain.Stage, from domain.StageStatus, detail string) {
	ev := domain.TransitionEvent{
		RunID:       run.ID,
		StageID:     st.ID,
		Kind:        st.Kind,
		From:        from,
		To:          st.Status,
		Attempt:     st.Attempt,
		Timestamp:   time.Now(),
		Duration:    st.Duration(),
		ErrorDetail: detail,
	}
	for _, sink := range e.sinks {
		sink.StageTransition(ev)
	}
}

// gateReason проверяет входящие рёбра стадии.
// Возвращает причину пропуска либо пустую строку, если стадия
// может стартовать. К моменту вызова все предшественники терминальны
// (гарантия порядка батчей).
func gateReason(run *domain.Run, incoming []graph.Edge) string {
	for _, edge := range incoming {
		pred, ok := run.Stages[edge.From]
		if !ok {
			return fmt.Sprintf("dependency %s missing from run", edge.From)
		}
		if pred.Status != domain.StageSucceeded {
			return fmt.Sprintf("dependency %s ended %s", edge.From, pred.Status)
		}
		if edge.Outcome != "" && pred.Outcome != edge.Outcome {
			return fmt.Sprintf("branch %q not taken by %s (chose %q)", edge.Outcome, edge.From, pred.Outcome)
		}
	}
	return ""
}
