package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/zetareticula/modelflow/internal/domain"
	"github.com/zetareticula/modelflow/internal/sensor"
)

// Invoker — payload стадии: работа, выполняемая при её запуске.
//
// Стандартные реализации по виду стадии: ComputePayload (compute),
// WaitPayload (wait), DecidePayload (decide), sentinel обходится без
// payload'а. Конвейеры могут подставлять собственные реализации
// (например, разрешение версии модели через Registry Client).
type Invoker interface {
	Invoke(ctx context.Context, env *Env) (*Result, error)
}

// InvokerFunc — адаптер функции к интерфейсу Invoker.
type InvokerFunc func(ctx context.Context, env *Env) (*Result, error)

// Invoke реализует Invoker.
func (f InvokerFunc) Invoke(ctx context.Context, env *Env) (*Result, error) {
	return f(ctx, env)
}

// Canceller — опциональная способность payload'а: реакция на отмену run,
// пока стадия выполнялась (остановка внешнего задания и т.п.).
type Canceller interface {
	OnCancel(ctx context.Context)
}

// Result — результат успешного вызова payload'а.
type Result struct {
	// Outputs — значения для Context Store (key → value).
	// Записываются от имени стадии после успеха.
	Outputs map[string]string

	// Outcome — выбранная ветка (только decide).
	Outcome string
}

// Bindings — привязка payload'ов к стадиям графа (stageID → Invoker).
// Sentinel-стадии привязки не требуют.
type Bindings map[string]Invoker

// JobRuntime — внешний job runtime, выполняющий задания стадий.
//
// Ядро не реализует runtime: это внешний коллаборатор
// (контейнерный оркестратор; для разработки — пакет runtime).
type JobRuntime interface {
	Run(ctx context.Context, spec domain.JobSpec) (domain.JobResult, error)
}

// ComputePayload — payload compute-стадии: запуск внешнего задания.
//
// Команда и переменные окружения могут содержать плейсхолдеры,
// разрешаемые из Context Store при вызове.
type ComputePayload struct {
	// Runtime — внешний job runtime.
	Runtime JobRuntime

	// Job — спецификация задания.
	Job domain.JobSpec
}

// Invoke выполняет задание. Ненулевой код завершения — ошибка,
// подлежащая retry согласно политике стадии.
func (p *ComputePayload) Invoke(ctx context.Context, env *Env) (*Result, error) {
	if p.Runtime == nil {
		return nil, ErrNoRuntime
	}

	job := p.Job
	if job.Name == "" {
		job.Name = env.Stage.ID
	}

	var err error
	if job.Command, err = env.RenderList(p.Job.Command); err != nil {
		return nil, err
	}
	if job.Env, err = env.RenderMap(p.Job.Env); err != nil {
		return nil, err
	}

	res, err := p.Runtime.Run(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJobRuntime, err)
	}
	if res.ExitStatus != 0 {
		return nil, fmt.Errorf("%w: %d (logs: %s)", ErrJobFailed, res.ExitStatus, res.LogStream)
	}
	return &Result{}, nil
}

// WaitPayload — payload wait-стадии: ожидание внешнего условия
// через Readiness Sensor.
type WaitPayload struct {
	// Probe — проверяемое условие.
	Probe sensor.Probe

	// PollInterval — интервал опроса (0 — значение по умолчанию).
	PollInterval time.Duration

	// Timeout — таймаут ожидания (0 — значение по умолчанию).
	Timeout time.Duration
}

// Invoke ждёт готовности условия. Таймаут сенсора транслируется
// Executor'ом в терминальный TIMED_OUT без retry.
func (p *WaitPayload) Invoke(ctx context.Context, env *Env) (*Result, error) {
	if p.Probe == nil {
		return nil, ErrNoProbe
	}
	if err := sensor.Await(ctx, p.Probe, p.PollInterval, p.Timeout); err != nil {
		return nil, err
	}
	return &Result{}, nil
}

// DecideFunc — функция ветвления decide-стадии.
// Возвращает имя выбранной ветки.
type DecideFunc func(ctx context.Context, env *Env) (string, error)

// DecidePayload — payload decide-стадии.
//
// Результат ветвления сопоставляется с Outcome условных рёбер графа:
// зависимые стадии за невыбранными ветками пропускаются.
type DecidePayload struct {
	Decide DecideFunc
}

// Invoke вычисляет ветку.
func (p *DecidePayload) Invoke(ctx context.Context, env *Env) (*Result, error) {
	outcome, err := p.Decide(ctx, env)
	if err != nil {
		return nil, err
	}
	if outcome == "" {
		return nil, ErrEmptyOutcome
	}
	return &Result{Outcome: outcome}, nil
}

// sentinelPayload — no-op payload sentinel-стадий.
type sentinelPayload struct{}

func (sentinelPayload) Invoke(context.Context, *Env) (*Result, error) {
	return &Result{}, nil
}
