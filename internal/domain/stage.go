package domain

import "time"

// Stage — единица оркестрируемой работы внутри run.
//
// Stage создаётся при построении графа и мутируется только Executor'ом.
// После завершения run стадия уничтожается вместе с ним — состояние
// между запусками не сохраняется.
type Stage struct {
	// ID — уникальный идентификатор стадии в рамках графа.
	ID string `json:"id"`

	// Name — человекочитаемое имя стадии.
	Name string `json:"name,omitempty"`

	// Kind — вид стадии: compute, wait, decide, sentinel.
	Kind StageKind `json:"kind"`

	// Params — параметры вызова стадии.
	// Значения могут содержать плейсхолдеры, разрешаемые из Context Store:
	//   {{ output "get_latest_model" "model_version" }}
	Params map[string]string `json:"params,omitempty"`

	// Retry — политика повторных попыток.
	// nil — используется политика по умолчанию из RunConfig.
	Retry *RetryPolicy `json:"retry,omitempty"`

	// Attempt — номер текущей попытки (начиная с 1).
	Attempt int `json:"attempt"`

	// Status — текущий статус стадии.
	Status StageStatus `json:"status"`

	// Outcome — результат decide-стадии (имя выбранной ветки).
	// Пусто для остальных видов.
	Outcome string `json:"outcome,omitempty"`

	// StartedAt — время первого перехода в RUNNING.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время перехода в терминальный статус.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Error — последняя ошибка (сохраняется для отчёта Notifier'а).
	Error string `json:"error,omitempty"`
}

// RetryPolicy — политика повторных попыток стадии.
//
// Задержка перед попыткой k+1: min(BaseDelay * Multiplier^(k-1), MaxDelay).
type RetryPolicy struct {
	// MaxAttempts — максимальное количество попыток (включая первую).
	MaxAttempts int `json:"max_attempts,omitempty"`

	// BaseDelay — начальная задержка между попытками.
	BaseDelay time.Duration `json:"base_delay,omitempty"`

	// Multiplier — множитель задержки. <= 1 — фиксированная задержка.
	Multiplier float64 `json:"multiplier,omitempty"`

	// MaxDelay — верхняя граница задержки.
	MaxDelay time.Duration `json:"max_delay,omitempty"`

	// Timeout — общий таймаут стадии на все попытки.
	// 0 — без ограничения. Истечение → TIMED_OUT без дальнейших retry.
	Timeout time.Duration `json:"timeout,omitempty"`
}

// Clone возвращает копию стадии для нового run.
// Граф после валидации неизменяем, поэтому Executor работает с копиями.
func (s *Stage) Clone() *Stage {
	c := *s
	if s.Params != nil {
		c.Params = make(map[string]string, len(s.Params))
		for k, v := range s.Params {
			c.Params[k] = v
		}
	}
	if s.Retry != nil {
		rp := *s.Retry
		c.Retry = &rp
	}
	c.StartedAt = nil
	c.FinishedAt = nil
	return &c
}

// Duration возвращает продолжительность выполнения стадии.
func (s *Stage) Duration() time.Duration {
	if s.StartedAt == nil || s.FinishedAt == nil {
		return 0
	}
	return s.FinishedAt.Sub(*s.StartedAt)
}

// IsFinished возвращает true, если стадия в терминальном статусе.
func (s *Stage) IsFinished() bool {
	return s.Status.IsTerminal()
}

// MarkRunning переводит стадию в RUNNING и увеличивает счётчик попыток.
// Вызывается и при первой попытке, и при каждом retry.
func (s *Stage) MarkRunning() {
	if s.StartedAt == nil {
		now := time.Now()
		s.StartedAt = &now
	}
	s.Status = StageRunning
	s.Attempt++
}

// MarkSucceeded переводит стадию в SUCCEEDED.
// outcome — выбранная ветка для decide-стадий, иначе пусто.
func (s *Stage) MarkSucceeded(outcome string) {
	now := time.Now()
	s.Status = StageSucceeded
	s.Outcome = outcome
	s.FinishedAt = &now
	s.Error = ""
}

// MarkFailed переводит стадию в FAILED с текстом последней ошибки.
func (s *Stage) MarkFailed(errMsg string) {
	now := time.Now()
	s.Status = StageFailed
	s.FinishedAt = &now
	s.Error = errMsg
}

// MarkTimedOut переводит стадию в TIMED_OUT.
func (s *Stage) MarkTimedOut(errMsg string) {
	now := time.Now()
	s.Status = StageTimedOut
	s.FinishedAt = &now
	s.Error = errMsg
}

// MarkSkipped переводит стадию в SKIPPED с причиной пропуска.
func (s *Stage) MarkSkipped(reason string) {
	now := time.Now()
	s.Status = StageSkipped
	s.FinishedAt = &now
	s.Error = reason
}

// CanRetry проверяет, осталась ли ещё попытка в рамках политики.
func (s *Stage) CanRetry(maxAttempts int) bool {
	return s.Attempt < maxAttempts
}
