package domain

import "time"

// RunConfig — параметры запуска конвейера.
//
// Явная замена неявных env-умолчаний: конфигурация передаётся
// в построение графа целиком, отдельные стадии не читают окружение.
// Значения переопределяемы per-stage через Stage.Retry.
type RunConfig struct {
	// Owner — владелец конвейера (для отчётов и тегов).
	Owner string `json:"owner"`

	// Retries — количество попыток стадии по умолчанию (включая первую).
	Retries int `json:"retries"`

	// RetryDelay — начальная задержка между попытками.
	RetryDelay time.Duration `json:"retry_delay"`

	// RetryBackoffExponential — удваивать задержку с каждой попыткой.
	RetryBackoffExponential bool `json:"retry_backoff_exponential"`

	// MaxRetryDelay — верхняя граница задержки между попытками.
	MaxRetryDelay time.Duration `json:"max_retry_delay"`

	// ExecutionTimeout — общий таймаут стадии на все попытки.
	ExecutionTimeout time.Duration `json:"execution_timeout"`

	// ScheduleDescription — описание расписания запуска ("@hourly").
	// Носит декларативный характер: ядро не планирует повторные запуски,
	// но описание валидируется и попадает в отчёты.
	ScheduleDescription string `json:"schedule_description,omitempty"`

	// Tags — теги конвейера.
	Tags []string `json:"tags,omitempty"`
}

// RetryPolicy строит политику повторных попыток по умолчанию
// из параметров run. Стадии без собственной политики получают её.
func (c RunConfig) RetryPolicy() *RetryPolicy {
	multiplier := 1.0
	if c.RetryBackoffExponential {
		multiplier = 2.0
	}
	return &RetryPolicy{
		MaxAttempts: c.Retries,
		BaseDelay:   c.RetryDelay,
		Multiplier:  multiplier,
		MaxDelay:    c.MaxRetryDelay,
		Timeout:     c.ExecutionTimeout,
	}
}
