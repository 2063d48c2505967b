package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/zetareticula/modelflow/internal/domain"
)

// DefaultRunConfig возвращает параметры конвейера релиза по умолчанию.
func DefaultRunConfig() domain.RunConfig {
	return domain.RunConfig{
		Owner:                   "zeta-team",
		Retries:                 3,
		RetryDelay:              5 * time.Minute,
		RetryBackoffExponential: true,
		MaxRetryDelay:           30 * time.Minute,
		ExecutionTimeout:        2 * time.Hour,
		ScheduleDescription:     "@hourly",
		Tags:                    []string{"ml", "release", "zeta-reticula"},
	}
}

// scheduleParser разбирает стандартные cron-выражения и дескрипторы
// вида @hourly/@daily.
var scheduleParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ValidateRunConfig проверяет согласованность параметров запуска.
func ValidateRunConfig(cfg domain.RunConfig) error {
	if cfg.Retries < 1 {
		return fmt.Errorf("retries must be >= 1, got %d", cfg.Retries)
	}
	if cfg.RetryDelay < 0 {
		return fmt.Errorf("retry delay must be >= 0, got %s", cfg.RetryDelay)
	}
	if cfg.MaxRetryDelay > 0 && cfg.MaxRetryDelay < cfg.RetryDelay {
		return fmt.Errorf("max retry delay %s is below retry delay %s", cfg.MaxRetryDelay, cfg.RetryDelay)
	}
	if cfg.ExecutionTimeout < 0 {
		return fmt.Errorf("execution timeout must be >= 0, got %s", cfg.ExecutionTimeout)
	}
	if cfg.ScheduleDescription != "" {
		if _, err := scheduleParser.Parse(cfg.ScheduleDescription); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", cfg.ScheduleDescription, err)
		}
	}
	return nil
}

// NextOccurrence возвращает ближайшее время запуска по расписанию
// после заданного момента. Ядро повторные запуски не планирует —
// значение информационное (отчёты, CLI).
func NextOccurrence(cfg domain.RunConfig, after time.Time) (time.Time, error) {
	if cfg.ScheduleDescription == "" {
		return time.Time{}, fmt.Errorf("run config has no schedule")
	}
	schedule, err := scheduleParser.Parse(cfg.ScheduleDescription)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid schedule %q: %w", cfg.ScheduleDescription, err)
	}
	return schedule.Next(after), nil
}
