// Package telemetry обеспечивает наблюдаемость ядра оркестрации.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики переходов стадий и итогов runs
//
// Metrics реализует executor.EventSink: каждый переход стадии
// учитывается в счётчиках, итог run фиксирует Notifier.
package telemetry
