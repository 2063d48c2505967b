package domain

// StageStatus — статус выполнения стадии.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED     (после исчерпания retry)
//	                  ↘ TIMED_OUT  (собственный таймаут стадии или сенсора)
//	PENDING → SKIPPED              (упавшая зависимость, невыбранная ветка
//	                                или отмена run)
type StageStatus string

const (
	// StagePending — стадия создана, зависимости ещё не готовы.
	StagePending StageStatus = "PENDING"

	// StageRunning — стадия выполняется (включая паузы между retry).
	StageRunning StageStatus = "RUNNING"

	// StageSucceeded — стадия успешно завершена.
	StageSucceeded StageStatus = "SUCCEEDED"

	// StageFailed — стадия завершилась ошибкой после всех retry.
	StageFailed StageStatus = "FAILED"

	// StageTimedOut — стадия превысила собственный таймаут.
	// В отличие от FAILED, после таймаута retry не выполняются.
	StageTimedOut StageStatus = "TIMED_OUT"

	// StageSkipped — стадия пропущена: зависимость упала,
	// decide-стадия выбрала другую ветку, либо run отменён.
	StageSkipped StageStatus = "SKIPPED"
)

// IsTerminal возвращает true, если статус финальный.
func (s StageStatus) IsTerminal() bool {
	switch s {
	case StageSucceeded, StageFailed, StageTimedOut, StageSkipped:
		return true
	default:
		return false
	}
}

// IsFailure возвращает true для статусов, считающихся сбоем стадии.
// SKIPPED сбоем не является — это следствие чужого сбоя или выбора ветки.
func (s StageStatus) IsFailure() bool {
	return s == StageFailed || s == StageTimedOut
}

// StageKind — вид стадии.
//
// Вид определяет стандартный payload стадии (см. пакет executor):
// специализация выражена композицией, а не иерархией типов.
type StageKind string

const (
	// KindCompute — стадия запускает внешний job (контейнерную задачу).
	KindCompute StageKind = "compute"

	// KindWait — стадия ждёт внешнего условия через Readiness Sensor.
	KindWait StageKind = "wait"

	// KindDecide — стадия выбирает ветку дальнейшего выполнения.
	KindDecide StageKind = "decide"

	// KindSentinel — маркерная стадия без работы (точка входа/выхода графа).
	KindSentinel StageKind = "sentinel"
)

// Valid возвращает true для известного вида стадии.
func (k StageKind) Valid() bool {
	switch k {
	case KindCompute, KindWait, KindDecide, KindSentinel:
		return true
	default:
		return false
	}
}

// RunOutcome — итог выполнения run.
//
// Итог вычисляет Notifier — единственный компонент, который
// имеет право говорить об успехе run в целом.
type RunOutcome string

const (
	// OutcomeSuccess — ни одна стадия не завершилась FAILED/TIMED_OUT.
	OutcomeSuccess RunOutcome = "SUCCESS"

	// OutcomePartialFailure — хотя бы одна стадия FAILED или TIMED_OUT.
	OutcomePartialFailure RunOutcome = "PARTIAL_FAILURE"

	// OutcomeAborted — run отменён до нормального завершения графа.
	OutcomeAborted RunOutcome = "ABORTED"
)
