package graph

import "errors"

// Ошибки определения графа.
// Все они фатальны на этапе построения: run с таким графом не начинается.
var (
	// ErrEmptyGraph — граф не содержит стадий.
	ErrEmptyGraph = errors.New("graph has no stages")

	// ErrEmptyStageID — стадия без ID.
	ErrEmptyStageID = errors.New("stage has empty ID")

	// ErrUnknownKind — неизвестный вид стадии.
	ErrUnknownKind = errors.New("unknown stage kind")

	// ErrDuplicateStage — несколько стадий с одинаковым ID.
	ErrDuplicateStage = errors.New("duplicate stage ID")

	// ErrDanglingEdge — ребро ссылается на несуществующую стадию.
	ErrDanglingEdge = errors.New("edge references unknown stage")

	// ErrSelfDependency — стадия зависит от самой себя.
	ErrSelfDependency = errors.New("stage depends on itself")

	// ErrCyclicDependency — обнаружен цикл в зависимостях.
	ErrCyclicDependency = errors.New("cyclic dependency detected")

	// ErrBranchEdgeKind — ребро с условием ветки выходит не из decide-стадии.
	ErrBranchEdgeKind = errors.New("branch edge from non-decide stage")

	// ErrGraphSealed — попытка изменить граф после успешной валидации.
	ErrGraphSealed = errors.New("graph is sealed after validation")

	// ErrNotValidated — операция требует успешной валидации графа.
	ErrNotValidated = errors.New("graph is not validated")
)

// DefinitionError — ошибка определения графа с контекстом.
type DefinitionError struct {
	StageID string // стадия, к которой относится ошибка
	Message string // описание
	Err     error  // базовая ошибка
}

// Error реализует интерфейс error.
func (e *DefinitionError) Error() string {
	if e.StageID != "" {
		return "stage " + e.StageID + ": " + e.Message
	}
	return e.Message
}

// Unwrap возвращает базовую ошибку.
func (e *DefinitionError) Unwrap() error {
	return e.Err
}

func defErr(stageID, message string, err error) *DefinitionError {
	return &DefinitionError{StageID: stageID, Message: message, Err: err}
}
