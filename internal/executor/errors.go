package executor

import (
	"errors"

	"github.com/zetareticula/modelflow/internal/ctxstore"
)

// Ошибки движка выполнения.
var (
	// ErrNoPayload — стадии не назначен payload.
	// Обнаруживается до начала выполнения: run не стартует.
	ErrNoPayload = errors.New("stage has no payload binding")

	// ErrNoRuntime — compute-payload без job runtime.
	ErrNoRuntime = errors.New("compute payload has no job runtime")

	// ErrNoProbe — wait-payload без probe.
	ErrNoProbe = errors.New("wait payload has no probe")

	// ErrEmptyOutcome — decide-payload вернул пустой результат ветвления.
	ErrEmptyOutcome = errors.New("decide payload returned empty outcome")

	// ErrRenderParams — ошибка рендеринга параметров стадии.
	// Ошибка конфигурации: фатальна, retry не выполняются.
	ErrRenderParams = errors.New("render stage parameters failed")

	// ErrJobRuntime — внешний job runtime не смог выполнить задание
	// (инфраструктурная ошибка, подлежит retry).
	ErrJobRuntime = errors.New("job runtime failure")

	// ErrJobFailed — задание завершилось ненулевым статусом
	// (сбой стадии, подлежит retry).
	ErrJobFailed = errors.New("job exited with non-zero status")
)

// isFatal возвращает true для ошибок программирования/конфигурации,
// которые не имеет смысла повторять: нарушения контракта Context Store
// и ошибки рендеринга параметров.
func isFatal(err error) bool {
	return errors.Is(err, ErrRenderParams) ||
		errors.Is(err, ctxstore.ErrDuplicateWrite) ||
		errors.Is(err, ctxstore.ErrUnresolvedKey) ||
		errors.Is(err, ctxstore.ErrNotAnAncestor)
}
