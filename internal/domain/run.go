package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Run — одно выполнение графа стадий.
//
// Run владеет своим Context Store (снимок значений доступен через Values
// после завершения) и уничтожается после того, как Notifier построил
// итоговое сообщение. Ядро не хранит состояния между запусками.
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// StartedAt — время начала выполнения.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt — время завершения всех стадий.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// Cancelled — run был отменён (контекст отменился до завершения графа).
	// Факт отмены фиксирует Executor; итог (ABORTED) вычисляет Notifier.
	Cancelled bool `json:"cancelled,omitempty"`

	// Outcome — итог run. Заполняется Notifier'ом, не Executor'ом.
	Outcome RunOutcome `json:"outcome,omitempty"`

	// Stages — стадии run по ID с их терминальными состояниями.
	Stages map[string]*Stage `json:"stages"`

	// Values — снимок Context Store на момент завершения:
	// stageID → key → value. Заполняется Executor'ом при финализации.
	Values map[string]map[string]string `json:"values,omitempty"`
}

// NewRun создаёт новый run с заданными стадиями.
func NewRun(stages map[string]*Stage) *Run {
	if stages == nil {
		stages = make(map[string]*Stage)
	}
	return &Run{
		ID:        uuid.New(),
		StartedAt: time.Now(),
		Stages:    stages,
	}
}

// MarkFinished фиксирует время завершения run.
func (r *Run) MarkFinished() {
	now := time.Now()
	r.FinishedAt = &now
}

// Duration возвращает продолжительность run. 0, если run не завершён.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StageIDs возвращает отсортированный список ID стадий.
// Порядок детерминирован для отчётов и тестов.
func (r *Run) StageIDs() []string {
	ids := make([]string, 0, len(r.Stages))
	for id := range r.Stages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Value возвращает значение из снимка Context Store.
// Доступ уровня run: проверка предков здесь не применяется,
// снимок читают потребители завершённого run (Notifier).
func (r *Run) Value(stageID, key string) (string, bool) {
	vals, ok := r.Values[stageID]
	if !ok {
		return "", false
	}
	v, ok := vals[key]
	return v, ok
}
