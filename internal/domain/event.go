package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransitionEvent — событие перехода стадии между состояниями.
//
// Executor эмитирует событие на каждый переход синхронно,
// поэтому события одной стадии упорядочены причинно.
// Между стадиями гарантирован только частичный порядок зависимостей.
type TransitionEvent struct {
	// RunID — run, в рамках которого произошёл переход.
	RunID uuid.UUID `json:"run_id"`

	// StageID — стадия, сменившая состояние.
	StageID string `json:"stage_id"`

	// Kind — вид стадии (для метрик и фильтрации).
	Kind StageKind `json:"kind"`

	// From — состояние до перехода.
	From StageStatus `json:"from"`

	// To — состояние после перехода.
	// Retry выражается переходом RUNNING → RUNNING с новым Attempt.
	To StageStatus `json:"to"`

	// Attempt — номер попытки на момент перехода.
	Attempt int `json:"attempt"`

	// Timestamp — время перехода.
	Timestamp time.Time `json:"timestamp"`

	// Duration — длительность стадии от первой попытки до терминального
	// состояния. Ноль для нетерминальных переходов.
	Duration time.Duration `json:"duration,omitempty"`

	// ErrorDetail — текст ошибки для переходов в FAILED/TIMED_OUT/SKIPPED.
	ErrorDetail string `json:"error_detail,omitempty"`
}
