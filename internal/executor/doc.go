// Package executor содержит движок выполнения графа стадий.
//
// Включает:
//   - executor.go — обход топологических батчей, машина состояний стадии,
//     retry с backoff, инфекционное распространение сбоев (SKIPPED),
//     отмена run, эмиссия событий переходов
//   - payloads.go — варианты payload'ов стадий (compute/wait/decide/sentinel),
//     выбираемые по виду: композиция вместо иерархии типов
//   - env.go      — окружение вызова стадии и рендеринг плейсхолдеров
//     через Context Store
//   - backoff.go  — вычисление задержки между попытками
//
// Retry локальны для Executor и невидимы ниже по графу иначе как
// прошедшим временем. Стадия, достигшая терминального сбоя,
// распространяет его вниз как SKIPPED без повторной оценки.
package executor
