// Package domain содержит основные типы данных системы.
//
// Типы представляют бизнес-сущности конвейера релиза модели:
//   - Stage  — единица оркестрируемой работы с retry-политикой
//   - Run    — одно выполнение графа стадий
//   - RunConfig — параметры запуска (owner, retries, таймауты)
//   - TransitionEvent — событие перехода стадии между состояниями
//   - JobSpec/JobResult — контракт внешнего job runtime
//
// Пакет не содержит бизнес-логики выполнения — только данные
// и переходы состояний (методы Mark*). Стадии мутируются
// исключительно Executor'ом.
package domain
