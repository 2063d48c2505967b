// Package graph содержит граф стадий конвейера.
//
// Включает:
//   - graph.go  — построение графа (AddStage/AddEdge), валидация,
//     топологические батчи (алгоритм Кана), отношение предков
//   - errors.go — ошибки определения графа
//
// Граф строится один раз на запуск, валидируется до начала выполнения
// (циклический или висячий граф падает сразу, без частичного выполнения)
// и после успешной валидации неизменяем.
package graph
