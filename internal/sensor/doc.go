// Package sensor содержит Readiness Sensor — ограниченный цикл
// опроса внешнего условия.
//
// Включает:
//   - sensor.go — Await: опрос предиката до готовности или таймаута
//   - probe.go  — HealthProbe: HTTP-проверка health-эндпоинта
//
// Await — независимо планируемая единица: пауза между опросами
// прерывается отменой контекста немедленно, а не на границе опроса.
package sensor
