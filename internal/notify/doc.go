// Package notify строит итоговое сообщение по завершённому run
// и доставляет его потребителям.
//
// Notifier — единственное место, где вычисляется итог run:
//   - SUCCESS — ни одна стадия не FAILED/TIMED_OUT
//   - PARTIAL_FAILURE — хотя бы одна стадия FAILED или TIMED_OUT
//   - ABORTED — run отменён до завершения графа
//
// SKIPPED-стадии итог не портят: пропуск — следствие чужого сбоя
// или невыбранной ветки, сообщение перечисляет только сами сбои.
//
// Доставка — через интерфейс Sink: лог (LogSink) и RabbitMQ (AMQPSink).
// Ошибка доставки не меняет итог run.
package notify
