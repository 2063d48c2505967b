// Package runtime содержит реализации job runtime — внешнего
// исполнителя compute-стадий.
//
// Ядро оркестрации не управляет контейнерами само: оно передаёт
// runtime'у JobSpec и получает JobResult. Реализации:
//   - LocalRuntime — локальные процессы через os/exec (разработка, тесты)
//   - NopRuntime — заглушка: логирует задание и возвращает успех
//
// Контейнерный runtime (Kubernetes) подключается извне через тот же
// интерфейс executor.JobRuntime.
package runtime
