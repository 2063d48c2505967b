// Package cli содержит команды инструмента командной строки modelflow.
//
// Команды:
//
//	run   — выполнить конвейер релиза модели
//	plan  — показать план выполнения без запуска
//
// Конвейер выполняется внутри процесса CLI: оркестратор не имеет
// серверной части и не хранит состояния между запусками.
package cli
