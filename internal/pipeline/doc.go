// Package pipeline строит граф конвейера релиза модели.
//
// Конвейер покрывает полный цикл выпуска:
//
//	start → check_model_registry → get_latest_model → ingest_model
//	      → quantize_model → validate_model → deploy_model
//	      → await_deployment → test_model → record_release
//
// Построение отделено от выполнения: BuildRelease возвращает граф
// и привязки payload'ов, запуск — дело Executor'а. Параметры стадий
// с плейсхолдерами ({{ output ... }}) разрешаются из Context Store
// во время выполнения.
package pipeline
