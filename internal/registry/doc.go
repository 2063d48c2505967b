// Package registry содержит клиент реестра моделей.
//
// Реестр — внешний HTTP-сервис с метаданными версий моделей.
// Клиент покрывает операции конвейера релиза:
//   - разрешение последней версии модели
//   - регистрация и обновление версий
//   - фиксация перехода версии между стадиями (staging/production)
//
// Retry здесь уровня запроса и не связаны с retry стадий Executor'а:
// небольшой фиксированный бюджет (3 попытки, линейный backoff) только
// для идемпотентных GET-запросов. Записи (POST/PATCH) не повторяются
// автоматически — во избежание дублирующей регистрации.
package registry
