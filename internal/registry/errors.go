package registry

import "errors"

// Ошибки клиента реестра.
var (
	// ErrNotFound — модель или версия не найдены (HTTP 404).
	// Терминальная ошибка, не повторяется.
	ErrNotFound = errors.New("model version not found")

	// ErrValidation — реестр отклонил запрос (прочие 4xx).
	// Терминальная ошибка, не повторяется.
	ErrValidation = errors.New("registry rejected request")

	// ErrUpstream — реестр недоступен или отвечает 5xx
	// после исчерпания бюджета retry.
	ErrUpstream = errors.New("registry upstream failure")
)
