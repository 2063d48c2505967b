package config

import (
	"fmt"
	"os"
)

// Settings — настройки окружения оркестратора.
type Settings struct {
	// Environment — имя окружения (development, staging, production).
	Environment string

	// Namespace — пространство имён для внешних jobs.
	Namespace string

	// ImagePrefix — префикс контейнерных образов стадий
	// ("zetareticula" → "zetareticula/ingest:latest").
	ImagePrefix string

	// RegistryURL — адрес реестра моделей.
	RegistryURL string

	// ServiceURL — адрес inference-сервиса для проверки готовности деплоя.
	ServiceURL string

	// ModelName — имя модели, проходящей конвейер.
	ModelName string

	// AMQPURL — адрес RabbitMQ для доставки уведомлений.
	// Пусто — уведомления только в лог.
	AMQPURL string
}

// FromEnv читает настройки из переменных окружения с умолчаниями
// для локальной разработки.
func FromEnv() Settings {
	s := Settings{
		Environment: envOr("ENVIRONMENT", "development"),
		Namespace:   envOr("K8S_NAMESPACE", "zeta-reticula"),
		ImagePrefix: envOr("MODEL_REGISTRY", "zetareticula"),
		RegistryURL: envOr("MODEL_REGISTRY_URL", "http://localhost:8080"),
		ModelName:   envOr("MODEL_NAME", "zeta-model"),
		AMQPURL:     os.Getenv("AMQP_URL"),
	}
	s.ServiceURL = envOr("INFERENCE_SERVICE_URL",
		fmt.Sprintf("http://inference-service.%s.svc.cluster.local", s.Namespace))
	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
