package domain

// JobSpec — задание для внешнего job runtime.
//
// Runtime (контейнерный или локальный) — внешний коллаборатор:
// ядро передаёт команду, образ, лимиты ресурсов и переменные окружения,
// а получает статус завершения и ссылку на поток логов.
type JobSpec struct {
	// Name — имя задания (обычно совпадает с ID стадии).
	Name string `json:"name"`

	// Image — ссылка на контейнерный образ.
	Image string `json:"image"`

	// Command — команда и аргументы запуска.
	Command []string `json:"command"`

	// Env — переменные окружения задания.
	Env map[string]string `json:"env,omitempty"`

	// Resources — лимиты ресурсов задания.
	Resources ResourceLimits `json:"resources,omitempty"`
}

// ResourceLimits — запросы и лимиты ресурсов внешнего задания.
// Значения в нотации Kubernetes ("2Gi", "500m").
type ResourceLimits struct {
	RequestMemory string `json:"request_memory,omitempty"`
	RequestCPU    string `json:"request_cpu,omitempty"`
	LimitMemory   string `json:"limit_memory,omitempty"`
	LimitCPU      string `json:"limit_cpu,omitempty"`
}

// JobResult — результат выполнения внешнего задания.
type JobResult struct {
	// ExitStatus — код завершения. Ненулевой код — сбой стадии,
	// подлежащий retry согласно политике.
	ExitStatus int `json:"exit_status"`

	// LogStream — ссылка на поток логов задания
	// (путь, URL или сами логи для локального runtime).
	LogStream string `json:"log_stream,omitempty"`
}
