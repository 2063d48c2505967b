package runtime

import (
	"context"
	"log/slog"

	"github.com/zetareticula/modelflow/internal/domain"
)

// NopRuntime логирует задание и возвращает успех, ничего не выполняя.
// Используется для dry-run конвейера: проверка графа, параметров
// и рендеринга шаблонов без запуска реальных jobs.
type NopRuntime struct {
	Logger *slog.Logger
}

// Run реализует executor.JobRuntime.
func (r *NopRuntime) Run(_ context.Context, spec domain.JobSpec) (domain.JobResult, error) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("dry-run job",
		"job", spec.Name,
		"image", spec.Image,
		"command", spec.Command,
	)

	return domain.JobResult{ExitStatus: 0, LogStream: "dry-run: no job executed"}, nil
}
