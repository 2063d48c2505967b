package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"

	"github.com/zetareticula/modelflow/internal/domain"
)

// ErrEmptyCommand — JobSpec без команды запуска.
var ErrEmptyCommand = errors.New("job spec has empty command")

// LocalRuntime выполняет задания локальными процессами.
//
// Image из JobSpec игнорируется, лимиты ресурсов не применяются:
// runtime предназначен для разработки и интеграционных тестов,
// где контейнерная инфраструктура недоступна.
type LocalRuntime struct {
	// InheritEnv — наследовать окружение процесса оркестратора.
	InheritEnv bool

	// MaxLogBytes — лимит сохраняемого вывода (default: 64 KiB).
	MaxLogBytes int

	Logger *slog.Logger
}

const defaultMaxLogBytes = 64 * 1024

// Run реализует executor.JobRuntime.
// Ненулевой код завершения — не ошибка вызова: он возвращается
// в JobResult, классификацию выполняет payload стадии.
func (r *LocalRuntime) Run(ctx context.Context, spec domain.JobSpec) (domain.JobResult, error) {
	if len(spec.Command) == 0 {
		return domain.JobResult{}, fmt.Errorf("%w: job %s", ErrEmptyCommand, spec.Name)
	}

	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cmd := exec.CommandContext(ctx, spec.Command[0], spec.Command[1:]...)
	if r.InheritEnv {
		cmd.Env = os.Environ()
	}
	for k, v := range spec.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	logger.Debug("running local job", "job", spec.Name, "command", spec.Command)

	err := cmd.Run()

	maxBytes := r.MaxLogBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxLogBytes
	}
	logs := output.String()
	if len(logs) > maxBytes {
		logs = logs[:maxBytes]
	}

	result := domain.JobResult{LogStream: logs}

	if err != nil {
		// Убитый контекстом процесс выглядит как ExitError:
		// отмена проверяется первой.
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitStatus = exitErr.ExitCode()
			return result, nil
		}
		return result, fmt.Errorf("run job %s: %w", spec.Name, err)
	}

	return result, nil
}
