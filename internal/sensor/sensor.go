package sensor

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Default polling values (из параметров сенсоров исходного конвейера).
const (
	DefaultPollInterval = 30 * time.Second
	DefaultTimeout      = 300 * time.Second
)

// ErrTimedOut — условие не стало готовым за отведённый таймаут.
var ErrTimedOut = errors.New("sensor timed out awaiting condition")

// Status — результат одной проверки условия.
type Status int

const (
	// NotReady — условие ещё не выполнено, продолжаем опрос.
	NotReady Status = iota

	// Ready — условие выполнено.
	Ready
)

// Probe — проверка внешнего условия.
//
// Ошибка из Check означает "сама проверка сломана" и прекращает опрос
// немедленно — в отличие от NotReady ("условие ещё не выполнено").
type Probe interface {
	Check(ctx context.Context) (Status, error)
}

// ProbeFunc — адаптер функции к интерфейсу Probe.
type ProbeFunc func(ctx context.Context) (Status, error)

// Check реализует Probe.
func (f ProbeFunc) Check(ctx context.Context) (Status, error) {
	return f(ctx)
}

// Await опрашивает probe до готовности условия.
//
// Алгоритм:
//   - первая проверка выполняется сразу: готовое условие не платит
//     задержку pollInterval
//   - ошибка проверки распространяется немедленно, без повторных опросов
//   - NotReady → пауза pollInterval (прерываемая контекстом),
//     затем сверка прошедшего времени с timeout
//   - таймаут без наблюдённого Ready → ErrTimedOut
//
// Нулевые pollInterval/timeout заменяются значениями по умолчанию.
func Await(ctx context.Context, probe Probe, pollInterval, timeout time.Duration) error {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	start := time.Now()
	for {
		status, err := probe.Check(ctx)
		if err != nil {
			return err
		}
		if status == Ready {
			return nil
		}

		select {
		case <-time.After(pollInterval):
		case <-ctx.Done():
			return ctx.Err()
		}

		if time.Since(start) >= timeout {
			return fmt.Errorf("%w: after %s", ErrTimedOut, timeout)
		}
	}
}
