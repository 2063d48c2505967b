package executor

import (
	"time"

	"github.com/zetareticula/modelflow/internal/domain"
)

// Backoff по умолчанию, если политика не задаёт значений.
const (
	defaultBaseDelay = time.Second
	defaultMaxDelay  = 30 * time.Second
)

// backoff вычисляет задержку перед попыткой attempt+1:
//
//	min(BaseDelay * Multiplier^(attempt-1), MaxDelay)
//
// Multiplier <= 1 даёт фиксированную задержку BaseDelay.
func backoff(attempt int, policy *domain.RetryPolicy) time.Duration {
	base := defaultBaseDelay
	max := defaultMaxDelay
	multiplier := 1.0
	if policy != nil {
		if policy.BaseDelay > 0 {
			base = policy.BaseDelay
		}
		if policy.MaxDelay > 0 {
			max = policy.MaxDelay
		}
		if policy.Multiplier > 0 {
			multiplier = policy.Multiplier
		}
	}

	delay := base
	for i := 1; i < attempt && multiplier > 1; i++ {
		delay = time.Duration(float64(delay) * multiplier)
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
