package sensor

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultProbeTimeout = 10 * time.Second

// HealthProbe — проверка health-эндпоинта по HTTP.
//
// Ready — ответ 2xx. Любой другой статус и сетевые ошибки — NotReady:
// недоступный сервис означает "ещё не готов", а не сломанную проверку.
// Ошибкой проверки считается только невозможность построить запрос
// и отмена контекста.
type HealthProbe struct {
	// URL — адрес health-эндпоинта.
	URL string

	// Client — HTTP-клиент. nil — клиент с таймаутом по умолчанию.
	Client *http.Client
}

// Check реализует Probe.
func (p *HealthProbe) Check(ctx context.Context) (Status, error) {
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: defaultProbeTimeout}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return NotReady, fmt.Errorf("build health request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return NotReady, ctx.Err()
		}
		return NotReady, nil
	}
	defer resp.Body.Close()

	// Тело не используется, но вычитывается для переиспользования соединения.
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Ready, nil
	}
	return NotReady, nil
}
