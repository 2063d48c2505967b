package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Default configuration values.
const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = time.Second
	defaultHTTPTimeout = 30 * time.Second

	apiPrefix = "/api/v1"
)

// ModelVersion — версия модели в реестре.
type ModelVersion struct {
	// Version — строка версии ("zeta-model-v1.0.0").
	Version string `json:"version"`

	// Description — описание версии.
	Description string `json:"description,omitempty"`

	// Stage — текущая стадия версии ("staging", "production").
	Stage string `json:"stage,omitempty"`

	// Metadata — произвольные метаданные версии.
	Metadata map[string]any `json:"metadata,omitempty"`

	// CreatedAt — время регистрации версии.
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Client — клиент HTTP-реестра моделей.
type Client struct {
	baseURL    string
	httpClient *http.Client
	username   string
	password   string

	maxAttempts int
	retryDelay  time.Duration

	logger *slog.Logger
}

// Config — конфигурация Client.
type Config struct {
	// BaseURL — адрес реестра ("http://registry:8080").
	// Путь /api/v1 добавляется клиентом.
	BaseURL string

	// HTTPClient — HTTP-клиент (default: клиент с таймаутом 30s).
	HTTPClient *http.Client

	// Username/Password — basic auth (опционально).
	Username string
	Password string

	// MaxAttempts — бюджет попыток идемпотентных запросов (default: 3).
	MaxAttempts int

	// RetryDelay — базовая задержка линейного backoff (default: 1s).
	RetryDelay time.Duration

	// Logger — логгер.
	Logger *slog.Logger
}

// New создаёт новый Client.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = defaultRetryDelay
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:     cfg.BaseURL,
		httpClient:  httpClient,
		username:    cfg.Username,
		password:    cfg.Password,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		logger:      logger,
	}
}

// ResolveLatestVersion возвращает идентификатор последней версии модели.
// Отсутствие версий — ErrNotFound.
func (c *Client) ResolveLatestVersion(ctx context.Context, modelName string) (string, error) {
	versions, err := c.ListVersions(ctx, modelName, 1, 0)
	if err != nil {
		return "", err
	}
	if len(versions) == 0 {
		return "", fmt.Errorf("%w: model %s has no versions", ErrNotFound, modelName)
	}
	return versions[0].Version, nil
}

// ListVersions возвращает версии модели (идемпотентный GET, с retry).
func (c *Client) ListVersions(ctx context.Context, modelName string, limit, offset int) ([]ModelVersion, error) {
	path := fmt.Sprintf("/models/%s/versions", url.PathEscape(modelName))
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		query.Set("offset", strconv.Itoa(offset))
	}

	body, err := c.do(ctx, http.MethodGet, path, query, nil, true)
	if err != nil {
		return nil, err
	}

	var out struct {
		Versions []ModelVersion `json:"versions"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode versions: %v", ErrUpstream, err)
	}
	return out.Versions, nil
}

// GetVersion возвращает конкретную версию модели (идемпотентный GET, с retry).
func (c *Client) GetVersion(ctx context.Context, modelName, version string) (*ModelVersion, error) {
	path := fmt.Sprintf("/models/%s/versions/%s", url.PathEscape(modelName), url.PathEscape(version))

	body, err := c.do(ctx, http.MethodGet, path, nil, nil, true)
	if err != nil {
		return nil, err
	}

	var out ModelVersion
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode version: %v", ErrUpstream, err)
	}
	return &out, nil
}

// RegisterVersion регистрирует новую версию модели.
// Неидемпотентная запись: не повторяется автоматически,
// чтобы не создать дубликат регистрации.
func (c *Client) RegisterVersion(ctx context.Context, modelName, version, description string, metadata map[string]any) (*ModelVersion, error) {
	path := fmt.Sprintf("/models/%s/versions", url.PathEscape(modelName))
	payload := map[string]any{
		"version":     version,
		"description": description,
		"metadata":    metadata,
	}
	if metadata == nil {
		payload["metadata"] = map[string]any{}
	}

	body, err := c.do(ctx, http.MethodPost, path, nil, payload, false)
	if err != nil {
		return nil, err
	}

	var out ModelVersion
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode registered version: %v", ErrUpstream, err)
	}
	return &out, nil
}

// UpdateVersion обновляет описание/метаданные версии (PATCH, без retry).
func (c *Client) UpdateVersion(ctx context.Context, modelName, version string, description string, metadata map[string]any) (*ModelVersion, error) {
	path := fmt.Sprintf("/models/%s/versions/%s", url.PathEscape(modelName), url.PathEscape(version))
	payload := map[string]any{}
	if description != "" {
		payload["description"] = description
	}
	if metadata != nil {
		payload["metadata"] = metadata
	}

	body, err := c.do(ctx, http.MethodPatch, path, nil, payload, false)
	if err != nil {
		return nil, err
	}

	var out ModelVersion
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode updated version: %v", ErrUpstream, err)
	}
	return &out, nil
}

// RecordStageTransition фиксирует переход версии модели между стадиями
// ("staging" → "production"). Неидемпотентная запись, без retry.
func (c *Client) RecordStageTransition(ctx context.Context, modelName, version, stage, description string) error {
	payload := map[string]any{
		"name":        modelName,
		"version":     version,
		"stage":       stage,
		"description": description,
	}

	_, err := c.do(ctx, http.MethodPost, "/model-versions/set-stage", nil, payload, false)
	return err
}

// HealthURL возвращает адрес health-эндпоинта реестра
// (для Readiness Sensor'а конвейера).
func (c *Client) HealthURL() string {
	return c.baseURL + "/health"
}

// do выполняет запрос к реестру.
//
// retryable=true — идемпотентный запрос: 5xx и сетевые ошибки
// повторяются до maxAttempts с линейным backoff (delay * номер попытки).
// 404 → ErrNotFound, прочие 4xx → ErrValidation — без retry.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload any, retryable bool) ([]byte, error) {
	reqURL := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody []byte
	if payload != nil {
		var err error
		reqBody, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
	}

	maxAttempts := 1
	if retryable {
		maxAttempts = c.maxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			delay := c.retryDelay * time.Duration(attempt-1)
			c.logger.Debug("retrying registry request",
				"method", method,
				"path", path,
				"attempt", attempt,
				"delay", delay,
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, retryAgain, err := c.attempt(ctx, method, reqURL, reqBody)
		if err == nil {
			return body, nil
		}
		if !retryAgain {
			return nil, err
		}
		lastErr = err
	}

	if maxAttempts == 1 {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, lastErr)
	}
	return nil, fmt.Errorf("%w: %d attempts exhausted: %v", ErrUpstream, maxAttempts, lastErr)
}

// attempt выполняет одну попытку запроса.
// Второе возвращаемое значение — можно ли повторять.
func (c *Client) attempt(ctx context.Context, method, reqURL string, reqBody []byte) ([]byte, bool, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		bodyReader = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, false, fmt.Errorf("build request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, false, ctx.Err()
		}
		return nil, true, fmt.Errorf("request %s %s: %w", method, reqURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return respBody, false, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, fmt.Errorf("%w: %s", ErrNotFound, truncate(respBody, 200))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return nil, false, fmt.Errorf("%w: HTTP %d: %s", ErrValidation, resp.StatusCode, truncate(respBody, 200))
	default:
		return nil, true, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(respBody, 200))
	}
}

// truncate обрезает тело ответа для сообщений об ошибках.
func truncate(b []byte, maxLen int) string {
	s := string(b)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
