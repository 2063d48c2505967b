package executor

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/zetareticula/modelflow/internal/ctxstore"
	"github.com/zetareticula/modelflow/internal/domain"
)

// Env — окружение вызова стадии.
//
// Передаётся в Invoke каждого payload'а и даёт доступ к Context Store
// от имени текущей стадии: чтение чужих значений проходит проверку
// предков, плейсхолдеры параметров разрешаются через тот же контракт.
type Env struct {
	// Run — выполняемый run.
	Run *domain.Run

	// Stage — стадия, от имени которой выполняется вызов.
	Stage *domain.Stage

	// Store — Context Store текущего run.
	Store *ctxstore.Store

	// Logger — логгер с привязанными run_id/stage_id.
	Logger *slog.Logger
}

// Output читает значение producer/key от имени текущей стадии.
// Работает только для транзитивных предшественников.
func (e *Env) Output(producer, key string) (string, error) {
	return e.Store.Get(e.Stage.ID, producer, key)
}

// Render разрешает плейсхолдеры в строке параметра.
//
// Синтаксис — Go template с функцией output:
//
//	{{ output "get_latest_model" "model_version" }}
//
// Ошибка рендеринга (в том числе нарушение контракта Context Store)
// фатальна для стадии и не подлежит retry.
func (e *Env) Render(text string) (string, error) {
	if !strings.Contains(text, "{{") {
		return text, nil
	}

	tmpl, err := template.New(e.Stage.ID).Funcs(template.FuncMap{
		"output": e.Output,
	}).Parse(text)
	if err != nil {
		return "", fmt.Errorf("%w: parse %q: %v", ErrRenderParams, text, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, nil); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRenderParams, err)
	}
	return buf.String(), nil
}

// RenderList рендерит каждый элемент списка.
func (e *Env) RenderList(values []string) ([]string, error) {
	if values == nil {
		return nil, nil
	}
	out := make([]string, len(values))
	for i, v := range values {
		rendered, err := e.Render(v)
		if err != nil {
			return nil, err
		}
		out[i] = rendered
	}
	return out, nil
}

// RenderMap рендерит значения отображения (ключи остаются как есть).
func (e *Env) RenderMap(values map[string]string) (map[string]string, error) {
	if values == nil {
		return nil, nil
	}
	out := make(map[string]string, len(values))
	for k, v := range values {
		rendered, err := e.Render(v)
		if err != nil {
			return nil, err
		}
		out[k] = rendered
	}
	return out, nil
}
