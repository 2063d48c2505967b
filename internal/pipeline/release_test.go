package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zetareticula/modelflow/internal/domain"
	"github.com/zetareticula/modelflow/internal/executor"
	"github.com/zetareticula/modelflow/internal/notify"
	"github.com/zetareticula/modelflow/internal/registry"
)

// fakeRuntime записывает задания и падает для стадий из failOn.
type fakeRuntime struct {
	mu     sync.Mutex
	jobs   []domain.JobSpec
	failOn map[string]bool
}

func (r *fakeRuntime) Run(ctx context.Context, spec domain.JobSpec) (domain.JobResult, error) {
	r.mu.Lock()
	r.jobs = append(r.jobs, spec)
	r.mu.Unlock()

	if r.failOn[spec.Name] {
		return domain.JobResult{ExitStatus: 1, LogStream: "synthetic failure"}, nil
	}
	return domain.JobResult{ExitStatus: 0}, nil
}

func (r *fakeRuntime) job(name string) (domain.JobSpec, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.Name == name {
			return j, true
		}
	}
	return domain.JobSpec{}, false
}

// fakeRegistry — HTTP-реестр для тестов: health, версии, set-stage.
type fakeRegistry struct {
	srv          *httptest.Server
	transitions  atomic.Int32
	latestFails  atomic.Int32 // сколько первых запросов версий вернут 500
	versionValue string
}

func newFakeRegistry(t *testing.T) *fakeRegistry {
	t.Helper()
	f := &fakeRegistry{versionValue: "zeta-model-v1.0.0"}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/api/v1/models/zeta-model/versions", func(w http.ResponseWriter, _ *http.Request) {
		if f.latestFails.Load() > 0 {
			f.latestFails.Add(-1)
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"versions": []map[string]any{{"version": f.versionValue}},
		})
	})
	mux.HandleFunc("/api/v1/model-versions/set-stage", func(w http.ResponseWriter, _ *http.Request) {
		f.transitions.Add(1)
		w.WriteHeader(http.StatusOK)
	})

	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

// releaseFixture собирает конвейер поверх фейковых реестра и runtime.
func releaseFixture(t *testing.T, reg *fakeRegistry, rt *fakeRuntime, serviceURL string, waitTimeout time.Duration) (*domain.Run, *notify.Message) {
	t.Helper()

	client := registry.New(registry.Config{
		BaseURL:    reg.srv.URL,
		RetryDelay: time.Millisecond,
	})

	runCfg := domain.RunConfig{
		Owner:                   "zeta-team",
		Retries:                 3,
		RetryDelay:              time.Millisecond,
		RetryBackoffExponential: true,
		MaxRetryDelay:           5 * time.Millisecond,
	}

	g, bindings, err := BuildRelease(ReleaseConfig{
		Run:              runCfg,
		Environment:      "test",
		Namespace:        "zeta-reticula",
		ImagePrefix:      "zetareticula",
		Registry:         client,
		ModelName:        "zeta-model",
		ServiceURL:       serviceURL,
		Runtime:          rt,
		WaitPollInterval: time.Millisecond,
		WaitTimeout:      waitTimeout,
	})
	if err != nil {
		t.Fatalf("BuildRelease: %v", err)
	}

	exec := executor.New(executor.Config{DefaultRetry: runCfg.RetryPolicy()})
	run, err := exec.Execute(context.Background(), g, bindings)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	notifier := notify.New(notify.Config{
		VersionStage: StageGetLatestModel,
		VersionKey:   KeyModelVersion,
	})
	msg, err := notifier.Summarize(run)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	return run, msg
}

func okService(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

// --- Build Tests ---

func TestBuildRelease_GraphShape(t *testing.T) {
	reg := newFakeRegistry(t)
	client := registry.New(registry.Config{BaseURL: reg.srv.URL})

	g, bindings, err := BuildRelease(ReleaseConfig{
		Registry:   client,
		ModelName:  "zeta-model",
		ServiceURL: "http://svc",
		Runtime:    &fakeRuntime{},
	})
	if err != nil {
		t.Fatalf("BuildRelease: %v", err)
	}

	if g.Size() != 10 {
		t.Errorf("graph size = %d, want 10", g.Size())
	}
	if !g.Validated() {
		t.Error("graph should be validated")
	}

	// Линейная цепочка: каждый батч — одна стадия.
	batches, _ := g.Batches()
	if len(batches) != 10 {
		t.Errorf("batches = %d, want 10", len(batches))
	}
	if batches[0][0] != StageStart || batches[9][0] != StageRecordRelease {
		t.Errorf("unexpected batch order: %v", batches)
	}

	// Sentinel без привязки, остальные — с payload'ами.
	if _, ok := bindings[StageStart]; ok {
		t.Error("sentinel should have no binding")
	}
	for _, id := range []string{StageCheckRegistry, StageGetLatestModel, StageIngest, StageQuantize, StageValidate, StageDeploy, StageAwaitDeployment, StageTest, StageRecordRelease} {
		if _, ok := bindings[id]; !ok {
			t.Errorf("missing binding for %s", id)
		}
	}
}

func TestBuildRelease_RequiresCollaborators(t *testing.T) {
	if _, _, err := BuildRelease(ReleaseConfig{ModelName: "m", Runtime: &fakeRuntime{}}); err == nil {
		t.Error("expected error without registry client")
	}
	reg := newFakeRegistry(t)
	client := registry.New(registry.Config{BaseURL: reg.srv.URL})
	if _, _, err := BuildRelease(ReleaseConfig{Registry: client, ModelName: "m"}); err == nil {
		t.Error("expected error without runtime")
	}
	if _, _, err := BuildRelease(ReleaseConfig{Registry: client, Runtime: &fakeRuntime{}}); err == nil {
		t.Error("expected error without model name")
	}
}

// --- End-to-End Tests ---

func TestRelease_HappyPath(t *testing.T) {
	reg := newFakeRegistry(t)
	rt := &fakeRuntime{}

	run, msg := releaseFixture(t, reg, rt, okService(t), 100*time.Millisecond)

	if msg.Outcome != domain.OutcomeSuccess {
		t.Fatalf("outcome = %s, stages: %s", msg.Outcome, describeStages(run))
	}
	for _, id := range run.StageIDs() {
		if run.Stages[id].Status != domain.StageSucceeded {
			t.Errorf("%s = %s, want SUCCEEDED", id, run.Stages[id].Status)
		}
	}

	// Версия разрешена из реестра и попала в сообщение.
	if msg.ModelVersion != "zeta-model-v1.0.0" {
		t.Errorf("model version = %q", msg.ModelVersion)
	}
	if !strings.Contains(msg.Text, "zeta-model-v1.0.0") {
		t.Errorf("text = %q", msg.Text)
	}

	// Плейсхолдер версии разрешён в командах jobs.
	ingest, ok := rt.job(StageIngest)
	if !ok {
		t.Fatal("ingest job not executed")
	}
	found := false
	for _, arg := range ingest.Command {
		if arg == "zeta-model-v1.0.0" {
			found = true
		}
	}
	if !found {
		t.Errorf("ingest command missing resolved version: %v", ingest.Command)
	}

	quantize, _ := rt.job(StageQuantize)
	if quantize.Env["MODEL_VERSION"] != "zeta-model-v1.0.0" {
		t.Errorf("quantize env = %v", quantize.Env)
	}
	if quantize.Image != "zetareticula/quantize:latest" {
		t.Errorf("quantize image = %q", quantize.Image)
	}

	// Релиз зафиксирован в реестре.
	if reg.transitions.Load() != 1 {
		t.Errorf("expected 1 stage transition recorded, got %d", reg.transitions.Load())
	}
}

func TestRelease_QuantizeFailureSkipsDownstream(t *testing.T) {
	reg := newFakeRegistry(t)
	rt := &fakeRuntime{failOn: map[string]bool{StageQuantize: true}}

	run, msg := releaseFixture(t, reg, rt, okService(t), 100*time.Millisecond)

	if msg.Outcome != domain.OutcomePartialFailure {
		t.Fatalf("outcome = %s, stages: %s", msg.Outcome, describeStages(run))
	}

	st := run.Stages[StageQuantize]
	if st.Status != domain.StageFailed {
		t.Errorf("quantize = %s, want FAILED", st.Status)
	}
	if st.Attempt != 3 {
		t.Errorf("quantize attempts = %d, want 3 (retry budget)", st.Attempt)
	}

	for _, id := range []string{StageValidate, StageDeploy, StageAwaitDeployment, StageTest, StageRecordRelease} {
		if run.Stages[id].Status != domain.StageSkipped {
			t.Errorf("%s = %s, want SKIPPED", id, run.Stages[id].Status)
		}
	}
	for _, id := range []string{StageStart, StageCheckRegistry, StageGetLatestModel, StageIngest} {
		if run.Stages[id].Status != domain.StageSucceeded {
			t.Errorf("%s = %s, want SUCCEEDED", id, run.Stages[id].Status)
		}
	}

	// Только реально упавшая стадия в сообщении.
	if len(msg.FailedStages) != 1 || msg.FailedStages[0].StageID != StageQuantize {
		t.Errorf("failed stages = %+v", msg.FailedStages)
	}

	// Релиз не зафиксирован.
	if reg.transitions.Load() != 0 {
		t.Errorf("stage transition recorded despite failure: %d", reg.transitions.Load())
	}
}

func TestRelease_DeploymentNeverReady(t *testing.T) {
	reg := newFakeRegistry(t)
	rt := &fakeRuntime{}

	// Inference-сервис отвечает 503: деплой никогда не становится готовым.
	badService := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "warming up", http.StatusServiceUnavailable)
	}))
	t.Cleanup(badService.Close)

	run, msg := releaseFixture(t, reg, rt, badService.URL, 10*time.Millisecond)

	if msg.Outcome != domain.OutcomePartialFailure {
		t.Fatalf("outcome = %s, stages: %s", msg.Outcome, describeStages(run))
	}
	if run.Stages[StageAwaitDeployment].Status != domain.StageTimedOut {
		t.Errorf("await_deployment = %s, want TIMED_OUT", run.Stages[StageAwaitDeployment].Status)
	}
	for _, id := range []string{StageTest, StageRecordRelease} {
		if run.Stages[id].Status != domain.StageSkipped {
			t.Errorf("%s = %s, want SKIPPED", id, run.Stages[id].Status)
		}
	}
	if run.Stages[StageDeploy].Status != domain.StageSucceeded {
		t.Errorf("deploy = %s, want SUCCEEDED", run.Stages[StageDeploy].Status)
	}
}

func TestRelease_RegistryFlakinessAbsorbedByClientRetry(t *testing.T) {
	reg := newFakeRegistry(t)
	reg.latestFails.Store(2) // первые два запроса версий падают 5xx
	rt := &fakeRuntime{}

	run, msg := releaseFixture(t, reg, rt, okService(t), 100*time.Millisecond)

	if msg.Outcome != domain.OutcomeSuccess {
		t.Fatalf("outcome = %s, stages: %s", msg.Outcome, describeStages(run))
	}
	// Retry клиента поглотил сбои: стадия успешна с первой попытки.
	if run.Stages[StageGetLatestModel].Attempt != 1 {
		t.Errorf("get_latest_model attempts = %d, want 1", run.Stages[StageGetLatestModel].Attempt)
	}
}

func describeStages(run *domain.Run) string {
	var b strings.Builder
	for _, id := range run.StageIDs() {
		st := run.Stages[id]
		fmt.Fprintf(&b, "%s=%s(%s) ", id, st.Status, st.Error)
	}
	return b.String()
}
