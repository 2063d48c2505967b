package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/zetareticula/modelflow/internal/domain"
	"github.com/zetareticula/modelflow/internal/executor"
	"github.com/zetareticula/modelflow/internal/graph"
	"github.com/zetareticula/modelflow/internal/registry"
	"github.com/zetareticula/modelflow/internal/sensor"
)

// Идентификаторы стадий конвейера релиза.
const (
	StageStart           = "start_pipeline"
	StageCheckRegistry   = "check_model_registry"
	StageGetLatestModel  = "get_latest_model"
	StageIngest          = "ingest_model"
	StageQuantize        = "quantize_model"
	StageValidate        = "validate_model"
	StageDeploy          = "deploy_model"
	StageAwaitDeployment = "await_deployment"
	StageTest            = "test_model"
	StageRecordRelease   = "record_release"
)

// KeyModelVersion — ключ версии модели в Context Store.
// Записывается стадией get_latest_model, читается всеми последующими.
const KeyModelVersion = "model_version"

// versionPlaceholder — плейсхолдер версии в параметрах стадий.
var versionPlaceholder = fmt.Sprintf(`{{ output %q %q }}`, StageGetLatestModel, KeyModelVersion)

// ReleaseConfig — конфигурация конвейера релиза.
type ReleaseConfig struct {
	// Run — параметры запуска (retry, таймауты, владелец).
	Run domain.RunConfig

	// Environment — имя окружения для параметров jobs.
	Environment string

	// Namespace — пространство имён внешних jobs.
	Namespace string

	// ImagePrefix — префикс контейнерных образов стадий.
	ImagePrefix string

	// Registry — клиент реестра моделей.
	Registry *registry.Client

	// ModelName — имя модели, версию которой разрешает конвейер.
	ModelName string

	// ServiceURL — адрес inference-сервиса (проверка готовности деплоя).
	ServiceURL string

	// Runtime — job runtime для compute-стадий.
	Runtime executor.JobRuntime

	// WaitPollInterval/WaitTimeout — параметры wait-стадий
	// (0 — умолчания Readiness Sensor'а: 30s / 300s).
	WaitPollInterval time.Duration
	WaitTimeout      time.Duration

	// ReleaseStage — целевая стадия версии в реестре после прогона
	// (default: "production").
	ReleaseStage string

	// Logger — логгер.
	Logger *slog.Logger
}

// BuildRelease строит граф конвейера релиза и привязки payload'ов.
//
// Возвращённый граф провалидирован и запечатан: его можно передавать
// Executor'у на выполнение многократно.
func BuildRelease(cfg ReleaseConfig) (*graph.Graph, executor.Bindings, error) {
	if cfg.Registry == nil {
		return nil, nil, fmt.Errorf("release pipeline: registry client is required")
	}
	if cfg.Runtime == nil {
		return nil, nil, fmt.Errorf("release pipeline: job runtime is required")
	}
	if cfg.ModelName == "" {
		return nil, nil, fmt.Errorf("release pipeline: model name is required")
	}

	releaseStage := cfg.ReleaseStage
	if releaseStage == "" {
		releaseStage = "production"
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Wait-стадии не повторяются политикой retry: опрос с таймаутом —
	// внутренний цикл сенсора, а его таймаут терминален.
	waitPolicy := &domain.RetryPolicy{
		MaxAttempts: 1,
		Timeout:     cfg.WaitTimeout,
	}

	g := graph.New()

	stages := []*domain.Stage{
		{ID: StageStart, Name: "Start pipeline", Kind: domain.KindSentinel},
		{ID: StageCheckRegistry, Name: "Check model registry", Kind: domain.KindWait, Retry: waitPolicy},
		{ID: StageGetLatestModel, Name: "Resolve latest model version", Kind: domain.KindCompute},
		{ID: StageIngest, Name: "Ingest model", Kind: domain.KindCompute},
		{ID: StageQuantize, Name: "Quantize model", Kind: domain.KindCompute},
		{ID: StageValidate, Name: "Validate model", Kind: domain.KindCompute},
		{ID: StageDeploy, Name: "Deploy model", Kind: domain.KindCompute},
		{ID: StageAwaitDeployment, Name: "Await deployment readiness", Kind: domain.KindWait, Retry: waitPolicy},
		{ID: StageTest, Name: "Test deployed model", Kind: domain.KindCompute},
		{ID: StageRecordRelease, Name: "Record release in registry", Kind: domain.KindCompute},
	}
	for _, st := range stages {
		if err := g.AddStage(st); err != nil {
			return nil, nil, err
		}
	}

	chain := []string{
		StageStart, StageCheckRegistry, StageGetLatestModel,
		StageIngest, StageQuantize, StageValidate,
		StageDeploy, StageAwaitDeployment, StageTest, StageRecordRelease,
	}
	for i := 1; i < len(chain); i++ {
		if err := g.AddEdge(chain[i-1], chain[i]); err != nil {
			return nil, nil, err
		}
	}

	if err := g.Validate(); err != nil {
		return nil, nil, err
	}

	logger.Debug("release pipeline built",
		"model", cfg.ModelName,
		"owner", cfg.Run.Owner,
		"stages", g.Size(),
		"release_stage", releaseStage,
	)

	bindings := executor.Bindings{
		StageCheckRegistry: &executor.WaitPayload{
			Probe:        &sensor.HealthProbe{URL: cfg.Registry.HealthURL()},
			PollInterval: cfg.WaitPollInterval,
			Timeout:      cfg.WaitTimeout,
		},

		StageGetLatestModel: resolveVersionPayload(cfg.Registry, cfg.ModelName),

		StageIngest: &executor.ComputePayload{
			Runtime: cfg.Runtime,
			Job: domain.JobSpec{
				Name:  StageIngest,
				Image: cfg.ImagePrefix + "/ingest:latest",
				Command: []string{
					"python", "-m", "ingest.main",
					"--model", versionPlaceholder,
					"--env", cfg.Environment,
				},
				Env: map[string]string{
					"LOG_LEVEL":      "INFO",
					"MODEL_REGISTRY": cfg.ImagePrefix,
				},
				Resources: domain.ResourceLimits{
					RequestMemory: "2Gi",
					RequestCPU:    "1",
					LimitMemory:   "4Gi",
					LimitCPU:      "2",
				},
			},
		},

		StageQuantize: &executor.ComputePayload{
			Runtime: cfg.Runtime,
			Job: domain.JobSpec{
				Name:  StageQuantize,
				Image: cfg.ImagePrefix + "/quantize:latest",
				Command: []string{
					"python", "-m", "quantize.main",
					"--input", "/data/model.bin",
					"--output", "/data/quantized_model.bin",
					"--bits", "8",
				},
				Env: map[string]string{
					"LOG_LEVEL":     "INFO",
					"MODEL_VERSION": versionPlaceholder,
				},
				Resources: domain.ResourceLimits{
					RequestMemory: "4Gi",
					RequestCPU:    "2",
					LimitMemory:   "8Gi",
					LimitCPU:      "4",
				},
			},
		},

		StageValidate: &executor.ComputePayload{
			Runtime: cfg.Runtime,
			Job: domain.JobSpec{
				Name:  StageValidate,
				Image: cfg.ImagePrefix + "/validate:latest",
				Command: []string{
					"python", "-m", "validate.main",
					"--model_path", "/data/quantized_model.bin",
					"--threshold", "0.95",
				},
				Env: map[string]string{
					"LOG_LEVEL":     "INFO",
					"MODEL_VERSION": versionPlaceholder,
				},
				Resources: domain.ResourceLimits{
					RequestMemory: "2Gi",
					RequestCPU:    "1",
					LimitMemory:   "4Gi",
					LimitCPU:      "2",
				},
			},
		},

		StageDeploy: &executor.ComputePayload{
			Runtime: cfg.Runtime,
			Job: domain.JobSpec{
				Name:  StageDeploy,
				Image: cfg.ImagePrefix + "/deploy:latest",
				Command: []string{
					"python", "-m", "deploy.main",
					"--model_path", "/data/quantized_model.bin",
					"--environment", cfg.Environment,
				},
				Env: map[string]string{
					"LOG_LEVEL":      "INFO",
					"KUBE_NAMESPACE": cfg.Namespace,
					"MODEL_VERSION":  versionPlaceholder,
				},
				Resources: domain.ResourceLimits{
					RequestMemory: "1Gi",
					RequestCPU:    "0.5",
					LimitMemory:   "2Gi",
					LimitCPU:      "1",
				},
			},
		},

		StageAwaitDeployment: &executor.WaitPayload{
			Probe:        &sensor.HealthProbe{URL: cfg.ServiceURL + "/health"},
			PollInterval: cfg.WaitPollInterval,
			Timeout:      cfg.WaitTimeout,
		},

		StageTest: &executor.ComputePayload{
			Runtime: cfg.Runtime,
			Job: domain.JobSpec{
				Name:  StageTest,
				Image: cfg.ImagePrefix + "/test:latest",
				Command: []string{
					"pytest",
					"/tests/integration/test_model.py",
					"--model-version=" + versionPlaceholder,
					"-v",
				},
				Env: map[string]string{
					"LOG_LEVEL":   "INFO",
					"ENVIRONMENT": cfg.Environment,
					"SERVICE_URL": cfg.ServiceURL,
				},
				Resources: domain.ResourceLimits{
					RequestMemory: "1Gi",
					RequestCPU:    "0.5",
					LimitMemory:   "2Gi",
					LimitCPU:      "1",
				},
			},
		},

		StageRecordRelease: recordReleasePayload(cfg.Registry, cfg.ModelName, releaseStage),
	}

	return g, bindings, nil
}

// resolveVersionPayload разрешает последнюю версию модели через реестр
// и публикует её в Context Store под ключом model_version.
func resolveVersionPayload(client *registry.Client, modelName string) executor.Invoker {
	return executor.InvokerFunc(func(ctx context.Context, env *executor.Env) (*executor.Result, error) {
		version, err := client.ResolveLatestVersion(ctx, modelName)
		if err != nil {
			return nil, fmt.Errorf("resolve latest version of %s: %w", modelName, err)
		}

		env.Logger.Info("resolved model version", "model", modelName, "version", version)

		return &executor.Result{
			Outputs: map[string]string{KeyModelVersion: version},
		}, nil
	})
}

// recordReleasePayload фиксирует в реестре переход версии
// в целевую стадию после успешного прогона конвейера.
func recordReleasePayload(client *registry.Client, modelName, releaseStage string) executor.Invoker {
	return executor.InvokerFunc(func(ctx context.Context, env *executor.Env) (*executor.Result, error) {
		version, err := env.Output(StageGetLatestModel, KeyModelVersion)
		if err != nil {
			return nil, err
		}

		description := fmt.Sprintf("released by run %s", env.Run.ID)
		if err := client.RecordStageTransition(ctx, modelName, version, releaseStage, description); err != nil {
			return nil, fmt.Errorf("record release of %s %s: %w", modelName, version, err)
		}

		env.Logger.Info("release recorded", "model", modelName, "version", version, "stage", releaseStage)

		return &executor.Result{}, nil
	})
}
