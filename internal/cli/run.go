package cli

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/zetareticula/modelflow/internal/config"
	"github.com/zetareticula/modelflow/internal/domain"
	"github.com/zetareticula/modelflow/internal/executor"
	"github.com/zetareticula/modelflow/internal/notify"
	"github.com/zetareticula/modelflow/internal/pipeline"
	"github.com/zetareticula/modelflow/internal/registry"
	"github.com/zetareticula/modelflow/internal/runtime"
	"github.com/zetareticula/modelflow/internal/telemetry"
)

// NewRunCmd создаёт команду выполнения конвейера релиза.
func NewRunCmd(settingsFn func() config.Settings, outputFn func() *Output) *cobra.Command {
	var (
		dryRun       bool
		concurrency  int
		retries      int
		retryDelay   time.Duration
		waitPoll     time.Duration
		waitTimeout  time.Duration
		releaseStage string
		metricsAddr  string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute the model release pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := settingsFn()
			out := outputFn()
			logger := slog.Default()

			runCfg := config.DefaultRunConfig()
			if retries > 0 {
				runCfg.Retries = retries
			}
			if retryDelay > 0 {
				runCfg.RetryDelay = retryDelay
			}
			if err := config.ValidateRunConfig(runCfg); err != nil {
				return fmt.Errorf("run config: %w", err)
			}

			metrics := telemetry.NewMetrics(nil)
			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
					w.WriteHeader(http.StatusOK)
					w.Write([]byte("ok"))
				})
				mux.Handle("/metrics", promhttp.Handler())
				go func() {
					logger.Info("metrics listening", "addr", metricsAddr)
					if err := http.ListenAndServe(metricsAddr, mux); err != nil {
						logger.Warn("metrics server stopped", "error", err)
					}
				}()
			}

			regClient := registry.New(registry.Config{
				BaseURL: settings.RegistryURL,
				Logger:  logger,
			})

			var rt executor.JobRuntime
			if dryRun {
				rt = &runtime.NopRuntime{Logger: logger}
			} else {
				rt = &runtime.LocalRuntime{InheritEnv: true, Logger: logger}
			}

			g, bindings, err := pipeline.BuildRelease(pipeline.ReleaseConfig{
				Run:              runCfg,
				Environment:      settings.Environment,
				Namespace:        settings.Namespace,
				ImagePrefix:      settings.ImagePrefix,
				Registry:         regClient,
				ModelName:        settings.ModelName,
				ServiceURL:       settings.ServiceURL,
				Runtime:          rt,
				WaitPollInterval: waitPoll,
				WaitTimeout:      waitTimeout,
				ReleaseStage:     releaseStage,
				Logger:           logger,
			})
			if err != nil {
				return fmt.Errorf("build pipeline: %w", err)
			}

			exec := executor.New(executor.Config{
				DefaultRetry: runCfg.RetryPolicy(),
				Concurrency:  concurrency,
				Events:       []executor.EventSink{metrics},
				Logger:       logger,
			})

			run, err := exec.Execute(cmd.Context(), g, bindings)
			if err != nil {
				return err
			}

			sinks := []notify.Sink{notify.NewLogSink(logger)}
			if settings.AMQPURL != "" {
				conn, err := notify.DialAMQP(settings.AMQPURL, logger)
				if err != nil {
					logger.Warn("amqp unavailable, notifying via log only", "error", err)
				} else {
					defer conn.Close()
					sinks = append(sinks, notify.NewAMQPSink(conn, logger))
				}
			}

			notifier := notify.New(notify.Config{
				VersionStage: pipeline.StageGetLatestModel,
				VersionKey:   pipeline.KeyModelVersion,
				Sinks:        sinks,
				Metrics:      metrics,
				Logger:       logger,
			})

			msg, err := notifier.Notify(cmd.Context(), run)
			if err != nil && msg == nil {
				return err
			}

			printRun(out, run, msg)

			if msg.Outcome != domain.OutcomeSuccess {
				return fmt.Errorf("pipeline finished with outcome %s", msg.Outcome)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate and walk the graph without executing jobs")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Maximum concurrently running stages (0 = unlimited)")
	cmd.Flags().IntVar(&retries, "retries", 0, "Override default stage attempt budget")
	cmd.Flags().DurationVar(&retryDelay, "retry-delay", 0, "Override base delay between attempts")
	cmd.Flags().DurationVar(&waitPoll, "wait-poll-interval", 0, "Sensor poll interval (default 30s)")
	cmd.Flags().DurationVar(&waitTimeout, "wait-timeout", 0, "Sensor timeout (default 5m)")
	cmd.Flags().StringVar(&releaseStage, "release-stage", "production", "Target registry stage recorded on success")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve /metrics and /healthz on this address during the run")

	return cmd
}

// printRun выводит терминальные состояния стадий и итог run.
func printRun(out *Output, run *domain.Run, msg *notify.Message) {
	headers := []string{"STAGE", "STATUS", "ATTEMPTS", "ERROR"}
	rows := make([][]string, 0, len(run.Stages))
	for _, id := range run.StageIDs() {
		st := run.Stages[id]
		rows = append(rows, []string{st.ID, string(st.Status), fmt.Sprintf("%d", st.Attempt), st.Error})
	}

	out.Print(headers, rows, struct {
		Run     *domain.Run     `json:"run"`
		Message *notify.Message `json:"message"`
	}{run, msg})

	out.Notice(msg.Text)
}
