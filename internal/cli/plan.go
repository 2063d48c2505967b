package cli

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/zetareticula/modelflow/internal/config"
	"github.com/zetareticula/modelflow/internal/pipeline"
	"github.com/zetareticula/modelflow/internal/registry"
	"github.com/zetareticula/modelflow/internal/runtime"
)

// NewPlanCmd создаёт команду просмотра плана выполнения конвейера.
//
// План — топологические батчи графа: стадии одного батча независимы
// и могут выполняться конкурентно.
func NewPlanCmd(settingsFn func() config.Settings, outputFn func() *Output) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the pipeline execution plan without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := settingsFn()
			out := outputFn()
			logger := slog.Default()

			runCfg := config.DefaultRunConfig()
			if err := config.ValidateRunConfig(runCfg); err != nil {
				return fmt.Errorf("run config: %w", err)
			}

			g, _, err := pipeline.BuildRelease(pipeline.ReleaseConfig{
				Run:         runCfg,
				Environment: settings.Environment,
				Namespace:   settings.Namespace,
				ImagePrefix: settings.ImagePrefix,
				Registry:    registry.New(registry.Config{BaseURL: settings.RegistryURL, Logger: logger}),
				ModelName:   settings.ModelName,
				ServiceURL:  settings.ServiceURL,
				Runtime:     &runtime.NopRuntime{Logger: logger},
				Logger:      logger,
			})
			if err != nil {
				return fmt.Errorf("build pipeline: %w", err)
			}

			batches, err := g.Batches()
			if err != nil {
				return err
			}

			headers := []string{"BATCH", "STAGES"}
			rows := make([][]string, len(batches))
			for i, batch := range batches {
				rows[i] = []string{fmt.Sprintf("%d", i+1), strings.Join(batch, ", ")}
			}

			out.Print(headers, rows, batches)

			// Повторные запуски планирует внешний scheduler;
			// ближайшее время — информационное.
			if runCfg.ScheduleDescription != "" {
				next, err := config.NextOccurrence(runCfg, time.Now())
				if err != nil {
					return err
				}
				out.Notice(fmt.Sprintf("Schedule %s, next occurrence %s",
					runCfg.ScheduleDescription, next.Format(time.RFC3339)))
			}
			return nil
		},
	}

	return cmd
}
