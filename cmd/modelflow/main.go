// Modelflow — оркестратор конвейера релиза моделей Zeta Reticula.
//
// Использование:
//
//	modelflow [--json] <command> [flags]
//
// Команды:
//
//	run   Выполнить конвейер релиза
//	plan  Показать план выполнения
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zetareticula/modelflow/internal/cli"
	"github.com/zetareticula/modelflow/internal/config"
	"github.com/zetareticula/modelflow/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	telemetry.SetupLogger()

	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "modelflow",
		Short:         "Modelflow — model release pipeline orchestrator",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	settingsFn := func() config.Settings { return config.FromEnv() }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewRunCmd(settingsFn, outputFn),
		cli.NewPlanCmd(settingsFn, outputFn),
	)

	// Отмена по SIGINT/SIGTERM: выполняющийся run завершается
	// пометкой незаконченных стадий как SKIPPED.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
