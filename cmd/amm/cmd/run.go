package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/amm-core/internal/core"
	"github.com/jmylchreest/amm-core/internal/observability"
)

// Exit codes per spec.md §6/§7.
const (
	exitOK                  = 0
	exitGenericFailure      = 1
	exitConfigurationError  = 2
	exitPluginValidationErr = 3
)

var (
	runStageName string
	runAll       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline once",
	Long: `Run every task for a single stage (--stage=<NAME>) or the whole pipeline in
order (--all), then exit. Unlike "serve", this does not start processor
loops or the idle loop — it is meant for cron-style external scheduling or
one-off manual passes.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runStageName, "stage", "", "stage name to run (e.g. IMPORT, ANALYSE, CONVERT)")
	runCmd.Flags().BoolVar(&runAll, "all", false, "run every stage in pipeline order")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if runAll == (runStageName != "") {
		return newExitError(exitConfigurationError, errors.New("exactly one of --stage or --all must be given"))
	}

	var stage core.Stage
	if runStageName != "" {
		var ok bool
		stage, ok = core.ParseStage(runStageName)
		if !ok {
			return newExitError(exitConfigurationError, fmt.Errorf("unknown stage %q", runStageName))
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return newExitError(exitConfigurationError, err)
	}

	logger := observability.NewLogger(cfg.Logging)
	observability.SetDefault(logger)

	app, err := newPipelineApp(cfg, logger)
	if err != nil {
		var pve *core.PluginValidationError
		var dup *core.DuplicatePluginError
		if errors.As(err, &pve) || errors.As(err, &dup) {
			return newExitError(exitPluginValidationErr, err)
		}
		return newExitError(exitGenericFailure, err)
	}
	defer app.Close()

	runner := newTrackedTaskRunner(app.Manager, app.TaskRuns, logger)

	ctx := context.Background()
	if runAll {
		err = runner.RunPipeline(ctx)
	} else {
		err = runner.RunStage(ctx, stage)
	}
	if err != nil {
		return newExitError(exitGenericFailure, err)
	}
	return nil
}
