package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/amm-core/internal/observability"
)

var pluginsRecent int

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "List registered audio utilities, tasks, and processors",
	Long: `Print every plugin registered via internal/plugins.Register, supplementing
the reference's registry.list_registered() introspection call.

With --recent, also print the most recent task runs recorded in the
task_runs table.`,
	RunE: runPlugins,
}

func init() {
	pluginsCmd.Flags().IntVar(&pluginsRecent, "recent", 0, "also show the N most recent task runs")
	rootCmd.AddCommand(pluginsCmd)
}

func runPlugins(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return newExitError(exitConfigurationError, err)
	}

	logger := observability.NewLogger(cfg.Logging)
	observability.SetDefault(logger)

	app, err := newPipelineApp(cfg, logger)
	if err != nil {
		return newExitError(exitPluginValidationErr, err)
	}
	defer app.Close()

	catalog := app.Registry.ListRegistered()

	fmt.Println("Audio utilities:")
	for _, name := range catalog.AudioUtils {
		meta, _ := app.Registry.AudioUtilMeta(name)
		fmt.Printf("  %-16s %s\n", name, meta.Description)
	}

	fmt.Println("Tasks:")
	for _, name := range catalog.Tasks {
		meta, _ := app.Registry.TaskMeta(name)
		fmt.Printf("  %-16s stage=%-12s %s\n", name, meta.StageName, meta.Description)
	}

	fmt.Println("Processors:")
	for _, name := range catalog.Processors {
		meta, _ := app.Registry.ProcessorMeta(name)
		fmt.Printf("  %-16s %s\n", name, meta.Description)
	}

	fmt.Println("Stages with registered tasks:")
	for stage, names := range catalog.Stages {
		fmt.Printf("  %-14s %v\n", stage, names)
	}

	if pluginsRecent > 0 {
		runs, err := app.TaskRuns.Recent(context.Background(), pluginsRecent)
		if err != nil {
			return newExitError(exitGenericFailure, fmt.Errorf("listing recent task runs: %w", err))
		}
		fmt.Println("Recent task runs:")
		for _, r := range runs {
			fmt.Printf("  %-20s %-10s files=%-6d %s\n", r.TaskName, r.Status, r.FileCount, r.ID.String())
		}
	}

	return nil
}
