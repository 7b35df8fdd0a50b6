package cmd

import (
	"context"
	"log/slog"

	"github.com/jmylchreest/amm-core/internal/core"
	"github.com/jmylchreest/amm-core/internal/core/taskmanager"
	"github.com/jmylchreest/amm-core/internal/repository"
)

// trackedTaskRunner wraps a taskmanager.Manager to record each stage/
// pipeline invocation as a models.TaskRun row — the supplemented
// observability feature of SPEC_FULL.md, surfaced by `amm plugins --recent`
// and by the `plugins` CLI command's design intent. TaskManager itself
// stays free of persistence concerns; this wrapper is the seam.
type trackedTaskRunner struct {
	manager *taskmanager.Manager
	runs    *repository.TaskRunRepository
	logger  *slog.Logger
}

func newTrackedTaskRunner(manager *taskmanager.Manager, runs *repository.TaskRunRepository, logger *slog.Logger) *trackedTaskRunner {
	return &trackedTaskRunner{manager: manager, runs: runs, logger: logger}
}

func (t *trackedTaskRunner) RunPipeline(ctx context.Context) error {
	return t.record(ctx, "pipeline", func() error {
		return t.manager.RunPipeline(ctx, core.Batch{}, nil)
	})
}

func (t *trackedTaskRunner) RunStage(ctx context.Context, stage core.Stage) error {
	return t.record(ctx, "stage:"+stage.String(), func() error {
		return t.manager.RunStage(ctx, stage, core.Batch{}, nil)
	})
}

func (t *trackedTaskRunner) record(ctx context.Context, name string, run func() error) error {
	id, startErr := t.runs.Start(ctx, name)
	if startErr != nil {
		t.logger.WarnContext(ctx, "taskrun: failed to record start", slog.String("name", name), slog.String("error", startErr.Error()))
	}

	runErr := run()

	if startErr == nil {
		if finishErr := t.runs.Finish(ctx, id, 0, runErr); finishErr != nil {
			t.logger.WarnContext(ctx, "taskrun: failed to record finish", slog.String("name", name), slog.String("error", finishErr.Error()))
		}
	}
	return runErr
}
