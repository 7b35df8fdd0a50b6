package tasks

import (
	"context"
	"log/slog"

	"github.com/jmylchreest/amm-core/internal/core"
)

// Deduper advances files through the PROCESS stage alongside Normalizer and
// Trimmer. Grounded on src/plugins/tasks/deduper.py, whose dedupe_files
// audio_util compares audio quality to pick a winner among duplicates; that
// comparison is concrete-DSP work and a Non-goal, so this is a
// stub-contract implementation, same posture as Normalizer.
type Deduper struct {
	tracker StageCompleter
	batch   core.Batch
	logger  *slog.Logger
}

// NewDeduper constructs the registry.TaskConstructor for Deduper. It
// declares no audio-utility dependency.
func NewDeduper(tracker StageCompleter, logger *slog.Logger) func([]core.AudioUtility, core.Batch, map[string]any) (core.Task, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(utils []core.AudioUtility, batch core.Batch, kwargs map[string]any) (core.Task, error) {
		return &Deduper{tracker: tracker, batch: batch, logger: logger}, nil
	}
}

func DeduperMeta() core.PluginMeta {
	return core.PluginMeta{
		Kind:        core.PluginTask,
		Name:        "deduper",
		Description: "eliminates duplicate files based on audio quality",
		Version:     "1.0.0",
		Author:      "amm-core",
		TaskType:    core.TaskTypeDeduper,
		StageType:   core.Process,
		StageName:   core.Process.String(),
		Exclusive:   boolPtr(false),
		HeavyIO:     boolPtr(true),
	}
}

func (t *Deduper) Meta() core.PluginMeta { return DeduperMeta() }

// Run advances every file in the batch past PROCESS.
func (t *Deduper) Run(ctx context.Context) error {
	if t.batch.Kind != core.BatchFileIDs {
		return nil
	}
	for _, id := range t.batch.FileIDs {
		if err := t.tracker.CompleteStageForFile(ctx, id, "deduper"); err != nil {
			t.logger.ErrorContext(ctx, "deduper: stage completion failed", slog.String("file_id", id), slog.String("error", err.Error()))
		}
	}
	return nil
}
