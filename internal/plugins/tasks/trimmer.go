package tasks

import (
	"context"
	"log/slog"

	"github.com/jmylchreest/amm-core/internal/core"
)

// Trimmer advances files through the PROCESS stage alongside Normalizer.
// Grounded on src/plugins/tasks/trimmer.py, whose silence_trimmer audio_util
// does the actual waveform trimming; that DSP is the concrete-DSP Non-goal,
// so this is a stub-contract implementation, same posture as Normalizer.
type Trimmer struct {
	tracker StageCompleter
	batch   core.Batch
	logger  *slog.Logger
}

// NewTrimmer constructs the registry.TaskConstructor for Trimmer. It
// declares no audio-utility dependency.
func NewTrimmer(tracker StageCompleter, logger *slog.Logger) func([]core.AudioUtility, core.Batch, map[string]any) (core.Task, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(utils []core.AudioUtility, batch core.Batch, kwargs map[string]any) (core.Task, error) {
		return &Trimmer{tracker: tracker, batch: batch, logger: logger}, nil
	}
}

func TrimmerMeta() core.PluginMeta {
	return core.PluginMeta{
		Kind:        core.PluginTask,
		Name:        "trimmer",
		Description: "trims silence from imported files",
		Version:     "1.0.0",
		Author:      "amm-core",
		TaskType:    core.TaskTypeTrimmer,
		StageType:   core.Process,
		StageName:   core.Process.String(),
		Exclusive:   boolPtr(false),
		HeavyIO:     boolPtr(true),
	}
}

func (t *Trimmer) Meta() core.PluginMeta { return TrimmerMeta() }

// Run advances every file in the batch past PROCESS.
func (t *Trimmer) Run(ctx context.Context) error {
	if t.batch.Kind != core.BatchFileIDs {
		return nil
	}
	for _, id := range t.batch.FileIDs {
		if err := t.tracker.CompleteStageForFile(ctx, id, "trimmer"); err != nil {
			t.logger.ErrorContext(ctx, "trimmer: stage completion failed", slog.String("file_id", id), slog.String("error", err.Error()))
		}
	}
	return nil
}
