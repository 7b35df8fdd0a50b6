package tasks

import (
	"context"
	"log/slog"

	"github.com/jmylchreest/amm-core/internal/core"
)

// Normalizer advances files through the PROCESS stage. Grounded on
// src/plugins/tasks/normalizer.py, whose job is volume-level normalization
// and silence trimming; the actual signal processing those audio_utils
// perform is the concrete-DSP Non-goal, so this is a stub-contract
// implementation: it satisfies the plugin surface (registration, batch
// handling, stage completion) without touching file content, the same
// posture MediaParser/Fingerprinter take.
type Normalizer struct {
	tracker StageCompleter
	batch   core.Batch
	logger  *slog.Logger
}

// NewNormalizer constructs the registry.TaskConstructor for Normalizer. It
// declares no audio-utility dependency.
func NewNormalizer(tracker StageCompleter, logger *slog.Logger) func([]core.AudioUtility, core.Batch, map[string]any) (core.Task, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(utils []core.AudioUtility, batch core.Batch, kwargs map[string]any) (core.Task, error) {
		return &Normalizer{tracker: tracker, batch: batch, logger: logger}, nil
	}
}

func NormalizerMeta() core.PluginMeta {
	return core.PluginMeta{
		Kind:        core.PluginTask,
		Name:        "normalizer",
		Description: "normalizes loudness and trims silence from imported files",
		Version:     "1.0.0",
		Author:      "amm-core",
		TaskType:    core.TaskTypeNormalizer,
		StageType:   core.Process,
		StageName:   core.Process.String(),
		Exclusive:   boolPtr(false),
		HeavyIO:     boolPtr(true),
	}
}

func (t *Normalizer) Meta() core.PluginMeta { return NormalizerMeta() }

// Run advances every file in the batch past PROCESS.
func (t *Normalizer) Run(ctx context.Context) error {
	if t.batch.Kind != core.BatchFileIDs {
		return nil
	}
	for _, id := range t.batch.FileIDs {
		if err := t.tracker.CompleteStageForFile(ctx, id, "normalizer"); err != nil {
			t.logger.ErrorContext(ctx, "normalizer: stage completion failed", slog.String("file_id", id), slog.String("error", err.Error()))
		}
	}
	return nil
}
