package tasks

import (
	"context"
	"log/slog"

	"github.com/jmylchreest/amm-core/internal/core"
)

// Converter advances files through the CONVERT stage. Grounded on
// src/plugins/tasks/converter_task.py, whose converter_util audio_util
// transcodes between lossy/lossless codecs; actual codec transcoding is
// the concrete-DSP Non-goal, so this is a stub-contract implementation
// matching Normalizer's posture.
type Converter struct {
	tracker StageCompleter
	batch   core.Batch
	logger  *slog.Logger
}

// NewConverter constructs the registry.TaskConstructor for Converter.
func NewConverter(tracker StageCompleter, logger *slog.Logger) func([]core.AudioUtility, core.Batch, map[string]any) (core.Task, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(utils []core.AudioUtility, batch core.Batch, kwargs map[string]any) (core.Task, error) {
		return &Converter{tracker: tracker, batch: batch, logger: logger}, nil
	}
}

func ConverterMeta() core.PluginMeta {
	return core.PluginMeta{
		Kind:        core.PluginTask,
		Name:        "converter",
		Description: "converts imported files to the configured target codec",
		Version:     "1.0.0",
		Author:      "amm-core",
		TaskType:    core.TaskTypeConverter,
		StageType:   core.Convert,
		StageName:   core.Convert.String(),
		Exclusive:   boolPtr(false),
		HeavyIO:     boolPtr(true),
	}
}

func (t *Converter) Meta() core.PluginMeta { return ConverterMeta() }

// Run advances every file in the batch past CONVERT.
func (t *Converter) Run(ctx context.Context) error {
	if t.batch.Kind != core.BatchFileIDs {
		return nil
	}
	for _, id := range t.batch.FileIDs {
		if err := t.tracker.CompleteStageForFile(ctx, id, "converter"); err != nil {
			t.logger.ErrorContext(ctx, "converter: stage completion failed", slog.String("file_id", id), slog.String("error", err.Error()))
		}
	}
	return nil
}
