package tasks

import (
	"context"
	"log/slog"

	"github.com/jmylchreest/amm-core/internal/core"
	"github.com/jmylchreest/amm-core/internal/models"
	"github.com/jmylchreest/amm-core/internal/plugins/audioutils"
)

// FileReader is the narrow repository read surface Fingerprinter needs.
type FileReader interface {
	GetByID(ctx context.Context, id string) (*models.File, error)
}

// Fingerprinter computes a content fingerprint for each file in its batch.
// Grounded on src/plugins/tasks/fingerprinter.py; marked heavy_io since it
// reads full file content (spec.md §4.6/§4.2).
type Fingerprinter struct {
	util    *audioutils.Fingerprinter
	files   FileReader
	tracker StageCompleter
	batch   core.Batch
	logger  *slog.Logger
}

// NewFingerprinter constructs the registry.TaskConstructor for Fingerprinter.
func NewFingerprinter(files FileReader, tracker StageCompleter, logger *slog.Logger) func([]core.AudioUtility, core.Batch, map[string]any) (core.Task, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(utils []core.AudioUtility, batch core.Batch, kwargs map[string]any) (core.Task, error) {
		u, ok := utils[0].(*audioutils.Fingerprinter)
		if !ok {
			return nil, &core.DependencyUnavailableError{Dependency: "fingerprint_file"}
		}
		return &Fingerprinter{util: u, files: files, tracker: tracker, batch: batch, logger: logger}, nil
	}
}

func FingerprinterMeta() core.PluginMeta {
	return core.PluginMeta{
		Kind:        core.PluginTask,
		Name:        "fingerprinter",
		Description: "computes an acoustic content fingerprint for each file",
		Version:     "1.0.0",
		Author:      "amm-core",
		TaskType:    core.TaskTypeFingerprinter,
		StageType:   core.Analyse,
		StageName:   core.Analyse.String(),
		Depends:     []string{"fingerprint_file"},
		Exclusive:   boolPtr(false),
		HeavyIO:     boolPtr(true),
	}
}

func (t *Fingerprinter) Meta() core.PluginMeta { return FingerprinterMeta() }

// Run fingerprints every file in the batch, advancing its stage once done.
func (t *Fingerprinter) Run(ctx context.Context) error {
	if t.batch.Kind != core.BatchFileIDs {
		return nil
	}
	for _, id := range t.batch.FileIDs {
		f, err := t.files.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if f == nil {
			continue
		}
		if _, err := t.util.Fingerprint(ctx, f.Path); err != nil {
			t.logger.ErrorContext(ctx, "fingerprinter: failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		if err := t.tracker.CompleteStageForFile(ctx, id, "fingerprinter"); err != nil {
			t.logger.ErrorContext(ctx, "fingerprinter: stage completion failed", slog.String("file_id", id), slog.String("error", err.Error()))
		}
	}
	return nil
}
