package tasks

import (
	"context"
	"log/slog"
	"os"

	"github.com/jmylchreest/amm-core/internal/core"
	"github.com/jmylchreest/amm-core/internal/models"
	"github.com/jmylchreest/amm-core/internal/plugins/audioutils"
)

// FileCreator is the repository surface Importer needs to admit newly
// discovered files into the pipeline.
type FileCreator interface {
	GetByPath(ctx context.Context, path string) (*models.File, error)
	Create(ctx context.Context, path string) (*models.File, error)
}

// ImporterConfig mirrors ImporterConfig.from_config in the reference
// (importer.py): the directory to scan.
type ImporterConfig struct {
	ImportDir string

	// MaxFileSize, if positive, is the largest file (in bytes) the importer
	// will admit; larger files are skipped and left in place for manual
	// handling. Zero means unlimited. Wired from config.ImportConfig.MaxFileSize.
	MaxFileSize int64
}

// Importer discovers new files under ImportDir and admits them as File
// rows, then immediately reports its own completion — it is the sole task
// registered for PREIMPORT, so this advances each newly admitted file to
// IMPORT (spec.md §9 Open Question 3: PRE/POST stages are no-op
// passthroughs until a task claims one).
//
// Grounded on src/plugins/tasks/importer.py. The reference registers
// Importer under stage_type=IMPORT; here it is registered at PREIMPORT
// instead, since that is the stage a freshly created File row actually
// starts at — see DESIGN.md.
type Importer struct {
	cfg     ImporterConfig
	scanner *audioutils.DirectoryScanner
	files   FileCreator
	tracker StageCompleter
	logger  *slog.Logger
}

// NewImporter constructs an Importer. This is the registry.TaskConstructor
// wired by internal/plugins/all.go.
func NewImporter(cfg ImporterConfig, files FileCreator, tracker StageCompleter, logger *slog.Logger) func([]core.AudioUtility, core.Batch, map[string]any) (core.Task, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(utils []core.AudioUtility, batch core.Batch, kwargs map[string]any) (core.Task, error) {
		scanner, ok := utils[0].(*audioutils.DirectoryScanner)
		if !ok {
			return nil, &core.DependencyUnavailableError{Dependency: "directory_scanner"}
		}
		return &Importer{cfg: cfg, scanner: scanner, files: files, tracker: tracker, logger: logger}, nil
	}
}

func ImporterMeta() core.PluginMeta {
	return core.PluginMeta{
		Kind:        core.PluginTask,
		Name:        "importer",
		Description: "scans the import directory and admits new files",
		Version:     "1.0.0",
		Author:      "amm-core",
		TaskType:    core.TaskTypeImporter,
		StageType:   core.PreImport,
		StageName:   core.PreImport.String(),
		Depends:     []string{"directory_scanner"},
		Exclusive:   boolPtr(false),
		HeavyIO:     boolPtr(true),
	}
}

func (t *Importer) Meta() core.PluginMeta { return ImporterMeta() }

// Run discovers files and admits any not already tracked. Per spec.md §8,
// an empty discovery set completes immediately with no side effects.
func (t *Importer) Run(ctx context.Context) error {
	paths, err := t.scanner.Scan(t.cfg.ImportDir)
	if err != nil {
		return err
	}
	for _, path := range paths {
		existing, err := t.files.GetByPath(ctx, path)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if t.cfg.MaxFileSize > 0 {
			info, statErr := os.Stat(path)
			if statErr != nil {
				t.logger.ErrorContext(ctx, "importer: stat failed", slog.String("path", path), slog.String("error", statErr.Error()))
				continue
			}
			if info.Size() > t.cfg.MaxFileSize {
				t.logger.WarnContext(ctx, "importer: file exceeds max_file_size, skipping",
					slog.String("path", path), slog.Int64("size", info.Size()), slog.Int64("limit", t.cfg.MaxFileSize))
				continue
			}
		}
		f, err := t.files.Create(ctx, path)
		if err != nil {
			t.logger.ErrorContext(ctx, "importer: create failed", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		id := f.ID.String()
		if err := t.tracker.CompleteStageForFile(ctx, id, "importer"); err != nil {
			t.logger.ErrorContext(ctx, "importer: stage completion failed", slog.String("file_id", id), slog.String("error", err.Error()))
		}
	}
	return nil
}
