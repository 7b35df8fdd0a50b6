package tasks

import (
	"context"
	"log/slog"

	"github.com/jmylchreest/amm-core/internal/core"
	"github.com/jmylchreest/amm-core/internal/models"
	"github.com/jmylchreest/amm-core/internal/plugins/audioutils"
)

// FileTrackWriter is the repository surface Parser needs: reading a
// file's path and recording the track it resolves to.
type FileTrackWriter interface {
	GetByID(ctx context.Context, id string) (*models.File, error)
	CreateTrack(ctx context.Context, title string) (*models.Track, error)
	SetTrack(ctx context.Context, fileID string, trackID models.ULID) error
}

// Parser extracts metadata for each file in its batch via the injected
// media_parser utility and records the resulting Track. Grounded on
// src/plugins/tasks/parser.py.
type Parser struct {
	parser  *audioutils.MediaParser
	files   FileTrackWriter
	tracker StageCompleter
	batch   core.Batch
	logger  *slog.Logger
}

// NewParser constructs the registry.TaskConstructor for Parser.
func NewParser(files FileTrackWriter, tracker StageCompleter, logger *slog.Logger) func([]core.AudioUtility, core.Batch, map[string]any) (core.Task, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(utils []core.AudioUtility, batch core.Batch, kwargs map[string]any) (core.Task, error) {
		p, ok := utils[0].(*audioutils.MediaParser)
		if !ok {
			return nil, &core.DependencyUnavailableError{Dependency: "media_parser"}
		}
		return &Parser{parser: p, files: files, tracker: tracker, batch: batch, logger: logger}, nil
	}
}

func ParserMeta() core.PluginMeta {
	return core.PluginMeta{
		Kind:        core.PluginTask,
		Name:        "parser",
		Description: "extracts metadata from imported files",
		Version:     "1.0.0",
		Author:      "amm-core",
		TaskType:    core.TaskTypeParser,
		StageType:   core.Import,
		StageName:   core.Import.String(),
		Depends:     []string{"media_parser"},
		Exclusive:   boolPtr(false),
		HeavyIO:     boolPtr(false),
	}
}

func (t *Parser) Meta() core.PluginMeta { return ParserMeta() }

// Run parses tags for each file ID in the batch and advances its stage.
// An empty batch completes immediately with no side effects (spec.md §8).
func (t *Parser) Run(ctx context.Context) error {
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
		tags, err := t.parser.Parse(ctx, f.Path)
		if err != nil {
			t.logger.ErrorContext(ctx, "parser: parse failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		track, err := t.files.CreateTrack(ctx, tags.Title)
		if err != nil {
			t.logger.ErrorContext(ctx, "parser: track creation failed", slog.String("file_id", id), slog.String("error", err.Error()))
			continue
		}
		if err := t.files.SetTrack(ctx, id, track.ID); err != nil {
			t.logger.ErrorContext(ctx, "parser: set track failed", slog.String("file_id", id), slog.String("error", err.Error()))
			continue
		}
		if err := t.tracker.CompleteStageForFile(ctx, id, "parser"); err != nil {
			t.logger.ErrorContext(ctx, "parser: stage completion failed", slog.String("file_id", id), slog.String("error", err.Error()))
		}
	}
	return nil
}
