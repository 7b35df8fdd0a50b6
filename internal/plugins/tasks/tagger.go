package tasks

import (
	"context"
	"log/slog"

	"github.com/jmylchreest/amm-core/internal/core"
	"github.com/jmylchreest/amm-core/internal/models"
	"github.com/jmylchreest/amm-core/internal/plugins/audioutils"
)

// TagFileReader is the repository surface Tagger needs: the file itself
// plus the track/album it was resolved to by Parser.
type TagFileReader interface {
	GetByID(ctx context.Context, id string) (*models.File, error)
	GetTrackByID(ctx context.Context, id models.ULID) (*models.Track, error)
	GetAlbumByID(ctx context.Context, id models.ULID) (*models.Album, error)
}

// Tagger writes metadata tags for each file in its batch via the injected
// tagger utility. Grounded on src/plugins/tasks/tagger.py.
type Tagger struct {
	writer  *audioutils.TagWriter
	files   TagFileReader
	tracker StageCompleter
	batch   core.Batch
	logger  *slog.Logger
}

// NewTagger constructs the registry.TaskConstructor for Tagger.
func NewTagger(files TagFileReader, tracker StageCompleter, logger *slog.Logger) func([]core.AudioUtility, core.Batch, map[string]any) (core.Task, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(utils []core.AudioUtility, batch core.Batch, kwargs map[string]any) (core.Task, error) {
		w, ok := utils[0].(*audioutils.TagWriter)
		if !ok {
			return nil, &core.DependencyUnavailableError{Dependency: "tagger"}
		}
		return &Tagger{writer: w, files: files, tracker: tracker, batch: batch, logger: logger}, nil
	}
}

func TaggerMeta() core.PluginMeta {
	return core.PluginMeta{
		Kind:        core.PluginTask,
		Name:        "tagger",
		Description: "writes metadata tags to imported files",
		Version:     "1.0.0",
		Author:      "amm-core",
		TaskType:    core.TaskTypeTagger,
		StageType:   core.TagWrite,
		StageName:   core.TagWrite.String(),
		Depends:     []string{"tagger"},
		Exclusive:   boolPtr(false),
		HeavyIO:     boolPtr(true),
	}
}

func (t *Tagger) Meta() core.PluginMeta { return TaggerMeta() }

// Run writes tags for each file in the batch, deriving them from the
// Track/Album it was resolved to by Parser if one exists.
func (t *Tagger) Run(ctx context.Context) error {
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

		tags := audioutils.Tags{Title: f.Path}
		if f.TrackID != nil {
			track, err := t.files.GetTrackByID(ctx, *f.TrackID)
			if err != nil {
				t.logger.ErrorContext(ctx, "tagger: track lookup failed", slog.String("file_id", id), slog.String("error", err.Error()))
			} else if track != nil {
				tags.Title = track.Title
				if track.AlbumID != nil {
					album, err := t.files.GetAlbumByID(ctx, *track.AlbumID)
					if err != nil {
						t.logger.ErrorContext(ctx, "tagger: album lookup failed", slog.String("file_id", id), slog.String("error", err.Error()))
					} else if album != nil {
						tags.Album = album.Name
					}
				}
			}
		}

		if err := t.writer.WriteTags(ctx, f.Path, tags); err != nil {
			t.logger.ErrorContext(ctx, "tagger: write failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		if err := t.tracker.CompleteStageForFile(ctx, id, "tagger"); err != nil {
			t.logger.ErrorContext(ctx, "tagger: stage completion failed", slog.String("file_id", id), slog.String("error", err.Error()))
		}
	}
	return nil
}
