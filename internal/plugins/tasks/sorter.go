package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jmylchreest/amm-core/internal/core"
	"github.com/jmylchreest/amm-core/internal/models"
)

// SorterFileMover is the repository surface Sorter needs: reading a file's
// resolved track/album, and recording its path once moved.
type SorterFileMover interface {
	GetByID(ctx context.Context, id string) (*models.File, error)
	GetTrackByID(ctx context.Context, id models.ULID) (*models.Track, error)
	GetAlbumByID(ctx context.Context, id models.ULID) (*models.Album, error)
	SetPath(ctx context.Context, id string, path string) error
}

// Sorter moves each file in its batch into the canonical library tree
// rooted at LibraryDir, built from the Track/Album it was resolved to.
// Unlike the stubbed Normalizer/Converter, moving a file into place is plain
// filesystem bookkeeping, not concrete audio DSP, so this does the real
// work rather than stubbing it. Grounded on src/plugins/tasks/sorter.py.
type Sorter struct {
	libraryDir string
	files      SorterFileMover
	tracker    StageCompleter
	batch      core.Batch
	logger     *slog.Logger
}

// NewSorter constructs the registry.TaskConstructor for Sorter.
func NewSorter(libraryDir string, files SorterFileMover, tracker StageCompleter, logger *slog.Logger) func([]core.AudioUtility, core.Batch, map[string]any) (core.Task, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(utils []core.AudioUtility, batch core.Batch, kwargs map[string]any) (core.Task, error) {
		return &Sorter{libraryDir: libraryDir, files: files, tracker: tracker, batch: batch, logger: logger}, nil
	}
}

func SorterMeta() core.PluginMeta {
	return core.PluginMeta{
		Kind:        core.PluginTask,
		Name:        "sorter",
		Description: "sorts imported files into the library directory structure",
		Version:     "1.0.0",
		Author:      "amm-core",
		TaskType:    core.TaskTypeSorter,
		StageType:   core.Sort,
		StageName:   core.Sort.String(),
		Exclusive:   boolPtr(false),
		HeavyIO:     boolPtr(true),
	}
}

func (t *Sorter) Meta() core.PluginMeta { return SorterMeta() }

var unsafePathChars = regexp.MustCompile(`[\\/:*?"<>|]`)

func cleanPathSegment(s string) string {
	s = unsafePathChars.ReplaceAllString(s, "-")
	s = strings.TrimSpace(s)
	if s == "" {
		return "Unknown"
	}
	return s
}

// targetPath builds album/title.ext under libraryDir, falling back to
// "[unsorted]"/the file's own base name when no track/album was resolved.
func (t *Sorter) targetPath(f *models.File, track *models.Track, album *models.Album) string {
	albumName := "[unsorted]"
	if album != nil {
		albumName = album.Name
	}
	title := strings.TrimSuffix(filepath.Base(f.Path), filepath.Ext(f.Path))
	if track != nil {
		title = track.Title
	}
	return filepath.Join(t.libraryDir, cleanPathSegment(albumName), cleanPathSegment(title)+filepath.Ext(f.Path))
}

// Run moves every file in the batch to its computed target path.
func (t *Sorter) Run(ctx context.Context) error {
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

		var track *models.Track
		var album *models.Album
		if f.TrackID != nil {
			track, err = t.files.GetTrackByID(ctx, *f.TrackID)
			if err != nil {
				t.logger.ErrorContext(ctx, "sorter: track lookup failed", slog.String("file_id", id), slog.String("error", err.Error()))
			} else if track != nil && track.AlbumID != nil {
				album, err = t.files.GetAlbumByID(ctx, *track.AlbumID)
				if err != nil {
					t.logger.ErrorContext(ctx, "sorter: album lookup failed", slog.String("file_id", id), slog.String("error", err.Error()))
				}
			}
		}

		target := t.targetPath(f, track, album)
		if err := t.moveFile(f.Path, target); err != nil {
			t.logger.ErrorContext(ctx, "sorter: move failed", slog.String("path", f.Path), slog.String("target", target), slog.String("error", err.Error()))
			continue
		}
		if err := t.files.SetPath(ctx, id, target); err != nil {
			t.logger.ErrorContext(ctx, "sorter: recording new path failed", slog.String("file_id", id), slog.String("error", err.Error()))
			continue
		}
		if err := t.tracker.CompleteStageForFile(ctx, id, "sorter"); err != nil {
			t.logger.ErrorContext(ctx, "sorter: stage completion failed", slog.String("file_id", id), slog.String("error", err.Error()))
		}
	}
	return nil
}

func (t *Sorter) moveFile(src, dst string) error {
	if src == dst {
		return nil
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("target already exists: %s", dst)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("creating target directory: %w", err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("renaming file: %w", err)
	}
	return nil
}
