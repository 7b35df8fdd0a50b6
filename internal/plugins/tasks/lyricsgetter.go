package tasks

import (
	"context"
	"log/slog"

	"github.com/jmylchreest/amm-core/internal/core"
)

// LyricsGetter advances files through the METADATA stage alongside
// ArtGetter. Grounded on src/plugins/tasks/lyrics_getter.py, whose
// lyricsgetter audio_util calls out to a third-party lyrics provider; no
// such provider is wired into this pack (unlike MusicBrainzClient for
// ArtGetter), so this is a stub-contract implementation rather than a real
// network integration.
type LyricsGetter struct {
	tracker StageCompleter
	batch   core.Batch
	logger  *slog.Logger
}

// NewLyricsGetter constructs the registry.TaskConstructor for LyricsGetter.
// It declares no audio-utility dependency.
func NewLyricsGetter(tracker StageCompleter, logger *slog.Logger) func([]core.AudioUtility, core.Batch, map[string]any) (core.Task, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(utils []core.AudioUtility, batch core.Batch, kwargs map[string]any) (core.Task, error) {
		return &LyricsGetter{tracker: tracker, batch: batch, logger: logger}, nil
	}
}

func LyricsGetterMeta() core.PluginMeta {
	return core.PluginMeta{
		Kind:        core.PluginTask,
		Name:        "lyrics_getter",
		Description: "fetches lyrics for imported tracks",
		Version:     "1.0.0",
		Author:      "amm-core",
		TaskType:    core.TaskTypeLyricsGetter,
		StageType:   core.Metadata,
		StageName:   core.Metadata.String(),
		Exclusive:   boolPtr(false),
		HeavyIO:     boolPtr(true),
	}
}

func (t *LyricsGetter) Meta() core.PluginMeta { return LyricsGetterMeta() }

// Run advances every file in the batch past METADATA. Mirrors ArtGetter's
// handling of a FileIDs batch reaching this stage with no lyrics work of
// its own to do.
func (t *LyricsGetter) Run(ctx context.Context) error {
	if t.batch.Kind != core.BatchFileIDs {
		return nil
	}
	for _, id := range t.batch.FileIDs {
		if err := t.tracker.CompleteStageForFile(ctx, id, "lyrics_getter"); err != nil {
			t.logger.ErrorContext(ctx, "lyrics_getter: stage completion failed", slog.String("file_id", id), slog.String("error", err.Error()))
		}
	}
	return nil
}
