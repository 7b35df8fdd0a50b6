package tasks

import (
	"context"
	"log/slog"

	"github.com/jmylchreest/amm-core/internal/core"
)

// MusicBrainzClient mirrors the injected MusicBrainzClientProtocol
// dependency (src/plugins/tasks/art_getter.py): looking up and fetching
// artwork by MusicBrainz ID. Backed in production by
// audioutils.MusicBrainzClient, which fetches from the Cover Art Archive.
type MusicBrainzClient interface {
	Meta() core.PluginMeta
	FetchArt(ctx context.Context, mbid string, kind core.ArtType) ([]byte, error)
}

// ArtGetter fetches cover art for albums/artists/labels named in its
// ArtMap batch. Grounded on src/plugins/tasks/art_getter.py, which
// registers under stage_type=METADATA even though artwork is entity-level,
// not file-level (the reference never resolves this mismatch either). When
// scheduled with a FileIDs batch by the per-file stage-gap scan instead of
// an ArtMap, ArtGetter treats METADATA as satisfied for those files without
// performing any fetch — see DESIGN.md.
type ArtGetter struct {
	client  MusicBrainzClient
	tracker StageCompleter
	batch   core.Batch
	logger  *slog.Logger
}

// NewArtGetter constructs the registry.TaskConstructor for ArtGetter.
func NewArtGetter(tracker StageCompleter, logger *slog.Logger) func([]core.AudioUtility, core.Batch, map[string]any) (core.Task, error) {
	if logger == nil {
		logger = slog.Default()
	}
	return func(utils []core.AudioUtility, batch core.Batch, kwargs map[string]any) (core.Task, error) {
		client, ok := utils[0].(MusicBrainzClient)
		if !ok {
			return nil, &core.DependencyUnavailableError{Dependency: "MusicBrainzClient"}
		}
		return &ArtGetter{client: client, tracker: tracker, batch: batch, logger: logger}, nil
	}
}

func ArtGetterMeta() core.PluginMeta {
	return core.PluginMeta{
		Kind:        core.PluginTask,
		Name:        "art_getter",
		Description: "retrieves album, artist, and label art",
		Version:     "1.0.0",
		Author:      "amm-core",
		TaskType:    core.TaskTypeArtGetter,
		StageType:   core.Metadata,
		StageName:   core.Metadata.String(),
		Depends:     []string{"MusicBrainzClient"},
		Exclusive:   boolPtr(false),
		HeavyIO:     boolPtr(true),
	}
}

func (t *ArtGetter) Meta() core.PluginMeta { return ArtGetterMeta() }

// Run fetches art for an ArtMap batch, or passes through File IDs reaching
// METADATA with no artwork work of their own to do.
func (t *ArtGetter) Run(ctx context.Context) error {
	switch t.batch.Kind {
	case core.BatchArtMap:
		for mbid, kind := range t.batch.ArtMap {
			if _, err := t.client.FetchArt(ctx, mbid, kind); err != nil {
				t.logger.ErrorContext(ctx, "art_getter: fetch failed", slog.String("mbid", mbid), slog.String("error", err.Error()))
			}
		}
		return nil
	case core.BatchFileIDs:
		for _, id := range t.batch.FileIDs {
			if err := t.tracker.CompleteStageForFile(ctx, id, "art_getter"); err != nil {
				t.logger.ErrorContext(ctx, "art_getter: stage completion failed", slog.String("file_id", id), slog.String("error", err.Error()))
			}
		}
		return nil
	default:
		return nil
	}
}
