package processors_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmylchreest/amm-core/internal/core"
	"github.com/jmylchreest/amm-core/internal/core/registry"
	"github.com/jmylchreest/amm-core/internal/plugins/processors"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

type fakeFileLister struct {
	files []processors.FileState
}

func (f fakeFileLister) ListActiveFiles(ctx context.Context) ([]processors.FileState, error) {
	return f.files, nil
}

type fakeArtworkLister struct {
	albums []processors.ArtworkCandidate
}

func (f fakeArtworkLister) ListMissingArtwork(ctx context.Context) (albums, artists, labels []processors.ArtworkCandidate, err error) {
	return f.albums, nil, nil, nil
}

func newTestRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	meta := core.PluginMeta{
		Kind: core.PluginTask, Name: "parser", Description: "parses tags", Version: "1.0.0", Author: "t",
		TaskType: core.TaskTypeParser, StageType: core.Import, StageName: "IMPORT",
		Exclusive: boolPtr(false), HeavyIO: boolPtr(false),
	}
	require.NoError(t, reg.RegisterTask(meta, func(u []core.AudioUtility, b core.Batch, k map[string]any) (core.Task, error) {
		return nil, nil
	}))
	return reg
}

func TestScanner_EmptyEmitsNothingButPrunes(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "empty")
	require.NoError(t, os.MkdirAll(empty, 0o755))

	reg := newTestRegistry(t)
	s := processors.NewScanner(processors.Config{ImportDir: dir}, fakeFileLister{}, fakeArtworkLister{}, reg, nil)

	require.NoError(t, s.Run(context.Background()))
	require.Empty(t, s.CollectEmitted())

	_, err := os.Stat(empty)
	require.True(t, os.IsNotExist(err))
}

func TestScanner_DetectsImportableFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.flac"), []byte("x"), 0o644))

	reg := newTestRegistry(t)
	s := processors.NewScanner(processors.Config{ImportDir: dir}, fakeFileLister{}, fakeArtworkLister{}, reg, nil)

	require.NoError(t, s.Run(context.Background()))
	emitted := s.CollectEmitted()
	require.Len(t, emitted, 1)
	require.Equal(t, "importer", emitted[0].TaskName)
}

func TestScanner_BucketsStageGapsByTask(t *testing.T) {
	reg := newTestRegistry(t)
	files := fakeFileLister{files: []processors.FileState{
		{ID: "f1", Stage: core.Import, CompletedTasks: nil},
		{ID: "f2", Stage: core.Import, CompletedTasks: []string{"parser"}},
	}}
	s := processors.NewScanner(processors.Config{}, files, fakeArtworkLister{}, reg, nil)

	require.NoError(t, s.Run(context.Background()))
	emitted := s.CollectEmitted()
	require.Len(t, emitted, 1)
	require.Equal(t, "parser", emitted[0].TaskName)
	require.Equal(t, []string{"f1"}, emitted[0].Batch.FileIDs, "f2 already completed parser and must be excluded")
}

func TestScanner_SkipsEmptyStagesToFindNextRealWork(t *testing.T) {
	reg := registry.New()
	meta := core.PluginMeta{
		Kind: core.PluginTask, Name: "fingerprinter", Description: "fingerprints files", Version: "1.0.0", Author: "t",
		TaskType: core.TaskTypeFingerprinter, StageType: core.Analyse, StageName: "ANALYSE",
		Exclusive: boolPtr(false), HeavyIO: boolPtr(false),
	}
	require.NoError(t, reg.RegisterTask(meta, func(u []core.AudioUtility, b core.Batch, k map[string]any) (core.Task, error) {
		return nil, nil
	}))

	// PostImport has no registered tasks; StageTracker only ever leaves a
	// file here, it never gets completed against directly. The scanner must
	// still find fingerprinter at ANALYSE, several empty stages ahead.
	files := fakeFileLister{files: []processors.FileState{
		{ID: "f1", Stage: core.PostImport},
	}}
	s := processors.NewScanner(processors.Config{}, files, fakeArtworkLister{}, reg, nil)

	require.NoError(t, s.Run(context.Background()))
	emitted := s.CollectEmitted()
	require.Len(t, emitted, 1)
	require.Equal(t, "fingerprinter", emitted[0].TaskName)
	require.Equal(t, []string{"f1"}, emitted[0].Batch.FileIDs)
}

func TestScanner_SkipsStageAlreadyCompletedAheadOfRecordedStage(t *testing.T) {
	reg := registry.New()
	meta := core.PluginMeta{
		Kind: core.PluginTask, Name: "fingerprinter", Description: "fingerprints files", Version: "1.0.0", Author: "t",
		TaskType: core.TaskTypeFingerprinter, StageType: core.Analyse, StageName: "ANALYSE",
		Exclusive: boolPtr(false), HeavyIO: boolPtr(false),
	}
	require.NoError(t, reg.RegisterTask(meta, func(u []core.AudioUtility, b core.Batch, k map[string]any) (core.Task, error) {
		return nil, nil
	}))

	// f1's recorded Stage lags behind its CompletedTasks (the file's Stage
	// field only advances one hop per completion call); the scanner must
	// not re-bucket fingerprinter once it's already done.
	files := fakeFileLister{files: []processors.FileState{
		{ID: "f1", Stage: core.PostImport, CompletedTasks: []string{"fingerprinter"}},
	}}
	s := processors.NewScanner(processors.Config{}, files, fakeArtworkLister{}, reg, nil)

	require.NoError(t, s.Run(context.Background()))
	require.Empty(t, s.CollectEmitted())
}

func TestScanner_ChunksLargeBucketsByBatchSize(t *testing.T) {
	reg := newTestRegistry(t)
	var files []processors.FileState
	for i := 0; i < 5; i++ {
		files = append(files, processors.FileState{ID: string(rune('a' + i)), Stage: core.Import})
	}
	s := processors.NewScanner(processors.Config{ScannerBatchSize: 2}, fakeFileLister{files: files}, fakeArtworkLister{}, reg, nil)

	require.NoError(t, s.Run(context.Background()))
	emitted := s.CollectEmitted()
	require.Len(t, emitted, 3) // 2 + 2 + 1
	require.Equal(t, 2, emitted[0].Batch.Len())
	require.Equal(t, 1, emitted[2].Batch.Len())
}

func TestScanner_EmitsArtGetterForMissingArtwork(t *testing.T) {
	reg := newTestRegistry(t)
	artwork := fakeArtworkLister{albums: []processors.ArtworkCandidate{{MBID: "mbid-1"}}}
	s := processors.NewScanner(processors.Config{}, fakeFileLister{}, artwork, reg, nil)

	require.NoError(t, s.Run(context.Background()))
	emitted := s.CollectEmitted()
	require.Len(t, emitted, 1)
	require.Equal(t, "art_getter", emitted[0].TaskName)
	require.Equal(t, core.ArtAlbum, emitted[0].Batch.ArtMap["mbid-1"])
}

func TestScannerMeta_IsExclusiveAndHeavyIO(t *testing.T) {
	meta := processors.ScannerMeta()
	require.True(t, meta.IsExclusive())
	require.True(t, meta.IsHeavyIO())
}
