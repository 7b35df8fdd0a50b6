package tasks_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmylchreest/amm-core/internal/core"
	"github.com/jmylchreest/amm-core/internal/models"
	"github.com/jmylchreest/amm-core/internal/plugins/tasks"
	"github.com/stretchr/testify/require"
)

type fakeSorterFileMover struct {
	files  map[string]*models.File
	tracks map[models.ULID]*models.Track
	albums map[models.ULID]*models.Album
	paths  map[string]string
}

func (f *fakeSorterFileMover) GetByID(ctx context.Context, id string) (*models.File, error) {
	return f.files[id], nil
}

func (f *fakeSorterFileMover) GetTrackByID(ctx context.Context, id models.ULID) (*models.Track, error) {
	return f.tracks[id], nil
}

func (f *fakeSorterFileMover) GetAlbumByID(ctx context.Context, id models.ULID) (*models.Album, error) {
	return f.albums[id], nil
}

func (f *fakeSorterFileMover) SetPath(ctx context.Context, id string, path string) error {
	if f.paths == nil {
		f.paths = map[string]string{}
	}
	f.paths[id] = path
	return nil
}

func TestSorter_MovesFileIntoAlbumTitleTree(t *testing.T) {
	srcDir := t.TempDir()
	libraryDir := t.TempDir()
	src := filepath.Join(srcDir, "track01.flac")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	trackID := models.NewULID()
	albumID := models.NewULID()
	fileID := "f1"

	mover := &fakeSorterFileMover{
		files:  map[string]*models.File{fileID: {Path: src, TrackID: &trackID}},
		tracks: map[models.ULID]*models.Track{trackID: {Title: "Great Song", AlbumID: &albumID}},
		albums: map[models.ULID]*models.Album{albumID: {Name: "Great Album"}},
	}

	tracker := &fakeTracker{}
	ctor := tasks.NewSorter(libraryDir, mover, tracker, nil)
	task, err := ctor(nil, core.Batch{Kind: core.BatchFileIDs, FileIDs: []string{fileID}}, nil)
	require.NoError(t, err)

	require.NoError(t, task.Run(context.Background()))

	want := filepath.Join(libraryDir, "Great Album", "Great Song.flac")
	require.Equal(t, want, mover.paths[fileID])
	_, err = os.Stat(want)
	require.NoError(t, err)
	_, err = os.Stat(src)
	require.True(t, os.IsNotExist(err))
	require.Equal(t, []string{fileID + "/sorter"}, tracker.completed)
}

func TestSorter_FallsBackToUnsortedWhenNoAlbumResolved(t *testing.T) {
	srcDir := t.TempDir()
	libraryDir := t.TempDir()
	src := filepath.Join(srcDir, "mystery.flac")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	fileID := "f2"
	mover := &fakeSorterFileMover{
		files: map[string]*models.File{fileID: {Path: src}},
	}

	tracker := &fakeTracker{}
	ctor := tasks.NewSorter(libraryDir, mover, tracker, nil)
	task, err := ctor(nil, core.Batch{Kind: core.BatchFileIDs, FileIDs: []string{fileID}}, nil)
	require.NoError(t, err)

	require.NoError(t, task.Run(context.Background()))

	want := filepath.Join(libraryDir, "[unsorted]", "mystery.flac")
	require.Equal(t, want, mover.paths[fileID])
}

func TestSorter_SkipsMoveWhenTargetAlreadyExists(t *testing.T) {
	srcDir := t.TempDir()
	libraryDir := t.TempDir()
	src := filepath.Join(srcDir, "dup.flac")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	fileID := "f3"
	mover := &fakeSorterFileMover{
		files: map[string]*models.File{fileID: {Path: src}},
	}

	existing := filepath.Join(libraryDir, "[unsorted]", "dup.flac")
	require.NoError(t, os.MkdirAll(filepath.Dir(existing), 0o755))
	require.NoError(t, os.WriteFile(existing, []byte("already here"), 0o644))

	tracker := &fakeTracker{}
	ctor := tasks.NewSorter(libraryDir, mover, tracker, nil)
	task, err := ctor(nil, core.Batch{Kind: core.BatchFileIDs, FileIDs: []string{fileID}}, nil)
	require.NoError(t, err)

	require.NoError(t, task.Run(context.Background()))
	require.Empty(t, tracker.completed)
	_, err = os.Stat(src)
	require.NoError(t, err)
}
