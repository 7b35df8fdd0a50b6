package tasks_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/jmylchreest/amm-core/internal/core"
	"github.com/jmylchreest/amm-core/internal/models"
	"github.com/jmylchreest/amm-core/internal/plugins/audioutils"
	"github.com/jmylchreest/amm-core/internal/plugins/tasks"
	"github.com/stretchr/testify/require"
)

type fakeTagFileReader struct {
	files  map[string]*models.File
	tracks map[models.ULID]*models.Track
	albums map[models.ULID]*models.Album
}

func (f fakeTagFileReader) GetByID(ctx context.Context, id string) (*models.File, error) {
	return f.files[id], nil
}

func (f fakeTagFileReader) GetTrackByID(ctx context.Context, id models.ULID) (*models.Track, error) {
	return f.tracks[id], nil
}

func (f fakeTagFileReader) GetAlbumByID(ctx context.Context, id models.ULID) (*models.Album, error) {
	return f.albums[id], nil
}

func TestTagger_WritesSidecarDerivedFromTrackAndAlbum(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.flac")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	trackID := models.NewULID()
	albumID := models.NewULID()
	fileID := "f1"

	reader := fakeTagFileReader{
		files:  map[string]*models.File{fileID: {Path: path, TrackID: &trackID}},
		tracks: map[models.ULID]*models.Track{trackID: {Title: "My Song", AlbumID: &albumID}},
		albums: map[models.ULID]*models.Album{albumID: {Name: "My Album"}},
	}

	tracker := &fakeTracker{}
	ctor := tasks.NewTagger(reader, tracker, nil)
	task, err := ctor([]core.AudioUtility{audioutils.NewTagWriter()}, core.Batch{Kind: core.BatchFileIDs, FileIDs: []string{fileID}}, nil)
	require.NoError(t, err)

	require.NoError(t, task.Run(context.Background()))
	require.Equal(t, []string{fileID + "/tagger"}, tracker.completed)

	data, err := os.ReadFile(path + ".tags.json")
	require.NoError(t, err)
	var tags audioutils.Tags
	require.NoError(t, json.Unmarshal(data, &tags))
	require.Equal(t, "My Song", tags.Title)
	require.Equal(t, "My Album", tags.Album)
}

func TestTagger_FallsBackToPathWhenNoTrackResolved(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "untitled.flac")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	fileID := "f2"
	reader := fakeTagFileReader{
		files: map[string]*models.File{fileID: {Path: path}},
	}

	tracker := &fakeTracker{}
	ctor := tasks.NewTagger(reader, tracker, nil)
	task, err := ctor([]core.AudioUtility{audioutils.NewTagWriter()}, core.Batch{Kind: core.BatchFileIDs, FileIDs: []string{fileID}}, nil)
	require.NoError(t, err)

	require.NoError(t, task.Run(context.Background()))

	data, err := os.ReadFile(path + ".tags.json")
	require.NoError(t, err)
	var tags audioutils.Tags
	require.NoError(t, json.Unmarshal(data, &tags))
	require.Equal(t, path, tags.Title)
}

func TestTagger_RejectsWrongUtilityType(t *testing.T) {
	reader := fakeTagFileReader{}
	tracker := &fakeTracker{}
	ctor := tasks.NewTagger(reader, tracker, nil)
	_, err := ctor([]core.AudioUtility{audioutils.NewMediaParser()}, core.Batch{Kind: core.BatchFileIDs}, nil)
	require.Error(t, err)
}
