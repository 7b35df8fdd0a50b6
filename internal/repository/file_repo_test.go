package repository_test

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/jmylchreest/amm-core/internal/models"
	"github.com/jmylchreest/amm-core/internal/repository"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.File{}, &models.Track{}, &models.Album{}))
	return db
}

func TestFileRepository_GetTrackByID(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewFileRepository(db)

	track := models.Track{Title: "Song"}
	require.NoError(t, db.Create(&track).Error)

	got, err := repo.GetTrackByID(context.Background(), track.ID)
	require.NoError(t, err)
	require.Equal(t, "Song", got.Title)
}

func TestFileRepository_GetTrackByID_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewFileRepository(db)

	got, err := repo.GetTrackByID(context.Background(), models.NewULID())
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestFileRepository_GetAlbumByID(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewFileRepository(db)

	album := models.Album{Name: "Album"}
	require.NoError(t, db.Create(&album).Error)

	got, err := repo.GetAlbumByID(context.Background(), album.ID)
	require.NoError(t, err)
	require.Equal(t, "Album", got.Name)
}

func TestFileRepository_GetAlbumByID_NotFound(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewFileRepository(db)

	got, err := repo.GetAlbumByID(context.Background(), models.NewULID())
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestFileRepository_SetPath(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewFileRepository(db)

	f, err := repo.Create(context.Background(), "/music/a.flac")
	require.NoError(t, err)

	require.NoError(t, repo.SetPath(context.Background(), f.ID.String(), "/library/Album/a.flac"))

	got, err := repo.GetByID(context.Background(), f.ID.String())
	require.NoError(t, err)
	require.Equal(t, "/library/Album/a.flac", got.Path)
}
