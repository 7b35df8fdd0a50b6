package repository

import (
	"context"
	"fmt"

	"github.com/jmylchreest/amm-core/internal/models"
	"github.com/jmylchreest/amm-core/internal/plugins/processors"
	"gorm.io/gorm"
)

// ArtworkRepository implements processors.ArtworkLister over the
// album/person/label tables, grounding the Scanner's artwork-scan step
// (spec.md §4.6 step 5) in real queries.
type ArtworkRepository struct {
	db *gorm.DB
}

// NewArtworkRepository constructs an ArtworkRepository.
func NewArtworkRepository(db *gorm.DB) *ArtworkRepository {
	return &ArtworkRepository{db: db}
}

// ListMissingArtwork returns every album/person/label with a non-empty
// mbid and no picture set.
func (r *ArtworkRepository) ListMissingArtwork(ctx context.Context) (albums, artists, labels []processors.ArtworkCandidate, err error) {
	var albumRows []models.Album
	if err = r.db.WithContext(ctx).Where("mbid <> '' AND picture IS NULL").Find(&albumRows).Error; err != nil {
		return nil, nil, nil, fmt.Errorf("listing albums missing artwork: %w", err)
	}
	for _, a := range albumRows {
		albums = append(albums, processors.ArtworkCandidate{MBID: a.MBID})
	}

	var personRows []models.Person
	if err = r.db.WithContext(ctx).Where("mbid <> '' AND picture IS NULL").Find(&personRows).Error; err != nil {
		return nil, nil, nil, fmt.Errorf("listing persons missing artwork: %w", err)
	}
	for _, p := range personRows {
		artists = append(artists, processors.ArtworkCandidate{MBID: p.MBID})
	}

	var labelRows []models.Label
	if err = r.db.WithContext(ctx).Where("mbid <> '' AND picture IS NULL").Find(&labelRows).Error; err != nil {
		return nil, nil, nil, fmt.Errorf("listing labels missing artwork: %w", err)
	}
	for _, l := range labelRows {
		labels = append(labels, processors.ArtworkCandidate{MBID: l.MBID})
	}
	return albums, artists, labels, nil
}
