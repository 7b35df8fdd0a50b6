package repository

import (
	"context"
	"fmt"

	"github.com/jmylchreest/amm-core/internal/core"
	"github.com/jmylchreest/amm-core/internal/models"
	"github.com/jmylchreest/amm-core/internal/plugins/processors"
	"gorm.io/gorm"
)

// FileRepository is the GORM-backed store for File rows, grounded on the
// teacher's job_repo.go shape (driver-aware constructor, context-scoped
// queries, wrapped errors).
type FileRepository struct {
	db     *gorm.DB
	driver string
}

// NewFileRepository constructs a FileRepository, recording the active
// dialect so callers needing driver-aware locking (stagetracker.Tracker)
// know which strategy to use.
func NewFileRepository(db *gorm.DB) *FileRepository {
	driver := ""
	if db.Dialector != nil {
		driver = db.Dialector.Name()
	}
	return &FileRepository{db: db, driver: driver}
}

// Driver reports the active GORM dialect name.
func (r *FileRepository) Driver() string { return r.driver }

// Create inserts a new File row for path at stage PREIMPORT.
func (r *FileRepository) Create(ctx context.Context, path string) (*models.File, error) {
	f := &models.File{Path: path, Stage: uint32(core.PreImport)}
	if err := r.db.WithContext(ctx).Create(f).Error; err != nil {
		return nil, fmt.Errorf("creating file: %w", err)
	}
	return f, nil
}

// GetByPath returns the File row for path, or nil if none exists.
func (r *FileRepository) GetByPath(ctx context.Context, path string) (*models.File, error) {
	var f models.File
	err := r.db.WithContext(ctx).Where("path = ?", path).First(&f).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting file by path: %w", err)
	}
	return &f, nil
}

// GetByID returns the File row for id.
func (r *FileRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	var f models.File
	if err := r.db.WithContext(ctx).First(&f, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting file by id: %w", err)
	}
	return &f, nil
}

// ListActiveFiles implements processors.FileLister: every file not yet at
// the terminal stage, for the Scanner's stage-gap scan.
func (r *FileRepository) ListActiveFiles(ctx context.Context) ([]processors.FileState, error) {
	var rows []models.File
	if err := r.db.WithContext(ctx).Where("stage < ?", uint32(core.PostSort)).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing active files: %w", err)
	}
	out := make([]processors.FileState, 0, len(rows))
	for _, f := range rows {
		out = append(out, processors.FileState{
			ID:             f.ID.String(),
			Stage:          core.Stage(f.Stage),
			CompletedTasks: []string(f.CompletedTasks),
		})
	}
	return out, nil
}

// SetMetadata updates the fields the parser task extracts.
func (r *FileRepository) SetMetadata(ctx context.Context, id string, trackID models.ULID) error {
	if err := r.db.WithContext(ctx).Model(&models.File{}).Where("id = ?", id).Update("track_id", trackID).Error; err != nil {
		return fmt.Errorf("setting file metadata: %w", err)
	}
	return nil
}

// CreateTrack inserts a new Track row with the given title, implementing
// tasks.FileTrackWriter for the Parser task.
func (r *FileRepository) CreateTrack(ctx context.Context, title string) (*models.Track, error) {
	track := &models.Track{Title: title}
	if err := r.db.WithContext(ctx).Create(track).Error; err != nil {
		return nil, fmt.Errorf("creating track: %w", err)
	}
	return track, nil
}

// SetTrack links a File row to the Track it resolved to.
func (r *FileRepository) SetTrack(ctx context.Context, fileID string, trackID models.ULID) error {
	if err := r.db.WithContext(ctx).Model(&models.File{}).Where("id = ?", fileID).Update("track_id", trackID).Error; err != nil {
		return fmt.Errorf("setting file track: %w", err)
	}
	return nil
}

// GetTrackByID returns the Track row for id, implementing tasks.TagFileReader
// and tasks.SorterFileMover.
func (r *FileRepository) GetTrackByID(ctx context.Context, id models.ULID) (*models.Track, error) {
	var track models.Track
	if err := r.db.WithContext(ctx).First(&track, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting track by id: %w", err)
	}
	return &track, nil
}

// GetAlbumByID returns the Album row for id, implementing tasks.TagFileReader
// and tasks.SorterFileMover.
func (r *FileRepository) GetAlbumByID(ctx context.Context, id models.ULID) (*models.Album, error) {
	var album models.Album
	if err := r.db.WithContext(ctx).First(&album, "id = ?", id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("getting album by id: %w", err)
	}
	return &album, nil
}

// SetPath updates a File row's on-disk path, implementing
// tasks.SorterFileMover for the Sorter task.
func (r *FileRepository) SetPath(ctx context.Context, id string, path string) error {
	if err := r.db.WithContext(ctx).Model(&models.File{}).Where("id = ?", id).Update("path", path).Error; err != nil {
		return fmt.Errorf("setting file path: %w", err)
	}
	return nil
}

// CountByStage returns the number of File rows at each stage, keyed by the
// stage's name. Backs the /status HTTP endpoint.
func (r *FileRepository) CountByStage(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Stage uint32
		Count int64
	}
	if err := r.db.WithContext(ctx).Model(&models.File{}).
		Select("stage, count(*) as count").Group("stage").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("counting files by stage: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[core.Stage(row.Stage).String()] = row.Count
	}
	return out, nil
}
