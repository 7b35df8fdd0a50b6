package repository

import (
	"context"
	"fmt"

	"github.com/jmylchreest/amm-core/internal/models"
	"gorm.io/gorm"
)

// TaskRunRepository persists TaskRun bookkeeping for the stage and pipeline
// runs wrapped by cmd/amm/cmd/taskrun.go, adapted
// from the teacher's JobRepository (internal/repository/job_repo.go) down
// to the subset SPEC_FULL.md's supplemented TaskRun feature needs: create
// on start, finish on completion, and recent-history listing for the
// plugins CLI.
type TaskRunRepository struct {
	db *gorm.DB
}

// NewTaskRunRepository constructs a TaskRunRepository.
func NewTaskRunRepository(db *gorm.DB) *TaskRunRepository {
	return &TaskRunRepository{db: db}
}

// Start records the beginning of a task run and returns its ID.
func (r *TaskRunRepository) Start(ctx context.Context, taskName string) (models.ULID, error) {
	now := models.Now()
	run := models.TaskRun{
		TaskName:  taskName,
		Status:    models.TaskRunStatusRunning,
		StartedAt: &now,
	}
	if err := r.db.WithContext(ctx).Create(&run).Error; err != nil {
		return models.ULID{}, fmt.Errorf("starting task run: %w", err)
	}
	return run.ID, nil
}

// Finish marks a task run complete, recording the file count and, if
// runErr is non-nil, the failure status and message.
func (r *TaskRunRepository) Finish(ctx context.Context, id models.ULID, fileCount int, runErr error) error {
	now := models.Now()
	updates := map[string]any{
		"file_count":   fileCount,
		"completed_at": &now,
		"status":       models.TaskRunStatusCompleted,
	}
	if runErr != nil {
		updates["status"] = models.TaskRunStatusFailed
		updates["error"] = runErr.Error()
	}
	if err := r.db.WithContext(ctx).Model(&models.TaskRun{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("finishing task run: %w", err)
	}
	return nil
}

// Recent returns the most recent task runs, newest first, limited to n.
func (r *TaskRunRepository) Recent(ctx context.Context, n int) ([]*models.TaskRun, error) {
	var runs []*models.TaskRun
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(n).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing recent task runs: %w", err)
	}
	return runs, nil
}
