// Package stagetracker implements the per-file completion bookkeeping of
// spec.md §4.3: marking a task complete for a file, and advancing the
// file's stage once every task declared for its current stage is done.
//
// Grounded on the teacher's internal/repository/job_repo.go, specifically
// its driver-aware atomic claim (AcquireJob): SQLite has no row-level
// locking, so a transaction plus its WAL busy_timeout is relied on to
// serialize writers, while Postgres/MySQL use SELECT ... FOR UPDATE via
// gorm.io/gorm/clause.
package stagetracker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jmylchreest/amm-core/internal/core"
	"github.com/jmylchreest/amm-core/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// StageRegistry is the subset of registry.Registry that StageTracker needs:
// the declared tasks for a stage, used to decide whether all requirements
// for the current stage are satisfied.
type StageRegistry interface {
	TasksForStage(stage core.Stage) []string
}

// Tracker persists task completion and stage advancement for File rows.
type Tracker struct {
	db       *gorm.DB
	driver   string
	registry StageRegistry
	logger   *slog.Logger
}

// New constructs a Tracker. driver selects the atomicity strategy ("sqlite",
// "postgres", "mysql").
func New(db *gorm.DB, driver string, reg StageRegistry, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{db: db, driver: driver, registry: reg, logger: logger}
}

// CompleteStageForFile marks taskName complete for fileID (idempotent), and
// advances file.Stage to the next pipeline stage if every task declared for
// the file's current stage is now in CompletedTasks. Per spec.md §4.3, a
// failure mode exists where taskName belongs to an earlier stage than the
// file's current one: completion is still recorded, but no advancement
// happens (the subset check against the *current* stage's requirements
// naturally yields this, since taskName's own stage is irrelevant to it).
//
// On transient failure the caller should retry once with a fresh
// transaction (spec.md §7 StageTracker propagation policy); this method
// itself performs that single retry internally.
func (t *Tracker) CompleteStageForFile(ctx context.Context, fileID string, taskName string) error {
	err := t.completeOnce(ctx, fileID, taskName)
	if err == nil {
		return nil
	}
	t.logger.WarnContext(ctx, "stagetracker: retrying after failure",
		slog.String("file_id", fileID), slog.String("task", taskName), slog.String("error", err.Error()))
	if err2 := t.completeOnce(ctx, fileID, taskName); err2 != nil {
		t.logger.ErrorContext(ctx, "stagetracker: completion not recorded after retry",
			slog.String("file_id", fileID), slog.String("task", taskName), slog.String("error", err2.Error()))
		return &core.DatabaseError{Op: "complete_stage_for_file", Err: err2}
	}
	return nil
}

func (t *Tracker) completeOnce(ctx context.Context, fileID string, taskName string) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx
		if t.driver != "sqlite" {
			// Row-level lock so a concurrent completion for the same file
			// serializes instead of racing on the read-modify-write below.
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		// On SQLite there is no row lock; the surrounding transaction plus
		// WAL's single-writer semantics (busy_timeout configured in
		// internal/database) serializes concurrent writers for us, matching
		// job_repo.go's acquireJobSQLite rationale.

		var file models.File
		if err := q.First(&file, "id = ?", fileID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &core.InvalidInputError{Value: fileID, Reason: "file not found"}
			}
			return err
		}

		file.CompletedTasks = file.CompletedTasks.Add(taskName)

		required := t.registry.TasksForStage(core.Stage(file.Stage))
		advance := len(required) == 0 || file.CompletedTasks.ContainsAll(required)

		now := models.Now()
		updates := map[string]any{
			"completed_tasks": file.CompletedTasks,
			"processed_at":    &now,
		}
		if advance {
			if next, ok := core.NextStage(core.Stage(file.Stage)); ok {
				updates["stage"] = uint32(next)
			}
		}
		if err := tx.Model(&models.File{}).Where("id = ?", fileID).Updates(updates).Error; err != nil {
			return err
		}
		return nil
	})
}

// BatchCompleteStage applies CompleteStageForFile to each file ID, chunked
// in groups of 200 per spec.md §4.3. Each file's update remains its own
// transaction; failures on one file do not affect the others.
func (t *Tracker) BatchCompleteStage(ctx context.Context, fileIDs []string, taskName string) error {
	const chunkSize = 200
	var firstErr error
	for i := 0; i < len(fileIDs); i += chunkSize {
		end := i + chunkSize
		if end > len(fileIDs) {
			end = len(fileIDs)
		}
		for _, id := range fileIDs[i:end] {
			if err := t.CompleteStageForFile(ctx, id, taskName); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
