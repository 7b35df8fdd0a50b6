package stagetracker_test

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/jmylchreest/amm-core/internal/core"
	"github.com/jmylchreest/amm-core/internal/core/stagetracker"
	"github.com/jmylchreest/amm-core/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeRegistry struct {
	stages map[core.Stage][]string
}

func (f fakeRegistry) TasksForStage(stage core.Stage) []string { return f.stages[stage] }

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.File{}))
	return db
}

func insertFile(t *testing.T, db *gorm.DB, stage core.Stage) string {
	t.Helper()
	f := models.File{Path: "/music/a.flac", Stage: uint32(stage)}
	require.NoError(t, db.Create(&f).Error)
	return f.ID.String()
}

func TestCompleteStageForFile_AdvancesWhenAllTasksDone(t *testing.T) {
	db := newTestDB(t)
	reg := fakeRegistry{stages: map[core.Stage][]string{
		core.Import: {"parser", "tagger"},
	}}
	tr := stagetracker.New(db, "sqlite", reg, nil)
	id := insertFile(t, db, core.Import)

	require.NoError(t, tr.CompleteStageForFile(context.Background(), id, "parser"))

	var f models.File
	require.NoError(t, db.First(&f, "id = ?", id).Error)
	require.Equal(t, uint32(core.Import), f.Stage, "stage must not advance until every required task is complete")
	require.True(t, f.CompletedTasks.Has("parser"))

	require.NoError(t, tr.CompleteStageForFile(context.Background(), id, "tagger"))

	require.NoError(t, db.First(&f, "id = ?", id).Error)
	require.Equal(t, uint32(core.PostImport), f.Stage)
	require.True(t, f.CompletedTasks.Has("parser"))
	require.True(t, f.CompletedTasks.Has("tagger"))
}

func TestCompleteStageForFile_IsIdempotent(t *testing.T) {
	db := newTestDB(t)
	reg := fakeRegistry{stages: map[core.Stage][]string{core.Import: {"parser"}}}
	tr := stagetracker.New(db, "sqlite", reg, nil)
	id := insertFile(t, db, core.Import)

	require.NoError(t, tr.CompleteStageForFile(context.Background(), id, "parser"))
	require.NoError(t, tr.CompleteStageForFile(context.Background(), id, "parser"))

	var f models.File
	require.NoError(t, db.First(&f, "id = ?", id).Error)
	require.Equal(t, uint32(core.PostImport), f.Stage)
	count := 0
	for _, v := range f.CompletedTasks {
		if v == "parser" {
			count++
		}
	}
	require.Equal(t, 1, count, "repeated completion must not duplicate the task name")
}

func TestCompleteStageForFile_TaskForEarlierStageDoesNotAdvance(t *testing.T) {
	db := newTestDB(t)
	reg := fakeRegistry{stages: map[core.Stage][]string{
		core.PreImport: {"prescan"},
		core.Import:    {"parser"},
	}}
	tr := stagetracker.New(db, "sqlite", reg, nil)
	id := insertFile(t, db, core.Import)

	require.NoError(t, tr.CompleteStageForFile(context.Background(), id, "prescan"))

	var f models.File
	require.NoError(t, db.First(&f, "id = ?", id).Error)
	require.Equal(t, uint32(core.Import), f.Stage, "completing a task from an earlier stage must not advance the current one")
	require.True(t, f.CompletedTasks.Has("prescan"))
}

func TestCompleteStageForFile_EmptyStageRequirementsAdvancesImmediately(t *testing.T) {
	db := newTestDB(t)
	reg := fakeRegistry{stages: map[core.Stage][]string{}}
	tr := stagetracker.New(db, "sqlite", reg, nil)
	id := insertFile(t, db, core.PreImport)

	require.NoError(t, tr.CompleteStageForFile(context.Background(), id, "anything"))

	var f models.File
	require.NoError(t, db.First(&f, "id = ?", id).Error)
	require.Equal(t, uint32(core.Import), f.Stage)
}

func TestBatchCompleteStage_AppliesToAllFiles(t *testing.T) {
	db := newTestDB(t)
	reg := fakeRegistry{stages: map[core.Stage][]string{core.Import: {"parser"}}}
	tr := stagetracker.New(db, "sqlite", reg, nil)

	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		ids = append(ids, insertFile(t, db, core.Import))
	}

	require.NoError(t, tr.BatchCompleteStage(context.Background(), ids, "parser"))

	for _, id := range ids {
		var f models.File
		require.NoError(t, db.First(&f, "id = ?", id).Error)
		require.Equal(t, uint32(core.PostImport), f.Stage)
	}
}

func TestCompleteStageForFile_TerminalStageStaysPut(t *testing.T) {
	db := newTestDB(t)
	reg := fakeRegistry{stages: map[core.Stage][]string{core.PostSort: {"sorter"}}}
	tr := stagetracker.New(db, "sqlite", reg, nil)
	id := insertFile(t, db, core.PostSort)

	require.NoError(t, tr.CompleteStageForFile(context.Background(), id, "sorter"))

	var f models.File
	require.NoError(t, db.First(&f, "id = ?", id).Error)
	require.Equal(t, uint32(core.PostSort), f.Stage, "the terminal stage must not advance past itself")
}
