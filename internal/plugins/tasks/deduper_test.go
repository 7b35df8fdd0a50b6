package tasks_test

import (
	"context"
	"testing"

	"github.com/jmylchreest/amm-core/internal/core"
	"github.com/jmylchreest/amm-core/internal/plugins/tasks"
	"github.com/stretchr/testify/require"
)

func TestDeduper_CompletesStageForEveryFileInBatch(t *testing.T) {
	tracker := &fakeTracker{}
	ctor := tasks.NewDeduper(tracker, nil)
	task, err := ctor(nil, core.Batch{Kind: core.BatchFileIDs, FileIDs: []string{"f1"}}, nil)
	require.NoError(t, err)

	require.NoError(t, task.Run(context.Background()))
	require.Equal(t, []string{"f1/deduper"}, tracker.completed)
}

func TestDeduper_Meta(t *testing.T) {
	meta := tasks.DeduperMeta()
	require.Equal(t, core.TaskTypeDeduper, meta.TaskType)
	require.Equal(t, core.Process, meta.StageType)
}
