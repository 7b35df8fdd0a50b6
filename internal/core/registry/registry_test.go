package registry_test

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/jmylchreest/amm-core/internal/core"
	"github.com/jmylchreest/amm-core/internal/core/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func boolPtr(b bool) *bool { return &b }

type fakeUtil struct {
	meta     core.PluginMeta
	initHits *int32
}

func (u *fakeUtil) Meta() core.PluginMeta { return u.meta }
func (u *fakeUtil) Init(ctx context.Context) error {
	atomic.AddInt32(u.initHits, 1)
	return nil
}

type fakeTask struct {
	meta  core.PluginMeta
	utils []core.AudioUtility
	batch core.Batch
}

func (t *fakeTask) Meta() core.PluginMeta          { return t.meta }
func (t *fakeTask) Run(ctx context.Context) error  { return nil }

func taskMeta(name string, stage core.Stage) core.PluginMeta {
	return core.PluginMeta{
		Name:        core.TaskName(name),
		Description: "a test task",
		Version:     "1.0.0",
		TaskType:    core.TaskTypeCustom,
		StageType:   stage,
		StageName:   name,
		Exclusive:   boolPtr(false),
		HeavyIO:     boolPtr(false),
	}
}

func TestRegisterTask_DuplicateFails(t *testing.T) {
	r := registry.New()
	ctor := func(utils []core.AudioUtility, batch core.Batch, kwargs map[string]any) (core.Task, error) {
		return &fakeTask{meta: taskMeta("parser", core.Import), utils: utils, batch: batch}, nil
	}
	require.NoError(t, r.RegisterTask(taskMeta("parser", core.Import), ctor))

	err := r.RegisterTask(taskMeta("parser", core.Import), ctor)
	require.Error(t, err)
	var dup *core.DuplicatePluginError
	require.ErrorAs(t, err, &dup)
}

func TestRegisterTask_InvalidNameRejected(t *testing.T) {
	r := registry.New()
	err := r.RegisterTask(taskMeta("1bad", core.Import), nil)
	require.Error(t, err)
	var verr *core.PluginValidationError
	require.ErrorAs(t, err, &verr)
}

func TestTasksForStage_RegistrationOrder(t *testing.T) {
	r := registry.New()
	ctor := func(utils []core.AudioUtility, batch core.Batch, kwargs map[string]any) (core.Task, error) {
		return &fakeTask{}, nil
	}
	require.NoError(t, r.RegisterTask(taskMeta("b_task", core.Import), ctor))
	require.NoError(t, r.RegisterTask(taskMeta("a_task", core.Import), ctor))

	assert.Equal(t, []string{"b_task", "a_task"}, r.TasksForStage(core.Import))
	assert.Empty(t, r.TasksForStage(core.PreImport))
}

func TestCreateTask_InjectsDependenciesInOrderAndMemoizes(t *testing.T) {
	r := registry.New()
	var initHits int32

	for _, name := range []string{"parser_util", "tagger_util"} {
		name := name
		require.NoError(t, r.RegisterAudioUtility(core.PluginMeta{
			Name:        core.TaskName(name),
			Description: "util",
			Version:     "1.0.0",
		}, func() core.AudioUtility {
			return &fakeUtil{meta: core.PluginMeta{Name: core.TaskName(name)}, initHits: &initHits}
		}))
	}

	meta := taskMeta("T", core.Import)
	meta.Depends = []string{"parser_util", "tagger_util"}
	var captured []core.AudioUtility
	require.NoError(t, r.RegisterTask(meta, func(utils []core.AudioUtility, batch core.Batch, kwargs map[string]any) (core.Task, error) {
		captured = utils
		return &fakeTask{meta: meta, utils: utils, batch: batch}, nil
	}))

	_, err := r.CreateTask(context.Background(), "T", core.NewFileIDBatch([]string{"1", "2"}), nil)
	require.NoError(t, err)
	require.Len(t, captured, 2)
	assert.Equal(t, core.TaskName("parser_util"), captured[0].Meta().Name)
	assert.Equal(t, core.TaskName("tagger_util"), captured[1].Meta().Name)

	// A second task depending on the same utility must not re-initialize it.
	meta2 := taskMeta("T2", core.Import)
	meta2.Depends = []string{"parser_util"}
	require.NoError(t, r.RegisterTask(meta2, func(utils []core.AudioUtility, batch core.Batch, kwargs map[string]any) (core.Task, error) {
		return &fakeTask{meta: meta2, utils: utils, batch: batch}, nil
	}))
	_, err = r.CreateTask(context.Background(), "T2", core.Batch{}, nil)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&initHits), "each utility initialized exactly once")
}

func TestListRegistered_IsSorted(t *testing.T) {
	r := registry.New()
	ctor := func(utils []core.AudioUtility, batch core.Batch, kwargs map[string]any) (core.Task, error) {
		return &fakeTask{}, nil
	}
	require.NoError(t, r.RegisterTask(taskMeta("zeta", core.Import), ctor))
	require.NoError(t, r.RegisterTask(taskMeta("alpha", core.Import), ctor))

	reg := r.ListRegistered()
	assert.Equal(t, []string{"alpha", "zeta"}, reg.Tasks)
}
