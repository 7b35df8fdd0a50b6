// Package registry implements the process-wide plugin catalog described in
// spec.md §4.1: three plugin kinds (audio utilities, tasks, processors)
// plus named stages, with dependency-injected construction.
//
// The reference implementation (src/core/registry.py) uses Python's dynamic
// typing to try positional construction, then fall back to keyword
// construction plus set_<dep> setters, because its constructors have no
// fixed signature. Go constructors are statically typed, so that fallback
// has no analogue here: every Task/Processor constructor registered with
// this package already accepts its audio-utility dependencies positionally
// (see TaskConstructor/ProcessorConstructor below), which is the flattened
// equivalent the spec's DESIGN NOTES §9 calls for.
package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/jmylchreest/amm-core/internal/core"
	"golang.org/x/sync/singleflight"
)

// AudioUtilConstructor builds a fresh audio-utility instance. Instances are
// memoized by the Registry; the constructor itself should be cheap and
// side-effect-free, with real setup deferred to AudioUtilityInitializer.Init.
type AudioUtilConstructor func() core.AudioUtility

// TaskConstructor builds a Task instance, given its declared audio-utility
// dependencies (in Depends order), the batch to operate on, and any
// scheduling-time keyword overrides.
type TaskConstructor func(utils []core.AudioUtility, batch core.Batch, kwargs map[string]any) (core.Task, error)

// ProcessorConstructor builds a Processor instance, given its declared
// audio-utility dependencies and scheduling-time keyword overrides.
// Processors receive configuration rather than a batch (spec.md §4.1).
type ProcessorConstructor func(utils []core.AudioUtility, kwargs map[string]any) (core.Processor, error)

type audioUtilEntry struct {
	meta        core.PluginMeta
	constructor AudioUtilConstructor
}

type taskEntry struct {
	meta        core.PluginMeta
	constructor TaskConstructor
}

type processorEntry struct {
	meta        core.PluginMeta
	constructor ProcessorConstructor
}

// Registry is the process-wide plugin catalog. The zero value is not
// usable; construct with New(). A Registry holds no global/package-level
// state (spec.md §9: "tests create their own handle").
type Registry struct {
	mu         sync.RWMutex
	audioUtils map[string]audioUtilEntry
	tasks      map[string]taskEntry
	processors map[string]processorEntry

	// stagesByType preserves registration order per stage, used by
	// TasksForStage for the deterministic ordering spec.md §4.4 requires.
	stagesByType map[core.Stage][]string

	instMu    sync.Mutex
	instances map[string]core.AudioUtility
	initGroup singleflight.Group
}

// New returns an empty Registry handle.
func New() *Registry {
	return &Registry{
		audioUtils:   make(map[string]audioUtilEntry),
		tasks:        make(map[string]taskEntry),
		processors:   make(map[string]processorEntry),
		stagesByType: make(map[core.Stage][]string),
		instances:    make(map[string]core.AudioUtility),
	}
}

// RegisterAudioUtility validates and installs an audio-utility plugin under
// its name exactly as given; the name is not lowercased, so lookups are
// case-sensitive. A second registration under the same name fails.
func (r *Registry) RegisterAudioUtility(meta core.PluginMeta, ctor AudioUtilConstructor) error {
	if meta.Kind != core.PluginAudioUtility {
		meta.Kind = core.PluginAudioUtility
	}
	if err := meta.Validate(); err != nil {
		return err
	}
	name := string(meta.Name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.audioUtils[name]; exists {
		return &core.DuplicatePluginError{Kind: core.PluginAudioUtility, Name: name}
	}
	r.audioUtils[name] = audioUtilEntry{meta: meta, constructor: ctor}
	return nil
}

// RegisterTask validates and installs a task plugin, and indexes it under
// its declared stage in registration order.
func (r *Registry) RegisterTask(meta core.PluginMeta, ctor TaskConstructor) error {
	meta.Kind = core.PluginTask
	if err := meta.Validate(); err != nil {
		return err
	}
	name := string(meta.Name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[name]; exists {
		return &core.DuplicatePluginError{Kind: core.PluginTask, Name: name}
	}
	r.tasks[name] = taskEntry{meta: meta, constructor: ctor}
	r.stagesByType[meta.StageType] = append(r.stagesByType[meta.StageType], name)
	return nil
}

// RegisterProcessor validates and installs a processor plugin.
func (r *Registry) RegisterProcessor(meta core.PluginMeta, ctor ProcessorConstructor) error {
	meta.Kind = core.PluginProcessor
	if err := meta.Validate(); err != nil {
		return err
	}
	name := string(meta.Name)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.processors[name]; exists {
		return &core.DuplicatePluginError{Kind: core.PluginProcessor, Name: name}
	}
	r.processors[name] = processorEntry{meta: meta, constructor: ctor}
	return nil
}

// TasksForStage returns the names of tasks declared for a stage, in
// registration order — the deterministic ordering spec.md §4.4 relies on
// for run_stage.
func (r *Registry) TasksForStage(stage core.Stage) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := r.stagesByType[stage]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// TaskMeta returns the registered metadata for a task name.
func (r *Registry) TaskMeta(name string) (core.PluginMeta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.tasks[name]
	return e.meta, ok
}

// ProcessorMeta returns the registered metadata for a processor name.
func (r *Registry) ProcessorMeta(name string) (core.PluginMeta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.processors[name]
	return e.meta, ok
}

// AudioUtilMeta returns the static metadata for a registered audio utility.
func (r *Registry) AudioUtilMeta(name string) (core.PluginMeta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.audioUtils[name]
	return e.meta, ok
}

// instantiateAudioUtil returns the memoized instance for name, constructing
// and initializing it on first use. Concurrent requests for the same
// utility collapse onto a single construction via singleflight; distinct
// utilities initialize independently.
func (r *Registry) instantiateAudioUtil(ctx context.Context, name string) (core.AudioUtility, error) {
	r.instMu.Lock()
	if inst, ok := r.instances[name]; ok {
		r.instMu.Unlock()
		return inst, nil
	}
	r.instMu.Unlock()

	v, err, _ := r.initGroup.Do(name, func() (any, error) {
		r.instMu.Lock()
		if inst, ok := r.instances[name]; ok {
			r.instMu.Unlock()
			return inst, nil
		}
		r.instMu.Unlock()

		r.mu.RLock()
		entry, ok := r.audioUtils[name]
		r.mu.RUnlock()
		if !ok {
			return nil, &core.NotRegisteredError{Kind: core.PluginAudioUtility, Name: name}
		}

		inst := entry.constructor()
		if initer, ok := inst.(core.AudioUtilityInitializer); ok {
			if err := initer.Init(ctx); err != nil {
				return nil, &core.DependencyUnavailableError{Dependency: name, Err: err}
			}
		}

		r.instMu.Lock()
		r.instances[name] = inst
		r.instMu.Unlock()
		return inst, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(core.AudioUtility), nil
}

// resolveDepends instantiates (memoized) every declared dependency, in
// declaration order, for positional injection into the plugin constructor.
func (r *Registry) resolveDepends(ctx context.Context, depends []string) ([]core.AudioUtility, error) {
	utils := make([]core.AudioUtility, len(depends))
	for i, dep := range depends {
		inst, err := r.instantiateAudioUtil(ctx, dep)
		if err != nil {
			return nil, err
		}
		utils[i] = inst
	}
	return utils, nil
}

// CreateTask instantiates a task with batch and overrides. Its depends are
// resolved (instantiating/memoizing audio utilities as needed) and injected
// positionally into the registered TaskConstructor.
func (r *Registry) CreateTask(ctx context.Context, name string, batch core.Batch, kwargs map[string]any) (core.Task, error) {
	r.mu.RLock()
	entry, ok := r.tasks[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &core.NotRegisteredError{Kind: core.PluginTask, Name: name}
	}
	utils, err := r.resolveDepends(ctx, entry.meta.Depends)
	if err != nil {
		return nil, err
	}
	return entry.constructor(utils, batch, kwargs)
}

// CreateProcessor instantiates a processor with overrides.
func (r *Registry) CreateProcessor(ctx context.Context, name string, kwargs map[string]any) (core.Processor, error) {
	r.mu.RLock()
	entry, ok := r.processors[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &core.NotRegisteredError{Kind: core.PluginProcessor, Name: name}
	}
	utils, err := r.resolveDepends(ctx, entry.meta.Depends)
	if err != nil {
		return nil, err
	}
	return entry.constructor(utils, kwargs)
}

// Registered describes the catalog's current contents, backing the
// `plugins` CLI command and supplementing the reference's
// registry.list_registered() (see SPEC_FULL.md).
type Registered struct {
	AudioUtils []string
	Tasks      []string
	Processors []string
	Stages     map[string][]string
}

// ListRegistered returns every registered plugin and stage name, sorted for
// stable CLI/test output.
func (r *Registry) ListRegistered() Registered {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := Registered{Stages: make(map[string][]string, len(r.stagesByType))}
	for n := range r.audioUtils {
		out.AudioUtils = append(out.AudioUtils, n)
	}
	for n := range r.tasks {
		out.Tasks = append(out.Tasks, n)
	}
	for n := range r.processors {
		out.Processors = append(out.Processors, n)
	}
	for stage, names := range r.stagesByType {
		cp := make([]string, len(names))
		copy(cp, names)
		out.Stages[stage.String()] = cp
	}
	sort.Strings(out.AudioUtils)
	sort.Strings(out.Tasks)
	sort.Strings(out.Processors)
	return out
}

// ProcessorNames returns every registered processor name, sorted.
func (r *Registry) ProcessorNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.processors))
	for n := range r.processors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// HasProcessor reports whether a processor is registered under name.
func (r *Registry) HasProcessor(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.processors[name]
	return ok
}
