package core

import (
	"context"
	"regexp"
)

// PluginKind distinguishes the three catalogs the Registry maintains.
type PluginKind string

const (
	PluginAudioUtility PluginKind = "audioutil"
	PluginTask         PluginKind = "task"
	PluginProcessor    PluginKind = "processor"
)

// TaskType strongly types a task's functional category, kept distinct from
// TaskName (a plugin's unique registered identifier) and from any
// human-readable display string, per spec.md §9.
type TaskType string

const (
	TaskTypeArtGetter       TaskType = "art_getter"
	TaskTypeArtChecker      TaskType = "art_checker"
	TaskTypeImporter        TaskType = "importer"
	TaskTypeTagger          TaskType = "tagger"
	TaskTypeFingerprinter   TaskType = "fingerprinter"
	TaskTypeExporter        TaskType = "exporter"
	TaskTypeLyricsGetter    TaskType = "lyrics_getter"
	TaskTypeNormalizer      TaskType = "normalizer"
	TaskTypeDeduper         TaskType = "deduper"
	TaskTypeTrimmer         TaskType = "trimmer"
	TaskTypeConverter       TaskType = "converter"
	TaskTypeParser          TaskType = "parser"
	TaskTypeSorter          TaskType = "sorter"
	TaskTypeScanner         TaskType = "scanner"
	TaskTypeCustom          TaskType = "custom"
	TaskTypeDuplicateChecker TaskType = "duplicate_checker"
)

// TaskName is a plugin's unique registered identifier. Distinct from
// TaskType: many plugins may share a TaskType (e.g. several custom
// importers), but no two may share a TaskName.
type TaskName string

var (
	nameFilter        = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)
	descriptionFilter = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_ .,!?]*$`)
	versionFilter     = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+$`)
)

// PluginMeta is the shared static metadata embedded by every concrete
// plugin, replacing the reference implementation's deep
// PluginBase -> AudioUtilBase/TaskBase/ProcessorBase inheritance chain
// (spec.md §9) with flat embedding plus three narrow interfaces below.
type PluginMeta struct {
	Kind        PluginKind
	Name        TaskName
	Description string
	Version     string
	Author      string
	Depends     []string
	Exclusive   *bool
	HeavyIO     *bool

	// TaskType/StageType apply only to Kind == PluginTask (stage-advancing
	// plugins); Kind == PluginProcessor uses TaskType but never StageType.
	TaskType  TaskType
	StageType Stage
	StageName string

	// CooldownSeconds is the authoritative per-plugin cooldown (spec.md §9
	// Open Question 2: resolved as authoritative). Zero means no cooldown.
	CooldownSeconds float64
}

// Validate enforces the registration-time rules of spec.md §4.1.
func (m PluginMeta) Validate() error {
	if m.Name == "" || !nameFilter.MatchString(string(m.Name)) {
		return &PluginValidationError{Name: string(m.Name), Reason: "name must match ^[a-zA-Z][a-zA-Z0-9_]*$"}
	}
	if m.Description == "" || !descriptionFilter.MatchString(m.Description) {
		return &PluginValidationError{Name: string(m.Name), Reason: "description must be non-empty printable text"}
	}
	if m.Version == "" || !versionFilter.MatchString(m.Version) {
		return &PluginValidationError{Name: string(m.Name), Reason: "version must match semver X.Y.Z"}
	}
	for _, dep := range m.Depends {
		if !nameFilter.MatchString(dep) {
			return &PluginValidationError{Name: string(m.Name), Reason: "depends entry '" + dep + "' is not a valid name"}
		}
	}
	if m.Kind == PluginTask || m.Kind == PluginProcessor {
		if m.Exclusive == nil {
			return &PluginValidationError{Name: string(m.Name), Reason: "exclusive must be set (true or false)"}
		}
		if m.HeavyIO == nil {
			return &PluginValidationError{Name: string(m.Name), Reason: "heavy_io must be set (true or false)"}
		}
		if m.TaskType == "" {
			return &PluginValidationError{Name: string(m.Name), Reason: "task_type must be set"}
		}
	}
	if m.Kind == PluginTask {
		if !nameFilter.MatchString(m.StageName) {
			return &PluginValidationError{Name: string(m.Name), Reason: "stage_name must be a valid name"}
		}
		if m.StageType == StageNone {
			return &PluginValidationError{Name: string(m.Name), Reason: "stage_type must be a valid Stage"}
		}
	}
	return nil
}

// IsExclusive and IsHeavyIO return the validated bool flags; callers must
// only invoke these after Validate() has succeeded (non-nil guaranteed).
func (m PluginMeta) IsExclusive() bool { return m.Exclusive != nil && *m.Exclusive }
func (m PluginMeta) IsHeavyIO() bool   { return m.HeavyIO != nil && *m.HeavyIO }

// AudioUtility is a stateless or lazily-initialized dependency shared
// across tasks, providing domain operations (fingerprinting, tagging,
// lookup) consumed via Task.Depends. Concrete utilities add their own
// domain methods beyond this marker interface; the core only needs to
// construct and memoize them.
type AudioUtility interface {
	Meta() PluginMeta
}

// AudioUtilityInitializer is implemented by audio utilities that need
// asynchronous setup after construction (the reference's optional async
// init() method).
type AudioUtilityInitializer interface {
	Init(ctx context.Context) error
}

// Task is a unit of work that advances one file (or a batch of files)
// through the pipeline by performing one named operation.
type Task interface {
	Meta() PluginMeta
	// Run executes the task body against its injected batch. Run must be
	// safe to call exactly once per instance; the Registry constructs a
	// fresh instance per scheduling (spec.md §3 "Lifecycle").
	Run(ctx context.Context) error
}

// EmittingProcessor is implemented by processors (the Scanner, in
// particular) that produce work for the TaskManager to schedule.
type EmittingProcessor interface {
	Processor
	// CollectEmitted drains and returns any EmittedTask records produced
	// by the most recent Run, per spec.md §4.5 step 4.
	CollectEmitted() []EmittedTask
}

// Processor is a long-lived background component that inspects external
// state and emits tasks; processors never themselves advance file stages.
type Processor interface {
	Meta() PluginMeta
	Run(ctx context.Context) error
}
