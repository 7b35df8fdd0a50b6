// Package core defines the shared types of the processing pipeline:
// the Stage bit-flag pipeline, the Batch tagged union, plugin metadata,
// the AudioUtility/Task/Processor interfaces, and the error taxonomy.
package core

import "fmt"

// Stage is an ordered bit-flag position in the fixed, linear processing
// pipeline. A file's Stage indicates the highest bit it has completed.
type Stage uint32

// The fixed pipeline, ascending bit value. Intermediate "PRE"/"POST" stages
// may have no tasks registered against them; the pipeline steps through
// them regardless (see SPEC_FULL.md, resolution of Open Question 3).
const StageNone Stage = 0

const (
	PreImport Stage = 1 << iota
	Import
	PostImport
	PreAnalyse
	Analyse
	PostAnalyse
	PreProcess
	Process
	PostProcess
	PreConvert
	Convert
	PostConvert
	PreMetadata
	Metadata
	PostMetadata
	PreTagWrite
	TagWrite
	PostTagWrite
	PreSort
	Sort
	PostSort
)

// StageOrder is the canonical, ascending ordering of the pipeline. It is
// the single source of truth consulted by NextStage; supplemented from the
// original implementation's ScannerProcessor.stage_order (see SPEC_FULL.md).
var StageOrder = []Stage{
	PreImport, Import, PostImport,
	PreAnalyse, Analyse, PostAnalyse,
	PreProcess, Process, PostProcess,
	PreConvert, Convert, PostConvert,
	PreMetadata, Metadata, PostMetadata,
	PreTagWrite, TagWrite, PostTagWrite,
	PreSort, Sort, PostSort,
}

var (
	stageNames = map[Stage]string{
		PreImport:    "PREIMPORT",
		Import:       "IMPORT",
		PostImport:   "POSTIMPORT",
		PreAnalyse:   "PREANALYSE",
		Analyse:      "ANALYSE",
		PostAnalyse:  "POSTANALYSE",
		PreProcess:   "PREPROCESS",
		Process:      "PROCESS",
		PostProcess:  "POSTPROCESS",
		PreConvert:   "PRECONVERT",
		Convert:      "CONVERT",
		PostConvert:  "POSTCONVERT",
		PreMetadata:  "PREMETADATA",
		Metadata:     "METADATA",
		PostMetadata: "POSTMETADATA",
		PreTagWrite:  "PRETAGWRITE",
		TagWrite:     "TAGWRITE",
		PostTagWrite: "POSTTAGWRITE",
		PreSort:      "PRESORT",
		Sort:         "SORT",
		PostSort:     "POSTSORT",
	}
	namesToStage = func() map[string]Stage {
		m := make(map[string]Stage, len(stageNames))
		for s, n := range stageNames {
			m[n] = s
		}
		return m
	}()
)

// String returns the stage's registered name, or a numeric fallback.
func (s Stage) String() string {
	if n, ok := stageNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Stage(%d)", uint32(s))
}

// ParseStage looks up a Stage by its canonical name.
func ParseStage(name string) (Stage, bool) {
	s, ok := namesToStage[name]
	return s, ok
}

// Terminal reports whether s is the last stage in the pipeline.
func (s Stage) Terminal() bool {
	return s == PostSort
}

// NextStage returns the next bit value in the fixed pipeline after current,
// or (StageNone, false) if current is terminal or not a recognized stage.
func NextStage(current Stage) (Stage, bool) {
	for i, s := range StageOrder {
		if s == current {
			if i+1 < len(StageOrder) {
				return StageOrder[i+1], true
			}
			return StageNone, false
		}
	}
	return StageNone, false
}
