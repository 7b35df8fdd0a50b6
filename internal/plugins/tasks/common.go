// Package tasks holds the concrete Task plugins: importer, parser,
// fingerprinter, art_getter, lyrics_getter, normalizer, trimmer, deduper,
// converter, tagger, and sorter,
// grounded on the reference's src/plugins/tasks/*.py.
//
// Every task here follows the same shape: Meta() returns static
// PluginMeta, Run(ctx) walks its batch and, for each item, performs its
// domain operation then reports completion through StageTracker — never
// by touching CompletedTasks directly (spec.md §9 Open Question 1).
package tasks

import (
	"context"

	"github.com/jmylchreest/amm-core/internal/core"
)

// StageCompleter is the StageTracker dependency every task uses to report
// per-file completion. Narrowed to the one method tasks need.
type StageCompleter interface {
	CompleteStageForFile(ctx context.Context, fileID, taskName string) error
	BatchCompleteStage(ctx context.Context, fileIDs []string, taskName string) error
}

func boolPtr(b bool) *bool { return &b }
