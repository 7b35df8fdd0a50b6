// Package processors holds the concrete Processor plugins. Scanner is the
// canonical one (spec.md §4.6): it is the primary source of work for the
// rest of the pipeline, comparing on-disk and in-DB state against what the
// stage pipeline still requires and emitting batched tasks.
package processors

import (
	"context"
	"log/slog"

	"github.com/jmylchreest/amm-core/internal/core"
	"github.com/jmylchreest/amm-core/internal/fsscan"
	"github.com/jmylchreest/amm-core/internal/observability"
)

// FileState is the minimal per-file view the Scanner needs: its current
// stage and which task names have already completed for it.
type FileState struct {
	ID             string
	Stage          core.Stage
	CompletedTasks []string
}

// ArtworkCandidate names an entity that needs cover art fetched.
type ArtworkCandidate struct {
	MBID string
}

// FileLister is the repository dependency the Scanner reads file state
// through. Kept narrow and interface-typed so tests can fake it without a
// real database.
type FileLister interface {
	ListActiveFiles(ctx context.Context) ([]FileState, error)
}

// ArtworkLister reports entities missing cover art, grouped by kind.
type ArtworkLister interface {
	ListMissingArtwork(ctx context.Context) (albums, artists, labels []ArtworkCandidate, err error)
}

// StageRegistry is the subset of registry.Registry the Scanner consults to
// learn which tasks are declared for a given stage.
type StageRegistry interface {
	TasksForStage(stage core.Stage) []string
	TaskMeta(name string) (core.PluginMeta, bool)
}

// Config tunes the Scanner's import path and batching.
type Config struct {
	ImportDir        string
	ScannerBatchSize int // default 1000
}

func (c Config) batchSize() int {
	if c.ScannerBatchSize <= 0 {
		return 1000
	}
	return c.ScannerBatchSize
}

// Scanner implements core.EmittingProcessor. It is exclusive and heavy_io
// per spec.md §4.6's final line.
type Scanner struct {
	cfg      Config
	files    FileLister
	artwork  ArtworkLister
	registry StageRegistry
	logger   *slog.Logger

	emitted []core.EmittedTask
}

// NewScanner constructs a Scanner instance. internal/plugins/all.go wraps it
// in the registry.ProcessorConstructor it registers.
func NewScanner(cfg Config, files FileLister, artwork ArtworkLister, registry StageRegistry, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{cfg: cfg, files: files, artwork: artwork, registry: registry, logger: logger}
}

func boolPtr(b bool) *bool { return &b }

// ScannerMeta is the Scanner's static plugin metadata.
func ScannerMeta() core.PluginMeta {
	return core.PluginMeta{
		Kind:        core.PluginProcessor,
		Name:        "scanner",
		Description: "walks the import directory and file table to emit pipeline work",
		Version:     "1.0.0",
		Author:      "amm-core",
		TaskType:    core.TaskTypeScanner,
		Exclusive:   boolPtr(true),
		HeavyIO:     boolPtr(true),
	}
}

func (s *Scanner) Meta() core.PluginMeta { return ScannerMeta() }

// CollectEmitted drains the EmittedTask records produced by the most
// recent Run.
func (s *Scanner) CollectEmitted() []core.EmittedTask {
	out := s.emitted
	s.emitted = nil
	return out
}

// Run implements the five-step algorithm of spec.md §4.6.
func (s *Scanner) Run(ctx context.Context) error {
	var runErr error
	done := observability.TimedOperationWithError(ctx, s.logger, "scanner.run", &runErr)
	defer done()

	s.emitted = nil

	if s.cfg.ImportDir != "" {
		if err := fsscan.PruneEmptyDirs(s.cfg.ImportDir); err != nil {
			s.logger.WarnContext(ctx, "scanner: prune failed", slog.String("error", err.Error()))
		}

		hasFile, err := fsscan.HasRegularFile(s.cfg.ImportDir)
		if err != nil {
			s.logger.WarnContext(ctx, "scanner: import-detection walk failed", slog.String("error", err.Error()))
		} else if hasFile {
			s.emitted = append(s.emitted, core.EmittedTask{TaskName: "importer", CorrelationID: core.NewCorrelationID()})
		}
	}

	if runErr = s.scanStageGaps(ctx); runErr != nil {
		return runErr
	}

	runErr = s.scanArtwork(ctx)
	return runErr
}

// pendingTasks returns the entries of required not already marked done in
// completed.
func pendingTasks(required []string, completed map[string]bool) []string {
	var pending []string
	for _, taskName := range required {
		if !completed[taskName] {
			pending = append(pending, taskName)
		}
	}
	return pending
}

func (s *Scanner) scanStageGaps(ctx context.Context) error {
	if s.files == nil {
		return nil
	}
	files, err := s.files.ListActiveFiles(ctx)
	if err != nil {
		return err
	}

	buckets := make(map[string][]string) // task name -> file IDs
	var order []string

	for _, f := range files {
		if f.Stage.Terminal() {
			continue
		}
		completed := make(map[string]bool, len(f.CompletedTasks))
		for _, t := range f.CompletedTasks {
			completed[t] = true
		}

		// f.Stage is only as current as the last CompleteStageForFile call
		// for this file: StageTracker advances it one stage at a time, so a
		// stage with no registered tasks (most PRE*/POST* stages) is never
		// itself the target of a completion call and the file can sit there
		// indefinitely. Walk forward via core.NextStage, the same ordering
		// StageTracker advances along, until a stage with outstanding work
		// turns up — mirroring the reference's get_next_missing_stage, which
		// only ever considers stages with tasks mapped to them in the first
		// place. A stage whose tasks are already all completed (because a
		// later task ran before the Stage field caught up) is skipped too.
		for stage := f.Stage; ; {
			pending := pendingTasks(s.registry.TasksForStage(stage), completed)
			if len(pending) > 0 {
				for _, taskName := range pending {
					if _, seen := buckets[taskName]; !seen {
						order = append(order, taskName)
					}
					buckets[taskName] = append(buckets[taskName], f.ID)
				}
				break
			}
			next, ok := core.NextStage(stage)
			if !ok {
				break
			}
			stage = next
		}
	}

	batchSize := s.cfg.batchSize()
	for _, taskName := range order {
		ids := buckets[taskName]
		for i := 0; i < len(ids); i += batchSize {
			end := i + batchSize
			if end > len(ids) {
				end = len(ids)
			}
			s.emitted = append(s.emitted, core.EmittedTask{
				TaskName:      taskName,
				Batch:         core.NewFileIDBatch(ids[i:end]),
				CorrelationID: core.NewCorrelationID(),
			})
		}
	}
	return nil
}

func (s *Scanner) scanArtwork(ctx context.Context) error {
	if s.artwork == nil {
		return nil
	}
	albums, artists, labels, err := s.artwork.ListMissingArtwork(ctx)
	if err != nil {
		return err
	}
	artMap := make(map[string]core.ArtType)
	for _, a := range albums {
		artMap[a.MBID] = core.ArtAlbum
	}
	for _, a := range artists {
		artMap[a.MBID] = core.ArtArtist
	}
	for _, l := range labels {
		artMap[l.MBID] = core.ArtLabel
	}
	if len(artMap) > 0 {
		s.emitted = append(s.emitted, core.EmittedTask{
			TaskName:      "art_getter",
			Batch:         core.NewArtMapBatch(artMap),
			CorrelationID: core.NewCorrelationID(),
		})
	}
	return nil
}
