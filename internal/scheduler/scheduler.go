// Package scheduler wires a cron-driven trigger for full-pipeline runs in
// `amm serve`, alongside the TaskManager's own inactivity-based idle loop
// (spec.md §4.4). Adapted from the teacher's database-backed, multi-source
// job scheduler (internal/scheduler/scheduler.go in the reference repo):
// this is a much smaller adaptation — a single fixed cron entry instead of
// a dynamically-synced table of per-source schedules — but keeps the same
// robfig/cron setup (seconds-enabled parser, panic-recovering job chain).
package scheduler

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// PipelineScheduler runs a single job — triggering a full pipeline pass —
// on a cron expression.
type PipelineScheduler struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// New constructs a PipelineScheduler. The parser accepts 6-field
// expressions (seconds minute hour dom month dow) plus the usual
// @every/@daily descriptors, matching the teacher's scheduler.
func New(logger *slog.Logger) *PipelineScheduler {
	if logger == nil {
		logger = slog.Default()
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser), cron.WithChain(
		cron.Recover(cron.DefaultLogger),
	))
	return &PipelineScheduler{cron: c, logger: logger}
}

// AddJob registers fn to run on the given cron expression. Call before
// Start; returns an error if expr does not parse.
func (s *PipelineScheduler) AddJob(expr string, fn func()) error {
	if _, err := s.cron.AddFunc(expr, fn); err != nil {
		return fmt.Errorf("scheduling cron job %q: %w", expr, err)
	}
	return nil
}

// Start begins running scheduled jobs in the background.
func (s *PipelineScheduler) Start() {
	s.logger.Info("scheduler: starting")
	s.cron.Start()
}

// Stop halts the scheduler and waits for any in-flight job to finish.
func (s *PipelineScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler: stopped")
}
