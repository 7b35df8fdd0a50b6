// Package processorloop implements spec.md §4.5: a long-running worker per
// processor that repeatedly acquires the concurrency gate, runs the
// processor instance, collects whatever tasks it emitted, and hands them to
// the TaskManager for scheduling — then repeats.
//
// Grounded on the reference's src/core/processor_loop.py, whose
// _run_processor_instance busy-polls acquire_concurrency every 0.1s until
// it succeeds, runs the instance, releases in a finally block, collects
// emitted tasks, and sleeps 0.1s before repeating. The Go port replaces the
// busy-poll with the same fixed interval, waited out with a select on
// time.After and ctx.Done inside a cancellable loop, since spec.md does not call for a smarter backoff here.
package processorloop

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jmylchreest/amm-core/internal/core"
	"github.com/jmylchreest/amm-core/internal/core/concurrency"
)

// Registry is the subset of registry.Registry a Loop needs.
type Registry interface {
	ProcessorMeta(name string) (core.PluginMeta, bool)
	CreateProcessor(ctx context.Context, name string, kwargs map[string]any) (core.Processor, error)
}

// Scheduler is the subset of taskmanager.Manager a Loop needs to hand off
// tasks emitted by a processor.
type Scheduler interface {
	RunTask(ctx context.Context, name string, batch core.Batch, kwargs map[string]any) (bool, error)
}

// pollInterval matches the reference's fixed 0.1s poll/repeat cadence.
const pollInterval = 100 * time.Millisecond

// Loop runs every registered EmittingProcessor/Processor concurrently, each
// in its own goroutine, until Shutdown is called.
type Loop struct {
	reg    Registry
	ctrl   *concurrency.Controller
	sched  Scheduler
	logger *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// New constructs a Loop.
func New(reg Registry, ctrl *concurrency.Controller, sched Scheduler, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{reg: reg, ctrl: ctrl, sched: sched, logger: logger}
}

// StartAll launches one worker goroutine per processor name. idle_runner is
// excluded: it is only ever triggered on demand by the TaskManager idle
// loop, never run continuously.
func (l *Loop) StartAll(ctx context.Context, processorNames []string) {
	ctx, cancel := context.WithCancel(ctx)
	l.cancel = cancel
	for _, name := range processorNames {
		if name == "idle_runner" {
			continue
		}
		l.wg.Add(1)
		go l.runProcessorWorker(ctx, name)
	}
}

// Shutdown cancels every worker and waits for them to exit.
func (l *Loop) Shutdown() {
	if l.cancel != nil {
		l.cancel()
	}
	l.wg.Wait()
}

func (l *Loop) runProcessorWorker(ctx context.Context, name string) {
	defer l.wg.Done()
	meta, ok := l.reg.ProcessorMeta(name)
	if !ok {
		l.logger.ErrorContext(ctx, "processorloop: unknown processor", slog.String("name", name))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		inv := concurrency.Invocation{
			CooldownKey:     name,
			Exclusive:       meta.IsExclusive(),
			HeavyIO:         meta.IsHeavyIO(),
			TaskTypeName:    string(meta.TaskType),
			CooldownSeconds: meta.CooldownSeconds,
		}
		release, ok, err := l.ctrl.Acquire(ctx, inv)
		if err != nil {
			l.logger.ErrorContext(ctx, "processorloop: acquire failed", slog.String("processor", name), slog.String("error", err.Error()))
			return
		}
		if !ok {
			if !sleepOrDone(ctx, pollInterval) {
				return
			}
			continue
		}

		l.runOnce(ctx, name)
		release()

		if !sleepOrDone(ctx, pollInterval) {
			return
		}
	}
}

func (l *Loop) runOnce(ctx context.Context, name string) {
	inst, err := l.reg.CreateProcessor(ctx, name, nil)
	if err != nil {
		l.logger.ErrorContext(ctx, "processorloop: instantiate failed", slog.String("processor", name), slog.String("error", err.Error()))
		return
	}

	if err := inst.Run(ctx); err != nil {
		l.logger.ErrorContext(ctx, "processorloop: run failed", slog.String("processor", name), slog.String("error", err.Error()))
		return
	}

	emitting, ok := inst.(core.EmittingProcessor)
	if !ok {
		return
	}
	for _, task := range emitting.CollectEmitted() {
		l.logger.DebugContext(ctx, "processorloop: handing off emitted task",
			slog.String("processor", name), slog.String("task", task.TaskName), slog.String("correlation_id", task.CorrelationID))
		if _, err := l.sched.RunTask(ctx, task.TaskName, task.Batch, task.Kwargs); err != nil {
			l.logger.ErrorContext(ctx, "processorloop: emitted task failed",
				slog.String("processor", name), slog.String("task", task.TaskName),
				slog.String("correlation_id", task.CorrelationID), slog.String("error", err.Error()))
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
