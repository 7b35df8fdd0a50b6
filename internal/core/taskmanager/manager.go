// Package taskmanager implements spec.md §4.4: scheduling tasks and
// processors through the ConcurrencyController, running whole stages and
// whole pipelines in registration order, and the idle loop that triggers
// the idle_runner processor after a period of inactivity.
//
// Grounded on the reference's src/core/taskmanager.py. Python's
// asyncio.create_task background scheduling becomes explicit goroutines;
// Manager holds no package-level state, constructed with New() and passed
// around explicitly (spec.md §9).
package taskmanager

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jmylchreest/amm-core/internal/core"
	"github.com/jmylchreest/amm-core/internal/core/concurrency"
)

// Registry is the subset of registry.Registry that Manager needs.
type Registry interface {
	TaskMeta(name string) (core.PluginMeta, bool)
	ProcessorMeta(name string) (core.PluginMeta, bool)
	CreateTask(ctx context.Context, name string, batch core.Batch, kwargs map[string]any) (core.Task, error)
	CreateProcessor(ctx context.Context, name string, kwargs map[string]any) (core.Processor, error)
	TasksForStage(stage core.Stage) []string
	ProcessorNames() []string
}

// Config tunes the idle loop. IdleInterval mirrors the reference's default
// of 300 seconds of inactivity before idle_runner is triggered.
type Config struct {
	IdleInterval time.Duration
}

// DefaultConfig returns the reference's default idle interval (5 minutes).
func DefaultConfig() Config {
	return Config{IdleInterval: 300 * time.Second}
}

// Manager is the process-wide scheduler. Construct with New(); do not copy.
type Manager struct {
	reg    Registry
	ctrl   *concurrency.Controller
	cfg    Config
	logger *slog.Logger

	runningMu    sync.Mutex
	running      map[string]struct{}
	lastActivity time.Time

	shutdownMu sync.Mutex
	shutdown   bool
	idleDone   chan struct{}
}

// New constructs a Manager bound to reg and ctrl.
func New(reg Registry, ctrl *concurrency.Controller, cfg Config, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		reg:          reg,
		ctrl:         ctrl,
		cfg:          cfg,
		logger:       logger,
		running:      make(map[string]struct{}),
		lastActivity: time.Now(),
	}
}

func (m *Manager) markRunning(id string) {
	m.runningMu.Lock()
	m.running[id] = struct{}{}
	m.lastActivity = time.Now()
	m.runningMu.Unlock()
}

func (m *Manager) markDone(id string) {
	m.runningMu.Lock()
	delete(m.running, id)
	m.lastActivity = time.Now()
	m.runningMu.Unlock()
}

// RunningCount reports how many task/processor instances are currently
// executing.
func (m *Manager) RunningCount() int {
	m.runningMu.Lock()
	defer m.runningMu.Unlock()
	return len(m.running)
}

// IsIdle reports whether no task/processor instance is currently running.
func (m *Manager) IsIdle() bool {
	return m.RunningCount() == 0
}

// RunningNames returns the names of every task/processor instance currently
// executing, sorted for stable output. Backs the /status HTTP endpoint.
func (m *Manager) RunningNames() []string {
	m.runningMu.Lock()
	names := make([]string, 0, len(m.running))
	for n := range m.running {
		names = append(names, n)
	}
	m.runningMu.Unlock()
	sort.Strings(names)
	return names
}

func (m *Manager) isShuttingDown() bool {
	m.shutdownMu.Lock()
	defer m.shutdownMu.Unlock()
	return m.shutdown
}

// RunTask instantiates and runs the named task, subject to the
// ConcurrencyController's gating. It returns (false, nil) if the
// invocation was skipped (cooldown or load-shedding), matching spec.md §7's
// Skipped outcome — not an error.
func (m *Manager) RunTask(ctx context.Context, name string, batch core.Batch, kwargs map[string]any) (bool, error) {
	meta, ok := m.reg.TaskMeta(name)
	if !ok {
		return false, &core.NotRegisteredError{Kind: core.PluginTask, Name: name}
	}

	release, ok, err := m.ctrl.Acquire(ctx, invocationFor(meta))
	if err != nil {
		return false, err
	}
	if !ok {
		m.logger.InfoContext(ctx, "taskmanager: skipped task", slog.String("task", name))
		return false, nil
	}
	defer release()

	inst, err := m.reg.CreateTask(ctx, name, batch, kwargs)
	if err != nil {
		return false, err
	}
	m.runInstance(ctx, name, inst.Run)
	return true, nil
}

// RunStage runs every task declared for stage, in registration order,
// sequentially — each task manages its own batch internally (spec.md §4.4).
func (m *Manager) RunStage(ctx context.Context, stage core.Stage, batch core.Batch, kwargs map[string]any) error {
	names := m.reg.TasksForStage(stage)
	if len(names) == 0 {
		m.logger.DebugContext(ctx, "taskmanager: no tasks for stage", slog.String("stage", stage.String()))
		return nil
	}
	m.logger.InfoContext(ctx, "taskmanager: running stage", slog.String("stage", stage.String()), slog.Int("tasks", len(names)))
	for _, name := range names {
		if m.isShuttingDown() {
			return nil
		}
		if _, err := m.RunTask(ctx, name, batch, kwargs); err != nil {
			return err
		}
	}
	return nil
}

// RunPipeline runs every stage in order (spec.md §3's fixed linear order,
// from core.StageOrder), stopping early if shutdown is requested.
func (m *Manager) RunPipeline(ctx context.Context, batch core.Batch, kwargs map[string]any) error {
	for _, stage := range core.StageOrder {
		if m.isShuttingDown() {
			return nil
		}
		if err := m.RunStage(ctx, stage, batch, kwargs); err != nil {
			return err
		}
	}
	return nil
}

// RunProcessor instantiates and runs the named processor, subject to the
// same ConcurrencyController gating as tasks.
func (m *Manager) RunProcessor(ctx context.Context, name string, kwargs map[string]any) (bool, error) {
	meta, ok := m.reg.ProcessorMeta(name)
	if !ok {
		return false, &core.NotRegisteredError{Kind: core.PluginProcessor, Name: name}
	}

	release, ok, err := m.ctrl.Acquire(ctx, invocationFor(meta))
	if err != nil {
		return false, err
	}
	if !ok {
		m.logger.InfoContext(ctx, "taskmanager: skipped processor", slog.String("processor", name))
		return false, nil
	}
	defer release()

	inst, err := m.reg.CreateProcessor(ctx, name, kwargs)
	if err != nil {
		return false, err
	}
	m.runInstance(ctx, name, inst.Run)
	return true, nil
}

// RunAllProcessors runs every registered processor except idle_runner,
// which is only ever triggered by the idle loop.
func (m *Manager) RunAllProcessors(ctx context.Context) error {
	for _, name := range m.reg.ProcessorNames() {
		if name == "idle_runner" {
			continue
		}
		if m.isShuttingDown() {
			return nil
		}
		if _, err := m.RunProcessor(ctx, name, nil); err != nil {
			return err
		}
	}
	return nil
}

func (m *Manager) runInstance(ctx context.Context, name string, run func(context.Context) error) {
	id := name
	m.markRunning(id)
	defer m.markDone(id)
	m.logger.InfoContext(ctx, "taskmanager: starting", slog.String("name", name))
	if err := run(ctx); err != nil {
		m.logger.ErrorContext(ctx, "taskmanager: instance failed", slog.String("name", name), slog.String("error", err.Error()))
		return
	}
	m.logger.InfoContext(ctx, "taskmanager: finished", slog.String("name", name))
}

// StartIdleLoop launches the background goroutine that triggers the
// idle_runner processor once the manager has been idle for cfg.IdleInterval.
// It is a no-op if already running.
func (m *Manager) StartIdleLoop(ctx context.Context) {
	m.shutdownMu.Lock()
	if m.idleDone != nil {
		m.shutdownMu.Unlock()
		return
	}
	m.idleDone = make(chan struct{})
	m.shutdownMu.Unlock()

	go m.idleLoop(ctx)
	m.logger.Info("taskmanager: idle loop started")
}

func (m *Manager) idleLoop(ctx context.Context) {
	defer close(m.idleDone)
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if m.isShuttingDown() {
				return
			}
			m.runningMu.Lock()
			idleFor := time.Since(m.lastActivity)
			m.runningMu.Unlock()
			if idleFor < m.cfg.IdleInterval {
				continue
			}
			hasIdleRunner := false
			for _, n := range m.reg.ProcessorNames() {
				if n == "idle_runner" {
					hasIdleRunner = true
					break
				}
			}
			if !hasIdleRunner {
				continue
			}
			m.logger.DebugContext(ctx, "taskmanager: triggering idle_runner")
			if _, err := m.RunProcessor(ctx, "idle_runner", nil); err != nil {
				m.logger.ErrorContext(ctx, "taskmanager: idle_runner failed", slog.String("error", err.Error()))
			}
			m.runningMu.Lock()
			m.lastActivity = time.Now()
			m.runningMu.Unlock()
		}
	}
}

// Shutdown stops accepting new idle-loop triggers and waits (best-effort,
// bounded to 30s) for running task/processor instances to finish.
func (m *Manager) Shutdown(ctx context.Context) {
	m.shutdownMu.Lock()
	m.shutdown = true
	done := m.idleDone
	m.shutdownMu.Unlock()

	if done != nil {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}

	deadline := time.Now().Add(30 * time.Second)
	for !m.IsIdle() && time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return
		case <-time.After(100 * time.Millisecond):
		}
	}
}

func invocationFor(meta core.PluginMeta) concurrency.Invocation {
	return concurrency.Invocation{
		CooldownKey:     string(meta.Name),
		Exclusive:       meta.IsExclusive(),
		HeavyIO:         meta.IsHeavyIO(),
		TaskTypeName:    string(meta.TaskType),
		CooldownSeconds: meta.CooldownSeconds,
	}
}
