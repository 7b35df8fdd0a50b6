// Package concurrency implements the shared gate described in spec.md §4.2:
// a global exclusive lock, a bounded heavy-I/O semaphore, a bounded normal
// semaphore, per-task-type exclusive locks, per-invocation cooldowns, and
// system-load shedding.
//
// The reference (src/core/concurrency_mixin.py) built this on asyncio
// primitives attached to the instance via a mixin. Per spec.md §9 ("pick
// one concurrency model for the whole core"), this Go port uses goroutines
// throughout and golang.org/x/sync/semaphore.Weighted for the two counting
// semaphores, promoted here from an indirect to a direct dependency.
package concurrency

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// LoadSampler reports the current 1-minute system load average. Production
// code supplies GopsutilLoadSampler; tests can supply a constant or
// scripted value.
type LoadSampler interface {
	Load1(ctx context.Context) (float64, error)
}

// Config tunes the controller's defaults, mirroring spec.md §4.2 and the
// Configuration provider contract of §6 (`concurrency.*` keys).
type Config struct {
	SystemLoadLimit float64 // default 15.0
	MaxHeavyIO      int64   // default max(1, cores/2)
	MaxNormal       int64   // default max(2, 2*cores)

	NormalTaskBackoff  time.Duration // default 1s
	NormalTaskMaxWait  time.Duration // default 30s
}

// DefaultConfig returns the spec's defaults for the given core count.
func DefaultConfig(cores int) Config {
	heavy := int64(cores / 2)
	if heavy < 1 {
		heavy = 1
	}
	normal := int64(2 * cores)
	if normal < 2 {
		normal = 2
	}
	return Config{
		SystemLoadLimit:   15.0,
		MaxHeavyIO:        heavy,
		MaxNormal:         normal,
		NormalTaskBackoff: time.Second,
		NormalTaskMaxWait: 30 * time.Second,
	}
}

// Controller is the process-wide concurrency gate. A single Controller must
// be shared by every Task/Processor invocation in the process (spec.md
// §9: avoid hidden global state — construct one explicitly and pass it to
// TaskManager/ProcessorLoop).
type Controller struct {
	cfg    Config
	load   LoadSampler
	logger *slog.Logger

	exclusiveLock sync.Mutex
	heavySem      *semaphore.Weighted
	normalSem     *semaphore.Weighted

	typeMu    sync.Mutex
	typeLocks map[string]*sync.Mutex

	cooldownMu    sync.Mutex
	cooldownUntil map[string]time.Time

	runningHeavyIO atomic.Int64
	runningNormal  atomic.Int64
}

// New constructs a Controller. logger may be nil (defaults to slog.Default()).
func New(cfg Config, load LoadSampler, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		cfg:           cfg,
		load:          load,
		logger:        logger,
		heavySem:      semaphore.NewWeighted(cfg.MaxHeavyIO),
		normalSem:     semaphore.NewWeighted(cfg.MaxNormal),
		typeLocks:     make(map[string]*sync.Mutex),
		cooldownUntil: make(map[string]time.Time),
	}
}

func (c *Controller) typeLock(taskTypeName string) *sync.Mutex {
	c.typeMu.Lock()
	defer c.typeMu.Unlock()
	l, ok := c.typeLocks[taskTypeName]
	if !ok {
		l = &sync.Mutex{}
		c.typeLocks[taskTypeName] = l
	}
	return l
}

// inCooldown reports whether cooldownKey is still within its post-run
// cooldown window.
func (c *Controller) inCooldown(cooldownKey string) bool {
	c.cooldownMu.Lock()
	defer c.cooldownMu.Unlock()
	until, ok := c.cooldownUntil[cooldownKey]
	return ok && time.Now().Before(until)
}

func (c *Controller) startCooldown(cooldownKey string, seconds float64) {
	if seconds <= 0 {
		return
	}
	c.cooldownMu.Lock()
	defer c.cooldownMu.Unlock()
	c.cooldownUntil[cooldownKey] = time.Now().Add(time.Duration(seconds * float64(time.Second)))
}

// Invocation describes the gating flags of a single Task/Processor run,
// taken from its PluginMeta.
type Invocation struct {
	CooldownKey     string // usually the plugin name
	Exclusive       bool
	HeavyIO         bool
	TaskTypeName    string // non-empty enables the per-type exclusive lock
	CooldownSeconds float64
}

// systemLoad reads the current 1-minute load average; a nil sampler or a
// sampling error is treated as zero load (fail open, matching the
// reference's `except Exception: return 0.0`).
func (c *Controller) systemLoad(ctx context.Context) float64 {
	if c.load == nil {
		return 0
	}
	l, err := c.load.Load1(ctx)
	if err != nil {
		c.logger.WarnContext(ctx, "concurrency: load sample failed, assuming idle", slog.String("error", err.Error()))
		return 0
	}
	return l
}

func (c *Controller) loadHigh(ctx context.Context) bool {
	// ">" not ">=": load exactly at the limit is not exceeding it (spec.md §8).
	return c.systemLoad(ctx) > c.cfg.SystemLoadLimit
}

// Release undoes whatever Acquire acquired, in LIFO order, and starts the
// invocation's cooldown.
type Release func()

// Acquire implements the protocol of spec.md §4.2. It returns (nil, false,
// nil) if the invocation was skipped (cooldown or sustained high load) —
// not an error, per the Skipped kind in spec.md §7. On success it returns a
// Release that MUST be called exactly once, however the body terminates
// (including on ctx cancellation).
func (c *Controller) Acquire(ctx context.Context, inv Invocation) (Release, bool, error) {
	if c.inCooldown(inv.CooldownKey) {
		c.logger.DebugContext(ctx, "concurrency: skipped, in cooldown", slog.String("key", inv.CooldownKey))
		return nil, false, nil
	}

	if inv.HeavyIO && c.loadHigh(ctx) {
		c.logger.InfoContext(ctx, "concurrency: skipping heavy_io invocation, system load high", slog.String("key", inv.CooldownKey))
		return nil, false, nil
	}

	if !inv.Exclusive && !inv.HeavyIO && c.loadHigh(ctx) {
		if !c.waitForNormalCapacity(ctx) {
			c.logger.InfoContext(ctx, "concurrency: skipping non-exclusive invocation after backoff, load stayed high", slog.String("key", inv.CooldownKey))
			return nil, false, nil
		}
	}

	sem := c.normalSem
	counter := &c.runningNormal
	if inv.HeavyIO {
		sem = c.heavySem
		counter = &c.runningHeavyIO
	}
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, false, err
	}
	counter.Add(1)

	var typeLock *sync.Mutex
	if inv.Exclusive {
		c.exclusiveLock.Lock()
		if inv.TaskTypeName != "" {
			typeLock = c.typeLock(inv.TaskTypeName)
			typeLock.Lock()
		}
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		if inv.Exclusive {
			if typeLock != nil {
				typeLock.Unlock()
			}
			c.exclusiveLock.Unlock()
		}
		counter.Add(-1)
		sem.Release(1)
		c.startCooldown(inv.CooldownKey, inv.CooldownSeconds)
	}
	return release, true, nil
}

// waitForNormalCapacity busy-waits with bounded backoff while load stays
// high, per spec.md §4.2 step 4. Returns true if load dropped back under
// the limit before NormalTaskMaxWait elapsed.
func (c *Controller) waitForNormalCapacity(ctx context.Context) bool {
	deadline := time.Now().Add(c.cfg.NormalTaskMaxWait)
	for c.loadHigh(ctx) {
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(c.cfg.NormalTaskBackoff):
		}
	}
	return true
}

// RunningHeavyIO and RunningNormal report the number of invocations
// currently holding the heavy-I/O / normal semaphore, useful for asserting
// the bound invariants of spec.md §8 (never exceeding max_heavy_io
// concurrently running invocations).
func (c *Controller) RunningHeavyIO() int64 {
	return c.runningHeavyIO.Load()
}

func (c *Controller) RunningNormal() int64 {
	return c.runningNormal.Load()
}
