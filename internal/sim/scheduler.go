package sim

import (
	"sync"
	"time"

	"github.com/stellarforge/coreserver/internal/simclock"
	"github.com/stellarforge/coreserver/pkg/logger"
)

// System is one stage of the fixed per-tick pipeline (spec §4.3). Each
// system owns its own reference to the entity store and whatever else
// it needs; the scheduler only ever calls Run in list order.
type System interface {
	Name() string
	Run(now time.Time)
}

// CommandHandler executes one drained command against the entity store.
// Implemented by internal/systems so this package stays free of a
// dependency on component types.
type CommandHandler interface {
	Handle(cmd Command, now time.Time)
}

// Hooks are the side effects the scheduler triggers around the fixed
// system pipeline: periodic persistence snapshots (§4.2 step 3), daily
// inactivity cleanup (§4.2 step 4), and tick metrics (§4.2 step 5). Each
// is optional; a nil hook is skipped.
type Hooks struct {
	// MaybeSnapshot is invoked every tick; the implementation itself
	// decides whether SAVE_INTERVAL_SECONDS has elapsed.
	MaybeSnapshot func(now time.Time)
	// MaybeCleanup is invoked every tick; the implementation decides
	// whether a new UTC day has started since the last invocation.
	MaybeCleanup func(now time.Time)
	// RecordTick reports tick duration and scheduling jitter.
	RecordTick func(duration, jitter time.Duration)
	// RecordQueueDepth reports the queue depth drained this tick.
	RecordQueueDepth func(depth int)
}

// Scheduler runs the dedicated simulation thread of spec §4.2: drain
// commands, run systems in fixed order, trigger save/cleanup hooks,
// record metrics, and sleep until the next planned tick boundary. Tick
// boundaries are computed from Clock.Now; the system clock returns UTC
// times that carry no monotonic reading, so a wall-clock step shifts the
// next boundary.
type Scheduler struct {
	queue    *Queue
	handler  CommandHandler
	systems  []System
	clock    simclock.Clock
	tickRate time.Duration
	hooks    Hooks
	log      logger.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewScheduler wires the queue, the command handler, and the ordered
// system list. `systems` must already be in the §4.3 order; this package
// does not reorder them.
func NewScheduler(queue *Queue, handler CommandHandler, systems []System, clock simclock.Clock, tickRate time.Duration, hooks Hooks, log logger.Logger) *Scheduler {
	return &Scheduler{
		queue:    queue,
		handler:  handler,
		systems:  systems,
		clock:    clock,
		tickRate: tickRate,
		hooks:    hooks,
		log:      log,
	}
}

// Start launches the tick loop in its own goroutine. Calling Start twice
// on an already-running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})

	go s.loop()
}

// Stop requests the loop exit after finishing its current tick, then
// blocks until it has (spec §4.2 "Graceful stop: the loop exits after
// the current tick; a final persistence snapshot is attempted").
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	stop := s.stop
	done := s.done
	s.mu.Unlock()

	close(stop)
	<-done
}

func (s *Scheduler) loop() {
	defer close(s.done)

	plannedStart := s.clock.Now()

	for {
		select {
		case <-s.stop:
			s.runTick(plannedStart)
			s.finalStop()
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return
		default:
		}

		actualStart := s.clock.Now()
		s.runTick(plannedStart)

		jitter := actualStart.Sub(plannedStart)
		if jitter < 0 {
			jitter = -jitter
		}
		duration := s.clock.Now().Sub(actualStart)
		if s.hooks.RecordTick != nil {
			s.hooks.RecordTick(duration, jitter)
		}

		plannedStart = plannedStart.Add(s.tickRate)
		remaining := plannedStart.Sub(s.clock.Now())
		if remaining > 0 {
			s.sleepInterruptibly(remaining)
		} else {
			// We've fallen behind; resync to now rather than firing a
			// burst of immediate ticks to catch up.
			plannedStart = s.clock.Now()
		}
	}
}

// sleepInterruptibly sleeps for `d` but returns early if Stop is called,
// so graceful shutdown does not wait out a full idle tick period.
func (s *Scheduler) sleepInterruptibly(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-s.stop:
	}
}

func (s *Scheduler) runTick(now time.Time) {
	drained := s.queue.DrainAll()
	if s.hooks.RecordQueueDepth != nil {
		s.hooks.RecordQueueDepth(len(drained))
	}
	for _, cmd := range drained {
		s.handler.Handle(cmd, now)
	}

	for _, system := range s.systems {
		system.Run(now)
	}

	if s.hooks.MaybeSnapshot != nil {
		s.hooks.MaybeSnapshot(now)
	}
	if s.hooks.MaybeCleanup != nil {
		s.hooks.MaybeCleanup(now)
	}
}

func (s *Scheduler) finalStop() {
	if s.hooks.MaybeSnapshot != nil {
		s.log.Trace(logger.Info, "scheduler", "attempting final persistence snapshot before shutdown")
		s.hooks.MaybeSnapshot(s.clock.Now())
	}
}

// RunOnce drains the queue and runs every system a single time, without
// sleeping. Used by read paths that "opportunistically invoke one round
// of command drain + single-tick processing before snapshotting" for
// deterministic tests (§4.11) and must never be called while Start has
// an active loop running concurrently.
func (s *Scheduler) RunOnce(now time.Time) {
	s.runTick(now)
}
