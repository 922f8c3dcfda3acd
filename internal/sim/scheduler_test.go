package sim

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stellarforge/coreserver/internal/simclock"
	"github.com/stellarforge/coreserver/pkg/logger"
	"github.com/stretchr/testify/assert"
)

type recordingSystem struct {
	name  string
	calls *int32
}

func (r recordingSystem) Name() string { return r.name }
func (r recordingSystem) Run(now time.Time) {
	atomic.AddInt32(r.calls, 1)
}

type recordingHandler struct {
	handled *int32
}

func (h recordingHandler) Handle(cmd Command, now time.Time) {
	atomic.AddInt32(h.handled, 1)
}

func TestSchedulerRunsSystemsInOrderEachTick(t *testing.T) {
	var order []string
	a := system{name: "production", fn: func() { order = append(order, "production") }}
	b := system{name: "construction", fn: func() { order = append(order, "construction") }}

	q := NewQueue()
	handler := recordingHandler{handled: new(int32)}
	clock := simclock.NewFake(time.Unix(0, 0))
	log := logger.NewStdLogger("test", "localhost")
	defer log.Release()

	sched := NewScheduler(q, handler, []System{a, b}, clock, time.Second, Hooks{}, log)
	sched.RunOnce(clock.Now())

	assert.Equal(t, []string{"production", "construction"}, order)
}

func TestSchedulerDrainsQueueBeforeRunningSystems(t *testing.T) {
	q := NewQueue()
	q.Enqueue(Command{Kind: UpdatePlayerActivity})
	q.Enqueue(Command{Kind: BuildBuilding})

	handled := new(int32)
	handler := recordingHandler{handled: handled}
	calls := new(int32)
	sys := recordingSystem{name: "noop", calls: calls}

	clock := simclock.NewFake(time.Unix(0, 0))
	log := logger.NewStdLogger("test", "localhost")
	defer log.Release()

	sched := NewScheduler(q, handler, []System{sys}, clock, time.Second, Hooks{}, log)
	sched.RunOnce(clock.Now())

	assert.Equal(t, int32(2), atomic.LoadInt32(handled))
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
	assert.Equal(t, 0, q.Depth())
}

func TestSchedulerStartStopInvokesFinalSnapshot(t *testing.T) {
	q := NewQueue()
	handler := recordingHandler{handled: new(int32)}
	clock := simclock.NewFake(time.Unix(0, 0))
	log := logger.NewStdLogger("test", "localhost")
	defer log.Release()

	snapshots := new(int32)
	hooks := Hooks{
		MaybeSnapshot: func(now time.Time) { atomic.AddInt32(snapshots, 1) },
	}

	sched := NewScheduler(q, handler, nil, clock, 10*time.Millisecond, hooks, log)
	sched.Start()
	time.Sleep(30 * time.Millisecond)
	sched.Stop()

	assert.GreaterOrEqual(t, atomic.LoadInt32(snapshots), int32(1))
}

// system is a minimal System adapter for ordering assertions.
type system struct {
	name string
	fn   func()
}

func (s system) Name() string    { return s.name }
func (s system) Run(time.Time) { s.fn() }
