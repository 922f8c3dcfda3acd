package api

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/stellarforge/coreserver/internal/ecs"
	"github.com/stellarforge/coreserver/internal/events"
	"github.com/stellarforge/coreserver/internal/notify"
	"github.com/stellarforge/coreserver/internal/persistence"
	"github.com/stellarforge/coreserver/internal/sim"
	"github.com/stellarforge/coreserver/internal/systems"
	"github.com/stellarforge/coreserver/pkg/config"
	"github.com/stellarforge/coreserver/pkg/logger"
)

// testHarness bundles everything a handler test needs: the server under
// test, the entity store it reads from, and the command queue + handler
// a test drives by hand to stand in for the scheduler's tick loop, which
// never runs in these tests.
type testHarness struct {
	server *Server
	store  *ecs.Store
	queue  *sim.Queue
	cmds   *systems.Commands
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()

	cfg := config.Load()
	store := ecs.New()

	log := logger.NewStdLogger("test", "localhost")
	t.Cleanup(log.Release)

	bridge, err := persistence.New(context.Background(), cfg, log)
	if err != nil {
		t.Fatalf("persistence.New: %v", err)
	}
	t.Cleanup(bridge.Close)

	sink := events.New(log)
	ids := sim.NewIDAllocator()
	queue := sim.NewQueue()
	galaxy := sim.NewGalaxyPool(cfg)
	cmds := systems.NewCommands(store, cfg, sink, log, ids)
	notifyStore := notify.New()
	reg := prometheus.NewRegistry()

	srv := New(cfg, store, bridge, queue, galaxy, sink, cmds, notifyStore, reg, log)

	return &testHarness{server: srv, store: store, queue: queue, cmds: cmds}
}

// drainOnce processes every command currently queued, as the scheduler
// would on one tick. Handlers that block on submit() need this called
// from a second goroutine while the request is in flight.
func (h *testHarness) drainOnce(now time.Time) {
	for _, cmd := range h.queue.DrainAll() {
		h.cmds.Handle(cmd, now)
	}
}

// drainUntil polls the queue until at least one command has been
// processed or the deadline passes, for tests exercising submit()'s
// blocking synchronous commands.
func (h *testHarness) drainUntil(t *testing.T, now time.Time, deadline time.Duration) {
	t.Helper()
	stop := time.After(deadline)
	for {
		select {
		case <-stop:
			return
		default:
		}
		if h.queue.Depth() > 0 {
			h.drainOnce(now)
			return
		}
		time.Sleep(time.Millisecond)
	}
}
