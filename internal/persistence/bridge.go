// Package persistence implements the async persistence bridge of spec
// §4.12: a goroutine-owned queue of write jobs the simulation thread
// submits into without blocking its own tick, plus the periodic snapshot
// and startup hydration that keep the database and the in-process entity
// store in sync. The teacher talks to Postgres through a synchronous pgx
// v3 connection pool (pkg/db); here the pool is pgx/v5's pgxpool, and the
// synchronous call becomes a job handed to a dedicated goroutine, which
// is the closest Go analogue to "a separate event loop owned by the
// request adapter" the original Python process used.
package persistence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"github.com/stellarforge/coreserver/internal/ecs"
	"github.com/stellarforge/coreserver/pkg/config"
	"github.com/stellarforge/coreserver/pkg/locker"
	"github.com/stellarforge/coreserver/pkg/logger"
)

// job is a unit of work submitted to the bridge's loop. `done` is nil for
// fire-and-forget submissions.
type job struct {
	run  func(ctx context.Context) error
	done chan error
}

// Bridge owns the connection pool and the single goroutine that drains
// write jobs against it, so every statement the simulation thread wants
// persisted is serialized through one place rather than racing across
// however many commands happen to complete in the same tick.
type Bridge struct {
	pool *pgxpool.Pool
	cfg  config.Config
	log  logger.Logger

	jobs chan job

	// saveLock serializes the periodic snapshot against itself: spec
	// §4.12 says "a single global lock guards save invocation" and an
	// overlapping save must be skipped, not queued.
	saveLock *locker.ConcurrentLocker

	throttleMu sync.Mutex
	throttle   map[ecs.EntityID]*rate.Limiter
}

// queueDepth bounds how many pending writes the bridge tolerates before
// SubmitAsync starts dropping jobs on the floor; past this point the
// database is falling behind the simulation and queuing further only
// delays the inevitable.
const queueDepth = 4096

// New connects to the database named by cfg.DatabaseURL (when
// cfg.EnableDB is set) and starts the bridge's drain loop. When the
// database is disabled the returned Bridge has a nil pool and every
// operation becomes a no-op, which lets the simulation run standalone
// against an in-memory store only (handy for tests and for spec.md's own
// "nothing here requires a database to run" development mode).
func New(ctx context.Context, cfg config.Config, log logger.Logger) (*Bridge, error) {
	b := &Bridge{
		cfg:      cfg,
		log:      log,
		jobs:     make(chan job, queueDepth),
		saveLock: locker.NewConcurrentLocker(log),
		throttle: make(map[ecs.EntityID]*rate.Limiter),
	}

	if !cfg.EnableDB || cfg.DatabaseURL == "" {
		log.Trace(logger.Notice, "persistence", "database disabled, running store-only")
		go b.loop()
		return b, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}
	if cfg.DBPoolMaxConns > 0 {
		poolCfg.MaxConns = cfg.DBPoolMaxConns
	}
	if cfg.DBPoolMinConns > 0 {
		poolCfg.MinConns = cfg.DBPoolMinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	b.pool = pool

	go b.loop()
	return b, nil
}

// Close drains no further jobs and releases the pool. Jobs already
// queued are abandoned; callers that care about a clean stop should
// SubmitWait a final flush before calling Close.
func (b *Bridge) Close() {
	close(b.jobs)
	if b.pool != nil {
		b.pool.Close()
	}
}

// loop is the bridge's "separate event loop": every write the rest of
// the package wants to make against Postgres passes through here so a
// single goroutine owns the connection pool's usage order.
func (b *Bridge) loop() {
	ctx := context.Background()
	for j := range b.jobs {
		err := j.run(ctx)
		if err != nil {
			b.log.Trace(logger.Error, "persistence", fmt.Sprintf("job failed: %v", err))
		}
		if j.done != nil {
			j.done <- err
		}
	}
}

// SubmitAsync enqueues run to execute on the bridge's loop without
// waiting for it, per §4.12's "fire-and-forget" submission mode. If the
// queue is full the job is dropped and logged rather than blocking the
// simulation thread that called in.
func (b *Bridge) SubmitAsync(run func(ctx context.Context) error) {
	if b.pool == nil {
		return
	}
	select {
	case b.jobs <- job{run: run}:
	default:
		b.log.Trace(logger.Warning, "persistence", "write queue full, dropping job")
	}
}

// SubmitWait enqueues run and blocks up to timeout for it to complete,
// per §4.12's bounded-wait submission mode (used by the request adapter
// for operations whose caller needs to know the outcome, like the
// marketplace escrow commit). Returns the job's error, or nil if the
// database is disabled, or a context-deadline error if timeout elapses
// first — callers are expected to treat a timeout as "assume it will
// eventually land" and fall back to a default rather than retry.
func (b *Bridge) SubmitWait(ctx context.Context, timeout time.Duration, run func(ctx context.Context) error) error {
	if b.pool == nil {
		return nil
	}

	done := make(chan error, 1)
	select {
	case b.jobs <- job{run: run, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	select {
	case err := <-done:
		return err
	case <-waitCtx.Done():
		return waitCtx.Err()
	}
}

// allow reports whether a write for planet is due, per §4.12's
// PERSIST_INTERVAL_SECONDS per-planet throttle: at most one write per
// planet per interval, extra writes in between are simply skipped since
// the next interval's write will carry the latest state anyway.
func (b *Bridge) allow(planet ecs.EntityID) bool {
	if b.cfg.PersistInterval <= 0 {
		return true
	}

	b.throttleMu.Lock()
	limiter, ok := b.throttle[planet]
	if !ok {
		// A fresh limiter's bucket starts full, so a planet's very first
		// write is never held back by the throttle.
		limiter = rate.NewLimiter(rate.Every(b.cfg.PersistInterval), 1)
		b.throttle[planet] = limiter
	}
	b.throttleMu.Unlock()

	return limiter.Allow()
}

// Enabled reports whether this bridge is backed by a live connection
// pool, for callers that want to skip building a query entirely rather
// than submit it into a no-op loop.
func (b *Bridge) Enabled() bool {
	return b.pool != nil
}

// Ping round-trips a connection from the pool, for the request
// adapter's `/healthz/db` probe (§6.1). Returns nil immediately when
// the database is disabled, consistent with every other Bridge method's
// no-op-when-disabled behavior.
func (b *Bridge) Ping(ctx context.Context) error {
	if b.pool == nil {
		return nil
	}
	return b.pool.Ping(ctx)
}
