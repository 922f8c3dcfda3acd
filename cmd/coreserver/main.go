package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/stellarforge/coreserver/internal/api"
	"github.com/stellarforge/coreserver/internal/ecs"
	"github.com/stellarforge/coreserver/internal/events"
	"github.com/stellarforge/coreserver/internal/metrics"
	"github.com/stellarforge/coreserver/internal/notify"
	"github.com/stellarforge/coreserver/internal/persistence"
	"github.com/stellarforge/coreserver/internal/sim"
	"github.com/stellarforge/coreserver/internal/simclock"
	"github.com/stellarforge/coreserver/internal/systems"
	"github.com/stellarforge/coreserver/pkg/background"
	"github.com/stellarforge/coreserver/pkg/config"
	"github.com/stellarforge/coreserver/pkg/logger"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("./coreserver -config=[file] to pick the configuration file to use (development/production)")
}

// instanceID is generated once per process, the nearest equivalent of
// the teacher's metadata.InstanceID (read from its config file); this
// workspace's config layer carries no such identity field, and a fresh
// random id is enough to tell log lines from different processes apart.
func instanceID() string {
	return uuid.NewString()
}

// publicAddr is the nearest equivalent of the teacher's
// metadata.PublicIPv4, which it also only ever used for a log label. A
// hostname is a reasonable stand-in when no public IP is configured.
func publicAddr() string {
	host, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return host
}

func main() {
	help := flag.Bool("h", false, "Print usage")
	confPath := flag.String("config", "", "Configuration file to customize app behavior (development/production)")
	flag.Parse()

	if *help {
		usage()
		return
	}

	if *confPath != "" {
		// godotenv.Load never overrides a variable already present in
		// the environment, so loading the requested file first lets it
		// take precedence over config.Load's own default ".env" lookup
		// (mirrors the teacher's -config flag picking dev vs. prod).
		if err := godotenv.Load(*confPath); err != nil {
			fmt.Printf("reading -config file %q: %v\n", *confPath, err)
			os.Exit(1)
		}
	}
	cfg := config.Load()

	log := logger.NewStdLogger(instanceID(), publicAddr())
	defer func() {
		if r := recover(); r != nil {
			stack := string(debug.Stack())
			log.Trace(logger.Fatal, "main", fmt.Sprintf("server crashed: %v (stack: %s)", r, stack))
		}
		log.Release()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Trace(logger.Fatal, "main", "server exited with error: "+err.Error())
		os.Exit(1)
	}
}

// run wires together the entity store, the persistence bridge, the
// simulation scheduler, and the request adapter, then blocks until ctx
// is cancelled, shutting every long-running component down together.
func run(ctx context.Context, cfg config.Config, log logger.Logger) error {
	store := ecs.New()

	bridge, err := persistence.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("connecting persistence bridge: %w", err)
	}
	defer bridge.Close()

	sink := events.New(log)
	ids := sim.NewIDAllocator()

	commands := systems.NewCommands(store, cfg, sink, log, ids)
	commands.WithTradeReporter(systems.TradeReporter{
		Offer: bridge.RecordTradeOffer,
		Event: bridge.RecordTradeEvent,
	})

	now := time.Now()
	if err := bridge.Hydrate(ctx, store, sink, now, ids, commands.TradeHistory()); err != nil {
		return fmt.Errorf("hydrating entity store: %w", err)
	}

	queue := sim.NewQueue()
	galaxy := sim.NewGalaxyPool(cfg)

	fleetMovement := systems.NewFleetMovement(store, cfg, sink, log)
	fleetMovement.WithEspionageReporter(bridge.RecordEspionageReport)

	battle := systems.NewBattle(store, cfg, sink, log)
	battle.WithReporter(bridge.RecordBattle)

	orderedSystems := []sim.System{
		systems.NewProduction(store, cfg, sink, log),
		systems.NewConstruction(store, sink, log),
		systems.NewPlayerActivity(),
		systems.NewResearch(store, sink, log),
		systems.NewShipyard(store, sink, log),
		fleetMovement,
		battle,
	}

	m, reg := metrics.New()

	lastSave := time.Now()
	hooks := sim.Hooks{
		MaybeSnapshot: func(now time.Time) {
			if now.Sub(lastSave) < cfg.SaveInterval {
				return
			}
			lastSave = now
			start := time.Now()
			bridge.Snapshot(ctx, store)
			outcome := metrics.SaveOK
			if !bridge.Enabled() {
				outcome = metrics.SaveSkipped
			}
			m.ObserveSave(time.Since(start), outcome)
		},
		RecordTick:       m.ObserveTick,
		RecordQueueDepth: m.ObserveQueueDepth,
	}

	scheduler := sim.NewScheduler(queue, meteredHandler{handler: commands, observe: m.ObserveCommand}, orderedSystems, simclock.NewSystemClock(), cfg.TickRate, hooks, log)

	// The inactivity sweep (§4.12 step 4) runs on its own wall-clock
	// cadence rather than piggybacking on the tick loop, since
	// cfg.CleanupInterval (24h) has nothing to do with simulation ticks.
	cleanup := background.NewProcess(cfg.CleanupInterval, log).
		WithModule("cleanup").
		WithOperation(func() (bool, error) {
			n, err := bridge.CleanupInactive(ctx, time.Now())
			if err != nil {
				return false, err
			}
			log.Trace(logger.Notice, "cleanup", fmt.Sprintf("removed %d inactive player(s)", n))
			return true, nil
		})

	notifyStore := notify.New()
	apiServer := api.New(cfg, store, bridge, queue, galaxy, sink, commands, notifyStore, reg, log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		scheduler.Start()
		<-gctx.Done()
		scheduler.Stop()
		return nil
	})

	g.Go(func() error {
		if err := cleanup.Start(); err != nil {
			return fmt.Errorf("starting cleanup process: %w", err)
		}
		<-gctx.Done()
		cleanup.Stop()
		return nil
	})

	g.Go(func() error {
		return apiServer.Serve(gctx)
	})

	log.Trace(logger.Notice, "main", "coreserver started")
	err = g.Wait()

	bridge.Snapshot(context.Background(), store)
	log.Trace(logger.Notice, "main", "coreserver stopped")
	return err
}

// meteredHandler wraps a sim.CommandHandler to report per-kind command
// counts, keeping internal/systems free of a metrics dependency the way
// sim.Hooks already keeps internal/sim free of one.
type meteredHandler struct {
	handler sim.CommandHandler
	observe func(kind string)
}

func (m meteredHandler) Handle(cmd sim.Command, now time.Time) {
	m.observe(string(cmd.Kind))
	m.handler.Handle(cmd, now)
}
