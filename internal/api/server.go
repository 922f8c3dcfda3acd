package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stellarforge/coreserver/internal/ecs"
	"github.com/stellarforge/coreserver/internal/events"
	"github.com/stellarforge/coreserver/internal/notify"
	"github.com/stellarforge/coreserver/internal/persistence"
	"github.com/stellarforge/coreserver/internal/sim"
	"github.com/stellarforge/coreserver/internal/systems"
	"github.com/stellarforge/coreserver/pkg/config"
	"github.com/stellarforge/coreserver/pkg/dispatcher"
	"github.com/stellarforge/coreserver/pkg/duration"
	"github.com/stellarforge/coreserver/pkg/logger"
)

// Server is the request adapter of spec §6.1/§6.2: it never mutates the
// entity store directly, only reads it for snapshot endpoints and
// submits sim.Command values onto the queue the scheduler drains every
// tick. Built the way the teacher's routes.Server wraps a
// dispatcher.Router, generalized to a context-driven Serve so it
// composes with cmd/coreserver's other long-running components under a
// single errgroup.
type Server struct {
	cfg config.Config

	store   *ecs.Store
	bridge  *persistence.Bridge
	queue   *sim.Queue
	galaxy  *sim.GalaxyPool
	sink    *events.Sink
	trades  *systems.Commands
	notify  *notify.Store
	reg     *prometheus.Registry

	log logger.Logger

	router *dispatcher.Router
	http   *http.Server

	// shuttingDown is closed once when Serve's context is cancelled, so
	// the /ws handler's read loop (which outlives the request context
	// once the connection is hijacked) notices a server shutdown and
	// closes with code 1001 per §6.2.
	shuttingDown chan struct{}
}

// New builds the adapter's route table. trades exposes the command
// handler's trade event log (§4.10) and is the same *systems.Commands
// instance the scheduler drives with drained queue commands.
func New(
	cfg config.Config,
	store *ecs.Store,
	bridge *persistence.Bridge,
	queue *sim.Queue,
	galaxy *sim.GalaxyPool,
	sink *events.Sink,
	trades *systems.Commands,
	notifyStore *notify.Store,
	reg *prometheus.Registry,
	log logger.Logger,
) *Server {
	s := &Server{
		cfg:          cfg,
		store:        store,
		bridge:       bridge,
		queue:        queue,
		galaxy:       galaxy,
		sink:         sink,
		trades:       trades,
		notify:       notifyStore,
		reg:          reg,
		log:          log,
		shuttingDown: make(chan struct{}),
	}

	s.router = dispatcher.NewRouter(log)
	s.routes()

	return s
}

// Serve starts the HTTP listener and blocks until ctx is cancelled, at
// which point it gracefully shuts the listener down (§6.2 "server
// shutdown closes with code 1001" is handled by the /ws handler reacting
// to the same ctx). Mirrors the teacher's signal-driven Serve, adapted
// to a caller-supplied context so cmd/coreserver can coordinate shutdown
// of the scheduler, persistence bridge, and API server together through
// a single errgroup.
func (s *Server) Serve(ctx context.Context) error {
	aMethods := handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	aOrigins := handlers.AllowedOrigins([]string{"*"})
	aHeaders := handlers.AllowedHeaders([]string{"Origin", "X-User-Id", "Content-Type", "Accept"})
	cors := handlers.CORS(aHeaders, aOrigins, aMethods)(s.router)

	s.http = &http.Server{
		Addr:    s.cfg.APIAddr,
		Handler: cors,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Trace(logger.Notice, "api", "listening on "+s.cfg.APIAddr)
		err := s.http.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		close(s.shuttingDown)
		s.sink.Broadcast(events.Message{Type: "server_shutdown"})

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down api server: %w", err)
		}
		return <-errCh
	}
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	s.router.HandleFunc("/healthz/db", s.handleHealthzDB).Methods(http.MethodGet)
	s.router.HandleFunc("/game-status", s.handleGameStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	s.router.HandleFunc("/player/[^/]+", s.handlePlayerSnapshot).Methods(http.MethodGet)
	s.router.HandleFunc("/player/[^/]+/build", s.handleBuild).Methods(http.MethodPost)
	s.router.HandleFunc("/player/[^/]+/buildings/[^/]+", s.handleDemolish).Methods(http.MethodDelete)
	s.router.HandleFunc("/player/[^/]+/build-queue/[^/]+", s.handleCancelBuildQueue).Methods(http.MethodDelete)
	s.router.HandleFunc("/building-costs/[^/]+", s.handleBuildingCosts).Methods(http.MethodGet)

	s.router.HandleFunc("/player/[^/]+/research", s.handleResearchGet).Methods(http.MethodGet)
	s.router.HandleFunc("/player/[^/]+/research", s.handleResearchPost).Methods(http.MethodPost)

	s.router.HandleFunc("/player/[^/]+/fleet", s.handleFleetGet).Methods(http.MethodGet)
	s.router.HandleFunc("/player/[^/]+/build-ships", s.handleBuildShips).Methods(http.MethodPost)
	s.router.HandleFunc("/player/[^/]+/fleet/dispatch", s.handleFleetDispatch).Methods(http.MethodPost)
	s.router.HandleFunc("/player/[^/]+/fleet/[^/]+/recall", s.handleFleetRecall).Methods(http.MethodPost)

	s.router.HandleFunc("/player/[^/]+/planets", s.handlePlanetsList).Methods(http.MethodGet)
	s.router.HandleFunc("/planets/available", s.handlePlanetsAvailable).Methods(http.MethodGet)
	s.router.HandleFunc("/player/[^/]+/choose-start", s.handleChooseStart).Methods(http.MethodPost)
	s.router.HandleFunc("/player/[^/]+/planets/[^/]+/select", s.handlePlanetSelect).Methods(http.MethodPost)

	s.router.HandleFunc("/player/[^/]+/battle-reports", s.handleBattleReports).Methods(http.MethodGet)
	s.router.HandleFunc("/player/[^/]+/espionage-reports", s.handleEspionageReports).Methods(http.MethodGet)

	s.router.HandleFunc("/trade/offers", s.handleTradeOffersPost).Methods(http.MethodPost)
	s.router.HandleFunc("/trade/offers", s.handleTradeOffersGet).Methods(http.MethodGet)
	s.router.HandleFunc("/trade/accept/[^/]+", s.handleTradeAccept).Methods(http.MethodPost)
	s.router.HandleFunc("/player/[^/]+/trade/history", s.handleTradeHistory).Methods(http.MethodGet)
	s.router.HandleFunc("/market/guidance", s.handleMarketGuidance).Methods(http.MethodGet)

	s.router.HandleFunc("/player/[^/]+/notifications", s.handleNotificationsList).Methods(http.MethodGet)
	s.router.HandleFunc("/notifications/[^/]+", s.handleNotificationDelete).Methods(http.MethodDelete)

	s.router.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHealthzDB(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.bridge.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGameStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tick_rate":            duration.NewDuration(s.cfg.TickRate),
		"command_wait_timeout": duration.NewDuration(s.cfg.CommandWaitTimeout),
		"queue_depth":          s.queue.Depth(),
		"galaxy_count":         s.cfg.GalaxyCount,
		"systems_per_galaxy":   s.cfg.SystemsPerGalaxy,
		"positions_per_system": s.cfg.PositionsPerSystem,
		"persistence_enabled":  s.bridge.Enabled(),
	})
}

// submit enqueues cmd and, when it carries a Result channel, blocks up
// to cfg.CommandWaitTimeout for the scheduler's reply (§4.10
// "Operations are executed synchronously" from the caller's point of
// view, even though the handler itself runs on the next tick).
func (s *Server) submit(ctx context.Context, cmd sim.Command) (any, error) {
	if cmd.Result == nil {
		s.queue.Enqueue(cmd)
		return nil, nil
	}

	cmd.Result = make(chan sim.CommandResult, 1)
	s.queue.Enqueue(cmd)

	timeout := s.cfg.CommandWaitTimeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	select {
	case res := <-cmd.Result:
		return res.Data, res.Err
	case <-time.After(timeout):
		return nil, fmt.Errorf("timed out waiting for command to be processed")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Server) enqueueOnly(cmd sim.Command) {
	cmd.Result = nil
	s.queue.Enqueue(cmd)
}
