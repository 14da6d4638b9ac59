package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/vocdoni/ballotbox/election"
	"github.com/vocdoni/ballotbox/log"
	"github.com/vocdoni/ballotbox/metrics"
	"github.com/vocdoni/ballotbox/storage"
)

// APIConfig type represents the configuration for the API HTTP server.
// It includes the host, port, the storage and the election managers.
type APIConfig struct {
	Host         string
	Port         int
	Storage      *storage.Storage
	CommitReveal *election.CommitReveal
	Anonymous    *election.Anonymous
	Metrics      *metrics.Metrics // Optional
	// Clock checks the deadline of the signed requests, defaults to time.Now
	Clock func() time.Time
}

// API type represents the ballot box HTTP API server.
type API struct {
	router       *chi.Mux
	server       *http.Server
	listener     net.Listener
	storage      *storage.Storage
	commitReveal *election.CommitReveal
	anonymous    *election.Anonymous
	metrics      *metrics.Metrics
	clock        func() time.Time
}

// NewRouter creates a new API instance with the given configuration, without
// starting the HTTP server.
func NewRouter(conf *APIConfig) (*API, error) {
	if conf == nil {
		return nil, fmt.Errorf("missing API configuration")
	}
	if conf.Storage == nil {
		return nil, fmt.Errorf("missing storage instance")
	}
	if conf.CommitReveal == nil || conf.Anonymous == nil {
		return nil, fmt.Errorf("missing election managers")
	}
	a := &API{
		storage:      conf.Storage,
		commitReveal: conf.CommitReveal,
		anonymous:    conf.Anonymous,
		metrics:      conf.Metrics,
		clock:        conf.Clock,
	}
	if a.clock == nil {
		a.clock = time.Now
	}
	a.initRouter()
	return a, nil
}

// New creates a new API instance with the given configuration and starts
// the HTTP server.
func New(conf *APIConfig) (*API, error) {
	a, err := NewRouter(conf)
	if err != nil {
		return nil, err
	}
	a.listener, err = net.Listen("tcp", fmt.Sprintf("%s:%d", conf.Host, conf.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to listen: %w", err)
	}
	a.server = &http.Server{
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Infow("starting API server", "address", a.listener.Addr().String())
		if err := a.server.Serve(a.listener); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start the API server: %v", err)
		}
	}()
	return a, nil
}

// Addr returns the address the server listens on, or nil if the server was
// not started.
func (a *API) Addr() net.Addr {
	if a.listener == nil {
		return nil
	}
	return a.listener.Addr()
}

// Shutdown gracefully stops the HTTP server.
func (a *API) Shutdown(ctx context.Context) error {
	if a.server == nil {
		return nil
	}
	return a.server.Shutdown(ctx)
}

// Router returns the chi router for testing purposes
func (a *API) Router() *chi.Mux {
	return a.router
}

// registerHandlers registers all the API handlers.
func (a *API) registerHandlers() {
	log.Infow("register handler", "endpoint", PingEndpoint, "method", "GET")
	a.router.Get(PingEndpoint, func(w http.ResponseWriter, r *http.Request) {
		httpWriteOK(w)
	})
	log.Infow("register handler", "endpoint", MetricsEndpoint, "method", "GET")
	a.router.Method(http.MethodGet, MetricsEndpoint, a.metrics.Handler())
	log.Infow("register handler", "endpoint", EventsEndpoint, "method", "GET")
	a.router.Get(EventsEndpoint, a.events)

	// commit-reveal and anonymous routes, static segments take precedence
	// over the {kind} param
	log.Infow("register handler", "endpoint", CommitEndpoint, "method", "POST")
	a.router.Post(CommitEndpoint, a.commit)
	log.Infow("register handler", "endpoint", RevealEndpoint, "method", "POST")
	a.router.Post(RevealEndpoint, a.reveal)
	log.Infow("register handler", "endpoint", CastVoteEndpoint, "method", "POST")
	a.router.Post(CastVoteEndpoint, a.castVote)
	log.Infow("register handler", "endpoint", NullifierRootEndpoint, "method", "GET")
	a.router.Get(NullifierRootEndpoint, a.nullifierRoot)
	log.Infow("register handler", "endpoint", NullifierProofEndpoint, "method", "GET")
	a.router.Get(NullifierProofEndpoint, a.nullifierProof)

	// common election routes
	log.Infow("register handler", "endpoint", ElectionsEndpoint, "method", "POST")
	a.router.Post(ElectionsEndpoint, a.newElection)
	log.Infow("register handler", "endpoint", ElectionsEndpoint, "method", "GET")
	a.router.Get(ElectionsEndpoint, a.electionCount)
	log.Infow("register handler", "endpoint", ElectionEndpoint, "method", "GET")
	a.router.Get(ElectionEndpoint, a.election)
	log.Infow("register handler", "endpoint", CandidateEndpoint, "method", "GET")
	a.router.Get(CandidateEndpoint, a.candidate)
	log.Infow("register handler", "endpoint", ResultsEndpoint, "method", "GET")
	a.router.Get(ResultsEndpoint, a.results)
	log.Infow("register handler", "endpoint", EndElectionEndpoint, "method", "POST")
	a.router.Post(EndElectionEndpoint, a.endElection)
}

// initRouter creates the router with all the routes and middleware.
func (a *API) initRouter() {
	// Create the router with a basic middleware stack
	a.router = chi.NewRouter()
	a.router.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}).Handler)
	if log.Level() == log.LogLevelDebug {
		a.router.Use(middleware.Logger)
	}
	a.router.Use(middleware.Recoverer)
	a.router.Use(a.metrics.Middleware)
	a.router.Use(middleware.Throttle(100))
	a.router.Use(middleware.ThrottleBacklog(5000, 40000, 60*time.Second))
	a.router.Use(middleware.Timeout(45 * time.Second))

	// Register the API handlers
	a.registerHandlers()
}

// registry returns the election registry of the kind in the URL.
func (a *API) registry(r *http.Request) (*election.Registry, error) {
	kind, err := urlKind(r)
	if err != nil {
		return nil, err
	}
	if kind == a.commitReveal.Kind() {
		return a.commitReveal.Registry, nil
	}
	return a.anonymous.Registry, nil
}
