package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vocdoni/ballotbox/api"
	"github.com/vocdoni/ballotbox/election"
	"github.com/vocdoni/ballotbox/log"
	"github.com/vocdoni/ballotbox/metrics"
	"github.com/vocdoni/ballotbox/storage"
)

// shutdownTimeout bounds the graceful shutdown of the HTTP server.
const shutdownTimeout = 10 * time.Second

// APIService represents a service that manages the HTTP API server.
type APIService struct {
	conf   api.APIConfig
	api    *api.API
	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewAPI creates a new APIService instance serving the election managers.
// The storage is owned by the caller and is not closed by Stop.
func NewAPI(stg *storage.Storage, commitReveal *election.CommitReveal, anonymous *election.Anonymous,
	m *metrics.Metrics, host string, port int,
) *APIService {
	return &APIService{
		conf: api.APIConfig{
			Host:         host,
			Port:         port,
			Storage:      stg,
			CommitReveal: commitReveal,
			Anonymous:    anonymous,
			Metrics:      m,
		},
	}
}

// Start begins the API server. It returns an error if the service
// is already running or if it fails to start.
func (as *APIService) Start(ctx context.Context) error {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		return fmt.Errorf("service already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	srv, err := api.New(&as.conf)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to start API server: %w", err)
	}
	as.api, as.cancel = srv, cancel

	// stop serving when the parent context is done
	go func() {
		<-ctx.Done()
		as.shutdown(srv)
	}()
	return nil
}

// Stop halts the API server.
func (as *APIService) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.cancel != nil {
		as.cancel()
		as.cancel = nil
		as.shutdown(as.api)
		as.api = nil
	}
}

func (as *APIService) shutdown(srv *api.API) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// shutting down an already closed server returns nil
	if err := srv.Shutdown(ctx); err != nil {
		log.Warnw("failed to shutdown API server", "error", err.Error())
	}
}

// HostPort returns the host and port of the API server.
func (as *APIService) HostPort() (string, int) {
	return as.conf.Host, as.conf.Port
}

// Addr returns the address the server listens on, which differs from
// HostPort when the port was chosen by the system. It is empty while the
// service is stopped.
func (as *APIService) Addr() string {
	as.mu.Lock()
	defer as.mu.Unlock()
	if as.api == nil || as.api.Addr() == nil {
		return ""
	}
	return as.api.Addr().String()
}
