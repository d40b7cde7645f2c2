// Package runtime wires the interview gateway together and manages its
// lifecycle.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tjfontaine/interview-gateway/internal/adapters/policy/basic"
	"github.com/tjfontaine/interview-gateway/internal/adapters/policy/window"
	"github.com/tjfontaine/interview-gateway/internal/core/ports"
	"github.com/tjfontaine/interview-gateway/internal/gateway"
	"github.com/tjfontaine/interview-gateway/internal/interview"
	"github.com/tjfontaine/interview-gateway/internal/pkg/config"
	"github.com/tjfontaine/interview-gateway/internal/provider"
	"github.com/tjfontaine/interview-gateway/internal/server"
	"github.com/tjfontaine/interview-gateway/internal/storage/memory"
	"github.com/tjfontaine/interview-gateway/internal/storage/sqlite"
)

// sweeper is implemented by admission policies that need background
// maintenance.
type sweeper interface {
	Run(ctx context.Context)
}

// initializer is implemented by providers with deferred construction.
type initializer interface {
	Init() (ports.Provider, error)
}

// Gateway owns the provider, the session store, the admission policy and
// the HTTP server.
type Gateway struct {
	cfg      *config.Config
	provider ports.Provider
	store    ports.SessionStore
	policy   ports.AdmissionPolicy
	logger   *slog.Logger

	service *interview.Service
	server  *server.Server

	cancel  context.CancelFunc
	stopped chan struct{}
	runErr  error
	mu      sync.Mutex
	started bool
}

// New creates a Gateway. Dependencies not given as options are built from
// configuration.
func New(opts ...Option) (*Gateway, error) {
	gw := &Gateway{
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(gw); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if gw.cfg == nil {
		return nil, fmt.Errorf("config required (use WithConfig or WithFileConfig)")
	}

	if gw.provider == nil {
		gw.provider = provider.FromConfig(gw.cfg.Provider)
	}
	if gw.store == nil {
		store, err := storeFromConfig(gw.cfg.Storage)
		if err != nil {
			return nil, err
		}
		gw.store = store
	}
	if gw.policy == nil {
		gw.policy = policyFromConfig(gw.cfg.Admission, gw.logger)
	}

	client := gateway.New(gw.provider,
		gateway.WithTimeout(gw.cfg.Provider.Timeout),
		gateway.WithModel(gw.cfg.Provider.Model),
		gateway.WithTemperature(gw.cfg.Provider.Temperature),
		gateway.WithLogger(gw.logger),
	)
	gw.service = interview.NewService(gw.store, gw.policy, client, interview.WithLogger(gw.logger))

	gw.server = server.New(gw.cfg.Server.Port, gw.logger, gw.cfg.Server.RequestTimeout)
	server.NewHandler(gw.service).Register(gw.server.Router)

	return gw, nil
}

func storeFromConfig(cfg config.StorageConfig) (ports.SessionStore, error) {
	switch cfg.Type {
	case "memory":
		return memory.New(), nil
	case "sqlite", "":
		store, err := sqlite.New(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("create sqlite storage: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type %q", cfg.Type)
	}
}

func policyFromConfig(cfg config.AdmissionConfig, logger *slog.Logger) ports.AdmissionPolicy {
	if !cfg.Enabled {
		logger.Info("admission control disabled, using basic policy")
		return basic.NewPolicy()
	}
	return window.New(
		window.WithLimit(cfg.Limit),
		window.WithWindow(cfg.Window),
		window.WithSweepInterval(cfg.SweepInterval),
		window.WithLogger(logger),
	)
}

// Handler returns the HTTP handler, for embedding or tests.
func (g *Gateway) Handler() http.Handler {
	return g.server.Router
}

// Service returns the interview service.
func (g *Gateway) Service() *interview.Service {
	return g.service
}

// Start initializes the provider, starts the admission sweep, and begins
// serving HTTP in the background. A provider configuration error is
// returned here rather than on the first request.
func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.started {
		return fmt.Errorf("gateway already started")
	}

	if lazy, ok := g.provider.(initializer); ok {
		if _, err := lazy.Init(); err != nil {
			return fmt.Errorf("init provider: %w", err)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)
	g.cancel = cancel

	if s, ok := g.policy.(sweeper); ok {
		group.Go(func() error {
			s.Run(groupCtx)
			return nil
		})
	}

	group.Go(func() error {
		if err := g.server.Start(); err != nil {
			g.logger.Error("server error", slog.String("error", err.Error()))
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	stopped := make(chan struct{})
	g.stopped = stopped
	go func() {
		g.runErr = group.Wait()
		close(stopped)
	}()

	g.started = true
	g.logger.Info("gateway started",
		slog.Int("port", g.cfg.Server.Port),
		slog.String("provider", g.provider.Name()),
		slog.String("storage", g.cfg.Storage.Type),
		slog.Bool("admission", g.cfg.Admission.Enabled),
	)
	return nil
}

// Stopped is closed when the background goroutines have exited, either
// after Shutdown or because the listener failed. It is nil before Start.
func (g *Gateway) Stopped() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopped
}

// Shutdown stops HTTP, the sweep, and closes the store.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.logger.Info("shutting down gateway")

	var errs []error
	if g.server != nil {
		if err := g.server.Shutdown(ctx); err != nil {
			g.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	if g.cancel != nil {
		g.cancel()
	}
	if g.stopped != nil {
		<-g.stopped
		if g.runErr != nil {
			errs = append(errs, g.runErr)
		}
		g.stopped = nil
	}

	if g.store != nil {
		if err := g.store.Close(); err != nil {
			g.logger.Error("failed to close storage", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	g.started = false
	g.logger.Info("gateway shutdown complete")
	return errors.Join(errs...)
}
