package runtime

import (
	"fmt"
	"log/slog"

	"github.com/tjfontaine/interview-gateway/internal/adapters/policy/basic"
	"github.com/tjfontaine/interview-gateway/internal/core/ports"
	"github.com/tjfontaine/interview-gateway/internal/pkg/config"
	"github.com/tjfontaine/interview-gateway/internal/storage/memory"
	"github.com/tjfontaine/interview-gateway/internal/storage/sqlite"
)

// Option is a functional option for configuring a Gateway.
type Option func(*Gateway) error

// WithConfig uses an already loaded configuration.
func WithConfig(cfg *config.Config) Option {
	return func(g *Gateway) error {
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
		g.cfg = cfg
		return nil
	}
}

// WithFileConfig loads configuration from a YAML file plus IGW_ environment
// overrides. A missing file is allowed.
func WithFileConfig(path string) Option {
	return func(g *Gateway) error {
		cfg, err := config.Load(path)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		g.cfg = cfg
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) error {
		g.logger = logger
		return nil
	}
}

// WithProvider replaces the provider built from configuration.
func WithProvider(provider ports.Provider) Option {
	return func(g *Gateway) error {
		g.provider = provider
		return nil
	}
}

// WithSessionStore sets a custom session store.
func WithSessionStore(store ports.SessionStore) Option {
	return func(g *Gateway) error {
		g.store = store
		return nil
	}
}

// WithSQLite stores sessions in the SQLite database at path.
func WithSQLite(path string) Option {
	return func(g *Gateway) error {
		store, err := sqlite.New(path)
		if err != nil {
			return fmt.Errorf("create sqlite storage: %w", err)
		}
		g.store = store
		return nil
	}
}

// WithMemoryStore keeps sessions in process memory.
func WithMemoryStore() Option {
	return func(g *Gateway) error {
		g.store = memory.New()
		return nil
	}
}

// WithAdmissionPolicy sets a custom admission policy.
func WithAdmissionPolicy(policy ports.AdmissionPolicy) Option {
	return func(g *Gateway) error {
		g.policy = policy
		return nil
	}
}

// WithBasicPolicy disables admission control.
func WithBasicPolicy() Option {
	return func(g *Gateway) error {
		g.policy = basic.NewPolicy()
		return nil
	}
}
