// Package provider builds the configured text-generation provider once and
// hands the same instance to every caller.
//
// Construction is deferred until first use (or an explicit Init during
// startup). A construction failure is cached and returned on every later
// call so a missing credential is reported consistently instead of being
// retried per request.
package provider

import (
	"context"
	"sync"

	"github.com/tjfontaine/interview-gateway/internal/core/ports"
	"github.com/tjfontaine/interview-gateway/internal/pkg/config"
	"github.com/tjfontaine/interview-gateway/internal/provider/openai"
)

// Factory builds a provider. It runs at most once per Lazy.
type Factory func() (ports.Provider, error)

// Lazy is a ports.Provider that constructs its delegate on first use.
type Lazy struct {
	factory Factory

	once     sync.Once
	delegate ports.Provider
	err      error
}

// NewLazy wraps factory.
func NewLazy(factory Factory) *Lazy {
	return &Lazy{factory: factory}
}

// FromConfig returns a Lazy provider that builds an OpenAI adapter from cfg.
func FromConfig(cfg config.ProviderConfig) *Lazy {
	return NewLazy(func() (ports.Provider, error) {
		return openai.CreateFromConfig(cfg)
	})
}

// Init forces construction and returns the cached result.
func (l *Lazy) Init() (ports.Provider, error) {
	l.once.Do(func() {
		l.delegate, l.err = l.factory()
	})
	return l.delegate, l.err
}

func (l *Lazy) Name() string {
	p, err := l.Init()
	if err != nil {
		return "uninitialized"
	}
	return p.Name()
}

// Complete initializes the delegate if needed. Initialization errors are
// returned as-is (typically *domain.ConfigurationError).
func (l *Lazy) Complete(ctx context.Context, req *ports.CompletionRequest) (*ports.CompletionResponse, error) {
	p, err := l.Init()
	if err != nil {
		return nil, err
	}
	return p.Complete(ctx, req)
}
