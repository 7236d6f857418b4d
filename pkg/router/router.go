package router

import (
	"errors"
	"fmt"

	"github.com/pario-ai/modelbench/pkg/budget"
	"github.com/pario-ai/modelbench/pkg/config"
	"github.com/pario-ai/modelbench/pkg/provider"
)

var (
	// ErrNoAPIKey is returned when a reviewer's provider has no usable key.
	ErrNoAPIKey = errors.New("no API key configured")
	// ErrUnknownProvider is returned for provider tags with no client.
	ErrUnknownProvider = errors.New("unknown provider")
)

// Router resolves configured reviewers and the candidate endpoint to clients.
type Router struct {
	cfg      *config.Config
	enforcer *budget.Enforcer
}

// New creates a Router from the given configuration. When e is non-nil every
// resolved client is paced by it.
func New(cfg *config.Config, e *budget.Enforcer) *Router {
	return &Router{cfg: cfg, enforcer: e}
}

// Resolve returns the client that serves a reviewer entry.
func (r *Router) Resolve(rc config.ReviewerConfig) (provider.Client, error) {
	key := r.cfg.APIKey(rc.Provider)
	if key == "" {
		if _, known := builders[rc.Provider]; !known {
			return nil, fmt.Errorf("reviewer %s: %w %q", rc.ReviewerID(), ErrUnknownProvider, rc.Provider)
		}
		return nil, fmt.Errorf("reviewer %s: %w", rc.ReviewerID(), ErrNoAPIKey)
	}

	build, ok := builders[rc.Provider]
	if !ok {
		return nil, fmt.Errorf("reviewer %s: %w %q", rc.ReviewerID(), ErrUnknownProvider, rc.Provider)
	}

	opts := []provider.Option{
		provider.WithBaseURL(r.cfg.Providers[rc.Provider].BaseURL),
		provider.WithTimeout(r.cfg.ReviewTimeout),
	}
	return r.wrap(rc.Provider, build(key, opts)), nil
}

// Candidate returns the client for the local candidate models.
func (r *Router) Candidate() provider.Client {
	c := provider.NewOllama(r.cfg.Ollama.BaseURL, provider.WithTimeout(r.cfg.Ollama.Timeout))
	return r.wrap(config.ProviderOllama, c)
}

func (r *Router) wrap(name string, c provider.Client) provider.Client {
	if r.enforcer == nil {
		return c
	}
	return r.enforcer.Wrap(name, c)
}

var builders = map[string]func(key string, opts []provider.Option) provider.Client{
	config.ProviderOpenAI: func(key string, opts []provider.Option) provider.Client {
		return provider.NewOpenAI(key, opts...)
	},
	config.ProviderOpenRouter: func(key string, opts []provider.Option) provider.Client {
		return provider.NewOpenRouter(key, opts...)
	},
	config.ProviderGemini: func(key string, opts []provider.Option) provider.Client {
		return provider.NewGemini(key, opts...)
	},
	config.ProviderReplicate: func(key string, opts []provider.Option) provider.Client {
		return provider.NewReplicate(key, opts...)
	},
}
