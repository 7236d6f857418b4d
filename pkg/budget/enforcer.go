package budget

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/pario-ai/modelbench/pkg/config"
	"github.com/pario-ai/modelbench/pkg/models"
	"github.com/pario-ai/modelbench/pkg/provider"
)

// ErrBudgetExceeded is returned when a provider has used up its call budget for the run.
var ErrBudgetExceeded = errors.New("budget exceeded")

type limit struct {
	cfg     config.RateLimitConfig
	limiter *rate.Limiter
	calls   atomic.Int64
}

// Enforcer paces and caps live calls per provider.
type Enforcer struct {
	mu     sync.Mutex
	limits map[string]*limit
}

// New creates an Enforcer from per-provider limits. Providers without an
// entry are neither paced nor capped, but their calls are still counted.
func New(limits map[string]config.RateLimitConfig) *Enforcer {
	e := &Enforcer{limits: make(map[string]*limit, len(limits))}
	for name, cfg := range limits {
		e.limits[name] = newLimit(cfg)
	}
	return e
}

func newLimit(cfg config.RateLimitConfig) *limit {
	l := &limit{cfg: cfg}
	if cfg.RequestsPerMinute > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		l.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60), burst)
	}
	return l
}

func (e *Enforcer) get(name string) *limit {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.limits[name]
	if !ok {
		l = newLimit(config.RateLimitConfig{})
		e.limits[name] = l
	}
	return l
}

// Wait blocks until the provider may receive another call, or returns
// ErrBudgetExceeded once its per-run cap is spent.
func (e *Enforcer) Wait(ctx context.Context, name string) error {
	l := e.get(name)
	if l.cfg.MaxCalls > 0 && l.calls.Load() >= l.cfg.MaxCalls {
		return fmt.Errorf("%s: %w (%d calls)", name, ErrBudgetExceeded, l.cfg.MaxCalls)
	}
	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: rate limit wait: %w", name, err)
		}
	}
	if n := l.calls.Add(1); l.cfg.MaxCalls > 0 && n > l.cfg.MaxCalls {
		l.calls.Add(-1)
		return fmt.Errorf("%s: %w (%d calls)", name, ErrBudgetExceeded, l.cfg.MaxCalls)
	}
	return nil
}

type limitedClient struct {
	e    *Enforcer
	name string
	next provider.Client
}

// Complete waits for the budget before starting the call timeout, so queued
// time does not eat into it.
func (lc *limitedClient) Complete(ctx context.Context, req provider.Request) (string, error) {
	if err := lc.e.Wait(ctx, lc.name); err != nil {
		return "", err
	}
	ctx, cancel := provider.StartCall(ctx)
	defer cancel()
	return lc.next.Complete(ctx, req)
}

// Wrap returns a client that waits on the provider's budget before every call.
func (e *Enforcer) Wrap(name string, c provider.Client) provider.Client {
	return &limitedClient{e: e, name: name, next: c}
}

// Status returns the call counts for every provider seen so far, sorted by name.
func (e *Enforcer) Status() []models.BudgetStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	statuses := make([]models.BudgetStatus, 0, len(e.limits))
	for name, l := range e.limits {
		calls := l.calls.Load()
		remaining := int64(-1)
		if l.cfg.MaxCalls > 0 {
			remaining = l.cfg.MaxCalls - calls
			if remaining < 0 {
				remaining = 0
			}
		}
		statuses = append(statuses, models.BudgetStatus{
			Provider:          name,
			Calls:             calls,
			MaxCalls:          l.cfg.MaxCalls,
			Remaining:         remaining,
			RequestsPerMinute: l.cfg.RequestsPerMinute,
		})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Provider < statuses[j].Provider })
	return statuses
}
