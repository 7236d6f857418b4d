package runner

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pario-ai/modelbench/pkg/cache"
	"github.com/pario-ai/modelbench/pkg/config"
	"github.com/pario-ai/modelbench/pkg/models"
	"github.com/pario-ai/modelbench/pkg/provider"
)

var thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

// Runner drives every candidate model through every task.
type Runner struct {
	client      provider.Client
	store       cache.Store
	timeout     time.Duration
	concurrency int
	logger      *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithCache stores candidate outputs in s. A nil store disables caching.
func WithCache(s cache.Store) Option {
	return func(r *Runner) { r.store = s }
}

// WithTimeout bounds each candidate call.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithConcurrency sets how many candidate calls may run at once.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the logger for progress messages.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Runner that calls candidates through client.
func New(client provider.Client, opts ...Option) *Runner {
	r := &Runner{
		client:      client,
		timeout:     120 * time.Second,
		concurrency: 1,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run returns one result per (model, task) pair, model-major in configured
// order. A failed call yields a Failed result and never stops the run.
func (r *Runner) Run(ctx context.Context, modelIDs []string, tasks config.TaskList, input string) []models.CandidateResult {
	results := make([]models.CandidateResult, len(modelIDs)*len(tasks))

	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)
	for i, model := range modelIDs {
		for j, task := range tasks {
			slot := i*len(tasks) + j
			g.Go(func() error {
				results[slot] = r.runOne(ctx, model, task, input)
				return nil
			})
		}
	}
	_ = g.Wait()

	return results
}

func (r *Runner) runOne(ctx context.Context, model string, task config.Task, input string) models.CandidateResult {
	res := models.CandidateResult{ModelID: model, TaskID: task.ID}
	log := r.logger.With("model", model, "task", task.ID)

	key := cache.Key(map[string]string{
		"provider":    config.ProviderOllama,
		"model":       model,
		"task":        task.ID,
		"instruction": task.Prompt,
		"text":        input,
	})
	if r.store != nil {
		if content, ok := r.store.Get(key); ok {
			log.Info("candidate loaded from cache")
			res.Output = content
			res.Cached = true
			return res
		}
	}

	log.Info("calling candidate")
	start := time.Now()
	out, err := r.client.Complete(provider.WithCallTimeout(ctx, r.timeout), provider.Request{
		Model:  model,
		System: task.Prompt,
		Prompt: input,
	})
	if err != nil {
		log.Warn("candidate failed", "error", err)
		res.Failed = true
		res.Error = err.Error()
		res.Output = models.FailedPrefix + err.Error()
		return res
	}

	res.Output = CleanOutput(out)
	log.Info("candidate finished", "chars", len([]rune(res.Output)), "elapsed", time.Since(start).Round(time.Millisecond))

	if r.store != nil {
		if err := r.store.Put(key, res.Output); err != nil {
			log.Warn("cache write failed", "error", err)
		}
	}
	return res
}

// CleanOutput trims whitespace and removes <think> reasoning blocks.
func CleanOutput(s string) string {
	return strings.TrimSpace(thinkBlock.ReplaceAllString(strings.TrimSpace(s), ""))
}
