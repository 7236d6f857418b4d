package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/pario-ai/modelbench/pkg/budget"
	"github.com/pario-ai/modelbench/pkg/cache"
	"github.com/pario-ai/modelbench/pkg/config"
	"github.com/pario-ai/modelbench/pkg/history"
	"github.com/pario-ai/modelbench/pkg/models"
	"github.com/pario-ai/modelbench/pkg/provider"
	"github.com/pario-ai/modelbench/pkg/report"
	"github.com/pario-ai/modelbench/pkg/review"
	"github.com/pario-ai/modelbench/pkg/router"
	"github.com/pario-ai/modelbench/pkg/runner"
)

// ErrEmptyInput is returned when there is no text to evaluate.
var ErrEmptyInput = errors.New("input text is empty")

// Result is the outcome of one benchmark run.
type Result struct {
	RunID      string
	Candidates []models.CandidateResult
	Scores     []models.ReviewScore
	Stats      []models.ReviewerStatistics
	Artifacts  report.Artifacts
	Budget     []models.BudgetStatus
}

// Benchmark runs candidates, collects reviews and writes the report.
type Benchmark struct {
	cfg        *config.Config
	enforcer   *budget.Enforcer
	runner     *runner.Runner
	aggregator *review.Aggregator
	reviewers  []review.Reviewer
	writer     *report.Writer
	store      cache.Store
	history    history.Store
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Benchmark.
type Option func(*Benchmark)

// WithLogger sets the logger passed to every component.
func WithLogger(l *slog.Logger) Option {
	return func(b *Benchmark) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithClock sets the time source for run timestamps and report names.
func WithClock(now func() time.Time) Option {
	return func(b *Benchmark) { b.now = now }
}

// New wires a Benchmark from a validated configuration. It opens the cache
// and history stores; Close releases them.
func New(cfg *config.Config, opts ...Option) (*Benchmark, error) {
	b := &Benchmark{cfg: cfg, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(b)
	}

	store, err := cache.Open(cfg, b.logger)
	if err != nil {
		return nil, err
	}
	b.store = store

	if cfg.History.Enabled {
		h, err := history.New(cfg.DBPath)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.history = h
	}

	b.enforcer = budget.New(cfg.RateLimits)
	rt := router.New(cfg, b.enforcer)

	for _, rc := range cfg.EnabledReviewers() {
		client, err := rt.Resolve(rc)
		if err != nil {
			b.logger.Warn("skipping reviewer", "reviewer", rc.ReviewerID(), "error", err)
			continue
		}
		b.reviewers = append(b.reviewers, review.Reviewer{
			ID:          rc.ReviewerID(),
			Provider:    rc.Provider,
			Model:       rc.Model,
			Temperature: provider.TemperatureParam(cfg.TemperatureFor(rc.Model)),
			Client:      client,
		})
	}
	if len(b.reviewers) == 0 {
		b.Close()
		return nil, errors.New("no usable reviewers")
	}

	b.runner = runner.New(rt.Candidate(),
		runner.WithCache(store),
		runner.WithTimeout(cfg.Ollama.Timeout),
		runner.WithConcurrency(cfg.Concurrency),
		runner.WithLogger(b.logger),
	)
	b.aggregator = review.New(
		review.WithCache(store),
		review.WithTimeout(cfg.ReviewTimeout),
		review.WithConcurrency(cfg.Concurrency),
		review.WithLogger(b.logger),
	)
	b.writer = report.NewWriter(cfg.Report.Dir,
		report.WithClock(b.now),
		report.WithLogger(b.logger),
	)
	return b, nil
}

// Reviewers returns the reviewers that will score this run.
func (b *Benchmark) Reviewers() []models.Reviewer {
	out := make([]models.Reviewer, len(b.reviewers))
	for i, r := range b.reviewers {
		out[i] = r.Info()
	}
	return out
}

// Run evaluates input end to end. Per-call failures are embedded in the
// result and report; only empty input and report write failures are errors.
func (b *Benchmark) Run(ctx context.Context, input string) (*Result, error) {
	if strings.TrimSpace(input) == "" {
		return nil, ErrEmptyInput
	}

	runID := uuid.NewString()
	started := b.now()
	inputChars := utf8.RuneCountInString(input)
	b.logger.Info("starting evaluation", "run", runID, "models", len(b.cfg.Models), "reviewers", len(b.reviewers), "input_chars", inputChars)

	candidates := b.runner.Run(ctx, b.cfg.Models, b.cfg.Tasks, input)

	b.logger.Info("starting review phase")
	scores := b.aggregator.Review(ctx, b.reviewers, input, candidates)

	reviewers := b.Reviewers()
	reviewerIDs := make([]string, len(reviewers))
	for i, r := range reviewers {
		reviewerIDs[i] = r.ID
	}
	taskIDs := b.cfg.Tasks.IDs()
	stats := review.Statistics(scores, reviewerIDs, taskIDs, b.cfg.Report.Precision)

	rep := &report.Report{
		InputChars: inputChars,
		Models:     b.cfg.Models,
		Tasks:      taskIDs,
		Reviewers:  reviewers,
		Candidates: candidates,
		Scores:     scores,
		Stats:      stats,
		Precision:  b.cfg.Report.Precision,
	}
	art, err := b.writer.Write(rep)
	if err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	b.logger.Info("report written", "markdown", art.Markdown, "html", art.HTML, "charts", len(art.Charts))

	res := &Result{
		RunID:      runID,
		Candidates: candidates,
		Scores:     scores,
		Stats:      stats,
		Artifacts:  art,
		Budget:     b.enforcer.Status(),
	}

	if b.history != nil {
		run := models.RunRecord{
			ID:           runID,
			StartedAt:    started,
			FinishedAt:   b.now(),
			InputChars:   inputChars,
			Models:       len(b.cfg.Models),
			Reviewers:    len(reviewers),
			MarkdownPath: art.Markdown,
			HTMLPath:     art.HTML,
		}
		if _, err := b.history.RecordRun(ctx, run, scores); err != nil {
			b.logger.Warn("could not record run history", "error", err)
		}
	}

	return res, nil
}

// Close releases the cache and history stores.
func (b *Benchmark) Close() error {
	var errs []error
	if b.store != nil {
		errs = append(errs, b.store.Close())
	}
	if b.history != nil {
		errs = append(errs, b.history.Close())
	}
	return errors.Join(errs...)
}
