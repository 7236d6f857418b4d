package review

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pario-ai/modelbench/pkg/cache"
	"github.com/pario-ai/modelbench/pkg/models"
	"github.com/pario-ai/modelbench/pkg/provider"
)

// CandidateFailed is the critique recorded for cells whose candidate output
// was never produced.
const CandidateFailed = "candidate model failed"

// Reviewer is a cloud model that scores candidate outputs.
type Reviewer struct {
	ID       string
	Provider string
	Model    string
	// Temperature is nil when the provider default should be used.
	Temperature *float64
	Client      provider.Client
}

// Info returns the reviewer's identity without its client.
func (r Reviewer) Info() models.Reviewer {
	return models.Reviewer{ID: r.ID, Provider: r.Provider, Model: r.Model}
}

// Aggregator sends candidate outputs to reviewers and collects their scores.
type Aggregator struct {
	store       cache.Store
	timeout     time.Duration
	concurrency int
	logger      *slog.Logger
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithCache stores reviewer replies in s. A nil store disables caching.
func WithCache(s cache.Store) Option {
	return func(a *Aggregator) { a.store = s }
}

// WithTimeout bounds each reviewer call.
func WithTimeout(d time.Duration) Option {
	return func(a *Aggregator) { a.timeout = d }
}

// WithConcurrency sets how many reviewer calls may run at once.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithLogger sets the logger for progress messages.
func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l
		}
	}
}

// New creates an Aggregator.
func New(opts ...Option) *Aggregator {
	a := &Aggregator{
		timeout:     60 * time.Second,
		concurrency: 1,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Review scores every candidate with every reviewer. Results are
// reviewer-major in the given order, then in candidate order. Failed
// candidates and reviewer errors produce Unavailable cells.
func (a *Aggregator) Review(ctx context.Context, reviewers []Reviewer, original string, candidates []models.CandidateResult) []models.ReviewScore {
	scores := make([]models.ReviewScore, len(reviewers)*len(candidates))

	g := new(errgroup.Group)
	g.SetLimit(a.concurrency)
	for i, rv := range reviewers {
		for j, cand := range candidates {
			slot := i*len(candidates) + j
			g.Go(func() error {
				scores[slot] = a.reviewOne(ctx, rv, original, cand)
				return nil
			})
		}
	}
	_ = g.Wait()

	return scores
}

func (a *Aggregator) reviewOne(ctx context.Context, rv Reviewer, original string, cand models.CandidateResult) models.ReviewScore {
	score := models.ReviewScore{ReviewerID: rv.ID, ModelID: cand.ModelID, TaskID: cand.TaskID}
	log := a.logger.With("reviewer", rv.ID, "model", cand.ModelID, "task", cand.TaskID)

	if cand.Failed {
		score.Unavailable = true
		score.Critique = CandidateFailed
		return score
	}

	system, ok := Rubrics[cand.TaskID]
	if !ok {
		score.Unavailable = true
		score.Critique = "no rubric for task " + cand.TaskID
		return score
	}
	user, err := UserPrompt(cand.TaskID, original, cand.Output)
	if err != nil {
		score.Unavailable = true
		score.Critique = err.Error()
		return score
	}

	raw, err := a.complete(ctx, rv, system, user, log)
	if err != nil {
		log.Warn("reviewer failed", "error", err)
		score.Unavailable = true
		score.Critique = err.Error()
		return score
	}

	v := ParseScore(raw)
	score.Score = v.Score
	score.Critique = v.Critique
	score.ParseFailed = v.ParseFailed
	score.Raw = raw
	if v.ParseFailed {
		log.Warn("could not parse reviewer score, recording minimum")
	} else {
		log.Info("reviewed", "score", v.Score)
	}
	return score
}

func (a *Aggregator) complete(ctx context.Context, rv Reviewer, system, user string, log *slog.Logger) (string, error) {
	temp := "omit"
	if rv.Temperature != nil {
		temp = strconv.FormatFloat(*rv.Temperature, 'g', -1, 64)
	}
	key := cache.Key(map[string]string{
		"provider":    rv.Provider,
		"model":       rv.Model,
		"system":      system,
		"user":        user,
		"temperature": temp,
	})

	if a.store != nil {
		if content, ok := a.store.Get(key); ok {
			log.Debug("review loaded from cache")
			return content, nil
		}
	}

	raw, err := rv.Client.Complete(provider.WithCallTimeout(ctx, a.timeout), provider.Request{
		Model:       rv.Model,
		System:      system,
		Prompt:      user,
		Temperature: rv.Temperature,
	})
	if err != nil {
		return "", err
	}

	if a.store != nil {
		if err := a.store.Put(key, raw); err != nil {
			log.Warn("cache write failed", "error", err)
		}
	}
	return raw, nil
}
