package review

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/modelbench/pkg/cache/file"
	"github.com/pario-ai/modelbench/pkg/models"
	"github.com/pario-ai/modelbench/pkg/provider"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func fixed(reply string, calls *atomic.Int32) provider.Client {
	return provider.ClientFunc(func(context.Context, provider.Request) (string, error) {
		if calls != nil {
			calls.Add(1)
		}
		return reply, nil
	})
}

func candidates() []models.CandidateResult {
	return []models.CandidateResult{
		{ModelID: "m1", TaskID: models.TaskSummarize, Output: "A"},
		{ModelID: "m1", TaskID: models.TaskTranslate, Output: "B"},
	}
}

func TestReviewOrderAndPrompt(t *testing.T) {
	var mu sync.Mutex
	var reqs []provider.Request
	client := provider.ClientFunc(func(_ context.Context, req provider.Request) (string, error) {
		mu.Lock()
		reqs = append(reqs, req)
		mu.Unlock()
		return "分數: 8\n評語: good", nil
	})

	reviewers := []Reviewer{
		{ID: "openai:gpt-4o", Provider: "openai", Model: "gpt-4o", Client: client},
		{ID: "gemini:flash", Provider: "gemini", Model: "flash", Client: client},
	}
	scores := New(WithLogger(quiet)).Review(context.Background(), reviewers, "original text", candidates())
	require.Len(t, scores, 4)

	assert.Equal(t, "openai:gpt-4o", scores[0].ReviewerID)
	assert.Equal(t, models.TaskSummarize, scores[0].TaskID)
	assert.Equal(t, models.TaskTranslate, scores[1].TaskID)
	assert.Equal(t, "gemini:flash", scores[2].ReviewerID)
	for _, s := range scores {
		assert.Equal(t, 8, s.Score)
		assert.Equal(t, "good", s.Critique)
	}

	require.Len(t, reqs, 4)
	assert.Equal(t, Rubrics[models.TaskSummarize], reqs[0].System)
	assert.Contains(t, reqs[0].Prompt, "原文：\noriginal text")
	assert.Contains(t, reqs[0].Prompt, "摘要結果：\nA")
	assert.Contains(t, reqs[1].Prompt, "翻譯結果：\nB")
}

func TestReviewPassesTemperature(t *testing.T) {
	var got []*float64
	var mu sync.Mutex
	client := provider.ClientFunc(func(_ context.Context, req provider.Request) (string, error) {
		mu.Lock()
		got = append(got, req.Temperature)
		mu.Unlock()
		return "分數: 5", nil
	})

	reviewers := []Reviewer{
		{ID: "a", Provider: "openai", Model: "o1", Temperature: provider.TemperatureParam(1), Client: client},
		{ID: "b", Provider: "openai", Model: "gpt-4o", Temperature: provider.TemperatureParam(0.1), Client: client},
	}
	New(WithLogger(quiet)).Review(context.Background(), reviewers, "x", candidates()[:1])

	require.Len(t, got, 2)
	assert.Nil(t, got[0])
	require.NotNil(t, got[1])
	assert.Equal(t, 0.1, *got[1])
}

func TestReviewSkipsFailedCandidates(t *testing.T) {
	var calls atomic.Int32
	cands := []models.CandidateResult{
		{ModelID: "bad", TaskID: models.TaskSummarize, Output: "ERROR: timeout", Failed: true},
		{ModelID: "good", TaskID: models.TaskSummarize, Output: "A"},
	}
	reviewers := []Reviewer{{ID: "r", Provider: "openai", Model: "m", Client: fixed("分數: 6", &calls)}}

	scores := New(WithLogger(quiet)).Review(context.Background(), reviewers, "x", cands)
	require.Len(t, scores, 2)
	assert.True(t, scores[0].Unavailable)
	assert.Equal(t, CandidateFailed, scores[0].Critique)
	assert.False(t, scores[1].Unavailable)
	assert.EqualValues(t, 1, calls.Load())
}

func TestReviewerFailureIsIsolated(t *testing.T) {
	flaky := provider.ClientFunc(func(_ context.Context, req provider.Request) (string, error) {
		if strings.Contains(req.Prompt, "\nA\n") {
			return "", errors.New("openai: upstream status 500")
		}
		return "分數: 7", nil
	})
	reviewers := []Reviewer{
		{ID: "flaky", Provider: "openai", Model: "m", Client: flaky},
		{ID: "steady", Provider: "gemini", Model: "g", Client: fixed("分數: 9", nil)},
	}

	scores := New(WithLogger(quiet)).Review(context.Background(), reviewers, "x", candidates())
	require.Len(t, scores, 4)

	assert.True(t, scores[0].Unavailable, "flaky reviewer on candidate A")
	assert.Contains(t, scores[0].Critique, "status 500")
	assert.False(t, scores[1].Unavailable, "flaky reviewer still scores candidate B")
	assert.Equal(t, 7, scores[1].Score)
	assert.Equal(t, 9, scores[2].Score, "other reviewer scores candidate A")
	assert.Equal(t, 9, scores[3].Score)
}

func TestReviewUnparseable(t *testing.T) {
	reviewers := []Reviewer{{ID: "r", Provider: "openai", Model: "m", Client: fixed("no idea", nil)}}
	scores := New(WithLogger(quiet)).Review(context.Background(), reviewers, "x", candidates()[:1])
	require.Len(t, scores, 1)
	assert.Equal(t, 1, scores[0].Score)
	assert.Equal(t, "no idea", scores[0].Critique)
	assert.True(t, scores[0].ParseFailed)
	assert.False(t, scores[0].Unavailable)
}

func TestReviewUsesCache(t *testing.T) {
	store, err := file.New(t.TempDir(), file.WithLogger(quiet))
	require.NoError(t, err)

	var calls atomic.Int32
	reviewers := []Reviewer{{ID: "r", Provider: "openai", Model: "m", Client: fixed("分數: 8", &calls)}}
	agg := New(WithCache(store), WithLogger(quiet), WithConcurrency(2))

	first := agg.Review(context.Background(), reviewers, "x", candidates())
	assert.EqualValues(t, 2, calls.Load())

	second := agg.Review(context.Background(), reviewers, "x", candidates())
	assert.EqualValues(t, 2, calls.Load(), "second review must be served from cache")
	assert.Equal(t, first, second)

	// A different temperature is a different request.
	t1 := 0.7
	reviewers[0].Temperature = &t1
	agg.Review(context.Background(), reviewers, "x", candidates()[:1])
	assert.EqualValues(t, 3, calls.Load())
}

func TestUserPromptUnknownTask(t *testing.T) {
	_, err := UserPrompt("classify", "x", "y")
	assert.Error(t, err)
}

func TestReviewerInfo(t *testing.T) {
	r := Reviewer{ID: "id", Provider: "gemini", Model: "flash"}
	assert.Equal(t, models.Reviewer{ID: "id", Provider: "gemini", Model: "flash"}, r.Info())
}
