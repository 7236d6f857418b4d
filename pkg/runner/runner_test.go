package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/modelbench/pkg/cache/file"
	"github.com/pario-ai/modelbench/pkg/config"
	"github.com/pario-ai/modelbench/pkg/provider"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

var tasks = config.TaskList{
	{ID: "summarize", Prompt: "Summarize."},
	{ID: "translate", Prompt: "Translate."},
}

type fakeClient struct {
	calls atomic.Int32
	fn    func(req provider.Request) (string, error)
}

func (f *fakeClient) Complete(_ context.Context, req provider.Request) (string, error) {
	f.calls.Add(1)
	return f.fn(req)
}

func TestRunOrderAndPrompt(t *testing.T) {
	var mu sync.Mutex
	var seen []provider.Request
	c := &fakeClient{fn: func(req provider.Request) (string, error) {
		mu.Lock()
		seen = append(seen, req)
		mu.Unlock()
		return req.Model + "/" + req.System, nil
	}}

	results := New(c, WithLogger(quiet)).Run(context.Background(), []string{"m1", "m2"}, tasks, "the input")
	require.Len(t, results, 4)

	want := [][2]string{{"m1", "summarize"}, {"m1", "translate"}, {"m2", "summarize"}, {"m2", "translate"}}
	for i, w := range want {
		assert.Equal(t, w[0], results[i].ModelID)
		assert.Equal(t, w[1], results[i].TaskID)
		assert.False(t, results[i].Failed)
	}
	assert.Equal(t, "m1/Summarize.", results[0].Output)

	for _, req := range seen {
		assert.Equal(t, "the input", req.Prompt)
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	c := &fakeClient{fn: func(req provider.Request) (string, error) {
		if req.Model == "broken" {
			return "", errors.New("connection refused")
		}
		return "ok", nil
	}}

	results := New(c, WithLogger(quiet)).Run(context.Background(), []string{"broken", "good"}, tasks, "x")
	require.Len(t, results, 4)

	for _, r := range results[:2] {
		assert.True(t, r.Failed)
		assert.Equal(t, "ERROR: connection refused", r.Output)
		assert.Equal(t, "connection refused", r.Error)
	}
	for _, r := range results[2:] {
		assert.False(t, r.Failed)
		assert.Equal(t, "ok", r.Output)
	}
}

func TestRunSecondRunIsServedFromCache(t *testing.T) {
	store, err := file.New(t.TempDir(), file.WithLogger(quiet))
	require.NoError(t, err)

	c := &fakeClient{fn: func(req provider.Request) (string, error) {
		return "out " + req.Model + " " + req.System, nil
	}}
	r := New(c, WithCache(store), WithLogger(quiet))

	first := r.Run(context.Background(), []string{"m1", "m2"}, tasks, "input")
	assert.EqualValues(t, 4, c.calls.Load())

	c.calls.Store(0)
	second := r.Run(context.Background(), []string{"m1", "m2"}, tasks, "input")
	assert.EqualValues(t, 0, c.calls.Load(), "second run must not call the model")

	for i := range first {
		assert.Equal(t, first[i].Output, second[i].Output)
		assert.True(t, second[i].Cached)
	}
}

func TestRunDoesNotCacheFailures(t *testing.T) {
	store, err := file.New(t.TempDir(), file.WithLogger(quiet))
	require.NoError(t, err)

	fail := true
	c := &fakeClient{fn: func(provider.Request) (string, error) {
		if fail {
			return "", errors.New("timeout")
		}
		return "recovered", nil
	}}
	r := New(c, WithCache(store), WithLogger(quiet))

	res := r.Run(context.Background(), []string{"m"}, tasks[:1], "x")
	assert.True(t, res[0].Failed)

	fail = false
	res = r.Run(context.Background(), []string{"m"}, tasks[:1], "x")
	assert.False(t, res[0].Failed)
	assert.Equal(t, "recovered", res[0].Output)
}

func TestRunInputChangeInvalidatesCache(t *testing.T) {
	store, err := file.New(t.TempDir(), file.WithLogger(quiet))
	require.NoError(t, err)
	c := &fakeClient{fn: func(req provider.Request) (string, error) { return req.Prompt, nil }}
	r := New(c, WithCache(store), WithLogger(quiet))

	r.Run(context.Background(), []string{"m"}, tasks[:1], "a")
	res := r.Run(context.Background(), []string{"m"}, tasks[:1], "b")
	assert.EqualValues(t, 2, c.calls.Load())
	assert.Equal(t, "b", res[0].Output)
}

func TestRunTimeout(t *testing.T) {
	c := provider.ClientFunc(func(ctx context.Context, _ provider.Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	res := New(c, WithTimeout(10*time.Millisecond), WithLogger(quiet)).Run(context.Background(), []string{"slow"}, tasks[:1], "x")
	require.Len(t, res, 1)
	assert.True(t, res[0].Failed)
	assert.Contains(t, res[0].Error, "deadline exceeded")
}

func TestRunConcurrentKeepsOrder(t *testing.T) {
	c := &fakeClient{fn: func(req provider.Request) (string, error) {
		// Later models answer first.
		if req.Model == "m0" {
			time.Sleep(20 * time.Millisecond)
		}
		return req.Model + ":" + req.System, nil
	}}

	modelIDs := []string{"m0", "m1", "m2", "m3"}
	results := New(c, WithConcurrency(4), WithLogger(quiet)).Run(context.Background(), modelIDs, tasks, "x")
	require.Len(t, results, 8)
	for i, m := range modelIDs {
		for j, task := range tasks {
			r := results[i*2+j]
			assert.Equal(t, m, r.ModelID)
			assert.Equal(t, task.ID, r.TaskID)
			assert.Equal(t, fmt.Sprintf("%s:%s", m, task.Prompt), r.Output)
		}
	}
}

func TestCleanOutput(t *testing.T) {
	cases := map[string]string{
		"  plain  ":                                "plain",
		"<think>hmm\nlet me see</think>\n\nanswer": "answer",
		"a<think>x</think>b<think>y</think>c":      "abc",
		"<think>unterminated":                      "<think>unterminated",
	}
	for in, want := range cases {
		assert.Equal(t, want, CleanOutput(in), "input %q", in)
	}
}
