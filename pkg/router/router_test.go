package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pario-ai/modelbench/pkg/budget"
	"github.com/pario-ai/modelbench/pkg/config"
	"github.com/pario-ai/modelbench/pkg/provider"
)

func TestResolveNoKey(t *testing.T) {
	cfg := config.Default()
	r := New(cfg, nil)
	_, err := r.Resolve(config.ReviewerConfig{Provider: "openai", Model: "gpt-4o"})
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestResolvePlaceholderKey(t *testing.T) {
	cfg := config.Default()
	cfg.Providers["gemini"] = config.ProviderConfig{APIKey: "your_google_api_key_here"}
	r := New(cfg, nil)
	_, err := r.Resolve(config.ReviewerConfig{Provider: "gemini", Model: "gemini-2.0-flash"})
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestResolveUnknownProvider(t *testing.T) {
	cfg := config.Default()
	cfg.Providers["anthropic"] = config.ProviderConfig{APIKey: "sk"}
	r := New(cfg, nil)
	_, err := r.Resolve(config.ReviewerConfig{Provider: "anthropic", Model: "claude"})
	if !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}
}

func TestResolveEveryProvider(t *testing.T) {
	cfg := config.Default()
	for _, p := range []string{"openai", "gemini", "openrouter", "replicate"} {
		cfg.Providers[p] = config.ProviderConfig{APIKey: "key-" + p}
	}
	r := New(cfg, nil)

	cases := map[string]func(provider.Client) bool{
		"openai":     func(c provider.Client) bool { _, ok := c.(*provider.OpenAI); return ok },
		"openrouter": func(c provider.Client) bool { _, ok := c.(*provider.OpenAI); return ok },
		"gemini":     func(c provider.Client) bool { _, ok := c.(*provider.Gemini); return ok },
		"replicate":  func(c provider.Client) bool { _, ok := c.(*provider.Replicate); return ok },
	}
	for p, isExpected := range cases {
		c, err := r.Resolve(config.ReviewerConfig{Provider: p, Model: "m"})
		if err != nil {
			t.Fatalf("%s: %v", p, err)
		}
		if !isExpected(c) {
			t.Errorf("%s: unexpected client type %T", p, c)
		}
	}
}

func TestResolveUsesBaseURLOverride(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.Header.Get("Authorization") != "Bearer sk-1" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Providers["openai"] = config.ProviderConfig{APIKey: "sk-1", BaseURL: srv.URL}
	e := budget.New(nil)
	r := New(cfg, e)

	c, err := r.Resolve(config.ReviewerConfig{Provider: "openai", Model: "gpt-4o"})
	if err != nil {
		t.Fatal(err)
	}
	out, err := c.Complete(context.Background(), provider.Request{Model: "gpt-4o", Prompt: "p"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "ok" || hits != 1 {
		t.Errorf("expected one call returning ok, got %q after %d calls", out, hits)
	}

	status := e.Status()
	if len(status) != 1 || status[0].Provider != "openai" || status[0].Calls != 1 {
		t.Errorf("expected the call to be counted by the enforcer, got %+v", status)
	}
}

func TestCandidateUsesOllamaBaseURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"message":{"role":"assistant","content":"hello"},"done":true}`))
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.Ollama.BaseURL = srv.URL
	out, err := New(cfg, nil).Candidate().Complete(context.Background(), provider.Request{Model: "llama3", Prompt: "p"})
	if err != nil {
		t.Fatal(err)
	}
	if out != "hello" {
		t.Errorf("expected hello, got %q", out)
	}
}
