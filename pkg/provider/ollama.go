package provider

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pario-ai/modelbench/pkg/models"
)

// Ollama talks to a local Ollama server.
type Ollama struct {
	opts options
}

// NewOllama creates an Ollama client for the server at baseURL.
func NewOllama(baseURL string, opts ...Option) *Ollama {
	o := newOptions("http://localhost:11434", 120*time.Second, append([]Option{WithBaseURL(baseURL)}, opts...))
	return &Ollama{opts: o}
}

// Complete runs a non-streaming chat request.
func (o *Ollama) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := StartCall(ctx)
	defer cancel()

	payload := models.OllamaChatRequest{
		Model:    req.Model,
		Messages: messages(req),
		Stream:   false,
	}

	var resp models.OllamaChatResponse
	if err := doJSON(ctx, o.opts.httpClient, "ollama", http.MethodPost, o.opts.baseURL+"/api/chat", nil, payload, &resp); err != nil {
		return "", err
	}
	if resp.Message.Content == "" {
		return "", fmt.Errorf("ollama: empty response from %s", req.Model)
	}
	return resp.Message.Content, nil
}

func messages(req Request) []models.ChatMessage {
	var msgs []models.ChatMessage
	if req.System != "" {
		msgs = append(msgs, models.ChatMessage{Role: "system", Content: req.System})
	}
	return append(msgs, models.ChatMessage{Role: "user", Content: req.Prompt})
}
