package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pario-ai/modelbench/pkg/models"
)

// Default endpoints for the OpenAI-compatible providers.
const (
	OpenAIBaseURL     = "https://api.openai.com/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// OpenAI talks to an OpenAI-compatible chat completions API.
type OpenAI struct {
	name    string
	apiKey  string
	headers map[string]string
	opts    options
}

// NewOpenAI creates a client for the OpenAI API.
func NewOpenAI(apiKey string, opts ...Option) *OpenAI {
	return &OpenAI{
		name:   "openai",
		apiKey: apiKey,
		opts:   newOptions(OpenAIBaseURL, 60*time.Second, opts),
	}
}

// NewOpenRouter creates a client for OpenRouter, which speaks the OpenAI
// protocol and wants attribution headers.
func NewOpenRouter(apiKey string, opts ...Option) *OpenAI {
	return &OpenAI{
		name:   "openrouter",
		apiKey: apiKey,
		headers: map[string]string{
			"HTTP-Referer": "http://localhost",
			"X-Title":      "Ollama Model Evaluator",
		},
		opts: newOptions(OpenRouterBaseURL, 60*time.Second, opts),
	}
}

// Complete sends a chat completion request and returns the first choice.
func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := StartCall(ctx)
	defer cancel()

	payload := models.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages(req),
		Temperature: req.Temperature,
	}

	headers := map[string]string{"Authorization": "Bearer " + o.apiKey}
	for k, v := range o.headers {
		headers[k] = v
	}

	var resp models.ChatCompletionResponse
	if err := doJSON(ctx, o.opts.httpClient, o.name, http.MethodPost, o.opts.baseURL+"/chat/completions", headers, payload, &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New(o.name + ": no choices in response")
	}
	content := resp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("%s: empty response from %s", o.name, req.Model)
	}
	return content, nil
}
