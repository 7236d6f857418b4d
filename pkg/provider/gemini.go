package provider

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// GeminiBaseURL is the default Generative Language API endpoint.
const GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Gemini talks to the Google Generative Language API.
type Gemini struct {
	apiKey string
	opts   options
}

// NewGemini creates a Gemini client.
func NewGemini(apiKey string, opts ...Option) *Gemini {
	return &Gemini{apiKey: apiKey, opts: newOptions(GeminiBaseURL, 60*time.Second, opts)}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

type geminiRequest struct {
	Contents         []geminiContent         `json:"contents"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Complete calls generateContent. The system prompt and the user prompt are
// sent as one text part separated by a blank line.
func (g *Gemini) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := StartCall(ctx)
	defer cancel()

	text := req.Prompt
	if req.System != "" {
		text = req.System + "\n\n" + req.Prompt
	}

	payload := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: text}}}},
	}
	if req.Temperature != nil {
		payload.GenerationConfig = &geminiGenerationConfig{Temperature: req.Temperature}
	}

	endpoint := g.opts.baseURL + "/models/" + url.PathEscape(req.Model) + ":generateContent?key=" + url.QueryEscape(g.apiKey)

	var resp geminiResponse
	if err := doJSON(ctx, g.opts.httpClient, "gemini", http.MethodPost, endpoint, nil, payload, &resp); err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 {
		return "", errors.New("gemini: no candidates in response")
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	if sb.Len() == 0 {
		return "", errors.New("gemini: empty response")
	}
	return sb.String(), nil
}
