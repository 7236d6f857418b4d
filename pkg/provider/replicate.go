package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ReplicateBaseURL is the default Replicate API endpoint.
const ReplicateBaseURL = "https://api.replicate.com/v1"

// Replicate runs predictions on Replicate and polls until they finish.
type Replicate struct {
	apiKey string
	opts   options
}

// NewReplicate creates a Replicate client. Predictions are polled every 5s,
// at most 20 times, unless WithPollInterval or WithMaxPolls say otherwise.
func NewReplicate(apiKey string, opts ...Option) *Replicate {
	defaults := append([]Option{WithPollInterval(5 * time.Second), WithMaxPolls(20)}, opts...)
	return &Replicate{apiKey: apiKey, opts: newOptions(ReplicateBaseURL, 60*time.Second, defaults)}
}

type replicateInput struct {
	Prompt       string   `json:"prompt"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	MaxNewTokens int      `json:"max_new_tokens"`
	Temperature  *float64 `json:"temperature,omitempty"`
}

type replicateRequest struct {
	Version string         `json:"version"`
	Input   replicateInput `json:"input"`
}

type replicatePrediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  any             `json:"error"`
}

// Complete creates a prediction and waits for it to succeed. The model is
// "owner/name:version"; only the version hash is sent.
func (r *Replicate) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := StartCall(ctx)
	defer cancel()

	version := req.Model
	if i := strings.LastIndex(version, ":"); i >= 0 {
		version = version[i+1:]
	}

	payload := replicateRequest{
		Version: version,
		Input: replicateInput{
			Prompt:       req.System + "\n\nUser: " + req.Prompt + "\nAssistant:",
			SystemPrompt: req.System,
			MaxNewTokens: 1024,
			Temperature:  req.Temperature,
		},
	}
	headers := map[string]string{"Authorization": "Token " + r.apiKey}

	var pred replicatePrediction
	if err := doJSON(ctx, r.opts.httpClient, "replicate", http.MethodPost, r.opts.baseURL+"/predictions", headers, payload, &pred); err != nil {
		return "", err
	}
	if pred.ID == "" {
		return "", errors.New("replicate: prediction id missing from response")
	}

	id := pred.ID
	for polls := 0; ; polls++ {
		switch pred.Status {
		case "succeeded":
			return predictionOutput(pred.Output)
		case "failed", "canceled":
			return "", fmt.Errorf("replicate: prediction %s %s: %v", id, pred.Status, pred.Error)
		}
		if polls >= r.opts.maxPolls {
			return "", fmt.Errorf("replicate: prediction %s not finished after %d polls", id, r.opts.maxPolls)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(r.opts.pollInterval):
		}

		pred = replicatePrediction{}
		if err := doJSON(ctx, r.opts.httpClient, "replicate", http.MethodGet, r.opts.baseURL+"/predictions/"+id, headers, nil, &pred); err != nil {
			return "", err
		}
	}
}

// predictionOutput flattens a prediction output, which is either a list of
// streamed chunks or a single string.
func predictionOutput(raw json.RawMessage) (string, error) {
	var chunks []string
	if err := json.Unmarshal(raw, &chunks); err == nil {
		return strings.Join(chunks, ""), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	return "", fmt.Errorf("replicate: unexpected output %s", string(raw))
}
