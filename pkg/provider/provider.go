package provider

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Request is one prompt sent to a model.
type Request struct {
	Model  string
	System string
	Prompt string
	// Temperature is omitted from the upstream request when nil.
	Temperature *float64
}

// Client sends a prompt to a model and returns the reply text.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, req Request) (string, error)

// Complete calls f, starting any timeout recorded with WithCallTimeout.
func (f ClientFunc) Complete(ctx context.Context, req Request) (string, error) {
	ctx, cancel := StartCall(ctx)
	defer cancel()
	return f(ctx, req)
}

type callTimeoutKey struct{}

// WithCallTimeout records a per-call timeout on ctx. The deadline is set by
// StartCall when the upstream call begins, so time spent waiting on a rate
// limiter before that does not count against it.
func WithCallTimeout(ctx context.Context, d time.Duration) context.Context {
	return context.WithValue(ctx, callTimeoutKey{}, d)
}

// StartCall applies the timeout recorded by WithCallTimeout. The timeout is
// consumed, so nested clients do not restart it.
func StartCall(ctx context.Context) (context.Context, context.CancelFunc) {
	d, _ := ctx.Value(callTimeoutKey{}).(time.Duration)
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(context.WithValue(ctx, callTimeoutKey{}, time.Duration(0)), d)
}

// TemperatureParam returns the temperature to send for a configured value.
// A value of exactly 1 means the provider default and yields nil.
func TemperatureParam(t float64) *float64 {
	if t == 1 {
		return nil
	}
	return &t
}

type options struct {
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	maxPolls     int
}

// Option configures a provider client.
type Option func(*options)

// WithBaseURL overrides the API endpoint, e.g. for a proxy or a test server.
func WithBaseURL(u string) Option {
	return func(o *options) {
		if u != "" {
			o.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithPollInterval sets the delay between status checks of asynchronous
// predictions.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) { o.pollInterval = d }
}

// WithMaxPolls sets how many status checks are made before giving up.
func WithMaxPolls(n int) Option {
	return func(o *options) { o.maxPolls = n }
}

func newOptions(baseURL string, timeout time.Duration, opts []Option) options {
	o := options{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
