package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/pario-ai/modelbench/pkg/models"
)

// Reviewer provider tags.
const (
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderOpenRouter = "openrouter"
	ProviderReplicate  = "replicate"
	ProviderOllama     = "ollama"
)

// Config holds all modelbench configuration.
type Config struct {
	Ollama             OllamaConfig               `yaml:"ollama"`
	Models             []string                   `yaml:"models" validate:"required,min=1,dive,required"`
	Reviewers          []ReviewerConfig           `yaml:"reviewers" validate:"required,min=1,dive"`
	Temperatures       map[string]float64         `yaml:"reviewer_temperature" validate:"dive,gte=0,lte=2"`
	DefaultTemperature float64                    `yaml:"default_temperature" validate:"gte=0,lte=2"`
	Tasks              TaskList                   `yaml:"tasks" validate:"required,min=1,dive"`
	Providers          map[string]ProviderConfig  `yaml:"providers"`
	ReviewTimeout      time.Duration              `yaml:"review_timeout" validate:"gt=0"`
	Concurrency        int                        `yaml:"concurrency" validate:"gte=1"`
	DBPath             string                     `yaml:"db_path"`
	Cache              CacheConfig                `yaml:"cache"`
	History            HistoryConfig              `yaml:"history"`
	Report             ReportConfig               `yaml:"report"`
	RateLimits         map[string]RateLimitConfig `yaml:"rate_limits" validate:"dive"`
}

// OllamaConfig points at the local model endpoint.
type OllamaConfig struct {
	BaseURL string        `yaml:"base_url" validate:"required,url"`
	Timeout time.Duration `yaml:"timeout" validate:"gt=0"`
}

// ReviewerConfig names one cloud reviewer. ID defaults to "provider:model".
type ReviewerConfig struct {
	Provider string `yaml:"provider" validate:"required,oneof=openai gemini openrouter replicate"`
	Model    string `yaml:"model" validate:"required"`
	ID       string `yaml:"id"`
}

// ReviewerID returns the identifier used to key this reviewer's results.
func (r ReviewerConfig) ReviewerID() string {
	if r.ID != "" {
		return r.ID
	}
	return r.Provider + ":" + r.Model
}

// ProviderConfig holds credentials and an optional endpoint override for a provider.
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// CacheConfig controls the response cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Backend string        `yaml:"backend" validate:"omitempty,oneof=file sqlite"`
	Dir     string        `yaml:"dir"`
	TTL     time.Duration `yaml:"ttl" validate:"gte=0"`
}

// HistoryConfig controls run history persistence.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
}

// ReportConfig controls report output.
type ReportConfig struct {
	Dir       string `yaml:"dir"`
	Precision int    `yaml:"precision" validate:"gte=0,lte=6"`
}

// RateLimitConfig bounds live calls to one provider. Zero RequestsPerMinute
// disables pacing and zero MaxCalls disables the per-run call cap.
type RateLimitConfig struct {
	RequestsPerMinute float64 `yaml:"requests_per_minute" validate:"gte=0"`
	Burst             int     `yaml:"burst" validate:"gte=0"`
	MaxCalls          int64   `yaml:"max_calls" validate:"gte=0"`
}

// Task pairs a task id with the instruction text sent to candidate models.
type Task struct {
	ID     string `yaml:"id" validate:"required,oneof=summarize translate"`
	Prompt string `yaml:"prompt" validate:"required"`
}

// TaskList keeps tasks in the order they appear in the config file.
type TaskList []Task

// UnmarshalYAML decodes a mapping of task id to instruction text, preserving order.
func (tl *TaskList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("tasks: expected a mapping of task id to prompt, got line %d", value.Line)
	}
	tasks := make(TaskList, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		var t Task
		if err := value.Content[i].Decode(&t.ID); err != nil {
			return fmt.Errorf("tasks: %w", err)
		}
		if err := value.Content[i+1].Decode(&t.Prompt); err != nil {
			return fmt.Errorf("tasks.%s: %w", t.ID, err)
		}
		tasks = append(tasks, t)
	}
	*tl = tasks
	return nil
}

// IDs returns the task identifiers in order.
func (tl TaskList) IDs() []string {
	ids := make([]string, len(tl))
	for i, t := range tl {
		ids[i] = t.ID
	}
	return ids
}

// Default instruction texts, taken from the meeting-notes benchmark this tool was built for.
const (
	DefaultSummarizePrompt = `Summarize the following meeting transcript in Traditional Chinese.
Cover the main topics, key outcomes and decisions, and action items with owners where mentioned.
Keep English technical terms in their original form. Do not add greetings, preambles or closing remarks.`

	DefaultTranslatePrompt = `Translate the following text into fluent Traditional Chinese.
Keep English technical terms in their original form and output only the translation.`
)

// envKeys maps provider tags to the environment variables consulted when no key is configured.
var envKeys = map[string]string{
	ProviderOpenAI:     "OPENAI_API_KEY",
	ProviderGemini:     "GOOGLE_API_KEY",
	ProviderOpenRouter: "OPENROUTER_API_KEY",
	ProviderReplicate:  "REPLICATE_API_KEY",
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Ollama: OllamaConfig{
			BaseURL: "http://localhost:11434",
			Timeout: 120 * time.Second,
		},
		DefaultTemperature: 0.1,
		Tasks: TaskList{
			{ID: models.TaskTranslate, Prompt: DefaultTranslatePrompt},
			{ID: models.TaskSummarize, Prompt: DefaultSummarizePrompt},
		},
		Providers:     map[string]ProviderConfig{},
		ReviewTimeout: 60 * time.Second,
		Concurrency:   1,
		DBPath:        "modelbench.db",
		Cache: CacheConfig{
			Enabled: true,
			Backend: "file",
			Dir:     "cache",
		},
		History: HistoryConfig{Enabled: true},
		Report: ReportConfig{
			Dir:       "reports",
			Precision: 2,
		},
		RateLimits: map[string]RateLimitConfig{
			ProviderOpenAI:     {RequestsPerMinute: 60, Burst: 1},
			ProviderGemini:     {RequestsPerMinute: 60, Burst: 1},
			ProviderOpenRouter: {RequestsPerMinute: 60, Burst: 1},
			ProviderReplicate:  {RequestsPerMinute: 60, Burst: 1},
		},
	}
}

// Load reads a YAML config file, expands environment variables and fills
// missing API keys from the provider environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := expandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()

	return cfg, nil
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnv replaces ${VAR} references only. Bare $word text, common in task
// prompts, is left alone.
func expandEnv(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(envRef.FindStringSubmatch(ref)[1])
	})
}

func (c *Config) applyEnv() {
	if c.Providers == nil {
		c.Providers = map[string]ProviderConfig{}
	}
	for provider, env := range envKeys {
		p := c.Providers[provider]
		if p.APIKey == "" {
			p.APIKey = os.Getenv(env)
		}
		c.Providers[provider] = p
	}
}

// Validate checks the configuration before any network activity happens.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	seen := make(map[string]bool, len(c.Reviewers))
	for _, r := range c.Reviewers {
		id := r.ReviewerID()
		if seen[id] {
			return fmt.Errorf("invalid config: duplicate reviewer id %q", id)
		}
		seen[id] = true
	}

	tasks := make(map[string]bool, len(c.Tasks))
	for _, t := range c.Tasks {
		if tasks[t.ID] {
			return fmt.Errorf("invalid config: duplicate task %q", t.ID)
		}
		tasks[t.ID] = true
	}

	if len(c.EnabledReviewers()) == 0 {
		return errors.New("invalid config: no reviewer has an API key configured")
	}
	return nil
}

// APIKey returns the usable key for a provider, or "" when the reviewer
// should be treated as disabled.
func (c *Config) APIKey(provider string) string {
	key := strings.TrimSpace(c.Providers[provider].APIKey)
	if isPlaceholderKey(key) {
		return ""
	}
	return key
}

// EnabledReviewers returns the reviewers whose provider has a usable API key,
// in configured order.
func (c *Config) EnabledReviewers() []ReviewerConfig {
	var out []ReviewerConfig
	for _, r := range c.Reviewers {
		if c.APIKey(r.Provider) != "" {
			out = append(out, r)
		}
	}
	return out
}

// TemperatureFor returns the sampling temperature configured for a reviewer model.
func (c *Config) TemperatureFor(model string) float64 {
	if t, ok := c.Temperatures[model]; ok {
		return t
	}
	return c.DefaultTemperature
}

func isPlaceholderKey(key string) bool {
	return strings.HasPrefix(key, "your_") && strings.HasSuffix(key, "_here")
}
