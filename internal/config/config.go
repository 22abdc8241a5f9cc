package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CHATKIT"

// Version is reported in the User-Agent header.
const Version = "0.1.0"

// Backend families.
const (
	BackendCompletions = "completions"
	BackendResponses   = "responses"
	BackendOllama      = "ollama"
)

// Default endpoints per backend family.
const (
	OpenAIBaseURL = "https://api.openai.com/v1"
	OllamaBaseURL = "http://localhost:11434"
)

// Config keys. Environment variables are EnvPrefix + "_" + upper-cased key.
const (
	KeyBackend          = "backend"
	KeyBaseURL          = "base_url"
	KeyAPIKey           = "api_key"
	KeyModel            = "model"
	KeyPlaceholder      = "placeholder"
	KeyTimeout          = "timeout"
	KeyThinkStart       = "think_start"
	KeyThinkEnd         = "think_end"
	KeyReasoningEffort  = "reasoning_effort"
	KeyReasoningSummary = "reasoning_summary"
	KeyReasoningCompat  = "reasoning_compat"
	KeyVerbose          = "verbose"
	KeyDebug            = "debug"
	KeyPromptCache      = "prompt_cache"
)

// Config holds the resolved client configuration.
type Config struct {
	Backend          string        `json:"backend"`
	BaseURL          string        `json:"base_url"`
	APIKey           string        `json:"api_key,omitempty"`
	Model            string        `json:"model"`
	Placeholder      string        `json:"placeholder"`
	Timeout          time.Duration `json:"timeout"`
	ThinkStart       string        `json:"think_start"`
	ThinkEnd         string        `json:"think_end"`
	ReasoningEffort  string        `json:"reasoning_effort,omitempty"`
	ReasoningSummary string        `json:"reasoning_summary,omitempty"`
	ReasoningCompat  string        `json:"reasoning_compat"`
	Verbose          bool          `json:"verbose"`
	Debug            bool          `json:"debug"`
	PromptCache      bool          `json:"prompt_cache"`
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyBackend, BackendCompletions)
	v.SetDefault(KeyModel, "gpt-4o-mini")
	v.SetDefault(KeyPlaceholder, ".")
	v.SetDefault(KeyTimeout, 5*time.Minute)
	v.SetDefault(KeyThinkStart, "<think>")
	v.SetDefault(KeyThinkEnd, "</think>")
	v.SetDefault(KeyReasoningCompat, "think-tags")
	v.SetDefault(KeyPromptCache, true)
}

// Load resolves the configuration from v: explicitly set values and bound
// flags first, then CHATKIT_* environment variables, then a config file
// already read into v, then defaults. OPENAI_API_KEY is accepted as a
// fallback for the API key.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv(KeyAPIKey, EnvPrefix+"_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind api key env: %w", err)
	}

	cfg := &Config{
		Backend:          lower(v.GetString(KeyBackend)),
		BaseURL:          strings.TrimSpace(v.GetString(KeyBaseURL)),
		APIKey:           strings.TrimSpace(v.GetString(KeyAPIKey)),
		Model:            strings.TrimSpace(v.GetString(KeyModel)),
		Placeholder:      v.GetString(KeyPlaceholder),
		Timeout:          v.GetDuration(KeyTimeout),
		ThinkStart:       v.GetString(KeyThinkStart),
		ThinkEnd:         v.GetString(KeyThinkEnd),
		ReasoningEffort:  lower(v.GetString(KeyReasoningEffort)),
		ReasoningSummary: lower(v.GetString(KeyReasoningSummary)),
		ReasoningCompat:  lower(v.GetString(KeyReasoningCompat)),
		Verbose:          v.GetBool(KeyVerbose),
		Debug:            v.GetBool(KeyDebug),
		PromptCache:      v.GetBool(KeyPromptCache),
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadFile reads a yaml, json or toml config file into v.
func ReadFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// finish validates enumerations and fills backend-dependent defaults.
func (c *Config) finish() error {
	switch c.Backend {
	case BackendCompletions, BackendResponses:
		if c.BaseURL == "" {
			c.BaseURL = OpenAIBaseURL
		}
	case BackendOllama:
		if c.BaseURL == "" {
			c.BaseURL = OllamaBaseURL
		}
	default:
		return fmt.Errorf("unknown backend %q (want %s, %s or %s)", c.Backend, BackendCompletions, BackendResponses, BackendOllama)
	}
	switch c.ReasoningCompat {
	case "think-tags", "hidden", "separate":
	default:
		return fmt.Errorf("unknown reasoning compat %q (want think-tags, hidden or separate)", c.ReasoningCompat)
	}
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Minute
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.APIKey != "" {
		c.APIKey = redact(c.APIKey)
	}
	return c
}

func redact(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:3] + "..." + key[len(key)-4:]
}

// UserAgent is the User-Agent sent to backends.
func UserAgent() string {
	return fmt.Sprintf("go-chatkit/%s (%s; %s) %s", Version, runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
