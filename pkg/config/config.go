// Package config loads the application configuration from YAML with
// environment-variable overrides. Durations are written as strings
// ("2s", "1m") and converted when handed to the packages that consume
// them.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mkohler/newsroom/pkg/domain"
	"github.com/mkohler/newsroom/pkg/observability"
	"github.com/mkohler/newsroom/pkg/resilience"
	"github.com/mkohler/newsroom/pkg/tools"
	"github.com/mkohler/newsroom/pkg/workflow"
)

// Config represents the complete application configuration
type Config struct {
	LLM           LLMConfig           `yaml:"llm"`
	Workflow      WorkflowConfig      `yaml:"workflow"`
	Retry         RetryConfig         `yaml:"retry"`
	Breaker       BreakerConfig       `yaml:"breaker"`
	Tools         ToolsConfig         `yaml:"tools"`
	API           APIConfig           `yaml:"api"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// LLMConfig contains model provider configuration
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
	Timeout     string  `yaml:"timeout"`
}

// WorkflowConfig contains pipeline configuration
type WorkflowConfig struct {
	MaxIterations        int     `yaml:"max_iterations"`
	AutoApproveThreshold float64 `yaml:"auto_approve_threshold"`
	ReportFormat         string  `yaml:"report_format"`
}

// RetryConfig contains retry backoff configuration
type RetryConfig struct {
	MaxAttempts     int     `yaml:"max_attempts"`
	BaseDelay       string  `yaml:"base_delay"`
	MaxDelay        string  `yaml:"max_delay"`
	ExponentialBase float64 `yaml:"exponential_base"`
	Jitter          float64 `yaml:"jitter"`
}

// BreakerConfig contains circuit breaker configuration
type BreakerConfig struct {
	FailureThreshold int    `yaml:"failure_threshold"`
	SuccessThreshold int    `yaml:"success_threshold"`
	Cooldown         string `yaml:"cooldown"`
	Timeout          string `yaml:"timeout"`
}

// ToolsConfig contains tool-specific configuration
type ToolsConfig struct {
	WebSearch WebSearchConfig `yaml:"web_search"`
}

// WebSearchConfig contains web search tool configuration
type WebSearchConfig struct {
	Enabled    bool   `yaml:"enabled"`
	APIKey     string `yaml:"api_key,omitempty"`
	BaseURL    string `yaml:"base_url,omitempty"`
	MaxResults int    `yaml:"max_results"`
	Timeout    string `yaml:"timeout,omitempty"`
}

// APIConfig contains API server configuration
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// ObservabilityConfig contains observability configuration
type ObservabilityConfig struct {
	Tracing TracingConfig `yaml:"tracing"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

// TracingConfig contains tracing configuration
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// MetricsConfig contains metrics configuration
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyDefaults()
	config.overrideFromEnv()

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// LoadOrDefault loads configuration from a file or returns default config
func LoadOrDefault(path string) *Config {
	config, err := Load(path)
	if err != nil {
		config = Default()
		config.overrideFromEnv()
	}
	return config
}

// Default returns default configuration
func Default() *Config {
	retry := resilience.DefaultRetryConfig()
	breaker := resilience.DefaultBreakerConfig()
	return &Config{
		LLM: LLMConfig{
			Provider:    "ollama",
			BaseURL:     "http://localhost:11434",
			Model:       "llama3.2",
			Temperature: 0.7,
			MaxTokens:   4096,
			Timeout:     "2m",
		},
		Workflow: WorkflowConfig{
			MaxIterations:        3,
			AutoApproveThreshold: 0.8,
			ReportFormat:         string(domain.FormatMarkdown),
		},
		Retry: RetryConfig{
			MaxAttempts:     retry.MaxAttempts,
			BaseDelay:       retry.BaseDelay.String(),
			MaxDelay:        retry.MaxDelay.String(),
			ExponentialBase: retry.ExponentialBase,
			Jitter:          retry.Jitter,
		},
		Breaker: BreakerConfig{
			FailureThreshold: breaker.FailureThreshold,
			SuccessThreshold: breaker.SuccessThreshold,
			Cooldown:         breaker.Cooldown.String(),
			Timeout:          breaker.Timeout.String(),
		},
		Tools: ToolsConfig{
			WebSearch: WebSearchConfig{
				Enabled:    true,
				MaxResults: 5,
				Timeout:    "15s",
			},
		},
		API: APIConfig{
			Enabled: false,
			Host:    "0.0.0.0",
			Port:    8080,
		},
		Observability: ObservabilityConfig{
			Tracing: TracingConfig{
				Enabled:      false,
				Endpoint:     "localhost:4318",
				SamplingRate: 1.0,
			},
			Metrics: MetricsConfig{
				Enabled: false,
				Port:    2223,
			},
			Logging: LoggingConfig{
				Level: "info",
			},
		},
	}
}

// applyDefaults fills missing fields from the default configuration
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.LLM.Provider == "" {
		c.LLM.Provider = defaults.LLM.Provider
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaults.LLM.BaseURL
	}
	if c.LLM.Model == "" {
		c.LLM.Model = defaults.LLM.Model
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = defaults.LLM.Temperature
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = defaults.LLM.MaxTokens
	}
	if c.LLM.Timeout == "" {
		c.LLM.Timeout = defaults.LLM.Timeout
	}

	if c.Workflow.AutoApproveThreshold == 0 {
		c.Workflow.AutoApproveThreshold = defaults.Workflow.AutoApproveThreshold
	}
	if c.Workflow.ReportFormat == "" {
		c.Workflow.ReportFormat = defaults.Workflow.ReportFormat
	}

	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = defaults.Retry.MaxAttempts
	}
	if c.Retry.BaseDelay == "" {
		c.Retry.BaseDelay = defaults.Retry.BaseDelay
	}
	if c.Retry.MaxDelay == "" {
		c.Retry.MaxDelay = defaults.Retry.MaxDelay
	}
	if c.Retry.ExponentialBase == 0 {
		c.Retry.ExponentialBase = defaults.Retry.ExponentialBase
	}
	if c.Retry.Jitter == 0 {
		c.Retry.Jitter = defaults.Retry.Jitter
	}

	if c.Breaker.FailureThreshold == 0 {
		c.Breaker.FailureThreshold = defaults.Breaker.FailureThreshold
	}
	if c.Breaker.SuccessThreshold == 0 {
		c.Breaker.SuccessThreshold = defaults.Breaker.SuccessThreshold
	}
	if c.Breaker.Cooldown == "" {
		c.Breaker.Cooldown = defaults.Breaker.Cooldown
	}
	if c.Breaker.Timeout == "" {
		c.Breaker.Timeout = defaults.Breaker.Timeout
	}

	if c.Tools.WebSearch.MaxResults == 0 {
		c.Tools.WebSearch.MaxResults = defaults.Tools.WebSearch.MaxResults
	}
	if c.Tools.WebSearch.Timeout == "" {
		c.Tools.WebSearch.Timeout = defaults.Tools.WebSearch.Timeout
	}

	if c.API.Host == "" {
		c.API.Host = defaults.API.Host
	}
	if c.API.Port == 0 {
		c.API.Port = defaults.API.Port
	}

	if c.Observability.Tracing.Endpoint == "" {
		c.Observability.Tracing.Endpoint = defaults.Observability.Tracing.Endpoint
	}
	if c.Observability.Tracing.SamplingRate == 0 {
		c.Observability.Tracing.SamplingRate = defaults.Observability.Tracing.SamplingRate
	}
	if c.Observability.Metrics.Port == 0 {
		c.Observability.Metrics.Port = defaults.Observability.Metrics.Port
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = defaults.Observability.Logging.Level
	}
}

// overrideFromEnv overrides configuration from environment variables
func (c *Config) overrideFromEnv() {
	if url := os.Getenv("OLLAMA_BASE_URL"); url != "" {
		c.LLM.BaseURL = url
	}
	if model := os.Getenv("OLLAMA_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if key := os.Getenv("TAVILY_API_KEY"); key != "" {
		c.Tools.WebSearch.APIKey = key
	}
	if port := os.Getenv("API_PORT"); port != "" {
		if v, err := strconv.Atoi(port); err == nil {
			c.API.Port = v
		}
	}
	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		c.Observability.Tracing.Endpoint = endpoint
	}
}

// validate checks values that would misconfigure the pipeline
func (c *Config) validate() error {
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("llm base_url is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm model is required")
	}
	if c.Workflow.MaxIterations < 0 {
		return fmt.Errorf("workflow max_iterations must be >= 0")
	}
	if c.Workflow.AutoApproveThreshold < 0 || c.Workflow.AutoApproveThreshold > 1 {
		return fmt.Errorf("workflow auto_approve_threshold must be in [0,1]")
	}
	switch domain.ReportFormat(c.Workflow.ReportFormat) {
	case domain.FormatMarkdown, domain.FormatPlain, domain.FormatHTML:
	default:
		return fmt.Errorf("workflow report_format must be one of markdown, plain, html")
	}
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		return fmt.Errorf("api port must be between 1 and 65535")
	}
	for name, value := range map[string]string{
		"llm timeout":        c.LLM.Timeout,
		"retry base_delay":   c.Retry.BaseDelay,
		"retry max_delay":    c.Retry.MaxDelay,
		"breaker cooldown":   c.Breaker.Cooldown,
		"breaker timeout":    c.Breaker.Timeout,
		"web_search timeout": c.Tools.WebSearch.Timeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}

// RetryPolicy converts the section into the resilience layer's config.
func (c *Config) RetryPolicy() resilience.RetryConfig {
	base, _ := time.ParseDuration(c.Retry.BaseDelay)
	max, _ := time.ParseDuration(c.Retry.MaxDelay)
	return resilience.RetryConfig{
		MaxAttempts:     c.Retry.MaxAttempts,
		BaseDelay:       base,
		MaxDelay:        max,
		ExponentialBase: c.Retry.ExponentialBase,
		Jitter:          c.Retry.Jitter,
	}
}

// BreakerDefaults converts the section into the breaker registry's
// per-breaker defaults.
func (c *Config) BreakerDefaults() resilience.BreakerConfig {
	cooldown, _ := time.ParseDuration(c.Breaker.Cooldown)
	timeout, _ := time.ParseDuration(c.Breaker.Timeout)
	return resilience.BreakerConfig{
		FailureThreshold: c.Breaker.FailureThreshold,
		SuccessThreshold: c.Breaker.SuccessThreshold,
		Cooldown:         cooldown,
		Timeout:          timeout,
	}
}

// WorkflowSettings converts the section into the engine's config.
func (c *Config) WorkflowSettings() workflow.Config {
	return workflow.Config{
		MaxIterations:        c.Workflow.MaxIterations,
		AutoApproveThreshold: c.Workflow.AutoApproveThreshold,
		ReportFormat:         domain.ReportFormat(c.Workflow.ReportFormat),
	}
}

// SearchSettings converts the section into the web search client's
// config.
func (c *Config) SearchSettings() tools.WebSearchConfig {
	timeout, _ := time.ParseDuration(c.Tools.WebSearch.Timeout)
	return tools.WebSearchConfig{
		APIKey:     c.Tools.WebSearch.APIKey,
		BaseURL:    c.Tools.WebSearch.BaseURL,
		MaxResults: c.Tools.WebSearch.MaxResults,
		Timeout:    timeout,
	}
}

// TelemetrySettings converts the section into the telemetry config.
func (c *Config) TelemetrySettings(version string) observability.TelemetryConfig {
	return observability.TelemetryConfig{
		ServiceName:    "newsroom",
		ServiceVersion: version,
		Environment:    os.Getenv("ENVIRONMENT"),
		OTLPEndpoint:   c.Observability.Tracing.Endpoint,
		PrometheusPort: c.Observability.Metrics.Port,
		SamplingRate:   c.Observability.Tracing.SamplingRate,
		EnableTracing:  c.Observability.Tracing.Enabled,
		EnableMetrics:  c.Observability.Metrics.Enabled,
		EnableLogging:  true,
	}
}

// LLMTimeout returns the model call timeout.
func (c *Config) LLMTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.LLM.Timeout)
	return timeout
}
