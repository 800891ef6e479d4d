package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.LLM.BaseURL != "http://localhost:11434" {
		t.Errorf("unexpected base URL: %s", cfg.LLM.BaseURL)
	}
	if cfg.LLM.Model != "llama3.2" {
		t.Errorf("unexpected model: %s", cfg.LLM.Model)
	}
	if cfg.Workflow.MaxIterations != 3 {
		t.Errorf("unexpected max_iterations: %d", cfg.Workflow.MaxIterations)
	}
	if cfg.Workflow.AutoApproveThreshold != 0.8 {
		t.Errorf("unexpected auto_approve_threshold: %f", cfg.Workflow.AutoApproveThreshold)
	}
	if err := cfg.validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad(t *testing.T) {
	content := `
llm:
  model: mistral
  temperature: 0.4
workflow:
  max_iterations: 5
  auto_approve_threshold: 0.9
retry:
  max_attempts: 3
  base_delay: 1s
breaker:
  failure_threshold: 10
  cooldown: 45s
tools:
  web_search:
    enabled: true
    api_key: secret
api:
  enabled: true
  port: 9090
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.LLM.Model != "mistral" {
		t.Errorf("expected model mistral, got %s", cfg.LLM.Model)
	}
	if cfg.LLM.Temperature != 0.4 {
		t.Errorf("expected temperature 0.4, got %f", cfg.LLM.Temperature)
	}
	// Unset fields fall back to defaults.
	if cfg.LLM.BaseURL != "http://localhost:11434" {
		t.Errorf("expected default base URL, got %s", cfg.LLM.BaseURL)
	}
	if cfg.Workflow.MaxIterations != 5 {
		t.Errorf("expected max_iterations 5, got %d", cfg.Workflow.MaxIterations)
	}
	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("expected max_attempts 3, got %d", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.MaxDelay != "1m0s" {
		t.Errorf("expected default max_delay, got %s", cfg.Retry.MaxDelay)
	}
	if cfg.Breaker.FailureThreshold != 10 {
		t.Errorf("expected failure_threshold 10, got %d", cfg.Breaker.FailureThreshold)
	}
	if cfg.Tools.WebSearch.APIKey != "secret" {
		t.Errorf("expected api key from file, got %q", cfg.Tools.WebSearch.APIKey)
	}
	if cfg.API.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.API.Port)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadOrDefaultFallsBack(t *testing.T) {
	cfg := LoadOrDefault("/nonexistent/config.yaml")
	if cfg == nil {
		t.Fatal("expected default config")
	}
	if cfg.LLM.Model != "llama3.2" {
		t.Errorf("expected default model, got %s", cfg.LLM.Model)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("OLLAMA_BASE_URL", "http://remote:11434")
	t.Setenv("OLLAMA_MODEL", "qwen2")
	t.Setenv("TAVILY_API_KEY", "env-key")
	t.Setenv("API_PORT", "7070")

	cfg := Default()
	cfg.overrideFromEnv()

	if cfg.LLM.BaseURL != "http://remote:11434" {
		t.Errorf("base URL override failed: %s", cfg.LLM.BaseURL)
	}
	if cfg.LLM.Model != "qwen2" {
		t.Errorf("model override failed: %s", cfg.LLM.Model)
	}
	if cfg.Tools.WebSearch.APIKey != "env-key" {
		t.Errorf("api key override failed: %q", cfg.Tools.WebSearch.APIKey)
	}
	if cfg.API.Port != 7070 {
		t.Errorf("port override failed: %d", cfg.API.Port)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"negative iterations", func(c *Config) { c.Workflow.MaxIterations = -1 }, true},
		{"threshold above one", func(c *Config) { c.Workflow.AutoApproveThreshold = 1.5 }, true},
		{"bad report format", func(c *Config) { c.Workflow.ReportFormat = "pdf" }, true},
		{"bad retry delay", func(c *Config) { c.Retry.BaseDelay = "fast" }, true},
		{"bad breaker cooldown", func(c *Config) { c.Breaker.Cooldown = "soon" }, true},
		{"bad api port", func(c *Config) { c.API.Enabled = true; c.API.Port = 70000 }, true},
		{"zero iterations allowed", func(c *Config) { c.Workflow.MaxIterations = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConversions(t *testing.T) {
	cfg := Default()

	retry := cfg.RetryPolicy()
	if retry.BaseDelay != 2*time.Second {
		t.Errorf("expected 2s base delay, got %v", retry.BaseDelay)
	}
	if retry.MaxDelay != time.Minute {
		t.Errorf("expected 1m max delay, got %v", retry.MaxDelay)
	}

	breaker := cfg.BreakerDefaults()
	if breaker.Cooldown != 30*time.Second {
		t.Errorf("expected 30s cooldown, got %v", breaker.Cooldown)
	}

	wf := cfg.WorkflowSettings()
	if wf.MaxIterations != 3 {
		t.Errorf("expected 3 iterations, got %d", wf.MaxIterations)
	}

	search := cfg.SearchSettings()
	if search.MaxResults != 5 {
		t.Errorf("expected 5 max results, got %d", search.MaxResults)
	}
	if search.Timeout != 15*time.Second {
		t.Errorf("expected 15s search timeout, got %v", search.Timeout)
	}
}
