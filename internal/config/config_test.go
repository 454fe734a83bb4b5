package config

import "testing"

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("AGENT_PROVIDER", "")
	t.Setenv("AGENT_MEMORY_DB", "")
	t.Setenv("AGENT_TOKEN_BUDGET_TEMPORAL", "")

	cfg := FromEnv()
	if cfg.Provider != "anthropic" {
		t.Errorf("expected default provider, got %q", cfg.Provider)
	}
	if cfg.TokenBudget.Temporal != defaultTemporalBudget {
		t.Errorf("expected default temporal budget, got %d", cfg.TokenBudget.Temporal)
	}
	if cfg.MemoryDB == "" {
		t.Error("expected a non-empty default memory db path")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("AGENT_PROVIDER", "openai")
	t.Setenv("AGENT_MEMORY_DB", "/tmp/custom.db")
	t.Setenv("AGENT_TOKEN_BUDGET_TEMPORAL", "12345")

	cfg := FromEnv()
	if cfg.Provider != "openai" {
		t.Errorf("expected overridden provider, got %q", cfg.Provider)
	}
	if cfg.MemoryDB != "/tmp/custom.db" {
		t.Errorf("expected overridden db path, got %q", cfg.MemoryDB)
	}
	if cfg.TokenBudget.Temporal != 12345 {
		t.Errorf("expected overridden budget, got %d", cfg.TokenBudget.Temporal)
	}
}

func TestValidateRejectsNonPositiveBudget(t *testing.T) {
	cfg := FromEnv()
	cfg.TokenBudget.Temporal = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero temporal budget")
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}
