// Package config centralizes the environment-driven configuration surface
// the agent runtime core depends on, replacing the teacher's ad hoc
// os.Getenv reads (internal/cli/root.go's AGENT_MEMORY_DB,
// internal/embedding/embedding.go's provider/model/url vars) with one
// constructor, passed down explicitly per DESIGN NOTES §9.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config is the full set of environment-derived settings for one process.
type Config struct {
	// Provider selects the language-model backend ("anthropic", "openai",
	// or a test double); the core only ever sees the opaque generate
	// primitive spec.md §5 describes.
	Provider string

	// ModelReasoning, ModelWorkhorse, and ModelFast name the three model
	// tiers the compaction agent and main loop address by role rather than
	// by raw model string (spec.md §4.6 reflection/consolidation run on
	// cheaper tiers than the main loop).
	ModelReasoning string
	ModelWorkhorse string
	ModelFast      string

	// TokenBudget holds the token-budget overrides read from
	// AGENT_TOKEN_BUDGET_* environment variables.
	TokenBudget TokenBudget

	// MemoryDB is the SQLite database path (renamed from the teacher's
	// AGENT_MEMORY_DB to stay in that env var's idiom).
	MemoryDB string

	// MCPConfigPath points at the MCP server config file, if any
	// (MIRIAD_MCP_CONFIG, spec.md §2's "MCP client that enumerates
	// additional tools").
	MCPConfigPath string
}

// TokenBudget holds the per-tier budgets governing prompt assembly (spec.md
// §4.3's temporalBudget) and compaction triggering (spec.md §4.6).
type TokenBudget struct {
	// Temporal bounds how many tokens of recent raw history ride along in
	// the assembled prompt (spec.md §4.3 "accumulated token estimate ≤
	// temporalBudget").
	Temporal int
	// Identity holds AGENT_TOKEN_BUDGET_IDENTITY. prompt.Assemble does not
	// consult it: the identity and behavior LTM bodies are included whole.
	Identity int
	// CompactionTrigger is the uncompacted-token threshold past which the
	// scheduler starts a background compaction worker (spec.md §4.6).
	CompactionTrigger int
	// CompactionTarget is the uncompacted-token level the compaction agent
	// tries to bring the conversation down to before it stops (spec.md
	// §4.6: "Triggered when estimateUncompactedTokens() exceeds
	// compactionThreshold; targets compactionTarget").
	CompactionTarget int
}

const (
	defaultModelReasoning    = "claude-opus"
	defaultModelWorkhorse    = "claude-sonnet"
	defaultModelFast         = "claude-haiku"
	defaultTemporalBudget    = 8000
	defaultIdentityBudget    = 2000
	defaultCompactionTrigger = 16000
	defaultCompactionTarget  = 8000
)

// FromEnv reads the process environment into a Config, applying the same
// defaulting style as the teacher's getDBPath (internal/cli/root.go):
// an explicit env var wins, otherwise fall back to a sane default.
func FromEnv() Config {
	cfg := Config{
		Provider:       envOr("AGENT_PROVIDER", "anthropic"),
		ModelReasoning: envOr("AGENT_MODEL_REASONING", defaultModelReasoning),
		ModelWorkhorse: envOr("AGENT_MODEL_WORKHORSE", defaultModelWorkhorse),
		ModelFast:      envOr("AGENT_MODEL_FAST", defaultModelFast),
		MemoryDB:       defaultMemoryDB(),
		MCPConfigPath:  os.Getenv("MIRIAD_MCP_CONFIG"),
		TokenBudget: TokenBudget{
			Temporal:          envOrInt("AGENT_TOKEN_BUDGET_TEMPORAL", defaultTemporalBudget),
			Identity:          envOrInt("AGENT_TOKEN_BUDGET_IDENTITY", defaultIdentityBudget),
			CompactionTrigger: envOrInt("AGENT_TOKEN_BUDGET_COMPACTION_TRIGGER", defaultCompactionTrigger),
			CompactionTarget:  envOrInt("AGENT_TOKEN_BUDGET_COMPACTION_TARGET", defaultCompactionTarget),
		},
	}
	return cfg
}

func defaultMemoryDB() string {
	if env := os.Getenv("AGENT_MEMORY_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".agent-memory", "memory.db")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// Validate reports configuration errors that should stop startup rather
// than silently fall back, mirroring the teacher's fail-fast exitErr style
// in internal/cli/root.go but returning an error instead of calling
// os.Exit directly.
func (c Config) Validate() error {
	if c.MemoryDB == "" {
		return fmt.Errorf("memory db path must not be empty")
	}
	if c.TokenBudget.Temporal <= 0 {
		return fmt.Errorf("AGENT_TOKEN_BUDGET_TEMPORAL must be positive, got %d", c.TokenBudget.Temporal)
	}
	if c.TokenBudget.CompactionTrigger <= 0 {
		return fmt.Errorf("AGENT_TOKEN_BUDGET_COMPACTION_TRIGGER must be positive, got %d", c.TokenBudget.CompactionTrigger)
	}
	if c.TokenBudget.CompactionTarget <= 0 {
		return fmt.Errorf("AGENT_TOKEN_BUDGET_COMPACTION_TARGET must be positive, got %d", c.TokenBudget.CompactionTarget)
	}
	return nil
}
