package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/agent-memory-core/internal/agent"
	"github.com/rcliao/agent-memory-core/internal/clock"
	"github.com/rcliao/agent-memory-core/internal/config"
	"github.com/rcliao/agent-memory-core/internal/ident"
	"github.com/rcliao/agent-memory-core/internal/llm"
	"github.com/rcliao/agent-memory-core/internal/server"
	"github.com/rcliao/agent-memory-core/internal/store"
	"github.com/rcliao/agent-memory-core/internal/tool"
)

// newProvider builds the model-generate primitive. spec.md §1 treats the
// provider as an opaque external collaborator out of core scope, so the
// only concrete implementation shipped here is llm.Fake; a real deployment
// wires its own llm.Provider into these constructors in place of this call.
func newProvider() llm.Provider {
	return &llm.Fake{}
}

func buildToolRegistry(s store.Store) *tool.Registry {
	reg := tool.NewRegistry()
	reg.Register(tool.NewInvalidToolCallTool())
	for _, t := range tool.NewPresentTools(s) {
		reg.Register(t)
	}
	return reg
}

func runBatch(cmd *cobra.Command, cfg config.Config, log *zap.Logger, prompt, format string) error {
	s, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	c := clock.Real{}
	opts := agent.Options{
		Store:          s,
		Provider:       newProvider(),
		Model:          cfg.ModelWorkhorse,
		Tools:          buildToolRegistry(s),
		Clock:          c,
		Idents:         ident.New(c),
		TemporalBudget: cfg.TokenBudget.Temporal,
	}
	if verbose {
		opts.EventSink = func(e agent.Event) {
			log.Debug("event", zap.String("kind", string(e.Kind)), zap.String("text", e.Text))
		}
	}

	result, err := agent.RunAgent(cmd.Context(), prompt, opts)
	if err != nil {
		return fmt.Errorf("run agent: %w", err)
	}

	if format == "json" {
		b, _ := json.Marshal(map[string]any{
			"response":  result.Response,
			"num_turns": result.NumTurns,
			"usage":     result.Usage,
			"cancelled": result.Cancelled,
		})
		fmt.Println(string(b))
	} else {
		fmt.Println(result.Response)
	}
	return nil
}

func runStdio(cmd *cobra.Command, cfg config.Config, log *zap.Logger) error {
	s, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()

	c := clock.Real{}
	idents := ident.New(c)
	provider := newProvider()
	reg := buildToolRegistry(s)

	runTurn := func(ctx context.Context, userMessage string, onBeforeTurn func() string, sink agent.EventSink) (agent.Result, error) {
		opts := agent.Options{
			Store:          s,
			Provider:       provider,
			Model:          cfg.ModelWorkhorse,
			Tools:          reg,
			Clock:          c,
			Idents:         idents,
			TemporalBudget: cfg.TokenBudget.Temporal,
			OnBeforeTurn:   onBeforeTurn,
			EventSink:      sink,
		}
		return agent.RunAgent(ctx, userMessage, opts)
	}

	compact := func(ctx context.Context) error {
		tokens, err := s.EstimateUncompactedTokens(ctx)
		if err != nil {
			return err
		}
		if tokens <= cfg.TokenBudget.CompactionTrigger {
			return nil
		}
		_, err = agent.RunCompaction(ctx, agent.CompactionOptions{
			Store:            s,
			Provider:         provider,
			Model:            cfg.ModelFast,
			Clock:            c,
			Idents:           idents,
			TemporalBudget:   cfg.TokenBudget.Temporal,
			CompactionTarget: cfg.TokenBudget.CompactionTarget,
		})
		return err
	}

	srv := server.New(os.Stdin, os.Stdout, runTurn, compact, cfg.ModelWorkhorse, log)
	return srv.Run(cmd.Context())
}
