// Package cli implements the agent-memory-core binary's command surface:
// a batch mode (`-p`), a server mode (`--stdio`), and a handful of
// LTM-inspection subcommands kept from the teacher's shape (get/children/
// glob/search/export/import/stats) but pointed at our LTM store instead of its flat
// namespace/key memory table.
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcliao/agent-memory-core/internal/config"
	"github.com/rcliao/agent-memory-core/internal/store"
)

var (
	dbPath     string
	formatFlag string
	verbose    bool
	promptFlag string
	stdioFlag  bool
)

// RootCmd is the top-level command (spec.md §6: batch and --stdio modes).
var RootCmd = &cobra.Command{
	Use:   "agent-memory",
	Short: "Long-lived coding agent runtime: NDJSON server and batch driver",
	RunE:  runRoot,
}

func init() {
	RootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Database path (default: $AGENT_MEMORY_DB or ~/.agent-memory/memory.db)")
	RootCmd.PersistentFlags().StringVarP(&formatFlag, "format", "f", "text", "Batch output format: text or json")
	RootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Development-mode logging")
	RootCmd.Flags().StringVarP(&promptFlag, "prompt", "p", "", "Run one batch turn with this prompt and exit")
	RootCmd.Flags().BoolVar(&stdioFlag, "stdio", false, "Run the NDJSON server over stdin/stdout")
}

func runRoot(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := newLogger(verbose)
	defer log.Sync() //nolint:errcheck

	switch {
	case stdioFlag:
		return runStdio(cmd, cfg, log)
	case promptFlag != "":
		return runBatch(cmd, cfg, log, promptFlag, formatFlag)
	default:
		return cmd.Help()
	}
}

func loadConfig() config.Config {
	cfg := config.FromEnv()
	if dbPath != "" {
		cfg.MemoryDB = dbPath
	}
	return cfg
}

func newLogger(verbose bool) *zap.Logger {
	var log *zap.Logger
	var err error
	if verbose {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		log = zap.NewNop()
	}
	return log
}

func openStore(cfg config.Config) (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(cfg.MemoryDB)
}
