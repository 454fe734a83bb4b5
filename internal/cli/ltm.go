package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rcliao/agent-memory-core/internal/model"
	"github.com/rcliao/agent-memory-core/internal/store"
)

func init() {
	getCmd := &cobra.Command{
		Use:   "get [slug]",
		Short: "Read one LTM entry by slug",
		Args:  cobra.ExactArgs(1),
		RunE:  runGet,
	}
	RootCmd.AddCommand(getCmd)

	childrenCmd := &cobra.Command{
		Use:   "children [parentSlug]",
		Short: "List an LTM entry's direct children",
		Args:  cobra.ExactArgs(1),
		RunE:  runChildren,
	}
	RootCmd.AddCommand(childrenCmd)

	globCmd := &cobra.Command{
		Use:   "glob [pattern]",
		Short: "List LTM entries whose path matches a glob",
		Args:  cobra.ExactArgs(1),
		RunE:  runGlob,
	}
	globCmd.Flags().Int("max-depth", 0, "Max path depth (0 = unbounded)")
	RootCmd.AddCommand(globCmd)

	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search LTM title/body text",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSearch,
	}
	searchCmd.Flags().String("path-prefix", "", "Restrict to entries under this path prefix")
	RootCmd.AddCommand(searchCmd)

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export LTM entries as JSON",
		RunE:  runExport,
	}
	exportCmd.Flags().StringP("path-prefix", "p", "", "Restrict export to entries under this path prefix")
	RootCmd.AddCommand(exportCmd)

	importCmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import LTM entries from a JSON array (as produced by export)",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}
	RootCmd.AddCommand(importCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show database statistics",
		RunE:  runStats,
	}
	RootCmd.AddCommand(statsCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	entry, err := s.Read(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if entry == nil {
		return fmt.Errorf("no such entry: %s", args[0])
	}
	return printJSON(entry)
}

func runChildren(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	children, err := s.GetChildren(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(children)
}

func runGlob(cmd *cobra.Command, args []string) error {
	maxDepth, _ := cmd.Flags().GetInt("max-depth")
	cfg := loadConfig()
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := s.Glob(cmd.Context(), store.GlobParams{Pattern: args[0], MaxDepth: maxDepth})
	if err != nil {
		return err
	}
	return printJSON(entries)
}

func runSearch(cmd *cobra.Command, args []string) error {
	pathPrefix, _ := cmd.Flags().GetString("path-prefix")
	cfg := loadConfig()
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	results, err := s.Search(cmd.Context(), store.SearchParams{
		Query:      strings.Join(args, " "),
		PathPrefix: pathPrefix,
	})
	if err != nil {
		return err
	}
	return printJSON(results)
}

func runExport(cmd *cobra.Command, args []string) error {
	pathPrefix, _ := cmd.Flags().GetString("path-prefix")
	cfg := loadConfig()
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	entries, err := s.ExportLTM(cmd.Context(), pathPrefix)
	if err != nil {
		return err
	}
	return printJSON(entries)
}

func runImport(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}

	var entries []model.LTMEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse json: %w", err)
	}

	cfg := loadConfig()
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := s.ImportLTM(cmd.Context(), entries)
	if err != nil {
		return err
	}
	fmt.Printf(`{"ok":true,"imported":%d}`+"\n", n)
	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	stats, err := s.Stats(cmd.Context(), cfg.MemoryDB)
	if err != nil {
		return err
	}
	return printJSON(stats)
}

func printJSON(v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}
