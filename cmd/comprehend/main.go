package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"comprehend/internal/config"
	"comprehend/internal/export"
	"comprehend/internal/pipeline"
	"comprehend/internal/report"
	"comprehend/internal/storage"
)

var (
	flagConfig    string
	flagInputDir  string
	flagNamespace string
	flagOutputDir string
	flagDB        string
	flagComments  bool
)

func main() {
	root := &cobra.Command{
		Use:          "comprehend",
		Short:        "Builds a symbol graph from source code and summarizes it with an LLM",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "config.yaml", "path to the config file")
	root.PersistentFlags().StringVar(&flagDB, "db", "comprehend.db", "path to the SQLite database")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Analyze and summarize a project directory",
		RunE:  runRun,
	}
	runCmd.Flags().StringVar(&flagInputDir, "input_dir", "", "project directory to analyze (required)")
	runCmd.Flags().StringVar(&flagNamespace, "namespace", "", "vector store namespace (defaults to the input directory name)")
	runCmd.Flags().StringVar(&flagOutputDir, "output_dir", ".", "directory for graph.json, architecture.dot, and report.json")
	runCmd.Flags().BoolVar(&flagComments, "write_comments", false, "write *_commented copies with generated documentation")
	runCmd.MarkFlagRequired("input_dir")

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Re-export the type graph from a previous run's database",
		RunE:  runExport,
	}
	exportCmd.Flags().StringVar(&flagNamespace, "namespace", "", "graph name used in the DOT output")
	exportCmd.Flags().StringVar(&flagOutputDir, "output_dir", ".", "directory for graph.json and architecture.dot")

	root.AddCommand(runCmd, exportCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if flagComments {
		cfg.Pipeline.WriteComments = true
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	p := pipeline.New(cfg, logger)

	res, err := p.Run(cmd.Context(), pipeline.Options{
		InputDir:  flagInputDir,
		Namespace: flagNamespace,
		OutputDir: flagOutputDir,
		DBPath:    flagDB,
	})
	if err != nil {
		return err
	}

	counts := res.Report.Counts()
	logger.Printf("done: %d symbols, %d edges, %d summaries", len(res.Symbols), len(res.Edges), len(res.Summaries))
	for _, kind := range []report.Kind{
		report.ParseError,
		report.AmbiguousReference,
		report.UnresolvedReference,
		report.CycleWarning,
		report.SummarizationFailure,
	} {
		if n := counts[kind]; n > 0 {
			logger.Printf("  %s: %d", kind, n)
		}
	}
	return nil
}

func runExport(cmd *cobra.Command, args []string) error {
	db, err := storage.NewSQLiteStore(flagDB)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	symbols, edges, _, err := db.LoadRun(cmd.Context())
	if err != nil {
		return err
	}
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols in %s; run an analysis first", flagDB)
	}

	name := flagNamespace
	if name == "" {
		name = "comprehend"
	}

	if err := os.MkdirAll(flagOutputDir, 0o755); err != nil {
		return err
	}
	tg := export.Project(symbols, edges)

	graphPath := filepath.Join(flagOutputDir, "graph.json")
	f, err := os.Create(graphPath)
	if err != nil {
		return err
	}
	if err := tg.WriteJSON(f); err != nil {
		f.Close()
		return err
	}
	f.Close()

	dotPath := filepath.Join(flagOutputDir, "architecture.dot")
	f, err = os.Create(dotPath)
	if err != nil {
		return err
	}
	if err := tg.WriteDOT(f, name); err != nil {
		f.Close()
		return err
	}
	f.Close()

	log.Printf("wrote %s and %s", graphPath, dotPath)
	return nil
}
