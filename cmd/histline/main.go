package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/TobiSchelling/histline/internal/collect"
	"github.com/TobiSchelling/histline/internal/config"
	"github.com/TobiSchelling/histline/internal/database"
	"github.com/TobiSchelling/histline/internal/logging"
	"github.com/TobiSchelling/histline/internal/mcptool"
	"github.com/TobiSchelling/histline/internal/pipeline"
	"github.com/TobiSchelling/histline/internal/segment"
	"github.com/TobiSchelling/histline/internal/server"
	"github.com/TobiSchelling/histline/internal/timeline"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     *zap.SugaredLogger
)

func main() {
	defer func() {
		if logger != nil {
			_ = logger.Sync()
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		if hints := errors.GetAllHints(err); len(hints) > 0 {
			for _, h := range hints {
				fmt.Fprintf(os.Stderr, "hint: %s\n", h)
			}
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "histline",
	Short:        "Timelines from Chinese historical text",
	Long:         "histline extracts time expressions and dated events from Chinese historical text and groups them into timelines.",
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(err, "loading .env")
		}

		// init and version work without a config.
		if cmd.Name() == "init" || cmd.Name() == "version" {
			var err error
			logger, err = logging.New(logging.Options{})
			return err
		}

		var err error
		cfg, err = config.LoadOrDefault(configPath)
		if err != nil {
			return errors.Wrap(err, "loading config")
		}

		level := cfg.Logging.Level
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(logging.Options{Level: level, JSON: cfg.Logging.JSON})
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("histline", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/histline/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return errors.Wrap(err, "creating config directory")
		}
		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return errors.Wrap(err, "writing config")
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to add feeds and tune timeline options.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return errors.Wrap(err, "getting stats")
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Documents:")
		fmt.Printf("  Total collected: %d\n", stats.TotalDocuments)
		fmt.Printf("  With content: %d\n", stats.FetchedDocuments)
		fmt.Printf("  Analyzed: %d\n", stats.AnalyzedDocuments)
		fmt.Println("\nTimelines:")
		fmt.Printf("  Analyses: %d\n", stats.Analyses)
		fmt.Printf("  Events: %d\n", stats.TimelineEvents)
		if stats.EarliestYear != nil && stats.LatestYear != nil {
			fmt.Printf("  Span: %d to %d\n", *stats.EarliestYear, *stats.LatestYear)
		}

		fmt.Println("\nRuns:")
		fmt.Printf("  Total: %d\n", stats.Runs)
		last, err := db.GetLastRun()
		switch {
		case errors.Is(err, database.ErrNotFound):
			fmt.Println("  Last: never")
		case err != nil:
			return err
		default:
			fmt.Printf("  Last: %s (%d analyses, %d events)\n", deref(last.GeneratedAt), last.AnalysisCount, last.EventCount)
		}
		return nil
	},
}

// --- collect command ---

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect documents from configured feeds",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx, stop := signalContext()
		defer stop()

		fmt.Println("Collecting documents from feeds...")
		collector := collect.NewCollector(cfg, db, logging.Component(logger, "collect"))
		result, err := collector.Collect(ctx)
		if err != nil {
			return err
		}

		fmt.Println("\nCollection complete:")
		fmt.Printf("  Total found: %d\n", result.TotalFound)
		fmt.Printf("  New documents: %d\n", result.NewDocuments)
		fmt.Printf("  Duplicates skipped: %d\n", result.Duplicates)

		if len(result.Sources) > 0 {
			fmt.Println("\nDocuments by source:")
			type kv struct {
				key string
				val int
			}
			var sorted []kv
			for k, v := range result.Sources {
				sorted = append(sorted, kv{k, v})
			}
			sort.Slice(sorted, func(i, j int) bool { return sorted[i].val > sorted[j].val })
			for _, s := range sorted {
				fmt.Printf("  %s: %d\n", s.key, s.val)
			}
		}
		return nil
	},
}

// --- run command ---

var dryRun bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: collect -> fetch -> analyze -> report",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		var result *pipeline.Result
		if dryRun {
			result = pipeline.New(cfg, db, nil, logging.Component(logger, "pipeline")).DryRun()
		} else {
			engine, err := newEngine()
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()
			result = pipeline.New(cfg, db, engine, logging.Component(logger, "pipeline")).Run(ctx)
		}

		var failed bool
		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/4: %s\n", i+1, step.Name)
			if step.Err != nil {
				failed = true
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if !dryRun && !failed {
			fmt.Println("\nPipeline complete! Run 'histline serve' to browse the timelines.")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server and JSON API",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		engine, err := newEngine()
		if err != nil {
			return err
		}

		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		srv, err := server.New(db, engine, server.Options{Version: version, Timeline: cfg.Timeline}, logging.Component(logger, "server"))
		if err != nil {
			return err
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(srv, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8000, "Port to run server on")
}

// --- mcp command ---

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the analyze_timeline tool over MCP stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		engine, err := newEngine()
		if err != nil {
			return err
		}
		return mcptool.New(engine, cfg.Timeline, version, logging.Component(logger, "mcp")).Serve()
	},
}

func newEngine() (*timeline.Engine, error) {
	seg, err := segment.New(logging.Component(logger, "segment"), cfg.Segment.Dictionaries...)
	if err != nil {
		return nil, err
	}
	return timeline.NewEngine(seg, logging.Component(logger, "timeline"))
}

func openDB() (*database.DB, error) {
	if err := os.MkdirAll(cfg.GetDataDir(), 0o755); err != nil {
		return nil, errors.Wrap(err, "creating data directory")
	}
	return database.Open(cfg.DatabasePath(), logging.Component(logger, "database"))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
