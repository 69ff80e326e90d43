package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/TobiSchelling/histline/internal/fetch"
	"github.com/TobiSchelling/histline/internal/logging"
	"github.com/TobiSchelling/histline/internal/report"
	"github.com/TobiSchelling/histline/internal/timeline"
)

var (
	analyzeURL           string
	analyzeGroupBy       string
	analyzeMinConfidence float64
	analyzeMaxEvents     int
	analyzeFormat        string
	analyzeSave          bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file|-]",
	Short: "Extract a timeline from a file, stdin or a web page",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if analyzeFormat != "json" && analyzeFormat != "markdown" {
			return errors.WithHint(errors.Newf("unknown format %q", analyzeFormat), "use json or markdown")
		}

		text, title, err := readInput(cmd, args)
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			return errors.New("input text is empty")
		}

		opts := cfg.Timeline
		if cmd.Flags().Changed("group-by") {
			opts.GroupBy = timeline.GroupBy(analyzeGroupBy)
		}
		if cmd.Flags().Changed("min-confidence") {
			opts.MinConfidence = analyzeMinConfidence
		}
		if cmd.Flags().Changed("max-events") {
			opts.MaxEvents = analyzeMaxEvents
		}
		opts, err = opts.Normalize()
		if err != nil {
			return err
		}

		engine, err := newEngine()
		if err != nil {
			return err
		}
		result, err := engine.Analyze(text, opts)
		if err != nil {
			return err
		}

		if analyzeSave {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			id, err := db.SaveAnalysis(nil, opts, result)
			if err != nil {
				return err
			}
			logger.Infow("Analysis saved", logging.FieldAnalysisID, id)
			fmt.Fprintf(os.Stderr, "Saved analysis %s\n", id)
		}

		out := cmd.OutOrStdout()
		if analyzeFormat == "markdown" {
			_, err = fmt.Fprint(out, report.Markdown(title, result))
			return err
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(result)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeURL, "url", "", "Fetch and analyse a web page")
	analyzeCmd.Flags().StringVar(&analyzeGroupBy, "group-by", "", "Group by year, century or dynasty")
	analyzeCmd.Flags().Float64Var(&analyzeMinConfidence, "min-confidence", timeline.DefaultMinConfidence, "Drop events below this confidence")
	analyzeCmd.Flags().IntVar(&analyzeMaxEvents, "max-events", timeline.DefaultMaxEvents, "Keep at most this many events")
	analyzeCmd.Flags().StringVarP(&analyzeFormat, "format", "f", "json", "Output format: json or markdown")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "Store the analysis in the database")
}

// readInput returns the text to analyse and a title for reports.
func readInput(cmd *cobra.Command, args []string) (string, string, error) {
	if analyzeURL != "" {
		if len(args) > 0 {
			return "", "", errors.New("pass either a file or --url, not both")
		}
		fetcher := fetch.NewContentFetcher(nil, fetch.Options{
			Timeout:   cfg.Fetch.Timeout,
			UserAgent: cfg.Fetch.UserAgent,
		}, logging.Component(logger, "fetch"))
		text, err := fetcher.FetchURL(cmd.Context(), analyzeURL)
		return text, analyzeURL, err
	}

	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", "", errors.Wrap(err, "reading stdin")
		}
		return string(data), "stdin", nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", "", errors.Wrap(err, "reading input")
	}
	return string(data), args[0], nil
}

// --- history / show ---

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored analyses, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		items, err := db.ListAnalyses(historyLimit)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No analyses yet. Run 'histline run' or 'histline analyze --save'.")
			return nil
		}

		for _, a := range items {
			title := "(ad-hoc text)"
			if a.DocumentTitle != nil {
				title = *a.DocumentTitle
			}
			fmt.Printf("  %s  %s  %-8s %3d events %3d periods  %s\n",
				a.ID, deref(a.CreatedAt), a.GroupBy, a.EventCount, a.PeriodCount, title)
		}
		return nil
	},
}

var showCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Print a stored analysis as a Markdown report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		a, err := db.GetAnalysis(args[0])
		if err != nil {
			return err
		}
		title := "Analysis " + a.ID
		if a.DocumentID != nil {
			if doc, err := db.GetDocument(*a.DocumentID); err == nil {
				title = doc.Title
			}
		}
		fmt.Print(report.Markdown(title, a.Result))
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of analyses to list")
}
