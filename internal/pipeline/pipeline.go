// Package pipeline runs the batch flow: collect feeds, fetch content,
// analyse documents and write timeline reports.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/TobiSchelling/histline/internal/collect"
	"github.com/TobiSchelling/histline/internal/config"
	"github.com/TobiSchelling/histline/internal/database"
	"github.com/TobiSchelling/histline/internal/fetch"
	"github.com/TobiSchelling/histline/internal/logging"
	"github.com/TobiSchelling/histline/internal/report"
	"github.com/TobiSchelling/histline/internal/timeline"
)

// ErrEmptyDocument marks a document whose content is blank after fetching.
var ErrEmptyDocument = errors.New("document has no content")

// Analyzer runs a timeline analysis. *timeline.Engine implements it.
type Analyzer interface {
	Analyze(text string, opts timeline.Options) (*timeline.Result, error)
}

// StepResult holds the result of a single pipeline step.
type StepResult struct {
	Name    string
	Summary string
	Err     error
}

// Result holds the results of a full pipeline run.
type Result struct {
	Steps []StepResult
	// Analyses lists the IDs stored by the Analyze step.
	Analyses []string
}

// Pipeline orchestrates the four-step timeline pipeline.
type Pipeline struct {
	cfg      *config.Config
	db       *database.DB
	analyzer Analyzer
	logger   *zap.SugaredLogger
}

// New creates a new pipeline.
func New(cfg *config.Config, db *database.DB, analyzer Analyzer, logger *zap.SugaredLogger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Pipeline{cfg: cfg, db: db, analyzer: analyzer, logger: logger}
}

// Run executes Collect → Fetch → Analyze → Report. A collect failure stops
// the run; later steps record their error and continue.
func (p *Pipeline) Run(ctx context.Context) *Result {
	r := &Result{}

	step := p.runCollect(ctx)
	r.Steps = append(r.Steps, step)
	if step.Err != nil {
		return r
	}

	r.Steps = append(r.Steps, p.runFetch(ctx))

	step, ids := p.runAnalyze(ctx)
	r.Steps = append(r.Steps, step)
	r.Analyses = ids

	r.Steps = append(r.Steps, p.runReport(ids))
	return r
}

// DryRun shows what would be done without executing.
func (p *Pipeline) DryRun() *Result {
	r := &Result{}

	r.Steps = append(r.Steps, StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("[dry-run] %d feeds configured", len(p.cfg.Sources.Feeds)),
	})

	needing, err := p.db.GetDocumentsNeedingFetch()
	r.Steps = append(r.Steps, StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("[dry-run] %d documents need content fetching", len(needing)),
		Err:     err,
	})

	pending, err := p.db.CountUnanalyzedDocuments()
	r.Steps = append(r.Steps, StepResult{
		Name:    "Analyze",
		Summary: fmt.Sprintf("[dry-run] %d documents need analysis", pending),
		Err:     err,
	})

	r.Steps = append(r.Steps, StepResult{
		Name:    "Report",
		Summary: fmt.Sprintf("[dry-run] Would write reports to %s", p.reportDir()),
	})

	return r
}

func (p *Pipeline) runCollect(ctx context.Context) StepResult {
	p.logger.Infow("Step 1/4: Collecting documents")
	collector := collect.NewCollector(p.cfg, p.db, logging.Component(p.logger, "collect"))
	result, err := collector.Collect(ctx)
	if err != nil {
		return StepResult{Name: "Collect", Err: err}
	}
	return StepResult{
		Name:    "Collect",
		Summary: fmt.Sprintf("Found %d new documents (%d total, %d duplicates)", result.NewDocuments, result.TotalFound, result.Duplicates),
	}
}

func (p *Pipeline) runFetch(ctx context.Context) StepResult {
	p.logger.Infow("Step 2/4: Fetching document content")
	fetcher := fetch.NewContentFetcher(p.db, fetch.Options{
		Timeout:           p.cfg.Fetch.Timeout,
		RequestsPerMinute: p.cfg.Fetch.RequestsPerMinute,
		UserAgent:         p.cfg.Fetch.UserAgent,
	}, logging.Component(p.logger, "fetch"))
	result, err := fetcher.FetchMissingContent(ctx)
	if err != nil {
		return StepResult{Name: "Fetch", Err: err}
	}
	return StepResult{
		Name:    "Fetch",
		Summary: fmt.Sprintf("Fetched %d documents, %d failed, %d skipped", result.Fetched, result.Failed, result.Skipped),
	}
}

func (p *Pipeline) runAnalyze(ctx context.Context) (StepResult, []string) {
	p.logger.Infow("Step 3/4: Analyzing documents")
	docs, err := p.db.GetUnanalyzedDocuments()
	if err != nil {
		return StepResult{Name: "Analyze", Err: err}, nil
	}

	var ids []string
	var failed, events int
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return StepResult{Name: "Analyze", Err: err}, ids
		}

		id, n, err := p.AnalyzeDocument(doc)
		if err != nil {
			failed++
			p.logger.Warnw("Skipping document", logging.FieldDocumentID, doc.ID, logging.FieldURL, doc.URL, logging.FieldError, err)
			continue
		}
		ids = append(ids, id)
		events += n
	}

	return StepResult{
		Name:    "Analyze",
		Summary: fmt.Sprintf("Analyzed %d documents (%d events), %d failed", len(ids), events, failed),
	}, ids
}

// AnalyzeDocument analyses one stored document and saves the result. It
// returns the analysis ID and the number of events found.
func (p *Pipeline) AnalyzeDocument(doc database.Document) (string, int, error) {
	if doc.Content == nil || strings.TrimSpace(*doc.Content) == "" {
		return "", 0, errors.Wrapf(ErrEmptyDocument, "document %d", doc.ID)
	}
	result, err := p.analyzer.Analyze(*doc.Content, p.cfg.Timeline)
	if err != nil {
		return "", 0, errors.Wrapf(err, "analyzing document %d", doc.ID)
	}
	id, err := p.db.SaveAnalysis(&doc.ID, p.cfg.Timeline, result)
	if err != nil {
		return "", 0, err
	}
	return id, result.Summary.EventsCount, nil
}

func (p *Pipeline) runReport(ids []string) StepResult {
	p.logger.Infow("Step 4/4: Writing reports")
	dir := p.reportDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return StepResult{Name: "Report", Err: errors.Wrap(err, "creating report directory")}
	}

	var events int
	for _, id := range ids {
		a, err := p.db.GetAnalysis(id)
		if err != nil {
			return StepResult{Name: "Report", Err: err}
		}
		title := id
		if a.DocumentID != nil {
			if doc, err := p.db.GetDocument(*a.DocumentID); err == nil {
				title = doc.Title
			}
		}
		path := filepath.Join(dir, id+".md")
		if err := os.WriteFile(path, []byte(report.Markdown(title, a.Result)), 0o644); err != nil {
			return StepResult{Name: "Report", Err: errors.Wrapf(err, "writing %s", path)}
		}
		events += a.EventCount
	}

	if _, err := p.db.InsertRunReport(len(ids), len(ids), events); err != nil {
		return StepResult{Name: "Report", Err: err}
	}
	return StepResult{
		Name:    "Report",
		Summary: fmt.Sprintf("Wrote %d reports to %s", len(ids), dir),
	}
}

func (p *Pipeline) reportDir() string {
	return filepath.Join(p.cfg.GetDataDir(), "reports")
}
