// Package timeline extracts time expressions and dated events from Chinese
// historical text and aggregates them into a sorted, bucketed timeline.
//
// An Engine is built once and is safe for concurrent use: its period table,
// pattern catalog and keyword index are never modified after construction,
// and every Analyze call keeps its state local.
package timeline

import (
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/width"
)

// Engine runs the extraction pipeline: text → time expressions → events → timeline.
type Engine struct {
	periods    *PeriodTable
	catalog    *PatternCatalog
	keywords   *KeywordIndex
	extractor  *Extractor
	builder    *EventBuilder
	aggregator *Aggregator
	logger     *zap.SugaredLogger
}

// NewEngine creates an engine with the built-in tables.
func NewEngine(tokenizer Tokenizer, logger *zap.SugaredLogger) (*Engine, error) {
	return NewEngineWithTables(tokenizer, logger, DefaultPeriodTable(), DefaultPatternCatalog(), DefaultKeywordIndex())
}

// NewEngineWithTables creates an engine over custom tables.
func NewEngineWithTables(tokenizer Tokenizer, logger *zap.SugaredLogger, periods *PeriodTable, catalog *PatternCatalog, keywords *KeywordIndex) (*Engine, error) {
	if tokenizer == nil {
		return nil, errors.WithHint(errors.WithStack(ErrTokenizerUnavailable), "configure a segmenter before creating the engine")
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Engine{
		periods:    periods,
		catalog:    catalog,
		keywords:   keywords,
		extractor:  NewExtractor(periods, catalog, logger),
		builder:    NewEventBuilder(NewClassifier(keywords), tokenizer, logger),
		aggregator: NewAggregator(periods),
		logger:     logger,
	}, nil
}

// Periods returns the engine's period table.
func (e *Engine) Periods() *PeriodTable { return e.periods }

// ExtractTimeExpressions returns the time expressions found in text.
func (e *Engine) ExtractTimeExpressions(text string) []TimeExpression {
	return e.extractor.Extract(text)
}

// ExtractEvents builds events from text. When exprs is nil the time
// expressions are extracted first.
func (e *Engine) ExtractEvents(text string, exprs []TimeExpression, opts Options) ([]Event, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}
	if exprs == nil {
		exprs = e.extractor.Extract(text)
	}
	return e.builder.Build(text, exprs, opts)
}

// BuildTimeline groups events into timeline nodes.
func (e *Engine) BuildTimeline(events []Event, opts Options) (Timeline, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return Timeline{}, err
	}
	return e.aggregator.Build(events, opts)
}

// Analyze runs the full pipeline. Full-width digits are folded to ASCII first,
// which keeps rune offsets aligned with the input. Empty or blank text yields
// an empty result rather than an error.
func (e *Engine) Analyze(text string, opts Options) (*Result, error) {
	opts, err := opts.Normalize()
	if err != nil {
		return nil, err
	}

	text = foldDigits(text)
	if strings.TrimSpace(text) == "" {
		return emptyResult(), nil
	}

	e.logger.Infow("Starting timeline analysis", "text_length", len([]rune(text)), "group_by", opts.GroupBy)

	exprs := e.extractor.Extract(text)
	events, err := e.builder.Build(text, exprs, opts)
	if err != nil {
		return nil, errors.Wrap(err, "extracting events")
	}
	tl, err := e.aggregator.Build(events, opts)
	if err != nil {
		return nil, errors.Wrap(err, "building timeline")
	}

	e.logger.Infow("Timeline analysis complete",
		"time_expressions", len(exprs), "events", len(events), "periods", tl.TotalPeriods)

	return &Result{
		TimeExpressions: exprs,
		Events:          events,
		Timeline:        tl,
		Summary: Summary{
			TimeExpressionsCount: len(exprs),
			EventsCount:          len(events),
			TimelinePeriods:      tl.TotalPeriods,
		},
	}, nil
}

// foldDigits maps full-width digits such as １９４９ to ASCII. Each rune maps
// to exactly one rune.
func foldDigits(text string) string {
	folded, _, err := transform.String(runes.If(runes.In(unicode.Nd), width.Fold, nil), text)
	if err != nil {
		return text
	}
	return folded
}

func emptyResult() *Result {
	return &Result{
		TimeExpressions: []TimeExpression{},
		Events:          []Event{},
		Timeline: Timeline{
			Nodes: []TimelineNode{},
			Statistics: Statistics{
				EventDistribution:  map[EventType]int{},
				EntityDistribution: []EntityCount{},
			},
		},
	}
}
