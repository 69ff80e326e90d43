package database

import "github.com/TobiSchelling/histline/internal/timeline"

// Document is a collected source text.
type Document struct {
	ID             int64
	URL            string
	Title          string
	Source         *string
	Content        *string
	ContentFetched bool
	CollectedAt    *string
}

// Analysis is a stored timeline analysis with its full result.
type Analysis struct {
	ID                  string
	DocumentID          *int64
	Options             timeline.Options
	Result              *timeline.Result
	TimeExpressionCount int
	EventCount          int
	PeriodCount         int
	CreatedAt           *string
}

// AnalysisSummary is an Analysis without its result payload, for listings.
type AnalysisSummary struct {
	ID                  string
	DocumentID          *int64
	DocumentTitle       *string
	GroupBy             timeline.GroupBy
	TimeExpressionCount int
	EventCount          int
	PeriodCount         int
	CreatedAt           *string
}

// StoredEvent is one row of timeline_events.
type StoredEvent struct {
	ID             int64
	AnalysisID     string
	Sentence       string
	EventType      timeline.EventType
	NormalizedYear *int
	StartYear      *int
	EndYear        *int
	Confidence     float64
	TimePrecision  timeline.Precision
}

// RunReport holds metadata about a pipeline run.
type RunReport struct {
	ID            int64
	GeneratedAt   *string
	DocumentCount int
	AnalysisCount int
	EventCount    int
}

// Stats contains aggregate database statistics.
type Stats struct {
	TotalDocuments    int
	FetchedDocuments  int
	AnalyzedDocuments int
	Analyses          int
	TimelineEvents    int
	EarliestYear      *int
	LatestYear        *int
	Runs              int
}
