package timeline

// ExprType classifies a time expression by the rule that matched it.
type ExprType string

const (
	TypeYear             ExprType = "year"
	TypeDynasty          ExprType = "dynasty"
	TypeEmperorEra       ExprType = "emperor_era"
	TypeCentury          ExprType = "century"
	TypeRelativePeriod   ExprType = "relative_period"
	TypeMonthDay         ExprType = "month_day"
	TypeSeason           ExprType = "season"
	TypeHistoricalPeriod ExprType = "historical_period"
)

// Precision is the granularity of a resolved time expression.
type Precision string

const (
	PrecisionYear           Precision = "year"
	PrecisionDay            Precision = "day"
	PrecisionDynasty        Precision = "dynasty"
	PrecisionCentury        Precision = "century"
	PrecisionPeriod         Precision = "period"
	PrecisionRelativePeriod Precision = "relative_period"
	PrecisionUnknown        Precision = "unknown"
)

// Rank orders precisions when picking the representative time of an event.
func (p Precision) Rank() int {
	switch p {
	case PrecisionYear:
		return 4
	case PrecisionDay:
		return 3
	case PrecisionDynasty, PrecisionCentury:
		return 2
	case PrecisionPeriod:
		return 1
	case PrecisionRelativePeriod:
		return 0
	default:
		return -1
	}
}

// TimeExpression is a matched span of text that refers to a point or range in time.
// Start and End are rune offsets, End exclusive.
type TimeExpression struct {
	Text        string    `json:"text"`
	Type        ExprType  `json:"type"`
	Start       int       `json:"start"`
	End         int       `json:"end"`
	Groups      []string  `json:"groups"`
	Priority    int       `json:"priority"`
	Precision   Precision `json:"precision"`
	Year        *int      `json:"year,omitempty"`
	StartYear   *int      `json:"start_year,omitempty"`
	EndYear     *int      `json:"end_year,omitempty"`
	Month       *int      `json:"month,omitempty"`
	Day         *int      `json:"day,omitempty"`
	Century     *int      `json:"century,omitempty"`
	Dynasty     string    `json:"dynasty,omitempty"`
	Period      string    `json:"period,omitempty"`
	Era         string    `json:"era,omitempty"`
	Season      string    `json:"season,omitempty"`
	Description string    `json:"description,omitempty"`
}

// EventType is the category an event is classified into.
type EventType string

const (
	EventWar      EventType = "war"
	EventPolitics EventType = "politics"
	EventCulture  EventType = "culture"
	EventEconomy  EventType = "economy"
	EventSociety  EventType = "society"
	EventNature   EventType = "nature"
	EventOther    EventType = "other"
)

// EntityCategory is the kind of a named entity found in an event sentence.
type EntityCategory string

const (
	EntityPerson       EntityCategory = "person"
	EntityPlace        EntityCategory = "place"
	EntityOrganization EntityCategory = "organization"
	EntityConcept      EntityCategory = "concept"
)

type Entity struct {
	Text     string         `json:"text"`
	Category EntityCategory `json:"category"`
	POS      string         `json:"pos,omitempty"`
}

// Event is a sentence that carries at least one time expression.
type Event struct {
	Sentence        string           `json:"sentence"`
	SentenceIndex   int              `json:"sentence_index"`
	TimeExpressions []TimeExpression `json:"time_expressions"`
	EventType       EventType        `json:"event_type"`
	Entities        []Entity         `json:"entities"`
	Keywords        []string         `json:"keywords"`
	Confidence      float64          `json:"confidence"`
	NormalizedYear  *int             `json:"normalized_year,omitempty"`
	YearRange       *[2]int          `json:"year_range,omitempty"`
	TimePrecision   Precision        `json:"time_precision"`
	PrimaryTime     *TimeExpression  `json:"primary_time,omitempty"`
}

type EntityCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type TimeRange struct {
	Start *int `json:"start"`
	End   *int `json:"end"`
}

// TimelineNode aggregates the events that share a grouping key.
type TimelineNode struct {
	Period      string            `json:"period"`
	EventCount  int               `json:"event_count"`
	Events      []Event           `json:"events"`
	EventTypes  map[EventType]int `json:"event_types"`
	TopEntities []EntityCount     `json:"top_entities"`
	TimeRange   TimeRange         `json:"time_range"`
	SortKey     int               `json:"sort_key"`
}

type TimeSpan struct {
	Earliest  *int `json:"earliest,omitempty"`
	Latest    *int `json:"latest,omitempty"`
	SpanYears *int `json:"span_years,omitempty"`
}

type Statistics struct {
	TotalPeriods       int               `json:"total_periods"`
	TotalEvents        int               `json:"total_events"`
	EventDistribution  map[EventType]int `json:"event_distribution"`
	EntityDistribution []EntityCount     `json:"entity_distribution"`
	TimeSpan           TimeSpan          `json:"time_span"`
}

// Timeline is the sorted, bucketed view over a set of events.
type Timeline struct {
	Nodes        []TimelineNode `json:"timeline"`
	Statistics   Statistics     `json:"statistics"`
	TotalEvents  int            `json:"total_events"`
	TotalPeriods int            `json:"total_periods"`
}

type Summary struct {
	TimeExpressionsCount int `json:"time_expressions_count"`
	EventsCount          int `json:"events_count"`
	TimelinePeriods      int `json:"timeline_periods"`
}

// Result is the envelope returned by Engine.Analyze.
type Result struct {
	TimeExpressions []TimeExpression `json:"time_expressions"`
	Events          []Event          `json:"events"`
	Timeline        Timeline         `json:"timeline"`
	Summary         Summary          `json:"summary"`
}

func intPtr(v int) *int { return &v }
