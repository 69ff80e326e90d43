package timeline

// GroupBy selects how events are bucketed into timeline nodes.
type GroupBy string

const (
	GroupByYear    GroupBy = "year"
	GroupByCentury GroupBy = "century"
	GroupByDynasty GroupBy = "dynasty"
)

const (
	DefaultMinConfidence    = 0.3
	DefaultMaxEvents        = 50
	DefaultMaxEventsPerNode = 10
	DefaultGroupBy          = GroupByCentury

	maxKeywords       = 10
	maxNodeEntities   = 10
	maxGlobalEntities = 20
)

// Options controls event filtering and timeline grouping.
type Options struct {
	MinConfidence    float64 `yaml:"min_confidence" json:"min_confidence"`
	MaxEvents        int     `yaml:"max_events" json:"max_events"`
	GroupBy          GroupBy `yaml:"group_by" json:"group_by"`
	MaxEventsPerNode int     `yaml:"max_events_per_node" json:"max_events_per_node"`
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		MinConfidence:    DefaultMinConfidence,
		MaxEvents:        DefaultMaxEvents,
		GroupBy:          DefaultGroupBy,
		MaxEventsPerNode: DefaultMaxEventsPerNode,
	}
}

// Normalize fills zero-valued limits with defaults and validates the result.
// MinConfidence is taken as given, so zero disables confidence filtering.
func (o Options) Normalize() (Options, error) {
	if o.GroupBy == "" {
		o.GroupBy = DefaultGroupBy
	}
	if o.MaxEvents == 0 {
		o.MaxEvents = DefaultMaxEvents
	}
	if o.MaxEventsPerNode == 0 {
		o.MaxEventsPerNode = DefaultMaxEventsPerNode
	}

	switch o.GroupBy {
	case GroupByYear, GroupByCentury, GroupByDynasty:
	default:
		return o, configErrorf("unknown group_by %q", o.GroupBy)
	}
	if o.MinConfidence < 0 || o.MinConfidence > 1 {
		return o, configErrorf("min_confidence %v out of range", o.MinConfidence)
	}
	if o.MaxEvents < 0 {
		return o, configErrorf("max_events must be positive, got %d", o.MaxEvents)
	}
	if o.MaxEventsPerNode < 0 {
		return o, configErrorf("max_events_per_node must be positive, got %d", o.MaxEventsPerNode)
	}
	return o, nil
}
