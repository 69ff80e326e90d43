package timeline

import (
	"fmt"
	"sort"
	"strconv"
)

const unknownPeriod = "未知时期"

// Aggregator buckets events into timeline nodes and computes statistics.
type Aggregator struct {
	periods *PeriodTable
}

// NewAggregator creates an aggregator that resolves dynasties against periods.
func NewAggregator(periods *PeriodTable) *Aggregator {
	return &Aggregator{periods: periods}
}

// Build groups events by opts.GroupBy. Events without a resolvable key stay
// out of the nodes but still count towards the statistics.
func (a *Aggregator) Build(events []Event, opts Options) (Timeline, error) {
	switch opts.GroupBy {
	case GroupByYear, GroupByCentury, GroupByDynasty:
	default:
		return Timeline{}, configErrorf("unknown group_by %q", opts.GroupBy)
	}

	var order []string
	groups := make(map[string][]Event)
	for _, e := range events {
		key, ok := a.groupKey(e, opts.GroupBy)
		if !ok {
			continue
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], e)
	}

	nodes := make([]TimelineNode, 0, len(order))
	for _, key := range order {
		nodes = append(nodes, newNode(key, groups[key], opts.MaxEventsPerNode))
	}
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].SortKey < nodes[j].SortKey })

	return Timeline{
		Nodes:        nodes,
		Statistics:   statistics(nodes, events),
		TotalEvents:  len(events),
		TotalPeriods: len(nodes),
	}, nil
}

func (a *Aggregator) groupKey(e Event, by GroupBy) (string, bool) {
	if e.NormalizedYear != nil {
		year := *e.NormalizedYear
		switch by {
		case GroupByYear:
			return strconv.Itoa(year), true
		case GroupByCentury:
			return centuryLabel(year), true
		case GroupByDynasty:
			if p, ok := a.periods.DynastyFor(year); ok {
				return p.Name, true
			}
			return unknownPeriod, true
		}
	}

	for _, expr := range e.TimeExpressions {
		if expr.Type == TypeDynasty && expr.Dynasty != "" {
			return expr.Dynasty, true
		}
	}
	return "", false
}

func centuryLabel(year int) string {
	if year > 0 {
		return fmt.Sprintf("%d世纪", (year-1)/100+1)
	}
	if year < 0 {
		year = -year
	}
	return fmt.Sprintf("公元前%d世纪", year/100+1)
}

func newNode(key string, events []Event, maxEvents int) TimelineNode {
	var years []int
	types := make(map[EventType]int)
	for _, e := range events {
		if e.NormalizedYear != nil {
			years = append(years, *e.NormalizedYear)
		}
		if e.YearRange != nil {
			years = append(years, e.YearRange[0], e.YearRange[1])
		}
		types[e.EventType]++
	}

	kept := events
	if maxEvents > 0 && len(kept) > maxEvents {
		kept = kept[:maxEvents]
	}
	nodeEvents := make([]Event, len(kept))
	copy(nodeEvents, kept)

	node := TimelineNode{
		Period:      key,
		EventCount:  len(events),
		Events:      nodeEvents,
		EventTypes:  types,
		TopEntities: topEntities(events, maxNodeEntities),
	}
	if len(years) > 0 {
		lo, hi := years[0], years[0]
		for _, y := range years[1:] {
			lo = min(lo, y)
			hi = max(hi, y)
		}
		node.TimeRange = TimeRange{Start: intPtr(lo), End: intPtr(hi)}
		node.SortKey = lo
	}
	return node
}

// topEntities ranks entity texts by frequency, first occurrence breaking ties.
func topEntities(events []Event, limit int) []EntityCount {
	var counts []EntityCount
	index := make(map[string]int)
	for _, e := range events {
		for _, ent := range e.Entities {
			if i, ok := index[ent.Text]; ok {
				counts[i].Count++
				continue
			}
			index[ent.Text] = len(counts)
			counts = append(counts, EntityCount{Name: ent.Text, Count: 1})
		}
	}

	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	if len(counts) > limit {
		counts = counts[:limit]
	}
	if counts == nil {
		counts = []EntityCount{}
	}
	return counts
}

func statistics(nodes []TimelineNode, events []Event) Statistics {
	dist := make(map[EventType]int)
	var earliest, latest *int
	for _, e := range events {
		dist[e.EventType]++
		if e.NormalizedYear == nil {
			continue
		}
		y := *e.NormalizedYear
		if earliest == nil || y < *earliest {
			earliest = intPtr(y)
		}
		if latest == nil || y > *latest {
			latest = intPtr(y)
		}
	}

	stats := Statistics{
		TotalPeriods:       len(nodes),
		TotalEvents:        len(events),
		EventDistribution:  dist,
		EntityDistribution: topEntities(events, maxGlobalEntities),
	}
	if earliest != nil {
		stats.TimeSpan = TimeSpan{
			Earliest:  earliest,
			Latest:    latest,
			SpanYears: intPtr(*latest - *earliest),
		}
	}
	return stats
}
