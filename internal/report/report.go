// Package report renders timeline analyses as Markdown.
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/TobiSchelling/histline/internal/timeline"
)

// Markdown renders a result as a Markdown document: a summary followed by one
// section per timeline node, separated by rules.
func Markdown(title string, result *timeline.Result) string {
	var b strings.Builder
	if title == "" {
		title = "Timeline"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	b.WriteString(Summary(result))

	if result == nil || len(result.Timeline.Nodes) == 0 {
		b.WriteString("\n\nNo dated events found.\n")
		return b.String()
	}

	sections := make([]string, 0, len(result.Timeline.Nodes))
	for _, node := range result.Timeline.Nodes {
		sections = append(sections, nodeSection(node))
	}
	b.WriteString("\n\n")
	b.WriteString(strings.Join(sections, "\n\n---\n\n"))
	b.WriteString("\n")
	return b.String()
}

// Summary renders the bullet list that opens a report.
func Summary(result *timeline.Result) string {
	if result == nil {
		return "- No analysis available."
	}
	s := result.Summary
	bullets := []string{
		fmt.Sprintf("- %d time expressions, %d events, %d periods", s.TimeExpressionsCount, s.EventsCount, s.TimelinePeriods),
	}

	span := result.Timeline.Statistics.TimeSpan
	if span.Earliest != nil && span.Latest != nil {
		bullets = append(bullets, fmt.Sprintf("- Spans %s to %s (%d years)",
			FormatYear(*span.Earliest), FormatYear(*span.Latest), *span.SpanYears))
	}
	if dist := formatCounts(result.Timeline.Statistics.EventDistribution); dist != "" {
		bullets = append(bullets, "- Event types: "+dist)
	}
	if ents := formatEntities(result.Timeline.Statistics.EntityDistribution, 5); ents != "" {
		bullets = append(bullets, "- Key entities: "+ents)
	}
	return strings.Join(bullets, "\n")
}

func nodeSection(node timeline.TimelineNode) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", node.Period)

	if node.TimeRange.Start != nil && node.TimeRange.End != nil {
		if *node.TimeRange.Start == *node.TimeRange.End {
			fmt.Fprintf(&b, "*%s*", FormatYear(*node.TimeRange.Start))
		} else {
			fmt.Fprintf(&b, "*%s – %s*", FormatYear(*node.TimeRange.Start), FormatYear(*node.TimeRange.End))
		}
		fmt.Fprintf(&b, " · %d events\n\n", node.EventCount)
	} else {
		fmt.Fprintf(&b, "%d events\n\n", node.EventCount)
	}

	if types := formatCounts(node.EventTypes); types != "" {
		fmt.Fprintf(&b, "**Types:** %s\n\n", types)
	}
	if ents := formatEntities(node.TopEntities, 5); ents != "" {
		fmt.Fprintf(&b, "**Entities:** %s\n\n", ents)
	}

	for _, e := range node.Events {
		when := ""
		if e.PrimaryTime != nil {
			when = fmt.Sprintf("**%s** ", e.PrimaryTime.Text)
		}
		fmt.Fprintf(&b, "- %s%s _(%s, %.2f)_\n", when, e.Sentence, e.EventType, e.Confidence)
	}
	if hidden := node.EventCount - len(node.Events); hidden > 0 {
		fmt.Fprintf(&b, "- _…and %d more_\n", hidden)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatYear renders astronomical-style years, negative years as BCE.
func FormatYear(year int) string {
	if year < 0 {
		return fmt.Sprintf("%d BCE", -year)
	}
	return fmt.Sprintf("%d", year)
}

// formatCounts lists event types by descending count, ties by name.
func formatCounts(counts map[timeline.EventType]int) string {
	type kv struct {
		t timeline.EventType
		n int
	}
	var list []kv
	for t, n := range counts {
		list = append(list, kv{t, n})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].n != list[j].n {
			return list[i].n > list[j].n
		}
		return list[i].t < list[j].t
	})
	parts := make([]string, len(list))
	for i, e := range list {
		parts[i] = fmt.Sprintf("%s %d", e.t, e.n)
	}
	return strings.Join(parts, ", ")
}

func formatEntities(ents []timeline.EntityCount, limit int) string {
	if len(ents) > limit {
		ents = ents[:limit]
	}
	parts := make([]string, len(ents))
	for i, e := range ents {
		parts[i] = fmt.Sprintf("%s (%d)", e.Name, e.Count)
	}
	return strings.Join(parts, ", ")
}
