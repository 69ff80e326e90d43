package timeline

import (
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// Extractor finds time expressions in text using a pattern catalog and
// resolves named periods against a period table.
type Extractor struct {
	periods *PeriodTable
	catalog *PatternCatalog
	logger  *zap.SugaredLogger
}

// NewExtractor creates an extractor. A nil logger discards warnings.
func NewExtractor(periods *PeriodTable, catalog *PatternCatalog, logger *zap.SugaredLogger) *Extractor {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Extractor{periods: periods, catalog: catalog, logger: logger}
}

// Extract returns the deduplicated time expressions of text sorted by start offset.
func (x *Extractor) Extract(text string) []TimeExpression {
	exprs := []TimeExpression{}
	if strings.TrimSpace(text) == "" {
		return exprs
	}

	offsets := runeOffsets(text)
	skipped := 0
	for _, rule := range x.catalog.rules {
		for _, m := range rule.findAll(text) {
			expr, err := x.parse(text, m, offsets)
			if err != nil {
				skipped++
				x.logger.Warnw("Skipping time expression", "type", string(m.rule.Type), "text", text[m.start:m.end], "error", err)
				continue
			}
			exprs = append(exprs, expr)
		}
	}

	exprs = dedupeBySpan(exprs)
	if skipped > 0 {
		x.logger.Infow("Time expression extraction finished", "kept", len(exprs), "skipped", skipped)
	}
	return exprs
}

func (x *Extractor) parse(text string, m match, offsets []int) (TimeExpression, error) {
	e := TimeExpression{
		Text:      text[m.start:m.end],
		Type:      m.rule.Type,
		Start:     offsets[m.start],
		End:       offsets[m.end],
		Groups:    m.groups,
		Priority:  m.rule.Priority,
		Precision: PrecisionUnknown,
	}
	fail := func(reason string) (TimeExpression, error) {
		return TimeExpression{}, &ParseError{Text: e.Text, Type: e.Type, Reason: reason}
	}
	if len(m.groups) == 0 {
		return fail("no captured groups")
	}

	switch m.rule.Type {
	case TypeYear:
		year, err := strconv.Atoi(m.groups[0])
		if err != nil {
			return fail(err.Error())
		}
		e.Year = intPtr(year)
		e.Precision = PrecisionYear

	case TypeDynasty, TypeHistoricalPeriod, TypeEmperorEra:
		p, ok := x.periods.Lookup(m.groups[0])
		if !ok {
			return fail("unknown period " + strconv.Quote(m.groups[0]))
		}
		e.StartYear = intPtr(p.Start)
		e.EndYear = intPtr(p.End)
		e.Description = p.Description
		switch m.rule.Type {
		case TypeDynasty:
			e.Dynasty = p.Name
			e.Precision = PrecisionDynasty
		case TypeHistoricalPeriod:
			e.Period = p.Name
			e.Precision = PrecisionPeriod
		default:
			e.Era = p.Name
			e.Precision = PrecisionPeriod
		}

	case TypeCentury:
		century, err := strconv.Atoi(m.groups[0])
		if err != nil {
			return fail(err.Error())
		}
		if century < 1 {
			return fail("century must be positive")
		}
		e.Century = intPtr(century)
		e.StartYear = intPtr((century-1)*100 + 1)
		e.EndYear = intPtr(century * 100)
		e.Precision = PrecisionCentury

	case TypeMonthDay:
		if len(m.groups) < 2 {
			return fail("missing day")
		}
		month, err := strconv.Atoi(m.groups[0])
		if err != nil {
			return fail(err.Error())
		}
		day, err := strconv.Atoi(m.groups[1])
		if err != nil {
			return fail(err.Error())
		}
		if month < 1 || month > 12 {
			return fail("month out of range")
		}
		if day < 1 || day > 31 {
			return fail("day out of range")
		}
		e.Month = intPtr(month)
		e.Day = intPtr(day)
		e.Precision = PrecisionDay

	case TypeRelativePeriod:
		e.Period = m.groups[0]
		e.Precision = PrecisionRelativePeriod

	case TypeSeason:
		e.Season = m.groups[0]
	}

	return e, nil
}

// dedupeBySpan keeps one expression per (Start, End), preferring the lowest
// priority value. Input order breaks ties between equal priorities.
func dedupeBySpan(exprs []TimeExpression) []TimeExpression {
	sort.SliceStable(exprs, func(i, j int) bool {
		if exprs[i].Start != exprs[j].Start {
			return exprs[i].Start < exprs[j].Start
		}
		return exprs[i].Priority < exprs[j].Priority
	})

	type span struct{ start, end int }
	seen := make(map[span]struct{}, len(exprs))
	out := exprs[:0]
	for _, e := range exprs {
		key := span{e.Start, e.End}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, e)
	}
	return out
}

// runeOffsets maps every byte offset of text to the number of runes before it.
func runeOffsets(text string) []int {
	offsets := make([]int, len(text)+1)
	n := 0
	for i := 0; i < len(text); {
		_, size := utf8.DecodeRuneInString(text[i:])
		for j := 0; j < size; j++ {
			offsets[i+j] = n
		}
		i += size
		n++
	}
	offsets[len(text)] = n
	return offsets
}
