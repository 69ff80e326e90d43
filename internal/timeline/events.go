package timeline

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
)

var sentenceBoundary = regexp.MustCompile(`[。！？；!?;\n]+`)

var stopWords = map[string]struct{}{
	"的": {}, "了": {}, "在": {}, "是": {}, "有": {}, "和": {},
	"就": {}, "不": {}, "人": {}, "都": {}, "一": {},
}

// EventBuilder turns sentences carrying time expressions into events.
type EventBuilder struct {
	classifier *Classifier
	tokenizer  Tokenizer
	logger     *zap.SugaredLogger
}

// NewEventBuilder creates an event builder. A nil logger discards warnings.
func NewEventBuilder(classifier *Classifier, tokenizer Tokenizer, logger *zap.SugaredLogger) *EventBuilder {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &EventBuilder{classifier: classifier, tokenizer: tokenizer, logger: logger}
}

// SplitSentences splits text on sentence-final punctuation and newlines,
// dropping empty sentences.
func SplitSentences(text string) []string {
	var out []string
	for _, s := range sentenceBoundary.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Build extracts events from text. Sentences are associated with every
// expression whose literal text they contain.
func (b *EventBuilder) Build(text string, exprs []TimeExpression, opts Options) ([]Event, error) {
	events := []Event{}
	if strings.TrimSpace(text) == "" || len(exprs) == 0 {
		return events, nil
	}
	if b.tokenizer == nil {
		return nil, errors.WithStack(ErrTokenizerUnavailable)
	}

	for i, sentence := range SplitSentences(text) {
		var matched []TimeExpression
		for _, e := range exprs {
			if strings.Contains(sentence, e.Text) {
				matched = append(matched, e)
			}
		}
		if len(matched) == 0 {
			continue
		}

		event, err := b.buildEvent(sentence, i, matched)
		if err != nil {
			if errors.Is(err, ErrTokenizerUnavailable) {
				return nil, err
			}
			b.logger.Warnw("Skipping sentence", "sentence_index", i, "error", err)
			continue
		}
		events = append(events, event)
	}

	return postProcess(events, opts), nil
}

func (b *EventBuilder) buildEvent(sentence string, index int, exprs []TimeExpression) (Event, error) {
	words, err := b.tokenizer.Segment(sentence)
	if err != nil {
		return Event{}, errors.Wrap(err, "segmenting sentence")
	}
	tagged, err := b.tokenizer.SegmentWithTags(sentence)
	if err != nil {
		return Event{}, errors.Wrap(err, "tagging sentence")
	}

	eventType := b.classifier.Classify(words)
	event := Event{
		Sentence:        sentence,
		SentenceIndex:   index,
		TimeExpressions: exprs,
		EventType:       eventType,
		Entities:        b.classifier.Entities(tagged),
		Keywords:        eventKeywords(words),
		Confidence:      confidence(sentence, len(exprs), eventType),
		TimePrecision:   PrecisionUnknown,
	}
	normalizeTime(&event)
	return event, nil
}

func eventKeywords(words []string) []string {
	keywords := []string{}
	for _, w := range words {
		if len(keywords) == maxKeywords {
			break
		}
		if utf8.RuneCountInString(w) < 2 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		keywords = append(keywords, w)
	}
	return keywords
}

func confidence(sentence string, exprCount int, eventType EventType) float64 {
	c := 0.3 + math.Min(0.2*float64(exprCount), 0.4)
	if n := utf8.RuneCountInString(sentence); n >= 10 && n <= 100 {
		c += 0.2
	}
	if eventType != EventOther {
		c += 0.1
	}
	c = math.Max(0, math.Min(c, 1))
	return math.Round(c*100) / 100
}

// normalizeTime picks the most precise expression as the event's primary
// time. The earliest expression wins among equal ranks.
func normalizeTime(event *Event) {
	var best *TimeExpression
	for i := range event.TimeExpressions {
		e := &event.TimeExpressions[i]
		if best == nil || e.Precision.Rank() > best.Precision.Rank() ||
			(e.Precision.Rank() == best.Precision.Rank() && e.Start < best.Start) {
			best = e
		}
	}
	if best == nil {
		return
	}

	primary := *best
	event.PrimaryTime = &primary
	event.TimePrecision = primary.Precision
	switch {
	case primary.Year != nil:
		event.NormalizedYear = intPtr(*primary.Year)
	case primary.StartYear != nil:
		event.NormalizedYear = intPtr(*primary.StartYear)
		if primary.EndYear != nil {
			event.YearRange = &[2]int{*primary.StartYear, *primary.EndYear}
		}
	}
}

// sortKey is the value events are ordered by: the normalized year, else the
// first expression's offset, else the sentence index.
func sortKey(e Event) int {
	if e.NormalizedYear != nil {
		return *e.NormalizedYear
	}
	if len(e.TimeExpressions) > 0 {
		return e.TimeExpressions[0].Start
	}
	return e.SentenceIndex
}

func postProcess(events []Event, opts Options) []Event {
	kept := events[:0]
	for _, e := range events {
		if e.Confidence >= opts.MinConfidence {
			kept = append(kept, e)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool { return sortKey(kept[i]) < sortKey(kept[j]) })

	if opts.MaxEvents > 0 && len(kept) > opts.MaxEvents {
		kept = kept[:opts.MaxEvents]
	}
	return kept
}
