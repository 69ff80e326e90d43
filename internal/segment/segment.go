// Package segment adapts the gse Chinese word segmenter to timeline.Tokenizer.
package segment

import (
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/go-ego/gse"
	"go.uber.org/zap"

	"github.com/TobiSchelling/histline/internal/timeline"
)

// Segmenter is a timeline.Tokenizer backed by gse. It is read-only after
// construction and safe for concurrent use.
type Segmenter struct {
	seg    *gse.Segmenter
	logger *zap.SugaredLogger
}

// New loads the embedded gse dictionary, or the given dictionary files
// instead when any are passed.
func New(logger *zap.SugaredLogger, dictFiles ...string) (*Segmenter, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	var (
		seg gse.Segmenter
		err error
	)
	if len(dictFiles) > 0 {
		seg, err = gse.New(strings.Join(dictFiles, ","))
	} else {
		seg, err = gse.New()
	}
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "loading segmenter dictionary %v", dictFiles), timeline.ErrTokenizerUnavailable)
	}

	logger.Infow("Segmenter ready", "dictionaries", len(dictFiles))
	return &Segmenter{seg: &seg, logger: logger}, nil
}

// Segment splits text into words.
func (s *Segmenter) Segment(text string) ([]string, error) {
	if s == nil || s.seg == nil {
		return nil, errors.WithStack(timeline.ErrTokenizerUnavailable)
	}
	words := s.seg.Cut(text, true)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	return out, nil
}

// SegmentWithTags splits text into words with their part-of-speech class.
func (s *Segmenter) SegmentWithTags(text string) ([]timeline.TaggedToken, error) {
	if s == nil || s.seg == nil {
		return nil, errors.WithStack(timeline.ErrTokenizerUnavailable)
	}
	tagged := s.seg.Pos(text, false)
	out := make([]timeline.TaggedToken, 0, len(tagged))
	for _, p := range tagged {
		word := strings.TrimSpace(p.Text)
		if word == "" {
			continue
		}
		out = append(out, timeline.TaggedToken{Text: word, Tag: TagFor(p.Pos), POS: p.Pos})
	}
	return out, nil
}

// TagFor maps an ICTCLAS-style tag to a timeline tag. Names (nr), places (ns)
// and organisations (nt) map directly; other noun tags count as nouns.
func TagFor(pos string) timeline.Tag {
	switch {
	case strings.HasPrefix(pos, "nr"):
		return timeline.TagPerson
	case strings.HasPrefix(pos, "ns"):
		return timeline.TagPlace
	case strings.HasPrefix(pos, "nt"):
		return timeline.TagOrganization
	case pos == "n" || pos == "nz" || pos == "ng":
		return timeline.TagNoun
	default:
		return timeline.TagOther
	}
}
