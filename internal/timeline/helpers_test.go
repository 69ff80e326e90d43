package timeline

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// dictTokenizer segments by forward maximum matching against a fixed
// dictionary. Unknown runes become single-character tokens tagged other.
type dictTokenizer struct {
	words  map[string]Tag
	maxLen int
	// failOn makes any sentence containing the substring fail with err.
	failOn string
	err    error
}

func newDictTokenizer(words map[string]Tag) *dictTokenizer {
	d := &dictTokenizer{words: words}
	for w := range words {
		d.maxLen = max(d.maxLen, utf8.RuneCountInString(w))
	}
	return d
}

func (d *dictTokenizer) Segment(text string) ([]string, error) {
	tagged, err := d.SegmentWithTags(text)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(tagged))
	for i, t := range tagged {
		out[i] = t.Text
	}
	return out, nil
}

func (d *dictTokenizer) SegmentWithTags(text string) ([]TaggedToken, error) {
	if d.failOn != "" && strings.Contains(text, d.failOn) {
		return nil, d.err
	}
	rs := []rune(text)
	var out []TaggedToken
	for i := 0; i < len(rs); {
		n := min(d.maxLen, len(rs)-i)
		for ; n > 1; n-- {
			if _, ok := d.words[string(rs[i:i+n])]; ok {
				break
			}
		}
		if n < 1 {
			n = 1
		}
		w := string(rs[i : i+n])
		tag, ok := d.words[w]
		if !ok {
			tag = TagOther
		}
		out = append(out, TaggedToken{Text: w, Tag: tag, POS: string(tag)})
		i += n
	}
	return out, nil
}

var testWords = map[string]Tag{
	"中华人民共和国": TagPlace,
	"成立":      TagOther,
	"建立":      TagOther,
	"迁都":      TagOther,
	"北京":      TagPlace,
	"入关":      TagOther,
	"统一":      TagOther,
	"全国":      TagNoun,
	"起义":      TagOther,
	"农民起义":    TagOther,
	"战争":      TagOther,
	"爆发":      TagOther,
	"发动":      TagOther,
	"兵变":      TagOther,
	"李世民":     TagPerson,
	"玄武门":     TagPlace,
	"发明":      TagOther,
	"印刷术":     TagNoun,
	"活字":      TagNoun,
	"朝廷":      TagOrganization,
	"地震":      TagOther,
	"京城":      TagPlace,
	"改革":      TagOther,
	"变法":      TagOther,
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(newDictTokenizer(testWords), zap.NewNop().Sugar())
	require.NoError(t, err)
	return engine
}

func newObservedEngine(t *testing.T, tok Tokenizer) (*Engine, *observer.ObservedLogs) {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	engine, err := NewEngine(tok, zap.New(core).Sugar())
	require.NoError(t, err)
	return engine, logs
}

var errBackendDown = errors.New("backend down")
