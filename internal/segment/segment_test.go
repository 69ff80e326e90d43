package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/TobiSchelling/histline/internal/timeline"
)

func TestTagFor(t *testing.T) {
	tests := []struct {
		pos  string
		want timeline.Tag
	}{
		{"nr", timeline.TagPerson},
		{"nrfg", timeline.TagPerson},
		{"ns", timeline.TagPlace},
		{"nt", timeline.TagOrganization},
		{"n", timeline.TagNoun},
		{"nz", timeline.TagNoun},
		{"v", timeline.TagOther},
		{"", timeline.TagOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TagFor(tt.pos), "pos %q", tt.pos)
	}
}

func TestNilSegmenterIsUnavailable(t *testing.T) {
	var s *Segmenter
	_, err := s.Segment("唐朝")
	assert.ErrorIs(t, err, timeline.ErrTokenizerUnavailable)
	_, err = s.SegmentWithTags("唐朝")
	assert.ErrorIs(t, err, timeline.ErrTokenizerUnavailable)
}

func TestSegmenterWithDictionary(t *testing.T) {
	if testing.Short() {
		t.Skip("loads the full dictionary")
	}
	s, err := New(zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)

	words, err := s.Segment("1949年中华人民共和国成立")
	require.NoError(t, err)
	assert.NotEmpty(t, words)
	assert.Contains(t, words, "成立")

	tagged, err := s.SegmentWithTags("北京是中国的首都")
	require.NoError(t, err)
	require.NotEmpty(t, tagged)
	for _, tok := range tagged {
		assert.NotEmpty(t, tok.Text)
	}

	var _ timeline.Tokenizer = s
}
