package timeline

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngineRequiresTokenizer(t *testing.T) {
	_, err := NewEngine(nil, nil)
	assert.ErrorIs(t, err, ErrTokenizerUnavailable)
}

func TestAnalyzeEmptyInput(t *testing.T) {
	engine := newTestEngine(t)

	for _, text := range []string{"", "   ", "\n\t"} {
		result, err := engine.Analyze(text, DefaultOptions())
		require.NoError(t, err)

		data, err := json.Marshal(result)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"time_expressions": [],
			"events": [],
			"timeline": {
				"timeline": [],
				"statistics": {
					"total_periods": 0,
					"total_events": 0,
					"event_distribution": {},
					"entity_distribution": [],
					"time_span": {}
				},
				"total_events": 0,
				"total_periods": 0
			},
			"summary": {"time_expressions_count": 0, "events_count": 0, "timeline_periods": 0}
		}`, string(data))
	}
}

func TestAnalyzeWithoutTimeMarkers(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Analyze("今天天气很好，我们去散步。", DefaultOptions())
	require.NoError(t, err)
	assert.Empty(t, result.TimeExpressions)
	assert.Empty(t, result.Events)
	assert.Empty(t, result.Timeline.Nodes)
	assert.Equal(t, 0, result.Summary.EventsCount)
}

func TestAnalyzeFoundingOfPRC(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Analyze("1949年10月1日，中华人民共和国成立。", Options{GroupBy: GroupByYear})
	require.NoError(t, err)

	require.Len(t, result.TimeExpressions, 2)
	require.Len(t, result.Events, 1)
	event := result.Events[0]
	require.NotNil(t, event.NormalizedYear)
	assert.Equal(t, 1949, *event.NormalizedYear)
	assert.Equal(t, PrecisionYear, event.TimePrecision)

	require.Len(t, result.Timeline.Nodes, 1)
	assert.Equal(t, "1949", result.Timeline.Nodes[0].Period)
	assert.Equal(t, Summary{TimeExpressionsCount: 2, EventsCount: 1, TimelinePeriods: 1}, result.Summary)
}

func TestAnalyzeGroupsByDynasty(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Analyze("明朝建立后迁都北京。清朝入关统一全国。", Options{GroupBy: GroupByDynasty})
	require.NoError(t, err)

	require.Len(t, result.Timeline.Nodes, 2)
	assert.Equal(t, "明朝", result.Timeline.Nodes[0].Period)
	assert.Equal(t, "清朝", result.Timeline.Nodes[1].Period)
	assert.Equal(t, 1368, result.Timeline.Nodes[0].SortKey)
	assert.Equal(t, 1644, result.Timeline.Nodes[1].SortKey)
}

func TestAnalyzeFoldsFullWidthDigits(t *testing.T) {
	engine := newTestEngine(t)

	result, err := engine.Analyze("１９４９年，中华人民共和国成立。", DefaultOptions())
	require.NoError(t, err)
	require.Len(t, result.TimeExpressions, 1)
	assert.Equal(t, 1949, *result.TimeExpressions[0].Year)
	assert.Equal(t, 0, result.TimeExpressions[0].Start)
	assert.Equal(t, 5, result.TimeExpressions[0].End)
}

func TestAnalyzeResultConsistency(t *testing.T) {
	engine := newTestEngine(t)
	texts := []string{
		"1644年李自成进入北京。1127年金兵南下。626年李世民在玄武门发动兵变。",
		"20世纪初期，社会变化很大。隋唐时期佛教兴盛。康熙年间，朝廷改革赋税。",
		"1556年关中发生地震。古代的人们在秋天收获粮食。1840年鸦片战争爆发。",
	}

	for _, text := range texts {
		result, err := engine.Analyze(text, Options{MinConfidence: 0.01})
		require.NoError(t, err)

		for i, e := range result.Events {
			assert.GreaterOrEqual(t, e.Confidence, 0.0)
			assert.LessOrEqual(t, e.Confidence, 1.0)
			assert.NotEmpty(t, e.TimeExpressions)
			if i > 0 {
				assert.LessOrEqual(t, sortKey(result.Events[i-1]), sortKey(e))
			}
		}
		for i := 1; i < len(result.Timeline.Nodes); i++ {
			assert.LessOrEqual(t, result.Timeline.Nodes[i-1].SortKey, result.Timeline.Nodes[i].SortKey)
		}
		assert.Equal(t, len(result.Events), result.Summary.EventsCount)
		assert.Equal(t, len(result.TimeExpressions), result.Summary.TimeExpressionsCount)
		assert.Equal(t, len(result.Timeline.Nodes), result.Summary.TimelinePeriods)
	}
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	engine := newTestEngine(t)
	text := "1644年李自成进入北京。清朝入关统一全国。626年李世民在玄武门发动兵变。"

	first, err := engine.Analyze(text, Options{GroupBy: GroupByDynasty})
	require.NoError(t, err)
	a, err := json.Marshal(first)
	require.NoError(t, err)

	second, err := engine.Analyze(text, Options{GroupBy: GroupByDynasty})
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)

	assert.Equal(t, string(a), string(b))
}

func TestAnalyzeConcurrent(t *testing.T) {
	engine := newTestEngine(t)
	text := "1949年10月1日，中华人民共和国成立。明朝建立后迁都北京。"

	want, err := engine.Analyze(text, DefaultOptions())
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]*Result, 8)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = engine.Analyze(text, DefaultOptions())
		}()
	}
	wg.Wait()

	for _, r := range results {
		assert.Equal(t, want, r)
	}
}

func TestAnalyzeRejectsInvalidOptions(t *testing.T) {
	engine := newTestEngine(t)

	_, err := engine.Analyze("1949年", Options{GroupBy: "decade"})
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = engine.Analyze("1949年", Options{MinConfidence: 1.5})
	assert.ErrorIs(t, err, ErrConfiguration)

	_, err = engine.Analyze("1949年", Options{MaxEvents: -1})
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestAnalyzeLogsProgress(t *testing.T) {
	engine, logs := newObservedEngine(t, newDictTokenizer(testWords))

	_, err := engine.Analyze("1949年10月1日，中华人民共和国成立。", DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessage("Starting timeline analysis").Len())
	done := logs.FilterMessage("Timeline analysis complete").All()
	require.Len(t, done, 1)
	assert.EqualValues(t, 1, done[0].ContextMap()["events"])
}

func TestAnalyzeAbortsOnUnavailableTokenizer(t *testing.T) {
	tok := newDictTokenizer(testWords)
	tok.failOn = "中华"
	tok.err = ErrTokenizerUnavailable
	engine, _ := newObservedEngine(t, tok)

	_, err := engine.Analyze("1949年，中华人民共和国成立。", DefaultOptions())
	assert.ErrorIs(t, err, ErrTokenizerUnavailable)
}

func TestOptionsNormalize(t *testing.T) {
	opts, err := Options{}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, Options{MinConfidence: 0, MaxEvents: DefaultMaxEvents, GroupBy: DefaultGroupBy, MaxEventsPerNode: DefaultMaxEventsPerNode}, opts)

	_, err = Options{MaxEventsPerNode: -3}.Normalize()
	assert.ErrorIs(t, err, ErrConfiguration)
}
