package timeline

import (
	"regexp"
	"sort"

	"github.com/cockroachdb/errors"
)

// Rule is one entry of the pattern catalog. Lower Priority values win when
// two rules match the exact same span.
type Rule struct {
	Type     ExprType
	Priority int
	re       *regexp.Regexp
}

// match is a raw rule hit in byte offsets, before parsing.
type match struct {
	rule   *Rule
	start  int
	end    int
	groups []string
}

// findAll returns every non-overlapping match of the rule in text.
func (r *Rule) findAll(text string) []match {
	locs := r.re.FindAllStringSubmatchIndex(text, -1)
	out := make([]match, 0, len(locs))
	for _, loc := range locs {
		m := match{rule: r, start: loc[0], end: loc[1]}
		for i := 2; i+1 < len(loc); i += 2 {
			if loc[i] < 0 {
				m.groups = append(m.groups, "")
				continue
			}
			m.groups = append(m.groups, text[loc[i]:loc[i+1]])
		}
		out = append(out, m)
	}
	return out
}

// PatternCatalog holds the rules ordered by ascending priority, declaration
// order breaking ties.
type PatternCatalog struct {
	rules []*Rule
}

// RuleSpec declares a rule before compilation. The pattern must capture at
// least one group; the first group names the value the rule type resolves.
type RuleSpec struct {
	Pattern  string
	Type     ExprType
	Priority int
}

var defaultRules = []RuleSpec{
	{`(\d{1,4})年`, TypeYear, 1},
	{`(春秋|战国|秦|汉|唐|宋|元|明|清)(?:朝)?(?:代)?`, TypeDynasty, 2},
	{`(康熙|乾隆|雍正|嘉靖|万历|光绪|宣统|贞观|开元|天宝)(?:年间|时期|朝|代)?`, TypeEmperorEra, 2},
	{`(?:第)?(\d{1,2})世纪`, TypeCentury, 2},
	{`(古代|近代|现代|当代|上古|中古|近世)`, TypeRelativePeriod, 3},
	{`(\d{1,2})月(\d{1,2})日`, TypeMonthDay, 1},
	{`(春|夏|秋|冬)(?:季|天)`, TypeSeason, 3},
	{`(春秋战国|魏晋南北朝|隋唐|宋元|明清|民国|新中国)(?:时期|时代)?`, TypeHistoricalPeriod, 2},
}

// NewPatternCatalog compiles specs into a catalog.
func NewPatternCatalog(specs []RuleSpec) (*PatternCatalog, error) {
	rules := make([]*Rule, 0, len(specs))
	for _, s := range specs {
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "compiling %s rule", s.Type)
		}
		if re.NumSubexp() < 1 {
			return nil, errors.Newf("%s rule %q has no capture group", s.Type, s.Pattern)
		}
		rules = append(rules, &Rule{Type: s.Type, Priority: s.Priority, re: re})
	}
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Priority < rules[j].Priority })
	return &PatternCatalog{rules: rules}, nil
}

// DefaultPatternCatalog compiles the built-in Chinese time expression rules.
func DefaultPatternCatalog() *PatternCatalog {
	c, err := NewPatternCatalog(defaultRules)
	if err != nil {
		panic(err)
	}
	return c
}

// Rules returns the rules in evaluation order.
func (c *PatternCatalog) Rules() []*Rule {
	out := make([]*Rule, len(c.rules))
	copy(out, c.rules)
	return out
}
