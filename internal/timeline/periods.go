package timeline

// PeriodKind distinguishes what a period table entry names.
type PeriodKind string

const (
	KindDynasty PeriodKind = "dynasty"
	KindPeriod  PeriodKind = "period"
	KindEra     PeriodKind = "era"
)

// Period is a named historical span. Years before the common era are negative.
type Period struct {
	Name        string
	Kind        PeriodKind
	Start       int
	End         int
	Description string
}

// Contains reports whether year falls within [Start, End].
func (p Period) Contains(year int) bool {
	return p.Start <= year && year <= p.End
}

// PeriodTable is an immutable lookup of named periods, kept in declaration order.
type PeriodTable struct {
	entries []Period
	byName  map[string]int
}

var defaultPeriods = []Period{
	{"夏朝", KindDynasty, -2070, -1600, "中国第一个世袭制王朝"},
	{"商朝", KindDynasty, -1600, -1046, "青铜文明鼎盛时期"},
	{"周朝", KindDynasty, -1046, -256, "中国历史上最长的朝代"},
	{"春秋", KindDynasty, -770, -476, "春秋时期"},
	{"战国", KindDynasty, -475, -221, "战国时期"},
	{"秦朝", KindDynasty, -221, -206, "中国第一个统一的封建王朝"},
	{"汉朝", KindDynasty, -206, 220, "西汉和东汉"},
	{"三国", KindDynasty, 220, 280, "魏蜀吴三国鼎立"},
	{"晋朝", KindDynasty, 265, 420, "西晋和东晋"},
	{"南北朝", KindDynasty, 420, 589, "南北朝对峙时期"},
	{"隋朝", KindDynasty, 581, 618, "短暂的统一王朝"},
	{"唐朝", KindDynasty, 618, 907, "盛唐时期"},
	{"宋朝", KindDynasty, 960, 1279, "北宋和南宋"},
	{"元朝", KindDynasty, 1271, 1368, "蒙古族建立的王朝"},
	{"明朝", KindDynasty, 1368, 1644, "汉族复兴的王朝"},
	{"清朝", KindDynasty, 1644, 1912, "中国最后一个封建王朝"},
	{"民国", KindDynasty, 1912, 1949, "中华民国时期"},
	{"新中国", KindDynasty, 1949, 2024, "中华人民共和国"},

	{"春秋战国", KindPeriod, -770, -221, "春秋与战国时期"},
	{"魏晋南北朝", KindPeriod, 220, 589, "三国至南北朝的分裂时期"},
	{"隋唐", KindPeriod, 581, 907, "隋朝与唐朝"},
	{"宋元", KindPeriod, 960, 1368, "宋朝与元朝"},
	{"明清", KindPeriod, 1368, 1912, "明朝与清朝"},

	{"贞观", KindEra, 627, 649, "唐太宗年号"},
	{"开元", KindEra, 713, 741, "唐玄宗年号"},
	{"天宝", KindEra, 742, 756, "唐玄宗年号"},
	{"嘉靖", KindEra, 1522, 1566, "明世宗年号"},
	{"万历", KindEra, 1573, 1620, "明神宗年号"},
	{"康熙", KindEra, 1662, 1722, "清圣祖年号"},
	{"雍正", KindEra, 1723, 1735, "清世宗年号"},
	{"乾隆", KindEra, 1736, 1795, "清高宗年号"},
	{"光绪", KindEra, 1875, 1908, "清德宗年号"},
	{"宣统", KindEra, 1909, 1912, "清逊帝年号"},
}

// NewPeriodTable builds a table from entries. Later duplicates of a name are ignored.
func NewPeriodTable(entries []Period) *PeriodTable {
	t := &PeriodTable{byName: make(map[string]int, len(entries))}
	for _, p := range entries {
		if _, dup := t.byName[p.Name]; dup {
			continue
		}
		t.byName[p.Name] = len(t.entries)
		t.entries = append(t.entries, p)
	}
	return t
}

// DefaultPeriodTable returns the built-in table of Chinese dynasties, periods and reign eras.
func DefaultPeriodTable() *PeriodTable {
	return NewPeriodTable(defaultPeriods)
}

// Lookup resolves a name. A bare dynasty character such as 唐 also matches 唐朝.
func (t *PeriodTable) Lookup(name string) (Period, bool) {
	if i, ok := t.byName[name]; ok {
		return t.entries[i], true
	}
	if i, ok := t.byName[name+"朝"]; ok {
		return t.entries[i], true
	}
	return Period{}, false
}

// DynastyFor returns the dynasty containing year. When several overlap, the one
// that began most recently wins, so 1644 resolves to 清朝 rather than 明朝.
func (t *PeriodTable) DynastyFor(year int) (Period, bool) {
	var best Period
	found := false
	for _, p := range t.entries {
		if p.Kind != KindDynasty || !p.Contains(year) {
			continue
		}
		if !found || p.Start > best.Start {
			best = p
			found = true
		}
	}
	return best, found
}

// Entries returns a copy of the table in declaration order.
func (t *PeriodTable) Entries() []Period {
	out := make([]Period, len(t.entries))
	copy(out, t.entries)
	return out
}
