package timeline

// KeywordCategory is one event category and the words that signal it.
type KeywordCategory struct {
	Type     EventType
	Keywords []string
}

// KeywordIndex maps event categories to keyword sets. Categories keep their
// declaration order, which breaks classification ties.
type KeywordIndex struct {
	categories []KeywordCategory
	sets       []map[string]struct{}
}

var defaultKeywords = []KeywordCategory{
	{EventWar, []string{
		"战争", "战役", "战斗", "征战", "攻打", "围攻", "进攻", "防守", "抵抗",
		"起义", "叛乱", "革命", "政变", "兵变", "民变", "农民起义",
	}},
	{EventPolitics, []string{
		"建立", "统一", "分裂", "灭亡", "覆灭", "建国", "立国", "称帝", "登基",
		"退位", "禅让", "篡位", "政变", "改革", "变法", "新政", "政策",
	}},
	{EventCulture, []string{
		"发明", "创造", "著作", "编写", "撰写", "创作", "发现", "开创",
		"传播", "兴起", "发展", "繁荣", "衰落", "复兴", "改进", "完善",
	}},
	{EventEconomy, []string{
		"贸易", "商业", "农业", "手工业", "货币", "税收", "赋税", "经济",
		"繁荣", "发展", "衰退", "改革", "开放", "封闭", "垄断", "自由",
	}},
	{EventSociety, []string{
		"迁移", "迁都", "人口", "民族", "宗教", "信仰", "习俗", "制度",
		"等级", "阶层", "社会", "民生", "生活", "教育", "科举", "学校",
	}},
	{EventNature, []string{
		"地震", "洪水", "干旱", "饥荒", "瘟疫", "灾害", "天灾", "自然",
		"气候", "环境", "生态", "资源", "开发", "保护", "破坏", "恢复",
	}},
}

// NewKeywordIndex builds an index from categories in the given order.
func NewKeywordIndex(categories []KeywordCategory) *KeywordIndex {
	idx := &KeywordIndex{}
	for _, c := range categories {
		set := make(map[string]struct{}, len(c.Keywords))
		for _, k := range c.Keywords {
			set[k] = struct{}{}
		}
		kw := make([]string, len(c.Keywords))
		copy(kw, c.Keywords)
		idx.categories = append(idx.categories, KeywordCategory{Type: c.Type, Keywords: kw})
		idx.sets = append(idx.sets, set)
	}
	return idx
}

// DefaultKeywordIndex returns the built-in index of historical event keywords.
func DefaultKeywordIndex() *KeywordIndex {
	return NewKeywordIndex(defaultKeywords)
}

// Categories returns the categories in declaration order.
func (k *KeywordIndex) Categories() []EventType {
	out := make([]EventType, len(k.categories))
	for i, c := range k.categories {
		out[i] = c.Type
	}
	return out
}
