package timeline

import "unicode/utf8"

// Tag is the part-of-speech class a tokenizer assigns to a token.
type Tag string

const (
	TagPerson       Tag = "person"
	TagPlace        Tag = "place"
	TagOrganization Tag = "organization"
	TagNoun         Tag = "noun"
	TagOther        Tag = "other"
)

// TaggedToken is a token with its part-of-speech class and the backend's raw tag.
type TaggedToken struct {
	Text string
	Tag  Tag
	POS  string
}

// Tokenizer segments text into words. Implementations must be safe for
// concurrent use. Errors wrapping ErrTokenizerUnavailable abort an analysis;
// any other error only drops the sentence being processed.
type Tokenizer interface {
	Segment(text string) ([]string, error)
	SegmentWithTags(text string) ([]TaggedToken, error)
}

// Classifier picks an event category for a set of tokens.
type Classifier struct {
	index *KeywordIndex
}

// NewClassifier creates a classifier over the given keyword index.
func NewClassifier(index *KeywordIndex) *Classifier {
	return &Classifier{index: index}
}

// Classify returns the category whose keywords overlap the token set most.
// Earlier categories win ties; no overlap at all yields EventOther.
func (c *Classifier) Classify(tokens []string) EventType {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}

	best, bestScore := EventOther, 0
	for i, cat := range c.index.categories {
		score := 0
		for t := range set {
			if _, ok := c.index.sets[i][t]; ok {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = cat.Type, score
		}
	}
	return best
}

// Entities maps tagged tokens to entities. Plain nouns count as concepts
// only when they are at least two characters long.
func (c *Classifier) Entities(tokens []TaggedToken) []Entity {
	entities := []Entity{}
	for _, tok := range tokens {
		var cat EntityCategory
		switch tok.Tag {
		case TagPerson:
			cat = EntityPerson
		case TagPlace:
			cat = EntityPlace
		case TagOrganization:
			cat = EntityOrganization
		case TagNoun:
			if utf8.RuneCountInString(tok.Text) < 2 {
				continue
			}
			cat = EntityConcept
		default:
			continue
		}
		entities = append(entities, Entity{Text: tok.Text, Category: cat, POS: tok.POS})
	}
	return entities
}
