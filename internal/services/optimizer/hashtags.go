package optimizer

import (
	"strings"
	"time"
)

// TopicTag maps content keywords to the hashtags used when any keyword
// appears in the article
type TopicTag struct {
	Keywords []string
	Hashtags []string
}

// DefaultTopicTags is the built-in topic table. Callers may pass their own
// table to NewHashtagger.
var DefaultTopicTags = []TopicTag{
	{
		Keywords: []string{"recipe", "cooking", "kitchen", "ingredient"},
		Hashtags: []string{"#recipe", "#homecooking", "#foodie"},
	},
	{
		Keywords: []string{"garden", "plant", "grow", "harvest"},
		Hashtags: []string{"#gardening", "#homegrown", "#growyourown"},
	},
	{
		Keywords: []string{"travel", "destination", "trip", "itinerary"},
		Hashtags: []string{"#travel", "#wanderlust", "#travelguide"},
	},
	{
		Keywords: []string{"health", "wellness", "fitness", "workout"},
		Hashtags: []string{"#wellness", "#healthyliving", "#fitness"},
	},
	{
		Keywords: []string{"diy", "craft", "handmade", "tutorial"},
		Hashtags: []string{"#diy", "#handmade", "#howto"},
	},
	{
		Keywords: []string{"budget", "saving", "money", "frugal"},
		Hashtags: []string{"#budgeting", "#moneytips", "#frugalliving"},
	},
}

// DefaultSeasonalTags maps calendar months to seasonal hashtags
var DefaultSeasonalTags = map[time.Month][]string{
	time.January:   {"#newyear", "#freshstart"},
	time.February:  {"#valentines"},
	time.March:     {"#spring"},
	time.April:     {"#spring", "#earthday"},
	time.May:       {"#spring"},
	time.June:      {"#summer"},
	time.July:      {"#summer"},
	time.August:    {"#summer"},
	time.September: {"#fall", "#backtoschool"},
	time.October:   {"#fall", "#halloween"},
	time.November:  {"#fall", "#thanksgiving"},
	time.December:  {"#holidays", "#winter"},
}

// Hashtagger derives hashtags from article text and the current season
type Hashtagger struct {
	topics   []TopicTag
	seasonal map[time.Month][]string
	baseTags []string
	maxTags  int
}

// NewHashtagger creates a hashtagger over the given tables. baseTags are
// always included; maxTags caps the final list.
func NewHashtagger(topics []TopicTag, seasonal map[time.Month][]string, baseTags []string, maxTags int) *Hashtagger {
	if maxTags <= 0 {
		maxTags = 30
	}
	return &Hashtagger{
		topics:   topics,
		seasonal: seasonal,
		baseTags: baseTags,
		maxTags:  maxTags,
	}
}

// NewDefaultHashtagger creates a hashtagger with the built-in tables
func NewDefaultHashtagger() *Hashtagger {
	return NewHashtagger(DefaultTopicTags, DefaultSeasonalTags, nil, 30)
}

// Derive returns hashtags for the given text at the given time: base tags,
// then topic matches, then seasonal tags, deduplicated in that order.
func (h *Hashtagger) Derive(text string, now time.Time) []string {
	lower := strings.ToLower(text)

	var tags []string
	tags = append(tags, h.baseTags...)

	for _, topic := range h.topics {
		for _, keyword := range topic.Keywords {
			if strings.Contains(lower, keyword) {
				tags = append(tags, topic.Hashtags...)
				break
			}
		}
	}

	tags = append(tags, h.seasonal[now.Month()]...)

	return dedupeTags(tags, h.maxTags)
}

// Merge combines LLM-suggested hashtags with derived ones, preferring the
// suggestions, normalizing and deduplicating.
func (h *Hashtagger) Merge(suggested, derived []string) []string {
	combined := make([]string, 0, len(suggested)+len(derived))
	combined = append(combined, suggested...)
	combined = append(combined, derived...)
	return dedupeTags(combined, h.maxTags)
}

// dedupeTags normalizes tags to lowercase #-prefixed form, removes
// duplicates and empties, and caps the list
func dedupeTags(tags []string, max int) []string {
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))

	for _, tag := range tags {
		normalized := normalizeTag(tag)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		result = append(result, normalized)
		if len(result) >= max {
			break
		}
	}

	return result
}

// normalizeTag lowercases a tag, strips whitespace and inner punctuation,
// and ensures a single leading #
func normalizeTag(tag string) string {
	tag = strings.TrimSpace(strings.ToLower(tag))
	tag = strings.TrimLeft(tag, "#")

	var b strings.Builder
	for _, r := range tag {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "#" + b.String()
}
