package optimizer

import (
	"testing"
	"time"
)

func TestDeriveMatchesTopics(t *testing.T) {
	h := NewDefaultHashtagger()
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

	tags := h.Derive("A weeknight recipe using five ingredients", now)

	want := map[string]bool{"#recipe": true, "#homecooking": true, "#foodie": true, "#spring": true}
	for _, tag := range tags {
		delete(want, tag)
	}
	if len(want) > 0 {
		t.Errorf("Derive() missing tags %v, got %v", want, tags)
	}
}

func TestDeriveSeasonalOnly(t *testing.T) {
	h := NewDefaultHashtagger()
	now := time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)

	tags := h.Derive("nothing topical here", now)

	if len(tags) != 2 || tags[0] != "#fall" || tags[1] != "#halloween" {
		t.Errorf("Derive() = %v, want [#fall #halloween]", tags)
	}
}

func TestDeriveIncludesBaseTags(t *testing.T) {
	h := NewHashtagger(nil, nil, []string{"#mybrand"}, 30)

	tags := h.Derive("anything", time.Now())

	if len(tags) != 1 || tags[0] != "#mybrand" {
		t.Errorf("Derive() = %v, want [#mybrand]", tags)
	}
}

func TestDeriveCapsTagCount(t *testing.T) {
	h := NewHashtagger(DefaultTopicTags, DefaultSeasonalTags, nil, 2)
	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)

	tags := h.Derive("recipe garden travel health diy budget", now)

	if len(tags) != 2 {
		t.Errorf("Derive() returned %d tags, want 2", len(tags))
	}
}

func TestMergePrefersSuggestions(t *testing.T) {
	h := NewHashtagger(nil, nil, nil, 30)

	tags := h.Merge([]string{"Sourdough", "baking"}, []string{"#recipe", "#baking"})

	if len(tags) != 3 {
		t.Fatalf("Merge() = %v, want 3 tags", tags)
	}
	if tags[0] != "#sourdough" || tags[1] != "#baking" || tags[2] != "#recipe" {
		t.Errorf("Merge() = %v, want [#sourdough #baking #recipe]", tags)
	}
}

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"#Recipe", "#recipe"},
		{"home cooking", "#homecooking"},
		{"##doubled", "#doubled"},
		{"tag-with-dashes", "#tagwithdashes"},
		{"2025trends", "#2025trends"},
		{"   ", ""},
		{"#", ""},
	}

	for _, tt := range tests {
		if got := normalizeTag(tt.input); got != tt.want {
			t.Errorf("normalizeTag(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
