package schema

import (
	"encoding/json"
	"errors"
	"testing"

	"branddna/pkg/language"
)

func scenes(n int) []Scene {
	out := make([]Scene, n)
	for i := range out {
		out[i] = Scene{ActTitle: "Act", ActDescription: "Something happens", ImagePrompt: "A sketch"}
	}
	return out
}

func TestStoryboardCardinality(t *testing.T) {
	tests := []struct {
		got, want int
		ok        bool
	}{
		{5, 5, true},
		{4, 5, false},
		{6, 5, false},
		{7, 7, true},
		{5, 7, false},
	}
	for _, tt := range tests {
		sb := Storyboard{Storyboard: scenes(tt.got)}
		err := sb.Validate(tt.want)
		if tt.ok && err != nil {
			t.Fatalf("%d scenes for %d: %v", tt.got, tt.want, err)
		}
		if !tt.ok && !errors.Is(err, ErrCardinality) {
			t.Fatalf("%d scenes for %d: err = %v, want cardinality error", tt.got, tt.want, err)
		}
	}
}

func TestBrandDNAValidate(t *testing.T) {
	sections := make([]Section, BrandSections)
	for i, title := range SectionTitles(Brand, language.English) {
		sections[i] = Section{Title: title, Body: "body"}
	}
	valid := BrandDNA{BrandName: "Acme", BrandColors: []string{"#FF0000", "#fff"}, BrandAnalysis: sections}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	for name, b := range map[string]BrandDNA{
		"no colors":     {BrandColors: nil, BrandAnalysis: sections},
		"three colors":  {BrandColors: []string{"#000", "#111", "#222"}, BrandAnalysis: sections},
		"not hex":       {BrandColors: []string{"red"}, BrandAnalysis: sections},
		"five sections": {BrandColors: []string{"#000"}, BrandAnalysis: sections[:5]},
	} {
		if err := b.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestMatchesOrdering(t *testing.T) {
	m := Matches{Matches: []Match{
		{CreatorName: "a", MatchGrade: "A"},
		{CreatorName: "b", MatchGrade: "A-"},
		{CreatorName: "c", MatchGrade: "A-"},
	}}
	if err := m.Validate(3); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	m.Matches[2].MatchGrade = "A+"
	if err := m.Validate(3); err == nil {
		t.Fatal("expected ordering error")
	}
	if err := m.Validate(8); err == nil {
		t.Fatal("expected count error")
	}
}

func TestGradeRank(t *testing.T) {
	a, _ := GradeRank("A-")
	b, _ := GradeRank("b+")
	if a <= b {
		t.Fatalf("A- (%d) should outrank B+ (%d)", a, b)
	}
	if _, ok := GradeRank("Z"); ok {
		t.Fatal("Z should not be a grade")
	}
	if _, ok := GradeRank("A++"); ok {
		t.Fatal("A++ should not be a grade")
	}
}

func TestIdeasAcceptsStringOrList(t *testing.T) {
	var m Match
	if err := json.Unmarshal([]byte(`{"creatorName":"x","contentIdeas":"one idea"}`), &m); err != nil {
		t.Fatalf("string: %v", err)
	}
	if len(m.ContentIdeas) != 1 || m.ContentIdeas[0] != "one idea" {
		t.Fatalf("got %v", m.ContentIdeas)
	}
	if err := json.Unmarshal([]byte(`{"contentIdeas":["a","b"]}`), &m); err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(m.ContentIdeas) != 2 {
		t.Fatalf("got %v", m.ContentIdeas)
	}
	if err := json.Unmarshal([]byte(`{"contentIdeas":42}`), &m); err == nil {
		t.Fatal("expected error for number")
	}
}

func TestReviewValidate(t *testing.T) {
	r := Review{SceneWarnings: []SceneWarning{{SceneNumber: 1}, {SceneNumber: 2, HasIssue: true, Explanation: "off brand"}}}
	if err := r.Validate(2); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	r.SceneWarnings[1].SceneNumber = 1
	if err := r.Validate(2); err == nil {
		t.Fatal("expected duplicate scene number error")
	}
}
