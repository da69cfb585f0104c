package schema

import (
	"testing"

	"branddna/pkg/language"
)

func TestTranslateTitle(t *testing.T) {
	tests := []struct {
		entity Entity
		in     string
		target language.Language
		want   string
		ok     bool
	}{
		{Creator, "CreatorDNA", language.Spanish, "ADN del Creador", true},
		{Creator, "ADN del Creador", language.English, "CreatorDNA", true},
		{Brand, "Core Values", language.Spanish, "Valores Fundamentales", true},
		{Brand, "Qué Evitar", language.English, "What to Avoid", true},
		{Brand, "Creator Personality", language.Spanish, "", false},
		{Creator, "Fan Rituals", language.Spanish, "", false},
	}
	for _, tt := range tests {
		got, ok := TranslateTitle(tt.entity, tt.in, tt.target)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("TranslateTitle(%s, %q, %s) = %q, %v; want %q, %v", tt.entity, tt.in, tt.target, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSectionTitles(t *testing.T) {
	if got := SectionTitles(Brand, language.English); len(got) != BrandSections || got[0] != "BrandDNA" {
		t.Fatalf("brand titles = %v", got)
	}
	if got := SectionTitles(Creator, language.Spanish); len(got) != CreatorSections || got[4] != "Historia del Canal" {
		t.Fatalf("creator titles = %v", got)
	}
}
