package schema

import "branddna/pkg/language"

type Entity string

const (
	Brand   Entity = "brand"
	Creator Entity = "creator"
)

const (
	BrandSections   = 6
	CreatorSections = 5
	ConceptCount    = 4
	MinIdeas        = 3
	MaxIdeas        = 5
)

// TitleID identifies a canonical section independent of language.
type TitleID string

type Title struct {
	ID      TitleID
	English string
	Spanish string
}

func (t Title) In(lang language.Language) string {
	if lang == language.Spanish {
		return t.Spanish
	}
	return t.English
}

// glossary lists the canonical section titles per entity in generation order.
// Entries past the required section count are still recognised when
// translating stored records.
var glossary = map[Entity][]Title{
	Brand: {
		{ID: "brand_dna", English: "BrandDNA", Spanish: "ADN de Marca"},
		{ID: "brand_personality", English: "Brand Personality", Spanish: "Personalidad de Marca"},
		{ID: "core_values", English: "Core Values", Spanish: "Valores Fundamentales"},
		{ID: "emotional_connection", English: "Emotional Connection", Spanish: "Conexión Emocional"},
		{ID: "brand_story", English: "Brand Story", Spanish: "Historia de Marca"},
		{ID: "visual_aesthetic", English: "Visual Aesthetic", Spanish: "Estética Visual"},
		{ID: "what_to_avoid", English: "What to Avoid", Spanish: "Qué Evitar"},
	},
	Creator: {
		{ID: "creator_dna", English: "CreatorDNA", Spanish: "ADN del Creador"},
		{ID: "creator_personality", English: "Creator Personality", Spanish: "Personalidad del Creador"},
		{ID: "content_style", English: "Content Style", Spanish: "Estilo de Contenido"},
		{ID: "audience_connection", English: "Audience Connection", Spanish: "Conexión con la Audiencia"},
		{ID: "channel_story", English: "Channel Story", Spanish: "Historia del Canal"},
	},
}

// SectionTitles returns the titles the model must produce for entity, in order.
func SectionTitles(entity Entity, lang language.Language) []string {
	n := BrandSections
	if entity == Creator {
		n = CreatorSections
	}
	titles := glossary[entity][:n]
	out := make([]string, len(titles))
	for i, t := range titles {
		out[i] = t.In(lang)
	}
	return out
}

// LookupTitle finds the canonical entry whose title in either language is s.
func LookupTitle(entity Entity, s string) (Title, bool) {
	for _, t := range glossary[entity] {
		if t.English == s || t.Spanish == s {
			return t, true
		}
	}
	return Title{}, false
}

// TranslateTitle maps a known section title to target. ok is false when the
// title is not in the glossary and needs a live translation.
func TranslateTitle(entity Entity, s string, target language.Language) (string, bool) {
	t, ok := LookupTitle(entity, s)
	if !ok {
		return "", false
	}
	return t.In(target), true
}
