// Package dna persists bilingual Brand DNA and Creator DNA records.
package dna

import (
	"maps"
	"slices"
	"strings"
	"time"

	"branddna/pkg/diff"
	"branddna/pkg/language"
	"branddna/pkg/schema"
)

// Projection is one language's view of a record.
type Projection struct {
	DisplayName string           `json:"displayName"`
	Description string           `json:"description,omitempty"`
	Fields      []schema.Section `json:"fields"`
	// Source is the language this projection was machine-translated from,
	// empty when it was generated or edited directly.
	Source    language.Code `json:"source,omitempty"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func (p Projection) clone() Projection {
	p.Fields = slices.Clone(p.Fields)
	return p
}

// changes lists what differs between prev and p: section titles, plus
// "description" when the description changed.
func (p Projection) changes(prev Projection) []string {
	changed := diff.Changed(diff.Sections(prev.Fields, p.Fields))
	if diff.Text(prev.Description, p.Description).Changed() {
		changed = append(changed, "description")
	}
	return changed
}

type ChannelMeta struct {
	ChannelID    string `json:"channelId,omitempty"`
	ChannelURL   string `json:"channelUrl,omitempty"`
	AverageViews int64  `json:"averageViews,omitempty"`
	Timeframe    string `json:"timeframe,omitempty"`
}

func (c *ChannelMeta) merge(o *ChannelMeta) *ChannelMeta {
	if o == nil {
		return c
	}
	if c == nil {
		cp := *o
		return &cp
	}
	out := *c
	if o.ChannelID != "" {
		out.ChannelID = o.ChannelID
	}
	if o.ChannelURL != "" {
		out.ChannelURL = o.ChannelURL
	}
	if o.AverageViews != 0 {
		out.AverageViews = o.AverageViews
	}
	if o.Timeframe != "" {
		out.Timeframe = o.Timeframe
	}
	return &out
}

// Record is the stored document: both language projections plus the
// language independent fields.
type Record struct {
	Key          string                       `json:"key"`
	Entity       schema.Entity                `json:"entity"`
	BaseLanguage language.Language            `json:"baseLanguage"`
	BrandColors  []string                     `json:"brandColors,omitempty"`
	Channel      *ChannelMeta                 `json:"channel,omitempty"`
	Meta         map[string]any               `json:"meta,omitempty"`
	Translations map[language.Code]Projection `json:"translations"`
	CreatedAt    time.Time                    `json:"createdAt"`
	UpdatedAt    time.Time                    `json:"updatedAt"`
}

func (r *Record) empty() bool {
	return r.Key == "" || len(r.Translations) == 0
}

// View is a record seen in one language. Language is the language
// actually returned, which differs from the requested one until the
// background translation lands.
type View struct {
	Key         string            `json:"key"`
	Entity      schema.Entity     `json:"entity"`
	Language    language.Language `json:"language"`
	DisplayName string            `json:"displayName"`
	Description string            `json:"description,omitempty"`
	Fields      []schema.Section  `json:"fields"`
	BrandColors []string          `json:"brandColors,omitempty"`
	Channel     *ChannelMeta      `json:"channel,omitempty"`
	Meta        map[string]any    `json:"meta,omitempty"`
}

func (r *Record) view(lang language.Language) View {
	p, ok := r.Translations[lang.Code()]
	got := lang
	if !ok {
		got = r.BaseLanguage
		p, ok = r.Translations[got.Code()]
	}
	if !ok {
		// Base projection missing: fall back to whatever exists.
		for _, code := range []language.Code{language.EN, language.ES} {
			if p, ok = r.Translations[code]; ok {
				got = language.FromCode(code)
				break
			}
		}
	}
	return View{
		Key:         r.Key,
		Entity:      r.Entity,
		Language:    got,
		DisplayName: p.DisplayName,
		Description: p.Description,
		Fields:      slices.Clone(p.Fields),
		BrandColors: slices.Clone(r.BrandColors),
		Channel:     r.Channel,
		Meta:        maps.Clone(r.Meta),
	}
}

// Draft is the input of a save: one language's content plus any
// language independent fields to merge.
type Draft struct {
	Key         string
	DisplayName string
	Description string
	Fields      []schema.Section
	BrandColors []string
	Channel     *ChannelMeta
	Meta        map[string]any
}

func (d Draft) hasContent() bool {
	return d.Fields != nil || strings.TrimSpace(d.DisplayName) != "" || d.Description != ""
}
