package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
)

type Section struct {
	Title string `json:"sectionTitle" jsonschema_description:"Section title exactly as listed in the instructions"`
	Body  string `json:"sectionBody" jsonschema_description:"Section content; never repeats the title"`
}

type BrandDNA struct {
	BrandName     string    `json:"brandName" jsonschema_description:"Brand name as written by the brand"`
	BrandColors   []string  `json:"brandColors" jsonschema_description:"One or two primary brand colors as hex codes"`
	BrandAnalysis []Section `json:"brandAnalysis" jsonschema_description:"Ordered brand identity sections"`
}

type ChannelAnalysis struct {
	ChannelDescription string    `json:"channelDescription,omitempty" jsonschema_description:"Optional one-paragraph channel description"`
	ChannelAnalysis    []Section `json:"channelAnalysis" jsonschema_description:"Ordered creator identity sections"`
}

type Concept struct {
	Title  string `json:"concept_title" jsonschema_description:"Short concept title"`
	Prompt string `json:"prompt" jsonschema_description:"Self-contained generation prompt"`
}

type Concepts struct {
	Concepts []Concept `json:"concepts"`
}

type Scene struct {
	ActTitle       string `json:"act_title" jsonschema_description:"Title of the act"`
	ActDescription string `json:"act_description" jsonschema_description:"What happens in this act"`
	ImagePrompt    string `json:"image_prompt" jsonschema_description:"Self-contained black and white sketch prompt for this frame"`
}

type Storyboard struct {
	Storyboard []Scene `json:"storyboard"`
}

type Frame struct {
	Frame *Scene `json:"frame"`
}

type SceneWarning struct {
	SceneNumber int    `json:"sceneNumber" jsonschema_description:"1-based scene number"`
	HasIssue    bool   `json:"hasIssue"`
	Explanation string `json:"explanation" jsonschema_description:"Why the scene conflicts with the brand, empty when hasIssue is false"`
}

type Review struct {
	SceneWarnings []SceneWarning `json:"sceneWarnings"`
}

type Match struct {
	CreatorName    string `json:"creatorName"`
	MatchGrade     string `json:"matchGrade" jsonschema_description:"Letter grade such as A, A-, B+"`
	MatchType      string `json:"matchType,omitempty" jsonschema:"enum=expected,enum=balanced,enum=unexpected"`
	ReasonForMatch string `json:"reasonForMatch"`
	ContentIdeas   Ideas  `json:"contentIdeas"`
	ValueAlignment string `json:"valueAlignment,omitempty"`
	PotentialReach string `json:"potentialReach,omitempty"`
}

type Matches struct {
	Matches []Match `json:"matches"`
}

type ContentIdeas struct {
	ContentIdeas []string `json:"contentIdeas"`
}

// Ideas accepts either a single string or a list of strings.
type Ideas []string

func (i *Ideas) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*i = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("contentIdeas: expected string or list of strings: %w", err)
	}
	if s == "" {
		*i = nil
		return nil
	}
	*i = Ideas{s}
	return nil
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// ErrCardinality is wrapped by every validation failure.
var ErrCardinality = errors.New("unexpected result shape")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCardinality, fmt.Sprintf(format, args...))
}

func validateSections(field string, sections []Section, n int) error {
	if len(sections) != n {
		return invalid("%s: got %d sections, want %d", field, len(sections), n)
	}
	for i, s := range sections {
		if strings.TrimSpace(s.Title) == "" || strings.TrimSpace(s.Body) == "" {
			return invalid("%s: section %d is empty", field, i+1)
		}
	}
	return nil
}

func (b *BrandDNA) Validate() error {
	if err := validateSections("brandAnalysis", b.BrandAnalysis, BrandSections); err != nil {
		return err
	}
	if len(b.BrandColors) < 1 || len(b.BrandColors) > 2 {
		return invalid("brandColors: got %d colors, want 1 or 2", len(b.BrandColors))
	}
	for _, c := range b.BrandColors {
		if !hexColor.MatchString(strings.TrimSpace(c)) {
			return invalid("brandColors: %q is not a hex color", c)
		}
	}
	return nil
}

func (c *ChannelAnalysis) Validate() error {
	return validateSections("channelAnalysis", c.ChannelAnalysis, CreatorSections)
}

func (c *Concepts) Validate() error {
	if len(c.Concepts) != ConceptCount {
		return invalid("concepts: got %d, want %d", len(c.Concepts), ConceptCount)
	}
	for i, concept := range c.Concepts {
		if strings.TrimSpace(concept.Prompt) == "" {
			return invalid("concepts: concept %d has no prompt", i+1)
		}
	}
	return nil
}

// Validate checks the storyboard against the scene count of its version.
func (s *Storyboard) Validate(scenes int) error {
	if len(s.Storyboard) != scenes {
		return invalid("storyboard: got %d scenes, want %d", len(s.Storyboard), scenes)
	}
	for i, scene := range s.Storyboard {
		if err := scene.validate(); err != nil {
			return invalid("storyboard: scene %d: %v", i+1, err)
		}
	}
	return nil
}

func (s Scene) validate() error {
	if strings.TrimSpace(s.ActTitle) == "" && strings.TrimSpace(s.ActDescription) == "" {
		return errors.New("empty scene")
	}
	if strings.TrimSpace(s.ImagePrompt) == "" {
		return errors.New("missing image_prompt")
	}
	return nil
}

func (f *Frame) Validate() error {
	if f.Frame == nil {
		return invalid("frame: missing")
	}
	if err := f.Frame.validate(); err != nil {
		return invalid("frame: %v", err)
	}
	return nil
}

// Validate requires one warning per input scene, numbered 1..scenes.
func (r *Review) Validate(scenes int) error {
	if len(r.SceneWarnings) != scenes {
		return invalid("sceneWarnings: got %d, want %d", len(r.SceneWarnings), scenes)
	}
	seen := make(map[int]bool, scenes)
	for _, w := range r.SceneWarnings {
		if w.SceneNumber < 1 || w.SceneNumber > scenes || seen[w.SceneNumber] {
			return invalid("sceneWarnings: bad scene number %d", w.SceneNumber)
		}
		seen[w.SceneNumber] = true
	}
	return nil
}

// Validate checks the count and that grades never increase down the list.
func (m *Matches) Validate(count int) error {
	if len(m.Matches) != count {
		return invalid("matches: got %d, want %d", len(m.Matches), count)
	}
	prev := math.MaxInt
	for i, match := range m.Matches {
		if strings.TrimSpace(match.CreatorName) == "" {
			return invalid("matches: match %d has no creatorName", i+1)
		}
		rank, ok := GradeRank(match.MatchGrade)
		if !ok {
			return invalid("matches: match %d has grade %q", i+1, match.MatchGrade)
		}
		if rank > prev {
			return invalid("matches: not ordered by grade at position %d", i+1)
		}
		prev = rank
	}
	return nil
}

func (c *ContentIdeas) Validate() error {
	if n := len(c.ContentIdeas); n < MinIdeas || n > MaxIdeas {
		return invalid("contentIdeas: got %d, want %d to %d", n, MinIdeas, MaxIdeas)
	}
	for i, idea := range c.ContentIdeas {
		if strings.TrimSpace(idea) == "" {
			return invalid("contentIdeas: idea %d is empty", i+1)
		}
	}
	return nil
}

var gradeBase = map[byte]int{'A': 12, 'B': 9, 'C': 6, 'D': 3, 'F': 0}

// GradeRank maps a letter grade to a comparable rank, higher is better.
func GradeRank(g string) (int, bool) {
	g = strings.ToUpper(strings.TrimSpace(g))
	if g == "" {
		return 0, false
	}
	base, ok := gradeBase[g[0]]
	if !ok {
		return 0, false
	}
	switch g[1:] {
	case "":
		return base, true
	case "+":
		return base + 1, true
	case "-":
		return base - 1, true
	}
	return 0, false
}
