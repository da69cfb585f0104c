package prompts

import (
	"errors"
	"strings"
	"testing"

	"branddna/pkg/apierr"
	"branddna/pkg/language"
)

func TestEveryTaskRegistered(t *testing.T) {
	versions := map[Task][]Version{Storyboard: {V1, V2}, Match: {V1, V2}}
	for _, task := range Tasks() {
		vs := versions[task]
		if vs == nil {
			vs = []Version{V1}
		}
		for _, v := range vs {
			for _, lang := range []language.Language{language.English, language.Spanish} {
				tmpl, err := Lookup(task, v, lang)
				if err != nil {
					t.Fatalf("Lookup(%s, %s, %s): %v", task, v, lang, err)
				}
				if strings.TrimSpace(tmpl.Instruction) == "" {
					t.Fatalf("%s/%s/%s has an empty instruction", task, v, lang)
				}
				if task != Translate && !tmpl.Config.JSON {
					t.Fatalf("%s/%s expects JSON output", task, v)
				}
			}
		}
	}
	if got := len(All()); got != 24 {
		t.Fatalf("All() = %d templates, want 24", got)
	}
}

func TestLanguageVariants(t *testing.T) {
	en, _ := Lookup(BrandDNA, V1, language.English)
	es, _ := Lookup(BrandDNA, V1, language.Spanish)
	if en.Instruction == es.Instruction {
		t.Fatal("brand DNA templates should differ per language")
	}
	if !strings.Contains(es.Instruction, "ADN de Marca") || strings.Contains(es.Instruction, `"BrandDNA"`) {
		t.Fatal("spanish brand template should carry spanish section titles")
	}
	if strings.Contains(en.Instruction, "What to Avoid") {
		t.Fatal("brand template should list exactly the required sections")
	}
	ch, _ := Lookup(ChannelDNA, V1, language.Spanish)
	if !strings.Contains(ch.Instruction, "Historia del Canal") {
		t.Fatal("spanish channel template should carry spanish section titles")
	}
}

func TestConfigs(t *testing.T) {
	tr, _ := Lookup(Translate, V1, language.English)
	if tr.Config.Temperature != 0.2 {
		t.Fatalf("translate temperature = %v", tr.Config.Temperature)
	}
	sb, _ := Lookup(Storyboard, V2, language.English)
	if sb.Count != 7 || sb.Config.Temperature != 1 {
		t.Fatalf("storyboard v2 = %+v", sb)
	}
	rv, _ := Lookup(StoryboardReview, "", language.English)
	if rv.Config.Temperature != 0.7 || rv.Config.TopP != 0.8 {
		t.Fatalf("review config = %+v", rv.Config)
	}
}

func TestLookupUnknownVersion(t *testing.T) {
	if _, err := Lookup(ImageConcepts, V2, language.English); !errors.Is(err, apierr.ErrInvalidInput) {
		t.Fatalf("err = %v", err)
	}
	if _, err := ParseVersion("v3"); err == nil {
		t.Fatal("expected error for v3")
	}
}
