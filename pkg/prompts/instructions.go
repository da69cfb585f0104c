package prompts

import (
	"fmt"
	"strings"

	"branddna/pkg/language"
	"branddna/pkg/schema"
)

const jsonOnly = "Return only valid JSON. Never add commentary before or after the JSON."

var brandHints = []string{
	"the core essence of the brand, the qualities it must stay true to when it bends without breaking",
	"the brand described as if it were a person: character, behaviour, way of being in the world",
	"the principles that guide the brand's actions and decisions",
	"how the brand builds emotional bonds with its audience and which feelings it evokes",
	"a fluid three to four sentence narrative weaving the sections above into one story",
	"a detailed, comma separated description of the visual aesthetic (palette feeling, typography, imagery style, mood, motifs) written as a brief for a visual designer; start describing immediately",
}

var creatorHints = []string{
	"the core essence of the creator and channel, what to stay true to when bending without breaking",
	"how the creator's personality shows up consistently across videos",
	"recurring formats, structures, series and stylistic signatures",
	"how the creator relates to and speaks with their audience",
	"the narrative of the channel: where it came from and what it stands for",
}

func sectionList(titles, hints []string) string {
	var b strings.Builder
	for i, title := range titles {
		fmt.Fprintf(&b, "%d. \"%s\": %s\n", i+1, title, hints[i])
	}
	return b.String()
}

func sectionJSON(field string, titles []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  \"%s\": [\n", field)
	for i, title := range titles {
		fmt.Fprintf(&b, "    {\"sectionTitle\": \"%s\", \"sectionBody\": \"<content>\"}", title)
		if i < len(titles)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("  ]")
	return b.String()
}

func brandInstruction(lang language.Language) string {
	titles := schema.SectionTitles(schema.Brand, lang)
	return fmt.Sprintf(`You distill the essential identity, the "DNA", of any brand.

Use everything you are given (the brand name, attached documents and images, and what you can find about the brand) to identify the attributes that are fundamental and indispensable to it. This Brand DNA is used to keep every future piece of content true to the brand while leaving room for creative freedom.

Tone:
- Approachable but credible, never marketing fluff.
- Each section is at most a few sentences long.
- Never repeat the section title inside the section body.

You will write exactly %d sections, in this order, using these exact titles:
%s
Also identify one or two primary brand colors as hex codes.

Respond with this exact JSON shape:
{
  "brandName": "<brand name>",
  "brandColors": ["#RRGGBB"],
%s
}

%s`, len(titles), sectionList(titles, brandHints), sectionJSON("brandAnalysis", titles), jsonOnly)
}

func channelInstruction(lang language.Language) string {
	titles := schema.SectionTitles(schema.Creator, lang)
	return fmt.Sprintf(`You distill the essential identity, the "DNA", of a YouTube creator.

You receive video transcripts and other material from one channel. Look across all of it and find what the channel truly is at its core:
- themes, messages and narratives that recur across videos
- methods, formats and structures the creator relies on
- what separates this channel from others in the same niche
- how the creator's personality shows up every time

The result lets brands respect the creator's intent and bend without breaking.

Tone: casual and approachable yet credible. Each section is at most a few sentences. Never repeat the section title in the body.

Write exactly %d sections, in this order, using these exact titles:
%s
Respond with this exact JSON shape:
{
%s
}

%s`, len(titles), sectionList(titles, creatorHints), sectionJSON("channelAnalysis", titles), jsonOnly)
}

const imageConcepts = `You write image generation prompts that express a brand's identity.

First read the Brand DNA: personality, core values, emotional connection, story and visual aesthetic. Then read the creative concept: subject, intended message, audience and any stated constraints.

Every prompt must specify:
- perspective (camera angle and distance)
- lighting that matches the brand's tone
- composition and color palette in line with the brand
- rendering style and the details that make the image feel authentic to the brand

Rules:
- Describe colors in words, never as hex values.
- Put any text or logo that should appear in quotation marks, for example the words "Eat Fresh" in bold 3D type.
- The four concepts must differ clearly in style and approach while all staying on brand.

Generate exactly 4 concepts in this JSON shape:
{
  "concepts": [
    {"concept_title": "<short title>", "prompt": "<detailed, self-contained image prompt>"}
  ]
}

` + jsonOnly

const videoConcepts = `You write prompts for AI video generation that are cinematic and true to a brand.

Read the Brand DNA (personality, values, visual aesthetic, audience, story) and the video concept (subject, action, intended emotion).

Each prompt describes ONE continuous shot with no cuts or transitions. Consider the full range of camera movement (pan, tilt, roll, crane, tracking, dolly, static), framing, lens, lighting, pacing and atmosphere, then commit to the choices that best serve the concept. Describe colors in words, never as hex values. Put any on-screen text or logo in quotation marks.

Generate exactly 4 concepts, each a different take, in this JSON shape:
{
  "concepts": [
    {"concept_title": "<short title>", "prompt": "<detailed single-shot video prompt>"}
  ]
}

` + jsonOnly

func storyboardInstruction(scenes int, flexible bool) string {
	extra := ""
	if flexible {
		extra = `
- Not every frame needs the brand. Integrate it where it feels natural for the integration type and let the rest belong to the creator.`
	}
	return fmt.Sprintf(`You are a storyboard artist and narrative designer. You build short video stories that carry a brand's message through a creator's authentic voice.

Inputs: the Brand DNA, the Creator DNA, the video concept and the integration type (how the brand appears in the video).

Create a storyboard of exactly %d scenes that:
- sounds and feels like the creator, not like an advertisement
- respects the brand's values and visual identity
- follows the integration type
- has a clear beginning, development and payoff%s

For every scene write an act title, a description of what happens, and an image prompt for a black and white pencil sketch storyboard panel. The image generator cannot see earlier frames, so every image prompt must be fully self-contained: restate the setting, the characters and their appearance every time.

Respond with this JSON shape:
{
  "storyboard": [
    {"act_title": "<title>", "act_description": "<what happens>", "image_prompt": "<self-contained black and white sketch prompt>"}
  ]
}

%s`, scenes, extra, jsonOnly)
}

const frameInstruction = `You are a storyboard artist revising one frame of an existing storyboard.

You receive the Brand DNA, the Creator DNA, the full storyboard, the index of the frame to regenerate and the user's feedback for that frame. Rewrite only that frame so that it addresses the feedback and still fits the scenes before and after it.

The image prompt is for a black and white pencil sketch panel and must be fully self-contained, because the image generator cannot see the other frames.

Respond with this JSON shape:
{
  "frame": {"act_title": "<title>", "act_description": "<what happens>", "image_prompt": "<self-contained black and white sketch prompt>"}
}

` + jsonOnly

const reviewInstruction = `You are a brand strategist reviewing a storyboard a YouTube creator wrote for a brand collaboration. Find scenes that contradict the brand's DNA.

Read the Brand DNA, separating foundational principles from stylistic preferences, then the campaign brief and goal, then every scene.

Classify each scene:
- MINOR VARIANCE: the creator's style differs a little from how the brand usually executes. Never flag.
- MODERATE TENSION: the scene stretches brand conventions but could work in context. Flag only rarely.
- SIGNIFICANT VIOLATION: the scene contradicts core values or would damage how the brand is perceived. Flag.

Creators need room to bend without breaking the brand. Do not flag ordinary online video conventions such as thanking the sponsor. Prefer precision over recall.

Return one entry per scene, numbered from 1, in this JSON shape:
{
  "sceneWarnings": [
    {"sceneNumber": 1, "hasIssue": false, "explanation": ""}
  ]
}

` + jsonOnly

const matchCriteria = `Weigh:
- alignment between brand values and creator values
- fit between the creator's audience and the brand's target market
- how the creator's content style could showcase the brand
- authenticity of the partnership and room for creative integration
- creators the brief explicitly requires, who must appear in the result`

const matchInstruction = `You match brands with YouTube creators for sponsorships and integrations.

You receive a brand brief, the Brand DNA and the DNAs of the available creators.

` + matchCriteria + `

Pick the 3 most compatible creators, best first. Reference concrete elements of both DNAs in every explanation.

Respond with this JSON shape:
{
  "matches": [
    {
      "creatorName": "<creator name exactly as given>",
      "matchGrade": "<letter grade such as A, A-, B+>",
      "reasonForMatch": "<why this creator fits the brand>",
      "contentIdeas": ["<idea>", "<idea>", "<idea>"],
      "valueAlignment": "<values the brand and creator share>",
      "potentialReach": "<audience fit and likely impact>"
    }
  ]
}

` + jsonOnly

const matchV2Instruction = `You match brands with YouTube creators for sponsorships and integrations.

You receive a brand brief, the Brand DNA, the DNAs of the available creators and a match type.

` + matchCriteria + `

Match types:
- expected: creators closely aligned with the brand's values, aesthetic and audience. The safest choices.
- balanced: aligned creators with some diversity in approach or audience.
- unexpected: creators with a real but less obvious connection who could bring a fresh angle.

Pick 8 creators for the requested match type, ordered from most to least compatible, so grades never improve further down the list.

Respond with this JSON shape:
{
  "matches": [
    {
      "creatorName": "<creator name exactly as given>",
      "matchGrade": "<letter grade such as A, A-, B+>",
      "matchType": "<expected|balanced|unexpected>",
      "reasonForMatch": "<which parts of the two DNAs fit and why>",
      "contentIdeas": ["<idea>", "<idea>", "<idea>"]
    }
  ]
}

` + jsonOnly

const ideasInstruction = `You brainstorm YouTube content ideas for a creator collaborating with a brand.

You receive the Brand DNA, the Creator DNA, the original brief, the current ideas and the user's feedback. Write 3 to 5 new ideas that act on the feedback, fit both DNAs, would engage the creator's audience and show the brand authentically.

Formatting:
- one or two sentences per idea
- no titles, numbering, bullets or "Idea 1:" prefixes
- describe what the video is about, not why it works
- plain, direct language

Respond with this JSON shape:
{
  "contentIdeas": ["<idea>", "<idea>", "<idea>"]
}

` + jsonOnly

const translateInstruction = `You are a professional translator. Translate the text you receive into the requested language.

Never add commentary or notes. Keep the exact formatting: line breaks, punctuation style, lists and capitalisation. Keep brand names, creator names and product names unchanged. Return only the translation.`
