package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/content-machine/core/internal/modules/persona"
)

// jsonValue renders a value compactly for prompt interpolation. Marshal only
// fails on unserializable types, which none of the prompt inputs are.
func jsonValue(v any) string {
	encoded, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(encoded)
}

func toneLine(t persona.ToneSliders) string {
	return fmt.Sprintf("meme=%v, serious=%v, educational=%v", t.Meme, t.Serious, t.Educational)
}

func scoutPrompt(topic TopicData) string {
	var b strings.Builder
	b.WriteString("You are a research scout. Summarize the topic and extract only safe claims.\n")
	b.WriteString("Return JSON with keys: summary (string), key_points (list), risky_claims (list), safe_claims (list).\n\n")
	fmt.Fprintf(&b, "TOPIC TYPE: %s\n", topic.Type)
	fmt.Fprintf(&b, "SOURCE: %s\n", topic.Source)
	fmt.Fprintf(&b, "TOPIC: %s\n", topic.Topic)
	fmt.Fprintf(&b, "DETAILS: %s\n", jsonValue(topic.Details))
	fmt.Fprintf(&b, "URL: %s\n", topic.URL)
	return b.String()
}

func ideatePrompt(p *persona.Profile, scout scoutResult) string {
	var b strings.Builder
	b.WriteString("You are an ideation assistant. Propose strong angles, hooks, and CTAs.\n")
	b.WriteString("Return JSON with keys: angles (list), hooks (list), ctas (list).\n\n")
	fmt.Fprintf(&b, "PERSONA: %s\n", p.Name)
	fmt.Fprintf(&b, "BIO: %s\n", p.Bio)
	fmt.Fprintf(&b, "ROLE: %s\n", p.Role)
	fmt.Fprintf(&b, "TONE: %s\n", toneLine(p.Tone))
	fmt.Fprintf(&b, "STANCE: %s\n", jsonValue(p.Stance))
	fmt.Fprintf(&b, "HOT TAKES: %s\n", jsonValue(p.HotTakes))
	fmt.Fprintf(&b, "FORBIDDEN: %s\n", jsonValue(p.ForbiddenPhrases))
	fmt.Fprintf(&b, "EXAMPLES: %s\n\n", jsonValue(p.Examples))
	fmt.Fprintf(&b, "SCOUT SUMMARY: %s\n", scout.Summary)
	fmt.Fprintf(&b, "KEY POINTS: %s\n", jsonValue(scout.KeyPoints))
	return b.String()
}

func styleTransferPrompt(topic TopicData, p *persona.Profile, scout scoutResult) string {
	example := ""
	if s, ok := topic.Details["style_example"].(string); ok && s != "" {
		example = s
	} else if s, ok := topic.Details["reference_post"].(string); ok {
		example = s
	}

	var b strings.Builder
	b.WriteString("You are a style analyst. Extract voice patterns and structure without copying.\n")
	b.WriteString("Return JSON with keys: style_notes (string), patterns (list), do_not_copy (list).\n\n")
	fmt.Fprintf(&b, "PERSONA: %s\n", p.Name)
	fmt.Fprintf(&b, "PERSONA EXAMPLES: %s\n", jsonValue(p.Examples))
	fmt.Fprintf(&b, "TOPIC: %s\n", topic.Topic)
	fmt.Fprintf(&b, "SCOUT SUMMARY: %s\n", scout.Summary)
	fmt.Fprintf(&b, "STYLE EXAMPLE: %s\n", example)
	return b.String()
}

func hotTakePrompt(topic TopicData, p *persona.Profile, scout scoutResult) string {
	var b strings.Builder
	b.WriteString("Generate spicy but safe hot-take options. No financial advice.\n")
	b.WriteString("Return JSON with keys: hot_takes (list), hook_options (list), cta_options (list).\n\n")
	fmt.Fprintf(&b, "PERSONA: %s\n", p.Name)
	fmt.Fprintf(&b, "STANCE: %s\n", jsonValue(p.Stance))
	fmt.Fprintf(&b, "HOT TAKES: %s\n", jsonValue(p.HotTakes))
	fmt.Fprintf(&b, "TOPIC: %s\n", topic.Topic)
	fmt.Fprintf(&b, "SCOUT SUMMARY: %s\n", scout.Summary)
	return b.String()
}

func draftPrompt(topic TopicData, p *persona.Profile, scout scoutResult, ideate ideateResult, style styleResult, hotTake hotTakeResult) string {
	var b strings.Builder
	b.WriteString("You are drafting a single X/Twitter post. No hashtags. Max 250 chars preferred, hard max 280.\n")
	b.WriteString("Return JSON with keys: content (string), is_thread (bool), thread_parts (list), visual_prompt (string).\n\n")
	fmt.Fprintf(&b, "PERSONA: %s\n", p.Name)
	fmt.Fprintf(&b, "VOICE BIO: %s\n", p.Bio)
	fmt.Fprintf(&b, "ROLE: %s\n", p.Role)
	fmt.Fprintf(&b, "TONE SLIDERS: %s\n", toneLine(p.Tone))
	fmt.Fprintf(&b, "STANCE BULLETS: %s\n", jsonValue(p.Stance))
	fmt.Fprintf(&b, "HOT TAKES: %s\n", jsonValue(p.HotTakes))
	fmt.Fprintf(&b, "FORBIDDEN PHRASES: %s\n", jsonValue(p.ForbiddenPhrases))
	fmt.Fprintf(&b, "EXAMPLES: %s\n\n", jsonValue(p.Examples))
	fmt.Fprintf(&b, "TOPIC: %s\n", topic.Topic)
	fmt.Fprintf(&b, "DETAILS: %s\n", jsonValue(topic.Details))
	fmt.Fprintf(&b, "SCOUT SUMMARY: %s\n", scout.Summary)
	fmt.Fprintf(&b, "ANGLES: %s\n", jsonValue(ideate.Angles))
	fmt.Fprintf(&b, "HOOKS: %s\n", jsonValue(ideate.Hooks))
	fmt.Fprintf(&b, "CTAS: %s\n", jsonValue(ideate.CTAs))
	fmt.Fprintf(&b, "STYLE NOTES: %s\n", style.StyleNotes)
	fmt.Fprintf(&b, "STYLE PATTERNS: %s\n", jsonValue(style.Patterns))
	fmt.Fprintf(&b, "DO NOT COPY: %s\n", jsonValue(style.DoNotCopy))
	fmt.Fprintf(&b, "HOT TAKE OPTIONS: %s\n", jsonValue(hotTake.HotTakes))
	fmt.Fprintf(&b, "HOT HOOKS: %s\n", jsonValue(hotTake.HookOptions))
	fmt.Fprintf(&b, "HOT CTAS: %s\n", jsonValue(hotTake.CTAOptions))
	return b.String()
}

func qualityPrompt(p *persona.Profile, draft draftPayload) string {
	var b strings.Builder
	b.WriteString("You are a strict editor. Score the draft 0-10 and list issues.\n")
	b.WriteString("Catch bland hooks, repetition, vague claims, weak CTAs.\n")
	b.WriteString("Return JSON with keys: score (number), issues (list), improvements (list).\n\n")
	fmt.Fprintf(&b, "PERSONA: %s\n", p.Name)
	fmt.Fprintf(&b, "FORBIDDEN PHRASES: %s\n", jsonValue(p.ForbiddenPhrases))
	fmt.Fprintf(&b, "DRAFT: %s\n", draft.Content)
	return b.String()
}

func rewritePrompt(p *persona.Profile, draft draftPayload, quality qualityResult, avoidText string) string {
	var b strings.Builder
	b.WriteString("Rewrite the draft to address issues. No hashtags. Max 250 chars preferred, hard max 280.\n")
	b.WriteString("Return JSON with keys: content (string), is_thread (bool), thread_parts (list), visual_prompt (string).\n\n")
	fmt.Fprintf(&b, "PERSONA: %s\n", p.Name)
	fmt.Fprintf(&b, "ISSUES: %s\n", jsonValue(quality.Issues))
	fmt.Fprintf(&b, "IMPROVEMENTS: %s\n", jsonValue(quality.Improvements))
	fmt.Fprintf(&b, "AVOID TEXT: %s\n", avoidText)
	fmt.Fprintf(&b, "ORIGINAL: %s\n", draft.Content)
	return b.String()
}
