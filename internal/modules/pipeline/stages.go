package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/content-machine/core/internal/modules/persona"
)

// Stage names as recorded in a draft's stage history.
const (
	StageScout         = "SCOUT"
	StageIdeate        = "IDEATE"
	StageStyleTransfer = "STYLE_TRANSFER"
	StageHotTake       = "HOT_TAKE"
	StageDraft         = "DRAFT"
	StageQualityCheck  = "QUALITY_CHECK"
	StageRewrite       = "REWRITE"
)

type scoutResult struct {
	Summary     string
	KeyPoints   []string
	RiskyClaims []string
	SafeClaims  []string
}

type ideateResult struct {
	Angles []string
	Hooks  []string
	CTAs   []string
}

type styleResult struct {
	StyleNotes string
	Patterns   []string
	DoNotCopy  []string
}

type hotTakeResult struct {
	HotTakes    []string
	HookOptions []string
	CTAOptions  []string
}

type draftPayload struct {
	Content      string
	IsThread     bool
	ThreadParts  []string
	VisualPrompt string
}

type qualityResult struct {
	Score        float64
	Issues       []string
	Improvements []string
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func boolField(m map[string]any, key string) bool {
	b, _ := m[key].(bool)
	return b
}

func numberField(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		parsed, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return parsed
		}
	}
	return 0
}

func stringList(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		} else {
			out = append(out, fmt.Sprint(item))
		}
	}
	return out
}

func (s *Service) stageScout(ctx context.Context, gen generator, topic TopicData, p *persona.Profile) (scoutResult, error) {
	raw, err := gen.GenerateJSON(ctx, StageScout, p.Key, scoutPrompt(topic))
	if err != nil {
		return scoutResult{}, err
	}
	return scoutResult{
		Summary:     stringField(raw, "summary"),
		KeyPoints:   stringList(raw, "key_points"),
		RiskyClaims: stringList(raw, "risky_claims"),
		SafeClaims:  stringList(raw, "safe_claims"),
	}, nil
}

func (s *Service) stageIdeate(ctx context.Context, gen generator, p *persona.Profile, scout scoutResult) (ideateResult, error) {
	raw, err := gen.GenerateJSON(ctx, StageIdeate, p.Key, ideatePrompt(p, scout))
	if err != nil {
		return ideateResult{}, err
	}
	return ideateResult{
		Angles: stringList(raw, "angles"),
		Hooks:  stringList(raw, "hooks"),
		CTAs:   stringList(raw, "ctas"),
	}, nil
}

func (s *Service) stageStyleTransfer(ctx context.Context, gen generator, topic TopicData, p *persona.Profile, scout scoutResult) (styleResult, error) {
	raw, err := gen.GenerateJSON(ctx, StageStyleTransfer, p.Key, styleTransferPrompt(topic, p, scout))
	if err != nil {
		return styleResult{}, err
	}
	return styleResult{
		StyleNotes: stringField(raw, "style_notes"),
		Patterns:   stringList(raw, "patterns"),
		DoNotCopy:  stringList(raw, "do_not_copy"),
	}, nil
}

func (s *Service) stageHotTake(ctx context.Context, gen generator, topic TopicData, p *persona.Profile, scout scoutResult) (hotTakeResult, error) {
	raw, err := gen.GenerateJSON(ctx, StageHotTake, p.Key, hotTakePrompt(topic, p, scout))
	if err != nil {
		return hotTakeResult{}, err
	}
	return hotTakeResult{
		HotTakes:    stringList(raw, "hot_takes"),
		HookOptions: stringList(raw, "hook_options"),
		CTAOptions:  stringList(raw, "cta_options"),
	}, nil
}

func (s *Service) stageDraft(ctx context.Context, gen generator, topic TopicData, p *persona.Profile, scout scoutResult, ideate ideateResult, style styleResult, hotTake hotTakeResult) (draftPayload, error) {
	raw, err := gen.GenerateJSON(ctx, StageDraft, p.Key, draftPrompt(topic, p, scout, ideate, style, hotTake))
	if err != nil {
		return draftPayload{}, err
	}
	return parseDraftPayload(raw)
}

func parseDraftPayload(raw map[string]any) (draftPayload, error) {
	draft := draftPayload{
		Content:      stringField(raw, "content"),
		IsThread:     boolField(raw, "is_thread"),
		ThreadParts:  stringList(raw, "thread_parts"),
		VisualPrompt: stringField(raw, "visual_prompt"),
	}
	if draft.Content == "" {
		return draftPayload{}, errors.New("draft stage returned no content")
	}
	return draft, nil
}

func (s *Service) stageQuality(ctx context.Context, gen generator, p *persona.Profile, draft draftPayload) (qualityResult, error) {
	heuristics := heuristicIssues(draft.Content, p.ForbiddenPhrases)

	raw, err := gen.GenerateJSON(ctx, StageQualityCheck, p.Key, qualityPrompt(p, draft))
	if err != nil {
		return qualityResult{}, err
	}
	return qualityResult{
		Score:        numberField(raw, "score"),
		Issues:       mergeIssues(heuristics, stringList(raw, "issues")),
		Improvements: stringList(raw, "improvements"),
	}, nil
}

func (s *Service) stageRewrite(ctx context.Context, gen generator, p *persona.Profile, draft draftPayload, quality qualityResult, avoidText string) (draftPayload, error) {
	raw, err := gen.GenerateJSON(ctx, StageRewrite, p.Key, rewritePrompt(p, draft, quality, avoidText))
	if err != nil {
		return draftPayload{}, err
	}
	return parseDraftPayload(raw)
}
