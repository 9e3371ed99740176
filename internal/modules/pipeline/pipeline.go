// Package pipeline orchestrates the multi-stage draft generation flow, one
// run per topic across the persona roster.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/content-machine/core/internal/config"
	"github.com/content-machine/core/internal/modules/cache"
	"github.com/content-machine/core/internal/modules/dedupe"
	"github.com/content-machine/core/internal/modules/imagen"
	"github.com/content-machine/core/internal/modules/llm"
	"github.com/content-machine/core/internal/modules/persona"
	"github.com/content-machine/core/internal/modules/queue"
	"github.com/content-machine/core/internal/modules/telemetry"
	"github.com/content-machine/core/internal/pkg/ratelimit"
)

type generator = llm.Generator

// Exporter writes run artifacts after pack assembly. Export failures are
// logged, never fatal to a run.
type Exporter interface {
	ExportRun(runID string, topic TopicData, drafts map[string]*DraftResult, status string) error
}

// Service runs topics through the generation stages and queues the result.
type Service struct {
	log    *zap.Logger
	roster *persona.Store
	dedupe *dedupe.Store
	queue  *queue.Service
	imagen *imagen.Generator
	export Exporter

	qualityMinScore float64
	maxPasses       int
	dedupeThreshold float64
	dedupeWindow    time.Duration

	newGenerator func(runID string) (generator, error)
}

// NewService wires the pipeline over shared stores. The rate limit gate and
// the per-run llm clients are created here so provider spacing holds across
// every run of this process.
func NewService(
	cfg *config.Settings,
	roster *persona.Store,
	cacheStore *cache.Store,
	dedupeStore *dedupe.Store,
	queueSvc *queue.Service,
	tel *telemetry.Service,
	export Exporter,
	log *zap.Logger,
) *Service {
	gate := ratelimit.NewGate(time.Duration(cfg.RateLimit.MinDelaySeconds * float64(time.Second)))

	return &Service{
		log:    log,
		roster: roster,
		dedupe: dedupeStore,
		queue:  queueSvc,
		imagen: imagen.NewGenerator(),
		export: export,

		qualityMinScore: cfg.Pipeline.QualityMinScore,
		maxPasses:       cfg.Pipeline.MaxRevisionPasses,
		dedupeThreshold: cfg.Dedupe.Threshold,
		dedupeWindow:    time.Duration(cfg.Dedupe.WindowHours) * time.Hour,

		newGenerator: func(runID string) (generator, error) {
			return llm.NewClient(cfg.LLM, cfg.RateLimit, cfg.Costs, runID, cacheStore, gate, tel, log)
		},
	}
}

func newRunID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// Run generates drafts for every requested persona (the whole roster when
// personas is empty), assembles the content pack, exports it, and queues it
// unless dryRun is set.
func (s *Service) Run(ctx context.Context, topic TopicData, personas []string, dryRun bool) (*Result, error) {
	runID := newRunID()

	gen, err := s.newGenerator(runID)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	if len(personas) == 0 {
		personas = s.roster.Keys()
	}
	topic.normalize()

	perPersona := make(map[string]*DraftResult)
	var skipped []string

	for _, key := range personas {
		profile, err := s.roster.Get(key)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", runID, err)
		}

		draft, err := s.runForPersona(ctx, gen, topic, profile)
		if err != nil {
			s.log.Error("persona run failed",
				zap.String("run_id", runID),
				zap.String("persona", key),
				zap.Error(err))
			skipped = append(skipped, key)
			continue
		}
		if draft == nil {
			skipped = append(skipped, key)
			continue
		}
		perPersona[key] = draft
	}

	result := &Result{
		RunID:      runID,
		PerPersona: perPersona,
		DryRun:     dryRun,
		Skipped:    skipped,
	}
	if len(perPersona) == 0 {
		return result, nil
	}

	pack := s.buildPack(topic, perPersona, runID)
	result.Pack = pack
	result.ImagePrompts = s.imagen.GenerateAll(pack.VisualPrompts)

	if s.export != nil {
		status := "pending"
		if dryRun {
			status = "dry_run"
		}
		if err := s.export.ExportRun(runID, topic, perPersona, status); err != nil {
			s.log.Error("export failed", zap.String("run_id", runID), zap.Error(err))
		}
	}

	if dryRun {
		s.log.Info("dry run, not queued", zap.String("run_id", runID))
		return result, nil
	}

	if err := s.queue.Add(pack.toModel()); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	s.log.Info("queued content pack",
		zap.String("run_id", runID),
		zap.String("content_hash", pack.ContentHash),
		zap.Strings("personas", mapKeys(perPersona)))
	return result, nil
}

func mapKeys(m map[string]*DraftResult) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

// runForPersona runs the six stages, the quality rewrite loop, the length
// and hashtag checks, and the duplicate gate. A nil draft with a nil error
// means the persona was skipped as an unavoidable duplicate.
func (s *Service) runForPersona(ctx context.Context, gen generator, topic TopicData, p *persona.Profile) (*DraftResult, error) {
	var history []string

	scout, err := s.stageScout(ctx, gen, topic, p)
	if err != nil {
		return nil, err
	}
	history = append(history, StageScout)

	ideate, err := s.stageIdeate(ctx, gen, p, scout)
	if err != nil {
		return nil, err
	}
	history = append(history, StageIdeate)

	style, err := s.stageStyleTransfer(ctx, gen, topic, p, scout)
	if err != nil {
		return nil, err
	}
	history = append(history, StageStyleTransfer)

	hotTake, err := s.stageHotTake(ctx, gen, topic, p, scout)
	if err != nil {
		return nil, err
	}
	history = append(history, StageHotTake)

	draft, err := s.stageDraft(ctx, gen, topic, p, scout, ideate, style, hotTake)
	if err != nil {
		return nil, err
	}
	history = append(history, StageDraft)

	quality, err := s.stageQuality(ctx, gen, p, draft)
	if err != nil {
		return nil, err
	}
	history = append(history, StageQualityCheck)

	for passes := 0; (quality.Score < s.qualityMinScore || len(quality.Issues) > 0) && passes < s.maxPasses; passes++ {
		draft, err = s.stageRewrite(ctx, gen, p, draft, quality, "")
		if err != nil {
			return nil, err
		}
		quality, err = s.stageQuality(ctx, gen, p, draft)
		if err != nil {
			return nil, err
		}
	}

	content, guardIssues := enforceGuardrails(draft.Content)
	quality.Issues = mergeIssues(quality.Issues, guardIssues)

	if s.dedupe != nil {
		check, err := s.dedupe.Check(p.Key, content, s.dedupeThreshold, s.dedupeWindow)
		if err != nil {
			return nil, err
		}
		if check.IsDuplicate {
			quality.Issues = append(quality.Issues, "Duplicate similarity detected")
			draft, err = s.stageRewrite(ctx, gen, p, draft, quality, check.MatchedText)
			if err != nil {
				return nil, err
			}
			content, guardIssues = enforceGuardrails(draft.Content)
			quality.Issues = mergeIssues(quality.Issues, guardIssues)

			check, err = s.dedupe.Check(p.Key, content, s.dedupeThreshold, s.dedupeWindow)
			if err != nil {
				return nil, err
			}
			if check.IsDuplicate {
				s.log.Warn("persona skipped, rewrite still duplicate",
					zap.String("persona", p.Key),
					zap.Float64("similarity", check.Similarity))
				return nil, nil
			}
		}

		if err := s.dedupe.Add(p.Key, content); err != nil {
			return nil, err
		}
	}

	visualPrompt := draft.VisualPrompt
	if visualPrompt == "" {
		visualPrompt = topic.Topic
	}

	return &DraftResult{
		Persona:      p.Key,
		Content:      content,
		IsThread:     draft.IsThread,
		ThreadParts:  draft.ThreadParts,
		VisualPrompt: visualPrompt,
		Issues:       quality.Issues,
		QualityScore: quality.Score,
		StageHistory: history,
		Angle:        firstOrEmpty(ideate.Angles),
		Hook:         firstOrEmpty(ideate.Hooks),
		CTA:          firstOrEmpty(ideate.CTAs),
	}, nil
}

// enforceGuardrails trims whitespace, flags hashtags, and hard-trims content
// over the post length limit. Every draft crossing the dedupe gate goes
// through it, including the avoid-text rewrite.
func enforceGuardrails(raw string) (string, []string) {
	content := strings.TrimSpace(raw)
	var issues []string
	if strings.Contains(content, "#") {
		issues = append(issues, "Contains hashtags (forbidden)")
	}
	if utf8.RuneCountInString(content) > MaxPostLength {
		runes := []rune(content)
		content = string(runes[:MaxPostLength-1]) + "…"
		issues = append(issues, "Trimmed over length limit")
	}
	return content, issues
}

func firstOrEmpty(list []string) string {
	if len(list) == 0 {
		return ""
	}
	return list[0]
}

// buildPack assembles the multi-persona content pack. Personas without a
// draft get empty placeholder slots so the pack shape stays fixed.
func (s *Service) buildPack(topic TopicData, perPersona map[string]*DraftResult, runID string) *Pack {
	post := func(key string) PackPost {
		draft, ok := perPersona[key]
		if !ok {
			return PackPost{ThreadParts: []string{}, SuggestedHashtags: []string{}}
		}
		parts := draft.ThreadParts
		if parts == nil {
			parts = []string{}
		}
		return PackPost{
			Content:           draft.Content,
			IsThread:          draft.IsThread,
			ThreadParts:       parts,
			SuggestedHashtags: []string{},
		}
	}

	summary := ""
	if len(topic.Details) > 0 {
		summary, _ = topic.Details["description"].(string)
	} else if runes := []rune(topic.Topic); len(runes) > 120 {
		summary = string(runes[:120])
	} else {
		summary = topic.Topic
	}

	total := 0.0
	for _, draft := range perPersona {
		total += draft.QualityScore
	}
	mean := total / float64(max(len(perPersona), 1))

	visualPrompts := make(map[string]*string, len(imagen.Personas))
	for _, key := range imagen.Personas {
		visualPrompts[key] = nil
		if draft, ok := perPersona[key]; ok {
			vp := draft.VisualPrompt
			visualPrompts[key] = &vp
		}
	}

	return &Pack{
		ContentHash:     topic.ContentHash,
		ContentType:     topic.Type,
		Source:          topic.Source,
		SourceTopic:     topic.Topic,
		SourceURL:       topic.URL,
		TopicSummary:    summary,
		RunID:           runID,
		PipelineVersion: PipelineVersion,
		QualityScore:    mean,
		ProPost:         post("pro"),
		WorkPost:        post("work"),
		DegenPost:       post("degen"),
		VisualPrompts:   visualPrompts,
		EngagementNotes: EngagementNotes,
	}
}
