package pipeline

import (
	"github.com/content-machine/core/internal/models"
	"github.com/content-machine/core/internal/modules/imagen"
	"github.com/content-machine/core/internal/pkg/contenthash"
)

// MaxPostLength is the hard character cap for a single post.
const MaxPostLength = 280

// PipelineVersion is stamped into every exported content pack.
const PipelineVersion = "v2"

// EngagementNotes is the fixed note attached to every generated pack.
const EngagementNotes = "Generated by Content Machine v2 pipeline"

// TopicData describes one scanned or manually submitted topic.
type TopicData struct {
	Topic       string         `json:"topic"`
	Type        string         `json:"type"`
	Source      string         `json:"source"`
	Details     map[string]any `json:"details"`
	URL         string         `json:"url"`
	ContentHash string         `json:"content_hash"`
}

// normalize fills defaults and derives the content hash when absent.
func (t *TopicData) normalize() {
	if t.Type == "" {
		t.Type = "trend"
	}
	if t.Source == "" {
		t.Source = "unknown"
	}
	if t.Details == nil {
		t.Details = map[string]any{}
	}
	if t.ContentHash == "" {
		t.ContentHash = contenthash.Generate(t.Topic)
	}
}

// DraftResult is one persona's finished draft with its audit trail.
type DraftResult struct {
	Persona      string   `json:"persona"`
	Content      string   `json:"content"`
	IsThread     bool     `json:"is_thread"`
	ThreadParts  []string `json:"thread_parts"`
	VisualPrompt string   `json:"visual_prompt"`
	Issues       []string `json:"issues"`
	QualityScore float64  `json:"quality_score"`
	StageHistory []string `json:"stage_history"`
	Angle        string   `json:"angle"`
	Hook         string   `json:"hook"`
	CTA          string   `json:"cta"`
}

// PackPost is one persona slot inside an assembled content pack. Missing
// personas get an empty placeholder slot.
type PackPost struct {
	Content           string   `json:"content"`
	IsThread          bool     `json:"is_thread"`
	ThreadParts       []string `json:"thread_parts"`
	SuggestedHashtags []string `json:"suggested_hashtags"`
}

// Pack is the assembled multi-persona content pack for one topic. The visual
// prompts map always carries one entry per persona slot, nil when the persona
// produced no draft.
type Pack struct {
	ContentHash     string             `json:"content_hash"`
	ContentType     string             `json:"content_type"`
	Source          string             `json:"source"`
	SourceTopic     string             `json:"source_topic"`
	SourceURL       string             `json:"source_url"`
	TopicSummary    string             `json:"topic_summary"`
	RunID           string             `json:"run_id"`
	PipelineVersion string             `json:"pipeline_version"`
	QualityScore    float64            `json:"quality_score"`
	ProPost         PackPost           `json:"pro_post"`
	WorkPost        PackPost           `json:"work_post"`
	DegenPost       PackPost           `json:"degen_post"`
	VisualPrompts   map[string]*string `json:"visual_prompts"`
	EngagementNotes string             `json:"engagement_notes"`
}

// Result is the outcome of one pipeline run. Pack is nil when every persona
// was skipped.
type Result struct {
	RunID        string                    `json:"run_id"`
	Pack         *Pack                     `json:"content_pack,omitempty"`
	PerPersona   map[string]*DraftResult   `json:"per_persona"`
	DryRun       bool                      `json:"dry_run"`
	Skipped      []string                  `json:"skipped"`
	ImagePrompts map[string]*imagen.Prompt `json:"image_prompts,omitempty"`
}

func (p *Pack) toModel() *models.ContentItemModel {
	return &models.ContentItemModel{
		ContentHash:     p.ContentHash,
		Source:          p.Source,
		SourceURL:       p.SourceURL,
		Topic:           p.SourceTopic,
		Pro:             slotFromPost(p.ProPost, stringValue(p.VisualPrompts["pro"])),
		Work:            slotFromPost(p.WorkPost, stringValue(p.VisualPrompts["work"])),
		Degen:           slotFromPost(p.DegenPost, stringValue(p.VisualPrompts["degen"])),
		EngagementNotes: p.EngagementNotes,
		QualityScore:    p.QualityScore,
		Status:          models.StatusPending,
	}
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func slotFromPost(post PackPost, visualPrompt string) models.PersonaSlot {
	return models.PersonaSlot{
		Content:     post.Content,
		IsThread:    post.IsThread,
		ThreadParts: post.ThreadParts,
		ImagePrompt: visualPrompt,
	}
}
