package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/content-machine/core/internal/models"
	"github.com/content-machine/core/internal/modules/dedupe"
	"github.com/content-machine/core/internal/modules/imagen"
	"github.com/content-machine/core/internal/modules/persona"
	"github.com/content-machine/core/internal/modules/queue"
)

const rosterYAML = `
version: 1
personas:
  pro:
    name: "The Analyst"
    handle: "@proanalyst"
    bio: "Macro and market structure, no hopium"
    role: "market analyst"
    tone:
      meme: 0.1
      serious: 0.9
      educational: 0.7
    forbidden_phrases:
      - "to the moon"
    stance: ["flows over narratives"]
    hot_takes:
      - "ETF flows are the only signal that matters"
    examples:
      - "Watch the desk, not the chart."
  degen:
    name: "The Degen"
    handle: "@maxdegen"
    bio: "Full-time chart goblin"
    role: "shitposter"
    tone:
      meme: 0.9
      serious: 0.1
      educational: 0.2
    forbidden_phrases:
      - "financial advice"
    stance: ["volatility is the product"]
    hot_takes:
      - "Your stop loss is exit liquidity"
    examples:
      - "ser the candles"
`

const cleanDraft = "Flows lead price. Watch the desk, not the chart. What happens when inflows double?"

type fakeGenerator struct {
	calls     []string
	responses map[string][]map[string]any
	errs      map[string]error
}

func (f *fakeGenerator) GenerateJSON(ctx context.Context, stage, personaKey, prompt string) (map[string]any, error) {
	key := stage + "/" + personaKey
	f.calls = append(f.calls, key)
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	q := f.responses[stage]
	if len(q) == 0 {
		return nil, fmt.Errorf("no scripted response for stage %s", stage)
	}
	resp := q[0]
	// the last scripted response stays sticky for repeat calls
	if len(q) > 1 {
		f.responses[stage] = q[1:]
	}
	return resp, nil
}

func (f *fakeGenerator) stageCalls(stage string) []string {
	var out []string
	for _, call := range f.calls {
		if strings.HasPrefix(call, stage+"/") {
			out = append(out, call)
		}
	}
	return out
}

func baseResponses() map[string][]map[string]any {
	return map[string][]map[string]any{
		StageScout: {{
			"summary":      "ETF inflows are accelerating",
			"key_points":   []any{"record weekly inflows"},
			"risky_claims": []any{"price will double"},
			"safe_claims":  []any{"inflows grew week over week"},
		}},
		StageIdeate: {{
			"angles": []any{"flows lead price"},
			"hooks":  []any{"Everyone watched the chart"},
			"ctas":   []any{"What are you watching?"},
		}},
		StageStyleTransfer: {{
			"style_notes": "short declaratives, hook first",
			"patterns":    []any{"open with the claim"},
			"do_not_copy": []any{"verbatim lines"},
		}},
		StageHotTake: {{
			"hot_takes":    []any{"flows are the only signal"},
			"hook_options": []any{"watch the flows"},
			"cta_options":  []any{"agree or fade?"},
		}},
		StageDraft: {{
			"content":       cleanDraft,
			"is_thread":     false,
			"thread_parts":  []any{},
			"visual_prompt": "institutional flow chart",
		}},
		StageQualityCheck: {{
			"score":        9.0,
			"issues":       []any{},
			"improvements": []any{},
		}},
	}
}

type fakeExporter struct {
	runIDs   []string
	statuses []string
	err      error
}

func (f *fakeExporter) ExportRun(runID string, topic TopicData, drafts map[string]*DraftResult, status string) error {
	f.runIDs = append(f.runIDs, runID)
	f.statuses = append(f.statuses, status)
	return f.err
}

func newTestService(t *testing.T, fake *fakeGenerator) (*Service, *fakeExporter, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "pipeline.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.ContentItemModel{}, &models.DedupeDraftModel{}))

	roster, err := persona.Parse([]byte(rosterYAML))
	require.NoError(t, err)

	exp := &fakeExporter{}
	svc := &Service{
		log:    zap.NewNop(),
		roster: roster,
		dedupe: dedupe.NewStore(db),
		queue:  queue.NewService(db),
		imagen: imagen.NewGenerator(),
		export: exp,

		qualityMinScore: 7.0,
		maxPasses:       1,
		dedupeThreshold: 0.82,
		dedupeWindow:    24 * time.Hour,

		newGenerator: func(string) (generator, error) { return fake, nil },
	}
	return svc, exp, db
}

func TestRunQueuesPack(t *testing.T) {
	fake := &fakeGenerator{responses: baseResponses()}
	svc, exp, db := newTestService(t, fake)

	topic := TopicData{Topic: "Bitcoin ETF inflows hit a record"}
	result, err := svc.Run(context.Background(), topic, []string{"pro"}, false)
	require.NoError(t, err)

	assert.Len(t, result.RunID, 12)
	assert.False(t, result.DryRun)
	assert.Empty(t, result.Skipped)

	draft := result.PerPersona["pro"]
	require.NotNil(t, draft)
	assert.Equal(t, cleanDraft, draft.Content)
	assert.Equal(t, 9.0, draft.QualityScore)
	assert.Equal(t, []string{
		StageScout, StageIdeate, StageStyleTransfer,
		StageHotTake, StageDraft, StageQualityCheck,
	}, draft.StageHistory)
	assert.Equal(t, "flows lead price", draft.Angle)
	assert.Equal(t, "Everyone watched the chart", draft.Hook)
	assert.Equal(t, "What are you watching?", draft.CTA)

	pack := result.Pack
	require.NotNil(t, pack)
	assert.Equal(t, "v2", pack.PipelineVersion)
	assert.Equal(t, "trend", pack.ContentType)
	assert.Equal(t, "unknown", pack.Source)
	assert.Len(t, pack.ContentHash, 12)
	assert.Equal(t, result.RunID, pack.RunID)
	assert.Equal(t, 9.0, pack.QualityScore)
	assert.Equal(t, cleanDraft, pack.ProPost.Content)
	assert.Equal(t, "Generated by Content Machine v2 pipeline", pack.EngagementNotes)

	// every persona slot is present in visual_prompts, nil when skipped
	require.Len(t, pack.VisualPrompts, 3)
	require.NotNil(t, pack.VisualPrompts["pro"])
	assert.Equal(t, "institutional flow chart", *pack.VisualPrompts["pro"])
	work, ok := pack.VisualPrompts["work"]
	assert.True(t, ok)
	assert.Nil(t, work)
	degen, ok := pack.VisualPrompts["degen"]
	assert.True(t, ok)
	assert.Nil(t, degen)

	// missing personas keep their placeholder slot shape
	assert.Empty(t, pack.WorkPost.Content)
	assert.NotNil(t, pack.WorkPost.ThreadParts)
	assert.NotNil(t, pack.WorkPost.SuggestedHashtags)

	require.NotNil(t, result.ImagePrompts["pro"])
	assert.Contains(t, result.ImagePrompts["pro"].CopyPastePrompt, "institutional flow chart")
	assert.Nil(t, result.ImagePrompts["work"])

	var item models.ContentItemModel
	require.NoError(t, db.First(&item, "content_hash = ?", pack.ContentHash).Error)
	assert.Equal(t, cleanDraft, item.Pro.Content)
	assert.Equal(t, "institutional flow chart", item.Pro.ImagePrompt)
	assert.Equal(t, models.StatusPending, item.Status)

	assert.Equal(t, []string{"pending"}, exp.statuses)
	assert.Equal(t, []string{result.RunID}, exp.runIDs)
}

func TestRunDryRunSkipsQueue(t *testing.T) {
	fake := &fakeGenerator{responses: baseResponses()}
	svc, exp, db := newTestService(t, fake)

	result, err := svc.Run(context.Background(), TopicData{Topic: "quiet weekend"}, []string{"pro"}, true)
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	require.NotNil(t, result.Pack)

	var count int64
	require.NoError(t, db.Model(&models.ContentItemModel{}).Count(&count).Error)
	assert.Zero(t, count)

	// the export still runs, flagged as a dry run
	assert.Equal(t, []string{"dry_run"}, exp.statuses)
}

func TestRunExportFailureIsNotFatal(t *testing.T) {
	fake := &fakeGenerator{responses: baseResponses()}
	svc, exp, _ := newTestService(t, fake)
	exp.err = errors.New("disk full")

	result, err := svc.Run(context.Background(), TopicData{Topic: "etf flows"}, []string{"pro"}, false)
	require.NoError(t, err)
	require.NotNil(t, result.Pack)
}

func TestRunRewriteLoop(t *testing.T) {
	responses := baseResponses()
	responses[StageDraft] = []map[string]any{{
		"content":       "Flows lead price. Watch the desk.",
		"is_thread":     false,
		"thread_parts":  []any{},
		"visual_prompt": "flow chart",
	}}
	responses[StageQualityCheck] = []map[string]any{
		{"score": 5.0, "issues": []any{"No call to action"}, "improvements": []any{"end with a question"}},
		{"score": 9.0, "issues": []any{}, "improvements": []any{}},
	}
	responses[StageRewrite] = []map[string]any{{
		"content":       cleanDraft,
		"is_thread":     false,
		"thread_parts":  []any{},
		"visual_prompt": "flow chart",
	}}

	fake := &fakeGenerator{responses: responses}
	svc, _, _ := newTestService(t, fake)

	result, err := svc.Run(context.Background(), TopicData{Topic: "etf flows"}, []string{"pro"}, true)
	require.NoError(t, err)

	draft := result.PerPersona["pro"]
	require.NotNil(t, draft)
	assert.Equal(t, cleanDraft, draft.Content)
	assert.Equal(t, 9.0, draft.QualityScore)
	assert.Empty(t, draft.Issues)
	assert.Len(t, fake.stageCalls(StageRewrite), 1)
	assert.Len(t, fake.stageCalls(StageQualityCheck), 2)
}

func TestRunFlagsHashtagsAndTrimsLength(t *testing.T) {
	long := strings.Repeat("Flows lead price and the desk follows hard. ", 8) + "#alpha"
	responses := baseResponses()
	responses[StageDraft] = []map[string]any{{
		"content":       long,
		"is_thread":     false,
		"thread_parts":  []any{},
		"visual_prompt": "flow chart",
	}}

	fake := &fakeGenerator{responses: responses}
	svc, _, _ := newTestService(t, fake)
	svc.maxPasses = 0

	result, err := svc.Run(context.Background(), TopicData{Topic: "etf flows"}, []string{"pro"}, true)
	require.NoError(t, err)

	draft := result.PerPersona["pro"]
	require.NotNil(t, draft)
	assert.Equal(t, MaxPostLength, utf8.RuneCountInString(draft.Content))
	assert.True(t, strings.HasSuffix(draft.Content, "…"))
	assert.Contains(t, draft.Issues, "Contains hashtags (forbidden)")
	assert.Contains(t, draft.Issues, "Trimmed over length limit")
}

func TestRunDuplicateSkipsPersona(t *testing.T) {
	fake := &fakeGenerator{responses: baseResponses()}
	fake.responses[StageRewrite] = []map[string]any{{
		"content":       cleanDraft,
		"is_thread":     false,
		"thread_parts":  []any{},
		"visual_prompt": "flow chart",
	}}
	svc, _, _ := newTestService(t, fake)
	require.NoError(t, svc.dedupe.Add("pro", cleanDraft))

	result, err := svc.Run(context.Background(), TopicData{Topic: "etf flows"}, []string{"pro"}, true)
	require.NoError(t, err)

	assert.Nil(t, result.Pack)
	assert.Empty(t, result.PerPersona)
	assert.Equal(t, []string{"pro"}, result.Skipped)
	// exactly one avoid-text rewrite before giving up
	assert.Len(t, fake.stageCalls(StageRewrite), 1)
}

func TestRunDuplicateRewriteRecovers(t *testing.T) {
	rewritten := "Desks moved first again today. Retail is still reading headlines. Who front-runs whom?"
	fake := &fakeGenerator{responses: baseResponses()}
	fake.responses[StageRewrite] = []map[string]any{{
		"content":       rewritten,
		"is_thread":     false,
		"thread_parts":  []any{},
		"visual_prompt": "flow chart",
	}}
	svc, _, _ := newTestService(t, fake)
	require.NoError(t, svc.dedupe.Add("pro", cleanDraft))

	result, err := svc.Run(context.Background(), TopicData{Topic: "etf flows"}, []string{"pro"}, true)
	require.NoError(t, err)

	draft := result.PerPersona["pro"]
	require.NotNil(t, draft)
	assert.Equal(t, rewritten, draft.Content)
	assert.Contains(t, draft.Issues, "Duplicate similarity detected")
}

func TestRunDuplicateRewriteKeepsGuardrails(t *testing.T) {
	long := strings.Repeat("Desks moved first again today and retail is still reading headlines. ", 7) + "#alpha"
	fake := &fakeGenerator{responses: baseResponses()}
	fake.responses[StageRewrite] = []map[string]any{{
		"content":       long,
		"is_thread":     false,
		"thread_parts":  []any{},
		"visual_prompt": "flow chart",
	}}
	svc, _, _ := newTestService(t, fake)
	require.NoError(t, svc.dedupe.Add("pro", cleanDraft))

	result, err := svc.Run(context.Background(), TopicData{Topic: "etf flows"}, []string{"pro"}, true)
	require.NoError(t, err)

	// the dedupe rewrite goes through the same length and hashtag checks
	draft := result.PerPersona["pro"]
	require.NotNil(t, draft)
	assert.Equal(t, MaxPostLength, utf8.RuneCountInString(draft.Content))
	assert.True(t, strings.HasSuffix(draft.Content, "…"))
	assert.Contains(t, draft.Issues, "Duplicate similarity detected")
	assert.Contains(t, draft.Issues, "Contains hashtags (forbidden)")
	assert.Contains(t, draft.Issues, "Trimmed over length limit")
}

func TestRunPersonaFailureIsSkipped(t *testing.T) {
	fake := &fakeGenerator{
		responses: baseResponses(),
		errs:      map[string]error{StageScout + "/degen": errors.New("provider down")},
	}
	svc, _, _ := newTestService(t, fake)

	result, err := svc.Run(context.Background(), TopicData{Topic: "etf flows"}, []string{"pro", "degen"}, true)
	require.NoError(t, err)

	assert.Contains(t, result.PerPersona, "pro")
	assert.NotContains(t, result.PerPersona, "degen")
	assert.Equal(t, []string{"degen"}, result.Skipped)
	require.NotNil(t, result.Pack)
	assert.Empty(t, result.Pack.DegenPost.Content)
}

func TestRunUnknownPersonaFails(t *testing.T) {
	fake := &fakeGenerator{responses: baseResponses()}
	svc, _, _ := newTestService(t, fake)

	_, err := svc.Run(context.Background(), TopicData{Topic: "etf flows"}, []string{"ghost"}, true)
	assert.ErrorIs(t, err, persona.ErrNotFound)
}

func TestRunDuplicateTopicHashConflicts(t *testing.T) {
	fake := &fakeGenerator{responses: baseResponses()}
	svc, _, _ := newTestService(t, fake)
	svc.dedupe = nil

	topic := TopicData{Topic: "Bitcoin ETF inflows hit a record"}
	_, err := svc.Run(context.Background(), topic, []string{"pro"}, false)
	require.NoError(t, err)

	_, err = svc.Run(context.Background(), topic, []string{"pro"}, false)
	assert.ErrorIs(t, err, queue.ErrDuplicate)
}

func TestHeuristicIssues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		banned  []string
		want    []string
	}{
		{
			name:    "clean",
			content: "Desks moved first. Retail read headlines. Who front-runs whom?",
			want:    nil,
		},
		{
			name:    "bland hook and weak cta",
			content: "Interesting development in the market today.",
			want:    []string{"Bland hook", "Weak CTA"},
		},
		{
			name:    "repetition",
			content: "watch the flows, watch the flows, right?",
			want:    []string{"Repetition"},
		},
		{
			name:    "forbidden phrase",
			content: "We are going to the moon, right?",
			banned:  []string{"to the moon"},
			want:    []string{"Forbidden phrase: to the moon"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, heuristicIssues(tt.content, tt.banned))
		})
	}
}

func TestTopicNormalize(t *testing.T) {
	topic := TopicData{Topic: "funding flips negative"}
	topic.normalize()

	assert.Equal(t, "trend", topic.Type)
	assert.Equal(t, "unknown", topic.Source)
	assert.NotNil(t, topic.Details)
	assert.Len(t, topic.ContentHash, 12)
}
