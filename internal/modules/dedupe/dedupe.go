// Package dedupe flags near-duplicate drafts per persona using n-gram
// Jaccard similarity over a recency window.
package dedupe

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/content-machine/core/internal/models"
	"gorm.io/gorm"
)

const shingleSize = 3

var wordRE = regexp.MustCompile(`[a-zA-Z0-9']+`)

// Normalize lower-cases text and tokenizes it into word runs, dropping
// tokens of length 1 or less.
func Normalize(text string) []string {
	raw := wordRE.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(raw))
	for _, tok := range raw {
		if len(tok) > 1 {
			tokens = append(tokens, tok)
		}
	}
	return tokens
}

// Shingles builds the n-gram set for tokens. When there are fewer than n
// tokens the whole-token set is used instead.
func Shingles(tokens []string, n int) map[string]struct{} {
	out := make(map[string]struct{})
	if len(tokens) < n {
		for _, tok := range tokens {
			out[tok] = struct{}{}
		}
		return out
	}
	for i := 0; i+n <= len(tokens); i++ {
		out[strings.Join(tokens[i:i+n], " ")] = struct{}{}
	}
	return out
}

// JaccardSimilarity returns |a ∩ b| / |a ∪ b|, or 0.0 when either set is
// empty.
func JaccardSimilarity(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}
	intersection := 0
	for item := range a {
		if _, ok := b[item]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// Similarity computes the shingle similarity of two raw texts.
func Similarity(a, b string) float64 {
	return JaccardSimilarity(
		Shingles(Normalize(a), shingleSize),
		Shingles(Normalize(b), shingleSize),
	)
}

// Result reports the closest recent draft found during a check.
type Result struct {
	IsDuplicate bool    `json:"is_duplicate"`
	Similarity  float64 `json:"similarity"`
	MatchedText string  `json:"matched_text,omitempty"`
}

// Store persists per-persona draft history for duplicate checks.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore creates a dedupe store over the shared database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Add appends a draft to the persona's history.
func (s *Store) Add(persona, content string) error {
	row := models.DedupeDraftModel{Persona: persona, Content: content}
	if err := s.db.Create(&row).Error; err != nil {
		return fmt.Errorf("dedupe add: %w", err)
	}
	return nil
}

// Check scans the persona's drafts inside the window and keeps the maximum
// similarity against content. The draft is a duplicate when that maximum
// reaches threshold.
func (s *Store) Check(persona, content string, threshold float64, window time.Duration) (Result, error) {
	cutoff := s.now().Add(-window)

	var rows []models.DedupeDraftModel
	err := s.db.
		Where("persona = ? AND created_at >= ?", persona, cutoff).
		Find(&rows).Error
	if err != nil {
		return Result{}, fmt.Errorf("dedupe check: %w", err)
	}

	candidate := Shingles(Normalize(content), shingleSize)

	best := Result{}
	for _, row := range rows {
		sim := JaccardSimilarity(candidate, Shingles(Normalize(row.Content), shingleSize))
		if sim > best.Similarity {
			best.Similarity = sim
			best.MatchedText = row.Content
		}
	}
	best.IsDuplicate = len(rows) > 0 && best.Similarity >= threshold
	return best, nil
}
