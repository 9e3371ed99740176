// Package telemetry accounts token usage and cost per LLM call.
package telemetry

import (
	"fmt"
	"math"

	"github.com/content-machine/core/internal/models"
	"gorm.io/gorm"
)

// EstimateTokens approximates the token count of text as len/4, minimum 1.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		return 1
	}
	return n
}

// EstimateCost prices a call from per-1k token rates, rounded to 6 decimals.
func EstimateCost(inputTokens, outputTokens int, inputPer1K, outputPer1K float64) float64 {
	cost := float64(inputTokens)/1000*inputPer1K + float64(outputTokens)/1000*outputPer1K
	return math.Round(cost*1e6) / 1e6
}

// Service appends and summarizes usage records.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Record appends one usage row.
func (s *Service) Record(runID, persona, stage string, inputTokens, outputTokens int, costUSD float64, cached bool) error {
	row := models.UsageRecordModel{
		RunID:        runID,
		Persona:      persona,
		Stage:        stage,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostUSD:      costUSD,
		Cached:       cached,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return fmt.Errorf("telemetry record: %w", err)
	}
	return nil
}

// Summary totals a run's usage records.
type Summary struct {
	RunID        string  `json:"run_id"`
	Calls        int64   `json:"calls"`
	CachedCalls  int64   `json:"cached_calls"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// Summarize totals all records for runID.
func (s *Service) Summarize(runID string) (Summary, error) {
	var rows []models.UsageRecordModel
	if err := s.db.Where("run_id = ?", runID).Find(&rows).Error; err != nil {
		return Summary{}, fmt.Errorf("telemetry summarize: %w", err)
	}

	summary := Summary{RunID: runID}
	for _, row := range rows {
		summary.Calls++
		if row.Cached {
			summary.CachedCalls++
		}
		summary.InputTokens += int64(row.InputTokens)
		summary.OutputTokens += int64(row.OutputTokens)
		summary.CostUSD += row.CostUSD
	}
	summary.CostUSD = math.Round(summary.CostUSD*1e6) / 1e6
	return summary, nil
}
