package models

// UsageRecordModel is one LLM call's token and cost accounting row.
type UsageRecordModel struct {
	Base
	RunID        string  `json:"run_id"  gorm:"type:varchar(32);index;not null"`
	Persona      string  `json:"persona" gorm:"type:varchar(64)"`
	Stage        string  `json:"stage"   gorm:"type:varchar(32)"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd"`
	Cached       bool    `json:"cached"`
}

func (UsageRecordModel) TableName() string { return "usage_records" }
