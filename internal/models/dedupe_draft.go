package models

// DedupeDraftModel records published draft text per persona for similarity checks.
type DedupeDraftModel struct {
	Base
	Persona string `json:"persona" gorm:"type:varchar(64);index;not null"`
	Content string `json:"content" gorm:"type:longtext"`
}

func (DedupeDraftModel) TableName() string { return "dedupe_drafts" }
