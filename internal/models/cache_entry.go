package models

import "time"

// CacheEntryModel is a stored LLM response keyed by request digest.
type CacheEntryModel struct {
	Base
	CacheKey  string    `json:"cache_key"  gorm:"type:char(64);uniqueIndex;not null"`
	Value     string    `json:"value"      gorm:"type:longtext"`
	ExpiresAt time.Time `json:"expires_at" gorm:"index"`
}

func (CacheEntryModel) TableName() string { return "cache_entries" }
