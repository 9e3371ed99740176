package models

import "time"

// ContentStatus is the review lifecycle state of a queued content item.
type ContentStatus string

const (
	StatusPending  ContentStatus = "pending"
	StatusApproved ContentStatus = "approved"
	StatusPosted   ContentStatus = "posted"
	StatusRejected ContentStatus = "rejected"
	StatusExpired  ContentStatus = "expired"
)

// PersonaSlot holds one persona's rendition of a content item.
type PersonaSlot struct {
	Content     string   `json:"content"      gorm:"type:longtext"`
	IsThread    bool     `json:"is_thread"`
	ThreadParts []string `json:"thread_parts" gorm:"type:longtext;serializer:json"`
	ImagePrompt string   `json:"image_prompt" gorm:"type:longtext"`
}

// ContentItemModel is a generated content pack awaiting review.
type ContentItemModel struct {
	Base
	ContentHash     string        `json:"content_hash" gorm:"type:char(12);uniqueIndex;not null"`
	Source          string        `json:"source"       gorm:"index"`
	SourceURL       string        `json:"source_url"`
	Topic           string        `json:"topic"        gorm:"type:longtext"`
	Pro             PersonaSlot   `json:"pro"          gorm:"embedded;embeddedPrefix:pro_"`
	Work            PersonaSlot   `json:"work"         gorm:"embedded;embeddedPrefix:work_"`
	Degen           PersonaSlot   `json:"degen"        gorm:"embedded;embeddedPrefix:degen_"`
	EngagementNotes string        `json:"engagement_notes" gorm:"type:longtext"`
	QualityScore    float64       `json:"quality_score"`
	Status          ContentStatus `json:"status"       gorm:"type:varchar(16);index;default:pending"`
	ApprovedAt      *time.Time    `json:"approved_at"`
}

func (ContentItemModel) TableName() string { return "content_items" }
