package models

import "time"

// Detection is one analysed upload and the condition the matcher settled on.
type Detection struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Owner       string    `gorm:"size:128;index;not null" json:"-"`
	Condition   string    `gorm:"type:text;not null" json:"condition"`
	Known       bool      `json:"known"`                     // false when the unknown-condition fallback was used
	Confidence  float64   `json:"confidence"`                // raw score, 0..1
	Labels      string    `gorm:"type:text" json:"labels"` // JSON array of {description, score}
	ImageURL    string    `json:"image_url,omitempty"`
	AdvisorUsed bool      `json:"advisor_used"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}
