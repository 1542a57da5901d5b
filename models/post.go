package models

import "time"

// Post is a generated LinkedIn post kept by its owner.
type Post struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	Owner        string     `gorm:"size:128;index;not null" json:"-"`
	Topic        string     `gorm:"not null" json:"topic"`
	Content      string     `gorm:"type:text" json:"content"`
	ImageURL     string     `json:"imageUrl"`
	SavedAt      time.Time  `gorm:"index" json:"savedAt"`
	ScheduledFor *time.Time `gorm:"index" json:"scheduledFor"`
	NotifiedAt   *time.Time `json:"-"`
}
