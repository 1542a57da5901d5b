package models

import "time"

type Alert struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Owner     string    `gorm:"size:128;index" json:"owner"`
	Type      string    `gorm:"size:32" json:"type"` // "post.due" | "detection.created"
	Message   string    `gorm:"type:text" json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
