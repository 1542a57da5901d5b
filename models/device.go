package models

import "time"

// Device is a phone registered for push alerts through an SNS platform endpoint.
type Device struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Owner       string    `gorm:"size:128;index" json:"-"`
	Platform    string    `gorm:"size:16" json:"platform"` // "android" | "ios"
	TokenHash   string    `gorm:"size:64;index" json:"-"`
	EndpointARN string    `gorm:"size:256" json:"endpoint_arn"`
	Enabled     bool      `gorm:"default:true" json:"enabled"`
	UpdatedAt   time.Time `json:"updated_at"`
	CreatedAt   time.Time `json:"created_at"`
}
