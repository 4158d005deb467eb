package model

import "time"

// Signature is a reusable signature image. At most one signature is the default.
type Signature struct {
	ID        string `gorm:"primaryKey;not null"`
	Name      string `gorm:"not null"`
	ImagePath string `gorm:"not null"`
	IsDefault bool   `gorm:"not null;default:false;index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Signature) TableName() string {
	return "signatures"
}
