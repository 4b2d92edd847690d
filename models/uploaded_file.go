package models

import (
	"time"

	"gorm.io/gorm"
)

type UploadedFile struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	DocumentID uint           `json:"document_id" gorm:"not null;index"`
	Name       string         `json:"name" gorm:"not null"`
	Path       string         `json:"path" gorm:"not null"`
	UploadedAt time.Time      `json:"uploaded_at" gorm:"autoCreateTime"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Document Document `json:"document,omitempty"`
}
