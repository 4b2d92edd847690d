package models

import (
	"time"

	"gorm.io/gorm"
)

type Subject struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	Name        string         `json:"name" gorm:"uniqueIndex;not null"`
	Code        string         `json:"code"`
	Description string         `json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Questions []Question `json:"questions,omitempty" gorm:"foreignKey:SubjectID"`
	Documents []Document `json:"documents,omitempty" gorm:"foreignKey:SubjectID"`
}
