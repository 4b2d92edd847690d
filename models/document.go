package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	DocumentStatusPending    = "pending"
	DocumentStatusProcessing = "processing"
	DocumentStatusCompleted  = "completed"
	DocumentStatusFailed     = "failed"
)

// Document is an upload batch submitted for question generation. Status moves
// pending -> processing -> completed|failed; failed is terminal and is never
// retried automatically.
type Document struct {
	ID                     uint           `json:"id" gorm:"primaryKey"`
	Title                  string         `json:"title" gorm:"not null"`
	SubjectID              uint           `json:"subject_id" gorm:"not null;index"`
	AuthorID               uint           `json:"author_id" gorm:"not null;index"`
	Status                 string         `json:"status" gorm:"not null;default:'pending'"`
	ErrorMessage           string         `json:"error_message"`
	AdditionalRequirements string         `json:"additional_requirements"`
	Progress               int            `json:"progress" gorm:"not null;default:0"` // 0-100
	ProgressMessage        string         `json:"progress_message"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
	DeletedAt              gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Subject       Subject        `json:"subject,omitempty"`
	Author        User           `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	UploadedFiles []UploadedFile `json:"uploaded_files,omitempty" gorm:"foreignKey:DocumentID"`
	Questions     []Question     `json:"questions,omitempty" gorm:"foreignKey:DocumentID"`
}
