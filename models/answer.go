package models

import (
	"gorm.io/gorm"
)

// Answer belongs to exactly one Question. Explanation is only stored on the
// correct answer; that is a convention of the generation pipeline, not a
// database constraint.
type Answer struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	QuestionID  uint           `json:"question_id" gorm:"not null;index"`
	Text        string         `json:"text" gorm:"not null"`
	IsCorrect   bool           `json:"is_correct" gorm:"not null;default:false"`
	Explanation string         `json:"explanation"`
	Position    int            `json:"position" gorm:"not null;default:0"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Question Question `json:"question,omitempty"`
}
