package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Question must always carry at least one answer with exactly one of them
// marked correct; questions violating that are purged at creation time and
// never reach a quiz.
type Question struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	SubjectID  uint           `json:"subject_id" gorm:"not null;index"`
	Text       string         `json:"text" gorm:"not null"`
	Difficulty string         `json:"difficulty" gorm:"not null;default:'medium'"`
	DocumentID *uint          `json:"document_id" gorm:"index"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Subject  Subject   `json:"subject,omitempty"`
	Document *Document `json:"document,omitempty"`
	Answers  []Answer  `json:"answers,omitempty" gorm:"foreignKey:QuestionID"`
}
