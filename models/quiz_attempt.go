package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuizAttempt is one timed run through a quiz. The UUID primary key keeps
// attempt URLs non-enumerable. Questions is a fixed snapshot taken at start
// time; later changes to the subject's pool do not touch it. An attempt is
// mutated exactly once, at submission, when Completed/EndTime/Score are set.
type QuizAttempt struct {
	ID        uuid.UUID  `json:"id" gorm:"type:uuid;primaryKey"`
	UserID    uint       `json:"user_id" gorm:"not null;index"`
	SubjectID uint       `json:"subject_id" gorm:"not null;index"`
	StartTime time.Time  `json:"start_time" gorm:"not null"`
	EndTime   *time.Time `json:"end_time"`
	Score     *float64   `json:"score"` // 0-10 scale, nil until completed
	Completed bool       `json:"completed" gorm:"not null;default:false"`

	// Relationships
	User        User         `json:"user,omitempty"`
	Subject     Subject      `json:"subject,omitempty"`
	Questions   []Question   `json:"questions,omitempty" gorm:"many2many:quiz_attempt_questions;"`
	UserAnswers []UserAnswer `json:"user_answers,omitempty" gorm:"foreignKey:QuizAttemptID"`
}

func (a *QuizAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.StartTime.IsZero() {
		a.StartTime = time.Now()
	}
	return nil
}
