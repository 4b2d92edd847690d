package models

import (
	"time"

	"github.com/google/uuid"
)

// UserAnswer records the option a user picked for one question of one
// attempt. The composite unique index guarantees at most one stored answer
// per (attempt, question) pair.
type UserAnswer struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	QuizAttemptID    uuid.UUID `json:"quiz_attempt_id" gorm:"type:uuid;not null;uniqueIndex:idx_attempt_question"`
	QuestionID       uint      `json:"question_id" gorm:"not null;uniqueIndex:idx_attempt_question"`
	SelectedAnswerID uint      `json:"selected_answer_id" gorm:"not null"`
	SubmittedAt      time.Time `json:"submitted_at" gorm:"autoCreateTime"`

	// Relationships
	QuizAttempt    QuizAttempt `json:"quiz_attempt,omitempty"`
	Question       Question    `json:"question,omitempty"`
	SelectedAnswer Answer      `json:"selected_answer,omitempty" gorm:"foreignKey:SelectedAnswerID"`
}
