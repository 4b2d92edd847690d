package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	Username  string         `json:"username" gorm:"uniqueIndex;not null"`
	Password  string         `json:"-" gorm:"not null"`
	Name      string         `json:"name"`
	IsStaff   bool           `json:"is_staff" gorm:"not null;default:false"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Relationships
	Documents    []Document    `json:"documents,omitempty" gorm:"foreignKey:AuthorID"`
	QuizAttempts []QuizAttempt `json:"quiz_attempts,omitempty" gorm:"foreignKey:UserID"`
}
