package services

import (
	"path/filepath"
	"testing"

	"bamboolab/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens a throwaway SQLite database with the full schema migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.User{},
		&models.Candidate{},
		&models.Subject{},
		&models.Question{},
		&models.Answer{},
		&models.Document{},
		&models.UploadedFile{},
		&models.QuizAttempt{},
		&models.UserAnswer{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

func seedCandidate(t *testing.T, db *gorm.DB, c models.Candidate) models.Candidate {
	t.Helper()
	if c.ExamType == "" {
		c.ExamType = "data1"
	}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("failed to seed candidate: %v", err)
	}
	return c
}

func seedUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{Username: username, Password: "x"}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func seedSubject(t *testing.T, db *gorm.DB, name string) models.Subject {
	t.Helper()
	subject := models.Subject{Name: name}
	if err := db.Create(&subject).Error; err != nil {
		t.Fatalf("failed to seed subject: %v", err)
	}
	return subject
}

// seedQuestions creates n four-option questions for the subject. The first
// option of each question is the correct one.
func seedQuestions(t *testing.T, db *gorm.DB, subjectID uint, n int) []models.Question {
	t.Helper()

	questions := make([]models.Question, 0, n)
	for i := 0; i < n; i++ {
		question := models.Question{
			SubjectID:  subjectID,
			Text:       "question",
			Difficulty: models.DifficultyMedium,
		}
		if err := db.Create(&question).Error; err != nil {
			t.Fatalf("failed to seed question: %v", err)
		}
		for pos := 0; pos < 4; pos++ {
			answer := models.Answer{
				QuestionID: question.ID,
				Text:       "option",
				IsCorrect:  pos == 0,
				Position:   pos,
			}
			if err := db.Create(&answer).Error; err != nil {
				t.Fatalf("failed to seed answer: %v", err)
			}
		}
		questions = append(questions, question)
	}
	return questions
}

// correctAnswerID returns the ID of the correct option of a question.
func correctAnswerID(t *testing.T, db *gorm.DB, questionID uint) uint {
	t.Helper()
	var answer models.Answer
	if err := db.Where("question_id = ? AND is_correct = ?", questionID, true).First(&answer).Error; err != nil {
		t.Fatalf("failed to load correct answer of question %d: %v", questionID, err)
	}
	return answer.ID
}

// wrongAnswerID returns the ID of some incorrect option of a question.
func wrongAnswerID(t *testing.T, db *gorm.DB, questionID uint) uint {
	t.Helper()
	var answer models.Answer
	if err := db.Where("question_id = ? AND is_correct = ?", questionID, false).First(&answer).Error; err != nil {
		t.Fatalf("failed to load wrong answer of question %d: %v", questionID, err)
	}
	return answer.ID
}
