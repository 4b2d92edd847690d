package services

import (
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"bamboolab/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QuestionsPerAttempt is how many questions every attempt snapshots. Subjects
// with a smaller pool cannot be attempted.
const QuestionsPerAttempt = 16

// QuizTimeLimit drives the countdown shown to the user. The server accepts
// late submissions; the limit is display-only.
const QuizTimeLimit = 30 * time.Minute

var (
	ErrInsufficientQuestions = errors.New("subject does not have enough questions")
	ErrAttemptNotFound       = errors.New("quiz attempt not found")
)

type QuizService struct {
	db       *gorm.DB
	subjects *SubjectService
}

func NewQuizService(db *gorm.DB, subjects *SubjectService) *QuizService {
	return &QuizService{db: db, subjects: subjects}
}

// StartQuiz draws a uniform random sample of QuestionsPerAttempt questions
// from the subject's pool and creates an attempt snapshotting exactly that
// set. Nothing is created when the pool is too small.
func (s *QuizService) StartQuiz(userID uint, subjectID uint) (*models.QuizAttempt, error) {
	subject, err := s.subjects.GetByID(subjectID)
	if err != nil {
		return nil, err
	}

	var pool []models.Question
	if err := s.db.Where("subject_id = ?", subject.ID).Find(&pool).Error; err != nil {
		return nil, err
	}
	if len(pool) < QuestionsPerAttempt {
		return nil, fmt.Errorf("%w: %s has %d of %d", ErrInsufficientQuestions, subject.Name, len(pool), QuestionsPerAttempt)
	}

	rand.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	selected := pool[:QuestionsPerAttempt]

	attempt := models.QuizAttempt{
		UserID:    userID,
		SubjectID: subject.ID,
		StartTime: time.Now(),
	}

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Create(&attempt).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Model(&attempt).Association("Questions").Append(selected); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	return &attempt, nil
}

// GetAttempt loads an in-progress attempt for display, with its question
// snapshot and answer options. Completed attempts and attempts owned by
// someone else are reported as not found.
func (s *QuizService) GetAttempt(attemptID uuid.UUID, userID uint) (*models.QuizAttempt, int, error) {
	var attempt models.QuizAttempt
	err := s.db.Where("id = ? AND user_id = ? AND completed = ?", attemptID, userID, false).
		Preload("Subject").
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.id")
		}).
		Preload("Questions.Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.position")
		}).
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, 0, ErrAttemptNotFound
	}
	if err != nil {
		return nil, 0, err
	}

	remaining := QuizTimeLimit - time.Since(attempt.StartTime)
	if remaining < 0 {
		remaining = 0
	}

	return &attempt, int(remaining.Seconds()), nil
}

// Submit closes an attempt: it marks it completed, stamps the end time,
// replaces any stored answers with the submitted ones and computes the score,
// all inside one transaction. Submitted answers that do not belong to a
// question of the snapshot are skipped. answers maps question ID to the
// selected answer ID.
func (s *QuizService) Submit(attemptID uuid.UUID, userID uint, answers map[uint]uint) (float64, error) {
	var score float64

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var attempt models.QuizAttempt
	err := tx.Where("id = ? AND user_id = ? AND completed = ?", attemptID, userID, false).
		Preload("Questions.Answers").
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return 0, ErrAttemptNotFound
	}
	if err != nil {
		tx.Rollback()
		return 0, err
	}

	if err := tx.Where("quiz_attempt_id = ?", attempt.ID).Delete(&models.UserAnswer{}).Error; err != nil {
		tx.Rollback()
		return 0, err
	}

	correct := 0
	for _, question := range attempt.Questions {
		selectedID, ok := answers[question.ID]
		if !ok {
			continue
		}

		var selected *models.Answer
		for i := range question.Answers {
			if question.Answers[i].ID == selectedID {
				selected = &question.Answers[i]
				break
			}
		}
		if selected == nil {
			log.Printf("Ignoring answer %d: not an option of question %d in attempt %s", selectedID, question.ID, attempt.ID)
			continue
		}

		userAnswer := models.UserAnswer{
			QuizAttemptID:    attempt.ID,
			QuestionID:       question.ID,
			SelectedAnswerID: selected.ID,
		}
		if err := tx.Create(&userAnswer).Error; err != nil {
			tx.Rollback()
			return 0, err
		}
		if selected.IsCorrect {
			correct++
		}
	}

	score = attemptScore(correct, len(attempt.Questions))

	now := time.Now()
	err = tx.Model(&models.QuizAttempt{}).Where("id = ?", attempt.ID).
		Updates(map[string]interface{}{
			"completed": true,
			"end_time":  now,
			"score":     score,
		}).Error
	if err != nil {
		tx.Rollback()
		return 0, err
	}

	if err := tx.Commit().Error; err != nil {
		return 0, err
	}

	return score, nil
}

// attemptScore maps a correct count onto the 0-10 scale.
func attemptScore(correct, total int) float64 {
	if total == 0 {
		return 0.0
	}
	return roundTo(float64(correct)/float64(total)*10, 2)
}

// RecalculateScore rederives a completed attempt's score from its stored
// UserAnswers. The result always matches what Submit computed.
func (s *QuizService) RecalculateScore(attemptID uuid.UUID) (float64, error) {
	var attempt models.QuizAttempt
	err := s.db.Where("id = ? AND completed = ?", attemptID, true).
		Preload("Questions.Answers").
		Preload("UserAnswers").
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, ErrAttemptNotFound
	}
	if err != nil {
		return 0, err
	}

	correctIDs := make(map[uint]bool)
	for _, question := range attempt.Questions {
		for _, answer := range question.Answers {
			if answer.IsCorrect {
				correctIDs[answer.ID] = true
			}
		}
	}

	correct := 0
	for _, ua := range attempt.UserAnswers {
		if correctIDs[ua.SelectedAnswerID] {
			correct++
		}
	}

	return attemptScore(correct, len(attempt.Questions)), nil
}

// QuestionResult pairs a snapshotted question with what the user picked and
// what was actually correct.
type QuestionResult struct {
	Question         models.Question `json:"question"`
	SelectedAnswerID *uint           `json:"selected_answer_id"`
	CorrectAnswerID  uint            `json:"correct_answer_id"`
	Correct          bool            `json:"correct"`
}

type QuizResult struct {
	Attempt        models.QuizAttempt `json:"attempt"`
	Questions      []QuestionResult   `json:"questions"`
	CorrectCount   int                `json:"correct_count"`
	TotalQuestions int                `json:"total_questions"`
}

// GetResult builds the per-question breakdown of a completed attempt.
func (s *QuizService) GetResult(attemptID uuid.UUID, userID uint) (*QuizResult, error) {
	var attempt models.QuizAttempt
	err := s.db.Where("id = ? AND user_id = ? AND completed = ?", attemptID, userID, true).
		Preload("Subject").
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("questions.id")
		}).
		Preload("Questions.Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.position")
		}).
		Preload("UserAnswers").
		First(&attempt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}

	selectedByQuestion := make(map[uint]uint, len(attempt.UserAnswers))
	for _, ua := range attempt.UserAnswers {
		selectedByQuestion[ua.QuestionID] = ua.SelectedAnswerID
	}

	result := QuizResult{
		Attempt:        attempt,
		TotalQuestions: len(attempt.Questions),
	}

	for _, question := range attempt.Questions {
		qr := QuestionResult{Question: question}
		for _, answer := range question.Answers {
			if answer.IsCorrect {
				qr.CorrectAnswerID = answer.ID
				break
			}
		}
		if selectedID, ok := selectedByQuestion[question.ID]; ok {
			id := selectedID
			qr.SelectedAnswerID = &id
			if id == qr.CorrectAnswerID {
				qr.Correct = true
				result.CorrectCount++
			}
		}
		result.Questions = append(result.Questions, qr)
	}

	return &result, nil
}

// ListCompletedAttempts is the user's quiz history, newest first.
func (s *QuizService) ListCompletedAttempts(userID uint) ([]models.QuizAttempt, error) {
	var attempts []models.QuizAttempt
	err := s.db.Where("user_id = ? AND completed = ?", userID, true).
		Preload("Subject").
		Order("end_time DESC").
		Find(&attempts).Error
	return attempts, err
}
