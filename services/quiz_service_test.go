package services

import (
	"errors"
	"testing"

	"bamboolab/models"

	"gorm.io/gorm"
)

func newQuizService(db *gorm.DB) *QuizService {
	return NewQuizService(db, NewSubjectService(db))
}

func TestStartQuizSnapshotsQuestions(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "an")
	subject := seedSubject(t, db, "Toán")
	seedQuestions(t, db, subject.ID, 20)

	s := newQuizService(db)
	attempt, err := s.StartQuiz(user.ID, subject.ID)
	if err != nil {
		t.Fatalf("StartQuiz failed: %v", err)
	}
	if attempt.StartTime.IsZero() {
		t.Error("attempt has no start time")
	}
	if attempt.Completed {
		t.Error("fresh attempt is marked completed")
	}

	var count int64
	if err := db.Table("quiz_attempt_questions").Where("quiz_attempt_id = ?", attempt.ID).Count(&count).Error; err != nil {
		t.Fatalf("failed to count snapshot: %v", err)
	}
	if count != QuestionsPerAttempt {
		t.Errorf("snapshot holds %d questions, want %d", count, QuestionsPerAttempt)
	}
}

func TestStartQuizInsufficientPool(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "an")
	subject := seedSubject(t, db, "Lý")
	seedQuestions(t, db, subject.ID, QuestionsPerAttempt-1)

	s := newQuizService(db)
	if _, err := s.StartQuiz(user.ID, subject.ID); !errors.Is(err, ErrInsufficientQuestions) {
		t.Fatalf("err = %v, want ErrInsufficientQuestions", err)
	}

	// A refused start must not leave an attempt behind.
	var count int64
	if err := db.Model(&models.QuizAttempt{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count attempts: %v", err)
	}
	if count != 0 {
		t.Errorf("found %d attempts after a refused start, want 0", count)
	}
}

func TestStartQuizUnknownSubject(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "an")

	s := newQuizService(db)
	if _, err := s.StartQuiz(user.ID, 999); !errors.Is(err, ErrSubjectNotFound) {
		t.Fatalf("err = %v, want ErrSubjectNotFound", err)
	}
}

func TestGetAttemptOwnershipAndState(t *testing.T) {
	db := newTestDB(t)
	owner := seedUser(t, db, "an")
	other := seedUser(t, db, "binh")
	subject := seedSubject(t, db, "Hóa")
	seedQuestions(t, db, subject.ID, QuestionsPerAttempt)

	s := newQuizService(db)
	attempt, err := s.StartQuiz(owner.ID, subject.ID)
	if err != nil {
		t.Fatalf("StartQuiz failed: %v", err)
	}

	loaded, remaining, err := s.GetAttempt(attempt.ID, owner.ID)
	if err != nil {
		t.Fatalf("GetAttempt failed: %v", err)
	}
	if len(loaded.Questions) != QuestionsPerAttempt {
		t.Errorf("loaded %d questions, want %d", len(loaded.Questions), QuestionsPerAttempt)
	}
	if remaining <= 0 || remaining > int(QuizTimeLimit.Seconds()) {
		t.Errorf("remaining = %ds, want within (0, %d]", remaining, int(QuizTimeLimit.Seconds()))
	}
	for _, question := range loaded.Questions {
		if len(question.Answers) == 0 {
			t.Fatalf("question %d loaded without answer options", question.ID)
		}
	}

	if _, _, err := s.GetAttempt(attempt.ID, other.ID); !errors.Is(err, ErrAttemptNotFound) {
		t.Errorf("foreign attempt: err = %v, want ErrAttemptNotFound", err)
	}

	if _, err := s.Submit(attempt.ID, owner.ID, nil); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, _, err := s.GetAttempt(attempt.ID, owner.ID); !errors.Is(err, ErrAttemptNotFound) {
		t.Errorf("completed attempt: err = %v, want ErrAttemptNotFound", err)
	}
}

func TestSubmitScoresAttempt(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "an")
	subject := seedSubject(t, db, "Toán")
	seedQuestions(t, db, subject.ID, QuestionsPerAttempt)

	s := newQuizService(db)
	attempt, err := s.StartQuiz(user.ID, subject.ID)
	if err != nil {
		t.Fatalf("StartQuiz failed: %v", err)
	}

	loaded, _, err := s.GetAttempt(attempt.ID, user.ID)
	if err != nil {
		t.Fatalf("GetAttempt failed: %v", err)
	}

	// 12 right, 2 wrong, 2 unanswered.
	answers := make(map[uint]uint)
	for i, question := range loaded.Questions {
		switch {
		case i < 12:
			answers[question.ID] = correctAnswerID(t, db, question.ID)
		case i < 14:
			answers[question.ID] = wrongAnswerID(t, db, question.ID)
		}
	}

	score, err := s.Submit(attempt.ID, user.ID, answers)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if score != 7.5 {
		t.Errorf("score = %v, want 12/16*10 = 7.5", score)
	}

	var stored models.QuizAttempt
	if err := db.First(&stored, "id = ?", attempt.ID).Error; err != nil {
		t.Fatalf("failed to reload attempt: %v", err)
	}
	if !stored.Completed {
		t.Error("attempt not marked completed")
	}
	if stored.EndTime == nil {
		t.Error("attempt has no end time")
	}
	if stored.Score == nil || *stored.Score != score {
		t.Errorf("stored score = %v, want %v", stored.Score, score)
	}

	var storedAnswers int64
	if err := db.Model(&models.UserAnswer{}).Where("quiz_attempt_id = ?", attempt.ID).Count(&storedAnswers).Error; err != nil {
		t.Fatalf("failed to count stored answers: %v", err)
	}
	if storedAnswers != 14 {
		t.Errorf("stored %d user answers, want 14", storedAnswers)
	}

	// Resubmitting a completed attempt is refused.
	if _, err := s.Submit(attempt.ID, user.ID, answers); !errors.Is(err, ErrAttemptNotFound) {
		t.Errorf("resubmit: err = %v, want ErrAttemptNotFound", err)
	}

	recalculated, err := s.RecalculateScore(attempt.ID)
	if err != nil {
		t.Fatalf("RecalculateScore failed: %v", err)
	}
	if recalculated != score {
		t.Errorf("recalculated score = %v, want %v", recalculated, score)
	}
}

func TestSubmitIgnoresForeignAnswers(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "an")
	subject := seedSubject(t, db, "Lý")
	seedQuestions(t, db, subject.ID, QuestionsPerAttempt)

	s := newQuizService(db)
	attempt, err := s.StartQuiz(user.ID, subject.ID)
	if err != nil {
		t.Fatalf("StartQuiz failed: %v", err)
	}

	loaded, _, err := s.GetAttempt(attempt.ID, user.ID)
	if err != nil {
		t.Fatalf("GetAttempt failed: %v", err)
	}

	first := loaded.Questions[0]
	second := loaded.Questions[1]
	answers := map[uint]uint{
		first.ID:  correctAnswerID(t, db, first.ID),
		second.ID: correctAnswerID(t, db, first.ID), // not an option of question two
		999999:    12345,                            // question outside the snapshot
	}

	score, err := s.Submit(attempt.ID, user.ID, answers)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if want := attemptScore(1, QuestionsPerAttempt); score != want {
		t.Errorf("score = %v, want %v", score, want)
	}

	var storedAnswers int64
	if err := db.Model(&models.UserAnswer{}).Where("quiz_attempt_id = ?", attempt.ID).Count(&storedAnswers).Error; err != nil {
		t.Fatalf("failed to count stored answers: %v", err)
	}
	if storedAnswers != 1 {
		t.Errorf("stored %d user answers, want only the valid one", storedAnswers)
	}
}

func TestAttemptScore(t *testing.T) {
	tests := []struct {
		correct int
		total   int
		want    float64
	}{
		{0, 16, 0},
		{16, 16, 10},
		{12, 16, 7.5},
		{5, 16, 3.13},
		{1, 3, 3.33},
		{0, 0, 0},
	}
	for _, tt := range tests {
		if got := attemptScore(tt.correct, tt.total); got != tt.want {
			t.Errorf("attemptScore(%d, %d) = %v, want %v", tt.correct, tt.total, got, tt.want)
		}
	}
}

func TestGetResultBreakdown(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "an")
	subject := seedSubject(t, db, "Hóa")
	seedQuestions(t, db, subject.ID, QuestionsPerAttempt)

	s := newQuizService(db)
	attempt, err := s.StartQuiz(user.ID, subject.ID)
	if err != nil {
		t.Fatalf("StartQuiz failed: %v", err)
	}

	// Result for an in-progress attempt is refused.
	if _, err := s.GetResult(attempt.ID, user.ID); !errors.Is(err, ErrAttemptNotFound) {
		t.Fatalf("in-progress result: err = %v, want ErrAttemptNotFound", err)
	}

	loaded, _, err := s.GetAttempt(attempt.ID, user.ID)
	if err != nil {
		t.Fatalf("GetAttempt failed: %v", err)
	}
	answers := map[uint]uint{
		loaded.Questions[0].ID: correctAnswerID(t, db, loaded.Questions[0].ID),
		loaded.Questions[1].ID: wrongAnswerID(t, db, loaded.Questions[1].ID),
	}
	if _, err := s.Submit(attempt.ID, user.ID, answers); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	result, err := s.GetResult(attempt.ID, user.ID)
	if err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}
	if result.TotalQuestions != QuestionsPerAttempt {
		t.Errorf("total_questions = %d, want %d", result.TotalQuestions, QuestionsPerAttempt)
	}
	if result.CorrectCount != 1 {
		t.Errorf("correct_count = %d, want 1", result.CorrectCount)
	}

	answered, unanswered := 0, 0
	for _, qr := range result.Questions {
		if qr.CorrectAnswerID == 0 {
			t.Errorf("question %d has no correct answer in the breakdown", qr.Question.ID)
		}
		if qr.SelectedAnswerID == nil {
			unanswered++
			if qr.Correct {
				t.Errorf("unanswered question %d marked correct", qr.Question.ID)
			}
			continue
		}
		answered++
	}
	if answered != 2 {
		t.Errorf("answered = %d, want 2", answered)
	}
	if unanswered != QuestionsPerAttempt-2 {
		t.Errorf("unanswered = %d, want %d", unanswered, QuestionsPerAttempt-2)
	}
}

func TestListCompletedAttempts(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "an")
	subject := seedSubject(t, db, "Toán")
	seedQuestions(t, db, subject.ID, QuestionsPerAttempt)

	s := newQuizService(db)

	first, err := s.StartQuiz(user.ID, subject.ID)
	if err != nil {
		t.Fatalf("StartQuiz failed: %v", err)
	}
	if _, err := s.Submit(first.ID, user.ID, nil); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// A second attempt left in progress must not show up.
	if _, err := s.StartQuiz(user.ID, subject.ID); err != nil {
		t.Fatalf("StartQuiz failed: %v", err)
	}

	history, err := s.ListCompletedAttempts(user.ID)
	if err != nil {
		t.Fatalf("ListCompletedAttempts failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("history has %d attempts, want 1", len(history))
	}
	if history[0].ID != first.ID {
		t.Errorf("history[0] = %s, want %s", history[0].ID, first.ID)
	}
	if history[0].Subject.Name != subject.Name {
		t.Errorf("history subject = %q, want %q", history[0].Subject.Name, subject.Name)
	}
}
