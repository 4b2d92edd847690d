package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"bamboolab/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type QuizHandler struct {
	quizService    *services.QuizService
	subjectService *services.SubjectService
}

func NewQuizHandler(quizService *services.QuizService, subjectService *services.SubjectService) *QuizHandler {
	return &QuizHandler{
		quizService:    quizService,
		subjectService: subjectService,
	}
}

func (h *QuizHandler) ListSubjects(c *gin.Context) {
	subjects, err := h.subjectService.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, subjects)
}

func (h *QuizHandler) StartQuiz(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	subjectID, err := strconv.ParseUint(c.Param("subjectId"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid subject ID"})
		return
	}

	attempt, err := h.quizService.StartQuiz(userID.(uint), uint(subjectID))
	if err != nil {
		if errors.Is(err, services.ErrSubjectNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Subject not found"})
			return
		}
		if errors.Is(err, services.ErrInsufficientQuestions) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"attempt_id": attempt.ID})
}

func (h *QuizHandler) GetAttempt(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid attempt ID"})
		return
	}

	attempt, remainingSeconds, err := h.quizService.GetAttempt(attemptID, userID.(uint))
	if err != nil {
		if errors.Is(err, services.ErrAttemptNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Quiz attempt not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"attempt":           attempt,
		"remaining_seconds": remainingSeconds,
	})
}

type SubmitQuizRequest struct {
	// Keys are question IDs of the attempt snapshot, values the selected
	// answer IDs. JSON object keys are strings; parsed below.
	Answers map[string]uint `json:"answers" binding:"required"`
}

func (h *QuizHandler) SubmitQuiz(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid attempt ID"})
		return
	}

	var req SubmitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	answers := make(map[uint]uint, len(req.Answers))
	for questionKey, answerID := range req.Answers {
		questionID, err := strconv.ParseUint(questionKey, 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid question ID in answers"})
			return
		}
		answers[uint(questionID)] = answerID
	}

	score, err := h.quizService.Submit(attemptID, userID.(uint), answers)
	if err != nil {
		if errors.Is(err, services.ErrAttemptNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Quiz attempt not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"score":    score,
		"redirect": "/quiz/result/" + attemptID.String(),
	})
}

func (h *QuizHandler) GetResult(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	attemptID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid attempt ID"})
		return
	}

	result, err := h.quizService.GetResult(attemptID, userID.(uint))
	if err != nil {
		if errors.Is(err, services.ErrAttemptNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Quiz result not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *QuizHandler) GetHistory(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	attempts, err := h.quizService.ListCompletedAttempts(userID.(uint))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, attempts)
}
