package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"bamboolab/models"
)

// ErrGenerationFailed covers upload failures, blocked prompts and unusable
// responses from the generation provider.
var ErrGenerationFailed = errors.New("question generation failed")

// GeneratedAnswer is one answer option as returned by the provider.
type GeneratedAnswer struct {
	Text        string `json:"text"`
	IsCorrect   bool   `json:"is_correct"`
	Explanation string `json:"explanation,omitempty"`
}

// GeneratedQuestion is one multiple-choice question as returned by the
// provider, before persistence.
type GeneratedQuestion struct {
	Question   string            `json:"question"`
	Difficulty string            `json:"difficulty"`
	Answers    []GeneratedAnswer `json:"answers"`
}

// Generator turns a set of document files into multiple-choice questions.
// Implementations call an external provider; the rest of the pipeline only
// sees this contract.
type Generator interface {
	GenerateQuestions(ctx context.Context, filePaths []string, subject, requirements string) ([]GeneratedQuestion, error)
}

// parseGeneratedQuestions decodes the provider's raw response. First stage is
// a plain JSON decode (tolerating a markdown code fence around the array),
// second stage is schema validation question by question: questions with no
// usable answers or without a correct answer are dropped, difficulty is
// normalized, and explanations are kept only on the correct answer.
func parseGeneratedQuestions(raw string) ([]GeneratedQuestion, error) {
	raw = stripCodeFence(raw)

	var decoded []GeneratedQuestion
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrGenerationFailed, err)
	}

	valid := make([]GeneratedQuestion, 0, len(decoded))
	for _, q := range decoded {
		cleaned, ok := validateQuestion(q)
		if !ok {
			log.Printf("Dropping generated question %q: no valid answer set", truncate(q.Question, 50))
			continue
		}
		valid = append(valid, cleaned)
	}
	return valid, nil
}

func validateQuestion(q GeneratedQuestion) (GeneratedQuestion, bool) {
	if strings.TrimSpace(q.Question) == "" {
		return q, false
	}

	difficulty := strings.ToLower(strings.TrimSpace(q.Difficulty))
	switch difficulty {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
	default:
		difficulty = models.DifficultyMedium
	}

	answers := make([]GeneratedAnswer, 0, len(q.Answers))
	hasCorrect := false
	for _, a := range q.Answers {
		if strings.TrimSpace(a.Text) == "" {
			log.Printf("Dropping empty answer of generated question %q", truncate(q.Question, 50))
			continue
		}
		if !a.IsCorrect {
			a.Explanation = ""
		} else {
			hasCorrect = true
		}
		answers = append(answers, a)
	}

	if len(answers) == 0 || !hasCorrect {
		return q, false
	}

	return GeneratedQuestion{
		Question:   strings.TrimSpace(q.Question),
		Difficulty: difficulty,
		Answers:    answers,
	}, true
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, "```json"); idx != -1 {
		s = s[idx+len("```json"):]
		if end := strings.Index(s, "```"); end != -1 {
			s = s[:end]
		}
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
