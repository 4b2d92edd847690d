package services

import (
	"errors"
	"strings"

	"bamboolab/models"

	"gorm.io/gorm"
)

var ErrSubjectNotFound = errors.New("subject not found")

// SubjectWithCount is a subject plus how many questions its pool holds.
type SubjectWithCount struct {
	models.Subject
	QuestionCount int64 `json:"question_count"`
}

type SubjectService struct {
	db *gorm.DB
}

func NewSubjectService(db *gorm.DB) *SubjectService {
	return &SubjectService{db: db}
}

// GetOrCreate normalizes a free-text subject name into a single canonical
// Subject row.
func (s *SubjectService) GetOrCreate(name string) (*models.Subject, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrSubjectNotFound
	}

	var subject models.Subject
	err := s.db.Where("name = ?", name).First(&subject).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		subject = models.Subject{Name: name}
		err = s.db.Create(&subject).Error
	}
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

func (s *SubjectService) GetByID(subjectID uint) (*models.Subject, error) {
	var subject models.Subject
	err := s.db.First(&subject, subjectID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSubjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &subject, nil
}

// List returns all subjects ordered by name, each with its question count.
func (s *SubjectService) List() ([]SubjectWithCount, error) {
	var subjects []models.Subject
	if err := s.db.Order("name").Find(&subjects).Error; err != nil {
		return nil, err
	}

	out := make([]SubjectWithCount, 0, len(subjects))
	for _, subject := range subjects {
		var count int64
		if err := s.db.Model(&models.Question{}).
			Where("subject_id = ?", subject.ID).Count(&count).Error; err != nil {
			return nil, err
		}
		out = append(out, SubjectWithCount{Subject: subject, QuestionCount: count})
	}
	return out, nil
}
