package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"bamboolab/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrNoFiles          = errors.New("document has no files")
)

const progressCacheTTL = time.Hour

// FileUpload is one incoming document file before it is stored.
type FileUpload struct {
	Name    string
	Content io.Reader
}

// DocumentStatus is the polled view of a processing job.
type DocumentStatus struct {
	Status          string `json:"status"`
	Progress        int    `json:"progress"`
	ProgressMessage string `json:"progress_message"`
	ErrorMessage    string `json:"error_message"`
	QuestionCount   int64  `json:"question_count"`
}

// DocumentSummary is a document row with its derived counts, for listings.
type DocumentSummary struct {
	models.Document
	QuestionCount int64 `json:"question_count"`
	FilesCount    int64 `json:"files_count"`
}

// DocumentService owns the upload-to-questions pipeline. Creation is
// synchronous; processing runs in a background goroutine and is observed
// through Status polling. A failed job stays failed; there is no retry.
type DocumentService struct {
	db        *gorm.DB
	redis     *redis.Client
	generator Generator
	uploadDir string
}

func NewDocumentService(db *gorm.DB, redisClient *redis.Client, generator Generator, uploadDir string) *DocumentService {
	return &DocumentService{
		db:        db,
		redis:     redisClient,
		generator: generator,
		uploadDir: uploadDir,
	}
}

// Create validates the upload, stores the files on disk and creates the
// pending document. Files that cannot be stored are skipped; when none
// survive the document is not created at all.
func (s *DocumentService) Create(authorID, subjectID uint, title, requirements string, files []FileUpload) (*models.Document, error) {
	if title == "" {
		return nil, fmt.Errorf("title is required")
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	var subject models.Subject
	if err := s.db.First(&subject, subjectID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubjectNotFound
		}
		return nil, err
	}

	document := models.Document{
		Title:                  title,
		SubjectID:              subject.ID,
		AuthorID:               authorID,
		Status:                 models.DocumentStatusPending,
		AdditionalRequirements: requirements,
	}
	if err := s.db.Create(&document).Error; err != nil {
		return nil, err
	}

	dir := filepath.Join(s.uploadDir, fmt.Sprintf("document_%d", document.ID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		s.db.Delete(&document)
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	saved := 0
	for _, file := range files {
		path := filepath.Join(dir, filepath.Base(file.Name))
		if err := saveFile(path, file.Content); err != nil {
			log.Printf("Failed to store uploaded file %s: %v", file.Name, err)
			continue
		}
		record := models.UploadedFile{
			DocumentID: document.ID,
			Name:       file.Name,
			Path:       path,
		}
		if err := s.db.Create(&record).Error; err != nil {
			log.Printf("Failed to record uploaded file %s: %v", file.Name, err)
			continue
		}
		saved++
	}

	if saved == 0 {
		s.db.Delete(&document)
		return nil, ErrNoFiles
	}

	return &document, nil
}

func saveFile(path string, content io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, content)
	return err
}

// StartProcessing launches the generation job off the request path.
func (s *DocumentService) StartProcessing(documentID uint, requirements string) {
	go s.process(context.Background(), documentID, requirements)
}

func (s *DocumentService) process(ctx context.Context, documentID uint, requirements string) {
	var document models.Document
	if err := s.db.Preload("Subject").Preload("UploadedFiles").First(&document, documentID).Error; err != nil {
		log.Printf("Document %d does not exist, nothing to process: %v", documentID, err)
		return
	}

	if err := s.runPipeline(ctx, &document, requirements); err != nil {
		log.Printf("Error processing document %d: %v", documentID, err)
		document.Status = models.DocumentStatusFailed
		document.Progress = 0
		document.ErrorMessage = fmt.Sprintf("Lỗi xử lý: %v", err)
		if err := s.persistState(&document); err != nil {
			log.Printf("Failed to record failure of document %d: %v", documentID, err)
		}
		s.cacheStatus(&document)
	}
}

func (s *DocumentService) runPipeline(ctx context.Context, document *models.Document, requirements string) error {
	s.setProgress(document, models.DocumentStatusProcessing, 10, "Đang chuẩn bị xử lý tài liệu...")

	if len(document.UploadedFiles) == 0 {
		return ErrNoFiles
	}

	paths := make([]string, 0, len(document.UploadedFiles))
	for _, file := range document.UploadedFiles {
		if _, err := os.Stat(file.Path); err != nil {
			log.Printf("File path not found: %s (uploaded file %d), skipping", file.Path, file.ID)
			continue
		}
		paths = append(paths, file.Path)
	}
	if len(paths) == 0 {
		return ErrNoFiles
	}

	s.setProgress(document, models.DocumentStatusProcessing, 20,
		fmt.Sprintf("Đang tải lên %d tệp tài liệu...", len(paths)))

	s.setProgress(document, models.DocumentStatusProcessing, 50, "Đang tạo câu hỏi từ tài liệu sử dụng AI...")

	questions, err := s.generator.GenerateQuestions(ctx, paths, document.Subject.Name, requirements)
	if err != nil {
		return err
	}
	if len(questions) == 0 {
		return fmt.Errorf("%w: generation returned no usable questions", ErrGenerationFailed)
	}

	s.setProgress(document, models.DocumentStatusProcessing, 80,
		fmt.Sprintf("Đã tạo %d câu hỏi. Đang lưu vào cơ sở dữ liệu...", len(questions)))

	saved, err := s.replaceQuestions(document, questions)
	if err != nil {
		return err
	}

	document.Status = models.DocumentStatusCompleted
	document.Progress = 100
	document.ProgressMessage = fmt.Sprintf("Hoàn thành! Đã tạo %d câu hỏi.", saved)
	document.ErrorMessage = ""
	if err := s.persistState(document); err != nil {
		return err
	}
	s.cacheStatus(document)
	log.Printf("Successfully processed document %d: %d questions", document.ID, saved)
	return nil
}

// replaceQuestions swaps the document's question set for the generated one.
// Questions without any answer or without a correct answer never reach the
// database. The whole swap is one transaction.
func (s *DocumentService) replaceQuestions(document *models.Document, questions []GeneratedQuestion) (int, error) {
	saved := 0

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var old []models.Question
	if err := tx.Where("document_id = ?", document.ID).Find(&old).Error; err != nil {
		tx.Rollback()
		return 0, err
	}
	for _, q := range old {
		if err := tx.Where("question_id = ?", q.ID).Delete(&models.Answer{}).Error; err != nil {
			tx.Rollback()
			return 0, err
		}
	}
	if err := tx.Where("document_id = ?", document.ID).Delete(&models.Question{}).Error; err != nil {
		tx.Rollback()
		return 0, err
	}

	for i, q := range questions {
		hasCorrect := false
		for _, a := range q.Answers {
			if a.IsCorrect {
				hasCorrect = true
				break
			}
		}
		if len(q.Answers) == 0 || !hasCorrect {
			log.Printf("Skipping generated question %q: no correct answer", truncate(q.Question, 50))
			continue
		}

		docID := document.ID
		question := models.Question{
			SubjectID:  document.SubjectID,
			Text:       q.Question,
			Difficulty: q.Difficulty,
			DocumentID: &docID,
		}
		if err := tx.Create(&question).Error; err != nil {
			tx.Rollback()
			return 0, err
		}

		for pos, a := range q.Answers {
			explanation := ""
			if a.IsCorrect {
				explanation = a.Explanation
			}
			answer := models.Answer{
				QuestionID:  question.ID,
				Text:        a.Text,
				IsCorrect:   a.IsCorrect,
				Explanation: explanation,
				Position:    pos,
			}
			if err := tx.Create(&answer).Error; err != nil {
				tx.Rollback()
				return 0, err
			}
		}
		saved++

		if i%5 == 0 || i == len(questions)-1 {
			// Progress through the save phase, published after commit.
			document.Progress = 80 + 15*(i+1)/len(questions)
			document.ProgressMessage = fmt.Sprintf("Đang lưu câu hỏi %d/%d...", i+1, len(questions))
		}
	}

	if err := tx.Commit().Error; err != nil {
		return 0, err
	}
	return saved, nil
}

func (s *DocumentService) setProgress(document *models.Document, status string, progress int, message string) {
	document.Status = status
	document.Progress = progress
	document.ProgressMessage = message
	if err := s.persistState(document); err != nil {
		log.Printf("Failed to persist progress of document %d: %v", document.ID, err)
	}
	s.cacheStatus(document)
}

// persistState writes only the job-tracking columns; the document may carry
// preloaded associations that must not be re-saved.
func (s *DocumentService) persistState(document *models.Document) error {
	return s.db.Model(&models.Document{}).Where("id = ?", document.ID).
		Updates(map[string]interface{}{
			"status":           document.Status,
			"progress":         document.Progress,
			"progress_message": document.ProgressMessage,
			"error_message":    document.ErrorMessage,
		}).Error
}

func progressCacheKey(documentID uint) string {
	return fmt.Sprintf("document:status:%d", documentID)
}

// cacheStatus mirrors the current status into Redis so pollers do not hit the
// database on every tick. Best effort: Redis being down only costs the cache.
func (s *DocumentService) cacheStatus(document *models.Document) {
	if s.redis == nil {
		return
	}

	var questionCount int64
	if err := s.db.Model(&models.Question{}).Where("document_id = ?", document.ID).Count(&questionCount).Error; err != nil {
		log.Printf("Failed to count questions of document %d: %v", document.ID, err)
	}

	status := DocumentStatus{
		Status:          document.Status,
		Progress:        document.Progress,
		ProgressMessage: document.ProgressMessage,
		ErrorMessage:    document.ErrorMessage,
		QuestionCount:   questionCount,
	}
	data, err := json.Marshal(status)
	if err != nil {
		return
	}
	if err := s.redis.Set(context.Background(), progressCacheKey(document.ID), data, progressCacheTTL).Err(); err != nil {
		log.Printf("Failed to cache status of document %d in Redis: %v", document.ID, err)
	}
}

// Status is the polling endpoint's view of a job: Redis first, database as
// the source of truth on a cache miss.
func (s *DocumentService) Status(documentID uint) (*DocumentStatus, error) {
	if s.redis != nil {
		data, err := s.redis.Get(context.Background(), progressCacheKey(documentID)).Bytes()
		if err == nil {
			var status DocumentStatus
			if err := json.Unmarshal(data, &status); err == nil {
				return &status, nil
			}
		}
	}

	var document models.Document
	if err := s.db.First(&document, documentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}

	var questionCount int64
	if err := s.db.Model(&models.Question{}).Where("document_id = ?", documentID).Count(&questionCount).Error; err != nil {
		return nil, err
	}

	return &DocumentStatus{
		Status:          document.Status,
		Progress:        document.Progress,
		ProgressMessage: document.ProgressMessage,
		ErrorMessage:    document.ErrorMessage,
		QuestionCount:   questionCount,
	}, nil
}

func (s *DocumentService) GetByID(documentID uint) (*models.Document, error) {
	var document models.Document
	err := s.db.Preload("Subject").Preload("UploadedFiles").First(&document, documentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &document, nil
}

// List returns all documents newest first, with question and file counts.
func (s *DocumentService) List() ([]DocumentSummary, error) {
	var documents []models.Document
	if err := s.db.Preload("Subject").Order("created_at DESC").Find(&documents).Error; err != nil {
		return nil, err
	}

	out := make([]DocumentSummary, 0, len(documents))
	for _, document := range documents {
		var questionCount, filesCount int64
		if err := s.db.Model(&models.Question{}).Where("document_id = ?", document.ID).Count(&questionCount).Error; err != nil {
			return nil, err
		}
		if err := s.db.Model(&models.UploadedFile{}).Where("document_id = ?", document.ID).Count(&filesCount).Error; err != nil {
			return nil, err
		}
		out = append(out, DocumentSummary{Document: document, QuestionCount: questionCount, FilesCount: filesCount})
	}
	return out, nil
}

// Questions lists the generated questions of one document with their answers.
func (s *DocumentService) Questions(documentID uint) ([]models.Question, error) {
	if _, err := s.GetByID(documentID); err != nil {
		return nil, err
	}

	var questions []models.Question
	err := s.db.Where("document_id = ?", documentID).
		Preload("Answers", func(db *gorm.DB) *gorm.DB {
			return db.Order("answers.position")
		}).
		Order("id").
		Find(&questions).Error
	return questions, err
}
