package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"bamboolab/models"

	"gorm.io/gorm"
)

// stubGenerator returns a canned question set or a canned error.
type stubGenerator struct {
	questions []GeneratedQuestion
	err       error

	calls       int
	gotPaths    []string
	gotSubject  string
	gotRequests string
}

func (g *stubGenerator) GenerateQuestions(ctx context.Context, filePaths []string, subject, requirements string) ([]GeneratedQuestion, error) {
	g.calls++
	g.gotPaths = filePaths
	g.gotSubject = subject
	g.gotRequests = requirements
	return g.questions, g.err
}

func generatedQuestion(text string) GeneratedQuestion {
	return GeneratedQuestion{
		Question:   text,
		Difficulty: models.DifficultyMedium,
		Answers: []GeneratedAnswer{
			{Text: "A", IsCorrect: true, Explanation: "vì vậy"},
			{Text: "B"},
			{Text: "C"},
			{Text: "D"},
		},
	}
}

func newDocumentService(t *testing.T, db *gorm.DB, gen Generator) *DocumentService {
	t.Helper()
	return NewDocumentService(db, nil, gen, t.TempDir())
}

func createDocument(t *testing.T, db *gorm.DB, s *DocumentService) *models.Document {
	t.Helper()
	user := seedUser(t, db, "staff")
	subject := seedSubject(t, db, "Toán")
	document, err := s.Create(user.ID, subject.ID, "Đề cương chương 1", "tập trung vào hàm số", []FileUpload{
		{Name: "chuong1.pdf", Content: strings.NewReader("nội dung")},
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return document
}

func TestCreateDocumentValidation(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "staff")
	subject := seedSubject(t, db, "Toán")
	s := newDocumentService(t, db, &stubGenerator{})

	if _, err := s.Create(user.ID, subject.ID, "", "", []FileUpload{{Name: "a.pdf", Content: strings.NewReader("x")}}); err == nil {
		t.Error("empty title accepted")
	}
	if _, err := s.Create(user.ID, subject.ID, "Tài liệu", "", nil); !errors.Is(err, ErrNoFiles) {
		t.Errorf("no files: err = %v, want ErrNoFiles", err)
	}
	if _, err := s.Create(user.ID, 999, "Tài liệu", "", []FileUpload{{Name: "a.pdf", Content: strings.NewReader("x")}}); !errors.Is(err, ErrSubjectNotFound) {
		t.Errorf("unknown subject: err = %v, want ErrSubjectNotFound", err)
	}

	// No documents left behind by refused creations.
	var count int64
	if err := db.Model(&models.Document{}).Count(&count).Error; err != nil {
		t.Fatalf("failed to count documents: %v", err)
	}
	if count != 0 {
		t.Errorf("found %d documents, want 0", count)
	}
}

func TestCreateDocumentStoresFiles(t *testing.T) {
	db := newTestDB(t)
	s := newDocumentService(t, db, &stubGenerator{})
	document := createDocument(t, db, s)

	if document.Status != models.DocumentStatusPending {
		t.Errorf("status = %q, want pending", document.Status)
	}

	var files []models.UploadedFile
	if err := db.Where("document_id = ?", document.ID).Find(&files).Error; err != nil {
		t.Fatalf("failed to load uploaded files: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("stored %d files, want 1", len(files))
	}
	if files[0].Name != "chuong1.pdf" {
		t.Errorf("file name = %q, want chuong1.pdf", files[0].Name)
	}
}

func TestProcessCompletesDocument(t *testing.T) {
	db := newTestDB(t)
	gen := &stubGenerator{questions: []GeneratedQuestion{
		generatedQuestion("Câu 1?"),
		generatedQuestion("Câu 2?"),
		{Question: "Không có đáp án đúng?", Answers: []GeneratedAnswer{{Text: "A"}}},
	}}
	s := newDocumentService(t, db, gen)
	document := createDocument(t, db, s)

	s.process(context.Background(), document.ID, "tập trung vào hàm số")

	if gen.calls != 1 {
		t.Fatalf("generator called %d times, want 1", gen.calls)
	}
	if gen.gotSubject != "Toán" {
		t.Errorf("generator saw subject %q, want Toán", gen.gotSubject)
	}
	if gen.gotRequests != "tập trung vào hàm số" {
		t.Errorf("generator saw requirements %q", gen.gotRequests)
	}
	if len(gen.gotPaths) != 1 {
		t.Errorf("generator saw %d paths, want 1", len(gen.gotPaths))
	}

	status, err := s.Status(document.ID)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Status != models.DocumentStatusCompleted {
		t.Errorf("status = %q, want completed", status.Status)
	}
	if status.Progress != 100 {
		t.Errorf("progress = %d, want 100", status.Progress)
	}
	if status.ErrorMessage != "" {
		t.Errorf("error_message = %q, want empty", status.ErrorMessage)
	}
	// The answerless question never reaches the database.
	if status.QuestionCount != 2 {
		t.Errorf("question_count = %d, want 2", status.QuestionCount)
	}

	questions, err := s.Questions(document.ID)
	if err != nil {
		t.Fatalf("Questions failed: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("persisted %d questions, want 2", len(questions))
	}
	for _, question := range questions {
		if question.DocumentID == nil || *question.DocumentID != document.ID {
			t.Errorf("question %d not linked to the document", question.ID)
		}
		if len(question.Answers) != 4 {
			t.Errorf("question %d has %d answers, want 4", question.ID, len(question.Answers))
		}
		for _, answer := range question.Answers {
			if !answer.IsCorrect && answer.Explanation != "" {
				t.Errorf("incorrect answer %d carries an explanation", answer.ID)
			}
		}
	}
}

func TestProcessReplacesPreviousQuestions(t *testing.T) {
	db := newTestDB(t)
	gen := &stubGenerator{questions: []GeneratedQuestion{generatedQuestion("Cũ?")}}
	s := newDocumentService(t, db, gen)
	document := createDocument(t, db, s)

	s.process(context.Background(), document.ID, "")
	gen.questions = []GeneratedQuestion{generatedQuestion("Mới 1?"), generatedQuestion("Mới 2?")}
	s.process(context.Background(), document.ID, "")

	questions, err := s.Questions(document.ID)
	if err != nil {
		t.Fatalf("Questions failed: %v", err)
	}
	if len(questions) != 2 {
		t.Fatalf("have %d questions after reprocessing, want 2", len(questions))
	}
	for _, question := range questions {
		if question.Text == "Cũ?" {
			t.Error("stale question survived the swap")
		}
	}
}

func TestProcessGeneratorFailureIsTerminal(t *testing.T) {
	db := newTestDB(t)
	gen := &stubGenerator{err: ErrGenerationFailed}
	s := newDocumentService(t, db, gen)
	document := createDocument(t, db, s)

	s.process(context.Background(), document.ID, "")

	status, err := s.Status(document.ID)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Status != models.DocumentStatusFailed {
		t.Errorf("status = %q, want failed", status.Status)
	}
	if status.Progress != 0 {
		t.Errorf("progress = %d, want 0 after failure", status.Progress)
	}
	if !strings.HasPrefix(status.ErrorMessage, "Lỗi xử lý:") {
		t.Errorf("error_message = %q, want the Vietnamese failure prefix", status.ErrorMessage)
	}
	if status.QuestionCount != 0 {
		t.Errorf("question_count = %d, want 0", status.QuestionCount)
	}
}

func TestProcessEmptyGenerationFails(t *testing.T) {
	db := newTestDB(t)
	s := newDocumentService(t, db, &stubGenerator{questions: nil})
	document := createDocument(t, db, s)

	s.process(context.Background(), document.ID, "")

	status, err := s.Status(document.ID)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if status.Status != models.DocumentStatusFailed {
		t.Errorf("status = %q, want failed when generation yields nothing", status.Status)
	}
}

func TestStatusUnknownDocument(t *testing.T) {
	db := newTestDB(t)
	s := newDocumentService(t, db, &stubGenerator{})

	if _, err := s.Status(404); !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("err = %v, want ErrDocumentNotFound", err)
	}
}

func TestListDocuments(t *testing.T) {
	db := newTestDB(t)
	gen := &stubGenerator{questions: []GeneratedQuestion{generatedQuestion("Câu 1?")}}
	s := newDocumentService(t, db, gen)
	document := createDocument(t, db, s)
	s.process(context.Background(), document.ID, "")

	list, err := s.List()
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("listed %d documents, want 1", len(list))
	}
	if list[0].QuestionCount != 1 {
		t.Errorf("question_count = %d, want 1", list[0].QuestionCount)
	}
	if list[0].FilesCount != 1 {
		t.Errorf("files_count = %d, want 1", list[0].FilesCount)
	}
	if list[0].Subject.Name != "Toán" {
		t.Errorf("subject = %q, want Toán", list[0].Subject.Name)
	}
}
