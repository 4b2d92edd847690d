package services

import (
	"context"
	"fmt"
	"log"
	"mime"
	"path/filepath"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// GeminiGenerator generates questions with the Gemini API. Document files go
// through the File API; uploaded remote files are deleted again in all
// outcomes.
type GeminiGenerator struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiGenerator(ctx context.Context, apiKey, modelName string) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("error initializing Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.GenerationConfig.ResponseMIMEType = "application/json"

	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

// GenerateQuestions uploads the files, asks the model for a JSON array of
// questions and parses the response. Individual file uploads may fail as long
// as at least one succeeds.
func (g *GeminiGenerator) GenerateQuestions(ctx context.Context, filePaths []string, subject, requirements string) ([]GeneratedQuestion, error) {
	var uploaded []*genai.File
	defer func() {
		for _, f := range uploaded {
			if err := g.client.DeleteFile(context.Background(), f.Name); err != nil {
				log.Printf("Failed to delete remote file %s: %v", f.Name, err)
			}
		}
	}()

	for _, path := range filePaths {
		file, err := g.client.UploadFileFromPath(ctx, path, &genai.UploadFileOptions{
			MIMEType: guessMIMEType(path),
		})
		if err != nil {
			log.Printf("Failed to upload %s to the File API: %v", path, err)
			continue
		}
		uploaded = append(uploaded, file)
	}
	if len(uploaded) == 0 {
		return nil, fmt.Errorf("%w: no file could be uploaded", ErrGenerationFailed)
	}

	parts := []genai.Part{genai.Text(buildGenerationPrompt(subject, requirements))}
	for _, f := range uploaded {
		parts = append(parts, genai.FileData{URI: f.URI, MIMEType: f.MIMEType})
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	text := extractText(resp)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response (possibly blocked by safety settings)", ErrGenerationFailed)
	}

	return parseGeneratedQuestions(text)
}

func extractText(resp *genai.GenerateContentResponse) string {
	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
	}
	return sb.String()
}

func guessMIMEType(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	// .jfif is a JPEG the stdlib table does not know.
	if ext == ".jfif" {
		return "image/jpeg"
	}
	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		return mimeType
	}
	return "application/octet-stream"
}

func buildGenerationPrompt(subject, requirements string) string {
	extra := ""
	if requirements != "" {
		extra = fmt.Sprintf("\nYêu cầu bổ sung từ người dùng: %s\n", requirements)
	}

	return fmt.Sprintf(`Dựa vào nội dung các tài liệu được cung cấp, hãy lấy toàn bộ câu hỏi trắc nghiệm về môn học '%s'.

Mỗi câu hỏi cần có 4 đáp án, trong đó chỉ có 1 đáp án đúng. Hãy tạo các đáp án sai hợp lý và gần giống đáp án đúng.
Phân loại độ khó của mỗi câu hỏi là 'easy', 'medium', hoặc 'hard'.
Với mỗi câu hỏi, cung cấp lời giải thích chi tiết cho đáp án đúng trong trường 'explanation'.
%s
Tuyệt đối lưu ý:
- Chỉ trả về mảng JSON, không bao gồm bất kỳ văn bản giải thích nào khác.
- Không sử dụng markdown code block.
- Trường 'explanation' chỉ có ở đáp án đúng (is_correct: true).

Cấu trúc kết quả:
[
  {
    "question": "Nội dung câu hỏi...",
    "difficulty": "medium",
    "answers": [
      {"text": "Đáp án A", "is_correct": false},
      {"text": "Đáp án B", "is_correct": true, "explanation": "Vì sao B đúng."},
      {"text": "Đáp án C", "is_correct": false},
      {"text": "Đáp án D", "is_correct": false}
    ]
  }
]`, subject, extra)
}
