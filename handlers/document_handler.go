package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"bamboolab/services"

	"github.com/gin-gonic/gin"
)

type DocumentHandler struct {
	documentService *services.DocumentService
}

func NewDocumentHandler(documentService *services.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
	}
}

// Upload accepts a multipart form with title, subject_id, optional
// additional_requirements and one or more files, then kicks off the
// background generation job.
func (h *DocumentHandler) Upload(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	title := c.PostForm("title")
	requirements := c.PostForm("additional_requirements")
	subjectID, err := strconv.ParseUint(c.PostForm("subject_id"), 10, 32)
	if err != nil || title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Vui lòng điền đầy đủ Tiêu đề và Môn học."})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	fileHeaders := form.File["document_file"]
	if len(fileHeaders) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Vui lòng chọn ít nhất một tệp tài liệu để upload."})
		return
	}

	uploads := make([]services.FileUpload, 0, len(fileHeaders))
	for _, header := range fileHeaders {
		file, err := header.Open()
		if err != nil {
			log.Printf("Failed to open uploaded file %s: %v", header.Filename, err)
			continue
		}
		defer file.Close()
		uploads = append(uploads, services.FileUpload{Name: header.Filename, Content: file})
	}

	document, err := h.documentService.Create(userID.(uint), uint(subjectID), title, requirements, uploads)
	if err != nil {
		if errors.Is(err, services.ErrSubjectNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Môn học không hợp lệ."})
			return
		}
		if errors.Is(err, services.ErrNoFiles) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Đã xảy ra lỗi, không thể lưu tệp nào."})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.documentService.StartProcessing(document.ID, requirements)

	c.JSON(http.StatusAccepted, gin.H{
		"document_id": document.ID,
		"message":     "Tài liệu đang được xử lý...",
	})
}

func (h *DocumentHandler) List(c *gin.Context) {
	documents, err := h.documentService.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, documents)
}

func (h *DocumentHandler) Status(c *gin.Context) {
	documentID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document ID"})
		return
	}

	status, err := h.documentService.Status(uint(documentID))
	if err != nil {
		if errors.Is(err, services.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, status)
}

func (h *DocumentHandler) Questions(c *gin.Context) {
	documentID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid document ID"})
		return
	}

	questions, err := h.documentService.Questions(uint(documentID))
	if err != nil {
		if errors.Is(err, services.ErrDocumentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Document not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, questions)
}
