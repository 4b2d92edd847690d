package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"bamboolab/services"

	"github.com/gin-gonic/gin"
)

type RankingHandler struct {
	rankingService *services.RankingService
	importService  *services.ImportService
}

func NewRankingHandler(rankingService *services.RankingService, importService *services.ImportService) *RankingHandler {
	return &RankingHandler{
		rankingService: rankingService,
		importService:  importService,
	}
}

type LookupRequest struct {
	SBD      string `json:"sbd" binding:"required"`
	ExamType string `json:"exam_type"`
}

func (h *RankingHandler) Lookup(c *gin.Context) {
	var req LookupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.ExamType == "" {
		req.ExamType = "data1"
	}

	report, err := h.rankingService.Lookup(req.SBD, req.ExamType)
	if err != nil {
		if errors.Is(err, services.ErrCandidateNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": fmt.Sprintf("Không tìm thấy thí sinh với số báo danh %s trong kỳ thi được chọn", req.SBD),
			})
			return
		}
		if errors.Is(err, services.ErrDataUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": fmt.Sprintf("Không tìm thấy dữ liệu điểm thi cho kỳ thi %s", req.ExamType),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}

// Import wipes and re-imports every candidate sheet.
func (h *RankingHandler) Import(c *gin.Context) {
	total, problems := h.importService.ImportAll()

	warnings := make([]string, 0, len(problems))
	for _, p := range problems {
		warnings = append(warnings, p.Error())
	}

	c.JSON(http.StatusOK, gin.H{
		"imported": total,
		"warnings": warnings,
	})
}
