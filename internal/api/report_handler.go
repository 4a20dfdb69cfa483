package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"aura-backend-go/internal/core"
	"aura-backend-go/internal/models"
)

// ReportHandler handles API endpoints for moderation reports.
type ReportHandler struct {
	reportService core.ReportService
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(rs core.ReportService) *ReportHandler {
	return &ReportHandler{reportService: rs}
}

// SubmitReport handles POST /reports
func (h *ReportHandler) SubmitReport(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}

	var req models.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	report, err := h.reportService.SubmitReport(c.Request.Context(), userID.(string), req)
	if err != nil {
		if errors.Is(err, core.ErrInvalidReportType) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
			return
		}
		log.Printf("Internal Server Error: %v", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "An unexpected internal server error occurred."})
		return
	}
	c.JSON(http.StatusCreated, report)
}
