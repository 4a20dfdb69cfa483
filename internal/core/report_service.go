package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aura-backend-go/internal/db"
	"aura-backend-go/internal/models"
)

// ErrInvalidReportType is returned when the report type is not one of the
// accepted reasons.
var ErrInvalidReportType = errors.New("invalid report type")

// validReportTypes are the moderation reasons accepted from clients.
var validReportTypes = map[string]bool{
	"inappropriate": true,
	"harassment":    true,
	"spam":          true,
	"threatening":   true,
	"other":         true,
}

// reportService implements the ReportService interface.
type reportService struct {
	reportRepo db.ReportRepository
}

// NewReportService creates a new ReportService instance.
func NewReportService(rr db.ReportRepository) ReportService {
	return &reportService{reportRepo: rr}
}

// SubmitReport records a moderation report. New reports always start in
// status "pending" with reviewed=false regardless of what the client sent.
func (s *reportService) SubmitReport(ctx context.Context, userID string, req models.CreateReportRequest) (*models.Report, error) {
	if s.reportRepo == nil {
		return nil, errors.New("reportService: reportRepo not initialized")
	}
	if userID == "" {
		return nil, errors.New("userID cannot be empty for SubmitReport")
	}
	if !validReportTypes[req.ReportType] {
		return nil, fmt.Errorf("%w: '%s'", ErrInvalidReportType, req.ReportType)
	}

	report := &models.Report{
		ReportType:     req.ReportType,
		ReportedBy:     userID,
		CircleID:       req.CircleID,
		MessageID:      req.MessageID,
		SegmentIndex:   req.SegmentIndex,
		AdditionalInfo: req.AdditionalInfo,
		Status:         "pending",
		Reviewed:       false,
		CreatedAt:      time.Now().UTC(),
	}
	reportID, err := s.reportRepo.Create(ctx, report)
	if err != nil {
		return nil, fmt.Errorf("failed to record report from user '%s': %w", userID, err)
	}
	report.ID = reportID

	return report, nil
}
