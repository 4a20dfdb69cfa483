package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"

	"aura-backend-go/internal/models"
)

const reportsCollection = "reports"

// firestoreReportRepository implements the ReportRepository interface using
// Firestore. Reports are append-only moderation records; nothing in this
// client reads them back.
type firestoreReportRepository struct {
	client *firestore.Client
}

// NewFirestoreReportRepository creates a new instance of firestoreReportRepository.
func NewFirestoreReportRepository(client *firestore.Client) ReportRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for ReportRepository.")
	}
	return &firestoreReportRepository{client: client}
}

// Create adds a new report document to Firestore with an auto-generated ID.
func (r *firestoreReportRepository) Create(ctx context.Context, report *models.Report) (string, error) {
	if report.ReportedBy == "" {
		return "", errors.New("report reportedBy cannot be empty for Create operation")
	}
	docRef := r.client.Collection(reportsCollection).NewDoc()
	report.ID = docRef.ID

	_, err := docRef.Create(ctx, report)
	if err != nil {
		return "", fmt.Errorf("failed to create report: %w", err)
	}
	return docRef.ID, nil
}
