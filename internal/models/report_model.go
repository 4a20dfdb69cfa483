package models

import "time"

// Report is an append-only moderation record. The client writes reports and
// never reads them back; review happens elsewhere.
type Report struct {
	ID             string    `json:"id" firestore:"-"` // Document ID, auto-generated
	ReportType     string    `json:"reportType" firestore:"reportType"`
	ReportedBy     string    `json:"reportedBy" firestore:"reportedBy"`
	CircleID       string    `json:"circleId,omitempty" firestore:"circleId,omitempty"`
	MessageID      string    `json:"messageId,omitempty" firestore:"messageId,omitempty"`
	SegmentIndex   *int      `json:"segmentIndex,omitempty" firestore:"segmentIndex,omitempty"`
	AdditionalInfo string    `json:"additionalInfo,omitempty" firestore:"additionalInfo,omitempty"`
	Status         string    `json:"status" firestore:"status"` // Always "pending" on creation
	Reviewed       bool      `json:"reviewed" firestore:"reviewed"`
	CreatedAt      time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}
