package models

import "time"

// Message represents one voice message in a circle. Messages are immutable
// once created; IsPending is a transient client-side flag for optimistic UI
// and is never persisted to Firestore.
type Message struct {
	ID           string    `json:"id" firestore:"-"` // Document ID, auto-generated
	CircleID     string    `json:"circleId" firestore:"circleId"`
	AuthorID     string    `json:"authorId" firestore:"authorId"`
	SegmentIndex int       `json:"segmentIndex" firestore:"segmentIndex"` // 0..6; slot 0 is the local user's own slot by convention
	AudioURL     string    `json:"audioUrl" firestore:"audioUrl"`
	DurationMs   int64     `json:"durationMs" firestore:"durationMs"`
	CreatedAt    time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
	IsPending    bool      `json:"isPending,omitempty" firestore:"-"`
}
