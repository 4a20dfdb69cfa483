package models

import "time"

// Closure vote choices for the day-7 ritual.
const (
	VoteChoiceStay   = "stay"
	VoteChoiceBreak  = "break"
	VoteChoiceEmerge = "emerge"
)

// Vote records a participant's end-of-cycle choice for a circle.
// EmergeTarget is required iff Choice == "emerge". One vote per user per
// circle is expected but not enforced atomically; repeated submission
// creates duplicate records.
type Vote struct {
	ID           string    `json:"id" firestore:"-"` // Document ID, auto-generated
	CircleID     string    `json:"circleId" firestore:"circleId"`
	UserID       string    `json:"userId" firestore:"userId"`
	Choice       string    `json:"choice" firestore:"choice"` // "stay", "break" or "emerge"
	EmergeTarget string    `json:"emergeTarget,omitempty" firestore:"emergeTarget,omitempty"`
	CreatedAt    time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}
