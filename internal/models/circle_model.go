package models

import "time"

// Circle lifecycle constants. A circle lives for seven days with at most
// seven participants; day advancement is driven externally, the backend
// only reads it.
const (
	CircleStatusActive = "active"
	CircleStatusClosed = "closed"

	MaxParticipants = 7
	FinalDay        = 7
)

// CircleSettings holds per-circle configuration written at creation time.
type CircleSettings struct {
	VoiceMaskOptions []string `json:"voiceMaskOptions,omitempty" firestore:"voiceMaskOptions,omitempty"`
}

// Circle represents a time-boxed group of up to seven anonymous participants.
// Invariant: len(Participants) <= MaxParticipants. Participants are unique
// and kept in join order.
type Circle struct {
	ID              string         `json:"id" firestore:"-"` // Document ID, auto-generated
	Day             int            `json:"day" firestore:"day"`
	Status          string         `json:"status" firestore:"status"` // "active" or "closed"
	Participants    []string       `json:"participants" firestore:"participants"`
	MaxParticipants int            `json:"maxParticipants" firestore:"maxParticipants"`
	Settings        CircleSettings `json:"settings,omitempty" firestore:"settings,omitempty"`
	CreatedAt       time.Time      `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}

// HasParticipant reports whether uid is already a member of the circle.
func (c *Circle) HasParticipant(uid string) bool {
	for _, p := range c.Participants {
		if p == uid {
			return true
		}
	}
	return false
}

// HasRoom reports whether the circle can accept another participant.
func (c *Circle) HasRoom() bool {
	max := c.MaxParticipants
	if max == 0 {
		max = MaxParticipants
	}
	return len(c.Participants) < max
}
