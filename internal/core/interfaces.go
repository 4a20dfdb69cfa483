package core

import (
	"context"

	"aura-backend-go/internal/models"
)

// UserService defines the interface for user-related operations.
type UserService interface {
	// GetOrCreate retrieves a user by ID. If the user doesn't exist, it
	// creates a new anonymous profile. Returns the user and whether it was
	// created by this call.
	GetOrCreate(ctx context.Context, userID string) (*models.User, bool, error)
	GetByID(ctx context.Context, userID string) (*models.User, error)
}

// MatchmakingService decides whether a user rejoins an existing circle or a
// new one is created for them.
type MatchmakingService interface {
	// JoinCircle produces a circle the user is a current participant of:
	// rejoin first, then join the first active circle with room, then create.
	JoinCircle(ctx context.Context, userID string) (*models.Circle, error)
	GetCircle(ctx context.Context, circleID string) (*models.Circle, error)
}

// MessageService covers the voice-message pipeline: upload-with-retry plus
// the directory record, and the ordered/live views of a circle's messages.
type MessageService interface {
	SendMessage(ctx context.Context, userID, circleID string, req models.CreateMessageRequest, audio []byte) (*models.Message, error)
	ListMessages(ctx context.Context, circleID string) ([]*models.Message, error)
	// StreamMessages invokes fn with the full replacement collection for each
	// live snapshot until ctx is cancelled or the subscription fails.
	StreamMessages(ctx context.Context, circleID string, fn func(messages []*models.Message) error) error
}

// VotingService runs the end-of-cycle closure ritual.
type VotingService interface {
	SubmitVote(ctx context.Context, userID, circleID string, req models.SubmitVoteRequest) (*VoteOutcome, error)
	// EmergeCandidates lists the participants selectable as an emerge target:
	// distinct message authors of the circle, excluding the voter.
	EmergeCandidates(ctx context.Context, userID, circleID string) ([]EmergeCandidate, error)
}

// ReportService records moderation reports.
type ReportService interface {
	SubmitReport(ctx context.Context, userID string, req models.CreateReportRequest) (*models.Report, error)
}

// BlobUploader is the single-attempt upload contract the message pipeline
// builds its retry policy around. Satisfied by *blob.Client.
type BlobUploader interface {
	Upload(ctx context.Context, fileName, contentType string, data []byte) (string, error)
}

// EmergeCandidate describes one selectable voice for the emerge choice.
type EmergeCandidate struct {
	AuthorID     string `json:"authorId"`
	SegmentIndex int    `json:"segmentIndex"`
	MessageCount int    `json:"messageCount"`
}

// VoteOutcome is the closure result shown to the voter. It is derived from
// the voter's own choice; the backend performs no quorum tally.
type VoteOutcome struct {
	Vote    *models.Vote `json:"vote"`
	Closure string       `json:"closure"` // "stay", "break" or "emerge"
	Title   string       `json:"title"`
	Message string       `json:"message"`
	// NextRoute tells the client where to go: back to the circle view for
	// "stay", into matchmaking for "break" and "emerge".
	NextRoute string `json:"nextRoute"`
}
