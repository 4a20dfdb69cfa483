package db

import (
	"context"

	"aura-backend-go/internal/models"
)

// UserRepository defines the interface for user data storage operations.
type UserRepository interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

// CircleRepository defines the interface for circle data storage operations.
type CircleRepository interface {
	Create(ctx context.Context, circle *models.Circle) (string, error) // Returns new circle ID
	GetByID(ctx context.Context, circleID string) (*models.Circle, error)
	// FindActiveByParticipant returns the first active circle the user is a
	// participant of, or ErrNotFound.
	FindActiveByParticipant(ctx context.Context, userID string) (*models.Circle, error)
	// ListActive returns active circles for client-side joinability scanning.
	ListActive(ctx context.Context) ([]*models.Circle, error)
	// AddParticipant appends userID to the circle's participant array inside a
	// transaction, re-checking capacity and membership. Returns ErrCircleFull
	// or ErrAlreadyParticipant when the re-check fails.
	AddParticipant(ctx context.Context, circleID, userID string) (*models.Circle, error)
}

// MessageRepository defines the interface for message data storage operations.
type MessageRepository interface {
	Create(ctx context.Context, message *models.Message) (string, error) // Returns new message ID
	// ListByCircle returns all messages of a circle ordered by createdAt ascending.
	ListByCircle(ctx context.Context, circleID string) ([]*models.Message, error)
	// Listen subscribes to live snapshots of a circle's messages (ordered by
	// createdAt ascending) and invokes fn with the full replacement collection
	// for every snapshot. It blocks until ctx is cancelled or the subscription
	// fails; there is no automatic resubscribe.
	Listen(ctx context.Context, circleID string, fn func(messages []*models.Message) error) error
}

// VoteRepository defines the interface for vote data storage operations.
type VoteRepository interface {
	Create(ctx context.Context, vote *models.Vote) (string, error) // Returns new vote ID
}

// ReportRepository defines the interface for report storage operations.
// Reports are append-only; the client never reads them back.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) (string, error) // Returns new report ID
}
