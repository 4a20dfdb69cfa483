package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"

	"aura-backend-go/internal/models"
)

const votesCollection = "votes"

// firestoreVoteRepository implements the VoteRepository interface using Firestore.
type firestoreVoteRepository struct {
	client *firestore.Client
}

// NewFirestoreVoteRepository creates a new instance of firestoreVoteRepository.
func NewFirestoreVoteRepository(client *firestore.Client) VoteRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for VoteRepository.")
	}
	return &firestoreVoteRepository{client: client}
}

// Create adds a new vote document to Firestore with an auto-generated ID.
// One vote per user per circle is not enforced here; repeated submission
// creates duplicate records (documented behaviour of the system).
func (r *firestoreVoteRepository) Create(ctx context.Context, vote *models.Vote) (string, error) {
	if vote.CircleID == "" || vote.UserID == "" {
		return "", errors.New("vote circleID and userID cannot be empty for Create operation")
	}
	docRef := r.client.Collection(votesCollection).NewDoc()
	vote.ID = docRef.ID

	_, err := docRef.Create(ctx, vote)
	if err != nil {
		return "", fmt.Errorf("failed to create vote: %w", err)
	}
	return docRef.ID, nil
}
