package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"aura-backend-go/internal/models"
)

const circlesCollection = "circles"

// Join-time conflicts surfaced by AddParticipant. The capacity and membership
// checks run inside a Firestore transaction, so two clients racing for the
// last slot cannot both win.
var (
	ErrCircleFull         = errors.New("circle has no free participant slots")
	ErrAlreadyParticipant = errors.New("user is already a participant of the circle")
	ErrCircleNotActive    = errors.New("circle is not active")
)

// firestoreCircleRepository implements the CircleRepository interface using Firestore.
type firestoreCircleRepository struct {
	client *firestore.Client
}

// NewFirestoreCircleRepository creates a new instance of firestoreCircleRepository.
func NewFirestoreCircleRepository(client *firestore.Client) CircleRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for CircleRepository.")
	}
	return &firestoreCircleRepository{client: client}
}

// Create adds a new circle document to Firestore with an auto-generated ID.
// It sets circle.ID with the new document ID before creation; CreatedAt is
// handled by the serverTimestamp tag.
func (r *firestoreCircleRepository) Create(ctx context.Context, circle *models.Circle) (string, error) {
	docRef := r.client.Collection(circlesCollection).NewDoc()
	circle.ID = docRef.ID // Set the ID in the model before saving

	_, err := docRef.Create(ctx, circle)
	if err != nil {
		return "", fmt.Errorf("failed to create circle: %w", err)
	}
	return docRef.ID, nil
}

// GetByID retrieves a circle document from Firestore by its ID.
func (r *firestoreCircleRepository) GetByID(ctx context.Context, circleID string) (*models.Circle, error) {
	if circleID == "" {
		return nil, errors.New("circleID cannot be empty for GetByID operation")
	}
	docSnap, err := r.client.Collection(circlesCollection).Doc(circleID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, fmt.Errorf("circle with ID '%s' not found: %w", circleID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get circle with ID '%s': %w", circleID, err)
	}

	var circle models.Circle
	if err := docSnap.DataTo(&circle); err != nil {
		return nil, fmt.Errorf("failed to decode circle data for ID '%s': %w", circleID, err)
	}
	circle.ID = docSnap.Ref.ID // Ensure ID is populated

	return &circle, nil
}

// FindActiveByParticipant returns the first active circle containing userID
// in its participant array. Membership in more than one active circle is not
// supposed to occur, so no tie-break is applied.
func (r *firestoreCircleRepository) FindActiveByParticipant(ctx context.Context, userID string) (*models.Circle, error) {
	if userID == "" {
		return nil, errors.New("userID cannot be empty for FindActiveByParticipant operation")
	}

	query := r.client.Collection(circlesCollection).
		Where("participants", "array-contains", userID).
		Where("status", "==", models.CircleStatusActive).
		Limit(1)

	iter := query.Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return nil, fmt.Errorf("no active circle for participant '%s': %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query active circle for participant '%s': %w", userID, err)
	}

	var circle models.Circle
	if err := doc.DataTo(&circle); err != nil {
		return nil, fmt.Errorf("failed to decode circle data (ID: %s): %w", doc.Ref.ID, err)
	}
	circle.ID = doc.Ref.ID

	return &circle, nil
}

// ListActive returns all active circles. Joinability (free slot, user not a
// member) is evaluated by the caller; the final membership check happens
// again inside AddParticipant's transaction.
func (r *firestoreCircleRepository) ListActive(ctx context.Context) ([]*models.Circle, error) {
	query := r.client.Collection(circlesCollection).Where("status", "==", models.CircleStatusActive)

	iter := query.Documents(ctx)
	defer iter.Stop()

	var circles []*models.Circle
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate active circles: %w", err)
		}

		var circle models.Circle
		if err := doc.DataTo(&circle); err != nil {
			// Log and skip the problematic document rather than failing the whole listing.
			log.Printf("Error decoding circle data (ID: %s): %v. Skipping.", doc.Ref.ID, err)
			continue
		}
		circle.ID = doc.Ref.ID
		circles = append(circles, &circle)
	}

	return circles, nil
}

// AddParticipant appends userID to the circle's participant array. Capacity,
// membership and status are re-checked inside the transaction so that
// len(participants) <= maxParticipants holds even under concurrent joins.
func (r *firestoreCircleRepository) AddParticipant(ctx context.Context, circleID, userID string) (*models.Circle, error) {
	if circleID == "" || userID == "" {
		return nil, errors.New("circleID and userID cannot be empty for AddParticipant operation")
	}

	docRef := r.client.Collection(circlesCollection).Doc(circleID)
	var joined models.Circle

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(docRef)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return fmt.Errorf("circle with ID '%s' not found: %w", circleID, ErrNotFound)
			}
			return fmt.Errorf("failed to read circle '%s' in transaction: %w", circleID, err)
		}

		var circle models.Circle
		if err := snap.DataTo(&circle); err != nil {
			return fmt.Errorf("failed to decode circle data for ID '%s': %w", circleID, err)
		}
		circle.ID = snap.Ref.ID

		if circle.Status != models.CircleStatusActive {
			return fmt.Errorf("circle '%s': %w", circleID, ErrCircleNotActive)
		}
		if circle.HasParticipant(userID) {
			return fmt.Errorf("circle '%s', user '%s': %w", circleID, userID, ErrAlreadyParticipant)
		}
		if !circle.HasRoom() {
			return fmt.Errorf("circle '%s': %w", circleID, ErrCircleFull)
		}

		if err := tx.Update(docRef, []firestore.Update{
			{Path: "participants", Value: firestore.ArrayUnion(userID)},
		}); err != nil {
			return fmt.Errorf("failed to append participant to circle '%s': %w", circleID, err)
		}

		circle.Participants = append(circle.Participants, userID)
		joined = circle
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &joined, nil
}
