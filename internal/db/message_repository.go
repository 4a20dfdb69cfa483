package db

import (
	"context"
	"errors"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"aura-backend-go/internal/models"
)

const messagesCollection = "messages"

// firestoreMessageRepository implements the MessageRepository interface using Firestore.
type firestoreMessageRepository struct {
	client *firestore.Client
}

// NewFirestoreMessageRepository creates a new instance of firestoreMessageRepository.
func NewFirestoreMessageRepository(client *firestore.Client) MessageRepository {
	if client == nil {
		log.Fatal("Firestore client is not initialized for MessageRepository.")
	}
	return &firestoreMessageRepository{client: client}
}

// Create adds a new message document to Firestore with an auto-generated ID.
// Messages are immutable once created; CreatedAt is handled by serverTimestamp.
func (r *firestoreMessageRepository) Create(ctx context.Context, message *models.Message) (string, error) {
	if message.CircleID == "" {
		return "", errors.New("message circleID cannot be empty for Create operation")
	}
	docRef := r.client.Collection(messagesCollection).NewDoc()
	message.ID = docRef.ID // Set the ID in the model before saving

	_, err := docRef.Create(ctx, message)
	if err != nil {
		return "", fmt.Errorf("failed to create message: %w", err)
	}
	return docRef.ID, nil
}

// circleMessagesQuery builds the canonical message view for a circle:
// filter circleId == X, order by createdAt ascending. The explicit sort is
// what guarantees oldest-first presentation, not callback arrival order.
func (r *firestoreMessageRepository) circleMessagesQuery(circleID string) firestore.Query {
	return r.client.Collection(messagesCollection).
		Where("circleId", "==", circleID).
		OrderBy("createdAt", firestore.Asc)
}

// ListByCircle returns all messages of a circle, oldest first.
func (r *firestoreMessageRepository) ListByCircle(ctx context.Context, circleID string) ([]*models.Message, error) {
	if circleID == "" {
		return nil, errors.New("circleID cannot be empty for ListByCircle operation")
	}

	iter := r.circleMessagesQuery(circleID).Documents(ctx)
	defer iter.Stop()

	var messages []*models.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate messages for circle '%s': %w", circleID, err)
		}

		var message models.Message
		if err := doc.DataTo(&message); err != nil {
			log.Printf("Error decoding message data (ID: %s) for circle '%s': %v. Skipping.", doc.Ref.ID, circleID, err)
			continue
		}
		message.ID = doc.Ref.ID
		messages = append(messages, &message)
	}

	return messages, nil
}

// Listen subscribes to snapshots of the circle's message view and calls fn
// with the full replacement collection on every update (no incremental
// merge). It returns when ctx is cancelled (nil error for a clean teardown)
// or when the subscription or fn fails; callers decide whether to
// resubscribe, this method never does it on its own.
func (r *firestoreMessageRepository) Listen(ctx context.Context, circleID string, fn func(messages []*models.Message) error) error {
	if circleID == "" {
		return errors.New("circleID cannot be empty for Listen operation")
	}
	if fn == nil {
		return errors.New("fn cannot be nil for Listen operation")
	}

	snapIter := r.circleMessagesQuery(circleID).Snapshots(ctx)
	defer snapIter.Stop() // Exactly-once teardown on every exit path.

	for {
		snap, err := snapIter.Next()
		if err != nil {
			// Context cancellation is the normal consumer-detached path.
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("message subscription failed for circle '%s': %w", circleID, err)
		}

		var messages []*models.Message
		for {
			doc, err := snap.Documents.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				return fmt.Errorf("failed to iterate snapshot for circle '%s': %w", circleID, err)
			}

			var message models.Message
			if err := doc.DataTo(&message); err != nil {
				log.Printf("Error decoding message data (ID: %s) in snapshot for circle '%s': %v. Skipping.", doc.Ref.ID, circleID, err)
				continue
			}
			message.ID = doc.Ref.ID
			messages = append(messages, &message)
		}

		if err := fn(messages); err != nil {
			return fmt.Errorf("message snapshot consumer failed for circle '%s': %w", circleID, err)
		}
	}
}
