package core

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/google/uuid"

	"aura-backend-go/internal/db"
	"aura-backend-go/internal/models"
	"aura-backend-go/internal/retry"
)

// Custom errors for the MessageService.
var (
	ErrNotParticipant      = errors.New("user is not a participant of this circle")
	ErrInvalidSegmentIndex = errors.New("segment index out of range")
	ErrEmptyAudio          = errors.New("audio payload is empty")
	ErrUploadFailed        = errors.New("audio upload failed after retries")
)

// messageService implements the MessageService interface.
type messageService struct {
	messageRepo db.MessageRepository
	circleRepo  db.CircleRepository
	uploader    BlobUploader
	retryPolicy retry.Policy
}

// NewMessageService creates a new MessageService instance. Uploads use the
// default retry policy (3 attempts, 1s/2s backoff).
func NewMessageService(mr db.MessageRepository, cr db.CircleRepository, uploader BlobUploader) MessageService {
	policy := retry.DefaultPolicy()
	policy.OnRetry = func(attempt int, err error, delay time.Duration) {
		fmt.Printf("Warning: audio upload attempt %d failed, retrying in %v: %v\n", attempt, delay, err)
	}
	return &messageService{
		messageRepo: mr,
		circleRepo:  cr,
		uploader:    uploader,
		retryPolicy: policy,
	}
}

// SendMessage uploads the audio payload to blob storage with retries, then
// records the message in the circle's directory. The audio bytes are
// uploaded exactly as received; voice masks are rendered by the client
// before recording.
func (s *messageService) SendMessage(ctx context.Context, userID, circleID string, req models.CreateMessageRequest, audio []byte) (*models.Message, error) {
	if s.messageRepo == nil || s.circleRepo == nil || s.uploader == nil {
		return nil, errors.New("messageService: component not initialized")
	}
	if userID == "" || circleID == "" {
		return nil, errors.New("userID and circleID cannot be empty for SendMessage")
	}
	if req.SegmentIndex < 0 || req.SegmentIndex >= models.MaxParticipants {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSegmentIndex, req.SegmentIndex)
	}
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	circle, err := s.circleRepo.GetByID(ctx, circleID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: circle with ID '%s'", ErrCircleNotFound, circleID)
		}
		return nil, fmt.Errorf("failed to get circle '%s' for message: %w", circleID, err)
	}
	if !circle.HasParticipant(userID) {
		return nil, fmt.Errorf("%w: user '%s' in circle '%s'", ErrNotParticipant, userID, circleID)
	}

	key := s.destinationKey(circleID, userID, req.FileName)

	var audioURL string
	uploadErr := s.retryPolicy.Do(ctx, func(ctx context.Context) error {
		url, err := s.uploader.Upload(ctx, key, "audio/m4a", audio)
		if err != nil {
			return err
		}
		audioURL = url
		return nil
	})
	if uploadErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUploadFailed, uploadErr)
	}

	message := &models.Message{
		CircleID:     circleID,
		AuthorID:     userID,
		SegmentIndex: req.SegmentIndex,
		AudioURL:     audioURL,
		DurationMs:   req.DurationMs,
		CreatedAt:    time.Now().UTC(),
	}
	messageID, err := s.messageRepo.Create(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("failed to record message in circle '%s': %w", circleID, err)
	}
	message.ID = messageID

	return message, nil
}

// destinationKey builds the blob key for a voice message. Keys are namespaced
// per circle and author so bucket listings group naturally, and carry a fresh
// UUID so re-sends never overwrite.
func (s *messageService) destinationKey(circleID, userID, fileName string) string {
	ext := path.Ext(fileName)
	if ext == "" {
		ext = ".m4a"
	}
	return fmt.Sprintf("circles/%s/%s/%s%s", circleID, userID, uuid.New().String(), ext)
}

// ListMessages returns the circle's messages in chronological order.
func (s *messageService) ListMessages(ctx context.Context, circleID string) ([]*models.Message, error) {
	if s.messageRepo == nil {
		return nil, errors.New("messageService: messageRepo not initialized")
	}
	if circleID == "" {
		return nil, errors.New("circleID cannot be empty for ListMessages")
	}
	messages, err := s.messageRepo.ListByCircle(ctx, circleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages for circle '%s': %w", circleID, err)
	}
	return messages, nil
}

// StreamMessages delivers full replacement snapshots of the circle's message
// collection until ctx is cancelled. Each delivery replaces, never appends
// to, whatever the consumer held before.
func (s *messageService) StreamMessages(ctx context.Context, circleID string, fn func(messages []*models.Message) error) error {
	if s.messageRepo == nil {
		return errors.New("messageService: messageRepo not initialized")
	}
	if circleID == "" {
		return errors.New("circleID cannot be empty for StreamMessages")
	}
	return s.messageRepo.Listen(ctx, circleID, fn)
}
