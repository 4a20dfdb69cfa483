package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"aura-backend-go/internal/db"
	"aura-backend-go/internal/models"
)

// Custom errors for the MatchmakingService.
var (
	ErrCircleNotFound = errors.New("circle not found")
)

// defaultVoiceMaskOptions is written into the settings of every newly
// created circle. Masks are applied client-side only.
var defaultVoiceMaskOptions = []string{"raw", "soft-echo", "warm-blur", "deep-calm", "synthetic-whisper"}

// matchmakingService implements the MatchmakingService interface.
type matchmakingService struct {
	circleRepo  db.CircleRepository
	userService UserService
}

// NewMatchmakingService creates a new MatchmakingService instance.
func NewMatchmakingService(cr db.CircleRepository, us UserService) MatchmakingService {
	return &matchmakingService{
		circleRepo:  cr,
		userService: us,
	}
}

// JoinCircle produces a circle the user is a current participant of.
// The steps run strictly in order:
//  1. Ensure a user profile exists for the authenticated identity.
//  2. Rejoin: if the user already belongs to an active circle, return it
//     unchanged (zero writes).
//  3. Scan active circles for the first one with a free slot the user is not
//     in, and append the user inside a transaction. Losing the race for the
//     last slot moves on to the next candidate.
//  4. Otherwise (including when the listing is blocked by permission
//     restrictions) create a fresh day-1 circle with the user as its only
//     participant.
func (s *matchmakingService) JoinCircle(ctx context.Context, userID string) (*models.Circle, error) {
	if s.circleRepo == nil || s.userService == nil {
		return nil, errors.New("matchmakingService: component not initialized")
	}
	if userID == "" {
		return nil, errors.New("userID cannot be empty for JoinCircle")
	}

	if _, _, err := s.userService.GetOrCreate(ctx, userID); err != nil {
		return nil, fmt.Errorf("failed to ensure user profile for '%s': %w", userID, err)
	}

	// Step 2: rejoin an existing membership.
	existing, err := s.circleRepo.FindActiveByParticipant(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, db.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up active circle for user '%s': %w", userID, err)
	}

	// Step 3: join the first active circle with room.
	candidates, err := s.circleRepo.ListActive(ctx)
	if err != nil {
		if status.Code(err) == codes.PermissionDenied {
			// Listing all circles may be disallowed by security rules; fall
			// through to creating a fresh circle rather than failing the user.
			fmt.Printf("Warning: active circle listing denied for user '%s', creating a new circle: %v\n", userID, err)
			return s.createCircle(ctx, userID)
		}
		return nil, fmt.Errorf("failed to list active circles for user '%s': %w", userID, err)
	}

	for _, candidate := range candidates {
		if !candidate.HasRoom() || candidate.HasParticipant(userID) {
			continue
		}
		joined, err := s.circleRepo.AddParticipant(ctx, candidate.ID, userID)
		if err == nil {
			return joined, nil
		}
		// Another join may have taken the last slot, or a duplicate request
		// already added us; both mean "try the next candidate".
		if errors.Is(err, db.ErrCircleFull) || errors.Is(err, db.ErrAlreadyParticipant) || errors.Is(err, db.ErrCircleNotActive) {
			fmt.Printf("Warning: lost join race for circle '%s' (user '%s'): %v\n", candidate.ID, userID, err)
			continue
		}
		return nil, fmt.Errorf("failed to join circle '%s' for user '%s': %w", candidate.ID, userID, err)
	}

	// Step 4: no joinable circle.
	return s.createCircle(ctx, userID)
}

// createCircle writes a fresh day-1 circle with the user as sole participant.
func (s *matchmakingService) createCircle(ctx context.Context, userID string) (*models.Circle, error) {
	newCircle := &models.Circle{
		Day:             1,
		Status:          models.CircleStatusActive,
		Participants:    []string{userID},
		MaxParticipants: models.MaxParticipants,
		Settings: models.CircleSettings{
			VoiceMaskOptions: defaultVoiceMaskOptions,
		},
		CreatedAt: time.Now().UTC(),
	}

	circleID, err := s.circleRepo.Create(ctx, newCircle)
	if err != nil {
		return nil, fmt.Errorf("failed to create circle for user '%s': %w", userID, err)
	}
	newCircle.ID = circleID

	return newCircle, nil
}

// GetCircle retrieves a circle by ID.
func (s *matchmakingService) GetCircle(ctx context.Context, circleID string) (*models.Circle, error) {
	if s.circleRepo == nil {
		return nil, errors.New("matchmakingService: circleRepo not initialized")
	}

	circle, err := s.circleRepo.GetByID(ctx, circleID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: circle with ID '%s'", ErrCircleNotFound, circleID)
		}
		return nil, fmt.Errorf("failed to get circle '%s' from repository: %w", circleID, err)
	}
	return circle, nil
}
