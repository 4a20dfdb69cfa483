package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"aura-backend-go/internal/db"
	"aura-backend-go/internal/models"
)

// Custom errors for the VotingService.
var (
	ErrInvalidChoice        = errors.New("invalid vote choice")
	ErrEmergeTargetRequired = errors.New("emerge vote requires a target participant")
	ErrInvalidEmergeTarget  = errors.New("emerge target is not a selectable voice in this circle")
)

// votingService implements the VotingService interface.
type votingService struct {
	voteRepo    db.VoteRepository
	circleRepo  db.CircleRepository
	messageRepo db.MessageRepository
}

// NewVotingService creates a new VotingService instance.
func NewVotingService(vr db.VoteRepository, cr db.CircleRepository, mr db.MessageRepository) VotingService {
	return &votingService{
		voteRepo:    vr,
		circleRepo:  cr,
		messageRepo: mr,
	}
}

// SubmitVote validates and records the voter's end-of-cycle choice, then
// returns the closure outcome derived from that choice alone. There is no
// quorum; each participant's farewell is their own.
func (s *votingService) SubmitVote(ctx context.Context, userID, circleID string, req models.SubmitVoteRequest) (*VoteOutcome, error) {
	if s.voteRepo == nil || s.circleRepo == nil || s.messageRepo == nil {
		return nil, errors.New("votingService: component not initialized")
	}
	if userID == "" || circleID == "" {
		return nil, errors.New("userID and circleID cannot be empty for SubmitVote")
	}

	switch req.Choice {
	case models.VoteChoiceStay, models.VoteChoiceBreak:
	case models.VoteChoiceEmerge:
		if req.EmergeTarget == "" {
			return nil, ErrEmergeTargetRequired
		}
	default:
		return nil, fmt.Errorf("%w: '%s'", ErrInvalidChoice, req.Choice)
	}

	circle, err := s.circleRepo.GetByID(ctx, circleID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, fmt.Errorf("%w: circle with ID '%s'", ErrCircleNotFound, circleID)
		}
		return nil, fmt.Errorf("failed to get circle '%s' for vote: %w", circleID, err)
	}
	if !circle.HasParticipant(userID) {
		return nil, fmt.Errorf("%w: user '%s' in circle '%s'", ErrNotParticipant, userID, circleID)
	}

	if req.Choice == models.VoteChoiceEmerge {
		candidates, err := s.EmergeCandidates(ctx, userID, circleID)
		if err != nil {
			return nil, err
		}
		valid := false
		for _, c := range candidates {
			if c.AuthorID == req.EmergeTarget {
				valid = true
				break
			}
		}
		if !valid {
			return nil, fmt.Errorf("%w: '%s'", ErrInvalidEmergeTarget, req.EmergeTarget)
		}
	}

	vote := &models.Vote{
		CircleID:     circleID,
		UserID:       userID,
		Choice:       req.Choice,
		EmergeTarget: req.EmergeTarget,
		CreatedAt:    time.Now().UTC(),
	}
	voteID, err := s.voteRepo.Create(ctx, vote)
	if err != nil {
		return nil, fmt.Errorf("failed to record vote for user '%s' in circle '%s': %w", userID, circleID, err)
	}
	vote.ID = voteID

	return closureFor(vote), nil
}

// closureFor maps the recorded vote to the farewell shown to the voter.
func closureFor(vote *models.Vote) *VoteOutcome {
	outcome := &VoteOutcome{
		Vote:    vote,
		Closure: vote.Choice,
	}
	switch vote.Choice {
	case models.VoteChoiceStay:
		outcome.Title = "Circle Continues"
		outcome.Message = "Your circle will continue. Segments may reshuffle."
		outcome.NextRoute = "circle"
	case models.VoteChoiceBreak:
		outcome.Title = "Circle Dissolves"
		outcome.Message = "The circle dissolves. Take the warmth with you."
		outcome.NextRoute = "matchmaking"
	case models.VoteChoiceEmerge:
		outcome.Title = "Memory Preserved"
		outcome.Message = "A memory is carried forward."
		outcome.NextRoute = "matchmaking"
	}
	return outcome
}

// EmergeCandidates lists the voices selectable as an emerge target: the
// distinct message authors of the circle, excluding the voter. Participants
// who never spoke are not selectable.
func (s *votingService) EmergeCandidates(ctx context.Context, userID, circleID string) ([]EmergeCandidate, error) {
	if s.messageRepo == nil {
		return nil, errors.New("votingService: messageRepo not initialized")
	}
	if userID == "" || circleID == "" {
		return nil, errors.New("userID and circleID cannot be empty for EmergeCandidates")
	}

	messages, err := s.messageRepo.ListByCircle(ctx, circleID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages for emerge candidates in circle '%s': %w", circleID, err)
	}

	byAuthor := make(map[string]*EmergeCandidate)
	var order []string
	for _, m := range messages {
		if m.AuthorID == userID {
			continue
		}
		c, ok := byAuthor[m.AuthorID]
		if !ok {
			c = &EmergeCandidate{AuthorID: m.AuthorID, SegmentIndex: m.SegmentIndex}
			byAuthor[m.AuthorID] = c
			order = append(order, m.AuthorID)
		}
		c.MessageCount++
	}

	candidates := make([]EmergeCandidate, 0, len(order))
	for _, authorID := range order {
		candidates = append(candidates, *byAuthor[authorID])
	}
	return candidates, nil
}
