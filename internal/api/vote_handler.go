package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"aura-backend-go/internal/core"
	"aura-backend-go/internal/models"
)

// VoteHandler handles API endpoints for the end-of-cycle vote.
type VoteHandler struct {
	votingService core.VotingService
}

// NewVoteHandler creates a new VoteHandler.
func NewVoteHandler(vs core.VotingService) *VoteHandler {
	return &VoteHandler{votingService: vs}
}

// mapVoteErrorToStatus maps errors from core.VotingService to HTTP status codes.
func mapVoteErrorToStatus(c *gin.Context, err error) {
	var statusCode int
	var errResponse ErrorResponse

	switch {
	case errors.Is(err, core.ErrCircleNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrCircleNotFound.Error()}
	case errors.Is(err, core.ErrNotParticipant):
		statusCode = http.StatusForbidden
		errResponse = ErrorResponse{Error: core.ErrNotParticipant.Error()}
	case errors.Is(err, core.ErrInvalidChoice),
		errors.Is(err, core.ErrEmergeTargetRequired),
		errors.Is(err, core.ErrInvalidEmergeTarget):
		statusCode = http.StatusBadRequest
		errResponse = ErrorResponse{Error: err.Error()}
	default:
		log.Printf("Internal Server Error: %v", err)
		statusCode = http.StatusInternalServerError
		errResponse = ErrorResponse{Error: "An unexpected internal server error occurred."}
	}
	c.JSON(statusCode, errResponse)
}

// SubmitVote handles POST /circles/:circleId/votes
func (h *VoteHandler) SubmitVote(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}
	circleID := c.Param("circleId")
	if circleID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Circle ID is required"})
		return
	}

	var req models.SubmitVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	outcome, err := h.votingService.SubmitVote(c.Request.Context(), userID.(string), circleID, req)
	if err != nil {
		mapVoteErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusCreated, outcome)
}

// GetVoteOptions handles GET /circles/:circleId/votes/options
// Returns the emerge candidates selectable by the authenticated voter.
func (h *VoteHandler) GetVoteOptions(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}
	circleID := c.Param("circleId")
	if circleID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Circle ID is required"})
		return
	}

	candidates, err := h.votingService.EmergeCandidates(c.Request.Context(), userID.(string), circleID)
	if err != nil {
		mapVoteErrorToStatus(c, err)
		return
	}
	if candidates == nil {
		candidates = []core.EmergeCandidate{}
	}
	c.JSON(http.StatusOK, gin.H{
		"choices":          []string{models.VoteChoiceStay, models.VoteChoiceBreak, models.VoteChoiceEmerge},
		"emergeCandidates": candidates,
	})
}
