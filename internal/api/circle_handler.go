package api

import (
	"errors"
	"log" // For logging errors or unexpected issues
	"net/http"

	"github.com/gin-gonic/gin"

	"aura-backend-go/internal/core"
)

// CircleHandler handles API endpoints related to circles and matchmaking.
type CircleHandler struct {
	matchmakingService core.MatchmakingService
}

// NewCircleHandler creates a new CircleHandler.
func NewCircleHandler(ms core.MatchmakingService) *CircleHandler {
	return &CircleHandler{matchmakingService: ms}
}

// mapCircleErrorToStatus maps errors from the circle services to HTTP status codes.
func mapCircleErrorToStatus(c *gin.Context, err error) {
	var statusCode int
	var errResponse ErrorResponse

	switch {
	case errors.Is(err, core.ErrCircleNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrCircleNotFound.Error()}
	case errors.Is(err, core.ErrNotParticipant):
		statusCode = http.StatusForbidden
		errResponse = ErrorResponse{Error: core.ErrNotParticipant.Error()}
	case errors.Is(err, core.ErrUserNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrUserNotFound.Error()}
	default:
		log.Printf("Internal Server Error: %v", err) // Log the actual error for server-side review
		statusCode = http.StatusInternalServerError
		errResponse = ErrorResponse{Error: "An unexpected internal server error occurred."}
	}
	c.JSON(statusCode, errResponse)
}

// JoinCircle handles POST /circles/join
// Rejoins the user's active circle when one exists, otherwise places them in
// an open circle or creates a new one.
func (h *CircleHandler) JoinCircle(c *gin.Context) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}

	circle, err := h.matchmakingService.JoinCircle(c.Request.Context(), userID.(string))
	if err != nil {
		mapCircleErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusOK, circle)
}

// GetCircle handles GET /circles/:circleId
func (h *CircleHandler) GetCircle(c *gin.Context) {
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

	circle, err := h.matchmakingService.GetCircle(c.Request.Context(), circleID)
	if err != nil {
		mapCircleErrorToStatus(c, err)
		return
	}
	if !circle.HasParticipant(userID.(string)) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: core.ErrNotParticipant.Error()})
		return
	}
	c.JSON(http.StatusOK, circle)
}

// GetMembers handles GET /circles/:circleId/members
func (h *CircleHandler) GetMembers(c *gin.Context) {
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

	circle, err := h.matchmakingService.GetCircle(c.Request.Context(), circleID)
	if err != nil {
		mapCircleErrorToStatus(c, err)
		return
	}
	if !circle.HasParticipant(userID.(string)) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: core.ErrNotParticipant.Error()})
		return
	}

	c.JSON(http.StatusOK, CircleMembersResponse{
		CircleID:     circle.ID,
		Day:          circle.Day,
		Participants: circle.Participants,
	})
}
