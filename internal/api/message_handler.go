package api

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"aura-backend-go/internal/core"
	"aura-backend-go/internal/models"
)

// maxAudioBytes caps a single voice message upload. Segments run at most a
// couple of minutes of compressed audio.
const maxAudioBytes = 20 << 20 // 20 MiB

// MessageHandler handles API endpoints related to voice messages.
type MessageHandler struct {
	messageService core.MessageService
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(ms core.MessageService) *MessageHandler {
	return &MessageHandler{messageService: ms}
}

// mapMessageErrorToStatus maps errors from core.MessageService to HTTP status codes.
func mapMessageErrorToStatus(c *gin.Context, err error) {
	var statusCode int
	var errResponse ErrorResponse

	switch {
	case errors.Is(err, core.ErrCircleNotFound):
		statusCode = http.StatusNotFound
		errResponse = ErrorResponse{Error: core.ErrCircleNotFound.Error()}
	case errors.Is(err, core.ErrNotParticipant):
		statusCode = http.StatusForbidden
		errResponse = ErrorResponse{Error: core.ErrNotParticipant.Error()}
	case errors.Is(err, core.ErrInvalidSegmentIndex), errors.Is(err, core.ErrEmptyAudio):
		statusCode = http.StatusBadRequest
		errResponse = ErrorResponse{Error: err.Error()}
	case errors.Is(err, core.ErrUploadFailed):
		// The blob store rejected the upload after the retry budget; the
		// client may resend the same recording.
		statusCode = http.StatusBadGateway
		errResponse = ErrorResponse{Error: core.ErrUploadFailed.Error()}
	default:
		log.Printf("Internal Server Error: %v", err)
		statusCode = http.StatusInternalServerError
		errResponse = ErrorResponse{Error: "An unexpected internal server error occurred."}
	}
	c.JSON(statusCode, errResponse)
}

// SendMessage handles POST /circles/:circleId/messages
// Expects a multipart form with the metadata fields and the recording in the
// "audio" file part.
func (h *MessageHandler) SendMessage(c *gin.Context) {
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

	var req models.CreateMessageRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Audio file part is required", Details: err.Error()})
		return
	}
	if fileHeader.Size > maxAudioBytes {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "Audio file is too large"})
		return
	}
	if req.FileName == "" {
		req.FileName = fileHeader.Filename
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to open audio file part", Details: err.Error()})
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(io.LimitReader(file, maxAudioBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Failed to read audio file part", Details: err.Error()})
		return
	}
	if len(audio) > maxAudioBytes {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "Audio file is too large"})
		return
	}

	message, err := h.messageService.SendMessage(c.Request.Context(), userID.(string), circleID, req, audio)
	if err != nil {
		mapMessageErrorToStatus(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

// ListMessages handles GET /circles/:circleId/messages
func (h *MessageHandler) ListMessages(c *gin.Context) {
	_, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}
	circleID := c.Param("circleId")
	if circleID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Circle ID is required"})
		return
	}

	messages, err := h.messageService.ListMessages(c.Request.Context(), circleID)
	if err != nil {
		mapMessageErrorToStatus(c, err)
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}
	c.JSON(http.StatusOK, messages)
}

// StreamMessages handles GET /circles/:circleId/messages/stream
// Delivers server-sent events, one "messages" event per snapshot, each
// carrying the full replacement collection. The subscription ends when the
// client disconnects.
func (h *MessageHandler) StreamMessages(c *gin.Context) {
	_, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "User ID not found in context"})
		return
	}
	circleID := c.Param("circleId")
	if circleID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Circle ID is required"})
		return
	}

	ctx := c.Request.Context()
	snapshots := make(chan []*models.Message, 1)
	errCh := make(chan error, 1)

	go func() {
		errCh <- h.messageService.StreamMessages(ctx, circleID, func(messages []*models.Message) error {
			select {
			case snapshots <- messages:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case messages := <-snapshots:
			if messages == nil {
				messages = []*models.Message{}
			}
			c.SSEvent("messages", messages)
			return true
		case err := <-errCh:
			if err != nil && !errors.Is(err, ctx.Err()) {
				log.Printf("Message stream for circle '%s' ended with error: %v", circleID, err)
				c.SSEvent("error", ErrorResponse{Error: "message stream interrupted"})
			}
			return false
		case <-ctx.Done():
			return false
		}
	})
}
