package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aura-backend-go/internal/core"
	"aura-backend-go/internal/models"
)

type stubMessages struct {
	message  *models.Message
	messages []*models.Message
	err      error

	gotUserID   string
	gotCircleID string
	gotReq      models.CreateMessageRequest
	gotAudio    []byte
}

func (s *stubMessages) SendMessage(_ context.Context, userID, circleID string, req models.CreateMessageRequest, audio []byte) (*models.Message, error) {
	s.gotUserID = userID
	s.gotCircleID = circleID
	s.gotReq = req
	s.gotAudio = audio
	return s.message, s.err
}

func (s *stubMessages) ListMessages(context.Context, string) ([]*models.Message, error) {
	return s.messages, s.err
}

func (s *stubMessages) StreamMessages(ctx context.Context, _ string, fn func([]*models.Message) error) error {
	if err := fn(s.messages); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func messageRouter(userID string, svc core.MessageService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewMessageHandler(svc)

	auth := func(c *gin.Context) {
		if userID != "" {
			c.Set("userID", userID)
		}
		c.Next()
	}
	group := router.Group("/api/v1/circles", auth)
	group.POST("/:circleId/messages", handler.SendMessage)
	group.GET("/:circleId/messages", handler.ListMessages)
	return router
}

func multipartBody(t *testing.T, fields map[string]string, audio []byte) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if audio != nil {
		part, err := mw.CreateFormFile("audio", "recording.m4a")
		require.NoError(t, err)
		_, err = part.Write(audio)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestSendMessageEndpoint(t *testing.T) {
	svc := &stubMessages{message: &models.Message{ID: "m1", CircleID: "c1", AuthorID: "u1"}}
	router := messageRouter("u1", svc)

	body, contentType := multipartBody(t, map[string]string{
		"segmentIndex": "3",
		"durationMs":   "2500",
	}, []byte("audio-bytes"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/circles/c1/messages", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "u1", svc.gotUserID)
	assert.Equal(t, "c1", svc.gotCircleID)
	assert.Equal(t, 3, svc.gotReq.SegmentIndex)
	assert.EqualValues(t, 2500, svc.gotReq.DurationMs)
	assert.Equal(t, "recording.m4a", svc.gotReq.FileName)
	assert.Equal(t, []byte("audio-bytes"), svc.gotAudio)
}

func TestSendMessageWithoutAudioPart(t *testing.T) {
	router := messageRouter("u1", &stubMessages{})

	body, contentType := multipartBody(t, map[string]string{"segmentIndex": "0"}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/circles/c1/messages", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSendMessageUploadFailureMapsTo502(t *testing.T) {
	router := messageRouter("u1", &stubMessages{err: core.ErrUploadFailed})

	body, contentType := multipartBody(t, map[string]string{"segmentIndex": "0"}, []byte("x"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/circles/c1/messages", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestListMessagesEndpointReturnsEmptyArray(t *testing.T) {
	router := messageRouter("u1", &stubMessages{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/circles/c1/messages", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestListMessagesEndpoint(t *testing.T) {
	router := messageRouter("u1", &stubMessages{messages: []*models.Message{
		{ID: "m1", CircleID: "c1", SegmentIndex: 0},
		{ID: "m2", CircleID: "c1", SegmentIndex: 1},
	}})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/circles/c1/messages", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got []*models.Message
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].ID)
}
