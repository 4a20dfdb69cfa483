package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"aura-backend-go/internal/core"
	"aura-backend-go/internal/models"
)

type stubMatchmaking struct {
	circle *models.Circle
	err    error
}

func (s *stubMatchmaking) JoinCircle(context.Context, string) (*models.Circle, error) {
	return s.circle, s.err
}

func (s *stubMatchmaking) GetCircle(context.Context, string) (*models.Circle, error) {
	return s.circle, s.err
}

// circleRouter builds a router with the auth middleware replaced by a stub
// that injects the given user ID.
func circleRouter(userID string, svc core.MatchmakingService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewCircleHandler(svc)

	auth := func(c *gin.Context) {
		if userID != "" {
			c.Set("userID", userID)
		}
		c.Next()
	}
	group := router.Group("/api/v1/circles", auth)
	group.POST("/join", handler.JoinCircle)
	group.GET("/:circleId", handler.GetCircle)
	group.GET("/:circleId/members", handler.GetMembers)
	return router
}

func testCircle() *models.Circle {
	return &models.Circle{
		ID:              "c1",
		Day:             4,
		Status:          models.CircleStatusActive,
		Participants:    []string{"u1", "u2"},
		MaxParticipants: models.MaxParticipants,
	}
}

func TestJoinCircleEndpoint(t *testing.T) {
	router := circleRouter("u1", &stubMatchmaking{circle: testCircle()})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/circles/join", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got models.Circle
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "c1", got.ID)
	assert.Equal(t, 4, got.Day)
}

func TestJoinCircleRequiresAuth(t *testing.T) {
	router := circleRouter("", &stubMatchmaking{circle: testCircle()})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/circles/join", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetCircleForbiddenForOutsider(t *testing.T) {
	router := circleRouter("outsider", &stubMatchmaking{circle: testCircle()})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/circles/c1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGetCircleNotFoundMapsTo404(t *testing.T) {
	router := circleRouter("u1", &stubMatchmaking{err: core.ErrCircleNotFound})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/circles/missing", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetCircleUnexpectedErrorMapsTo500(t *testing.T) {
	router := circleRouter("u1", &stubMatchmaking{err: errors.New("firestore unavailable")})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/circles/c1", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotContains(t, resp.Error, "firestore", "internal details must not leak")
}

func TestGetMembersEndpoint(t *testing.T) {
	router := circleRouter("u2", &stubMatchmaking{circle: testCircle()})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/circles/c1/members", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var got CircleMembersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "c1", got.CircleID)
	assert.Equal(t, []string{"u1", "u2"}, got.Participants)
}
