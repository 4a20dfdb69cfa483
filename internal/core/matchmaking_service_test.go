package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"aura-backend-go/internal/db"
	"aura-backend-go/internal/models"
)

// fakeUserRepo is an in-memory db.UserRepository.
type fakeUserRepo struct {
	users map[string]*models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*models.User)}
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	f.users[user.ID] = user
	return nil
}

// fakeCircleRepo is an in-memory db.CircleRepository with counters for
// asserting write behaviour.
type fakeCircleRepo struct {
	circles map[string]*models.Circle
	order   []string

	creates    int
	addCalls   int
	listErr    error
	addErrOnce map[string]error // circleID -> error returned on first AddParticipant
	nextID     int
}

func newFakeCircleRepo() *fakeCircleRepo {
	return &fakeCircleRepo{
		circles:    make(map[string]*models.Circle),
		addErrOnce: make(map[string]error),
	}
}

func (f *fakeCircleRepo) put(c *models.Circle) {
	f.circles[c.ID] = c
	f.order = append(f.order, c.ID)
}

func (f *fakeCircleRepo) Create(_ context.Context, circle *models.Circle) (string, error) {
	f.creates++
	f.nextID++
	id := circle.ID
	if id == "" {
		id = fmt.Sprintf("created-%d", f.nextID)
	}
	circle.ID = id
	f.put(circle)
	return id, nil
}

func (f *fakeCircleRepo) GetByID(_ context.Context, id string) (*models.Circle, error) {
	c, ok := f.circles[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCircleRepo) FindActiveByParticipant(_ context.Context, userID string) (*models.Circle, error) {
	for _, id := range f.order {
		c := f.circles[id]
		if c.Status == models.CircleStatusActive && c.HasParticipant(userID) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, db.ErrNotFound
}

func (f *fakeCircleRepo) ListActive(_ context.Context) ([]*models.Circle, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*models.Circle
	for _, id := range f.order {
		c := f.circles[id]
		if c.Status == models.CircleStatusActive {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeCircleRepo) AddParticipant(_ context.Context, circleID, userID string) (*models.Circle, error) {
	f.addCalls++
	if err, ok := f.addErrOnce[circleID]; ok {
		delete(f.addErrOnce, circleID)
		return nil, err
	}
	c, ok := f.circles[circleID]
	if !ok {
		return nil, db.ErrNotFound
	}
	if c.Status != models.CircleStatusActive {
		return nil, db.ErrCircleNotActive
	}
	if c.HasParticipant(userID) {
		return nil, db.ErrAlreadyParticipant
	}
	if !c.HasRoom() {
		return nil, db.ErrCircleFull
	}
	c.Participants = append(c.Participants, userID)
	cp := *c
	return &cp, nil
}

func newMatchmaking(cr db.CircleRepository) MatchmakingService {
	return NewMatchmakingService(cr, NewUserService(newFakeUserRepo()))
}

func TestJoinCircleRejoinIsIdempotent(t *testing.T) {
	repo := newFakeCircleRepo()
	repo.put(&models.Circle{
		ID:              "c1",
		Day:             3,
		Status:          models.CircleStatusActive,
		Participants:    []string{"u1", "u2"},
		MaxParticipants: models.MaxParticipants,
	})

	svc := newMatchmaking(repo)
	circle, err := svc.JoinCircle(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, "c1", circle.ID)
	assert.Equal(t, 3, circle.Day)
	assert.Zero(t, repo.creates, "rejoin must not create circles")
	assert.Zero(t, repo.addCalls, "rejoin must not rewrite participants")
}

func TestJoinCircleCreatesWhenNoneActive(t *testing.T) {
	repo := newFakeCircleRepo()

	svc := newMatchmaking(repo)
	circle, err := svc.JoinCircle(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, 1, circle.Day)
	assert.Equal(t, models.CircleStatusActive, circle.Status)
	assert.Equal(t, []string{"u1"}, circle.Participants)
	assert.Equal(t, models.MaxParticipants, circle.MaxParticipants)
	assert.Contains(t, circle.Settings.VoiceMaskOptions, "soft-echo")
	assert.Equal(t, 1, repo.creates)
}

func TestJoinCircleFillsExistingRoom(t *testing.T) {
	repo := newFakeCircleRepo()
	repo.put(&models.Circle{
		ID:              "c1",
		Day:             2,
		Status:          models.CircleStatusActive,
		Participants:    []string{"a", "b", "c", "d", "e", "f"},
		MaxParticipants: models.MaxParticipants,
	})

	svc := newMatchmaking(repo)
	circle, err := svc.JoinCircle(context.Background(), "u7")

	require.NoError(t, err)
	assert.Equal(t, "c1", circle.ID)
	assert.Len(t, circle.Participants, 7)
	assert.Contains(t, circle.Participants, "u7")
	assert.Zero(t, repo.creates)
}

func TestJoinCircleSkipsFullCircles(t *testing.T) {
	repo := newFakeCircleRepo()
	repo.put(&models.Circle{
		ID:              "full",
		Status:          models.CircleStatusActive,
		Participants:    []string{"a", "b", "c", "d", "e", "f", "g"},
		MaxParticipants: models.MaxParticipants,
	})

	svc := newMatchmaking(repo)
	circle, err := svc.JoinCircle(context.Background(), "u8")

	require.NoError(t, err)
	assert.NotEqual(t, "full", circle.ID)
	assert.Equal(t, []string{"u8"}, circle.Participants)
	assert.Equal(t, 1, repo.creates)
	assert.Zero(t, repo.addCalls, "full circle must be filtered before the write")
}

func TestJoinCircleMovesOnAfterLosingRace(t *testing.T) {
	repo := newFakeCircleRepo()
	repo.put(&models.Circle{
		ID:              "contested",
		Status:          models.CircleStatusActive,
		Participants:    []string{"a"},
		MaxParticipants: models.MaxParticipants,
	})
	repo.put(&models.Circle{
		ID:              "open",
		Status:          models.CircleStatusActive,
		Participants:    []string{"b"},
		MaxParticipants: models.MaxParticipants,
	})
	// Simulate a concurrent join taking the contested slot first.
	repo.addErrOnce["contested"] = db.ErrCircleFull

	svc := newMatchmaking(repo)
	circle, err := svc.JoinCircle(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, "open", circle.ID)
	assert.Contains(t, circle.Participants, "u1")
	assert.Zero(t, repo.creates)
}

func TestJoinCircleCreatesOnPermissionDeniedListing(t *testing.T) {
	repo := newFakeCircleRepo()
	repo.listErr = status.Error(codes.PermissionDenied, "listing denied by rules")

	svc := newMatchmaking(repo)
	circle, err := svc.JoinCircle(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, circle.Participants)
	assert.Equal(t, 1, repo.creates)
}

func TestJoinCircleSurfacesOtherListingErrors(t *testing.T) {
	repo := newFakeCircleRepo()
	repo.listErr = errors.New("firestore unavailable")

	svc := newMatchmaking(repo)
	_, err := svc.JoinCircle(context.Background(), "u1")

	require.Error(t, err)
	assert.Zero(t, repo.creates)
}

func TestJoinCircleEnsuresUserProfile(t *testing.T) {
	repo := newFakeCircleRepo()
	users := newFakeUserRepo()

	svc := NewMatchmakingService(repo, NewUserService(users))
	_, err := svc.JoinCircle(context.Background(), "fresh-uid")

	require.NoError(t, err)
	created, ok := users.users["fresh-uid"]
	require.True(t, ok, "joining must create the user profile")
	assert.Equal(t, "fresh-uid", created.AnonymousID)
}

func TestGetCircleNotFound(t *testing.T) {
	svc := newMatchmaking(newFakeCircleRepo())

	_, err := svc.GetCircle(context.Background(), "missing")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircleNotFound)
}
