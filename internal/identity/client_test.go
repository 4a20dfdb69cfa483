package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdentity struct {
	server      *httptest.Server
	lastPath    string
	lastPayload map[string]interface{}
	respond     func(w http.ResponseWriter, payload map[string]interface{})
}

func newFakeIdentity(t *testing.T) *fakeIdentity {
	f := &fakeIdentity{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.lastPath = r.URL.Path + "?" + r.URL.RawQuery
		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		f.lastPayload = payload
		f.respond(w, payload)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func newTestClient(f *fakeIdentity) *Client {
	c := NewClient("web-api-key")
	c.BaseURL = f.server.URL
	return c
}

func respondOK(w http.ResponseWriter, fields map[string]string) {
	out := map[string]string{
		"localId":      "uid-1",
		"idToken":      "id-token",
		"refreshToken": "refresh-token",
	}
	for k, v := range fields {
		out[k] = v
	}
	json.NewEncoder(w).Encode(out)
}

func respondError(w http.ResponseWriter, code string) {
	w.WriteHeader(http.StatusBadRequest)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]interface{}{"code": 400, "message": code},
	})
}

func TestSignInAnonymously(t *testing.T) {
	f := newFakeIdentity(t)
	f.respond = func(w http.ResponseWriter, _ map[string]interface{}) {
		respondOK(w, nil)
	}

	creds, err := newTestClient(f).SignInAnonymously(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "uid-1", creds.UID)
	assert.Equal(t, "id-token", creds.IDToken)
	assert.True(t, creds.IsAnonymous)
	assert.Contains(t, f.lastPath, "accounts:signUp")
	assert.Contains(t, f.lastPath, "key=web-api-key")
	_, hasEmail := f.lastPayload["email"]
	assert.False(t, hasEmail, "anonymous sign-up must not send credentials")
}

func TestSignInWithEmail(t *testing.T) {
	f := newFakeIdentity(t)
	f.respond = func(w http.ResponseWriter, _ map[string]interface{}) {
		respondOK(w, map[string]string{"email": "a@example.com"})
	}

	creds, err := newTestClient(f).SignInWithEmail(context.Background(), "a@example.com", "hunter22")

	require.NoError(t, err)
	assert.Equal(t, "a@example.com", creds.Email)
	assert.False(t, creds.IsAnonymous)
	assert.Contains(t, f.lastPath, "accounts:signInWithPassword")
	assert.Equal(t, "a@example.com", f.lastPayload["email"])
}

func TestSignUpWithEmail(t *testing.T) {
	f := newFakeIdentity(t)
	f.respond = func(w http.ResponseWriter, _ map[string]interface{}) {
		respondOK(w, map[string]string{"email": "b@example.com"})
	}

	creds, err := newTestClient(f).SignUpWithEmail(context.Background(), "b@example.com", "hunter22")

	require.NoError(t, err)
	assert.Equal(t, "uid-1", creds.UID)
	assert.Contains(t, f.lastPath, "accounts:signUp")
	assert.Equal(t, "b@example.com", f.lastPayload["email"])
}

func TestErrorCodeMapping(t *testing.T) {
	cases := map[string]string{
		"EMAIL_NOT_FOUND":           "No account found with this email",
		"INVALID_PASSWORD":          "Incorrect password",
		"INVALID_EMAIL":             "Invalid email address",
		"INVALID_LOGIN_CREDENTIALS": "Invalid email or password",
		"EMAIL_EXISTS":              "This email is already registered",
		"WEAK_PASSWORD":             "Password is too weak",
	}

	for code, want := range cases {
		f := newFakeIdentity(t)
		f.respond = func(w http.ResponseWriter, _ map[string]interface{}) {
			respondError(w, code)
		}

		_, err := newTestClient(f).SignInWithEmail(context.Background(), "a@example.com", "pw")

		require.Error(t, err, code)
		assert.ErrorIs(t, err, ErrAuthFailed, code)
		assert.Contains(t, err.Error(), want, code)
	}
}

func TestErrorCodeWithSuffix(t *testing.T) {
	f := newFakeIdentity(t)
	f.respond = func(w http.ResponseWriter, _ map[string]interface{}) {
		respondError(w, "WEAK_PASSWORD : Password should be at least 6 characters")
	}

	_, err := newTestClient(f).SignUpWithEmail(context.Background(), "a@example.com", "x")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Password is too weak")
}

func TestUnknownErrorCodePassesThrough(t *testing.T) {
	f := newFakeIdentity(t)
	f.respond = func(w http.ResponseWriter, _ map[string]interface{}) {
		respondError(w, "TOO_MANY_ATTEMPTS_TRY_LATER")
	}

	_, err := newTestClient(f).SignInWithEmail(context.Background(), "a@example.com", "pw")

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthFailed)
	assert.Contains(t, err.Error(), "TOO_MANY_ATTEMPTS_TRY_LATER")
}
