package blob

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeB2 simulates the subset of the B2 v2 API the client uses.
type fakeB2 struct {
	server *httptest.Server

	authorizeCalls  int32
	listCalls       int32
	uploadCalls     int32
	restrictedID    string
	restrictedName  string
	buckets         []map[string]string
	lastUploadedKey string
	lastSha1Header  string
	lastContentType string
}

func newFakeB2(t *testing.T) *fakeB2 {
	f := &fakeB2{}
	mux := http.NewServeMux()

	mux.HandleFunc("/b2api/v2/b2_authorize_account", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.authorizeCalls, 1)
		if r.Header.Get("Authorization") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"code": "unauthorized", "message": "missing credentials"})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"accountId":          "acct-1",
			"authorizationToken": "acct-token",
			"apiUrl":             f.server.URL,
			"downloadUrl":        f.server.URL + "/dl",
			"allowed": map[string]string{
				"bucketId":   f.restrictedID,
				"bucketName": f.restrictedName,
			},
		})
	})

	mux.HandleFunc("/b2api/v2/b2_list_buckets", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.listCalls, 1)
		require.Equal(t, "acct-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]interface{}{"buckets": f.buckets})
	})

	mux.HandleFunc("/b2api/v2/b2_get_upload_url", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "acct-token", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]string{
			"uploadUrl":          f.server.URL + "/upload",
			"authorizationToken": "upload-token",
		})
	})

	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&f.uploadCalls, 1)
		require.Equal(t, "upload-token", r.Header.Get("Authorization"))
		f.lastUploadedKey = r.Header.Get("X-Bz-File-Name")
		f.lastSha1Header = r.Header.Get("X-Bz-Content-Sha1")
		f.lastContentType = r.Header.Get("Content-Type")
		json.NewEncoder(w).Encode(map[string]string{"fileId": "file-1"})
	})

	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func newTestClient(f *fakeB2, hint string) *Client {
	c := NewClient("key-id", "app-key", hint)
	c.AuthorizeURL = f.server.URL + "/b2api/v2/b2_authorize_account"
	return c
}

func TestUploadWithRestrictedBucket(t *testing.T) {
	f := newFakeB2(t)
	f.restrictedID = "bucket-1"
	f.restrictedName = "aura-circle-audio"

	c := newTestClient(f, "circle")
	url, err := c.Upload(context.Background(), "circles/c1/u1/msg.m4a", "audio/m4a", []byte("audio-bytes"))

	require.NoError(t, err)
	assert.Equal(t, f.server.URL+"/dl/file/aura-circle-audio/circles/c1/u1/msg.m4a", url)
	assert.Equal(t, "do_not_verify", f.lastSha1Header)
	assert.Equal(t, "audio/m4a", f.lastContentType)
	assert.EqualValues(t, 0, f.listCalls, "restricted key must not list buckets")
}

func TestUploadPicksBucketByNameHint(t *testing.T) {
	f := newFakeB2(t)
	f.buckets = []map[string]string{
		{"bucketId": "b-other", "bucketName": "backups"},
		{"bucketId": "b-circle", "bucketName": "Circle-0-audio"},
	}

	c := newTestClient(f, "circle")
	url, err := c.Upload(context.Background(), "key.m4a", "audio/m4a", []byte("x"))

	require.NoError(t, err)
	assert.Contains(t, url, "/file/Circle-0-audio/")
}

func TestUploadFallsBackToFirstBucket(t *testing.T) {
	f := newFakeB2(t)
	f.buckets = []map[string]string{
		{"bucketId": "b-1", "bucketName": "misc"},
		{"bucketId": "b-2", "bucketName": "other"},
	}

	c := newTestClient(f, "circle")
	url, err := c.Upload(context.Background(), "key.m4a", "audio/m4a", []byte("x"))

	require.NoError(t, err)
	assert.Contains(t, url, "/file/misc/")
}

func TestUploadFailsWhenNoBuckets(t *testing.T) {
	f := newFakeB2(t)
	f.buckets = nil

	c := newTestClient(f, "circle")
	_, err := c.Upload(context.Background(), "key.m4a", "audio/m4a", []byte("x"))

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoBuckets)
}

func TestAuthorizationIsCachedAcrossUploads(t *testing.T) {
	f := newFakeB2(t)
	f.restrictedID = "bucket-1"
	f.restrictedName = "aura"

	c := newTestClient(f, "circle")
	_, err := c.Upload(context.Background(), "a.m4a", "audio/m4a", []byte("x"))
	require.NoError(t, err)
	_, err = c.Upload(context.Background(), "b.m4a", "audio/m4a", []byte("y"))
	require.NoError(t, err)

	assert.EqualValues(t, 1, f.authorizeCalls, "authorization token must be reused within a run")
	assert.EqualValues(t, 2, f.uploadCalls)
}

func TestUploadEncodesFileNameSegments(t *testing.T) {
	f := newFakeB2(t)
	f.restrictedID = "bucket-1"
	f.restrictedName = "aura"

	c := newTestClient(f, "circle")
	_, err := c.Upload(context.Background(), "circles/c 1/voice note.m4a", "audio/m4a", []byte("x"))

	require.NoError(t, err)
	assert.Equal(t, "circles/c%201/voice%20note.m4a", f.lastUploadedKey)
}
