// Package blob implements the Backblaze B2 native-API upload pipeline:
// authorize the account, resolve a target bucket, obtain a single-use upload
// URL, push the bytes, and construct the public download URL. The native
// b2api/v2 flow (X-Bz-* headers, per-upload URLs, checksum sentinel) has no
// S3-compatible equivalent, so this speaks plain HTTP.
package blob

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultAuthorizeURL = "https://api.backblazeb2.com/b2api/v2/b2_authorize_account"

// sha1DoNotVerify disables server-side checksum verification; the client
// does not compute SHA1 over audio payloads.
const sha1DoNotVerify = "do_not_verify"

var (
	// ErrNoBuckets is returned when the account has no buckets to upload into.
	ErrNoBuckets = errors.New("no buckets found in B2 account")
)

// Client is a Backblaze B2 upload client. The account authorization obtained
// on first use is cached for the lifetime of the client and reused across
// uploads; it is not re-fetched per upload.
type Client struct {
	// AuthorizeURL lets tests point the client at a fake API; empty means the
	// production endpoint.
	AuthorizeURL string

	httpClient     *http.Client
	keyID          string
	applicationKey string
	bucketNameHint string

	mu         sync.Mutex
	auth       *accountAuthorization
	bucketID   string
	bucketName string
}

// accountAuthorization mirrors the b2_authorize_account response fields the
// client consumes.
type accountAuthorization struct {
	AccountID          string `json:"accountId"`
	AuthorizationToken string `json:"authorizationToken"`
	APIURL             string `json:"apiUrl"`
	DownloadURL        string `json:"downloadUrl"`
	Allowed            struct {
		BucketID   string `json:"bucketId"`
		BucketName string `json:"bucketName"`
	} `json:"allowed"`
}

type uploadTarget struct {
	UploadURL          string `json:"uploadUrl"`
	AuthorizationToken string `json:"authorizationToken"`
}

// NewClient creates a B2 client for the given application key pair.
// bucketNameHint is the substring used to pick a bucket when the key is not
// restricted to one (e.g. "circle"); when no bucket matches, the first
// listed bucket is used.
func NewClient(keyID, applicationKey, bucketNameHint string) *Client {
	return &Client{
		httpClient:     &http.Client{Timeout: 60 * time.Second},
		keyID:          keyID,
		applicationKey: applicationKey,
		bucketNameHint: bucketNameHint,
	}
}

// Upload pushes data to B2 under fileName and returns the public download
// URL. The steps run strictly sequentially: authorize, resolve bucket, get
// upload URL, upload. A single call makes exactly one upload attempt;
// retrying is the caller's policy, not this client's.
func (c *Client) Upload(ctx context.Context, fileName, contentType string, data []byte) (string, error) {
	auth, err := c.authorize(ctx)
	if err != nil {
		return "", fmt.Errorf("b2 authorization failed: %w", err)
	}

	bucketID, bucketName, err := c.resolveBucket(ctx, auth)
	if err != nil {
		return "", fmt.Errorf("b2 bucket resolution failed: %w", err)
	}

	target, err := c.getUploadURL(ctx, auth, bucketID)
	if err != nil {
		return "", fmt.Errorf("b2 get upload url failed: %w", err)
	}

	if err := c.uploadFile(ctx, target, fileName, contentType, data); err != nil {
		return "", fmt.Errorf("b2 upload failed: %w", err)
	}

	// Friendly URL: {downloadUrl}/file/{bucketName}/{urlEncodedFileName}
	return fmt.Sprintf("%s/file/%s/%s", auth.DownloadURL, bucketName, encodeFileName(fileName)), nil
}

// authorize returns the cached account authorization, fetching it once via
// b2_authorize_account with the long-lived key pair as HTTP basic auth.
func (c *Client) authorize(ctx context.Context) (*accountAuthorization, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.auth != nil {
		return c.auth, nil
	}

	authorizeURL := c.AuthorizeURL
	if authorizeURL == "" {
		authorizeURL = defaultAuthorizeURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authorizeURL, nil)
	if err != nil {
		return nil, err
	}
	encoded := base64.StdEncoding.EncodeToString([]byte(c.keyID + ":" + c.applicationKey))
	req.Header.Set("Authorization", "Basic "+encoded)

	var auth accountAuthorization
	if err := c.doJSON(req, &auth); err != nil {
		return nil, err
	}

	c.auth = &auth
	return c.auth, nil
}

// resolveBucket determines the target bucket: the bucket the key is scoped
// to when restricted, otherwise the first listed bucket whose name contains
// the configured hint, otherwise the first listed bucket.
func (c *Client) resolveBucket(ctx context.Context, auth *accountAuthorization) (string, string, error) {
	c.mu.Lock()
	if c.bucketID != "" {
		id, name := c.bucketID, c.bucketName
		c.mu.Unlock()
		return id, name, nil
	}
	c.mu.Unlock()

	if auth.Allowed.BucketID != "" {
		c.mu.Lock()
		c.bucketID, c.bucketName = auth.Allowed.BucketID, auth.Allowed.BucketName
		c.mu.Unlock()
		return auth.Allowed.BucketID, auth.Allowed.BucketName, nil
	}

	body, err := json.Marshal(map[string]string{"accountId": auth.AccountID})
	if err != nil {
		return "", "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, auth.APIURL+"/b2api/v2/b2_list_buckets", bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Authorization", auth.AuthorizationToken)
	req.Header.Set("Content-Type", "application/json")

	var listing struct {
		Buckets []struct {
			BucketID   string `json:"bucketId"`
			BucketName string `json:"bucketName"`
		} `json:"buckets"`
	}
	if err := c.doJSON(req, &listing); err != nil {
		return "", "", err
	}
	if len(listing.Buckets) == 0 {
		return "", "", ErrNoBuckets
	}

	chosen := listing.Buckets[0]
	if c.bucketNameHint != "" {
		for _, b := range listing.Buckets {
			if strings.Contains(strings.ToLower(b.BucketName), strings.ToLower(c.bucketNameHint)) {
				chosen = b
				break
			}
		}
	}

	c.mu.Lock()
	c.bucketID, c.bucketName = chosen.BucketID, chosen.BucketName
	c.mu.Unlock()
	return chosen.BucketID, chosen.BucketName, nil
}

// getUploadURL requests a single-use upload URL and token for the bucket.
func (c *Client) getUploadURL(ctx context.Context, auth *accountAuthorization, bucketID string) (*uploadTarget, error) {
	body, err := json.Marshal(map[string]string{"bucketId": bucketID})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, auth.APIURL+"/b2api/v2/b2_get_upload_url", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", auth.AuthorizationToken)
	req.Header.Set("Content-Type", "application/json")

	var target uploadTarget
	if err := c.doJSON(req, &target); err != nil {
		return nil, err
	}
	return &target, nil
}

// uploadFile streams the payload to the single-use upload URL with the
// headers B2 requires.
func (c *Client) uploadFile(ctx context.Context, target *uploadTarget, fileName, contentType string, data []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.UploadURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", target.AuthorizationToken)
	req.Header.Set("X-Bz-File-Name", encodeFileName(fileName))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Bz-Content-Sha1", sha1DoNotVerify)
	req.ContentLength = int64(len(data))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return responseError(resp)
	}
	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// doJSON executes req and decodes a JSON response body into out, turning
// non-2xx statuses into errors carrying the B2 error message.
func (c *Client) doJSON(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return responseError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode B2 response: %w", err)
	}
	return nil
}

func responseError(resp *http.Response) error {
	var apiErr struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		return fmt.Errorf("B2 API error (status %d, code %s): %s", resp.StatusCode, apiErr.Code, apiErr.Message)
	}
	return fmt.Errorf("B2 API error (status %d): %s", resp.StatusCode, resp.Status)
}

// encodeFileName percent-encodes a destination key the way the B2 docs
// require (segments encoded, "/" kept as separator).
func encodeFileName(fileName string) string {
	segments := strings.Split(fileName, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
