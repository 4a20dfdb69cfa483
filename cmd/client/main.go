// Command client is a terminal client for the circle backend. It restores
// the local session, signs in anonymously when there is none, joins a
// circle, and then either listens to the circle's voice messages, sends a
// recording, or casts the end-of-cycle vote.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"aura-backend-go/internal/identity"
	"aura-backend-go/internal/models"
	"aura-backend-go/internal/session"
)

// lastCircleKey caches the most recent circle ID so a matchmaking outage
// does not lock the user out of the circle they were already in.
const lastCircleKey = "@circle0_last_circle"

func main() {
	var (
		serverURL   = flag.String("server", envOr("CIRCLE_SERVER_URL", "http://localhost:8080"), "backend base URL")
		apiKey      = flag.String("api-key", os.Getenv("FIREBASE_WEB_API_KEY"), "Firebase web API key for sign-in")
		sessionPath = flag.String("session", defaultSessionPath(), "path of the local session file")
		action      = flag.String("action", "listen", "one of: listen, send, vote")
		audioPath   = flag.String("audio", "", "audio file to send (action=send)")
		segment     = flag.Int("segment", 0, "segment index of the recording (action=send)")
		choice      = flag.String("choice", "", "vote choice: stay, break or emerge (action=vote)")
		emergeTo    = flag.String("emerge-target", "", "participant to carry forward (choice=emerge)")
		mask        = flag.String("mask", "", "switch the voice mask before acting")
		email       = flag.String("email", "", "sign in with an email account instead of anonymously")
		password    = flag.String("password", "", "password for -email")
	)
	flag.Parse()

	if *apiKey == "" {
		log.Fatal("FIREBASE_WEB_API_KEY (or -api-key) is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := session.NewFileStore(*sessionPath)
	if err != nil {
		log.Fatalf("Failed to open session store: %v", err)
	}
	state, err := session.LoadState(store)
	if err != nil {
		log.Fatalf("Failed to load session state: %v", err)
	}

	if *mask != "" {
		if !session.IsValidVoiceMask(*mask) {
			log.Fatalf("Unknown voice mask '%s'; choose one of %v", *mask, session.VoiceMasks)
		}
		state.VoiceMask = *mask
	}

	// Sign in unless a cached identity exists. Anonymous is the default
	// path; -email switches to a named account (registered on first use).
	if state.User == nil || state.User.IDToken == "" {
		idClient := identity.NewClient(*apiKey)
		var creds *identity.Credentials
		if *email != "" {
			creds, err = signInWithEmail(ctx, idClient, *email, *password)
		} else {
			creds, err = idClient.SignInAnonymously(ctx)
		}
		if err != nil {
			log.Fatalf("Sign-in failed: %v", err)
		}
		state.User = &session.CachedUser{
			UID:          creds.UID,
			IDToken:      creds.IDToken,
			RefreshToken: creds.RefreshToken,
			Email:        creds.Email,
			IsAnonymous:  creds.IsAnonymous,
		}
		if creds.IsAnonymous {
			fmt.Printf("Signed in anonymously as %s\n", creds.UID)
		} else {
			fmt.Printf("Signed in as %s\n", creds.Email)
		}
	}
	state.HasCompletedOnboarding = true
	if err := state.Save(); err != nil {
		log.Fatalf("Failed to save session state: %v", err)
	}

	client := &backendClient{
		baseURL:    *serverURL,
		idToken:    state.User.IDToken,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}

	if err := client.initializeProfile(ctx); err != nil {
		// Profile initialization is idempotent server-side; a transient
		// failure here is not fatal because joining ensures it again.
		fmt.Printf("Warning: profile initialization failed: %v\n", err)
	}

	circle, err := client.joinCircle(ctx)
	if err != nil {
		// Matchmaking fails open: a connection problem should not lock the
		// user out of the circle they were already in.
		fmt.Printf("Connection error while joining a circle: %v\n", err)
		cachedID, ok, cacheErr := store.Get(lastCircleKey)
		if cacheErr != nil || !ok || cachedID == "" {
			os.Exit(1)
		}
		fmt.Printf("Continuing with your last circle (%s).\n", cachedID)
		circle = &models.Circle{ID: cachedID, MaxParticipants: models.MaxParticipants}
	} else if err := store.Set(lastCircleKey, circle.ID); err != nil {
		fmt.Printf("Warning: failed to cache circle ID: %v\n", err)
	}
	fmt.Printf("Circle %s, day %d/%d, %d of %d voices (mask: %s)\n",
		circle.ID, circle.Day, models.FinalDay, len(circle.Participants), circle.MaxParticipants, state.VoiceMask)

	switch *action {
	case "listen":
		err = listen(ctx, client, circle.ID)
	case "send":
		if *audioPath == "" {
			log.Fatal("-audio is required for action=send")
		}
		err = send(ctx, client, circle.ID, *audioPath, *segment)
	case "vote":
		err = vote(ctx, client, circle.ID, *choice, *emergeTo)
	default:
		log.Fatalf("Unknown action '%s'; expected listen, send or vote", *action)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("Action '%s' failed: %v", *action, err)
	}
}

// signInWithEmail authenticates the account, registering it when it does
// not exist yet.
func signInWithEmail(ctx context.Context, idClient *identity.Client, email, password string) (*identity.Credentials, error) {
	if password == "" {
		return nil, errors.New("-password is required with -email")
	}
	creds, err := idClient.SignInWithEmail(ctx, email, password)
	if err != nil && strings.Contains(err.Error(), "No account found with this email") {
		fmt.Println("No account found; registering.")
		return idClient.SignUpWithEmail(ctx, email, password)
	}
	return creds, err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultSessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".circle-session.json"
	}
	return filepath.Join(home, ".circle", "session.json")
}

// backendClient speaks the backend's REST API with the session's ID token.
type backendClient struct {
	baseURL    string
	idToken    string
	httpClient *http.Client
}

func (c *backendClient) do(ctx context.Context, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.idToken)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s (status %d)", method, path, apiErr.Error, resp.StatusCode)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func (c *backendClient) initializeProfile(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/users/initialize", nil, "", nil)
}

func (c *backendClient) joinCircle(ctx context.Context) (*models.Circle, error) {
	var circle models.Circle
	if err := c.do(ctx, http.MethodPost, "/api/v1/circles/join", nil, "", &circle); err != nil {
		return nil, err
	}
	return &circle, nil
}

func send(ctx context.Context, client *backendClient, circleID, audioPath string, segment int) error {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return fmt.Errorf("failed to read audio file: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("segmentIndex", strconv.Itoa(segment)); err != nil {
		return err
	}
	if err := mw.WriteField("fileName", filepath.Base(audioPath)); err != nil {
		return err
	}
	part, err := mw.CreateFormFile("audio", filepath.Base(audioPath))
	if err != nil {
		return err
	}
	if _, err := part.Write(audio); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}

	var message models.Message
	path := fmt.Sprintf("/api/v1/circles/%s/messages", circleID)
	if err := client.do(ctx, http.MethodPost, path, &buf, mw.FormDataContentType(), &message); err != nil {
		return err
	}
	fmt.Printf("Sent message %s to segment %d (%s)\n", message.ID, message.SegmentIndex, message.AudioURL)
	return nil
}

func listen(ctx context.Context, client *backendClient, circleID string) error {
	messages, err := fetchMessages(ctx, client, circleID)
	if err != nil {
		return err
	}
	printMessages(messages)

	// Poll for replacements. The server also exposes an SSE stream; plain
	// polling keeps the terminal client dependency-free on the read side.
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	lastCount := len(messages)

	fmt.Println("Listening for new messages (Ctrl-C to stop)...")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			messages, err := fetchMessages(ctx, client, circleID)
			if err != nil {
				fmt.Printf("Warning: refresh failed: %v\n", err)
				continue
			}
			if len(messages) != lastCount {
				printMessages(messages)
				lastCount = len(messages)
			}
		}
	}
}

func fetchMessages(ctx context.Context, client *backendClient, circleID string) ([]*models.Message, error) {
	var messages []*models.Message
	path := fmt.Sprintf("/api/v1/circles/%s/messages", circleID)
	if err := client.do(ctx, http.MethodGet, path, nil, "", &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func printMessages(messages []*models.Message) {
	fmt.Printf("--- %d messages ---\n", len(messages))
	for _, m := range messages {
		fmt.Printf("  segment %d  %s  %.1fs  %s\n",
			m.SegmentIndex, m.AuthorID, float64(m.DurationMs)/1000, m.CreatedAt.Format(time.Kitchen))
	}
}

func vote(ctx context.Context, client *backendClient, circleID, choice, emergeTarget string) error {
	if choice == "" {
		return errors.New("-choice is required for action=vote")
	}

	body, err := json.Marshal(models.SubmitVoteRequest{Choice: choice, EmergeTarget: emergeTarget})
	if err != nil {
		return err
	}

	var outcome struct {
		Title     string `json:"title"`
		Message   string `json:"message"`
		NextRoute string `json:"nextRoute"`
	}
	path := fmt.Sprintf("/api/v1/circles/%s/votes", circleID)
	if err := client.do(ctx, http.MethodPost, path, bytes.NewReader(body), "application/json", &outcome); err != nil {
		return err
	}

	fmt.Printf("\n%s\n%s\n", outcome.Title, outcome.Message)
	if outcome.NextRoute == "matchmaking" {
		fmt.Println("You will be matched into a new circle next time you join.")
	}
	return nil
}
