package session

import (
	"encoding/json"
	"fmt"
)

// Storage keys. The "@circle0_" prefix namespaces this app's entries in the
// shared key-value store.
const (
	keyUser       = "@circle0_user"
	keyOnboarding = "@circle0_onboarding"
	keyVoiceMask  = "@circle0_voice_mask"
	keySettings   = "@circle0_settings"
)

// DefaultVoiceMask is applied until the user picks one.
const DefaultVoiceMask = "raw"

// VoiceMasks are the selectable client-side voice filters.
var VoiceMasks = []string{"raw", "soft-echo", "warm-blur", "deep-calm", "synthetic-whisper"}

// CachedUser is the locally cached identity, enough to resume a session
// without a fresh sign-in round trip.
type CachedUser struct {
	UID          string `json:"uid"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	Email        string `json:"email,omitempty"`
	IsAnonymous  bool   `json:"isAnonymous"`
}

// Settings are the user-tunable client preferences.
type Settings struct {
	AnonymousMode        bool `json:"anonymousMode"`
	AudioRetention       bool `json:"audioRetention"`
	NotificationsEnabled bool `json:"notificationsEnabled"`
}

// DefaultSettings returns the preferences applied before the user changes
// anything.
func DefaultSettings() Settings {
	return Settings{
		AnonymousMode:        true,
		AudioRetention:       false,
		NotificationsEnabled: true,
	}
}

// AppState is the client's persisted state as one explicit object. It is
// loaded once at startup and saved whenever a field changes.
type AppState struct {
	User                   *CachedUser
	VoiceMask              string
	Settings               Settings
	HasCompletedOnboarding bool

	store Store
}

// LoadState reads the persisted state from the store, applying defaults for
// anything absent. A corrupt individual entry fails the load rather than
// being silently discarded.
func LoadState(store Store) (*AppState, error) {
	state := &AppState{
		VoiceMask: DefaultVoiceMask,
		Settings:  DefaultSettings(),
		store:     store,
	}

	if raw, ok, err := store.Get(keyUser); err != nil {
		return nil, err
	} else if ok {
		var u CachedUser
		if err := json.Unmarshal([]byte(raw), &u); err != nil {
			return nil, fmt.Errorf("failed to parse cached user: %w", err)
		}
		state.User = &u
	}

	if raw, ok, err := store.Get(keyOnboarding); err != nil {
		return nil, err
	} else if ok {
		state.HasCompletedOnboarding = raw == "true"
	}

	if raw, ok, err := store.Get(keyVoiceMask); err != nil {
		return nil, err
	} else if ok && raw != "" {
		state.VoiceMask = raw
	}

	if raw, ok, err := store.Get(keySettings); err != nil {
		return nil, err
	} else if ok {
		var s Settings
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, fmt.Errorf("failed to parse settings: %w", err)
		}
		state.Settings = s
	}

	return state, nil
}

// Save writes every field back to the store.
func (a *AppState) Save() error {
	if a.User != nil {
		raw, err := json.Marshal(a.User)
		if err != nil {
			return fmt.Errorf("failed to encode cached user: %w", err)
		}
		if err := a.store.Set(keyUser, string(raw)); err != nil {
			return err
		}
	} else if err := a.store.Remove(keyUser); err != nil {
		return err
	}

	onboarding := "false"
	if a.HasCompletedOnboarding {
		onboarding = "true"
	}
	if err := a.store.Set(keyOnboarding, onboarding); err != nil {
		return err
	}

	if err := a.store.Set(keyVoiceMask, a.VoiceMask); err != nil {
		return err
	}

	raw, err := json.Marshal(a.Settings)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return a.store.Set(keySettings, string(raw))
}

// Reset clears the persisted state and restores in-memory defaults. Used on
// sign-out.
func (a *AppState) Reset() error {
	for _, key := range []string{keyUser, keyOnboarding, keyVoiceMask, keySettings} {
		if err := a.store.Remove(key); err != nil {
			return err
		}
	}
	a.User = nil
	a.VoiceMask = DefaultVoiceMask
	a.Settings = DefaultSettings()
	a.HasCompletedOnboarding = false
	return nil
}

// IsValidVoiceMask reports whether mask is one of the selectable filters.
func IsValidVoiceMask(mask string) bool {
	for _, m := range VoiceMasks {
		if m == mask {
			return true
		}
	}
	return false
}
