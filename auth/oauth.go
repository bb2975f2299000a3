// ABOUTME: OAuth configuration and token storage for calendar providers
// ABOUTME: Handles per-user token files at XDG paths with auto-refresh
package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
	"golang.org/x/oauth2/google"
)

// Provider names accepted by NewOAuthConfig and the CAL_PROVIDER env var.
const (
	ProviderGraph  = "graph"
	ProviderGoogle = "google"
)

// NewOAuthConfig builds the OAuth2 config for a calendar provider. Client
// credentials come from the environment; users register their own app in the
// provider's console.
func NewOAuthConfig(provider string) (*oauth2.Config, error) {
	switch provider {
	case ProviderGraph:
		return &oauth2.Config{
			ClientID:     os.Getenv("MS_CLIENT_ID"),
			ClientSecret: os.Getenv("MS_CLIENT_SECRET"),
			RedirectURL:  "http://localhost:8080/oauth/callback",
			Scopes: []string{
				"offline_access",
				"https://graph.microsoft.com/Calendars.ReadWrite",
				"https://graph.microsoft.com/User.Read",
			},
			Endpoint: endpoints.AzureAD("common"),
		}, nil
	case ProviderGoogle:
		return &oauth2.Config{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  "http://localhost:8080/oauth/callback",
			Scopes: []string{
				"https://www.googleapis.com/auth/calendar",
			},
			Endpoint: google.Endpoint,
		}, nil
	default:
		return nil, fmt.Errorf("unknown calendar provider %q", provider)
	}
}

// storedToken is the on-disk token shape: the OAuth token plus the
// authenticated account address resolved at auth time.
type storedToken struct {
	oauth2.Token
	Account string `json:"account,omitempty"`
}

// TokenPath returns XDG-compliant path for a user's stored token.
func TokenPath(userID string) string {
	return filepath.Join(xdg.DataHome, "learnlynk-calsync", "tokens", userID+".json")
}

// SaveToken saves a user's OAuth token and account address.
func SaveToken(userID string, token *oauth2.Token, account string) error {
	path := TokenPath(userID)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	// Write token file with restricted permissions
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewEncoder(f).Encode(storedToken{Token: *token, Account: account}); err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}

	return nil
}

// LoadToken loads a user's OAuth token and account address.
func LoadToken(userID string) (*oauth2.Token, string, error) {
	f, err := os.Open(TokenPath(userID))
	if err != nil {
		return nil, "", fmt.Errorf("failed to open token file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var stored storedToken
	if err := json.NewDecoder(f).Decode(&stored); err != nil {
		return nil, "", fmt.Errorf("failed to decode token: %w", err)
	}

	return &stored.Token, stored.Account, nil
}
