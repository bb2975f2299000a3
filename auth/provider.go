// ABOUTME: Token provider for the sync engine
// ABOUTME: Resolves a valid bearer token and account address per user
package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// Provider turns stored refresh tokens into live bearer tokens. Refresh and
// expiry are handled by the oauth2 token source; callers only ever see a
// currently valid credential.
type Provider struct {
	config *oauth2.Config
}

func NewProvider(config *oauth2.Config) *Provider {
	return &Provider{config: config}
}

// GetValidToken returns a valid bearer token and the authenticated account's
// address for a user. A refreshed token is written back to disk best-effort.
func (p *Provider) GetValidToken(ctx context.Context, userID string) (string, string, error) {
	stored, account, err := LoadToken(userID)
	if err != nil {
		return "", "", fmt.Errorf("no stored credentials for %s: %w", userID, err)
	}

	fresh, err := p.config.TokenSource(ctx, stored).Token()
	if err != nil {
		return "", "", fmt.Errorf("failed to refresh token for %s: %w", userID, err)
	}

	if fresh.AccessToken != stored.AccessToken {
		_ = SaveToken(userID, fresh, account)
	}

	return fresh.AccessToken, account, nil
}
