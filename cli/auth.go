// ABOUTME: Calendar provider auth CLI commands
// ABOUTME: Handles the OAuth code flow and token storage per user
package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"golang.org/x/oauth2"

	"github.com/dwelldigitally/learnlynk-calsync/auth"
)

// AuthInitCommand runs the OAuth authorization-code flow for a user and
// stores the resulting token plus the authenticated account address.
func AuthInitCommand(provider, userID string, args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	_ = fs.Parse(args)

	ctx := context.Background()

	config, err := auth.NewOAuthConfig(provider)
	if err != nil {
		return err
	}
	if config.ClientID == "" || config.ClientSecret == "" {
		return fmt.Errorf("OAuth credentials not configured for provider %q: set the client id and secret environment variables", provider)
	}

	// Start local server for OAuth callback
	callbackChan := make(chan *oauth2.Token)
	errChan := make(chan error)

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/callback", func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			errChan <- fmt.Errorf("no authorization code received")
			return
		}

		token, err := config.Exchange(ctx, code)
		if err != nil {
			errChan <- fmt.Errorf("failed to exchange code: %w", err)
			return
		}

		callbackChan <- token
		_, _ = fmt.Fprintf(w, "Authorization successful! You can close this window.")
	})

	server := &http.Server{Addr: ":8080", Handler: mux}
	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	authURL := config.AuthCodeURL("state", oauth2.AccessTypeOffline)

	fmt.Printf("Opening browser for %s OAuth...\n", provider)
	fmt.Printf("\nIf browser doesn't open, visit this URL:\n%s\n\n", authURL)

	_ = openBrowser(authURL)

	select {
	case token := <-callbackChan:
		_ = server.Shutdown(ctx)

		account, err := resolveAccount(ctx, provider, config, token)
		if err != nil {
			fmt.Printf("warning: could not resolve account address: %v\n", err)
		}

		if err := auth.SaveToken(userID, token, account); err != nil {
			return fmt.Errorf("failed to save token: %w", err)
		}

		fmt.Printf("\n✓ Authenticated as %s\n", account)
		fmt.Printf("✓ Token saved to %s\n\n", auth.TokenPath(userID))
		fmt.Println("Ready to sync! Run 'calsync sync run' to pull remote events.")

		return nil

	case err := <-errChan:
		_ = server.Shutdown(ctx)
		return err
	}
}

// resolveAccount asks the provider who the token belongs to.
func resolveAccount(ctx context.Context, provider string, config *oauth2.Config, token *oauth2.Token) (string, error) {
	client := config.Client(ctx, token)
	client.Timeout = 15 * time.Second

	switch provider {
	case auth.ProviderGraph:
		resp, err := client.Get("https://graph.microsoft.com/v1.0/me")
		if err != nil {
			return "", err
		}
		defer func() { _ = resp.Body.Close() }()
		var me struct {
			Mail              string `json:"mail"`
			UserPrincipalName string `json:"userPrincipalName"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&me); err != nil {
			return "", err
		}
		if me.Mail != "" {
			return me.Mail, nil
		}
		return me.UserPrincipalName, nil

	case auth.ProviderGoogle:
		resp, err := client.Get("https://www.googleapis.com/calendar/v3/calendars/primary")
		if err != nil {
			return "", err
		}
		defer func() { _ = resp.Body.Close() }()
		var cal struct {
			ID string `json:"id"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&cal); err != nil {
			return "", err
		}
		return cal.ID, nil

	default:
		return "", fmt.Errorf("unknown provider %q", provider)
	}
}

// openBrowser opens a URL in the default browser.
func openBrowser(url string) error {
	var cmd string
	var args []string

	switch runtime.GOOS {
	case "darwin":
		cmd = "open"
	case "windows":
		cmd = "rundll32"
		args = []string{"url.dll,FileProtocolHandler"}
	default:
		cmd = "xdg-open"
	}

	args = append(args, url)
	return exec.Command(cmd, args...).Start()
}
