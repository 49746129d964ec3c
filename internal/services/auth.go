package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sondrake/playfeed/internal/server"
	"github.com/sondrake/playfeed/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// authFlowTimeout bounds how long the local callback server waits for the
// user to finish the browser consent screen.
const authFlowTimeout = 120 * time.Second

// OAuthConfig builds the installed-app OAuth2 config from a client secret
// JSON file, with the local callback server as redirect target.
func OAuthConfig(clientSecretPath string, port int) (*oauth2.Config, error) {
	data, err := os.ReadFile(clientSecretPath)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read client secret %s: %v", shared.ErrFatalAuth, clientSecretPath, err)
	}

	cfg, err := google.ConfigFromJSON(data, youtube.YoutubeForceSslScope)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid client secret file: %v", shared.ErrFatalAuth, err)
	}

	cfg.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)
	return cfg, nil
}

// Authorize runs the installed-app authorization code flow: it serves the
// OAuth callback locally, opens the consent screen in the user's browser,
// and exchanges the returned code for a token.
func Authorize(ctx context.Context, cfg *oauth2.Config, port int, openURL func(string) error) (*oauth2.Token, error) {
	state := shared.GenerateID()
	handler := server.NewOAuthHandler(cfg, state)

	router := server.NewBasicRouter()
	router.Use(server.NoStore)
	router.Handler(handler)

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: router}
	go srv.ListenAndServe()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	authURL := cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	if err := openURL(authURL); err != nil {
		return nil, fmt.Errorf("failed to open authorization URL: %w", err)
	}

	select {
	case result := <-handler.Result():
		if result.Error() != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrFatalAuth, result.Error())
		}
		return result.Token, nil
	case <-time.After(authFlowTimeout):
		return nil, fmt.Errorf("%w: authorization flow timed out", shared.ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// LoadToken reads a stored OAuth token from path.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: no stored token at %s, run 'playfeed auth login' first", shared.ErrFatalAuth, path)
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("%w: corrupt token file %s: %v", shared.ErrFatalAuth, path, err)
	}

	return &tok, nil
}

// SaveToken persists an OAuth token to path with owner-only permissions.
func SaveToken(path string, tok *oauth2.Token) error {
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	return nil
}

// NewAuthorizedService constructs a youtube.Service from the stored token,
// refreshing it transparently and persisting refreshed tokens back to disk.
func NewAuthorizedService(ctx context.Context, clientSecretPath, tokenPath string, port int) (*youtube.Service, error) {
	cfg, err := OAuthConfig(clientSecretPath, port)
	if err != nil {
		return nil, err
	}

	tok, err := LoadToken(tokenPath)
	if err != nil {
		return nil, err
	}

	source := &savingTokenSource{
		inner: cfg.TokenSource(ctx, tok),
		path:  tokenPath,
		last:  tok,
	}

	svc, err := youtube.NewService(ctx, option.WithTokenSource(source))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrFatalAuth, err)
	}

	return svc, nil
}

// savingTokenSource writes refreshed tokens back to the token file so the
// next run doesn't have to refresh again.
type savingTokenSource struct {
	inner oauth2.TokenSource
	path  string
	last  *oauth2.Token
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.inner.Token()
	if err != nil {
		return nil, err
	}

	if s.last == nil || tok.AccessToken != s.last.AccessToken {
		s.last = tok
		// Best effort; a failed write only costs a refresh next run.
		_ = SaveToken(s.path, tok)
	}

	return tok, nil
}
