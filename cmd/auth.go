package main

import (
	"context"
	"time"

	"github.com/sondrake/playfeed/internal/services"
	"github.com/sondrake/playfeed/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin runs the OAuth2 installed-app flow and stores the token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	cfg, err := services.OAuthConfig(r.clientSecretPath(), r.config.YouTube.OAuthPort)
	if err != nil {
		return err
	}

	openURL := shared.OpenBrowser
	if cmd.Bool("no-browser") {
		openURL = func(url string) error {
			r.writePlain("Open this URL in your browser:\n\n  %s\n\n", url)
			return nil
		}
	}

	r.logger.Info("starting authorization flow", "port", r.config.YouTube.OAuthPort)
	r.writePlain("Waiting for authorization in the browser...\n")

	tok, err := services.Authorize(ctx, cfg, r.config.YouTube.OAuthPort, openURL)
	if err != nil {
		return err
	}

	if err := services.SaveToken(r.tokenPath(), tok); err != nil {
		return err
	}

	r.logger.Info("token stored", "path", r.tokenPath())
	r.writePlain("✓ Authorized. Token saved to %s\n", r.tokenPath())
	return nil
}

// AuthStatus reports whether a stored token exists and is still fresh.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	path := r.tokenPath()

	tok, err := services.LoadToken(path)
	if err != nil {
		r.writePlain("✗ No usable token at %s\n", path)
		r.writePlain("Run: playfeed auth login\n")
		return nil
	}

	r.writePlain("Token: %s\n", path)
	switch {
	case tok.Expiry.IsZero():
		r.writePlain("  no recorded expiry\n")
	case time.Now().After(tok.Expiry):
		r.writePlain("  access token expired %s", tok.Expiry.Format(time.DateTime))
		if tok.RefreshToken != "" {
			r.writePlain(" (refresh token present, will renew on next run)")
		}
		r.writePlain("\n")
	default:
		r.writePlain("  valid until %s\n", tok.Expiry.Format(time.DateTime))
	}
	return nil
}
