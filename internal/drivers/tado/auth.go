package tado

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/oauth2"

	"tadoif/internal/core"
)

// Refresh exchanges refreshToken for a new access token and a rotated refresh token.
// tado° invalidates refreshToken as soon as the new one is issued, so the caller
// must persist Credentials.RefreshToken before doing anything else.
func (d *Driver) Refresh(ctx context.Context, refreshToken string) (core.Credentials, error) {
	if refreshToken == "" {
		return core.Credentials{}, fmt.Errorf("%w: empty refresh token", core.ErrAuth)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, d.authClient)

	token, err := d.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode != "" {
			msg := retrieveErr.ErrorCode
			if retrieveErr.ErrorDescription != "" {
				msg += " (" + retrieveErr.ErrorDescription + ")"
			}
			return core.Credentials{}, fmt.Errorf("%w: cannot refresh token: %s", core.ErrAuth, msg)
		}
		return core.Credentials{}, fmt.Errorf("%w: cannot refresh token: %w", core.ErrAuth, err)
	}

	if token.AccessToken == "" {
		return core.Credentials{}, fmt.Errorf("%w: no access token in reply from tado", core.ErrAuth)
	}

	// oauth2 carries the old refresh token forward when the reply has none
	if token.RefreshToken == "" || token.RefreshToken == refreshToken {
		return core.Credentials{}, fmt.Errorf("%w: no refresh token in reply from tado", core.ErrAuth)
	}

	return core.Credentials{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
	}, nil
}
