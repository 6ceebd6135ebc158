package logging

import (
	"context"
	"log/slog"
	"time"

	"tadoif/internal/core"
)

// AuthenticatorLogger wraps a core.Authenticator and logs every token exchange
type AuthenticatorLogger struct {
	auth   core.Authenticator
	logger *slog.Logger
}

// NewAuthenticatorLogger creates a new logging decorator for an Authenticator
func NewAuthenticatorLogger(auth core.Authenticator, logger *slog.Logger) core.Authenticator {
	return &AuthenticatorLogger{
		auth:   auth,
		logger: logger.With("interface", "Authenticator"),
	}
}

func (l *AuthenticatorLogger) Refresh(ctx context.Context, refreshToken string) (core.Credentials, error) {
	start := time.Now()
	l.logger.Debug("Refresh called",
		"refresh_token_length", len(refreshToken))

	creds, err := l.auth.Refresh(ctx, refreshToken)
	duration := time.Since(start)

	if err != nil {
		l.logger.Debug("Refresh failed",
			"duration", duration,
			"error", err)
		return core.Credentials{}, err
	}

	l.logger.Debug("Refresh completed",
		"access_token_expiry", creds.Expiry,
		"refresh_token_rotated", creds.RefreshToken != refreshToken,
		"duration", duration)

	return creds, nil
}

// HomeFetcherLogger wraps a core.HomeFetcher and logs every fetch
type HomeFetcherLogger struct {
	fetcher core.HomeFetcher
	logger  *slog.Logger
}

// NewHomeFetcherLogger creates a new logging decorator for a HomeFetcher
func NewHomeFetcherLogger(fetcher core.HomeFetcher, logger *slog.Logger) core.HomeFetcher {
	return &HomeFetcherLogger{
		fetcher: fetcher,
		logger:  logger.With("interface", "HomeFetcher"),
	}
}

func (l *HomeFetcherLogger) Fetch(ctx context.Context, accessToken string) (*core.Snapshot, error) {
	start := time.Now()
	l.logger.Debug("Fetch called")

	snapshot, err := l.fetcher.Fetch(ctx, accessToken)
	duration := time.Since(start)

	if err != nil {
		l.logger.Debug("Fetch failed",
			"duration", duration,
			"error", err)
		return nil, err
	}

	l.logger.Debug("Fetch completed",
		"home_id", snapshot.HomeID,
		"zones", len(snapshot.Zones),
		"duration", duration)

	return snapshot, nil
}

// TokenStoreLogger wraps a core.TokenStore and logs reads and writes
type TokenStoreLogger struct {
	store  core.TokenStore
	logger *slog.Logger
}

// NewTokenStoreLogger creates a new logging decorator for a TokenStore
func NewTokenStoreLogger(store core.TokenStore, logger *slog.Logger) core.TokenStore {
	return &TokenStoreLogger{
		store:  store,
		logger: logger.With("interface", "TokenStore"),
	}
}

func (l *TokenStoreLogger) Load(ctx context.Context) (string, error) {
	token, err := l.store.Load(ctx)
	if err != nil {
		l.logger.Debug("Load failed", "error", err)
		return "", err
	}
	l.logger.Debug("Load completed", "length", len(token))
	return token, nil
}

func (l *TokenStoreLogger) Save(ctx context.Context, refreshToken string) error {
	if err := l.store.Save(ctx, refreshToken); err != nil {
		l.logger.Debug("Save failed", "error", err)
		return err
	}
	l.logger.Debug("Save completed", "length", len(refreshToken))
	return nil
}
