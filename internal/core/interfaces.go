package core

import "context"

// TokenStore persists the single rotating refresh token
type TokenStore interface {
	Load(ctx context.Context) (string, error)
	Save(ctx context.Context, refreshToken string) error
}

// Authenticator exchanges a refresh token for a fresh credential pair
type Authenticator interface {
	Refresh(ctx context.Context, refreshToken string) (Credentials, error)
}

// HomeFetcher reads the home and all of its zones with an access token
type HomeFetcher interface {
	Fetch(ctx context.Context, accessToken string) (*Snapshot, error)
}

// SnapshotSource gives read-only access to the latest published snapshot
type SnapshotSource interface {
	Current() *Snapshot
}
