package core

import (
	"errors"
	"time"
)

// Zone represents one heating zone as read during a refresh cycle
type Zone struct {
	ID          int
	Name        string
	Active      bool      // heating demand on/off
	Power       float64   // heating output, 0.0 - 1.0
	Temperature float64   // degrees Celsius
	Humidity    float64   // percent
	Timestamp   time.Time // sensor reading time, local
}

// Snapshot is the complete result of one successful refresh cycle.
// A published Snapshot must never be modified.
type Snapshot struct {
	HomeID    int64
	Zones     []Zone
	CycleID   string
	FetchedAt time.Time
}

// Credentials is the result of a refresh token exchange
type Credentials struct {
	AccessToken  string
	RefreshToken string
	Expiry       time.Time
}

// Zone returns the zone at index i, or false when i is out of range
func (s *Snapshot) Zone(i int) (Zone, bool) {
	if s == nil || i < 0 || i >= len(s.Zones) {
		return Zone{}, false
	}
	return s.Zones[i], true
}

// Len returns the number of zones; a nil snapshot has none
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Zones)
}

// Errors shared by the refresh pipeline
var (
	ErrAuth       = errors.New("authentication failed")
	ErrFetch      = errors.New("fetching home state failed")
	ErrNoToken    = errors.New("no refresh token stored")
	ErrNoSnapshot = errors.New("no data fetched yet")
)
