package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tadoif/internal/core"
	"tadoif/internal/scheduler"
)

// RefreshState reports where the refresh loop currently is
type RefreshState interface {
	State() scheduler.State
	Interval() time.Duration
}

// TokenInfo reports when the stored refresh token last rotated
type TokenInfo interface {
	UpdatedAt(ctx context.Context) (time.Time, error)
}

// HealthHandler handles health check requests
type HealthHandler struct {
	refresh   RefreshState
	tokens    TokenInfo
	snapshots core.SnapshotSource
}

// NewHealthHandler creates a new health handler. refresh and tokens may be nil.
func NewHealthHandler(refresh RefreshState, tokens TokenInfo, snapshots core.SnapshotSource) *HealthHandler {
	return &HealthHandler{
		refresh:   refresh,
		tokens:    tokens,
		snapshots: snapshots,
	}
}

// GetHealth returns the health status of the service.
// The service is UP once a snapshot has been published, even if later cycles fail.
// GET /health
func (h *HealthHandler) GetHealth(c *gin.Context) {
	snapshot := h.snapshots.Current()

	body := gin.H{
		"status":  "UP",
		"service": "tadoif",
		"zones":   snapshot.Len(),
	}
	if h.refresh != nil {
		body["refresh_state"] = h.refresh.State().String()
		body["refresh_interval_seconds"] = int(h.refresh.Interval().Seconds())
	}
	if h.tokens != nil {
		// A missing token is not a health failure; the next cycle reports it
		if updatedAt, err := h.tokens.UpdatedAt(c.Request.Context()); err == nil {
			body["token_updated_at"] = updatedAt.UTC().Format(time.RFC3339)
		}
	}

	if snapshot == nil {
		body["status"] = "STARTING"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}

	body["home_id"] = snapshot.HomeID
	body["fetched_at"] = snapshot.FetchedAt.UTC().Format(time.RFC3339)
	c.JSON(http.StatusOK, body)
}
