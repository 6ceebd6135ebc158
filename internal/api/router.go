package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"tadoif/internal/api/handlers"
	"tadoif/internal/api/middleware"
	"tadoif/internal/core"
	"tadoif/internal/metrics"
)

// RouterConfig holds dependencies for the API router
type RouterConfig struct {
	Snapshots core.SnapshotSource
	Refresh   handlers.RefreshState // Optional: reported by /health
	Tokens    handlers.TokenInfo    // Optional: reported by /health
	APIKey    string                // Optional: protects /v1 when set
	Location  *time.Location
	Logger    *slog.Logger
}

// NewRouter creates and configures the Gin router
func NewRouter(config RouterConfig) *gin.Engine {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(config.Logger))
	router.Use(middleware.Logging(config.Logger))

	// Health and metrics (no auth)
	healthHandler := handlers.NewHealthHandler(config.Refresh, config.Tokens, config.Snapshots)
	router.GET("/health", healthHandler.GetHealth)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API v1 routes
	v1 := router.Group("/v1")
	v1.Use(middleware.APIKey(config.APIKey))
	{
		zonesHandler := handlers.NewZonesHandler(config.Snapshots, config.Location, config.Logger)
		v1.GET("/zones", zonesHandler.ListZones)
		v1.GET("/zones/:index", zonesHandler.GetZone)
		v1.GET("/dump", zonesHandler.Dump)
	}

	return router
}

// NewServer wraps handler in an HTTP server listening on addr
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}
