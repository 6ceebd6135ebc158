package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"tadoif/internal/core"
)

// ZonesHandler serves the published snapshot, mirroring the D-Bus dump and get_data calls
type ZonesHandler struct {
	snapshots core.SnapshotSource
	location  *time.Location
	logger    *slog.Logger
}

// NewZonesHandler creates a new zones handler
func NewZonesHandler(snapshots core.SnapshotSource, loc *time.Location, logger *slog.Logger) *ZonesHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ZonesHandler{
		snapshots: snapshots,
		location:  loc,
		logger:    logger,
	}
}

// ZoneResponse is one zone as returned by the API
type ZoneResponse struct {
	Index       int     `json:"index"`
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Active      bool    `json:"active"`
	Power       float64 `json:"power"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Time        string  `json:"time"`
	Timestamp   int64   `json:"timestamp"`
}

// SnapshotResponse is the whole home as returned by the API
type SnapshotResponse struct {
	HomeID    int64          `json:"home_id"`
	CycleID   string         `json:"cycle_id"`
	FetchedAt string         `json:"fetched_at"`
	Zones     []ZoneResponse `json:"zones"`
}

func (h *ZonesHandler) zoneResponse(index int, zone core.Zone) ZoneResponse {
	return ZoneResponse{
		Index:       index,
		ID:          zone.ID,
		Name:        zone.Name,
		Active:      zone.Active,
		Power:       zone.Power,
		Temperature: zone.Temperature,
		Humidity:    zone.Humidity,
		Time:        zone.Timestamp.In(h.location).Format(time.RFC3339),
		Timestamp:   zone.Timestamp.Unix(),
	}
}

func noData(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error": core.ErrNoSnapshot.Error(),
		"code":  "NO_DATA",
	})
}

// ListZones returns every zone of the current snapshot
// GET /v1/zones
func (h *ZonesHandler) ListZones(c *gin.Context) {
	snapshot := h.snapshots.Current()
	if snapshot == nil {
		noData(c)
		return
	}

	zones := make([]ZoneResponse, 0, len(snapshot.Zones))
	for i, zone := range snapshot.Zones {
		zones = append(zones, h.zoneResponse(i, zone))
	}

	c.JSON(http.StatusOK, SnapshotResponse{
		HomeID:    snapshot.HomeID,
		CycleID:   snapshot.CycleID,
		FetchedAt: snapshot.FetchedAt.UTC().Format(time.RFC3339),
		Zones:     zones,
	})
}

// GetZone returns the zone at the given index
// GET /v1/zones/:index
func (h *ZonesHandler) GetZone(c *gin.Context) {
	index, err := strconv.ParseUint(c.Param("index"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "zone index must be a non-negative integer",
			"code":  "INVALID_INDEX",
		})
		return
	}

	snapshot := h.snapshots.Current()
	zone, ok := snapshot.Zone(int(index))
	if !ok {
		h.logger.Warn("Unknown zone requested",
			"component", "api",
			"index", index,
			"zones", snapshot.Len(),
		)
		c.JSON(http.StatusNotFound, gin.H{
			"error": "unknown zone requested",
			"code":  "UNKNOWN_ZONE",
		})
		return
	}

	c.JSON(http.StatusOK, h.zoneResponse(int(index), zone))
}

// Dump returns the zone table as plain text; header only before the first fetch
// GET /v1/dump
func (h *ZonesHandler) Dump(c *gin.Context) {
	c.String(http.StatusOK, core.FormatTable(h.snapshots.Current(), h.location))
}
