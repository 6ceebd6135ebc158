package ipc

import (
	"log/slog"
	"time"

	"github.com/godbus/dbus/v5"

	"tadoif/internal/core"
	"tadoif/internal/metrics"
)

// Method names as seen on the bus
const (
	MethodDump    = "dump"
	MethodGetData = "get_data"
)

// Responder answers dump and get_data calls from the latest published snapshot.
// Its exported methods are exported on the bus as-is, so keep the method set minimal.
type Responder struct {
	source    core.SnapshotSource
	errorName string
	location  *time.Location
	logger    *slog.Logger
}

// NewResponder creates a responder for the given interface name.
// Error replies are named <iface>.Error.<Reason>.
func NewResponder(source core.SnapshotSource, iface string, loc *time.Location, logger *slog.Logger) *Responder {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{
		source:    source,
		errorName: iface + ".Error",
		location:  loc,
		logger:    logger,
	}
}

// Dump returns the zone table of the current snapshot
func (r *Responder) Dump() (string, *dbus.Error) {
	snapshot := r.source.Current()
	r.logger.Debug("D-Bus request", "method", MethodDump, "zones", snapshot.Len())
	metrics.RecordBusRequest(MethodDump, nil)
	return core.FormatTable(snapshot, r.location), nil
}

// GetData returns time, name, id, active, power, temperature and humidity of zone index zone
func (r *Responder) GetData(zone uint32) (uint64, string, uint32, uint32, float64, float64, float64, *dbus.Error) {
	snapshot := r.source.Current()
	r.logger.Debug("D-Bus request", "method", MethodGetData, "zone", zone)

	z, ok := snapshot.Zone(int(zone))
	if !ok {
		dbusErr := dbus.NewError(r.errorName+".UnknownZone", []interface{}{"unknown zone requested"})
		r.logger.Warn("D-Bus request failed", "method", MethodGetData, "zone", zone, "zones", snapshot.Len(), "error", dbusErr)
		metrics.RecordBusRequest(MethodGetData, dbusErr)
		return 0, "", 0, 0, 0, 0, 0, dbusErr
	}

	metrics.RecordBusRequest(MethodGetData, nil)

	var active uint32
	if z.Active {
		active = 1
	}
	return unixSeconds(z.Timestamp), z.Name, uint32(z.ID), active, z.Power, z.Temperature, z.Humidity, nil
}

func unixSeconds(t time.Time) uint64 {
	if t.IsZero() || t.Unix() < 0 {
		return 0
	}
	return uint64(t.Unix())
}
