package core

import (
	"fmt"
	"strings"
	"time"
)

// TimeLayout is the layout used for zone timestamps in tables
const TimeLayout = "2006-01-02 15:04:05"

const (
	tableHeaderFormat = "%-5s %-2s %-20s %-8s %-5s %-11s %-8s %s\n"
	tableRowFormat    = "%5d %2d %-20s %-8s %5.0f %11.1f %8.0f %s\n"
)

// FormatTable renders the zones of a snapshot as a fixed-width text table.
// Timestamps are shown in loc (time.Local when nil). A nil or empty snapshot yields the header only.
func FormatTable(snapshot *Snapshot, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(tableHeaderFormat,
		"zone#", "id", "name", "status", "power", "temperature", "humidity", "time"))

	if snapshot == nil {
		return sb.String()
	}

	for i, zone := range snapshot.Zones {
		sb.WriteString(fmt.Sprintf(tableRowFormat,
			i,
			zone.ID,
			zone.Name,
			zoneStatus(zone.Active),
			zone.Power*100,
			zone.Temperature,
			zone.Humidity,
			zone.Timestamp.In(loc).Format(TimeLayout)))
	}

	return sb.String()
}

func zoneStatus(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}
