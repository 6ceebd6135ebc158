package tado

import (
	"fmt"
	"strings"
	"time"
)

const isoLayout = "2006-01-02T15:04:05"

// normalizeTimestamp turns a tado° ISO-8601 timestamp into local time.
//
// A trailing "Z" is stripped, the rest is parsed as a wall-clock time in loc,
// and the UTC offset loc has at now is added. The offset is the current one,
// not the one in effect at the timestamp, so readings taken on the other side
// of a DST change are off by the DST delta. This matches the behaviour
// consumers already rely on; do not change it without telling them.
// Without "Z" the wall-clock time is used as is.
func normalizeTimestamp(raw string, loc *time.Location, now time.Time) (time.Time, error) {
	naive, utc := strings.CutSuffix(raw, "Z")

	t, err := time.ParseInLocation(isoLayout, naive, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", raw, err)
	}

	if utc {
		_, offset := now.In(loc).Zone()
		t = t.Add(time.Duration(offset) * time.Second)
	}

	return t, nil
}
