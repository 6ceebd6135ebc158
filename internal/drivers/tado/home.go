package tado

import (
	"context"
	"fmt"

	"tadoif/internal/core"
)

// Fetch reads the account's home, its zones and the state of every zone.
// Any failure aborts the whole fetch; no partial snapshot is returned.
func (d *Driver) Fetch(ctx context.Context, accessToken string) (*core.Snapshot, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", core.ErrFetch)
	}

	me, err := d.get(ctx, accessToken, "/api/v1/me")
	if err != nil {
		return nil, fmt.Errorf("%w: cannot get id: %w", core.ErrFetch, err)
	}

	homeID, err := me.integer("homeId")
	if err != nil {
		return nil, fmt.Errorf("%w: no homeId field in reply from tado: %w", core.ErrFetch, err)
	}

	zones, err := d.listZones(ctx, accessToken, homeID)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot list zones: %w", core.ErrFetch, err)
	}

	// One request per zone; the API has no batch endpoint for zone state
	for i := range zones {
		if err := d.fetchZoneState(ctx, accessToken, homeID, &zones[i]); err != nil {
			return nil, fmt.Errorf("%w: cannot get data for zone %d: %w", core.ErrFetch, zones[i].ID, err)
		}
	}

	return &core.Snapshot{
		HomeID:    homeID,
		Zones:     zones,
		FetchedAt: d.now(),
	}, nil
}

// listZones returns id and name of every zone, in API order
func (d *Driver) listZones(ctx context.Context, accessToken string, homeID int64) ([]core.Zone, error) {
	list, err := d.get(ctx, accessToken, fmt.Sprintf("/api/v2/homes/%d/zones", homeID))
	if err != nil {
		return nil, err
	}

	entries, err := list.elements()
	if err != nil {
		return nil, err
	}

	zones := make([]core.Zone, 0, len(entries))
	for _, entry := range entries {
		id, err := entry.integer("id")
		if err != nil {
			return nil, err
		}
		name, err := entry.str("name")
		if err != nil {
			return nil, err
		}
		zones = append(zones, core.Zone{ID: int(id), Name: name})
	}

	return zones, nil
}

// fetchZoneState fills the state fields of zone
func (d *Driver) fetchZoneState(ctx context.Context, accessToken string, homeID int64, zone *core.Zone) error {
	state, err := d.get(ctx, accessToken, fmt.Sprintf("/api/v2/homes/%d/zones/%d/state", homeID, zone.ID))
	if err != nil {
		return err
	}

	power, err := state.str("setting", "power")
	if err != nil {
		return err
	}
	heating, err := state.num("activityDataPoints", "heatingPower", "percentage")
	if err != nil {
		return err
	}
	temperature, err := state.num("sensorDataPoints", "insideTemperature", "celsius")
	if err != nil {
		return err
	}
	humidity, err := state.num("sensorDataPoints", "humidity", "percentage")
	if err != nil {
		return err
	}
	rawTime, err := state.str("sensorDataPoints", "insideTemperature", "timestamp")
	if err != nil {
		return err
	}
	timestamp, err := normalizeTimestamp(rawTime, d.location, d.now())
	if err != nil {
		return err
	}

	zone.Active = power == "ON"
	zone.Power = heating / 100.0
	zone.Temperature = temperature
	zone.Humidity = humidity
	zone.Timestamp = timestamp

	return nil
}
