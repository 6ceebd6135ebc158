package ipc

import (
	"context"
	"encoding/xml"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tadoif/internal/core"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func threeZones() *core.Snapshot {
	return &core.Snapshot{
		HomeID: 1234,
		Zones: []core.Zone{
			{ID: 10, Name: "Living", Active: true, Power: 0.45, Temperature: 21.5, Humidity: 52.1,
				Timestamp: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)},
			{ID: 20, Name: "Kitchen", Active: false, Power: 0, Temperature: 19.0, Humidity: 60,
				Timestamp: time.Date(2024, 1, 15, 10, 1, 0, 0, time.UTC)},
			{ID: 30, Name: "Bedroom", Active: true, Power: 1, Temperature: 18.2, Humidity: 48.3,
				Timestamp: time.Date(2024, 1, 15, 10, 2, 0, 0, time.UTC)},
		},
	}
}

func newTestResponder(snapshot *core.Snapshot) (*Responder, *core.SnapshotStore) {
	store := core.NewSnapshotStore()
	store.Publish(snapshot)
	return NewResponder(store, DefaultName, time.UTC, testLogger()), store
}

func TestResponder_GetData(t *testing.T) {
	r, _ := newTestResponder(threeZones())

	ts, name, id, active, power, temperature, humidity, dbusErr := r.GetData(1)
	require.Nil(t, dbusErr)
	assert.Equal(t, uint64(time.Date(2024, 1, 15, 10, 1, 0, 0, time.UTC).Unix()), ts)
	assert.Equal(t, "Kitchen", name)
	assert.Equal(t, uint32(20), id)
	assert.Equal(t, uint32(0), active)
	assert.Equal(t, 0.0, power)
	assert.Equal(t, 19.0, temperature)
	assert.Equal(t, 60.0, humidity)

	_, name, id, active, power, _, _, dbusErr = r.GetData(2)
	require.Nil(t, dbusErr)
	assert.Equal(t, "Bedroom", name)
	assert.Equal(t, uint32(30), id)
	assert.Equal(t, uint32(1), active)
	assert.Equal(t, 1.0, power)
}

func TestResponder_GetData_UnknownZone(t *testing.T) {
	tests := []struct {
		name     string
		snapshot *core.Snapshot
		zone     uint32
	}{
		{name: "one past the end", snapshot: threeZones(), zone: 3},
		{name: "far out of range", snapshot: threeZones(), zone: 1 << 31},
		{name: "no snapshot yet", snapshot: nil, zone: 0},
		{name: "empty home", snapshot: &core.Snapshot{HomeID: 1}, zone: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestResponder(tt.snapshot)

			_, name, _, _, _, _, _, dbusErr := r.GetData(tt.zone)
			require.NotNil(t, dbusErr)
			assert.Equal(t, DefaultName+".Error.UnknownZone", dbusErr.Name)
			assert.Equal(t, "unknown zone requested", dbusErr.Error())
			assert.Empty(t, name)
		})
	}
}

// A failed request does not affect later ones
func TestResponder_KeepsServingAfterError(t *testing.T) {
	r, _ := newTestResponder(threeZones())

	_, _, _, _, _, _, _, dbusErr := r.GetData(7)
	require.NotNil(t, dbusErr)

	_, _, id, _, _, _, _, dbusErr := r.GetData(0)
	require.Nil(t, dbusErr)
	assert.Equal(t, uint32(10), id)
}

func TestResponder_FollowsPublishedSnapshot(t *testing.T) {
	r, store := newTestResponder(threeZones())

	store.Publish(&core.Snapshot{HomeID: 1234, Zones: []core.Zone{{ID: 99, Name: "Attic"}}})

	_, name, id, _, _, _, _, dbusErr := r.GetData(0)
	require.Nil(t, dbusErr)
	assert.Equal(t, "Attic", name)
	assert.Equal(t, uint32(99), id)

	_, _, _, _, _, _, _, dbusErr = r.GetData(1)
	assert.NotNil(t, dbusErr)
}

func TestResponder_Dump(t *testing.T) {
	r, _ := newTestResponder(threeZones())

	out, dbusErr := r.Dump()
	require.Nil(t, dbusErr)

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "zone# id name"))
	assert.Equal(t, "    1 20 Kitchen              inactive     0        19.0       60 2024-01-15 10:01:00", lines[2])
}

func TestResponder_Dump_HeaderOnly(t *testing.T) {
	for _, snapshot := range []*core.Snapshot{nil, {HomeID: 1}} {
		r, _ := newTestResponder(snapshot)

		out, dbusErr := r.Dump()
		require.Nil(t, dbusErr)
		assert.Equal(t, core.FormatTable(nil, time.UTC), out)
		assert.Equal(t, 1, strings.Count(out, "\n"))
	}
}

func TestIntrospectNode(t *testing.T) {
	node := IntrospectNode(DefaultName)

	out, dbusErr := introspect.NewIntrospectable(node).Introspect()
	require.Nil(t, dbusErr)
	assert.True(t, strings.HasPrefix(out, "<!DOCTYPE node"))

	var parsed introspect.Node
	require.NoError(t, xml.Unmarshal([]byte(strings.TrimPrefix(out, introspect.IntrospectDeclarationString)), &parsed))
	require.Len(t, parsed.Interfaces, 2)
	assert.Equal(t, "org.freedesktop.DBus.Introspectable", parsed.Interfaces[0].Name)

	iface := parsed.Interfaces[1]
	assert.Equal(t, DefaultName, iface.Name)
	require.Len(t, iface.Methods, 2)

	dump := iface.Methods[0]
	assert.Equal(t, "dump", dump.Name)
	assert.Equal(t, []introspect.Arg{{Name: "info", Type: "s", Direction: "out"}}, dump.Args)

	getData := iface.Methods[1]
	assert.Equal(t, "get_data", getData.Name)
	var signature strings.Builder
	var names []string
	for _, arg := range getData.Args {
		if arg.Direction == "out" {
			signature.WriteString(arg.Type)
		}
		names = append(names, arg.Name)
	}
	assert.Equal(t, "tsuuddd", signature.String())
	assert.Equal(t, []string{"zone", "time", "name", "id", "active", "power", "temperature", "humidity"}, names)
	assert.Equal(t, introspect.Arg{Name: "zone", Type: "u", Direction: "in"}, getData.Args[0])
}

func TestConfig_Defaults(t *testing.T) {
	s := NewServer(Config{}, nil, nil)
	cfg := s.config

	assert.Equal(t, "name.slagter.erik.tadoif", cfg.Name)
	assert.Equal(t, cfg.Name, cfg.Interface)
	assert.Equal(t, "/", cfg.Path)
	assert.Equal(t, BusSystem, cfg.Bus)

	s = NewServer(Config{Name: "org.example.Tado", Bus: BusSession, Path: "/org/example/Tado"}, nil, nil)
	cfg = s.config
	assert.Equal(t, "org.example.Tado", cfg.Interface)
	assert.Equal(t, BusSession, cfg.Bus)
	assert.Equal(t, "/org/example/Tado", cfg.Path)
}

func TestServer_Serve_BadConfig(t *testing.T) {
	t.Run("unknown bus", func(t *testing.T) {
		s := NewServer(Config{Bus: "starship"}, nil, testLogger())
		err := s.Serve(context.Background())
		assert.ErrorIs(t, err, ErrUnknownBus)
	})

	t.Run("invalid path", func(t *testing.T) {
		s := NewServer(Config{Path: "not/a/path"}, nil, testLogger())
		err := s.Serve(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid object path")
	})
}

func TestServer_HandleSignal(t *testing.T) {
	s := NewServer(Config{}, nil, testLogger())

	tests := []struct {
		name    string
		signal  *dbus.Signal
		wantErr error
	}{
		{name: "nil", signal: nil},
		{
			name:   "name acquired",
			signal: &dbus.Signal{Name: "org.freedesktop.DBus.NameAcquired", Body: []interface{}{DefaultName}},
		},
		{
			name:    "our name lost",
			signal:  &dbus.Signal{Name: "org.freedesktop.DBus.NameLost", Body: []interface{}{DefaultName}},
			wantErr: ErrNameLost,
		},
		{
			name:   "unique name lost",
			signal: &dbus.Signal{Name: "org.freedesktop.DBus.NameLost", Body: []interface{}{":1.42"}},
		},
		{
			name:   "unrelated signal",
			signal: &dbus.Signal{Name: "org.freedesktop.DBus.Properties.PropertiesChanged", Path: "/"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.handleSignal(tt.signal)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}
