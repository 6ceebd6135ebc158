package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
)

// Bus types
const (
	BusSystem  = "system"
	BusSession = "session"
)

const (
	// DefaultName is both the well-known bus name and the interface name
	DefaultName = "name.slagter.erik.tadoif"
	DefaultPath = "/"

	busInterface      = "org.freedesktop.DBus"
	signalNameAcquire = busInterface + ".NameAcquired"
	signalNameLost    = busInterface + ".NameLost"
)

var (
	ErrUnknownBus   = errors.New("unknown bus type")
	ErrNameNotOwned = errors.New("could not become primary owner of bus name")
	ErrNameLost     = errors.New("bus name lost")
	ErrDisconnected = errors.New("disconnected from bus")
)

// Config holds the bus binding
type Config struct {
	Name      string
	Interface string
	Path      string
	Bus       string
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.Interface == "" {
		c.Interface = c.Name
	}
	if c.Path == "" {
		c.Path = DefaultPath
	}
	if c.Bus == "" {
		c.Bus = BusSystem
	}
	return c
}

// Server exports a Responder on the bus and holds the service name
type Server struct {
	config    Config
	responder *Responder
	logger    *slog.Logger
}

// NewServer creates a new D-Bus server
func NewServer(config Config, responder *Responder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:    config.withDefaults(),
		responder: responder,
		logger:    logger,
	}
}

func (s *Server) connect() (*dbus.Conn, error) {
	switch s.config.Bus {
	case BusSystem:
		return dbus.ConnectSystemBus()
	case BusSession:
		return dbus.ConnectSessionBus()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBus, s.config.Bus)
	}
}

// Serve connects, exports the responder, claims the name and serves until ctx is done.
// Losing the name or the connection ends Serve with an error.
func (s *Server) Serve(ctx context.Context) error {
	path := dbus.ObjectPath(s.config.Path)
	if !path.IsValid() {
		return fmt.Errorf("invalid object path %q", s.config.Path)
	}

	conn, err := s.connect()
	if err != nil {
		return fmt.Errorf("cannot connect to %s bus: %w", s.config.Bus, err)
	}
	defer conn.Close()

	if err := s.export(conn, path); err != nil {
		return err
	}

	signals := make(chan *dbus.Signal, 16)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)

	reply, err := conn.RequestName(s.config.Name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("cannot request name %s: %w", s.config.Name, err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("%w: %s (reply %d)", ErrNameNotOwned, s.config.Name, reply)
	}

	s.logger.Info("D-Bus service started",
		"bus", s.config.Bus,
		"name", s.config.Name,
		"interface", s.config.Interface,
		"path", s.config.Path,
	)

	for {
		select {
		case <-ctx.Done():
			if _, err := conn.ReleaseName(s.config.Name); err != nil {
				s.logger.Warn("Failed to release bus name", "name", s.config.Name, "error", err)
			}
			s.logger.Info("D-Bus service stopped")
			return nil
		case <-conn.Context().Done():
			return ErrDisconnected
		case sig, ok := <-signals:
			if !ok {
				return ErrDisconnected
			}
			if err := s.handleSignal(sig); err != nil {
				return err
			}
		}
	}
}

func (s *Server) export(conn *dbus.Conn, path dbus.ObjectPath) error {
	methods := map[string]string{
		"Dump":    MethodDump,
		"GetData": MethodGetData,
	}
	if err := conn.ExportWithMap(s.responder, methods, path, s.config.Interface); err != nil {
		return fmt.Errorf("cannot export %s: %w", s.config.Interface, err)
	}

	node := IntrospectNode(s.config.Interface)
	if err := conn.Export(introspect.NewIntrospectable(node), path, introspect.IntrospectData.Name); err != nil {
		return fmt.Errorf("cannot export introspection: %w", err)
	}
	return nil
}

// handleSignal returns an error only when the signal ends our ownership of the name
func (s *Server) handleSignal(sig *dbus.Signal) error {
	if sig == nil {
		return nil
	}

	var name string
	if len(sig.Body) > 0 {
		name, _ = sig.Body[0].(string)
	}

	switch sig.Name {
	case signalNameAcquire:
		if name == s.config.Name {
			s.logger.Debug("Bus name acquired", "name", name)
		}
	case signalNameLost:
		if name == s.config.Name {
			return fmt.Errorf("%w: %s", ErrNameLost, name)
		}
	default:
		s.logger.Debug("Signal received", "signal", sig.Name, "path", sig.Path)
	}
	return nil
}
