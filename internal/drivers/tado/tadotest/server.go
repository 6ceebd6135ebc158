// Package tadotest provides an in-process fake of the tado° token and REST endpoints.
package tadotest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// Zone is one zone served by the fake API
type Zone struct {
	ID                int
	Name              string
	Power             string // "ON" or "OFF"
	HeatingPercentage float64
	Celsius           float64
	Humidity          float64
	Timestamp         string
}

// TokenRequest records one call to the token endpoint
type TokenRequest struct {
	ClientID     string
	GrantType    string
	RefreshToken string
}

// Server is a fake tado° API backed by httptest.Server
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	homeID        int64
	zones         []Zone
	accessToken   string
	refreshToken  string
	overrides     map[string]http.HandlerFunc
	requests      []string
	tokenRequests []TokenRequest
}

// DefaultZones returns the three zones every new Server starts with
func DefaultZones() []Zone {
	return []Zone{
		{ID: 10, Name: "Living", Power: "ON", HeatingPercentage: 45, Celsius: 21.5, Humidity: 52.1, Timestamp: "2024-01-15T10:00:00.000Z"},
		{ID: 20, Name: "Kitchen", Power: "OFF", HeatingPercentage: 0, Celsius: 19.0, Humidity: 60, Timestamp: "2024-01-15T10:01:00.000Z"},
		{ID: 30, Name: "Bedroom", Power: "ON", HeatingPercentage: 100, Celsius: 18.2, Humidity: 48.3, Timestamp: "2024-01-15T10:02:00.000Z"},
	}
}

// NewServer starts a fake API for home 1234 with DefaultZones.
// It issues access token "AT1" and refresh token "RT2".
func NewServer() *Server {
	s := &Server{
		homeID:       1234,
		zones:        DefaultZones(),
		accessToken:  "AT1",
		refreshToken: "RT2",
		overrides:    make(map[string]http.HandlerFunc),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serveHTTP))
	return s
}

// TokenURL returns the URL of the fake token endpoint
func (s *Server) TokenURL() string {
	return s.URL + "/oauth2/token"
}

// SetHome changes the home id and zone list
func (s *Server) SetHome(homeID int64, zones []Zone) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.homeID = homeID
	s.zones = zones
}

// SetTokens changes the tokens issued by the token endpoint
func (s *Server) SetTokens(accessToken, refreshToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessToken = accessToken
	s.refreshToken = refreshToken
}

// Override replaces the handler for an exact path ("/oauth2/token", "/api/v1/me", ...)
func (s *Server) Override(path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides[path] = h
}

// ClearOverrides removes all overrides
func (s *Server) ClearOverrides() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overrides = make(map[string]http.HandlerFunc)
}

// Requests returns "METHOD /path" for every request served so far
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// TokenRequests returns the parsed token endpoint calls
func (s *Server) TokenRequests() []TokenRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TokenRequest(nil), s.tokenRequests...)
}

// WriteJSON writes v with the given status and a JSON content type
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) serveHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, r.Method+" "+r.URL.Path)
	override := s.overrides[r.URL.Path]
	s.mu.Unlock()

	if r.URL.Path == "/oauth2/token" {
		s.recordTokenRequest(r)
	}

	if override != nil {
		override(w, r)
		return
	}

	if r.URL.Path == "/oauth2/token" {
		s.serveToken(w, r)
		return
	}

	s.mu.Lock()
	authorized := r.Header.Get("Authorization") == "Bearer "+s.accessToken
	s.mu.Unlock()
	if !authorized {
		WriteJSON(w, http.StatusUnauthorized, map[string]any{
			"errors": []map[string]any{{"code": "unauthorized", "title": "Full authentication is required to access this resource"}},
		})
		return
	}

	s.serveAPI(w, r)
}

func (s *Server) recordTokenRequest(r *http.Request) {
	if err := r.ParseForm(); err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokenRequests = append(s.tokenRequests, TokenRequest{
		ClientID:     r.PostForm.Get("client_id"),
		GrantType:    r.PostForm.Get("grant_type"),
		RefreshToken: r.PostForm.Get("refresh_token"),
	})
}

func (s *Server) serveToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "invalid_request"})
		return
	}
	if r.PostForm.Get("grant_type") != "refresh_token" || r.PostForm.Get("refresh_token") == "" {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid_grant", "error_description": "missing refresh token"})
		return
	}

	s.mu.Lock()
	access, refresh := s.accessToken, s.refreshToken
	s.mu.Unlock()

	WriteJSON(w, http.StatusOK, map[string]any{
		"access_token":  access,
		"refresh_token": refresh,
		"token_type":    "bearer",
		"expires_in":    599,
		"scope":         "offline_access",
	})
}

func (s *Server) serveAPI(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	homeID := s.homeID
	zones := append([]Zone(nil), s.zones...)
	s.mu.Unlock()

	homePrefix := fmt.Sprintf("/api/v2/homes/%d/zones", homeID)

	switch {
	case r.URL.Path == "/api/v1/me":
		WriteJSON(w, http.StatusOK, map[string]any{
			"name":   "Test User",
			"email":  "test@example.com",
			"homeId": homeID,
		})

	case r.URL.Path == homePrefix:
		list := make([]map[string]any, 0, len(zones))
		for _, z := range zones {
			list = append(list, map[string]any{"id": z.ID, "name": z.Name, "type": "HEATING"})
		}
		WriteJSON(w, http.StatusOK, list)

	case strings.HasPrefix(r.URL.Path, homePrefix+"/") && strings.HasSuffix(r.URL.Path, "/state"):
		idPart := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, homePrefix+"/"), "/state")
		for _, z := range zones {
			if fmt.Sprint(z.ID) == idPart {
				WriteJSON(w, http.StatusOK, ZoneState(z))
				return
			}
		}
		WriteJSON(w, http.StatusNotFound, map[string]any{
			"errors": []map[string]any{{"code": "notFound", "title": "zone not found"}},
		})

	default:
		WriteJSON(w, http.StatusNotFound, map[string]any{
			"errors": []map[string]any{{"code": "notFound", "title": "resource not found"}},
		})
	}
}

// ZoneState builds the state document the API returns for z
func ZoneState(z Zone) map[string]any {
	return map[string]any{
		"tadoMode": "HOME",
		"setting": map[string]any{
			"type":  "HEATING",
			"power": z.Power,
		},
		"activityDataPoints": map[string]any{
			"heatingPower": map[string]any{
				"type":       "PERCENTAGE",
				"percentage": z.HeatingPercentage,
				"timestamp":  z.Timestamp,
			},
		},
		"sensorDataPoints": map[string]any{
			"insideTemperature": map[string]any{
				"celsius":    z.Celsius,
				"fahrenheit": z.Celsius*9/5 + 32,
				"timestamp":  z.Timestamp,
				"type":       "TEMPERATURE",
			},
			"humidity": map[string]any{
				"type":       "PERCENTAGE",
				"percentage": z.Humidity,
				"timestamp":  z.Timestamp,
			},
		},
	}
}
