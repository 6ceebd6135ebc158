package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tadoif/internal/idgen"
)

func newEngine(logger *slog.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestID(), Recovery(logger))
	engine.GET("/boom", func(c *gin.Context) { panic("zone table corrupt") })
	engine.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, c.GetString(RequestIDKey)) })
	return engine
}

func TestRequestID_Validation(t *testing.T) {
	engine := newEngine(slog.New(slog.NewTextHandler(io.Discard, nil)))

	tests := []struct {
		name     string
		inbound  string
		wantKeep bool
	}{
		{name: "absent", inbound: ""},
		{name: "caller id", inbound: "trace-7f3a", wantKeep: true},
		{name: "too long", inbound: strings.Repeat("a", maxRequestIDLen+1)},
		{name: "at limit", inbound: strings.Repeat("a", maxRequestIDLen), wantKeep: true},
		{name: "contains space", inbound: "two words"},
		{name: "non ascii", inbound: "zoné"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ok", nil)
			if tt.inbound != "" {
				req.Header.Set(RequestIDKey, tt.inbound)
			}
			rec := httptest.NewRecorder()
			engine.ServeHTTP(rec, req)

			got := rec.Header().Get(RequestIDKey)
			assert.Equal(t, got, rec.Body.String())
			if tt.wantKeep {
				assert.Equal(t, tt.inbound, got)
			} else {
				assert.True(t, strings.HasPrefix(got, idgen.PrefixRequest), got)
			}
		})
	}
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	engine := newEngine(slog.New(slog.NewTextHandler(&buf, nil)))

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(RequestIDKey, "trace-1")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_ERROR", body["code"])
	assert.Equal(t, "trace-1", body["request_id"])

	assert.Contains(t, buf.String(), "route=/boom")
	assert.Contains(t, buf.String(), `panic="zone table corrupt"`)
}
