package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/partscatalog/backend/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestSystemHandler_GetSystemInfo(t *testing.T) {
	h := NewSystemHandler(nil, "")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/system/info", nil)
	h.GetSystemInfo(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, "dev", data["version"])
	assert.NotEmpty(t, data["go_version"])
}

func TestSystemHandler_Health(t *testing.T) {
	tests := []struct {
		name   string
		db     Pinger
		status int
		want   string
	}{
		{"no database configured", nil, http.StatusOK, "healthy"},
		{"database reachable", stubPinger{}, http.StatusOK, "healthy"},
		{"database down", stubPinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewSystemHandler(tt.db, "1.2.3")
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)
			h.Health(c)

			assert.Equal(t, tt.status, w.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body["status"])
		})
	}
}

func TestSystemHandler_HealthReportsEachCheck(t *testing.T) {
	h := NewSystemHandler(stubPinger{}, "1.2.3").
		WithCheck("rebuild_queue", stubPinger{err: errors.New("redis: connection refused")})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/health", nil)
	h.Health(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "unhealthy", body.Status)
	assert.Equal(t, map[string]string{"database": "ok", "rebuild_queue": "error"}, body.Checks)
}

func TestSystemHandler_Ping(t *testing.T) {
	h := NewSystemHandler(nil, "")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/system/ping", nil)
	h.Ping(c)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, "pong", data["message"])
	_, err := time.Parse(time.RFC3339, data["timestamp"].(string))
	assert.NoError(t, err)
}
