package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnv(t *testing.T) *appEnv {
	t.Helper()
	env, err := initEnv(context.Background(), "serve")
	require.NoError(t, err)
	t.Cleanup(env.Close)
	return env
}

func TestBuildHandler_Routes(t *testing.T) {
	testConfig(t)
	h := buildHandler(newTestEnv(t))

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/schools?priority=high", http.StatusOK},
		{http.MethodGet, "/api/schools/100", http.StatusOK},
		{http.MethodGet, "/api/schools/999", http.StatusNotFound},
		{http.MethodGet, "/api/stats", http.StatusOK},
		{http.MethodGet, "/api/export", http.StatusOK},
		{http.MethodDelete, "/api/cache", http.StatusOK},
		{http.MethodPost, "/api/schools/999/talking-points", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestBuildHandler_ExportDisabled(t *testing.T) {
	c := testConfig(t)
	c.Features.ExportToExcel = false
	h := buildHandler(newTestEnv(t))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/export", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestBuildHandler_TalkingPointsWithoutGenerators(t *testing.T) {
	testConfig(t)
	h := buildHandler(newTestEnv(t))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/schools/100/talking-points", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		FromCache bool `json:"from_cache"`
		School    struct {
			URN           string `json:"urn"`
			TalkingPoints []any  `json:"conversation_starters"`
		} `json:"school"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "100", body.School.URN)
	assert.False(t, body.FromCache)
	assert.Empty(t, body.School.TalkingPoints)
}

// getFreePort returns a free TCP port on localhost.
func getFreePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	l.Close() //nolint:errcheck
	return port
}

func TestServeCommand_Lifecycle(t *testing.T) {
	c := testConfig(t)
	c.Server.Port = getFreePort(t)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		serveCmd.SetContext(ctx)
		errCh <- serveCmd.RunE(serveCmd, nil)
	}()

	url := fmt.Sprintf("http://127.0.0.1:%d/health", c.Server.Port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(url) //nolint:gosec
		if err != nil {
			return false
		}
		resp.Body.Close() //nolint:errcheck
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
