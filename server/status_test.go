package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"airbnb-pricer/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStats worker.Stats

func (f fixedStats) Stats() worker.Stats { return worker.Stats(f) }

type pingFunc func(ctx context.Context) error

func (p pingFunc) Ping(ctx context.Context) error { return p(ctx) }

func newTestServer(pingErr error) *StatusServer {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	stats := fixedStats{
		Version:   "worker-go-test",
		Host:      "box-1",
		StartedAt: time.Now().Add(-time.Minute),
		Claimed:   4,
		Completed: 3,
		Failed:    1,
		CacheHits: 2,
	}
	return NewStatusServer(stats, pingFunc(func(context.Context) error { return pingErr }), logger)
}

func getJSON(t *testing.T, app *fiber.App, path string) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest("GET", path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHealth(t *testing.T) {
	code, body := getJSON(t, newTestServer(nil).App(), "/health")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "worker-go-test", body["version"])
	assert.Equal(t, "box-1", body["host"])
	assert.NotEmpty(t, body["uptime"])
}

func TestReady(t *testing.T) {
	code, body := getJSON(t, newTestServer(nil).App(), "/ready")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, true, body["success"])

	code, body = getJSON(t, newTestServer(errors.New("connection refused")).App(), "/ready")
	assert.Equal(t, fiber.StatusServiceUnavailable, code)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "page renderer unavailable", body["error"])
}

func TestStatus(t *testing.T) {
	code, body := getJSON(t, newTestServer(nil).App(), "/status")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, true, body["success"])

	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, 4, data["claimed"])
	assert.EqualValues(t, 3, data["completed"])
	assert.EqualValues(t, 1, data["failed"])
	assert.EqualValues(t, 2, data["cacheHits"])
	assert.NotContains(t, data, "lastJobId")
}

func TestUnknownRoute(t *testing.T) {
	resp, err := newTestServer(nil).App().Test(httptest.NewRequest("GET", "/jobs", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
