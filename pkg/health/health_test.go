package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probeStatus(t *testing.T, endpoint http.HandlerFunc) (int, statusResponse) {
	t.Helper()

	rec := httptest.NewRecorder()
	endpoint(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	var body statusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return rec.Code, body
}

func TestReadyEndpoint_NotReadyByDefault(t *testing.T) {
	h := New()

	code, body := probeStatus(t, h.ReadyEndpoint)

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "unhealthy", body.Status)
	assert.Contains(t, body.Checks, "_readiness")
}

func TestReadyEndpoint_ReadyAfterSetReady(t *testing.T) {
	h := New()
	h.SetReady(true)

	code, body := probeStatus(t, h.ReadyEndpoint)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
}

func TestLiveEndpoint_HealthyByDefault(t *testing.T) {
	h := New()
	h.AddLivenessCheck("noop", time.Second, func(context.Context) error { return nil })

	code, body := probeStatus(t, h.LiveEndpoint)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", body.Status)
}

func TestCheck_FlipsAfterConsecutiveFailures(t *testing.T) {
	c := &check{name: "flaky", timeout: time.Second, fn: func(context.Context) error {
		return errors.New("down")
	}}
	c.healthy.Store(true)

	ctx := context.Background()
	c.run(ctx)
	c.run(ctx)
	assert.True(t, c.healthy.Load(), "still healthy below the failure threshold")

	c.run(ctx)
	assert.False(t, c.healthy.Load())
}

func TestCheck_RecoversOnFirstSuccess(t *testing.T) {
	fail := true
	c := &check{name: "flaky", timeout: time.Second, fn: func(context.Context) error {
		if fail {
			return errors.New("down")
		}
		return nil
	}}

	ctx := context.Background()
	for range failureThreshold {
		c.run(ctx)
	}
	require.False(t, c.healthy.Load())

	fail = false
	c.run(ctx)
	assert.True(t, c.healthy.Load())
}

func TestIsReady_FailingReadinessCheck(t *testing.T) {
	h := New()
	h.SetReady(true)
	h.AddReadinessCheck("db", time.Second, func(context.Context) error {
		return errors.New("connection refused")
	})

	require.True(t, h.IsReady(), "checks start healthy until proven otherwise")

	for _, c := range h.readiness {
		for range failureThreshold {
			c.run(context.Background())
		}
	}
	assert.False(t, h.IsReady())
}

func TestGoroutineCountCheck(t *testing.T) {
	assert.NoError(t, GoroutineCountCheck(1_000_000)(context.Background()))
	assert.Error(t, GoroutineCountCheck(0)(context.Background()))
}
