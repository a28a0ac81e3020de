package ratelim

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandle(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.WriteHeader(http.StatusOK)
}

func call(h httprouter.Handle, remote, forwarded string) int {
	req := httptest.NewRequest(http.MethodPost, "/plan-suggestion/", nil)
	req.RemoteAddr = remote
	if forwarded != "" {
		req.Header.Set("X-Forwarded-For", forwarded)
	}
	rec := httptest.NewRecorder()
	h(rec, req, nil)
	return rec.Code
}

func TestLimitPerClient(t *testing.T) {
	rl := NewRateLimiter(2)
	t.Cleanup(rl.Stop)
	h := rl.Limit(okHandle)

	assert.Equal(t, http.StatusOK, call(h, "10.0.0.1:1111", ""))
	assert.Equal(t, http.StatusOK, call(h, "10.0.0.1:2222", ""))
	assert.Equal(t, http.StatusTooManyRequests, call(h, "10.0.0.1:3333", ""), "same host, other port")

	assert.Equal(t, http.StatusOK, call(h, "10.0.0.2:1111", ""))
}

func TestLimitUsesForwardedFor(t *testing.T) {
	rl := NewRateLimiter(1)
	t.Cleanup(rl.Stop)
	h := rl.Limit(okHandle)

	assert.Equal(t, http.StatusOK, call(h, "127.0.0.1:1", "203.0.113.7, 10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, call(h, "127.0.0.1:2", "203.0.113.7"))
	assert.Equal(t, http.StatusOK, call(h, "127.0.0.1:3", "203.0.113.8"))
}

func TestSweepForgetsIdleClients(t *testing.T) {
	rl := NewRateLimiter(1)
	t.Cleanup(rl.Stop)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.getLimiter("a")
	now = now.Add(5 * time.Minute)
	rl.getLimiter("b")
	now = now.Add(6 * time.Minute)
	rl.sweep()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	require.Len(t, rl.visitors, 1)
	assert.Contains(t, rl.visitors, "b")
}
