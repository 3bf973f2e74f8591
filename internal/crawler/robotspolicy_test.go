package crawler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRobotsEnforcer(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	logger := zap.NewNop()

	fetcher := newFakeFetcher(map[string]fakePage{
		"https://example.com/robots.txt": {
			status:      http.StatusOK,
			contentType: "text/plain",
			body:        "User-agent: *\nDisallow: /blocked\n",
		},
	})

	allowAll := NewRobotsEnforcer(false, fetcher, "test-agent", logger)
	assert.True(t, allowAll.Allowed(ctx, "https://example.com/blocked"))

	enforcer := NewRobotsEnforcer(true, fetcher, "test-agent", logger)
	assert.True(t, enforcer.Allowed(ctx, "https://example.com/allowed"))
	assert.False(t, enforcer.Allowed(ctx, "https://example.com/blocked"))
	assert.True(t, enforcer.Allowed(ctx, "https://example.com"))
	assert.Equal(t, 1, fetcher.count("https://example.com/robots.txt"))
}

func TestRobotsEnforcerAllowsOnFailure(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher(map[string]fakePage{
		"https://down.example/robots.txt": {err: errConnRefused},
	})
	enforcer := NewRobotsEnforcer(true, fetcher, "test-agent", zap.NewNop())
	assert.True(t, enforcer.Allowed(context.Background(), "https://down.example/anything"))
	assert.True(t, enforcer.Allowed(context.Background(), "https://missing.example/anything"))
}
