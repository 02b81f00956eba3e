package server

import (
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConfigSanitize(t *testing.T) {
	cfg := Config{RateLimit: RateLimitConfig{Burst: -1}}.Sanitize()

	assert.Equal(t, ":8080", cfg.Port)
	assert.EqualValues(t, defaultMaxMessageSize, cfg.MaxMessageSize)
	assert.Equal(t, defaultSendBufferSize, cfg.SendBufferSize)
	assert.Equal(t, defaultHistoryPageSize, cfg.HistoryPageSize)
	assert.Equal(t, defaultRateBurst, cfg.RateLimit.Burst)
	assert.Equal(t, time.Second, cfg.RateLimit.RefillInterval)

	custom := Config{Port: ":9000", MaxMessageSize: 64, SendBufferSize: 2}.Sanitize()
	assert.Equal(t, ":9000", custom.Port)
	assert.EqualValues(t, 64, custom.MaxMessageSize)
	assert.Equal(t, 2, custom.SendBufferSize)
}

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, []string{"http://localhost:8080"}, cfg.AllowedOrigins)
	assert.Equal(t, *cfg, cfg.Sanitize())
}

func TestParseOrigins(t *testing.T) {
	assert.Equal(t,
		[]string{"http://a.example", "https://b.example"},
		ParseOrigins(" http://a.example, ,https://b.example "),
	)
}

func TestOriginPolicy(t *testing.T) {
	log := slog.New(slog.DiscardHandler)
	request := func(origin string) *http.Request {
		r, _ := http.NewRequest(http.MethodGet, "http://localhost/ws", http.NoBody)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	policy := newOriginPolicy([]string{"HTTP://LocalHost:8080", "not a url"}, log)
	assert.True(t, policy.allows(request("http://localhost:8080")))
	assert.False(t, policy.allows(request("http://evil.example")))
	assert.False(t, policy.allows(request("")))

	wildcard := newOriginPolicy([]string{"*"}, log)
	assert.True(t, wildcard.allows(request("http://anything.example")))
	assert.False(t, wildcard.allows(request("garbage")))
}

func TestRateLimiter(t *testing.T) {
	now := time.Unix(0, 0)
	rl := newRateLimiter(RateLimitConfig{Burst: 2, RefillInterval: time.Second})
	rl.now = func() time.Time { return now }
	rl.lastCheck = now

	assert.True(t, rl.allow())
	assert.True(t, rl.allow())
	assert.False(t, rl.allow())

	now = now.Add(500 * time.Millisecond)
	assert.True(t, rl.allow(), "half an interval refills one token")
	assert.False(t, rl.allow())

	now = now.Add(time.Hour)
	assert.True(t, rl.allow())
	assert.True(t, rl.allow())
	assert.False(t, rl.allow(), "bucket never exceeds its capacity")
}
