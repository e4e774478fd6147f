package hints

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		message string
		want    Kind
	}{
		{"rate limit text", "", "Spotify rate limit hit", KindRateLimit},
		{"429", "", "429 too many requests", KindRateLimit},
		{"too many", "", "Too Many Requests", KindRateLimit},
		{"404", "", "HTTP 404", KindNotFound},
		{"not found", "", "Task not found", KindNotFound},
		{"network", "", "network unreachable", KindNetwork},
		{"connection", "", "dial tcp: connection refused", KindNetwork},
		{"unknown", "", "disk full", KindUnknown},
		{"code wins", "network", "Task not found", KindNetwork},
		{"code case", "RATE_LIMIT", "boom", KindRateLimit},
		{"unknown code falls back", "weird", "404", KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.code, tt.message))
		})
	}
}

func TestEnhance_RateLimit(t *testing.T) {
	out := Enhance("", "429 too many requests")

	assert.True(t, strings.HasPrefix(out, "429 too many requests"))
	assert.Contains(t, out, "Suggestions:")
	for _, line := range Suggestions(KindRateLimit) {
		assert.Contains(t, out, line)
	}
}

func TestEnhance_UnknownUnchanged(t *testing.T) {
	assert.Equal(t, "something odd", Enhance("", "something odd"))
	assert.Equal(t, "", Enhance("", ""))
}

func TestEnhance_NotFoundDoesNotCarryNetworkHints(t *testing.T) {
	out := Enhance("", "Task not found")
	assert.Contains(t, out, "Verify the URL is correct")
	assert.NotContains(t, out, "internet connection")
}

func TestSuggestions_RateLimitOrder(t *testing.T) {
	assert.Equal(t, []string{
		"Set up Spotify API authentication (see SPOTIFY_SETUP.md)",
		"Try a smaller playlist first",
		"Use a YouTube playlist URL instead",
		"Wait a few minutes before trying again",
	}, Suggestions(KindRateLimit))
}
