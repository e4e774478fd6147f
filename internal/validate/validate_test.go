package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidURL(t *testing.T) {
	tests := []struct {
		input string
		valid bool
	}{
		{"", false},
		{"   ", false},
		{"spotify.com/playlist/1", false},
		{"ftp://open.spotify.com/playlist/1", false},
		{"https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M", true},
		{"HTTPS://OPEN.SPOTIFY.COM/playlist/abc", true},
		{"  https://www.youtube.com/playlist?list=PL123  ", true},
		{"https://youtu.be/dQw4w9WgXcQ", true},
		{"https://music.youtube.com/playlist?list=OLAK", true},
		{"http://spotify.com", true},
		{"https://soundcloud.com/artist/sets/x", false},
		{"https://example.com/?ref=vimeo", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidURL(tt.input))
		})
	}
}

func TestIsValidURL_EveryDomainAnyCase(t *testing.T) {
	for _, domain := range SupportedDomains {
		assert.True(t, IsValidURL("http://"+domain+"/x"), domain)
		assert.True(t, IsValidURL("HtTpS://"+domain), domain)
		assert.False(t, IsValidURL(domain+"/x"), "missing scheme for %s", domain)
	}
}

func TestFeedback(t *testing.T) {
	assert.True(t, Feedback(""), "empty input is not yet invalid")
	assert.True(t, Feedback("  "))
	assert.False(t, Feedback("not a url"))
	assert.True(t, Feedback("https://youtu.be/abc"))
}

func TestFormats(t *testing.T) {
	assert.True(t, IsValidFormat("mp3"))
	assert.True(t, IsValidFormat("FLAC"))
	assert.True(t, IsValidFormat(" wav "))
	assert.False(t, IsValidFormat("ogg"))
	assert.False(t, IsValidFormat(""))

	assert.Equal(t, "mp3", NormalizeFormat(""))
	assert.Equal(t, "flac", NormalizeFormat("FLAC"))
	assert.Equal(t, DefaultFormat, Formats[0])
}

func TestServiceDetection(t *testing.T) {
	assert.True(t, IsSpotify("https://open.spotify.com/track/1"))
	assert.False(t, IsSpotify("https://youtu.be/1"))
	assert.True(t, IsYouTube("https://music.youtube.com/watch?v=1"))
	assert.True(t, IsYouTube("https://YOUTU.BE/1"))
	assert.False(t, IsYouTube("https://open.spotify.com/track/1"))
}
