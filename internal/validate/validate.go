// Package validate holds the input checks shared by the client and the stub service.
package validate

import "strings"

// SupportedDomains lists the services a playlist URL may point at.
var SupportedDomains = []string{
	"spotify.com",
	"open.spotify.com",
	"youtube.com",
	"youtu.be",
	"music.youtube.com",
}

// Formats lists the output formats the service accepts. The first entry is the default.
var Formats = []string{"mp3", "flac", "wav"}

// DefaultFormat is used when no format is chosen.
const DefaultFormat = "mp3"

// IsValidURL reports whether input looks like a supported playlist or track URL.
// Matching is case-insensitive and ignores surrounding whitespace.
func IsValidURL(input string) bool {
	u := strings.ToLower(strings.TrimSpace(input))
	if u == "" || !strings.HasPrefix(u, "http") {
		return false
	}
	for _, domain := range SupportedDomains {
		if strings.Contains(u, domain) {
			return true
		}
	}
	return false
}

// Feedback is the live check used while the user is typing. Empty input is not
// reported as invalid yet.
func Feedback(input string) bool {
	if strings.TrimSpace(input) == "" {
		return true
	}
	return IsValidURL(input)
}

// IsValidFormat reports whether format is in the allow-list.
func IsValidFormat(format string) bool {
	f := strings.ToLower(strings.TrimSpace(format))
	for _, allowed := range Formats {
		if f == allowed {
			return true
		}
	}
	return false
}

// NormalizeFormat lowercases format and falls back to DefaultFormat when empty.
func NormalizeFormat(format string) string {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "" {
		return DefaultFormat
	}
	return f
}

// IsSpotify reports whether u points at Spotify.
func IsSpotify(u string) bool {
	return strings.Contains(strings.ToLower(u), "spotify.com")
}

// IsYouTube reports whether u points at YouTube or YouTube Music.
func IsYouTube(u string) bool {
	l := strings.ToLower(u)
	return strings.Contains(l, "youtube.com") || strings.Contains(l, "youtu.be")
}
