// Package hints maps remote error text to user-facing remediation suggestions.
//
// The remote service may tag an error with a structured code. When it does, the code
// decides the hint. Untagged messages fall back to substring matching.
package hints

import "strings"

// Kind classifies an error for remediation purposes.
type Kind string

const (
	KindUnknown   Kind = "unknown"
	KindRateLimit Kind = "rate_limit"
	KindNotFound  Kind = "not_found"
	KindNetwork   Kind = "network"
)

var patterns = []struct {
	kind     Kind
	keywords []string
}{
	{KindRateLimit, []string{"rate limit", "429", "too many requests"}},
	{KindNotFound, []string{"404", "not found"}},
	{KindNetwork, []string{"network", "connection"}},
}

var suggestions = map[Kind][]string{
	KindRateLimit: {
		"Set up Spotify API authentication (see SPOTIFY_SETUP.md)",
		"Try a smaller playlist first",
		"Use a YouTube playlist URL instead",
		"Wait a few minutes before trying again",
	},
	KindNotFound: {
		"Check if the playlist/track is public",
		"Verify the URL is correct",
		"Try copying the URL again from Spotify/YouTube",
	},
	KindNetwork: {
		"Check your internet connection",
		"Try again in a few moments",
		"Use a VPN if the service is blocked in your region",
	},
}

// Classify returns the kind for an error. A recognised code wins over the message.
func Classify(code, message string) Kind {
	switch Kind(strings.ToLower(strings.TrimSpace(code))) {
	case KindRateLimit:
		return KindRateLimit
	case KindNotFound:
		return KindNotFound
	case KindNetwork:
		return KindNetwork
	}

	m := strings.ToLower(message)
	for _, p := range patterns {
		for _, kw := range p.keywords {
			if strings.Contains(m, kw) {
				return p.kind
			}
		}
	}
	return KindUnknown
}

// Suggestions returns the fixed hint lines for kind, or nil.
func Suggestions(kind Kind) []string {
	return suggestions[kind]
}

// Enhance appends the suggestion block for the classified kind to message.
// Messages that match nothing are returned unchanged.
func Enhance(code, message string) string {
	lines := Suggestions(Classify(code, message))
	if len(lines) == 0 {
		return message
	}

	var b strings.Builder
	b.WriteString(message)
	b.WriteString("\n\nSuggestions:")
	for _, l := range lines {
		b.WriteString("\n• ")
		b.WriteString(l)
	}
	return b.String()
}
