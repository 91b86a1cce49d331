package voice

import "strings"

// Synthesis defaults and limits.
const (
	DefaultVoice = "onyx"
	DefaultSpeed = 1.0
	MinSpeed     = 0.25
	MaxSpeed     = 4.0

	// Model is the speech model tier used for every request.
	Model        = "tts-1-hd"
	MaxTextChars = 4096
	ContentType  = "audio/mpeg"
)

var voices = []string{"alloy", "echo", "fable", "onyx", "nova", "shimmer"}

// Voices returns the allow-listed voice identifiers in display order.
func Voices() []string {
	return append([]string(nil), voices...)
}

// IsValidVoice reports whether id is an allow-listed voice.
func IsValidVoice(id string) bool {
	for _, v := range voices {
		if v == id {
			return true
		}
	}
	return false
}

// Label returns the display label for a voice id.
func Label(id string) string {
	if id == "" {
		return ""
	}
	return strings.ToUpper(id[:1]) + id[1:]
}
