package constants

import "time"

const (
	// Store keys, shared with every surface
	KeyPeriodMinutes = "periodMinutes"
	KeyAvatar        = "petAvatar"
	KeyCustomLines   = "petCustomLines"
	KeySessions      = "petSessions"
	KeySpeakNow      = "petSpeakNow"
	KeyWidgetPos     = "petPos"

	// Default Settings Values
	DefaultPeriodMinutes = 45
	DefaultAvatar        = "brown_dog_nobg.png"

	// MaxSessions bounds the session log; the oldest entries are dropped first.
	MaxSessions = 2000

	// SpeakEchoMaxAge is how long a speak-now echo stays consumable for
	// surfaces that missed the live broadcast.
	SpeakEchoMaxAge = 10 * time.Second
)

// DefaultAllowedOrigins is the origin prefix allow-list for external callers.
var DefaultAllowedOrigins = []string{
	"https://latuang.github.io",
}
