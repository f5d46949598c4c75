package models

// SpeakEcho records the last say-now request so surfaces that missed the live
// broadcast can still pick it up within a short freshness window. It is
// cleared on first read so repeat reads never re-trigger speech.
type SpeakEcho struct {
	Text string `json:"text"`
	At   int64  `json:"at"` // unix milliseconds
}
