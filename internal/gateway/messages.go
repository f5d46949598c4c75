package gateway

import "github.com/latuang/petd/internal/models"

// Request message types. External control panels and internal surfaces use
// the same envelope; the gateway only distinguishes them by sender origin.
const (
	TypeGetSettings  = "PET_GET_SETTINGS"
	TypeSetPeriod    = "PET_SET_PERIOD"
	TypeSetAvatar    = "PET_SET_AVATAR"
	TypeGetLines     = "PET_GET_LINES"
	TypeAddLines     = "PET_ADD_LINES"
	TypeReplaceLines = "PET_REPLACE_LINES"
	TypeSayNow       = "PET_SAY_NOW"
	TypeLogSession   = "PET_LOG_SESSION"
	TypeGetStats     = "PET_GET_STATS"
	TypeReschedule   = "RESCHEDULE"
)

// Broadcast event types fanned out to every live surface.
const (
	EventNudge         = "NUDGE"
	EventSay           = "PET_SAY"
	EventLinesUpdated  = "LINES_UPDATED"
	EventAvatarChanged = "AVATAR_CHANGED"
	EventPeriodChanged = "PERIOD_CHANGED"
	EventStatsUpdated  = "STATS_UPDATED"
)

// Request is the inbound message envelope, a discriminated union keyed on
// Type. Numeric fields are pointers so "absent" and "zero" stay distinct.
type Request struct {
	Type    string   `json:"type"`
	Minutes *float64 `json:"minutes,omitempty"`
	Name    string   `json:"name,omitempty"`
	Lines   []string `json:"lines,omitempty"`
	Text    string   `json:"text,omitempty"`
	Seconds *float64 `json:"seconds,omitempty"`
	AtMs    *int64   `json:"atMs,omitempty"`
}

// Response is the reply envelope. Every request gets one: failures carry
// Error (and Got for origin rejections) instead of being dropped.
type Response struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Got   string `json:"got,omitempty"` // offending origin, for diagnostics

	Minutes int           `json:"minutes,omitempty"`
	Avatar  string        `json:"avatar,omitempty"`
	Name    string        `json:"name,omitempty"`
	Lines   []string      `json:"lines,omitempty"`
	Count   int           `json:"count,omitempty"`
	Said    *string       `json:"said,omitempty"`
	Stats   *models.Stats `json:"stats,omitempty"`
}

// Event is the outbound broadcast envelope. Delivery is best-effort: a
// surface that is gone simply does not receive it.
type Event struct {
	Type    string        `json:"type"`
	Text    string        `json:"text,omitempty"`
	Lines   []string      `json:"lines,omitempty"`
	Name    string        `json:"name,omitempty"`
	Minutes int           `json:"minutes,omitempty"`
	Stats   *models.Stats `json:"stats,omitempty"`
}

func failure(msg string) Response {
	return Response{OK: false, Error: msg}
}
