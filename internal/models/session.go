package models

// Session represents a single completed focus interval
type Session struct {
	TS      int64 `json:"ts"`      // completion time, whole seconds since epoch
	Seconds int   `json:"seconds"` // duration, clamped to >= 1 on append
}

// DayTotal is one calendar day's summed focus time
type DayTotal struct {
	Date    string `json:"date"` // YYYY-MM-DD format
	Seconds int    `json:"seconds"`
}

// Stats holds the rolling statistics derived from the session log
type Stats struct {
	TodaySeconds    int        `json:"today_seconds"`
	Weekly          []DayTotal `json:"weekly"` // 7 entries, oldest first, ending today
	CurrentStreak   int        `json:"current_streak"`
	LongestStreak   int        `json:"longest_streak"`
	TotalSecondsAll int        `json:"total_seconds_all"`
}
