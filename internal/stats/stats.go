package stats

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"github.com/latuang/petd/internal/constants"
	"github.com/latuang/petd/internal/models"
	"github.com/latuang/petd/internal/storage"
)

// Engine owns the append-only session log and derives rolling statistics
// from it. The log is bounded: after every append it is truncated to the
// most recent constants.MaxSessions entries.
type Engine struct {
	store storage.Provider
}

func New(store storage.Provider) *Engine {
	return &Engine{store: store}
}

// Append clamps the duration to >= 1 whole seconds, records the session at
// the given completion time, truncates the log and persists it. The updated
// log is returned for immediate stats computation.
func (e *Engine) Append(seconds float64, at time.Time) ([]models.Session, error) {
	duration := 1
	if !math.IsNaN(seconds) && !math.IsInf(seconds, 0) {
		duration = int(math.Floor(seconds))
	}
	if duration < 1 {
		duration = 1
	}

	log, err := e.Log()
	if err != nil {
		return nil, err
	}

	log = append(log, models.Session{TS: at.Unix(), Seconds: duration})
	if len(log) > constants.MaxSessions {
		log = log[len(log)-constants.MaxSessions:]
	}

	if err := storage.WriteKey(e.store, constants.KeySessions, log); err != nil {
		return nil, err
	}

	return log, nil
}

// Log reads the persisted session log. Entries that fail to decode are
// skipped rather than failing the whole read; historical garbage should
// degrade stats, not break them.
func (e *Engine) Log() ([]models.Session, error) {
	vals, err := e.store.Get(constants.KeySessions)
	if err != nil {
		return nil, err
	}
	raw, ok := vals[constants.KeySessions]
	if !ok {
		return nil, nil
	}

	var rawEntries []json.RawMessage
	if err := json.Unmarshal(raw, &rawEntries); err != nil {
		// A corrupt log is treated as empty.
		return nil, nil
	}

	log := make([]models.Session, 0, len(rawEntries))
	for _, raw := range rawEntries {
		var entry models.Session
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		log = append(log, entry)
	}

	return log, nil
}

// Current computes statistics over the persisted log as of now.
func (e *Engine) Current() (models.Stats, error) {
	log, err := e.Log()
	if err != nil {
		return models.Stats{}, err
	}
	return Compute(log, time.Now()), nil
}

// Compute derives today's total, the 7-day series, streaks and the all-time
// total from a session log. Days are bucketed by the local calendar day of
// each entry in now's location.
func Compute(log []models.Session, now time.Time) models.Stats {
	loc := now.Location()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	const dayKey = "2006-01-02"

	buckets := make(map[string]int)
	dayStarts := make(map[string]time.Time)
	stats := models.Stats{}

	for _, entry := range log {
		stats.TotalSecondsAll += entry.Seconds

		if entry.TS <= 0 {
			continue
		}

		t := time.Unix(entry.TS, 0).In(loc)
		seconds := entry.Seconds
		if seconds < 0 {
			seconds = 0
		}

		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
		key := day.Format(dayKey)
		buckets[key] += seconds
		dayStarts[key] = day

		if !t.Before(midnight) {
			stats.TodaySeconds += seconds
		}
	}

	// 7 calendar days ending today, oldest first, zero-filled.
	stats.Weekly = make([]models.DayTotal, 0, 7)
	for i := 6; i >= 0; i-- {
		day := midnight.AddDate(0, 0, -i)
		stats.Weekly = append(stats.Weekly, models.DayTotal{
			Date:    day.Format(dayKey),
			Seconds: buckets[day.Format(dayKey)],
		})
	}

	// Current streak: consecutive non-zero days walking back from today.
	for day := midnight; buckets[day.Format(dayKey)] > 0; day = day.AddDate(0, 0, -1) {
		stats.CurrentStreak++
	}

	// Longest streak across the entire history. Scans the distinct active
	// days rather than every calendar day they span, so a stray far-future
	// timestamp cannot turn this into an unbounded walk.
	days := make([]time.Time, 0, len(buckets))
	for key, seconds := range buckets {
		if seconds > 0 {
			days = append(days, dayStarts[key])
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	run := 0
	for i, day := range days {
		if i > 0 && days[i-1].AddDate(0, 0, 1).Equal(day) {
			run++
		} else {
			run = 1
		}
		if run > stats.LongestStreak {
			stats.LongestStreak = run
		}
	}

	return stats
}
