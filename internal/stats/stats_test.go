package stats

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/latuang/petd/internal/constants"
	"github.com/latuang/petd/internal/models"
	"github.com/latuang/petd/internal/storage"
)

func newTestStore(t *testing.T) storage.Provider {
	t.Helper()
	store := storage.NewJSONStore(filepath.Join(t.TempDir(), "petd.json"))
	if err := store.Init(); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	return store
}

func TestAppend_ClampsDuration(t *testing.T) {
	engine := New(newTestStore(t))

	cases := []struct {
		in   float64
		want int
	}{
		{1500, 1500},
		{90.9, 90},
		{0.5, 1},
		{0, 1},
		{-5, 1},
		{1, 1},
	}

	for _, tc := range cases {
		log, err := engine.Append(tc.in, time.Now())
		if err != nil {
			t.Fatalf("Append(%v) failed: %v", tc.in, err)
		}
		got := log[len(log)-1].Seconds
		if got != tc.want {
			t.Errorf("Append(%v) stored %d seconds, want %d", tc.in, got, tc.want)
		}
	}
}

func TestAppend_TruncatesToBound(t *testing.T) {
	store := newTestStore(t)
	engine := New(store)

	// Pre-seed a full log with recognizable durations.
	full := make([]models.Session, constants.MaxSessions)
	base := time.Now().Add(-48 * time.Hour)
	for i := range full {
		full[i] = models.Session{TS: base.Add(time.Duration(i) * time.Second).Unix(), Seconds: i + 1}
	}
	if err := storage.WriteKey(store, constants.KeySessions, full); err != nil {
		t.Fatalf("failed to seed log: %v", err)
	}

	log, err := engine.Append(999, time.Now())
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if len(log) != constants.MaxSessions {
		t.Fatalf("log has %d entries, want %d", len(log), constants.MaxSessions)
	}
	if log[0].Seconds != 2 {
		t.Errorf("oldest entry should have been dropped, got seconds=%d at head", log[0].Seconds)
	}
	if log[len(log)-1].Seconds != 999 {
		t.Errorf("newest entry missing, got seconds=%d at tail", log[len(log)-1].Seconds)
	}
}

func TestAppend_PersistsLog(t *testing.T) {
	store := newTestStore(t)
	engine := New(store)

	if _, err := engine.Append(120, time.Now()); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	log, err := engine.Log()
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if len(log) != 1 || log[0].Seconds != 120 {
		t.Errorf("persisted log = %+v, want one 120s entry", log)
	}
}

func TestLog_SkipsMalformedEntries(t *testing.T) {
	store := newTestStore(t)
	engine := New(store)

	raw := json.RawMessage(`[{"ts": 1700000000, "seconds": 60}, {"ts": "garbage", "seconds": 30}, "nonsense", {"ts": 1700000100, "seconds": 90}]`)
	if err := store.Set(map[string]json.RawMessage{constants.KeySessions: raw}); err != nil {
		t.Fatalf("failed to seed log: %v", err)
	}

	log, err := engine.Log()
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if len(log) != 2 {
		t.Fatalf("got %d entries, want 2 (malformed skipped)", len(log))
	}
	if log[0].Seconds != 60 || log[1].Seconds != 90 {
		t.Errorf("unexpected surviving entries: %+v", log)
	}
}

func TestCompute_EmptyLog(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	st := Compute(nil, now)

	if st.TodaySeconds != 0 || st.CurrentStreak != 0 || st.LongestStreak != 0 || st.TotalSecondsAll != 0 {
		t.Errorf("empty log stats should be all zero, got %+v", st)
	}
	if len(st.Weekly) != 7 {
		t.Fatalf("weekly has %d entries, want 7", len(st.Weekly))
	}
	if st.Weekly[0].Date != "2025-03-04" || st.Weekly[6].Date != "2025-03-10" {
		t.Errorf("weekly dates wrong: first=%s last=%s", st.Weekly[0].Date, st.Weekly[6].Date)
	}
	for _, day := range st.Weekly {
		if day.Seconds != 0 {
			t.Errorf("day %s should be zero, got %d", day.Date, day.Seconds)
		}
	}
}

func TestCompute_TodayAndWeekly(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	at := func(daysAgo int, hour int) int64 {
		return time.Date(2025, 3, 10-daysAgo, hour, 0, 0, 0, time.UTC).Unix()
	}

	log := []models.Session{
		{TS: at(0, 9), Seconds: 600},
		{TS: at(0, 14), Seconds: 300},
		{TS: at(1, 10), Seconds: 1800},
		{TS: at(3, 10), Seconds: 60},
		// outside the weekly window
		{TS: at(9, 10), Seconds: 1200},
	}

	st := Compute(log, now)

	if st.TodaySeconds != 900 {
		t.Errorf("todaySeconds = %d, want 900", st.TodaySeconds)
	}
	if st.TotalSecondsAll != 3960 {
		t.Errorf("totalSecondsAll = %d, want 3960", st.TotalSecondsAll)
	}

	wantWeekly := map[string]int{
		"2025-03-10": 900,
		"2025-03-09": 1800,
		"2025-03-07": 60,
	}
	for _, day := range st.Weekly {
		if day.Seconds != wantWeekly[day.Date] {
			t.Errorf("weekly[%s] = %d, want %d", day.Date, day.Seconds, wantWeekly[day.Date])
		}
	}
}

func TestCompute_CurrentStreak(t *testing.T) {
	now := time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)
	at := func(daysAgo int) int64 {
		return time.Date(2025, 3, 10-daysAgo, 12, 0, 0, 0, time.UTC).Unix()
	}

	// 3 consecutive days ending today.
	log := []models.Session{
		{TS: at(0), Seconds: 1800},
		{TS: at(1), Seconds: 1800},
		{TS: at(2), Seconds: 1800},
	}
	if st := Compute(log, now); st.CurrentStreak != 3 {
		t.Errorf("currentStreak = %d, want 3", st.CurrentStreak)
	}

	// A gap two days back breaks the streak at the gap.
	gapped := []models.Session{
		{TS: at(0), Seconds: 1800},
		{TS: at(1), Seconds: 1800},
		{TS: at(3), Seconds: 1800},
	}
	if st := Compute(gapped, now); st.CurrentStreak != 2 {
		t.Errorf("currentStreak with gap = %d, want 2", st.CurrentStreak)
	}

	// No sessions today: streak is zero even with history yesterday.
	stale := []models.Session{
		{TS: at(1), Seconds: 1800},
		{TS: at(2), Seconds: 1800},
	}
	if st := Compute(stale, now); st.CurrentStreak != 0 {
		t.Errorf("currentStreak without today = %d, want 0", st.CurrentStreak)
	}
}

func TestCompute_LongestStreakSpansFullHistory(t *testing.T) {
	now := time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)
	at := func(daysAgo int) int64 {
		return time.Date(2025, 3, 10-daysAgo, 12, 0, 0, 0, time.UTC).Unix()
	}

	// A 4-day run far outside the trailing week, and a 2-day run ending today.
	log := []models.Session{
		{TS: at(0), Seconds: 60},
		{TS: at(1), Seconds: 60},
		{TS: at(20), Seconds: 60},
		{TS: at(21), Seconds: 60},
		{TS: at(22), Seconds: 60},
		{TS: at(23), Seconds: 60},
	}

	st := Compute(log, now)
	if st.LongestStreak != 4 {
		t.Errorf("longestStreak = %d, want 4 (historical run)", st.LongestStreak)
	}
	if st.CurrentStreak != 2 {
		t.Errorf("currentStreak = %d, want 2", st.CurrentStreak)
	}
}

func TestCompute_FarFutureTimestampStaysCheap(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	// A caller-supplied timestamp can be arbitrarily far in the future; the
	// streak scan must be bounded by the number of logged days, not by the
	// millennia the garbage entry spans.
	log := []models.Session{
		{TS: now.Add(-time.Hour).Unix(), Seconds: 60},
		{TS: 1 << 45, Seconds: 60},
	}

	start := time.Now()
	st := Compute(log, now)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Compute took %v over a 2-entry log", elapsed)
	}

	if st.LongestStreak != 1 {
		t.Errorf("longestStreak = %d, want 1 (two isolated days)", st.LongestStreak)
	}
	if st.TotalSecondsAll != 120 {
		t.Errorf("totalSecondsAll = %d, want 120", st.TotalSecondsAll)
	}
}

func TestCompute_NegativeDurationsFloorToZeroInBuckets(t *testing.T) {
	now := time.Date(2025, 3, 10, 20, 0, 0, 0, time.UTC)
	ts := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC).Unix()

	log := []models.Session{
		{TS: ts, Seconds: -500},
	}

	st := Compute(log, now)
	if st.TodaySeconds != 0 {
		t.Errorf("todaySeconds = %d, want 0 (negative floored)", st.TodaySeconds)
	}
	if st.CurrentStreak != 0 {
		t.Errorf("a zero-sum day must not extend a streak, got %d", st.CurrentStreak)
	}
	if st.TotalSecondsAll != -500 {
		t.Errorf("totalSecondsAll = %d, want raw -500", st.TotalSecondsAll)
	}
}
