package settings

import (
	"math"
	"strings"
	"sync"

	"github.com/latuang/petd/internal/constants"
	"github.com/latuang/petd/internal/storage"
)

// legacyAvatars maps asset names from pre-1.0 releases to their current
// transparent-background equivalents. Applied on both read and write so a
// legacy name never survives a round trip.
var legacyAvatars = map[string]string{
	"brown_dog.png": "brown_dog_nobg.png",
	"dog.png":       "brown_dog_nobg.png",
	"white_cat.png": "white_cat_nobg.png",
	"cat.png":       "white_cat_nobg.png",
}

// Reconciler owns the nudge period, avatar selection and the custom-lines
// list. All line mutations go through a single mutex so two concurrent
// merges can never lose each other's additions.
type Reconciler struct {
	store storage.Provider
	mu    sync.Mutex
}

func New(store storage.Provider) *Reconciler {
	return &Reconciler{store: store}
}

// Period returns the stored nudge interval in minutes.
func (r *Reconciler) Period() (int, error) {
	var minutes int
	ok, err := storage.ReadKey(r.store, constants.KeyPeriodMinutes, &minutes)
	if err != nil {
		return 0, err
	}
	if !ok || minutes < 1 {
		return constants.DefaultPeriodMinutes, nil
	}
	return minutes, nil
}

// SetPeriod validates and persists the nudge interval. Non-finite input
// falls back to the default; anything below one minute is clamped to one.
// The caller must re-arm the scheduler as part of the same operation.
func (r *Reconciler) SetPeriod(minutes float64) (int, error) {
	accepted := constants.DefaultPeriodMinutes
	if !math.IsNaN(minutes) && !math.IsInf(minutes, 0) {
		accepted = int(math.Floor(minutes))
	}
	if accepted < 1 {
		accepted = 1
	}

	if err := storage.WriteKey(r.store, constants.KeyPeriodMinutes, accepted); err != nil {
		return 0, err
	}
	return accepted, nil
}

// Avatar returns the stored avatar name, migrating legacy names on read.
func (r *Reconciler) Avatar() (string, error) {
	var name string
	ok, err := storage.ReadKey(r.store, constants.KeyAvatar, &name)
	if err != nil {
		return "", err
	}
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return constants.DefaultAvatar, nil
	}
	if current, legacy := legacyAvatars[name]; legacy {
		return current, nil
	}
	return name, nil
}

// SetAvatar trims, migrates and persists the avatar name.
func (r *Reconciler) SetAvatar(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = constants.DefaultAvatar
	}
	if current, legacy := legacyAvatars[name]; legacy {
		name = current
	}

	if err := storage.WriteKey(r.store, constants.KeyAvatar, name); err != nil {
		return "", err
	}
	return name, nil
}

// Lines returns a snapshot of the custom encouragement lines.
func (r *Reconciler) Lines() ([]string, error) {
	var lines []string
	if _, err := storage.ReadKey(r.store, constants.KeyCustomLines, &lines); err != nil {
		return nil, err
	}
	if lines == nil {
		lines = []string{}
	}
	return lines, nil
}

// MergeLines unions the cleaned input into the stored list, preserving
// first-seen order. Existing entries keep their position, genuinely new
// entries append in input order, so merging the same set twice is a no-op.
// The second return is the last non-empty input line, a convenience for
// say-now flows ("" if none).
func (r *Reconciler) MergeLines(lines []string) ([]string, string, error) {
	// last reflects input order before de-duplication: the caller asked to
	// say the last line they typed, even if it was already in the list.
	cleaned := trimNonEmpty(lines)
	last := ""
	if len(cleaned) > 0 {
		last = cleaned[len(cleaned)-1]
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.Lines()
	if err != nil {
		return nil, "", err
	}

	seen := make(map[string]bool, len(current))
	merged := make([]string, 0, len(current)+len(cleaned))
	for _, line := range current {
		if !seen[line] {
			seen[line] = true
			merged = append(merged, line)
		}
	}
	for _, line := range cleaned {
		if !seen[line] {
			seen[line] = true
			merged = append(merged, line)
		}
	}

	if err := storage.WriteKey(r.store, constants.KeyCustomLines, merged); err != nil {
		return nil, "", err
	}

	return merged, last, nil
}

// ReplaceLines overwrites the stored list with the cleaned input. Unlike
// MergeLines this propagates deletions.
func (r *Reconciler) ReplaceLines(lines []string) ([]string, error) {
	cleaned := cleanLines(lines)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err := storage.WriteKey(r.store, constants.KeyCustomLines, cleaned); err != nil {
		return nil, err
	}
	return cleaned, nil
}

// trimNonEmpty trims every entry and drops the empty ones, preserving order
// and duplicates.
func trimNonEmpty(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// cleanLines additionally de-duplicates, keeping the first occurrence.
func cleanLines(lines []string) []string {
	trimmed := trimNonEmpty(lines)
	seen := make(map[string]bool, len(trimmed))
	out := make([]string, 0, len(trimmed))
	for _, line := range trimmed {
		if seen[line] {
			continue
		}
		seen[line] = true
		out = append(out, line)
	}
	return out
}
