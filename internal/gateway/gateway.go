package gateway

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/latuang/petd/internal/constants"
	"github.com/latuang/petd/internal/models"
	"github.com/latuang/petd/internal/settings"
	"github.com/latuang/petd/internal/stats"
	"github.com/latuang/petd/internal/storage"
)

// Rescheduler re-arms the periodic nudge timer. Satisfied by
// scheduler.Scheduler.
type Rescheduler interface {
	Reschedule(period time.Duration)
}

// subscriberBuffer is the per-surface event queue depth. A surface that
// falls further behind starts losing events; delivery is best-effort.
const subscriberBuffer = 16

// Gateway answers typed requests from internal and external callers,
// mutates state through the reconciler and stats engine, and fans change
// events out to every live surface. External callers are gated by an origin
// prefix allow-list.
type Gateway struct {
	store    storage.Provider
	settings *settings.Reconciler
	stats    *stats.Engine
	sched    Rescheduler
	logger   *zap.Logger
	allowed  []string

	mu   sync.Mutex
	subs map[uuid.UUID]chan Event
}

func New(store storage.Provider, rec *settings.Reconciler, eng *stats.Engine, sched Rescheduler, allowed []string, logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	if allowed == nil {
		allowed = constants.DefaultAllowedOrigins
	}
	return &Gateway{
		store:    store,
		settings: rec,
		stats:    eng,
		sched:    sched,
		logger:   logger,
		allowed:  allowed,
		subs:     make(map[uuid.UUID]chan Event),
	}
}

// Subscribe registers a surface for broadcast events. The cancel func must
// be called when the surface goes away.
func (g *Gateway) Subscribe() (uuid.UUID, <-chan Event, func()) {
	id := uuid.New()
	ch := make(chan Event, subscriberBuffer)

	g.mu.Lock()
	g.subs[id] = ch
	g.mu.Unlock()

	cancel := func() {
		g.mu.Lock()
		delete(g.subs, id)
		g.mu.Unlock()
	}
	return id, ch, cancel
}

// SubscriberCount reports how many surfaces are currently connected.
func (g *Gateway) SubscriberCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs)
}

// Broadcast delivers an event to every subscribed surface, best-effort: a
// full or gone subscriber drops the event rather than blocking the caller.
func (g *Gateway) Broadcast(ev Event) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for id, ch := range g.subs {
		select {
		case ch <- ev:
		default:
			g.logger.Debug("dropping event for slow subscriber",
				zap.String("subscriber", id.String()),
				zap.String("event", ev.Type))
		}
	}
}

// Nudge broadcasts a nudge event with no payload; each surface picks a line
// from its current pool. Wired as the scheduler's fire callback.
func (g *Gateway) Nudge() {
	g.logger.Info("nudge due")
	g.Broadcast(Event{Type: EventNudge})
}

// OriginAllowed reports whether a sender origin may talk to the gateway.
// The empty origin marks an internal caller and is always trusted.
func (g *Gateway) OriginAllowed(origin string) bool {
	if origin == "" {
		return true
	}
	for _, prefix := range g.allowed {
		if strings.HasPrefix(origin, prefix) {
			return true
		}
	}
	return false
}

// Handle processes one request and always produces a response: unknown
// types, disallowed origins and runtime faults all come back as structured
// failures, never as a dropped reply.
func (g *Gateway) Handle(req Request, origin string) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("request handler panicked",
				zap.String("type", req.Type), zap.Any("panic", r))
			resp = failure(fmt.Sprintf("internal error: %v", r))
		}
	}()

	if !g.OriginAllowed(origin) {
		g.logger.Warn("rejected external request",
			zap.String("type", req.Type), zap.String("origin", origin))
		return Response{OK: false, Error: "Origin not allowed", Got: origin}
	}

	switch req.Type {
	case TypeGetSettings:
		return g.getSettings()
	case TypeSetPeriod:
		return g.setPeriod(req)
	case TypeSetAvatar:
		return g.setAvatar(req)
	case TypeGetLines:
		return g.getLines()
	case TypeAddLines:
		return g.addLines(req)
	case TypeReplaceLines:
		return g.replaceLines(req)
	case TypeSayNow:
		return g.sayNow(req)
	case TypeLogSession:
		return g.logSession(req)
	case TypeGetStats:
		return g.getStats()
	case TypeReschedule:
		return g.reschedule()
	default:
		return failure("Unknown message type")
	}
}

func (g *Gateway) getSettings() Response {
	minutes, err := g.settings.Period()
	if err != nil {
		return failure(err.Error())
	}
	avatar, err := g.settings.Avatar()
	if err != nil {
		return failure(err.Error())
	}
	st, err := g.stats.Current()
	if err != nil {
		return failure(err.Error())
	}
	return Response{OK: true, Minutes: minutes, Avatar: avatar, Stats: &st}
}

func (g *Gateway) setPeriod(req Request) Response {
	minutes := math.NaN()
	if req.Minutes != nil {
		minutes = *req.Minutes
	}

	accepted, err := g.settings.SetPeriod(minutes)
	if err != nil {
		return failure(err.Error())
	}

	// The schedule must never be left stale after a successful set.
	g.sched.Reschedule(time.Duration(accepted) * time.Minute)

	g.logger.Info("period changed", zap.Int("minutes", accepted))
	g.Broadcast(Event{Type: EventPeriodChanged, Minutes: accepted})
	return Response{OK: true, Minutes: accepted}
}

func (g *Gateway) setAvatar(req Request) Response {
	name, err := g.settings.SetAvatar(req.Name)
	if err != nil {
		return failure(err.Error())
	}

	g.logger.Info("avatar changed", zap.String("name", name))
	g.Broadcast(Event{Type: EventAvatarChanged, Name: name})
	return Response{OK: true, Name: name}
}

func (g *Gateway) getLines() Response {
	lines, err := g.settings.Lines()
	if err != nil {
		return failure(err.Error())
	}
	return Response{OK: true, Lines: lines}
}

func (g *Gateway) addLines(req Request) Response {
	merged, last, err := g.settings.MergeLines(req.Lines)
	if err != nil {
		return failure(err.Error())
	}

	// Push the new pool to every open surface, no refresh needed.
	g.Broadcast(Event{Type: EventLinesUpdated, Lines: merged})

	resp := Response{OK: true, Count: len(merged)}
	if last != "" {
		if err := g.say(last); err != nil {
			return failure(err.Error())
		}
		resp.Said = &last
	}
	return resp
}

func (g *Gateway) replaceLines(req Request) Response {
	lines, err := g.settings.ReplaceLines(req.Lines)
	if err != nil {
		return failure(err.Error())
	}

	g.Broadcast(Event{Type: EventLinesUpdated, Lines: lines})
	return Response{OK: true, Lines: lines, Count: len(lines)}
}

func (g *Gateway) sayNow(req Request) Response {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return failure("Nothing to say")
	}
	if err := g.say(text); err != nil {
		return failure(err.Error())
	}
	return Response{OK: true, Said: &text}
}

// say persists the speak-now echo, then broadcasts the live event. The echo
// write comes first so a surface connecting between the two steps cannot
// miss both deliveries.
func (g *Gateway) say(text string) error {
	echo := models.SpeakEcho{Text: text, At: time.Now().UnixMilli()}
	if err := storage.WriteKey(g.store, constants.KeySpeakNow, echo); err != nil {
		return err
	}
	g.Broadcast(Event{Type: EventSay, Text: text})
	return nil
}

// ConsumeSpeakEcho returns the pending speak-now echo if it is fresher than
// maxAge, clearing it either way so it fires at most once.
func (g *Gateway) ConsumeSpeakEcho(maxAge time.Duration) (models.SpeakEcho, bool, error) {
	var echo models.SpeakEcho
	ok, err := storage.ReadKey(g.store, constants.KeySpeakNow, &echo)
	if err != nil || !ok {
		return models.SpeakEcho{}, false, err
	}

	if err := g.store.Remove(constants.KeySpeakNow); err != nil {
		return models.SpeakEcho{}, false, err
	}

	age := time.Since(time.UnixMilli(echo.At))
	if echo.Text == "" || age < 0 || age > maxAge {
		return models.SpeakEcho{}, false, nil
	}
	return echo, true, nil
}

func (g *Gateway) logSession(req Request) Response {
	seconds := math.NaN()
	if req.Seconds != nil {
		seconds = *req.Seconds
	}

	at := time.Now()
	if req.AtMs != nil {
		at = time.UnixMilli(*req.AtMs)
	}

	log, err := g.stats.Append(seconds, at)
	if err != nil {
		return failure(err.Error())
	}

	st := stats.Compute(log, time.Now())
	g.Broadcast(Event{Type: EventStatsUpdated, Stats: &st})
	return Response{OK: true, Stats: &st}
}

func (g *Gateway) getStats() Response {
	st, err := g.stats.Current()
	if err != nil {
		return failure(err.Error())
	}
	return Response{OK: true, Stats: &st}
}

func (g *Gateway) reschedule() Response {
	minutes, err := g.settings.Period()
	if err != nil {
		return failure(err.Error())
	}

	g.sched.Reschedule(time.Duration(minutes) * time.Minute)
	g.logger.Info("rescheduled", zap.Int("minutes", minutes))
	return Response{OK: true}
}
