package qotd

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ReferenceTimezone is the IANA zone all wall-clock comparisons use.
const ReferenceTimezone = "Asia/Kolkata"

// Notifier delivers a question to a channel. Implemented by the notify
// service; the engine never formats or retries.
type Notifier interface {
	Deliver(ctx context.Context, channelID string, text string) error
}

// Store is the durable backing for all guild schedules. Save rewrites the
// whole document; implementations must make the write atomic.
type Store interface {
	Load(ctx context.Context) (map[string]*GuildSchedule, error)
	Save(ctx context.Context, guilds map[string]*GuildSchedule) error
}

// ReferenceLocation resolves name (default ReferenceTimezone), falling back
// to a fixed +05:30 zone when the zone database is unavailable.
func ReferenceLocation(name string) *time.Location {
	if strings.TrimSpace(name) == "" {
		name = ReferenceTimezone
	}
	if loc, err := time.LoadLocation(name); err == nil {
		return loc
	}
	return time.FixedZone("UTC+05:30", 5*3600+30*60)
}

// Engine owns all guild schedules. Every read and mutation, whether from the
// scheduler tick or the command surface, serializes on its mutex; persistence
// is wholesale, so two interleaved writers would lose updates otherwise.
type Engine struct {
	mu sync.Mutex

	log      *slog.Logger
	pool     *Pool
	store    Store
	notifier Notifier
	loc      *time.Location

	guilds map[string]*GuildSchedule

	// now is swappable for tests.
	now func() time.Time
}

func NewEngine(pool *Pool, store Store, notifier Notifier, loc *time.Location, log *slog.Logger) *Engine {
	if loc == nil {
		loc = ReferenceLocation("")
	}
	return &Engine{
		log:      log,
		pool:     pool,
		store:    store,
		notifier: notifier,
		loc:      loc,
		guilds:   map[string]*GuildSchedule{},
		now:      time.Now,
	}
}

// Location returns the engine's reference timezone.
func (e *Engine) Location() *time.Location { return e.loc }

// Load replaces the in-memory state with the stored document. Schedules are
// operational convenience state: the store yields an empty map for a missing
// or corrupt backing file, and Load treats that as a clean start.
func (e *Engine) Load(ctx context.Context) error {
	guilds, err := e.store.Load(ctx)
	if err != nil {
		return err
	}
	if guilds == nil {
		guilds = map[string]*GuildSchedule{}
	}
	for id, g := range guilds {
		if g == nil {
			delete(guilds, id)
			continue
		}
		g.normalize(e.pool.Size())
	}
	e.mu.Lock()
	e.guilds = guilds
	e.mu.Unlock()
	e.log.Info("schedules loaded", slog.Int("guilds", len(guilds)))
	return nil
}

// Tick evaluates every guild once: due one-shots first, then the daily post.
// It is registered with the trigger scheduler at a 15s interval, coarse
// enough to stay idle most of the time and fine enough that a daily-minute
// match cannot be skipped.
func (e *Engine) Tick(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now().In(e.loc)
	today := now.Format(time.DateOnly)

	changed := false
	for guildID, g := range e.guilds {
		if e.runOneShots(ctx, guildID, g, now) {
			changed = true
		}
		if e.runDaily(ctx, guildID, g, now, today) {
			changed = true
		}
	}
	// One write for the whole pass: persistence is wholesale, so per-guild
	// writes would just rewrite the same document repeatedly.
	if changed {
		e.persistLocked(ctx)
	}
	return nil
}

// Persist writes the current in-memory state through the store. The tick
// already persists after every mutation; this exists for the nightly rewrite
// and for shutdown.
func (e *Engine) Persist(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Save(ctx, e.guilds)
}

// runOneShots fires and removes due entries. An entry fires at most once:
// it is consumed even when delivery fails. A malformed run_at is a
// data-quality problem, not a tick failure; it is logged and dropped.
func (e *Engine) runOneShots(ctx context.Context, guildID string, g *GuildSchedule, now time.Time) bool {
	if len(g.OneShots) == 0 {
		return false
	}
	pending := g.OneShots[:0]
	changed := false
	for _, s := range g.OneShots {
		at, err := parseRunAt(s.RunAt, e.loc)
		if err != nil {
			e.log.Warn("dropping one-shot with malformed run_at",
				slog.String("guild", guildID), slog.String("run_at", s.RunAt), slog.Any("err", err))
			changed = true
			continue
		}
		if at.After(now) {
			pending = append(pending, s)
			continue
		}

		changed = true
		var text string
		if s.QIdx != nil {
			text = Select(e.pool, *s.QIdx)
		} else {
			text = Next(g, e.pool)
		}
		e.deliver(ctx, guildID, g, text, "one-shot")
	}
	g.OneShots = pending
	return changed
}

// runDaily fires the daily post when the reference-timezone wall clock
// matches the configured minute and the guild has not posted today yet.
// The day is marked regardless of delivery outcome so a broken channel is
// not hammered every 15 seconds until midnight.
func (e *Engine) runDaily(ctx context.Context, guildID string, g *GuildSchedule, now time.Time, today string) bool {
	if !g.Enabled || g.TimeHHMM == "" || g.ChannelID == "" {
		return false
	}
	h, m, err := ParseHHMM(g.TimeHHMM)
	if err != nil {
		e.log.Warn("guild has malformed daily time, skipping",
			slog.String("guild", guildID), slog.String("time_hhmm", g.TimeHHMM))
		return false
	}
	if now.Hour() != h || now.Minute() != m || g.LastPostDate == today {
		return false
	}

	text := Next(g, e.pool)
	e.deliver(ctx, guildID, g, text, "daily")
	g.LastPostDate = today
	return true
}

func (e *Engine) deliver(ctx context.Context, guildID string, g *GuildSchedule, text, kind string) {
	if g.ChannelID == "" {
		e.log.Warn("skipping delivery, no channel configured",
			slog.String("guild", guildID), slog.String("kind", kind))
		return
	}
	if err := e.notifier.Deliver(ctx, g.ChannelID, text); err != nil {
		e.log.Warn("delivery failed",
			slog.String("guild", guildID), slog.String("kind", kind),
			slog.String("channel", g.ChannelID), slog.Any("err", err))
		return
	}
	e.log.Info("question posted",
		slog.String("guild", guildID), slog.String("kind", kind), slog.String("channel", g.ChannelID))
}

// persistLocked writes the current state through the store. A write failure
// is logged and swallowed: the in-memory state stays canonical and the next
// mutation retries the write.
func (e *Engine) persistLocked(ctx context.Context) {
	if err := e.store.Save(ctx, e.guilds); err != nil {
		e.log.Error("persisting schedules failed", slog.Any("err", err))
	}
}

func (e *Engine) getOrCreateLocked(guildID string) *GuildSchedule {
	g, ok := e.guilds[guildID]
	if !ok {
		g = newGuildSchedule()
		e.guilds[guildID] = g
	}
	return g
}

// ParseHHMM parses a 24h "HH:MM" string.
func ParseHHMM(s string) (hour, minute int, err error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", s)
	}
	return h, m, nil
}
