package qotd

import (
	"context"
	"log/slog"
	"time"
)

// The mutation API below is what the command surface calls. Every operation
// is single-guild, validates before touching state, and persists before
// returning so the caller observes the new state as durable.

// PendingOneShot is a read-only view of a scheduled one-shot.
type PendingOneShot struct {
	Position int // 1-based, stable for Cancel
	RunAt    string
	QIdx     *int
}

// Status is a read-only snapshot of one guild's configuration.
type Status struct {
	ChannelID    string
	TimeHHMM     string
	Enabled      bool
	NextIndex    int // 1-based position of the next question
	PoolSize     int
	LastPostDate string
	PendingCount int
}

// SetChannel sets the delivery channel. Always succeeds.
func (e *Engine) SetChannel(ctx context.Context, guildID, channelID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	g := e.getOrCreateLocked(guildID)
	g.ChannelID = channelID
	e.persistLocked(ctx)
	e.log.Info("channel set", slog.String("guild", guildID), slog.String("channel", channelID))
	return nil
}

// SetTime sets the daily posting time. A successful change also clears
// last_post_date so the new time can still fire today.
func (e *Engine) SetTime(ctx context.Context, guildID, hhmm string) error {
	if _, _, err := ParseHHMM(hhmm); err != nil {
		return validationErr("set_time", "invalid time %q, use HH:MM (24-hour)", hhmm)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	g := e.getOrCreateLocked(guildID)
	g.TimeHHMM = hhmm
	g.LastPostDate = ""
	e.persistLocked(ctx)
	e.log.Info("daily time set", slog.String("guild", guildID), slog.String("time", hhmm))
	return nil
}

// Enable turns the daily posting on. The channel must be configured first.
func (e *Engine) Enable(ctx context.Context, guildID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	g := e.getOrCreateLocked(guildID)
	if g.ChannelID == "" {
		return channelNotSetErr("enable")
	}
	g.Enabled = true
	e.persistLocked(ctx)
	e.log.Info("daily posting enabled", slog.String("guild", guildID))
	return nil
}

// Disable turns the daily posting off. Always succeeds.
func (e *Engine) Disable(ctx context.Context, guildID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	g := e.getOrCreateLocked(guildID)
	g.Enabled = false
	e.persistLocked(ctx)
	e.log.Info("daily posting disabled", slog.String("guild", guildID))
	return nil
}

// ScheduleOnce appends a one-shot at the next future occurrence of hhmm in
// the reference timezone: today if that minute is still ahead, else tomorrow.
// qIdx, when non-nil, is a zero-based question index clamped to the pool.
func (e *Engine) ScheduleOnce(ctx context.Context, guildID, hhmm string, qIdx *int) (time.Time, error) {
	h, m, err := ParseHHMM(hhmm)
	if err != nil {
		return time.Time{}, validationErr("schedule_once", "invalid time %q, use HH:MM (24-hour)", hhmm)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	g := e.getOrCreateLocked(guildID)
	if g.ChannelID == "" {
		return time.Time{}, channelNotSetErr("schedule_once")
	}

	runAt := e.nextOccurrenceLocked(h, m)
	entry := OneShot{RunAt: runAt.Format(time.RFC3339)}
	if qIdx != nil {
		c := clamp(*qIdx, 0, e.pool.Size()-1)
		entry.QIdx = &c
	}
	g.OneShots = append(g.OneShots, entry)
	e.persistLocked(ctx)
	e.log.Info("one-shot scheduled", slog.String("guild", guildID), slog.Time("run_at", runAt))
	return runAt, nil
}

// nextOccurrenceLocked returns the next strictly-future instant with the
// given wall-clock time in the reference timezone.
func (e *Engine) nextOccurrenceLocked(h, m int) time.Time {
	now := e.now().In(e.loc)
	candidate := time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, e.loc)
	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}

// ListPending returns the guild's one-shots in schedule order.
func (e *Engine) ListPending(guildID string) []PendingOneShot {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, ok := e.guilds[guildID]
	if !ok {
		return nil
	}
	out := make([]PendingOneShot, 0, len(g.OneShots))
	for i, s := range g.OneShots {
		p := PendingOneShot{Position: i + 1, RunAt: s.RunAt}
		if s.QIdx != nil {
			v := *s.QIdx
			p.QIdx = &v
		}
		out = append(out, p)
	}
	return out
}

// Cancel removes the one-shot at the given 1-based position.
func (e *Engine) Cancel(ctx context.Context, guildID string, position int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, ok := e.guilds[guildID]
	if !ok || position < 1 || position > len(g.OneShots) {
		return validationErr("cancel", "no one-shot schedule at position %d", position)
	}
	g.OneShots = append(g.OneShots[:position-1], g.OneShots[position:]...)
	e.persistLocked(ctx)
	e.log.Info("one-shot cancelled", slog.String("guild", guildID), slog.Int("position", position))
	return nil
}

// FireNow posts the next question immediately, bypassing the schedule.
// It advances the cursor but does not touch last_post_date.
func (e *Engine) FireNow(ctx context.Context, guildID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, ok := e.guilds[guildID]
	if !ok || g.ChannelID == "" {
		return channelNotSetErr("next_now")
	}
	text := Next(g, e.pool)
	e.deliver(ctx, guildID, g, text, "manual")
	e.persistLocked(ctx)
	return nil
}

// Preview returns what the next daily post would be, without mutating state.
func (e *Engine) Preview(guildID string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, ok := e.guilds[guildID]
	if !ok {
		g = newGuildSchedule()
	}
	return Peek(g, e.pool)
}

// Shuffle replaces the guild's question order with a fresh random
// permutation and rewinds the cursor.
func (e *Engine) Shuffle(ctx context.Context, guildID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	g := e.getOrCreateLocked(guildID)
	g.Order = ShuffledOrder(e.pool.Size())
	g.CurrentIndex = 0
	e.persistLocked(ctx)
	e.log.Info("question order shuffled", slog.String("guild", guildID))
	return nil
}

// GuildStatus returns a read-only snapshot of the guild's configuration.
func (e *Engine) GuildStatus(guildID string) Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, ok := e.guilds[guildID]
	if !ok {
		g = newGuildSchedule()
	}
	n := e.pool.Size()
	if g.Order != nil {
		n = len(g.Order)
	}
	return Status{
		ChannelID:    g.ChannelID,
		TimeHHMM:     g.TimeHHMM,
		Enabled:      g.Enabled,
		NextIndex:    wrap(g.CurrentIndex, n) + 1,
		PoolSize:     e.pool.Size(),
		LastPostDate: g.LastPostDate,
		PendingCount: len(g.OneShots),
	}
}
