package qotd

import (
	"time"
)

// DefaultDailyTime is the daily posting time a fresh guild starts with.
// Posting stays off until the guild is explicitly enabled.
const DefaultDailyTime = "21:00"

// OneShot is a single future posting. RunAt is kept as the stored string so a
// malformed timestamp survives load and can be surfaced (and dropped) by the
// engine's tick rather than breaking the whole document.
type OneShot struct {
	RunAt string `json:"run_at"`
	QIdx  *int   `json:"q_idx"`
}

// GuildSchedule is the per-guild scheduling state. Field names match the
// persisted document layout.
type GuildSchedule struct {
	ChannelID string `json:"channel_id,omitempty"`

	// TimeHHMM is the daily posting time ("HH:MM", 24h) in the reference
	// timezone. Empty means not set.
	TimeHHMM string `json:"time_hhmm,omitempty"`

	Enabled bool `json:"enabled"`

	// CurrentIndex is the cursor into the logical question order. When Order
	// is set it indexes into Order, otherwise directly into the pool.
	CurrentIndex int `json:"current_index"`

	// Order, when non-nil, is a permutation of [0, pool size).
	Order []int `json:"order,omitempty"`

	// LastPostDate is the reference-timezone calendar date ("YYYY-MM-DD") of
	// the last successful daily posting. Empty means never posted.
	LastPostDate string `json:"last_post_date,omitempty"`

	OneShots []OneShot `json:"one_shot_schedules"`
}

func newGuildSchedule() *GuildSchedule {
	return &GuildSchedule{
		TimeHHMM: DefaultDailyTime,
		OneShots: []OneShot{},
	}
}

// normalize repairs state that violates the schedule invariants, typically
// after loading a document written by an older build or edited by hand:
// a non-permutation Order is discarded, the cursor is wrapped into range and
// explicit question indexes are clamped to the pool.
func (g *GuildSchedule) normalize(poolSize int) {
	if g.OneShots == nil {
		g.OneShots = []OneShot{}
	}
	if g.Order != nil && !isPermutation(g.Order, poolSize) {
		g.Order = nil
	}
	n := poolSize
	if g.Order != nil {
		n = len(g.Order)
	}
	g.CurrentIndex %= n
	if g.CurrentIndex < 0 {
		g.CurrentIndex += n
	}
	for i := range g.OneShots {
		if q := g.OneShots[i].QIdx; q != nil {
			c := clamp(*q, 0, poolSize-1)
			g.OneShots[i].QIdx = &c
		}
	}
}

func isPermutation(order []int, n int) bool {
	if len(order) != n {
		return false
	}
	seen := make([]bool, n)
	for _, v := range order {
		if v < 0 || v >= n || seen[v] {
			return false
		}
		seen[v] = true
	}
	return true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// parseRunAt parses a stored one-shot timestamp. RFC 3339 first; a timestamp
// without offset is taken to be reference-timezone wall clock.
func parseRunAt(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", s, loc)
}
