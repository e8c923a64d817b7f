package qotd

import (
	"context"
	"testing"
)

func TestSetTimeRejectsInvalid(t *testing.T) {
	t.Parallel()
	r := newTestRig(t)
	ctx := context.Background()
	_ = r.engine.SetChannel(ctx, "g1", "100")
	_ = r.engine.SetTime(ctx, "g1", "21:00")

	err := r.engine.SetTime(ctx, "g1", "25:99")
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !IsValidation(err) {
		t.Fatalf("error %v is not a validation error", err)
	}
	if st := r.engine.GuildStatus("g1"); st.TimeHHMM != "21:00" {
		t.Fatalf("rejected set_time changed state to %q", st.TimeHHMM)
	}
}

func TestSetTimeClearsLastPostDate(t *testing.T) {
	t.Parallel()
	r := newTestRig(t)
	ctx := context.Background()
	setupDaily(t, r)

	r.advanceTo(21, 0, 5)
	_ = r.engine.Tick(ctx)
	if st := r.engine.GuildStatus("g1"); st.LastPostDate == "" {
		t.Fatal("daily did not mark the day")
	}

	// Move the time later today; the guild may post again at the new time.
	if err := r.engine.SetTime(ctx, "g1", "22:30"); err != nil {
		t.Fatalf("SetTime: %v", err)
	}
	if st := r.engine.GuildStatus("g1"); st.LastPostDate != "" {
		t.Fatalf("last_post_date = %q after set_time, want cleared", st.LastPostDate)
	}

	r.advanceTo(22, 30, 5)
	_ = r.engine.Tick(ctx)
	if len(r.notifier.delivered) != 2 {
		t.Fatalf("posts today = %d, want 2 after time change", len(r.notifier.delivered))
	}
}

func TestEnableRequiresChannel(t *testing.T) {
	t.Parallel()
	r := newTestRig(t)
	ctx := context.Background()

	err := r.engine.Enable(ctx, "g1")
	if err == nil {
		t.Fatal("enable without channel succeeded")
	}
	if !IsValidation(err) {
		t.Fatalf("error %v is not a validation error", err)
	}
	if st := r.engine.GuildStatus("g1"); st.Enabled {
		t.Fatal("guild enabled despite missing channel")
	}
}

func TestScheduleOnceRollsToTomorrow(t *testing.T) {
	t.Parallel()
	r := newTestRig(t) // clock at 12:00
	ctx := context.Background()
	_ = r.engine.SetChannel(ctx, "g1", "100")

	// 12:00 exactly is not strictly future.
	runAt, err := r.engine.ScheduleOnce(ctx, "g1", "12:00", nil)
	if err != nil {
		t.Fatalf("ScheduleOnce: %v", err)
	}
	if runAt.Day() != r.now.Day()+1 {
		t.Fatalf("run_at = %v, want tomorrow", runAt)
	}

	// A past time rolls over too.
	runAt, err = r.engine.ScheduleOnce(ctx, "g1", "08:00", nil)
	if err != nil {
		t.Fatalf("ScheduleOnce: %v", err)
	}
	if runAt.Day() != r.now.Day()+1 {
		t.Fatalf("run_at = %v, want tomorrow", runAt)
	}
}

func TestScheduleOnceRequiresChannel(t *testing.T) {
	t.Parallel()
	r := newTestRig(t)
	if _, err := r.engine.ScheduleOnce(context.Background(), "g1", "14:00", nil); err == nil {
		t.Fatal("schedule_once without channel succeeded")
	}
}

func TestScheduleOnceClampsIndex(t *testing.T) {
	t.Parallel()
	r := newTestRig(t)
	ctx := context.Background()
	_ = r.engine.SetChannel(ctx, "g1", "100")

	idx := 500
	if _, err := r.engine.ScheduleOnce(ctx, "g1", "14:00", &idx); err != nil {
		t.Fatalf("ScheduleOnce: %v", err)
	}
	pending := r.engine.ListPending("g1")
	if len(pending) != 1 || pending[0].QIdx == nil || *pending[0].QIdx != 2 {
		t.Fatalf("q_idx = %v, want clamped to 2", pending)
	}
}

func TestCancelByPosition(t *testing.T) {
	t.Parallel()
	r := newTestRig(t)
	ctx := context.Background()
	_ = r.engine.SetChannel(ctx, "g1", "100")
	for _, hhmm := range []string{"13:00", "14:00", "15:00"} {
		if _, err := r.engine.ScheduleOnce(ctx, "g1", hhmm, nil); err != nil {
			t.Fatalf("ScheduleOnce(%s): %v", hhmm, err)
		}
	}

	if err := r.engine.Cancel(ctx, "g1", 2); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	pending := r.engine.ListPending("g1")
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	for _, p := range pending {
		if at, err := parseRunAt(p.RunAt, r.engine.loc); err != nil || at.Hour() == 14 {
			t.Fatalf("wrong entry removed, still have %v", pending)
		}
	}

	// Out-of-range positions.
	for _, pos := range []int{0, -1, 3, 99} {
		if err := r.engine.Cancel(ctx, "g1", pos); err == nil {
			t.Errorf("Cancel(%d) succeeded on a 2-entry list", pos)
		}
	}
	if err := r.engine.Cancel(ctx, "unknown", 1); err == nil {
		t.Error("Cancel on unknown guild succeeded")
	}
}

func TestFireNow(t *testing.T) {
	t.Parallel()
	r := newTestRig(t)
	ctx := context.Background()

	if err := r.engine.FireNow(ctx, "g1"); err == nil {
		t.Fatal("FireNow without channel succeeded")
	}

	_ = r.engine.SetChannel(ctx, "g1", "100")
	if err := r.engine.FireNow(ctx, "g1"); err != nil {
		t.Fatalf("FireNow: %v", err)
	}
	if len(r.notifier.delivered) != 1 || r.notifier.delivered[0].text != "A" {
		t.Fatalf("delivered %v, want A", r.notifier.delivered)
	}

	st := r.engine.GuildStatus("g1")
	if st.NextIndex != 2 {
		t.Fatalf("cursor = %d, want advanced", st.NextIndex)
	}
	if st.LastPostDate != "" {
		t.Fatal("FireNow marked last_post_date")
	}
}

func TestPreviewDoesNotMutate(t *testing.T) {
	t.Parallel()
	r := newTestRig(t)
	ctx := context.Background()
	_ = r.engine.SetChannel(ctx, "g1", "100")

	if got := r.engine.Preview("g1"); got != "A" {
		t.Fatalf("Preview = %q, want A", got)
	}
	if got := r.engine.Preview("g1"); got != "A" {
		t.Fatalf("repeated Preview = %q, want A", got)
	}
	if st := r.engine.GuildStatus("g1"); st.NextIndex != 1 {
		t.Fatalf("Preview advanced cursor to %d", st.NextIndex)
	}

	// Unknown guild previews the first question without creating state.
	if got := r.engine.Preview("nobody"); got != "A" {
		t.Fatalf("Preview(unknown) = %q", got)
	}
}

func TestShuffleResetsCursor(t *testing.T) {
	t.Parallel()
	r := newTestRig(t)
	ctx := context.Background()
	_ = r.engine.SetChannel(ctx, "g1", "100")
	_ = r.engine.FireNow(ctx, "g1")
	_ = r.engine.FireNow(ctx, "g1")

	if err := r.engine.Shuffle(ctx, "g1"); err != nil {
		t.Fatalf("Shuffle: %v", err)
	}
	st := r.engine.GuildStatus("g1")
	if st.NextIndex != 1 {
		t.Fatalf("cursor = %d after shuffle, want rewound", st.NextIndex)
	}

	// A full pass still visits every question exactly once.
	seen := map[string]bool{}
	g := r.engine.guilds["g1"]
	for i := 0; i < 3; i++ {
		seen[Next(g, r.engine.pool)] = true
	}
	if len(seen) != 3 {
		t.Fatalf("shuffled pass visited %d distinct questions, want 3", len(seen))
	}
}

func TestGuildStatusDefaults(t *testing.T) {
	t.Parallel()
	r := newTestRig(t)

	st := r.engine.GuildStatus("fresh")
	if st.TimeHHMM != DefaultDailyTime {
		t.Errorf("TimeHHMM = %q, want default %q", st.TimeHHMM, DefaultDailyTime)
	}
	if st.Enabled {
		t.Error("fresh guild enabled")
	}
	if st.NextIndex != 1 {
		t.Errorf("NextIndex = %d, want 1", st.NextIndex)
	}
	if st.PoolSize != 3 {
		t.Errorf("PoolSize = %d, want 3", st.PoolSize)
	}

	// Asking for status must not create the guild.
	if _, ok := r.engine.guilds["fresh"]; ok {
		t.Error("GuildStatus created guild state")
	}
}

func TestMutationsPersistBeforeReturn(t *testing.T) {
	t.Parallel()
	r := newTestRig(t)
	ctx := context.Background()

	before := r.store.saves
	_ = r.engine.SetChannel(ctx, "g1", "100")
	_ = r.engine.SetTime(ctx, "g1", "09:30")
	_ = r.engine.Enable(ctx, "g1")
	_ = r.engine.Disable(ctx, "g1")
	_, _ = r.engine.ScheduleOnce(ctx, "g1", "18:00", nil)
	_ = r.engine.Cancel(ctx, "g1", 1)
	_ = r.engine.Shuffle(ctx, "g1")

	if got := r.store.saves - before; got != 7 {
		t.Fatalf("saves = %d, want one per mutation (7)", got)
	}
}
