package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"qotdbot/internal/qotd"
	logx "qotdbot/pkg/logx"
)

func newFileStore(t *testing.T) (Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qotd_data.json")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st, path
}

func TestFileRoundTrip(t *testing.T) {
	t.Parallel()
	st, path := newFileStore(t)
	ctx := context.Background()

	qidx := 4
	in := map[string]*qotd.GuildSchedule{
		"123456": {
			ChannelID:    "-100987:42",
			TimeHHMM:     "21:00",
			Enabled:      true,
			CurrentIndex: 7,
			Order:        []int{2, 0, 1},
			LastPostDate: "2026-08-28",
			OneShots: []qotd.OneShot{
				{RunAt: "2026-08-29T18:00:00+05:30"},
				{RunAt: "2026-08-30T09:30:00+05:30", QIdx: &qidx},
			},
		},
	}
	if err := st.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	g, ok := out["123456"]
	if !ok {
		t.Fatalf("guild missing after reload: %v", out)
	}
	if g.ChannelID != "-100987:42" || g.TimeHHMM != "21:00" || !g.Enabled {
		t.Fatalf("settings lost: %+v", g)
	}
	if g.CurrentIndex != 7 || len(g.Order) != 3 || g.Order[0] != 2 {
		t.Fatalf("cursor/order lost: %+v", g)
	}
	if g.LastPostDate != "2026-08-28" {
		t.Fatalf("last_post_date = %q", g.LastPostDate)
	}
	if len(g.OneShots) != 2 || g.OneShots[1].QIdx == nil || *g.OneShots[1].QIdx != 4 {
		t.Fatalf("one-shots lost: %+v", g.OneShots)
	}

	// No temp file left behind.
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file survived the rename: %v", err)
	}
}

func TestFileLoadMissingFile(t *testing.T) {
	t.Parallel()
	st, _ := newFileStore(t)

	out, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("got %v, want empty map", out)
	}
}

func TestFileLoadCorruptFile(t *testing.T) {
	t.Parallel()
	st, path := newFileStore(t)

	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	out, err := st.Load(context.Background())
	if err != nil {
		t.Fatalf("Load on corrupt file: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("got %v, want empty map", out)
	}
}

func TestFileSaveOverwrites(t *testing.T) {
	t.Parallel()
	st, _ := newFileStore(t)
	ctx := context.Background()

	if err := st.Save(ctx, map[string]*qotd.GuildSchedule{
		"a": {ChannelID: "1"},
		"b": {ChannelID: "2"},
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := st.Save(ctx, map[string]*qotd.GuildSchedule{
		"a": {ChannelID: "1"},
	}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	out, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("wholesale rewrite kept stale guilds: %v", out)
	}
}

func TestOpenDriverSelection(t *testing.T) {
	t.Parallel()

	if _, err := Open(Config{Driver: "file"}, logx.Nop()); err == nil {
		t.Error("file driver without path succeeded")
	}
	if _, err := Open(Config{Driver: "bogus"}, logx.Nop()); err == nil {
		t.Error("unknown driver succeeded")
	}
	st, err := Open(Config{Driver: "memory"}, logx.Nop())
	if err != nil {
		t.Fatalf("memory driver: %v", err)
	}
	_ = st.Close()
}

func TestMemoryStoreIsolation(t *testing.T) {
	t.Parallel()
	st := NewMemory()
	ctx := context.Background()

	in := map[string]*qotd.GuildSchedule{"g": {ChannelID: "5", Enabled: true}}
	if err := st.Save(ctx, in); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Mutating the caller's map must not leak into the store.
	in["g"].ChannelID = "changed"

	out, err := st.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if out["g"].ChannelID != "5" {
		t.Fatalf("store aliased caller state: %+v", out["g"])
	}
}
