package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{
		"telegram": {"owner_user_ids": [111, 222], "poll_timeout": "15s"},
		"logging": {"level": "debug", "console": true, "file": {"enabled": false, "path": ""}, "telegram": {"enabled": false}},
		"scheduler": {"workers": 2},
		"qotd": {"timezone": "Asia/Kolkata", "tick_interval": "15s"},
		"storage": {"driver": "file", "path": "./qotd_data.json"}
	}`)

	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.Telegram.OwnerUserIDs) != 2 || cfg.Telegram.OwnerUserIDs[1] != 222 {
		t.Fatalf("owners = %v", cfg.Telegram.OwnerUserIDs)
	}
	if cfg.QOTD.TickInterval != "15s" || cfg.Storage.Driver != "file" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get returned a different snapshot than Load")
	}
}

func TestParseYAML(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.yaml", `
telegram:
  owner_user_ids: [333]
logging:
  level: info
  console: true
  file:
    enabled: true
    path: ./bot.log
  telegram:
    enabled: false
scheduler: {}
qotd:
  compact_at: "04:30"
storage:
  driver: memory
  path: ""
`)

	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Logging.File.Enabled || cfg.Logging.File.Path != "./bot.log" {
		t.Fatalf("logging.file = %+v", cfg.Logging.File)
	}
	if cfg.QOTD.CompactAt != "04:30" {
		t.Fatalf("compact_at = %q", cfg.QOTD.CompactAt)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"qotd": {"tick_secs": 15}}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("unknown field accepted")
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{"qotd": {}}{"extra": true}`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("trailing JSON accepted")
	}
}

func TestHashConfigDetectsChange(t *testing.T) {
	t.Parallel()
	a := &Config{QOTD: QOTDConfig{TickInterval: "15s"}}
	b := &Config{QOTD: QOTDConfig{TickInterval: "30s"}}
	if hashConfig(a) == hashConfig(b) {
		t.Fatal("different configs hash equal")
	}
	if hashConfig(a) != hashConfig(&Config{QOTD: QOTDConfig{TickInterval: "15s"}}) {
		t.Fatal("equal configs hash different")
	}
}

func TestSubscribeDropsOldestWhenFull(t *testing.T) {
	t.Parallel()
	path := writeConfig(t, "config.json", `{}`)
	m := NewManager(path)

	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	m.publish(&Config{QOTD: QOTDConfig{TickInterval: "10s"}})
	m.publish(&Config{QOTD: QOTDConfig{TickInterval: "20s"}})

	got := <-ch
	if got.QOTD.TickInterval != "20s" {
		t.Fatalf("got %q, want newest config", got.QOTD.TickInterval)
	}
	select {
	case extra := <-ch:
		t.Fatalf("unexpected second delivery: %+v", extra)
	default:
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	cases := []struct {
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{"", 0, false},
		{"15s", 15 * time.Second, false},
		{" 2m ", 2 * time.Minute, false},
		{"-5s", 0, true},
		{"fifteen", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseDurationField("test.field", tc.raw)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseDurationField(%q) accepted", tc.raw)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseDurationField(%q) = %v, %v; want %v", tc.raw, got, err, tc.want)
		}
	}

	if d, err := ParseDurationOrDefault("test.field", "", 15*time.Second); err != nil || d != 15*time.Second {
		t.Errorf("ParseDurationOrDefault empty = %v, %v", d, err)
	}
	if d, err := ParseDurationOrDefault("test.field", "1m", 15*time.Second); err != nil || d != time.Minute {
		t.Errorf("ParseDurationOrDefault 1m = %v, %v", d, err)
	}
}
