package config

type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Logging   LoggingConfig   `json:"logging"`
	Scheduler SchedulerConfig `json:"scheduler"`
	QOTD      QOTDConfig      `json:"qotd"`
	Storage   StorageConfig   `json:"storage"`
	Notify    NotifyConfig    `json:"notify,omitempty"`
	Keepalive KeepaliveConfig `json:"keepalive,omitempty"`
}

type TelegramConfig struct {
	// Token may be left empty in the file; the QOTD_BOT_TOKEN environment
	// variable (optionally via .env) takes precedence either way.
	Token        string  `json:"token,omitempty"`
	OwnerUserIDs []int64 `json:"owner_user_ids"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}
type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}
type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ChatID     int64  `json:"chat_id,omitempty"`
	ThreadID   int    `json:"thread_id,omitempty"`
	MinLevel   string `json:"min_level,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

type SchedulerConfig struct {
	Workers int `json:"workers,omitempty"`
	// DefaultTimeout is a Go duration string. "0s" disables the global default.
	DefaultTimeout string `json:"default_timeout,omitempty"`
	HistorySize    int    `json:"history_size,omitempty"`
}

// QOTDConfig controls the scheduling engine itself.
type QOTDConfig struct {
	// Timezone is the reference timezone for all wall-clock comparisons.
	// Defaults to Asia/Kolkata.
	Timezone string `json:"timezone,omitempty"`
	// TickInterval is how often the engine scans guild schedules.
	// Defaults to "15s".
	TickInterval string `json:"tick_interval,omitempty"`
	// CompactAt is the "HH:MM" at which the nightly storage rewrite runs.
	// Defaults to "04:30".
	CompactAt string `json:"compact_at,omitempty"`
}

// StorageConfig selects the persistence driver.
//
// Example:
//
//	"storage": { "driver": "file", "path": "./qotd_data.json" }
type StorageConfig struct {
	Driver      string `json:"driver,omitempty"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}

type NotifyConfig struct {
	RatePerSec int `json:"rate_per_sec,omitempty"`
	// ThreadName is the answer-thread title created under each posted
	// question. Empty disables thread creation.
	ThreadName string `json:"thread_name,omitempty"`
}

type KeepaliveConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
}
