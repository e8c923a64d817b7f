package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"qotdbot/internal/qotd"
	logx "qotdbot/pkg/logx"
)

// Config configures storage.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Store is the persistence API the engine talks to.
type Store interface {
	Load(ctx context.Context) (map[string]*qotd.GuildSchedule, error)
	Save(ctx context.Context, guilds map[string]*qotd.GuildSchedule) error
	Close() error
}

// Open initializes the configured store. An empty driver means "file".
func Open(cfg Config, log logx.Logger) (Store, error) {
	if log.IsZero() {
		log = logx.Nop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	case "memory", "none":
		return NewMemory(), nil
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
