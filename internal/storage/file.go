package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"qotdbot/internal/qotd"
	logx "qotdbot/pkg/logx"
)

// document is the on-disk layout.
type document struct {
	Guilds map[string]*qotd.GuildSchedule `json:"guilds"`
}

type fileStore struct {
	log  logx.Logger
	path string

	mu sync.Mutex
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("storage.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &fileStore{log: log, path: path}, nil
}

func (s *fileStore) Close() error { return nil }

// Load reads the document. A missing or unreadable file yields an empty
// store: schedules are operational convenience state, and starting clean is
// degraded service rather than data loss.
func (s *fileStore) Load(ctx context.Context) (map[string]*qotd.GuildSchedule, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn("schedule file unreadable, starting empty", logx.String("path", s.path), logx.Err(err))
		}
		return map[string]*qotd.GuildSchedule{}, nil
	}

	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		s.log.Warn("schedule file corrupt, starting empty", logx.String("path", s.path), logx.Err(err))
		return map[string]*qotd.GuildSchedule{}, nil
	}
	if doc.Guilds == nil {
		doc.Guilds = map[string]*qotd.GuildSchedule{}
	}
	return doc.Guilds, nil
}

// Save rewrites the whole document atomically: marshal, write a sibling temp
// file, fsync-free rename over the target. Either the old or the new
// document is observed, never a torn mix.
func (s *fileStore) Save(ctx context.Context, guilds map[string]*qotd.GuildSchedule) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := json.MarshalIndent(document{Guilds: guilds}, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
