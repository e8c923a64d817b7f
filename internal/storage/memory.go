package storage

import (
	"context"
	"encoding/json"
	"sync"

	"qotdbot/internal/qotd"
)

// memStore keeps the serialized document in memory. Used by the "memory"
// driver and by tests.
type memStore struct {
	mu  sync.Mutex
	doc []byte
}

// NewMemory returns a volatile store.
func NewMemory() Store { return &memStore{} }

func (s *memStore) Close() error { return nil }

func (s *memStore) Load(ctx context.Context) (map[string]*qotd.GuildSchedule, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return map[string]*qotd.GuildSchedule{}, nil
	}
	var doc document
	if err := json.Unmarshal(s.doc, &doc); err != nil {
		return map[string]*qotd.GuildSchedule{}, nil
	}
	if doc.Guilds == nil {
		doc.Guilds = map[string]*qotd.GuildSchedule{}
	}
	return doc.Guilds, nil
}

func (s *memStore) Save(ctx context.Context, guilds map[string]*qotd.GuildSchedule) error {
	_ = ctx
	b, err := json.Marshal(document{Guilds: guilds})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.doc = b
	s.mu.Unlock()
	return nil
}
