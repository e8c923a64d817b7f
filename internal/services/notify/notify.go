package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/time/rate"

	"qotdbot/internal/kit"
)

type Config struct {
	RatePerSec int
	// ThreadName, when set, is the title of the answer thread opened under
	// each posted question.
	ThreadName string
}

// Service turns the engine's "deliver this text to this channel" calls into
// formatted chat messages. It owns rate limiting so bursts of due one-shots
// don't trip the transport's flood control; it never retries.
type Service struct {
	adapter kit.Adapter
	log     *slog.Logger

	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter
}

func New(cfg Config, adapter kit.Adapter, log *slog.Logger) *Service {
	s := &Service{adapter: adapter, log: log}
	s.Apply(cfg)
	return s
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	s.cfg = cfg
	s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// Deliver posts a question to the channel. The channel is the opaque string
// stored per guild: a chat ID, optionally ":threadID" suffixed.
func (s *Service) Deliver(ctx context.Context, channelID string, text string) error {
	to, err := ParseChannel(channelID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	lim := s.limiter
	threadName := s.cfg.ThreadName
	s.mu.Unlock()

	if err := lim.Wait(ctx); err != nil {
		return err
	}

	body := "🗓️ Question of the Day\n\n" + text
	ref, err := s.adapter.SendText(ctx, to, body, &kit.SendOptions{DisablePreview: true})
	if err != nil {
		return err
	}

	// Answer thread is a nicety; the post already succeeded.
	if threadName != "" {
		if err := s.adapter.CreateAnswerThread(ctx, ref, threadName); err != nil {
			s.log.Debug("answer thread creation failed",
				slog.Int64("chat_id", to.ChatID), slog.Any("err", err))
		}
	}
	return nil
}

// ParseChannel parses the stored channel string ("<chatID>" or
// "<chatID>:<threadID>") into a chat target.
func ParseChannel(channelID string) (kit.ChatTarget, error) {
	raw := strings.TrimSpace(channelID)
	threadPart := ""
	if i := strings.IndexByte(raw, ':'); i >= 0 {
		raw, threadPart = raw[:i], raw[i+1:]
	}
	chatID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return kit.ChatTarget{}, fmt.Errorf("invalid channel %q: %w", channelID, err)
	}
	to := kit.ChatTarget{ChatID: chatID}
	if threadPart != "" {
		tid, err := strconv.Atoi(threadPart)
		if err != nil {
			return kit.ChatTarget{}, fmt.Errorf("invalid channel thread %q: %w", channelID, err)
		}
		to.ThreadID = tid
	}
	return to, nil
}
