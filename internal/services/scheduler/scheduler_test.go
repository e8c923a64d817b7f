package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return New(Config{Workers: 1, HistorySize: 8}, slog.New(slog.DiscardHandler))
}

func waitForRun(t *testing.T, ran <-chan struct{}) {
	t.Helper()
	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job never ran")
	}
}

func TestRegisterBeforeStart(t *testing.T) {
	t.Parallel()
	s := newTestService(t)

	ran := make(chan struct{}, 1)
	id, err := s.AddInterval("tick", 10*time.Millisecond, time.Second, func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("AddInterval before Start: %v", err)
	}
	if id == "" {
		t.Fatal("empty job id")
	}
	if _, err := s.AddDaily("compact", "04:30", time.Minute, func(ctx context.Context) error { return nil }); err != nil {
		t.Fatalf("AddDaily before Start: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop(ctx)

	waitForRun(t, ran)
}

func TestRegisterAfterStart(t *testing.T) {
	t.Parallel()
	s := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop(ctx)

	ran := make(chan struct{}, 1)
	if _, err := s.AddInterval("tick", 10*time.Millisecond, time.Second, func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}); err != nil {
		t.Fatalf("AddInterval after Start: %v", err)
	}

	waitForRun(t, ran)
}

func TestFailedRunIsRecorded(t *testing.T) {
	t.Parallel()
	s := newTestService(t)

	ran := make(chan struct{}, 1)
	if _, err := s.AddInterval("broken", 10*time.Millisecond, time.Second, func(ctx context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return errors.New("boom")
	}); err != nil {
		t.Fatalf("AddInterval: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.Start(ctx)
	defer s.Stop(ctx)

	waitForRun(t, ran)

	deadline := time.Now().Add(3 * time.Second)
	for {
		hist := s.History()
		if len(hist) > 0 {
			if hist[0].Error != "boom" {
				t.Fatalf("history error = %q, want boom", hist[0].Error)
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("run never reached history")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAddRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	s := newTestService(t)

	if _, err := s.AddCron("bad", "not a cron spec", 0, func(ctx context.Context) error { return nil }); err == nil {
		t.Error("invalid cron spec accepted")
	}
	if _, err := s.AddInterval("bad", 0, 0, func(ctx context.Context) error { return nil }); err == nil {
		t.Error("zero interval accepted")
	}
	if _, err := s.AddDaily("bad", "25:00", 0, func(ctx context.Context) error { return nil }); err == nil {
		t.Error("invalid daily time accepted")
	}
}

func TestParseHHMM(t *testing.T) {
	t.Parallel()
	valid := []struct {
		in   string
		h, m int
	}{
		{"00:00", 0, 0},
		{"04:30", 4, 30},
		{"4:30", 4, 30},
		{"23:59", 23, 59},
	}
	for _, tc := range valid {
		h, m, err := parseHHMM(tc.in)
		if err != nil {
			t.Errorf("parseHHMM(%q) failed: %v", tc.in, err)
			continue
		}
		if h != tc.h || m != tc.m {
			t.Errorf("parseHHMM(%q) = %d:%d, want %d:%d", tc.in, h, m, tc.h, tc.m)
		}
	}

	for _, in := range []string{"", "0430", "24:00", "10:60", "x:y", "1:2:3"} {
		if _, _, err := parseHHMM(in); err == nil {
			t.Errorf("parseHHMM(%q) accepted invalid input", in)
		}
	}
}
