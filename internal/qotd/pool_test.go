package qotd

import "testing"

func TestNewPoolSkipsBlanks(t *testing.T) {
	t.Parallel()
	p, err := NewPool([]string{"  A  ", "", "B", "   ", "C"})
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	if p.Size() != 3 {
		t.Fatalf("size = %d, want 3", p.Size())
	}
	if got := p.Get(0); got != "A" {
		t.Fatalf("Get(0) = %q, want trimmed A", got)
	}
}

func TestNewPoolRejectsEmpty(t *testing.T) {
	t.Parallel()
	if _, err := NewPool(nil); err == nil {
		t.Fatal("expected error for empty pool")
	}
	if _, err := NewPool([]string{"", "  "}); err == nil {
		t.Fatal("expected error for all-blank pool")
	}
}

func TestDefaultPoolEmbedded(t *testing.T) {
	t.Parallel()
	p, err := DefaultPool()
	if err != nil {
		t.Fatalf("DefaultPool: %v", err)
	}
	if p.Size() != 250 {
		t.Fatalf("embedded bank size = %d, want 250", p.Size())
	}
}

func TestPoolGetWraps(t *testing.T) {
	t.Parallel()
	p := testPool(t, "A", "B", "C")
	if got := p.Get(3); got != "A" {
		t.Errorf("Get(3) = %q, want A", got)
	}
	if got := p.Get(-1); got != "C" {
		t.Errorf("Get(-1) = %q, want C", got)
	}
}
