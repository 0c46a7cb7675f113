package syncx

import (
	"sync"
	"testing"
)

func TestGuardGetSet(t *testing.T) {
	g := NewGuard(10)

	if got := g.Get(); got != 10 {
		t.Errorf("Get() = %d, want 10", got)
	}

	g.Set(42)
	if got := g.Get(); got != 42 {
		t.Errorf("Get() after Set = %d, want 42", got)
	}
}

func TestGuardSwap(t *testing.T) {
	g := NewGuard("first")

	old := g.Swap("second")
	if old != "first" {
		t.Errorf("Swap() returned %q, want %q", old, "first")
	}
	if got := g.Get(); got != "second" {
		t.Errorf("Get() after Swap = %q, want %q", got, "second")
	}
}

func TestGuardNilPointerSlot(t *testing.T) {
	type snapshot struct{ n int }
	g := NewGuard[*snapshot](nil)

	if g.Get() != nil {
		t.Fatal("expected nil before first Set")
	}

	g.Set(&snapshot{n: 1})
	if got := g.Get(); got == nil || got.n != 1 {
		t.Errorf("Get() = %+v, want &{n:1}", got)
	}
}

func TestGuardConcurrentAccess(t *testing.T) {
	g := NewGuard(0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			g.Set(i)
		}()
		go func() {
			defer wg.Done()
			_ = g.Get()
		}()
	}
	wg.Wait()

	// Last-write-wins: final value must be one of the written values
	if got := g.Get(); got < 0 || got >= 50 {
		t.Errorf("Get() = %d, want a value in [0,50)", got)
	}
}
