package ringbuf

import (
	"testing"

	"regime-systemv1/internal/model"
)

func TestRing_PushPopOrder(t *testing.T) {
	r := New[int](8)
	for i := 1; i <= 5; i++ {
		if !r.Push(i) {
			t.Fatalf("Push(%d) failed on non-full buffer", i)
		}
	}
	if r.Len() != 5 {
		t.Fatalf("Len = %d, want 5", r.Len())
	}
	for i := 1; i <= 5; i++ {
		v, ok := r.Pop()
		if !ok || v != i {
			t.Fatalf("Pop = (%d, %v), want (%d, true)", v, ok, i)
		}
	}
	if _, ok := r.Pop(); ok {
		t.Error("Pop on empty buffer returned ok")
	}
}

func TestRing_OverflowCounted(t *testing.T) {
	r := New[model.Bar](2) // capacity rounds to 2
	b := model.Bar{Token: "QQQ", Exchange: "NASDAQ", Close: 10000}

	if !r.Push(b) || !r.Push(b) {
		t.Fatal("initial pushes failed")
	}
	if r.Push(b) {
		t.Error("Push on full buffer succeeded")
	}
	if r.Overflow() != 1 {
		t.Errorf("Overflow = %d, want 1", r.Overflow())
	}

	// Draining frees space again.
	if _, ok := r.Pop(); !ok {
		t.Fatal("Pop failed on non-empty buffer")
	}
	if !r.Push(b) {
		t.Error("Push failed after drain")
	}
}

func TestRing_CapacityRounding(t *testing.T) {
	cases := map[int]int{1: 2, 2: 2, 3: 4, 5: 8, 8: 8, 1000: 1024}
	for in, want := range cases {
		if got := New[int](in).Cap(); got != want {
			t.Errorf("New(%d).Cap() = %d, want %d", in, got, want)
		}
	}
}
