package window

import "testing"

func TestWindow_RejectsBadCapacity(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("New(0): expected error, got nil")
	}
	if _, err := New(-3); err == nil {
		t.Fatal("New(-3): expected error, got nil")
	}
}

func TestWindow_FillsInArrivalOrder(t *testing.T) {
	w := MustNew(3)
	if w.Full() {
		t.Error("empty window reports Full")
	}

	w.Push(1)
	w.Push(2)
	if w.Size() != 2 || w.Full() {
		t.Errorf("after 2 pushes: Size=%d Full=%v, want 2 false", w.Size(), w.Full())
	}

	w.Push(3)
	if !w.Full() {
		t.Error("after 3 pushes: expected Full")
	}
	for i, want := range []float64{1, 2, 3} {
		if got := w.At(i); got != want {
			t.Errorf("At(%d) = %v, want %v", i, got, want)
		}
	}
}

func TestWindow_EvictsOldest(t *testing.T) {
	// Push capacity+k values; contents must equal the last capacity pushed,
	// in arrival order.
	w := MustNew(4)
	for v := 1; v <= 10; v++ {
		w.Push(float64(v))
	}
	if w.Size() != 4 {
		t.Fatalf("Size = %d, want 4", w.Size())
	}
	for i, want := range []float64{7, 8, 9, 10} {
		if got := w.At(i); got != want {
			t.Errorf("At(%d) = %v, want %v", i, got, want)
		}
	}
}

func TestWindow_ResetAndReplay(t *testing.T) {
	w := MustNew(3)
	seq := []float64{5, 6, 7, 8}
	for _, v := range seq {
		w.Push(v)
	}
	first := w.Values()

	w.Reset()
	if w.Size() != 0 {
		t.Fatalf("after Reset: Size = %d, want 0", w.Size())
	}
	for _, v := range seq {
		w.Push(v)
	}
	second := w.Values()

	for i := range first {
		if first[i] != second[i] {
			t.Errorf("replay mismatch at %d: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestWindow_LoadTruncatesToCapacity(t *testing.T) {
	w := MustNew(2)
	w.Load([]float64{1, 2, 3, 4})
	if w.Size() != 2 {
		t.Fatalf("Size = %d, want 2", w.Size())
	}
	if w.At(0) != 3 || w.At(1) != 4 {
		t.Errorf("contents = [%v %v], want [3 4]", w.At(0), w.At(1))
	}
}
