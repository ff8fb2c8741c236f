package replay

import (
	"context"
	"testing"
	"time"

	"regime-systemv1/internal/model"
)

type memReader struct {
	bars []model.Bar
}

func (m *memReader) ReadBars(exchange, token string, tf int, afterTS int64) ([]model.Bar, error) {
	var out []model.Bar
	for _, b := range m.bars {
		if b.Exchange == exchange && b.Token == token && b.TF == tf && b.TS.Unix() > afterTS {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memReader) ReadAllBars(tf int, afterTS int64) ([]model.Bar, error) {
	var out []model.Bar
	for _, b := range m.bars {
		if b.TF == tf && b.TS.Unix() > afterTS {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memReader) Close() error { return nil }

func bar(ts int64, closePaise int64) model.Bar {
	return model.Bar{
		Token:    "99926000",
		Exchange: "NSE",
		TF:       60,
		TS:       time.Unix(ts, 0).UTC(),
		Close:    closePaise,
	}
}

func TestReplayEmitsInTimeOrder(t *testing.T) {
	// Stored out of order; replay must sort.
	src := &memReader{bars: []model.Bar{
		bar(1700000120, 3),
		bar(1700000000, 1),
		bar(1700000060, 2),
	}}

	out := make(chan model.Bar, 8)
	r := New(src)
	if err := r.Run(context.Background(), 60, 0, 0, out); err != nil {
		t.Fatalf("run: %v", err)
	}
	close(out)

	var closes []int64
	for b := range out {
		closes = append(closes, b.Close)
	}
	if len(closes) != 3 {
		t.Fatalf("expected 3 bars, got %d", len(closes))
	}
	for i, want := range []int64{1, 2, 3} {
		if closes[i] != want {
			t.Errorf("bar %d: expected close %d, got %d", i, want, closes[i])
		}
	}
}

func TestReplayHonorsFromTS(t *testing.T) {
	src := &memReader{bars: []model.Bar{
		bar(1700000000, 1),
		bar(1700000060, 2),
	}}

	out := make(chan model.Bar, 8)
	r := New(src)
	if err := r.Run(context.Background(), 60, 1700000000, 0, out); err != nil {
		t.Fatalf("run: %v", err)
	}
	close(out)

	var got []model.Bar
	for b := range out {
		got = append(got, b)
	}
	if len(got) != 1 || got[0].Close != 2 {
		t.Fatalf("expected only the later bar, got %v", got)
	}
}

func TestReplayEmptyStore(t *testing.T) {
	out := make(chan model.Bar, 1)
	r := New(&memReader{})
	if err := r.Run(context.Background(), 60, 0, 0, out); err != nil {
		t.Fatalf("run on empty store: %v", err)
	}
	if len(out) != 0 {
		t.Fatal("expected no bars emitted")
	}
}

func TestReplayCancelled(t *testing.T) {
	src := &memReader{bars: []model.Bar{
		bar(1700000000, 1),
		bar(1700000060, 2),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := make(chan model.Bar) // unbuffered, nothing draining
	r := New(src)
	if err := r.Run(ctx, 60, 0, 0, out); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
