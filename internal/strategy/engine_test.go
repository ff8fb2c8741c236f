package strategy

import (
	"context"
	"testing"
	"time"

	"regime-systemv1/internal/model"
)

// echoStrategy emits one BUY signal per bar.
type echoStrategy struct{ name string }

func (s *echoStrategy) Name() string { return s.name }

func (s *echoStrategy) OnBar(bar model.Bar) []Signal {
	return []Signal{{
		StrategyName: s.name,
		Action:       ActionBuy,
		Token:        bar.Token,
		Exchange:     bar.Exchange,
		Qty:          1,
		Price:        bar.Close,
		TS:           bar.TS,
	}}
}

func TestEngine_RoutesBarsToAllStrategies(t *testing.T) {
	e := NewEngine(16)
	e.Register(&echoStrategy{name: "a"})
	e.Register(&echoStrategy{name: "b"})

	barCh := make(chan model.Bar, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		e.Run(ctx, barCh)
		close(done)
	}()

	barCh <- priceBar(10000)
	barCh <- priceBar(10100)
	close(barCh)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after bar channel close")
	}

	if got := len(e.Signals()); got != 4 {
		t.Errorf("got %d signals, want 4 (2 bars x 2 strategies)", got)
	}
}

func TestEngine_FullSignalChannel_Drops(t *testing.T) {
	e := NewEngine(1)
	e.Register(&echoStrategy{name: "a"})

	barCh := make(chan model.Bar, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		e.Run(ctx, barCh)
		close(done)
	}()

	for i := 0; i < 5; i++ {
		barCh <- priceBar(10000)
	}
	close(barCh)
	<-done

	// Buffer of 1, nobody draining: later signals are dropped, not blocked on.
	if got := len(e.Signals()); got != 1 {
		t.Errorf("got %d queued signals, want 1", got)
	}
}
