package indicator

import "regime-systemv1/internal/model"

// Bollinger pairs an SMA with the rolling sample standard deviation to form
// symmetric bands around a flat average: SMA ± mult × stddev. It is the
// classic alternative channel source to the regression channel.
type Bollinger struct {
	length int
	mult   float64

	sma *SMA
	std *StdDev
}

// NewBollinger creates Bollinger-style bands over length bars.
func NewBollinger(length int, mult float64) (*Bollinger, error) {
	sma, err := NewSMA(length)
	if err != nil {
		return nil, err
	}
	std, err := NewStdDev(length)
	if err != nil {
		return nil, err
	}
	return &Bollinger{length: length, mult: mult, sma: sma, std: std}, nil
}

func (b *Bollinger) Name() string { return "BOLL" }

func (b *Bollinger) Update(bar model.Bar) {
	b.sma.Update(bar)
	b.std.Update(bar)
}

// Value returns the middle band (the SMA).
func (b *Bollinger) Value() float64 { return b.sma.Value() }

func (b *Bollinger) Ready() bool {
	return b.sma.Ready() && b.std.Ready()
}

func (b *Bollinger) UpperBand() float64 {
	return b.sma.Value() + b.mult*b.std.Value()
}

func (b *Bollinger) LowerBand() float64 {
	return b.sma.Value() - b.mult*b.std.Value()
}

// Reset clears both sub-indicators.
func (b *Bollinger) Reset() {
	b.sma.Reset()
	b.std.Reset()
}

// Snapshot serializes both sub-indicator states.
func (b *Bollinger) Snapshot() IndicatorSnapshot {
	smaSnap := b.sma.Snapshot()
	stdSnap := b.std.Snapshot()
	return IndicatorSnapshot{
		Type:   "BOLL",
		Period: b.length,
		Mult:   b.mult,
		Sub:    []IndicatorSnapshot{smaSnap, stdSnap},
	}
}

// RestoreFromSnapshot restores both sub-indicator states.
func (b *Bollinger) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	if snap.Period < 1 {
		return ErrBadPeriod
	}
	b.length = snap.Period
	b.mult = snap.Mult
	sma, err := NewSMA(snap.Period)
	if err != nil {
		return err
	}
	std, err := NewStdDev(snap.Period)
	if err != nil {
		return err
	}
	b.sma, b.std = sma, std
	if len(snap.Sub) == 2 {
		if err := b.sma.RestoreFromSnapshot(snap.Sub[0]); err != nil {
			return err
		}
		if err := b.std.RestoreFromSnapshot(snap.Sub[1]); err != nil {
			return err
		}
	}
	return nil
}
