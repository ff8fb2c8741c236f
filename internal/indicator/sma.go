package indicator

import (
	"regime-systemv1/internal/model"
	"regime-systemv1/internal/window"
)

// SMA calculates Simple Moving Average over a rolling window.
// Maintains a running sum for an O(1) hot path.
type SMA struct {
	period  int
	win     *window.Window
	sum     float64
	current float64
}

// NewSMA creates a new SMA indicator with the given period.
func NewSMA(period int) (*SMA, error) {
	if period < 1 {
		return nil, ErrBadPeriod
	}
	return &SMA{
		period: period,
		win:    window.MustNew(period),
	}, nil
}

func (s *SMA) Name() string { return "SMA" }

func (s *SMA) Update(bar model.Bar) {
	price := model.Rupees(bar.Close)

	if s.win.Full() {
		// Subtract the oldest value being evicted
		s.sum -= s.win.At(0)
	}
	s.win.Push(price)
	s.sum += price

	if s.win.Full() {
		s.current = s.sum / float64(s.period)
	}
}

func (s *SMA) Value() float64 { return s.current }
func (s *SMA) Ready() bool    { return s.win.Full() }

// Reset clears the SMA state for reuse.
func (s *SMA) Reset() {
	s.win.Reset()
	s.sum = 0
	s.current = 0
}

// Snapshot serializes the SMA state for checkpoint persistence.
func (s *SMA) Snapshot() IndicatorSnapshot {
	return IndicatorSnapshot{
		Type:    "SMA",
		Period:  s.period,
		Buf:     s.win.Values(),
		Count:   s.win.Size(),
		Sum:     s.sum,
		Current: s.current,
	}
}

// RestoreFromSnapshot restores SMA state from a checkpoint.
func (s *SMA) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	if snap.Period < 1 {
		return ErrBadPeriod
	}
	s.period = snap.Period
	s.win = window.MustNew(snap.Period)
	s.win.Load(snap.Buf)
	s.sum = snap.Sum
	s.current = snap.Current
	return nil
}
