package indicator

import (
	"math"

	"regime-systemv1/internal/model"
	"regime-systemv1/internal/window"
)

// StdDev calculates the rolling sample standard deviation (n−1 denominator)
// of raw close prices over a fixed window. Paired with an SMA it forms the
// classic symmetric channel width (see Bollinger); it is independent of the
// regression residual measure.
type StdDev struct {
	period  int
	win     *window.Window
	current float64
}

// NewStdDev creates a rolling sample standard deviation over period bars.
func NewStdDev(period int) (*StdDev, error) {
	if period < 1 {
		return nil, ErrBadPeriod
	}
	return &StdDev{
		period: period,
		win:    window.MustNew(period),
	}, nil
}

func (s *StdDev) Name() string { return "STDDEV" }

func (s *StdDev) Update(bar model.Bar) {
	s.win.Push(model.Rupees(bar.Close))
	if !s.win.Full() {
		return
	}
	s.current = sampleStdDev(s.win)
}

func (s *StdDev) Value() float64 { return s.current }
func (s *StdDev) Ready() bool    { return s.win.Full() }

// Reset clears the window and derived value.
func (s *StdDev) Reset() {
	s.win.Reset()
	s.current = 0
}

// Snapshot serializes the state for checkpoint persistence.
func (s *StdDev) Snapshot() IndicatorSnapshot {
	return IndicatorSnapshot{
		Type:    "STDDEV",
		Period:  s.period,
		Buf:     s.win.Values(),
		Count:   s.win.Size(),
		Current: s.current,
	}
}

// RestoreFromSnapshot restores state from a checkpoint.
func (s *StdDev) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	if snap.Period < 1 {
		return ErrBadPeriod
	}
	s.period = snap.Period
	s.win = window.MustNew(snap.Period)
	s.win.Load(snap.Buf)
	s.current = snap.Current
	return nil
}

// sampleStdDev computes the sample (n−1) standard deviation of a full window.
// Returns 0 for n = 1 or when float noise drives the variance non-positive.
func sampleStdDev(w *window.Window) float64 {
	n := w.Size()
	if n < 2 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += w.At(i)
	}
	mean := sum / float64(n)

	var sq float64
	for i := 0; i < n; i++ {
		d := w.At(i) - mean
		sq += d * d
	}
	variance := sq / float64(n-1)
	if variance <= 0 {
		return 0
	}
	return math.Sqrt(variance)
}
