package indicator

import (
	"math"

	"regime-systemv1/internal/model"
	"regime-systemv1/internal/window"
)

// RegressionFit holds the result of one least-squares solve over the window.
// Center is the regression value evaluated at the most recent bar (x = n−1),
// so Center == Slope*(n−1) + Intercept. ResidualStdDev is the sample (n−1)
// standard deviation of (actual − predicted) across the window.
type RegressionFit struct {
	Slope          float64
	Intercept      float64
	Center         float64
	ResidualStdDev float64
}

// LinRegChannel computes a rolling linear regression line over the lookback
// window with upper and lower bands derived from the standard deviation of
// the residuals. The window entries are treated as points (i, price_i) for
// i = 0..n−1 with index 0 = oldest. The fit is recomputed in full on every
// bar; the window is small and bounded so the O(n) pass is deliberate.
//
// Unlike Bollinger bands (moving average ± price stddev), the bands follow a
// sloped line, making them adaptive to trend direction.
type LinRegChannel struct {
	count     int
	upperMult float64
	lowerMult float64

	win   *window.Window
	fit   RegressionFit
	upper float64
	lower float64
	ready bool
}

// NewLinRegChannel creates a regression channel over count bars with the
// given band multipliers. count must be >= 1.
func NewLinRegChannel(count int, upperMult, lowerMult float64) (*LinRegChannel, error) {
	if count < 1 {
		return nil, ErrBadPeriod
	}
	return &LinRegChannel{
		count:     count,
		upperMult: upperMult,
		lowerMult: lowerMult,
		win:       window.MustNew(count),
	}, nil
}

func (l *LinRegChannel) Name() string { return "LINREG" }

func (l *LinRegChannel) Update(bar model.Bar) {
	l.win.Push(model.Rupees(bar.Close))
	if !l.win.Full() {
		l.ready = false
		return
	}
	l.recompute()
}

func (l *LinRegChannel) recompute() {
	n := l.win.Size()
	nf := float64(n)

	// x values are bar indices 0..n−1; the x sums have closed forms.
	sumX := nf * (nf - 1) / 2
	sumX2 := (nf - 1) * nf * (2*nf - 1) / 6

	var sumY, sumXY float64
	for i := 0; i < n; i++ {
		y := l.win.At(i)
		sumY += y
		sumXY += float64(i) * y
	}

	// Degenerate only when n <= 1; with integer index spacing the denominator
	// cannot vanish for n >= 2, so this guards float misuse, not real data.
	denom := nf*sumX2 - sumX*sumX
	if denom == 0 {
		l.ready = false
		return
	}

	slope := (nf*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / nf
	center := slope*(nf-1) + intercept

	// Sample standard deviation of residuals (actual − predicted).
	var residSum float64
	for i := 0; i < n; i++ {
		residSum += l.win.At(i) - (slope*float64(i) + intercept)
	}
	meanResid := residSum / nf

	var residSq float64
	for i := 0; i < n; i++ {
		r := l.win.At(i) - (slope*float64(i) + intercept)
		d := r - meanResid
		residSq += d * d
	}
	variance := 0.0
	if n > 1 {
		variance = residSq / float64(n-1)
	}
	stddev := 0.0
	if variance > 0 {
		stddev = math.Sqrt(variance)
	}

	l.fit = RegressionFit{
		Slope:          slope,
		Intercept:      intercept,
		Center:         center,
		ResidualStdDev: stddev,
	}
	l.upper = center + l.upperMult*stddev
	l.lower = center - l.lowerMult*stddev
	l.ready = true
}

// Value returns the center line (regression value at the current bar).
func (l *LinRegChannel) Value() float64 { return l.fit.Center }

func (l *LinRegChannel) Ready() bool { return l.ready }

// UpperBand returns center + upperMult × residual stddev.
func (l *LinRegChannel) UpperBand() float64 { return l.upper }

// LowerBand returns center − lowerMult × residual stddev.
func (l *LinRegChannel) LowerBand() float64 { return l.lower }

// Fit returns the full regression fit of the latest update.
func (l *LinRegChannel) Fit() RegressionFit { return l.fit }

// Reset clears the window and all derived fields.
func (l *LinRegChannel) Reset() {
	l.win.Reset()
	l.fit = RegressionFit{}
	l.upper = 0
	l.lower = 0
	l.ready = false
}

// Snapshot serializes the channel state for checkpoint persistence.
func (l *LinRegChannel) Snapshot() IndicatorSnapshot {
	return IndicatorSnapshot{
		Type:      "LINREG",
		Period:    l.count,
		UpperMult: l.upperMult,
		LowerMult: l.lowerMult,
		Buf:       l.win.Values(),
		Count:     l.win.Size(),
	}
}

// RestoreFromSnapshot restores channel state from a checkpoint. Derived
// fields are recomputed from the restored window rather than trusted.
func (l *LinRegChannel) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	if snap.Period < 1 {
		return ErrBadPeriod
	}
	l.count = snap.Period
	l.upperMult = snap.UpperMult
	l.lowerMult = snap.LowerMult
	l.win = window.MustNew(snap.Period)
	l.win.Load(snap.Buf)
	l.fit = RegressionFit{}
	l.upper, l.lower = 0, 0
	l.ready = false
	if l.win.Full() {
		l.recompute()
	}
	return nil
}
