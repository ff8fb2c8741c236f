package indicator

import (
	"errors"
	"math"

	"regime-systemv1/internal/model"
	"regime-systemv1/internal/window"
)

// NoiseMode selects how trend-quality noise is aggregated over its window.
type NoiseMode string

const (
	// NoiseLinear averages absolute deviations (mean absolute deviation).
	NoiseLinear NoiseMode = "LINEAR"
	// NoiseSquared takes the root mean square of deviations.
	NoiseSquared NoiseMode = "SQUARED"
)

// ErrBadNoiseMode is returned for a noise mode other than LINEAR or SQUARED.
var ErrBadNoiseMode = errors.New("indicator: noise mode must be LINEAR or SQUARED")

// TrendQuality measures trend strength by comparing smoothed cumulative price
// change to measured noise: TQ = smoothed_trend / noise.
//
// A fast/slow EMA pair defines the current regime. Whenever the regime sign
// flips (EMA crossover) the cumulative price change and smoothed trend reset
// to zero, so trend strength is measured only within the current regime's
// lifetime. High positive values = strong clean uptrend, high negative =
// strong clean downtrend, near zero = choppy market.
//
// Warm-up is max(fastLength, slowLength) + noiseLength bars: the noise window
// only starts filling once both EMAs are warm.
type TrendQuality struct {
	fast       *EMA
	slow       *EMA
	smf        float64 // smoothing factor 2/(1+trendLength)
	noiseLen   int
	correction float64
	mode       NoiseMode

	cpc         float64 // cumulative price change within the current regime
	trend       float64 // exponentially smoothed cpc
	prevClose   float64
	hasClose    bool
	prevSign    int
	hasSign     bool
	diffHistory *window.Window // |cpc − trend| per bar
	value       float64
	ready       bool
}

// NewTrendQuality creates a trend-quality indicator.
// fastLength/slowLength are the regime EMA periods, trendLength the smoothing
// length for the cumulative price change, noiseLength the noise lookback, and
// correction a multiplier applied to the aggregated noise.
func NewTrendQuality(fastLength, slowLength, trendLength, noiseLength int, correction float64, mode NoiseMode) (*TrendQuality, error) {
	if trendLength < 1 || noiseLength < 1 {
		return nil, ErrBadPeriod
	}
	if mode != NoiseLinear && mode != NoiseSquared {
		return nil, ErrBadNoiseMode
	}
	fast, err := NewEMA(fastLength)
	if err != nil {
		return nil, err
	}
	slow, err := NewEMA(slowLength)
	if err != nil {
		return nil, err
	}
	return &TrendQuality{
		fast:        fast,
		slow:        slow,
		smf:         2.0 / (1.0 + float64(trendLength)),
		noiseLen:    noiseLength,
		correction:  correction,
		mode:        mode,
		diffHistory: window.MustNew(noiseLength),
	}, nil
}

func (t *TrendQuality) Name() string { return "TQ" }

func (t *TrendQuality) Update(bar model.Bar) {
	close := model.Rupees(bar.Close)

	t.fast.UpdateValue(close)
	t.slow.UpdateValue(close)

	// Both EMAs must be warm before regime detection starts. Note the regime
	// sign is intentionally not recorded during warm-up, which forces a
	// cpc/trend reset on the first qualifying bar.
	if !t.fast.Ready() || !t.slow.Ready() {
		t.prevClose = close
		t.hasClose = true
		return
	}

	// Regime sign: +1 bullish (fast > slow), −1 bearish, 0 equal.
	sign := 0
	switch {
	case t.fast.Value() > t.slow.Value():
		sign = 1
	case t.fast.Value() < t.slow.Value():
		sign = -1
	}

	if t.hasClose {
		if !t.hasSign || t.prevSign != sign {
			// Hysteresis reset: discard trend memory across every crossover.
			t.cpc = 0
			t.trend = 0
		} else {
			t.cpc += close - t.prevClose
			t.trend = t.trend*(1-t.smf) + t.cpc*t.smf
		}
	}

	t.diffHistory.Push(math.Abs(t.cpc - t.trend))

	if t.diffHistory.Full() {
		noise := t.noise()
		if noise == 0 {
			// Zero noise is a legitimate degenerate market state, not an error.
			t.value = 0
		} else {
			t.value = t.trend / noise
		}
		t.ready = true
	}

	t.prevClose = close
	t.hasClose = true
	t.prevSign = sign
	t.hasSign = true
}

// noise aggregates the deviation window per the configured mode, scaled by
// the correction factor. Only called with a full window.
func (t *TrendQuality) noise() float64 {
	n := t.diffHistory.Size()
	switch t.mode {
	case NoiseSquared:
		var sq float64
		for i := 0; i < n; i++ {
			d := t.diffHistory.At(i)
			sq += d * d
		}
		return t.correction * math.Sqrt(sq/float64(n))
	default: // NoiseLinear, validated at construction
		var sum float64
		for i := 0; i < n; i++ {
			sum += t.diffHistory.At(i)
		}
		return t.correction * sum / float64(n)
	}
}

func (t *TrendQuality) Value() float64 { return t.value }
func (t *TrendQuality) Ready() bool    { return t.ready }

// RegimeSign returns the current regime direction: +1 bullish, −1 bearish,
// 0 neutral or not yet warm.
func (t *TrendQuality) RegimeSign() int {
	if !t.hasSign {
		return 0
	}
	return t.prevSign
}

// Reset clears all state including the sub-EMAs.
func (t *TrendQuality) Reset() {
	t.fast.Reset()
	t.slow.Reset()
	t.cpc = 0
	t.trend = 0
	t.prevClose = 0
	t.hasClose = false
	t.prevSign = 0
	t.hasSign = false
	t.diffHistory.Reset()
	t.value = 0
	t.ready = false
}

// Snapshot serializes the full state including sub-EMAs for checkpointing.
func (t *TrendQuality) Snapshot() IndicatorSnapshot {
	return IndicatorSnapshot{
		Type:       "TQ",
		Period:     t.noiseLen,
		Smf:        t.smf,
		Correction: t.correction,
		NoiseMode:  string(t.mode),
		Cpc:        t.cpc,
		Trend:      t.trend,
		PrevClose:  t.prevClose,
		HasClose:   t.hasClose,
		PrevSign:   t.prevSign,
		HasSign:    t.hasSign,
		Buf:        t.diffHistory.Values(),
		Current:    t.value,
		Ready:      t.ready,
		Sub:        []IndicatorSnapshot{t.fast.Snapshot(), t.slow.Snapshot()},
	}
}

// RestoreFromSnapshot restores state from a checkpoint.
func (t *TrendQuality) RestoreFromSnapshot(snap IndicatorSnapshot) error {
	if snap.Period < 1 {
		return ErrBadPeriod
	}
	mode := NoiseMode(snap.NoiseMode)
	if mode != NoiseLinear && mode != NoiseSquared {
		return ErrBadNoiseMode
	}
	if len(snap.Sub) != 2 {
		return errors.New("indicator: TQ snapshot missing EMA states")
	}
	fast := &EMA{}
	if err := fast.RestoreFromSnapshot(snap.Sub[0]); err != nil {
		return err
	}
	slow := &EMA{}
	if err := slow.RestoreFromSnapshot(snap.Sub[1]); err != nil {
		return err
	}

	t.fast = fast
	t.slow = slow
	t.smf = snap.Smf
	t.noiseLen = snap.Period
	t.correction = snap.Correction
	t.mode = mode
	t.cpc = snap.Cpc
	t.trend = snap.Trend
	t.prevClose = snap.PrevClose
	t.hasClose = snap.HasClose
	t.prevSign = snap.PrevSign
	t.hasSign = snap.HasSign
	t.diffHistory = window.MustNew(snap.Period)
	t.diffHistory.Load(snap.Buf)
	t.value = snap.Current
	t.ready = snap.Ready
	return nil
}
