package indicator

import (
	"math"
	"testing"
)

func mustTQ(t *testing.T, fast, slow, trendLen, noiseLen int, correction float64, mode NoiseMode) *TrendQuality {
	t.Helper()
	tq, err := NewTrendQuality(fast, slow, trendLen, noiseLen, correction, mode)
	if err != nil {
		t.Fatal(err)
	}
	return tq
}

func TestTrendQuality_RejectsBadConfig(t *testing.T) {
	if _, err := NewTrendQuality(7, 15, 0, 250, 2.0, NoiseLinear); err == nil {
		t.Error("trendLength 0 should fail")
	}
	if _, err := NewTrendQuality(7, 15, 4, 0, 2.0, NoiseLinear); err == nil {
		t.Error("noiseLength 0 should fail")
	}
	if _, err := NewTrendQuality(0, 15, 4, 250, 2.0, NoiseLinear); err == nil {
		t.Error("fast length 0 should fail")
	}
	if _, err := NewTrendQuality(7, 15, 4, 250, 2.0, "CUBIC"); err == nil {
		t.Error("unknown noise mode should fail")
	}
}

func TestTrendQuality_WarmUpLength(t *testing.T) {
	// Deviation history starts filling at bar max(fast, slow), one entry per
	// bar, so readiness lands at bar max(fast, slow) + noiseLength − 1.
	fast, slow, noiseLen := 3, 5, 4
	tq := mustTQ(t, fast, slow, 2, noiseLen, 2.0, NoiseLinear)

	readyAt := slow + noiseLen - 1
	for i := 1; i <= readyAt+2; i++ {
		tq.Update(bar(int64(10000 + i*37%150)))
		wantReady := i >= readyAt
		if tq.Ready() != wantReady {
			t.Errorf("bar %d: Ready()=%v, want %v", i, tq.Ready(), wantReady)
		}
	}
}

func TestTrendQuality_HandTraced(t *testing.T) {
	// fast=1 (EMA(1) tracks close exactly), slow=2, trendLength=3 (smf=0.5),
	// noiseLength=2, correction=1, LINEAR.
	//
	// Prices (rupees): 100, 101, 103, 106, 95
	//
	// Bar 1 (100): slow EMA not warm. prevClose=100.
	// Bar 2 (101): slow seed=(100+101)/2=100.5, fast=101 → sign +1.
	//   No prior sign → reset cpc=0, trend=0. Push |0−0|=0.
	// Bar 3 (103): slow=103*(2/3)+100.5*(1/3)=102.1667, fast=103 → sign +1.
	//   cpc=103−101=2, trend=0*0.5+2*0.5=1. Push |2−1|=1.
	//   Window full: noise=(0+1)/2=0.5 → value=1/0.5=2.0.
	// Bar 4 (106): slow=104.7222, fast=106 → sign +1.
	//   cpc=2+3=5, trend=1*0.5+5*0.5=3. Push |5−3|=2.
	//   noise=(1+2)/2=1.5 → value=3/1.5=2.0.
	// Bar 5 (95): slow=98.2407, fast=95 → sign −1 ≠ +1 → crossover reset:
	//   cpc=0, trend=0. Push |0−0|=0. noise=(2+0)/2=1 → value=0/1=0.
	tq := mustTQ(t, 1, 2, 3, 2, 1.0, NoiseLinear)

	tq.Update(bar(10000))
	if tq.Ready() {
		t.Fatal("should not be ready during EMA warm-up")
	}
	tq.Update(bar(10100))
	if tq.Ready() {
		t.Fatal("should not be ready before noise window fills")
	}
	if tq.RegimeSign() != 1 {
		t.Errorf("RegimeSign=%d, want 1", tq.RegimeSign())
	}

	tq.Update(bar(10300))
	if !tq.Ready() {
		t.Fatal("should be ready once noise window is full")
	}
	assertClose(t, "TQ bar 3", tq.Value(), 2.0, 1e-9)

	tq.Update(bar(10600))
	assertClose(t, "TQ bar 4", tq.Value(), 2.0, 1e-9)

	tq.Update(bar(9500))
	assertClose(t, "TQ after crossover reset", tq.Value(), 0.0, 1e-9)
	if tq.RegimeSign() != -1 {
		t.Errorf("RegimeSign=%d, want -1 after bearish cross", tq.RegimeSign())
	}
}

func TestTrendQuality_FlatPrices_ZeroValue(t *testing.T) {
	// Constant prices: cpc never accumulates, every deviation is zero, so the
	// noise denominator is zero and the value is pinned at 0 rather than NaN.
	tq := mustTQ(t, 3, 5, 4, 6, 2.0, NoiseLinear)
	for i := 0; i < 30; i++ {
		tq.Update(bar(10000))
	}
	if !tq.Ready() {
		t.Fatal("should be ready")
	}
	if v := tq.Value(); v != 0 || math.IsNaN(v) {
		t.Errorf("flat market value = %v, want exactly 0", v)
	}
}

func TestTrendQuality_TrendDirection(t *testing.T) {
	up := mustTQ(t, 3, 7, 4, 10, 2.0, NoiseLinear)
	down := mustTQ(t, 3, 7, 4, 10, 2.0, NoiseLinear)

	for i := 0; i < 60; i++ {
		wobble := int64((i % 3) * 15)
		up.Update(bar(10000 + int64(i)*100 + wobble))
		down.Update(bar(30000 - int64(i)*100 - wobble))
	}

	if !up.Ready() || !down.Ready() {
		t.Fatal("both should be ready after 60 bars")
	}
	if up.Value() <= 0 {
		t.Errorf("uptrend value = %.4f, want > 0", up.Value())
	}
	if down.Value() >= 0 {
		t.Errorf("downtrend value = %.4f, want < 0", down.Value())
	}
	if up.RegimeSign() != 1 || down.RegimeSign() != -1 {
		t.Errorf("regime signs = %d/%d, want 1/-1", up.RegimeSign(), down.RegimeSign())
	}
}

func TestTrendQuality_SquaredNoise_DampsMore(t *testing.T) {
	// RMS ≥ mean for non-negative deviations, so the SQUARED denominator is
	// at least as large and |value| at most as large as LINEAR on equal data.
	lin := mustTQ(t, 3, 7, 4, 10, 2.0, NoiseLinear)
	sq := mustTQ(t, 3, 7, 4, 10, 2.0, NoiseSquared)

	for i := 0; i < 60; i++ {
		wobble := int64((i % 4) * 60)
		b := bar(10000 + int64(i)*100 + wobble)
		lin.Update(b)
		sq.Update(b)
	}

	if !lin.Ready() || !sq.Ready() {
		t.Fatal("both should be ready")
	}
	if math.Abs(sq.Value()) > math.Abs(lin.Value())+1e-12 {
		t.Errorf("SQUARED |value| %.6f should not exceed LINEAR |value| %.6f",
			math.Abs(sq.Value()), math.Abs(lin.Value()))
	}
}

func TestTrendQuality_CorrectionScalesInversely(t *testing.T) {
	a := mustTQ(t, 3, 7, 4, 10, 1.0, NoiseLinear)
	b := mustTQ(t, 3, 7, 4, 10, 2.0, NoiseLinear)

	for i := 0; i < 60; i++ {
		wobble := int64((i % 3) * 25)
		bb := bar(10000 + int64(i)*100 + wobble)
		a.Update(bb)
		b.Update(bb)
	}

	if a.Value() == 0 {
		t.Fatal("expected non-zero value for trending data")
	}
	assertClose(t, "correction scaling", b.Value(), a.Value()/2.0, 1e-9)
}

func TestTrendQuality_ResetThenReplay_Idempotent(t *testing.T) {
	tq := mustTQ(t, 3, 5, 4, 6, 2.0, NoiseLinear)
	prices := make([]int64, 40)
	for i := range prices {
		prices[i] = 10000 + int64(i)*80 + int64((i%5)*30)
	}
	for _, p := range prices {
		tq.Update(bar(p))
	}
	first := tq.Value()

	tq.Reset()
	if tq.Ready() {
		t.Fatal("reset indicator should not be ready")
	}
	for _, p := range prices {
		tq.Update(bar(p))
	}
	assertClose(t, "replay value", tq.Value(), first, 1e-12)
}
