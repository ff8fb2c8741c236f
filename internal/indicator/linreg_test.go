package indicator

import (
	"math"
	"testing"
)

// referenceOLS computes slope/intercept/residual sample stddev with a naive
// two-pass method, independent of the closed-form sums used by the channel.
func referenceOLS(ys []float64) (slope, intercept, stddev float64) {
	n := float64(len(ys))
	var meanX, meanY float64
	for i, y := range ys {
		meanX += float64(i)
		meanY += y
	}
	meanX /= n
	meanY /= n

	var num, den float64
	for i, y := range ys {
		dx := float64(i) - meanX
		num += dx * (y - meanY)
		den += dx * dx
	}
	slope = num / den
	intercept = meanY - slope*meanX

	resid := make([]float64, len(ys))
	var residMean float64
	for i, y := range ys {
		resid[i] = y - (slope*float64(i) + intercept)
		residMean += resid[i]
	}
	residMean /= n

	var sq float64
	for _, r := range resid {
		d := r - residMean
		sq += d * d
	}
	if len(ys) > 1 {
		stddev = math.Sqrt(sq / (n - 1))
	}
	return slope, intercept, stddev
}

func TestLinRegChannel_MatchesReferenceOLS(t *testing.T) {
	// Noisy up-trend: base slope 0.5 with a deterministic wobble.
	prices := make([]int64, 20)
	for i := range prices {
		wobble := int64((i % 5) * 30)
		prices[i] = 10000 + int64(i)*50 + wobble
	}

	lr, err := NewLinRegChannel(20, 2.0, 2.0)
	if err != nil {
		t.Fatal(err)
	}
	ys := make([]float64, len(prices))
	for i, p := range prices {
		lr.Update(bar(p))
		ys[i] = float64(p) / 100.0
	}
	if !lr.Ready() {
		t.Fatal("channel should be ready after count bars")
	}

	slope, intercept, stddev := referenceOLS(ys)
	fit := lr.Fit()
	assertClose(t, "slope", fit.Slope, slope, 1e-9)
	assertClose(t, "intercept", fit.Intercept, intercept, 1e-9)
	assertClose(t, "center", fit.Center, slope*19+intercept, 1e-9)
	assertClose(t, "residual stddev", fit.ResidualStdDev, stddev, 1e-9)
	assertClose(t, "upper", lr.UpperBand(), fit.Center+2*stddev, 1e-9)
	assertClose(t, "lower", lr.LowerBand(), fit.Center-2*stddev, 1e-9)
}

func TestLinRegChannel_CollinearPrices_ZeroWidthBands(t *testing.T) {
	// Perfectly linear prices: residuals are ~0, bands collapse onto the
	// center line, and the center equals the latest price.
	lr, err := NewLinRegChannel(10, 2.0, 2.0)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		lr.Update(bar(int64(10000 + i*100))) // 100, 101, ..., 109 rupees
	}
	fit := lr.Fit()
	assertClose(t, "collinear slope", fit.Slope, 1.0, 1e-9)
	assertClose(t, "collinear center", fit.Center, 109.0, 1e-9)
	assertClose(t, "collinear stddev", fit.ResidualStdDev, 0.0, 1e-9)
	assertClose(t, "collinear upper", lr.UpperBand(), 109.0, 1e-9)
	assertClose(t, "collinear lower", lr.LowerBand(), 109.0, 1e-9)
}

func TestLinRegChannel_AsymmetricMultipliers(t *testing.T) {
	lr, err := NewLinRegChannel(10, 3.0, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		wobble := int64((i % 3) * 40)
		lr.Update(bar(10000 + int64(i)*50 + wobble))
	}
	fit := lr.Fit()
	if fit.ResidualStdDev <= 0 {
		t.Fatal("expected non-zero residual stddev for wobbly data")
	}
	assertClose(t, "asym upper", lr.UpperBand(), fit.Center+3*fit.ResidualStdDev, 1e-9)
	assertClose(t, "asym lower", lr.LowerBand(), fit.Center-1*fit.ResidualStdDev, 1e-9)
}

func TestLinRegChannel_NotReadyUntilFull(t *testing.T) {
	lr, err := NewLinRegChannel(100, 2.0, 2.0)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 99; i++ {
		lr.Update(bar(int64(10000 + i)))
		if lr.Ready() {
			t.Fatalf("ready at bar %d, want not ready before 100", i)
		}
	}
	lr.Update(bar(10099))
	if !lr.Ready() {
		t.Error("should be ready at bar 100")
	}
}

func TestLinRegChannel_Rolls(t *testing.T) {
	// The fit must track only the window contents: after feeding count extra
	// bars from a pure line, the earlier noise must be fully forgotten.
	lr, err := NewLinRegChannel(10, 2.0, 2.0)
	if err != nil {
		t.Fatal(err)
	}
	noisy := []int64{10000, 10700, 9800, 10400, 10100, 10900, 9700, 10300, 10600, 10000}
	for _, p := range noisy {
		lr.Update(bar(p))
	}
	for i := 0; i < 10; i++ {
		lr.Update(bar(int64(20000 + i*100)))
	}
	fit := lr.Fit()
	assertClose(t, "rolled slope", fit.Slope, 1.0, 1e-9)
	assertClose(t, "rolled stddev", fit.ResidualStdDev, 0.0, 1e-9)
}

func TestLinRegChannel_ResetThenReplay_Idempotent(t *testing.T) {
	lr, err := NewLinRegChannel(10, 2.0, 2.0)
	if err != nil {
		t.Fatal(err)
	}
	prices := make([]int64, 15)
	for i := range prices {
		prices[i] = 10000 + int64(i)*70 + int64((i%4)*25)
	}
	for _, p := range prices {
		lr.Update(bar(p))
	}
	first := lr.Fit()

	lr.Reset()
	if lr.Ready() {
		t.Fatal("reset channel should not be ready")
	}
	for _, p := range prices {
		lr.Update(bar(p))
	}
	second := lr.Fit()

	assertClose(t, "replay slope", second.Slope, first.Slope, 1e-12)
	assertClose(t, "replay center", second.Center, first.Center, 1e-12)
	assertClose(t, "replay stddev", second.ResidualStdDev, first.ResidualStdDev, 1e-12)
}
