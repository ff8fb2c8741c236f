package indicator

import (
	"testing"
)

// ────────────────────────────────────────────────────────────
// Per-indicator round-trips
// ────────────────────────────────────────────────────────────

func TestStdDev_SnapshotRoundTrip(t *testing.T) {
	sd := mustStdDev(t, 5)
	for _, p := range []int64{10000, 10200, 10400, 10300, 10500, 10100} {
		sd.Update(bar(p))
	}
	snap := sd.Snapshot()

	sd2 := mustStdDev(t, 5)
	if err := sd2.RestoreFromSnapshot(snap); err != nil {
		t.Fatal(err)
	}

	assertClose(t, "StdDev round-trip", sd2.Value(), sd.Value(), 1e-9)

	sd.Update(bar(10700))
	sd2.Update(bar(10700))
	assertClose(t, "StdDev after restore + update", sd2.Value(), sd.Value(), 1e-9)
}

func TestLinRegChannel_SnapshotRoundTrip(t *testing.T) {
	lr, err := NewLinRegChannel(10, 2.0, 1.5)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 14; i++ {
		lr.Update(bar(10000 + int64(i)*70 + int64((i%4)*25)))
	}
	snap := lr.Snapshot()

	lr2 := &LinRegChannel{}
	if err := lr2.RestoreFromSnapshot(snap); err != nil {
		t.Fatal(err)
	}

	if !lr2.Ready() {
		t.Fatal("restored channel should be ready (window was full)")
	}
	assertClose(t, "LINREG center round-trip", lr2.Value(), lr.Value(), 1e-9)
	assertClose(t, "LINREG upper round-trip", lr2.UpperBand(), lr.UpperBand(), 1e-9)
	assertClose(t, "LINREG lower round-trip", lr2.LowerBand(), lr.LowerBand(), 1e-9)

	lr.Update(bar(11000))
	lr2.Update(bar(11000))
	assertClose(t, "LINREG after restore + update", lr2.Value(), lr.Value(), 1e-9)
}

func TestLinRegChannel_PartialWindowSnapshot(t *testing.T) {
	// Snapshot before the window fills: restored instance must stay
	// not-ready and become ready after the missing bars arrive.
	lr, err := NewLinRegChannel(10, 2.0, 2.0)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 6; i++ {
		lr.Update(bar(int64(10000 + i*100)))
	}
	snap := lr.Snapshot()

	lr2 := &LinRegChannel{}
	if err := lr2.RestoreFromSnapshot(snap); err != nil {
		t.Fatal(err)
	}
	if lr2.Ready() {
		t.Fatal("restored partial window must not be ready")
	}
	for i := 6; i < 10; i++ {
		lr.Update(bar(int64(10000 + i*100)))
		lr2.Update(bar(int64(10000 + i*100)))
	}
	if !lr2.Ready() {
		t.Fatal("should be ready after window fills")
	}
	assertClose(t, "partial restore center", lr2.Value(), lr.Value(), 1e-9)
}

func TestBollinger_SnapshotRoundTrip(t *testing.T) {
	bb := mustBollinger(t, 5, 2.0)
	for _, p := range []int64{10000, 10200, 10400, 10300, 10500, 10100} {
		bb.Update(bar(p))
	}
	snap := bb.Snapshot()

	bb2 := &Bollinger{}
	if err := bb2.RestoreFromSnapshot(snap); err != nil {
		t.Fatal(err)
	}

	assertClose(t, "BOLL middle round-trip", bb2.Value(), bb.Value(), 1e-9)
	assertClose(t, "BOLL upper round-trip", bb2.UpperBand(), bb.UpperBand(), 1e-9)
	assertClose(t, "BOLL lower round-trip", bb2.LowerBand(), bb.LowerBand(), 1e-9)

	bb.Update(bar(10700))
	bb2.Update(bar(10700))
	assertClose(t, "BOLL after restore + update", bb2.UpperBand(), bb.UpperBand(), 1e-9)
}

func TestTrendQuality_SnapshotRoundTrip(t *testing.T) {
	tq := mustTQ(t, 3, 5, 4, 6, 2.0, NoiseLinear)
	for i := 0; i < 25; i++ {
		tq.Update(bar(10000 + int64(i)*80 + int64((i%5)*30)))
	}
	snap := tq.Snapshot()

	tq2 := &TrendQuality{}
	if err := tq2.RestoreFromSnapshot(snap); err != nil {
		t.Fatal(err)
	}

	if tq2.Ready() != tq.Ready() {
		t.Fatalf("restored Ready=%v, want %v", tq2.Ready(), tq.Ready())
	}
	assertClose(t, "TQ round-trip", tq2.Value(), tq.Value(), 1e-12)
	if tq2.RegimeSign() != tq.RegimeSign() {
		t.Errorf("restored RegimeSign=%d, want %d", tq2.RegimeSign(), tq.RegimeSign())
	}

	// Both must stay in lock-step, including across a crossover reset.
	for _, p := range []int64{11800, 11000, 10200, 9400} {
		tq.Update(bar(p))
		tq2.Update(bar(p))
		assertClose(t, "TQ after restore + update", tq2.Value(), tq.Value(), 1e-12)
	}
}

func TestTrendQuality_Restore_RejectsMissingSubs(t *testing.T) {
	tq := mustTQ(t, 3, 5, 4, 6, 2.0, NoiseLinear)
	snap := tq.Snapshot()
	snap.Sub = nil

	tq2 := &TrendQuality{}
	if err := tq2.RestoreFromSnapshot(snap); err == nil {
		t.Error("restore without EMA sub-states should fail")
	}
}

// ────────────────────────────────────────────────────────────
// Engine snapshot / restore
// ────────────────────────────────────────────────────────────

func TestEngine_SnapshotRestore_RoundTrip(t *testing.T) {
	cfg := testEngineConfig()
	e1, err := NewEngine(cfg)
	if err != nil {
		t.Fatal(err)
	}

	// Warm up two tokens with different series.
	for i := 0; i < 12; i++ {
		e1.Process(tfBar("AAA", 60, 10000+int64(i)*100))
		e1.Process(tfBar("BBB", 60, 50000-int64(i)*60))
	}

	snap, err := SnapshotEngine(e1, "1700000000-5")
	if err != nil {
		t.Fatal(err)
	}
	if snap.StreamID != "1700000000-5" {
		t.Errorf("StreamID=%q, want 1700000000-5", snap.StreamID)
	}
	if len(snap.Tokens) != 2 {
		t.Fatalf("snapshot has %d tokens, want 2", len(snap.Tokens))
	}

	// Full wire round-trip: marshal → unmarshal → restore.
	data, err := snap.Marshal()
	if err != nil {
		t.Fatal(err)
	}
	snap2, err := UnmarshalEngineSnapshot(data)
	if err != nil {
		t.Fatal(err)
	}

	e2, err := RestoreEngine(cfg, snap2)
	if err != nil {
		t.Fatal(err)
	}

	// Identical subsequent bars must produce identical results.
	for i := 12; i < 16; i++ {
		r1 := e1.Process(tfBar("AAA", 60, 10000+int64(i)*100))
		r2 := e2.Process(tfBar("AAA", 60, 10000+int64(i)*100))
		if len(r1) != len(r2) {
			t.Fatalf("bar %d: result count %d vs %d", i, len(r1), len(r2))
		}
		for j := range r1 {
			if r1[j].Name != r2[j].Name || r1[j].Ready != r2[j].Ready {
				t.Fatalf("bar %d result %d: %+v vs %+v", i, j, r1[j], r2[j])
			}
			assertClose(t, r1[j].Name, r2[j].Value, r1[j].Value, 1e-9)
		}
	}
}

func TestEngine_Restore_NilSnapshot_ColdStart(t *testing.T) {
	e, err := RestoreEngine(testEngineConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	results := e.Process(tfBar("AAA", 60, 10000))
	for _, r := range results {
		if r.Ready {
			t.Errorf("%s ready on first bar of a cold start", r.Name)
		}
	}
}

func TestEngine_Restore_ConfigChange_ColdIndicator(t *testing.T) {
	// Snapshot was taken with SMA(3); the new config wants SMA(5). The
	// mismatched indicator must start cold instead of inheriting stale state.
	oldCfg := EngineConfig{TF: 60, Indicators: []IndicatorConfig{{Type: "SMA", Period: 3}}}
	e1, err := NewEngine(oldCfg)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 6; i++ {
		e1.Process(tfBar("AAA", 60, 10000+int64(i)*100))
	}
	snap, err := SnapshotEngine(e1, "")
	if err != nil {
		t.Fatal(err)
	}

	newCfg := EngineConfig{TF: 60, Indicators: []IndicatorConfig{{Type: "SMA", Period: 5}}}
	e2, err := RestoreEngine(newCfg, snap)
	if err != nil {
		t.Fatal(err)
	}

	results := e2.Process(tfBar("AAA", 60, 10600))
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Ready {
		t.Error("SMA(5) should start cold after a period change")
	}
}

func TestEngine_Restore_TFChange_Skipped(t *testing.T) {
	cfg := EngineConfig{TF: 60, Indicators: []IndicatorConfig{{Type: "SMA", Period: 3}}}
	e1, err := NewEngine(cfg)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		e1.Process(tfBar("AAA", 60, 10000+int64(i)*100))
	}
	snap, err := SnapshotEngine(e1, "")
	if err != nil {
		t.Fatal(err)
	}

	newCfg := EngineConfig{TF: 300, Indicators: []IndicatorConfig{{Type: "SMA", Period: 3}}}
	e2, err := RestoreEngine(newCfg, snap)
	if err != nil {
		t.Fatal(err)
	}
	results := e2.Process(tfBar("AAA", 300, 10000))
	if len(results) != 1 || results[0].Ready {
		t.Error("TF change should discard the old snapshot state")
	}
}
