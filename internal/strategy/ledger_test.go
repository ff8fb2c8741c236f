package strategy

import "testing"

func TestLedger_AddAndCap(t *testing.T) {
	l := NewLedger(3)

	if !l.CanAdd(ReversionShort) {
		t.Fatal("fresh ledger should accept entries")
	}
	for i := 0; i < 3; i++ {
		l.Add(ReversionShort, 10)
	}
	if l.CanAdd(ReversionShort) {
		t.Error("leg at max orders should refuse entries")
	}
	if got := l.Shares(ReversionShort); got != 30 {
		t.Errorf("shares = %d, want 30", got)
	}
	if got := l.Orders(ReversionShort); got != 3 {
		t.Errorf("orders = %d, want 3", got)
	}

	// Other legs are independent.
	if !l.CanAdd(BreakoutLong) {
		t.Error("breakout-long cap should be independent of reversion-short")
	}
}

func TestLedger_Add_NegativeFillBookedAbsolute(t *testing.T) {
	l := NewLedger(3)
	l.Add(ReversionShort, -10) // sell fills come back signed
	if got := l.Shares(ReversionShort); got != 10 {
		t.Errorf("shares = %d, want 10 (absolute)", got)
	}
}

func TestLedger_Flatten(t *testing.T) {
	l := NewLedger(3)
	l.Add(ReversionLong, 10)
	l.Add(ReversionLong, 5)

	if got := l.Flatten(ReversionLong); got != 15 {
		t.Errorf("flattened = %d, want 15", got)
	}
	if l.Shares(ReversionLong) != 0 || l.Orders(ReversionLong) != 0 {
		t.Error("flatten must zero both shares and order count")
	}
	if !l.CanAdd(ReversionLong) {
		t.Error("flattened leg should accept entries again")
	}
}

func TestLedger_Sides(t *testing.T) {
	l := NewLedger(3)
	l.Add(ReversionShort, 10)
	l.Add(BreakoutShort, 5)
	l.Add(ReversionLong, 7)

	if got := l.ShortShares(); got != 15 {
		t.Errorf("short shares = %d, want 15", got)
	}
	if got := l.LongShares(); got != 7 {
		t.Errorf("long shares = %d, want 7", got)
	}
	if got := l.NetShares(); got != -8 {
		t.Errorf("net shares = %d, want -8", got)
	}

	if got := l.FlattenShortSide(); got != 15 {
		t.Errorf("flatten short side = %d, want 15", got)
	}
	if l.Shares(ReversionShort) != 0 || l.Shares(BreakoutShort) != 0 {
		t.Error("both short legs must be zeroed")
	}
	if got := l.Shares(ReversionLong); got != 7 {
		t.Errorf("long leg touched by short-side flatten: %d", got)
	}

	if got := l.FlattenLongSide(); got != 7 {
		t.Errorf("flatten long side = %d, want 7", got)
	}
}

func TestLedger_Reset(t *testing.T) {
	l := NewLedger(3)
	l.Add(ReversionShort, 10)
	l.Add(BreakoutLong, 5)
	l.Reset()
	for leg := ReversionLong; leg < numLegs; leg++ {
		if l.Shares(leg) != 0 || l.Orders(leg) != 0 {
			t.Errorf("leg %s not zeroed after reset", leg)
		}
	}
}
