package strategy

// Leg identifies one of the four independent position legs.
type Leg int

const (
	ReversionLong Leg = iota
	ReversionShort
	BreakoutLong
	BreakoutShort
	numLegs
)

func (l Leg) String() string {
	switch l {
	case ReversionLong:
		return "reversion-long"
	case ReversionShort:
		return "reversion-short"
	case BreakoutLong:
		return "breakout-long"
	case BreakoutShort:
		return "breakout-short"
	}
	return "unknown"
}

type legState struct {
	shares int64 // always >= 0, direction implied by the leg
	orders int   // entries taken, 0..maxOrders
}

// Ledger tracks shares and order counts for the four position legs.
// Shares are stored unsigned; the leg name carries the direction. Entry and
// exit evaluation within a single bar both mutate the same ledger, so a
// flatten is immediately visible to later checks on the same bar.
type Ledger struct {
	maxOrders int
	legs      [numLegs]legState
}

// NewLedger creates a ledger with the given per-leg order cap.
func NewLedger(maxOrders int) *Ledger {
	return &Ledger{maxOrders: maxOrders}
}

// Shares returns the open share count for a leg.
func (l *Ledger) Shares(leg Leg) int64 { return l.legs[leg].shares }

// Orders returns the entry count for a leg.
func (l *Ledger) Orders(leg Leg) int { return l.legs[leg].orders }

// CanAdd reports whether the leg is under its order cap.
func (l *Ledger) CanAdd(leg Leg) bool { return l.legs[leg].orders < l.maxOrders }

// Add books a fill onto a leg: shares increase by the absolute filled
// quantity and the order count increments by one.
func (l *Ledger) Add(leg Leg, filled int64) {
	if filled < 0 {
		filled = -filled
	}
	l.legs[leg].shares += filled
	l.legs[leg].orders++
}

// Flatten zeroes a leg and returns the shares that were open.
func (l *Ledger) Flatten(leg Leg) int64 {
	sh := l.legs[leg].shares
	l.legs[leg] = legState{}
	return sh
}

// ShortShares returns the combined open short exposure.
func (l *Ledger) ShortShares() int64 {
	return l.legs[ReversionShort].shares + l.legs[BreakoutShort].shares
}

// LongShares returns the combined open long exposure.
func (l *Ledger) LongShares() int64 {
	return l.legs[ReversionLong].shares + l.legs[BreakoutLong].shares
}

// FlattenShortSide zeroes both short legs and returns the combined shares.
func (l *Ledger) FlattenShortSide() int64 {
	return l.Flatten(ReversionShort) + l.Flatten(BreakoutShort)
}

// FlattenLongSide zeroes both long legs and returns the combined shares.
func (l *Ledger) FlattenLongSide() int64 {
	return l.Flatten(ReversionLong) + l.Flatten(BreakoutLong)
}

// NetShares returns long minus short exposure (signed).
func (l *Ledger) NetShares() int64 {
	return l.LongShares() - l.ShortShares()
}

// Reset zeroes all legs.
func (l *Ledger) Reset() {
	for i := range l.legs {
		l.legs[i] = legState{}
	}
}
