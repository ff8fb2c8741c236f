// Package indicator provides streaming technical indicator calculations over
// bar data.
//
// All indicators implement the Indicator interface, receiving bars and
// producing float64 values in rupees. Indicators are designed to be composable;
// channel-style indicators additionally expose upper/lower price bounds.
package indicator

import (
	"errors"

	"regime-systemv1/internal/model"
)

// ErrBadPeriod is returned by constructors given a period < 1.
var ErrBadPeriod = errors.New("indicator: period must be >= 1")

// Indicator is the interface for all technical indicators.
type Indicator interface {
	// Name returns the indicator name (e.g., "EMA", "LINREG").
	Name() string

	// Update feeds a new finalized bar and recalculates.
	Update(bar model.Bar)

	// Value returns the current calculated value. Returns 0 if not enough data.
	Value() float64

	// Ready returns true when enough data has been accumulated.
	Ready() bool

	// Reset clears all internal state for reuse.
	Reset()
}

// Channel is implemented by indicators that derive upper/lower price bounds
// around a center value (regression channel, Bollinger-style bands). The
// signal engine consumes bounds through this interface only.
type Channel interface {
	Indicator

	// UpperBand returns the upper price bound in rupees.
	UpperBand() float64

	// LowerBand returns the lower price bound in rupees.
	LowerBand() float64
}
