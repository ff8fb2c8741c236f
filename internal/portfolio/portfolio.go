// Package portfolio tracks signed positions and P&L from order fills.
//
// Positions may be long or short; closing fills realize P&L against the
// weighted average entry price, and a fill larger than the open position
// flips it with a fresh cost basis.
package portfolio

import (
	"sync"

	"regime-systemv1/internal/execution"
	"regime-systemv1/internal/model"
)

// Position represents a single instrument position.
type Position struct {
	Token    string `json:"token"`
	Exchange string `json:"exchange"`
	Qty      int64  `json:"qty"`       // positive = long, negative = short
	AvgPrice int64  `json:"avg_price"` // average entry price in paise
	LastLTP  int64  `json:"last_ltp"`  // last traded price in paise
}

// UnrealizedPnL returns the unrealized P&L in paise, valid for both sides.
func (p *Position) UnrealizedPnL() int64 {
	return (p.LastLTP - p.AvgPrice) * p.Qty
}

// Portfolio tracks open positions and realized P&L.
type Portfolio struct {
	mu          sync.RWMutex
	positions   map[string]*Position // key = "exchange:token"
	realizedPnL int64                // paise
	fillCount   int
}

// New creates a new empty Portfolio.
func New() *Portfolio {
	return &Portfolio{
		positions: make(map[string]*Position),
	}
}

// UpdatePrice updates the last traded price for a position.
func (pf *Portfolio) UpdatePrice(bar model.Bar) {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	if pos, ok := pf.positions[bar.Key()]; ok {
		pos.LastLTP = bar.Close
	}
}

// ApplyFill books a fill and returns the P&L realized by it (0 for opening
// fills). Extending fills reprice the average; reducing fills realize
// against it; a fill larger than the open position flips the side and the
// excess starts a new basis at the fill price.
func (pf *Portfolio) ApplyFill(fill execution.Fill) int64 {
	pf.mu.Lock()
	defer pf.mu.Unlock()
	pf.fillCount++

	key := fill.Exchange + ":" + fill.Token
	pos, ok := pf.positions[key]
	if !ok {
		pos = &Position{Token: fill.Token, Exchange: fill.Exchange}
		pf.positions[key] = pos
	}
	pos.LastLTP = fill.FillPrice

	qty := fill.Qty
	var realized int64

	sameSide := pos.Qty == 0 || (pos.Qty > 0) == (qty > 0)
	if sameSide {
		// Extend: weighted average entry price.
		totalCost := pos.AvgPrice*abs64(pos.Qty) + fill.FillPrice*abs64(qty)
		pos.Qty += qty
		if pos.Qty != 0 {
			pos.AvgPrice = totalCost / abs64(pos.Qty)
		}
		return 0
	}

	// Reduce or flip.
	closed := abs64(qty)
	if closed > abs64(pos.Qty) {
		closed = abs64(pos.Qty)
	}
	if pos.Qty > 0 {
		realized = (fill.FillPrice - pos.AvgPrice) * closed
	} else {
		realized = (pos.AvgPrice - fill.FillPrice) * closed
	}
	pf.realizedPnL += realized

	pos.Qty += qty
	if pos.Qty == 0 {
		pos.AvgPrice = 0
	} else if (pos.Qty > 0) == (qty > 0) {
		// Flipped through zero: the remainder opened at the fill price.
		pos.AvgPrice = fill.FillPrice
	}
	return realized
}

// GetPositions returns a snapshot of all positions.
func (pf *Portfolio) GetPositions() []Position {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	result := make([]Position, 0, len(pf.positions))
	for _, p := range pf.positions {
		result = append(result, *p)
	}
	return result
}

// RealizedPnL returns total realized P&L in paise.
func (pf *Portfolio) RealizedPnL() int64 {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	return pf.realizedPnL
}

// TotalUnrealizedPnL returns the total unrealized P&L across all positions.
func (pf *Portfolio) TotalUnrealizedPnL() int64 {
	pf.mu.RLock()
	defer pf.mu.RUnlock()
	var total int64
	for _, p := range pf.positions {
		total += p.UnrealizedPnL()
	}
	return total
}

// Summary is a point-in-time P&L view.
type Summary struct {
	RealizedPnL   int64 `json:"realized_pnl"`
	UnrealizedPnL int64 `json:"unrealized_pnl"`
	TotalPnL      int64 `json:"total_pnl"`
	Fills         int   `json:"fills"`
	OpenPositions int   `json:"open_positions"`
}

// GetSummary returns the current P&L summary.
func (pf *Portfolio) GetSummary() Summary {
	pf.mu.RLock()
	defer pf.mu.RUnlock()

	var unrealized int64
	open := 0
	for _, p := range pf.positions {
		if p.Qty == 0 {
			continue
		}
		open++
		unrealized += p.UnrealizedPnL()
	}
	return Summary{
		RealizedPnL:   pf.realizedPnL,
		UnrealizedPnL: unrealized,
		TotalPnL:      pf.realizedPnL + unrealized,
		Fills:         pf.fillCount,
		OpenPositions: open,
	}
}

func abs64(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}
