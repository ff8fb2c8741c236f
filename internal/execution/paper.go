// Package execution simulates order execution and journals fills.
//
// PaperBroker fills orders synchronously at the last seen price with
// configurable slippage, tracking cash and net position so allocation-based
// sizing reflects current equity. No real broker calls are made.
package execution

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"regime-systemv1/internal/model"
)

// Fill represents a simulated order fill.
type Fill struct {
	OrderID   string    `json:"order_id"`
	Token     string    `json:"token"`
	Exchange  string    `json:"exchange"`
	Qty       int64     `json:"qty"`        // signed: positive = buy
	FillPrice int64     `json:"fill_price"` // in paise, slippage applied
	Slippage  int64     `json:"slippage"`   // in paise
	Tag       string    `json:"tag"`
	FilledAt  time.Time `json:"filled_at"`
}

// ErrNoPrice is returned when an order arrives before any price is known.
var ErrNoPrice = errors.New("execution: no last price for fill simulation")

// PaperBroker simulates synchronous order execution for one instrument.
// It satisfies both the strategy Broker and Sizer contracts: orders fill
// immediately at the last price plus slippage, and sizing converts an
// allocation fraction of current equity into shares.
type PaperBroker struct {
	mu       sync.Mutex
	token    string
	exchange string

	cash      int64 // paise
	position  int64 // net signed shares
	lastPrice int64 // paise

	slippageBps int64 // basis points (5 = 0.05%)
	orderSeq    int64
	fills       []Fill
	onFill      func(Fill)
}

// NewPaperBroker creates a paper broker with the given starting cash (paise).
func NewPaperBroker(token, exchange string, startingCash, slippageBps int64) *PaperBroker {
	return &PaperBroker{
		token:       token,
		exchange:    exchange,
		cash:        startingCash,
		slippageBps: slippageBps,
		fills:       make([]Fill, 0, 256),
	}
}

// OnFill registers a callback invoked synchronously for every fill.
func (p *PaperBroker) OnFill(fn func(Fill)) {
	p.mu.Lock()
	p.onFill = fn
	p.mu.Unlock()
}

// UpdatePrice marks the instrument to the bar's close. Bars for other
// tokens are ignored.
func (p *PaperBroker) UpdatePrice(bar model.Bar) {
	if bar.Token != p.token || bar.Exchange != p.exchange {
		return
	}
	p.SetLastPrice(bar.Close)
}

// SetLastPrice marks the instrument to a raw price in paise.
func (p *PaperBroker) SetLastPrice(paise int64) {
	p.mu.Lock()
	p.lastPrice = paise
	p.mu.Unlock()
}

// PlaceOrder fills a signed quantity at the last price with slippage applied
// against the taker: buys fill higher, sells fill lower. Returns the signed
// filled quantity; fills are always complete in this simulation.
func (p *PaperBroker) PlaceOrder(qty int64, tag string) (int64, error) {
	if qty == 0 {
		return 0, nil
	}

	p.mu.Lock()
	if p.lastPrice == 0 {
		p.mu.Unlock()
		return 0, ErrNoPrice
	}

	slippage := p.lastPrice * p.slippageBps / 10000
	fillPrice := p.lastPrice
	if qty > 0 {
		fillPrice += slippage
	} else {
		fillPrice -= slippage
	}

	p.orderSeq++
	fill := Fill{
		OrderID:   fmt.Sprintf("PAPER-%d", p.orderSeq),
		Token:     p.token,
		Exchange:  p.exchange,
		Qty:       qty,
		FillPrice: fillPrice,
		Slippage:  slippage,
		Tag:       tag,
		FilledAt:  time.Now(),
	}
	p.cash -= qty * fillPrice
	p.position += qty
	p.fills = append(p.fills, fill)
	cb := p.onFill
	p.mu.Unlock()

	if cb != nil {
		cb(fill)
	}
	return qty, nil
}

// CalculateQuantity converts an allocation fraction of current equity into a
// signed share count at the last price. Returns 0 before any price is known.
func (p *PaperBroker) CalculateQuantity(allocation float64) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.lastPrice == 0 || allocation == 0 {
		return 0
	}

	equity := p.cash + p.position*p.lastPrice
	if equity <= 0 {
		return 0
	}

	frac := allocation
	if frac < 0 {
		frac = -frac
	}
	qty := int64(float64(equity) * frac / float64(p.lastPrice))
	if allocation < 0 {
		return -qty
	}
	return qty
}

// Cash returns the current cash balance in paise.
func (p *PaperBroker) Cash() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash
}

// Position returns the net signed share position.
func (p *PaperBroker) Position() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

// Equity returns cash plus the position marked to the last price, in paise.
func (p *PaperBroker) Equity() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cash + p.position*p.lastPrice
}

// Fills returns a snapshot of all fills.
func (p *PaperBroker) Fills() []Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]Fill, len(p.fills))
	copy(cp, p.fills)
	return cp
}
