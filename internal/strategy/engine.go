// Package strategy provides the strategy engine for running trading strategies.
//
// A Strategy receives finalized bars and emits trading signals (BUY/SELL).
// The Engine manages strategy lifecycle: registration, bar routing, and
// signal collection.
package strategy

import (
	"context"
	"time"

	"regime-systemv1/internal/model"
)

// Signal represents a trading signal emitted by a strategy.
type Signal struct {
	StrategyName string    `json:"strategy_name"`
	Action       Action    `json:"action"` // BUY, SELL
	Token        string    `json:"token"`
	Exchange     string    `json:"exchange"`
	Qty          int64     `json:"qty"`   // absolute quantity
	Price        int64     `json:"price"` // fill price in paise, 0 = market
	Tag          string    `json:"tag"`   // which leg/transition produced this
	TS           time.Time `json:"ts"`
}

// Action represents a trading action.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
)

// Strategy is the interface that all trading strategies must implement.
type Strategy interface {
	// Name returns the unique name of the strategy.
	Name() string

	// OnBar is called for each finalized bar, in timestamp order.
	// Returns the signals emitted for this bar; nil or empty to skip.
	OnBar(bar model.Bar) []Signal
}

// Broker places orders synchronously. The returned fill quantity is
// authoritative: callers must book the fill, not the request.
type Broker interface {
	// PlaceOrder submits a signed quantity (positive = buy, negative = sell)
	// and returns the signed filled quantity.
	PlaceOrder(qty int64, tag string) (int64, error)
}

// Sizer converts a fractional capital allocation into a share count.
type Sizer interface {
	// CalculateQuantity returns a signed share count for the given allocation
	// fraction (e.g. 0.5 = long 50% of capital, -0.5 = short 50%).
	CalculateQuantity(allocation float64) int64
}

// Engine manages registered strategies and routes bars to them.
type Engine struct {
	strategies []Strategy
	signalCh   chan Signal
}

// NewEngine creates a new strategy engine.
func NewEngine(signalBufferSize int) *Engine {
	return &Engine{
		signalCh: make(chan Signal, signalBufferSize),
	}
}

// Register adds a strategy to the engine.
func (e *Engine) Register(s Strategy) {
	e.strategies = append(e.strategies, s)
}

// Signals returns the channel of signals emitted by strategies.
func (e *Engine) Signals() <-chan Signal {
	return e.signalCh
}

// Run consumes bars and routes them to all registered strategies.
// Blocks until ctx is cancelled or barCh is closed.
func (e *Engine) Run(ctx context.Context, barCh <-chan model.Bar) {
	for {
		select {
		case <-ctx.Done():
			return
		case bar, ok := <-barCh:
			if !ok {
				return
			}
			for _, s := range e.strategies {
				for _, sig := range s.OnBar(bar) {
					select {
					case e.signalCh <- sig:
					default:
						// signal channel full, drop
					}
				}
			}
		}
	}
}
