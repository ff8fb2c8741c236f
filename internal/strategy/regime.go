package strategy

import (
	"errors"
	"log/slog"

	"regime-systemv1/internal/indicator"
	"regime-systemv1/internal/model"
)

// Order tags identify which transition produced an order. They flow through
// the broker into the fills journal, so keep them stable.
const (
	TagBuyReversion  = "Buy Reversion"
	TagSellReversion = "Sell Reversion"
	TagBuyBreakout   = "Buy Breakout"
	TagSellBreakout  = "Sell Breakout"

	TagCloseOpenShort = "Close open short trade"
	TagCloseOpenLong  = "Close open long trade"

	TagCloseBuyReversion  = "Close Buy Reversion"
	TagCloseSellReversion = "Close Sell Reversion"
	TagCloseBuyBreakout   = "Close Buy Breakout"
	TagCloseSellBreakout  = "Close Sell Breakout"
)

// RegimeConfig holds the trading thresholds for the regime strategy.
type RegimeConfig struct {
	LowThreshold  float64 // trend quality floor, e.g. -4
	HighThreshold float64 // trend quality ceiling, e.g. 2.5
	BetweenFactor float64 // exit bound tightening, fraction of price
	Allocation    float64 // capital fraction per entry, e.g. 0.5
	MaxOrders     int     // per-leg entry cap
}

// Validate checks the config for values that would disable the state machine.
func (c RegimeConfig) Validate() error {
	if c.LowThreshold >= c.HighThreshold {
		return errors.New("strategy: low threshold must be below high threshold")
	}
	if c.BetweenFactor < 0 {
		return errors.New("strategy: between factor must be >= 0")
	}
	if c.Allocation <= 0 {
		return errors.New("strategy: allocation must be > 0")
	}
	if c.MaxOrders < 1 {
		return errors.New("strategy: max orders must be >= 1")
	}
	return nil
}

// RegimeStrategy trades a price channel adaptively based on trend quality.
//
// Inside the quality band [low, high] the market is treated as mean-reverting:
// touches of the channel bounds open positions betting on a return to center.
// Outside the band the market is trending: channel breaks open positions in
// the direction of the break, flattening any opposing reversion exposure
// first. Four independent legs (reversion long/short, breakout long/short)
// are tracked in a Ledger with a per-leg order cap.
//
// All eight transition checks run on every bar in fixed order; they are
// deliberately not an if/else chain, so an entry on one leg and an exit on
// another can both fire within the same bar.
type RegimeStrategy struct {
	name    string
	cfg     RegimeConfig
	channel indicator.Channel
	quality indicator.Indicator
	broker  Broker
	sizer   Sizer
	ledger  *Ledger
}

// NewRegimeStrategy wires the strategy to its channel source, trend-quality
// indicator, broker, and sizer. The channel may be either regression bands
// or Bollinger bands; the strategy only consumes the published bounds and
// the quality score, never indicator internals.
func NewRegimeStrategy(cfg RegimeConfig, channel indicator.Channel, quality indicator.Indicator, broker Broker, sizer Sizer) (*RegimeStrategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &RegimeStrategy{
		name:    "Regime_Channel",
		cfg:     cfg,
		channel: channel,
		quality: quality,
		broker:  broker,
		sizer:   sizer,
		ledger:  NewLedger(cfg.MaxOrders),
	}, nil
}

func (s *RegimeStrategy) Name() string { return s.name }

// Ledger exposes the position ledger for reporting.
func (s *RegimeStrategy) Ledger() *Ledger { return s.ledger }

// WarmUp feeds historical bars into the indicators without trading.
// Used to rebuild indicator state from backfill after a restart.
func (s *RegimeStrategy) WarmUp(bars []model.Bar) {
	for _, b := range bars {
		s.channel.Update(b)
		s.quality.Update(b)
	}
}

// OnBar updates the indicators and runs the transition checks.
func (s *RegimeStrategy) OnBar(bar model.Bar) []Signal {
	s.channel.Update(bar)
	s.quality.Update(bar)
	if !s.channel.Ready() || !s.quality.Ready() {
		return nil
	}

	close := model.Rupees(bar.Close)
	upper := s.channel.UpperBand()
	lower := s.channel.LowerBand()
	q := s.quality.Value()

	var out []Signal

	// ── Entries ──────────────────────────────────────────────

	// Reversion short: price above the channel in a non-trending market.
	if close > upper && q < s.cfg.HighThreshold && s.ledger.CanAdd(ReversionShort) {
		if filled, sig := s.place(bar, s.sizer.CalculateQuantity(-s.cfg.Allocation), TagSellReversion); filled != 0 {
			s.ledger.Add(ReversionShort, filled)
			out = append(out, sig)
		}
	}

	// Reversion long: price below the channel in a non-trending market.
	if close < lower && q > s.cfg.LowThreshold && s.ledger.CanAdd(ReversionLong) {
		if filled, sig := s.place(bar, s.sizer.CalculateQuantity(s.cfg.Allocation), TagBuyReversion); filled != 0 {
			s.ledger.Add(ReversionLong, filled)
			out = append(out, sig)
		}
	}

	// Breakout long: price above the channel with a strong clean uptrend.
	// Any open short exposure is flattened with a single order first.
	if close > upper && q > s.cfg.HighThreshold {
		if sh := s.ledger.ShortShares(); sh > 0 {
			if filled, sig := s.place(bar, sh, TagCloseOpenShort); filled != 0 {
				s.ledger.FlattenShortSide()
				out = append(out, sig)
			}
		}
		if s.ledger.CanAdd(BreakoutLong) {
			if filled, sig := s.place(bar, s.sizer.CalculateQuantity(s.cfg.Allocation), TagBuyBreakout); filled != 0 {
				s.ledger.Add(BreakoutLong, filled)
				out = append(out, sig)
			}
		}
	}

	// Breakout short: price below the channel with a strong clean downtrend.
	if close < lower && q < s.cfg.LowThreshold {
		if sh := s.ledger.LongShares(); sh > 0 {
			if filled, sig := s.place(bar, -sh, TagCloseOpenLong); filled != 0 {
				s.ledger.FlattenLongSide()
				out = append(out, sig)
			}
		}
		if s.ledger.CanAdd(BreakoutShort) {
			if filled, sig := s.place(bar, s.sizer.CalculateQuantity(-s.cfg.Allocation), TagSellBreakout); filled != 0 {
				s.ledger.Add(BreakoutShort, filled)
				out = append(out, sig)
			}
		}
	}

	// ── Exits ────────────────────────────────────────────────

	// Exit bounds are tightened toward the channel center by a fraction of
	// price, so a touch has to retreat meaningfully before a leg closes.
	upperExit := upper - close*s.cfg.BetweenFactor
	lowerExit := lower + close*s.cfg.BetweenFactor
	qOutside := q < s.cfg.LowThreshold || q > s.cfg.HighThreshold

	// Reversion legs close when price retreats or the market starts trending.
	if sh := s.ledger.Shares(ReversionShort); sh > 0 && (close < upperExit || qOutside) {
		if filled, sig := s.place(bar, sh, TagCloseSellReversion); filled != 0 {
			s.ledger.Flatten(ReversionShort)
			out = append(out, sig)
		}
	}
	if sh := s.ledger.Shares(ReversionLong); sh > 0 && (close > lowerExit || qOutside) {
		if filled, sig := s.place(bar, -sh, TagCloseBuyReversion); filled != 0 {
			s.ledger.Flatten(ReversionLong)
			out = append(out, sig)
		}
	}

	// Breakout legs close only once trend quality has returned inside the
	// band — opposite polarity from the reversion exits above.
	if sh := s.ledger.Shares(BreakoutLong); sh > 0 && close < upperExit && q > s.cfg.LowThreshold && q < s.cfg.HighThreshold {
		if filled, sig := s.place(bar, -sh, TagCloseBuyBreakout); filled != 0 {
			s.ledger.Flatten(BreakoutLong)
			out = append(out, sig)
		}
	}
	if sh := s.ledger.Shares(BreakoutShort); sh > 0 && close > lowerExit && q > s.cfg.LowThreshold && q < s.cfg.HighThreshold {
		if filled, sig := s.place(bar, sh, TagCloseSellBreakout); filled != 0 {
			s.ledger.Flatten(BreakoutShort)
			out = append(out, sig)
		}
	}

	return out
}

// place submits a signed order and returns the absolute filled quantity plus
// the signal describing it. Returns 0 on zero-qty requests and broker errors.
func (s *RegimeStrategy) place(bar model.Bar, qty int64, tag string) (int64, Signal) {
	if qty == 0 {
		return 0, Signal{}
	}
	filled, err := s.broker.PlaceOrder(qty, tag)
	if err != nil {
		slog.Warn("order rejected",
			"strategy", s.name, "tag", tag, "qty", qty, "token", bar.Token, "err", err)
		return 0, Signal{}
	}
	if filled == 0 {
		return 0, Signal{}
	}

	action := ActionBuy
	if filled < 0 {
		action = ActionSell
	}
	abs := filled
	if abs < 0 {
		abs = -abs
	}
	return abs, Signal{
		StrategyName: s.name,
		Action:       action,
		Token:        bar.Token,
		Exchange:     bar.Exchange,
		Qty:          abs,
		Price:        bar.Close,
		Tag:          tag,
		TS:           bar.TS,
	}
}
