package indicator

import (
	"context"
	"fmt"

	"regime-systemv1/internal/model"
)

// IndicatorConfig specifies a single indicator to compute.
// Only the fields relevant to Type need to be set.
type IndicatorConfig struct {
	Type   string // "SMA", "EMA", "STDDEV", "LINREG", "BOLL", "TQ"
	Period int    // window length for SMA/EMA/STDDEV/LINREG/BOLL

	// LINREG
	UpperDev float64
	LowerDev float64

	// BOLL
	Mult float64

	// TQ
	Fast        int
	Slow        int
	TrendLength int
	NoiseLength int
	Correction  float64
	NoiseMode   string
}

// snapPeriod returns the period under which this indicator's state is keyed
// in snapshots. TQ uses the noise length since it has no single Period.
func (c IndicatorConfig) snapPeriod() int {
	if c.Type == "TQ" {
		return c.NoiseLength
	}
	return c.Period
}

// EngineConfig holds the indicator set computed for every token on one TF.
type EngineConfig struct {
	TF         int // timeframe in seconds
	Indicators []IndicatorConfig
}

// tokenIndicators holds live indicator instances for one token.
type tokenIndicators struct {
	indicators []Indicator
	configs    []IndicatorConfig
}

// Engine computes a fixed set of indicators per token on a single timeframe.
// Designed for single-goroutine usage — no locks needed.
type Engine struct {
	tf      int
	configs []IndicatorConfig

	// state[tokenKey] → *tokenIndicators
	state map[string]*tokenIndicators
}

// NewEngine creates an indicator engine. Configs are validated eagerly so a
// bad period fails at startup rather than on the first bar.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	e := &Engine{
		tf:      cfg.TF,
		configs: cfg.Indicators,
		state:   make(map[string]*tokenIndicators, 64),
	}
	// Dry-run the factory once to surface config errors.
	if _, err := e.createTokenIndicators(); err != nil {
		return nil, err
	}
	return e, nil
}

// Process takes a finalized bar and updates all indicators for that token.
// Returns indicator results (may include not-ready indicators with Ready=false).
// Channel indicators additionally emit _UPPER and _LOWER band results.
func (e *Engine) Process(bar model.Bar) []model.IndicatorResult {
	if bar.TF != e.tf {
		return nil // TF not configured for indicators
	}

	key := bar.Key()
	ti, exists := e.state[key]
	if !exists {
		// First bar for this token — create indicator instances.
		// Configs were validated in NewEngine, so this cannot fail.
		ti, _ = e.createTokenIndicators()
		e.state[key] = ti
	}

	results := make([]model.IndicatorResult, 0, len(ti.indicators))
	for i, ind := range ti.indicators {
		ind.Update(bar)
		cfg := ti.configs[i]
		base := ind.Name() + "_" + model.Itoa(cfg.snapPeriod())
		results = append(results, model.IndicatorResult{
			Name:     base,
			Token:    bar.Token,
			Exchange: bar.Exchange,
			TF:       bar.TF,
			Value:    ind.Value(),
			TS:       bar.TS,
			Ready:    ind.Ready(),
		})
		if ch, ok := ind.(Channel); ok {
			results = append(results,
				model.IndicatorResult{
					Name:     base + "_UPPER",
					Token:    bar.Token,
					Exchange: bar.Exchange,
					TF:       bar.TF,
					Value:    ch.UpperBand(),
					TS:       bar.TS,
					Ready:    ind.Ready(),
				},
				model.IndicatorResult{
					Name:     base + "_LOWER",
					Token:    bar.Token,
					Exchange: bar.Exchange,
					TF:       bar.TF,
					Value:    ch.LowerBand(),
					TS:       bar.TS,
					Ready:    ind.Ready(),
				})
		}
	}

	return results
}

// Indicators returns the live indicator instances for a token, or nil if the
// token has not been seen yet. Used by strategies that read bands directly.
func (e *Engine) Indicators(key string) []Indicator {
	ti, ok := e.state[key]
	if !ok {
		return nil
	}
	return ti.indicators
}

// Run consumes bars and emits indicator results. Blocks until ctx done or
// the bar channel closes.
func (e *Engine) Run(ctx context.Context, barCh <-chan model.Bar, resultCh chan<- model.IndicatorResult) {
	for {
		select {
		case <-ctx.Done():
			return
		case bar, ok := <-barCh:
			if !ok {
				return
			}
			results := e.Process(bar)
			for _, r := range results {
				select {
				case resultCh <- r:
				default:
					// drop if channel full
				}
			}
		}
	}
}

// createTokenIndicators creates fresh indicator instances from the engine config.
func (e *Engine) createTokenIndicators() (*tokenIndicators, error) {
	inds := make([]Indicator, len(e.configs))
	for i, ic := range e.configs {
		ind, err := newIndicator(ic)
		if err != nil {
			return nil, fmt.Errorf("indicator %s: %w", ic.Type, err)
		}
		inds[i] = ind
	}
	return &tokenIndicators{
		indicators: inds,
		configs:    e.configs,
	}, nil
}

// newIndicator is the factory mapping a config to a live instance.
func newIndicator(ic IndicatorConfig) (Indicator, error) {
	switch ic.Type {
	case "SMA":
		return NewSMA(ic.Period)
	case "EMA":
		return NewEMA(ic.Period)
	case "STDDEV":
		return NewStdDev(ic.Period)
	case "LINREG":
		return NewLinRegChannel(ic.Period, ic.UpperDev, ic.LowerDev)
	case "BOLL":
		return NewBollinger(ic.Period, ic.Mult)
	case "TQ":
		return NewTrendQuality(ic.Fast, ic.Slow, ic.TrendLength, ic.NoiseLength, ic.Correction, NoiseMode(ic.NoiseMode))
	default:
		return nil, fmt.Errorf("unknown indicator type %q", ic.Type)
	}
}
