package indicator

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
)

// Snapshottable is implemented by indicators that support state serialization.
type Snapshottable interface {
	Indicator
	Snapshot() IndicatorSnapshot
	RestoreFromSnapshot(snap IndicatorSnapshot) error
}

// IndicatorSnapshot holds the serialized state of a single indicator instance.
type IndicatorSnapshot struct {
	Type   string `json:"type"`   // "SMA", "EMA", "STDDEV", "LINREG", "BOLL", "TQ"
	Period int    `json:"period"` // window/period; noise length for TQ

	// Shared window fields
	Buf     []float64 `json:"buf,omitempty"`
	Count   int       `json:"count"`
	Sum     float64   `json:"sum,omitempty"`
	Current float64   `json:"current"`
	Ready   bool      `json:"ready,omitempty"`

	// EMA fields
	Multiplier float64 `json:"multiplier,omitempty"`

	// LINREG fields
	UpperMult float64 `json:"upper_mult,omitempty"`
	LowerMult float64 `json:"lower_mult,omitempty"`

	// BOLL fields
	Mult float64 `json:"mult,omitempty"`

	// TQ fields
	Smf        float64 `json:"smf,omitempty"`
	Correction float64 `json:"correction,omitempty"`
	NoiseMode  string  `json:"noise_mode,omitempty"`
	Cpc        float64 `json:"cpc,omitempty"`
	Trend      float64 `json:"trend,omitempty"`
	PrevClose  float64 `json:"prev_close,omitempty"`
	HasClose   bool    `json:"has_close,omitempty"`
	PrevSign   int     `json:"prev_sign,omitempty"`
	HasSign    bool    `json:"has_sign,omitempty"`

	// Nested sub-indicator states (BOLL: sma+stddev, TQ: fast+slow EMA)
	Sub []IndicatorSnapshot `json:"sub,omitempty"`
}

// TokenSnapshot holds indicator snapshots for a single token within a TF.
type TokenSnapshot struct {
	Token      string              `json:"token"`
	Exchange   string              `json:"exchange"`
	TF         int                 `json:"tf"`
	Indicators []IndicatorSnapshot `json:"indicators"`
}

// EngineSnapshot holds the full state of the indicator engine.
type EngineSnapshot struct {
	StreamID string          `json:"stream_id"` // bar stream position at checkpoint time
	Tokens   []TokenSnapshot `json:"tokens"`
	Version  int             `json:"version"` // schema version for forward compat
}

// Marshal serializes the engine snapshot to JSON.
func (es *EngineSnapshot) Marshal() ([]byte, error) {
	return json.Marshal(es)
}

// UnmarshalEngineSnapshot deserializes an engine snapshot from JSON.
func UnmarshalEngineSnapshot(data []byte) (*EngineSnapshot, error) {
	var es EngineSnapshot
	if err := json.Unmarshal(data, &es); err != nil {
		return nil, fmt.Errorf("snapshot decode: %w", err)
	}
	return &es, nil
}

// SnapshotEngine captures the full state of an indicator Engine.
func SnapshotEngine(e *Engine, streamID string) (*EngineSnapshot, error) {
	snap := &EngineSnapshot{
		StreamID: streamID,
		Version:  1,
	}

	for key, ti := range e.state {
		ts := TokenSnapshot{
			TF:         e.tf,
			Indicators: make([]IndicatorSnapshot, 0, len(ti.indicators)),
		}
		// Key format from Bar.Key() is "exchange:token".
		ts.Token = key
		for i := range key {
			if key[i] == ':' {
				ts.Exchange = key[:i]
				ts.Token = key[i+1:]
				break
			}
		}

		for _, ind := range ti.indicators {
			si, ok := ind.(Snapshottable)
			if !ok {
				return nil, fmt.Errorf("indicator %s does not implement Snapshottable", ind.Name())
			}
			ts.Indicators = append(ts.Indicators, si.Snapshot())
		}
		snap.Tokens = append(snap.Tokens, ts)
	}

	return snap, nil
}

// RestoreEngine rebuilds an indicator Engine from a snapshot.
// It is tolerant of config changes — indicators are matched by Type+Period
// rather than by index. Matching indicators get their state restored; new
// indicators start fresh (cold). Removed indicators are silently skipped.
func RestoreEngine(cfg EngineConfig, snap *EngineSnapshot) (*Engine, error) {
	e, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	if snap == nil {
		return e, nil
	}

	for _, ts := range snap.Tokens {
		if ts.TF != cfg.TF {
			continue // TF no longer configured — skip
		}

		ti, err := e.createTokenIndicators()
		if err != nil {
			return nil, err
		}

		// Build a lookup: "LINREG:100" → IndicatorSnapshot for fast matching.
		snapLookup := make(map[string]IndicatorSnapshot, len(ts.Indicators))
		for _, indSnap := range ts.Indicators {
			snapLookup[snapKey(indSnap.Type, indSnap.Period)] = indSnap
		}

		restored, cold := 0, 0
		for i, ind := range ti.indicators {
			c := ti.configs[i]
			indSnap, found := snapLookup[snapKey(c.Type, c.snapPeriod())]
			if !found {
				cold++
				continue // new indicator — stays fresh/zero
			}

			si, ok := ind.(Snapshottable)
			if !ok {
				cold++
				continue
			}
			if err := si.RestoreFromSnapshot(indSnap); err != nil {
				// Non-fatal: leave cold
				cold++
				continue
			}
			restored++
		}

		if cold > 0 {
			slog.Warn("partial indicator restore",
				"tf", ts.TF, "token", ts.Token, "restored", restored, "cold", cold)
		}

		key := ts.Token
		if ts.Exchange != "" {
			key = ts.Exchange + ":" + ts.Token
		}
		e.state[key] = ti
	}

	return e, nil
}

func snapKey(typ string, period int) string {
	return typ + ":" + strconv.Itoa(period)
}
