package model

import (
	"encoding/json"
	"time"
)

// Bar represents one aggregated OHLC price bar for a single instrument at a
// fixed interval. Bars arrive from the host aggregator already consolidated,
// strictly in timestamp order. All prices are in paise (int64) to avoid
// floating-point drift on the wire.
type Bar struct {
	Token    string    `json:"token"`
	Exchange string    `json:"exchange"`
	TF       int       `json:"tf"`     // bar interval in seconds (e.g. 300 = 5m)
	TS       time.Time `json:"ts"`     // bucket start time (UTC, TF-aligned)
	Open     int64     `json:"open"`   // paise
	High     int64     `json:"high"`   // paise
	Low      int64     `json:"low"`    // paise
	Close    int64     `json:"close"`  // paise
	Volume   int64     `json:"volume"` // cumulative quantity
}

// Key returns a unique key for this bar's instrument: "exchange:token".
func (b *Bar) Key() string {
	return b.Exchange + ":" + b.Token
}

// StreamKey returns the Redis stream key the host aggregator publishes to:
// "bars:{TF}s:{exchange}:{token}".
func (b *Bar) StreamKey() string {
	return "bars:" + Itoa(b.TF) + "s:" + b.Exchange + ":" + b.Token
}

// JSON returns the JSON-encoded bar (ignoring errors for hot-path usage).
func (b *Bar) JSON() []byte {
	data, _ := json.Marshal(b)
	return data
}

// IndicatorResult holds a computed indicator value for a specific token + TF.
type IndicatorResult struct {
	Name     string    `json:"name"` // e.g. "LINREG_100", "TQ_250", "STDDEV_20"
	Token    string    `json:"token"`
	Exchange string    `json:"exchange"`
	TF       int       `json:"tf"`
	Value    float64   `json:"value"`
	TS       time.Time `json:"ts"`    // bar timestamp that produced this value
	Ready    bool      `json:"ready"` // true once the indicator's warm-up is complete
}

// StreamKey returns the Redis stream key: "ind:{name}:{TF}s:{exchange}:{token}".
func (r *IndicatorResult) StreamKey() string {
	return "ind:" + r.Name + ":" + Itoa(r.TF) + "s:" + r.Exchange + ":" + r.Token
}

// JSON returns the JSON-encoded indicator result.
func (r *IndicatorResult) JSON() []byte {
	data, _ := json.Marshal(r)
	return data
}
