package gateway

import "encoding/json"

// wsEnvelope wraps every message pushed to WebSocket clients.
type wsEnvelope struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
	TS      string          `json:"ts"`
	Seq     int64           `json:"seq"`
	Initial bool            `json:"initial,omitempty"`
}
