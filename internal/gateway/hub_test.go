package gateway

import (
	"encoding/json"
	"testing"
	"time"

	"regime-systemv1/internal/model"
	"regime-systemv1/internal/strategy"
)

func TestBroadcastCachesLatest(t *testing.T) {
	h := NewHub()

	h.Broadcast("portfolio", []byte(`{"total_pnl":100}`))
	h.Broadcast("portfolio", []byte(`{"total_pnl":200}`))

	latest := h.GetLatestAll()
	if len(latest) != 1 {
		t.Fatalf("expected 1 cached channel, got %d", len(latest))
	}

	var body map[string]interface{}
	if err := json.Unmarshal(latest["portfolio"], &body); err != nil {
		t.Fatalf("cached data not valid JSON: %v", err)
	}
	if body["total_pnl"] != float64(200) {
		t.Errorf("expected latest value 200, got %v", body["total_pnl"])
	}
}

func TestBroadcastSeqIsMonotonic(t *testing.T) {
	h := NewHub()
	c := &Client{hub: h, send: make(chan []byte, 16)}
	h.clients[c] = true

	h.Broadcast("a", []byte(`1`))
	h.Broadcast("b", []byte(`2`))
	h.Broadcast("a", []byte(`3`))

	var prev int64
	for i := 0; i < 3; i++ {
		select {
		case raw := <-c.send:
			var env wsEnvelope
			if err := json.Unmarshal(raw, &env); err != nil {
				t.Fatalf("envelope %d not valid JSON: %v", i, err)
			}
			if env.Seq <= prev {
				t.Errorf("seq not monotonic: %d after %d", env.Seq, prev)
			}
			prev = env.Seq
			if _, err := time.Parse(time.RFC3339Nano, env.TS); err != nil {
				t.Errorf("envelope %d ts not RFC3339Nano: %v", i, err)
			}
		default:
			t.Fatalf("expected 3 envelopes, got %d", i)
		}
	}
}

func TestBroadcastDropsForSlowClient(t *testing.T) {
	h := NewHub()
	c := &Client{hub: h, send: make(chan []byte, 1)}
	h.clients[c] = true

	h.Broadcast("bar:NSE:99926000", []byte(`1`))
	h.Broadcast("bar:NSE:99926000", []byte(`2`)) // buffer full, dropped

	if got := len(c.send); got != 1 {
		t.Fatalf("expected 1 queued message, got %d", got)
	}
}

func TestBroadcastBarChannelName(t *testing.T) {
	h := NewHub()
	c := &Client{hub: h, send: make(chan []byte, 16)}
	h.clients[c] = true

	h.BroadcastBar(model.Bar{Token: "99926000", Exchange: "NSE", TF: 60, Close: 10500})

	raw := <-c.send
	var env wsEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("envelope not valid JSON: %v", err)
	}
	if env.Channel != "bar:NSE:99926000" {
		t.Errorf("expected channel bar:NSE:99926000, got %s", env.Channel)
	}

	var bar model.Bar
	if err := json.Unmarshal(env.Data, &bar); err != nil {
		t.Fatalf("bar payload not valid JSON: %v", err)
	}
	if bar.Close != 10500 {
		t.Errorf("expected close 10500, got %d", bar.Close)
	}
}

func TestBroadcastSignalChannelName(t *testing.T) {
	h := NewHub()

	h.BroadcastSignal(strategy.Signal{
		StrategyName: "Regime_Channel",
		Action:       strategy.ActionBuy,
		Token:        "99926000",
		Exchange:     "NSE",
		Qty:          10,
		Tag:          "Buy Reversion",
	})

	latest := h.GetLatestAll()
	if _, ok := latest["signal:NSE:99926000"]; !ok {
		t.Fatalf("expected cached signal channel, have %v", keys(latest))
	}
}

func TestClientChangeCallback(t *testing.T) {
	h := NewHub()
	var counts []int
	h.OnClientChange = func(n int) { counts = append(counts, n) }

	c := &Client{hub: h, send: make(chan []byte, 1)}
	h.clients[c] = true
	h.RemoveClient(c)
	h.RemoveClient(c) // double remove is a no-op

	if len(counts) != 1 || counts[0] != 0 {
		t.Errorf("expected single callback with 0, got %v", counts)
	}
	if h.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", h.ClientCount())
	}
}

func keys(m map[string]json.RawMessage) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
