// Package gateway exposes a WebSocket fan-out so dashboards can follow
// bars, indicator values, signals and portfolio state in real time.
package gateway

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"regime-systemv1/internal/model"
	"regime-systemv1/internal/portfolio"
	"regime-systemv1/internal/strategy"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Observer-only endpoint; origin enforcement happens at the reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub manages WebSocket clients and broadcasts channel envelopes to them.
// Each channel keeps its latest envelope so new clients get an immediate
// snapshot on connect.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]latestEntry
	seq     int64

	// OnClientChange is called with the new client count after every
	// connect/disconnect. Used to drive the connected-clients gauge.
	OnClientChange func(count int)
}

type latestEntry struct {
	Data json.RawMessage
	TS   time.Time
	Seq  int64
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		latest:  make(map[string]latestEntry),
	}
}

// Broadcast sends data on a named channel to all connected clients and
// records it as the channel's latest value. Slow clients have the message
// dropped rather than blocking the pipeline.
func (h *Hub) Broadcast(channel string, data []byte) {
	now := time.Now()

	h.mu.Lock()
	h.seq++
	seq := h.seq
	h.latest[channel] = latestEntry{Data: data, TS: now, Seq: seq}
	envelope, err := json.Marshal(wsEnvelope{
		Channel: channel,
		Data:    data,
		TS:      now.Format(time.RFC3339Nano),
		Seq:     seq,
	})
	if err != nil {
		h.mu.Unlock()
		return
	}
	for client := range h.clients {
		select {
		case client.send <- envelope:
		default:
		}
	}
	h.mu.Unlock()
}

// BroadcastBar publishes a completed bar on its "bar:{exchange}:{token}" channel.
func (h *Hub) BroadcastBar(bar model.Bar) {
	h.Broadcast("bar:"+bar.Key(), bar.JSON())
}

// BroadcastIndicator publishes an indicator result on "ind:{name}:{exchange}:{token}".
func (h *Hub) BroadcastIndicator(res model.IndicatorResult) {
	h.Broadcast("ind:"+res.Name+":"+res.Exchange+":"+res.Token, res.JSON())
}

// BroadcastSignal publishes a trade signal on "signal:{exchange}:{token}".
func (h *Hub) BroadcastSignal(sig strategy.Signal) {
	data, err := json.Marshal(sig)
	if err != nil {
		return
	}
	h.Broadcast("signal:"+sig.Exchange+":"+sig.Token, data)
}

// BroadcastSummary publishes a portfolio summary on the "portfolio" channel.
func (h *Hub) BroadcastSummary(sum portfolio.Summary) {
	data, err := json.Marshal(sum)
	if err != nil {
		return
	}
	h.Broadcast("portfolio", data)
}

// HandleWS upgrades an HTTP request to WebSocket and registers the client.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err, "remote", r.RemoteAddr)
		return
	}

	client := &Client{
		conn: conn,
		send: make(chan []byte, 256),
		hub:  h,
	}

	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()
	h.notifyClientChange(count)

	slog.Info("ws client connected", "total", count, "remote", r.RemoteAddr)

	go client.sendInitialState()
	go client.writePump()
	go client.readPump()
}

// RemoveClient removes a client from the hub.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	count := len(h.clients)
	h.mu.Unlock()
	close(c.send)
	h.notifyClientChange(count)
}

func (h *Hub) notifyClientChange(count int) {
	if h.OnClientChange != nil {
		h.OnClientChange(count)
	}
}

// GetLatestAll returns a snapshot of all latest channel data.
func (h *Hub) GetLatestAll() map[string]json.RawMessage {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cp := make(map[string]json.RawMessage, len(h.latest))
	for k, v := range h.latest {
		cp[k] = v.Data
	}
	return cp
}

// ClientCount returns the number of connected WS clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
