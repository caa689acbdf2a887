package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"arena-survival/internal/config"
	"arena-survival/internal/game"
	"arena-survival/internal/observability"
)

const (
	writeWait      = 2 * time.Second
	maxMessageSize = 4096
)

// wsClient tracks a WebSocket connection with its source IP
type wsClient struct {
	conn   *websocket.Conn
	ip     string
	binary bool // msgpack frames instead of JSON text

	writeMu sync.Mutex
}

// write sends one frame. gorilla allows a single concurrent writer, and both
// the hub and the read loop's replies write here.
func (c *wsClient) write(msg encodedMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if c.binary {
		return c.conn.WriteMessage(websocket.BinaryMessage, msg.binary)
	}
	return c.conn.WriteMessage(websocket.TextMessage, msg.text)
}

// encodedMessage carries one event in both wire formats.
type encodedMessage struct {
	text   []byte
	binary []byte
}

type wsEnvelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

func encodeEvent(event string, data interface{}) (encodedMessage, error) {
	env := wsEnvelope{Event: event, Data: data}
	text, err := json.Marshal(env)
	if err != nil {
		return encodedMessage{}, err
	}
	bin, err := encodeMsgpack(env)
	if err != nil {
		return encodedMessage{}, err
	}
	return encodedMessage{text: text, binary: bin}, nil
}

// WebSocketHub manages all WebSocket connections with DoS protection
type WebSocketHub struct {
	clients   map[*wsClient]struct{}
	broadcast chan encodedMessage
	mu        sync.RWMutex

	conns    *connLimiter
	origins  originChecker
	upgrader websocket.Upgrader

	sim SimulationInterface
	log zerolog.Logger
}

// NewWebSocketHub creates a hub enforcing cfg's connection caps and
// origins. Inbound command messages are queued on sim.
func NewWebSocketHub(sim SimulationInterface, cfg config.ServerConfig, logger zerolog.Logger) *WebSocketHub {
	h := &WebSocketHub{
		clients:   make(map[*wsClient]struct{}),
		broadcast: make(chan encodedMessage, 256),
		conns:     newConnLimiter(cfg.WSMaxPerIP, cfg.WSMaxTotal),
		origins:   newOriginChecker(cfg.CORSOrigins),
		sim:       sim,
		log:       logger.With().Str("component", "ws").Logger(),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *WebSocketHub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if h.origins.allowed(origin) {
		return true
	}

	// Log rejected origin for security monitoring
	h.log.Warn().Str("origin", origin).Msg("⚠️ WebSocket connection rejected")
	observability.RecordConnectionRejected("origin")
	return false
}

// Run fans broadcast messages out to every client until ctx is done, then
// closes all connections.
func (h *WebSocketHub) Run(ctx context.Context) {
	var targets []*wsClient
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case msg := <-h.broadcast:
			targets = targets[:0]
			h.mu.RLock()
			for c := range h.clients {
				targets = append(targets, c)
			}
			h.mu.RUnlock()

			for _, c := range targets {
				if err := c.write(msg); err != nil {
					h.log.Debug().Err(err).Str("ip", c.ip).Msg("Dropping slow or closed client")
					h.removeClient(c)
				}
			}
			observability.IncrementWSMessages()
		}
	}
}

func (h *WebSocketHub) addClient(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.log.Info().Str("ip", c.ip).Bool("binary", c.binary).Int("total", count).Msg("📱 Client connected")
	observability.UpdateWSConnections(count)
}

// removeClient is safe to call more than once for the same client.
func (h *WebSocketHub) removeClient(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	count := len(h.clients)
	h.mu.Unlock()

	if !ok {
		return
	}
	h.conns.release(c.ip)
	c.conn.Close()

	h.log.Info().Str("ip", c.ip).Int("remaining", count).Msg("📱 Client disconnected")
	observability.UpdateWSConnections(count)
}

func (h *WebSocketHub) closeAll() {
	h.mu.RLock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.removeClient(c)
	}
}

// Broadcast sends a message to all connected clients
func (h *WebSocketHub) Broadcast(event string, data interface{}) {
	msg, err := encodeEvent(event, data)
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("❌ Broadcast encode failed")
		return
	}

	select {
	case h.broadcast <- msg:
	default:
		// Channel full, skip (backpressure)
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// StartBroadcastLoop pushes the latest snapshot as "game:state" at rate
// messages per second until ctx is done. A snapshot is sent once; paused
// simulations stop publishing and so stop producing messages.
func (h *WebSocketHub) StartBroadcastLoop(ctx context.Context, rate int) {
	if rate <= 0 {
		rate = 20
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))

	go func() {
		defer ticker.Stop()
		var lastSeq uint64
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			if h.ClientCount() == 0 {
				continue
			}
			snap := h.sim.Snapshot()
			if snap == nil || snap.Sequence == lastSeq {
				continue
			}
			lastSeq = snap.Sequence
			h.Broadcast("game:state", snap)
		}
	}()
}

// HandleWebSocket handles incoming WebSocket connections with DoS protection.
// Clients that connect with ?format=msgpack receive binary msgpack frames.
func (h *WebSocketHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	// Get client IP for rate limiting
	ip := GetClientIP(r)

	switch err := h.conns.acquire(ip); {
	case errors.Is(err, errHubFull):
		h.log.Warn().Str("ip", ip).Msg("⚠️ WebSocket connection rejected: total limit reached")
		observability.RecordConnectionRejected("ws_total_limit")
		http.Error(w, "Too many connections", http.StatusServiceUnavailable)
		return
	case err != nil:
		h.log.Warn().Str("ip", ip).Msg("⚠️ WebSocket connection rejected: per-IP limit reached")
		observability.RecordConnectionRejected("ws_ip_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Str("ip", ip).Msg("WebSocket upgrade failed")
		h.conns.release(ip)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	client := &wsClient{
		conn:   conn,
		ip:     ip,
		binary: r.URL.Query().Get("format") == "msgpack",
	}
	h.addClient(client)

	go h.readLoop(client)
}

// readLoop turns inbound {"type": ...} messages into queued commands.
// Malformed or rejected messages get an "error" reply on the same socket.
func (h *WebSocketHub) readLoop(c *wsClient) {
	defer h.removeClient(c)

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		req, err := decodeControl(msgType, message)
		if err != nil {
			h.reply(c, "error", map[string]string{"error": "invalid message"})
			continue
		}

		build, ok := commandsByType[req.Type]
		if !ok {
			h.reply(c, "error", map[string]string{"error": "unknown type: " + req.Type})
			continue
		}
		cmd, err := build(req)
		if err != nil {
			h.reply(c, "error", map[string]string{"error": err.Error()})
			continue
		}
		if err := h.sim.Enqueue(cmd); err != nil {
			h.reply(c, "error", map[string]string{"error": err.Error()})
			continue
		}
		h.log.Debug().Str("ip", c.ip).Str("command", cmd.Kind.String()).Msg("📨 Command queued")
	}
}

func (h *WebSocketHub) reply(c *wsClient, event string, data interface{}) {
	msg, err := encodeEvent(event, data)
	if err != nil {
		return
	}
	if err := c.write(msg); err != nil {
		c.conn.Close()
	}
}

func decodeControl(msgType int, message []byte) (controlRequest, error) {
	var req controlRequest
	if msgType == websocket.BinaryMessage {
		dec := msgpack.NewDecoder(bytes.NewReader(message))
		dec.SetCustomStructTag("json")
		err := dec.Decode(&req)
		return req, err
	}
	err := json.Unmarshal(message, &req)
	return req, err
}

// eventCallbacks forwards simulation hooks to websocket clients.
func (h *WebSocketHub) eventCallbacks() game.Callbacks {
	return game.Callbacks{
		OnPlayerDeath: func(info game.PlayerDeathInfo) {
			h.Broadcast("game:player_death", map[string]interface{}{
				"runId":     info.RunID,
				"tick":      info.Tick,
				"level":     info.Level,
				"kills":     info.Kills,
				"bossKills": info.BossKills,
			})
		},
		OnBossDefeated: func(info game.BossDefeatedInfo) {
			h.Broadcast("game:boss_defeated", map[string]interface{}{
				"tier":      info.Tier,
				"variant":   info.Variant,
				"bossKills": info.BossKills,
				"tick":      info.Tick,
			})
		},
		OnLevelUp: func(info game.LevelUpInfo) {
			h.Broadcast("game:level_up", map[string]interface{}{
				"runId": info.RunID,
				"tick":  info.Tick,
				"level": info.Level,
			})
		},
		OnChestCollected: func(info game.ChestInfo) {
			h.Broadcast("game:chest", map[string]interface{}{
				"tick":   info.Tick,
				"x":      info.X,
				"y":      info.Y,
				"reward": info.Reward,
			})
		},
	}
}
