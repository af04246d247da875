package web

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"hubdeck/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 90 * time.Second
	wsPingPeriod = 30 * time.Second
	wsSendBuffer = 64
)

// newUpgrader validates Origin against allowed origins. With none configured
// only requests whose Origin matches the Host are accepted.
func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if len(allowed) > 0 {
				return allowed[origin]
			}
			return origin == "http://"+r.Host || origin == "https://"+r.Host
		},
	}
}

type WSClient struct {
	hub      *WSHub
	conn     *websocket.Conn
	send     chan []byte
	user     Principal
	channels map[string]bool
	mu       sync.RWMutex
}

func (c *WSClient) subscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return channel == "" || c.channels[channel]
}

type WSMessage struct {
	Type    string `json:"type"`
	Channel string `json:"channel,omitempty"`
	Data    any    `json:"data"`
}

// SubscribeFunc returns the message sent to a client right after it
// subscribes to channel, or false for nothing.
type SubscribeFunc func(channel string) (WSMessage, bool)

type WSHub struct {
	clients        map[*WSClient]bool
	broadcast      chan WSMessage
	register       chan *WSClient
	unregister     chan *WSClient
	mu             sync.RWMutex
	allowedOrigins []string
	onSubscribe    SubscribeFunc
	done           chan struct{}
}

func NewWSHub(allowedOrigins []string) *WSHub {
	return &WSHub{
		clients:        make(map[*WSClient]bool),
		broadcast:      make(chan WSMessage, 256),
		register:       make(chan *WSClient),
		unregister:     make(chan *WSClient),
		allowedOrigins: allowedOrigins,
		done:           make(chan struct{}),
	}
}

func (h *WSHub) OnSubscribe(fn SubscribeFunc) { h.onSubscribe = fn }

// Run owns client registration and fan-out until ctx is cancelled, then
// closes every client.
func (h *WSHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			logger.WS.Debug().Str("user", client.user.Username).Int("clients", n).Msg("client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			logger.WS.Debug().Int("clients", n).Msg("client disconnected")

		case msg := <-h.broadcast:
			h.fanOut(msg)
		}
	}
}

func (h *WSHub) fanOut(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.WS.Error().Err(err).Str("type", msg.Type).Msg("encode broadcast failed")
		return
	}
	var stale []*WSClient
	h.mu.RLock()
	for client := range h.clients {
		if !client.subscribed(msg.Channel) {
			continue
		}
		select {
		case client.send <- data:
		default:
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	if len(stale) > 0 {
		h.mu.Lock()
		for _, c := range stale {
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
		}
		h.mu.Unlock()
		logger.WS.Warn().Int("dropped", len(stale)).Msg("slow clients dropped")
	}
}

// Broadcast queues msg for every client subscribed to channel. It never
// blocks: when the queue is full the message is dropped.
func (h *WSHub) Broadcast(channel, msgType string, data any) {
	select {
	case h.broadcast <- WSMessage{Type: msgType, Channel: channel, Data: data}:
	default:
		logger.WS.Warn().Str("type", msgType).Msg("broadcast queue full, message dropped")
	}
}

func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWS authenticates with the same token sources as the REST API plus
// the token query parameter, which browsers need for WebSocket.
func (h *WSHub) HandleWS(jwtSecret string) http.HandlerFunc {
	upgrader := newUpgrader(h.allowedOrigins)
	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr := TokenFromRequest(r, true)
		if tokenStr == "" {
			FailErr(w, r, ErrUnauthorized)
			return
		}
		claims, err := ValidateJWT(tokenStr, jwtSecret)
		if err != nil {
			FailErr(w, r, ErrTokenExpired)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.WS.Error().Err(err).Msg("websocket upgrade failed")
			return
		}

		client := &WSClient{
			hub:      h,
			conn:     conn,
			send:     make(chan []byte, wsSendBuffer),
			user:     claims.Principal(),
			channels: make(map[string]bool),
		}
		select {
		case h.register <- client:
		case <-h.done:
			conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

type wsCommand struct {
	Action   string   `json:"action"`
	Channel  string   `json:"channel"`
	Channels []string `json:"channels"`
}

func (c *WSClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var cmd wsCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			continue
		}
		switch cmd.Action {
		case "subscribe":
			channels := cmd.Channels
			if cmd.Channel != "" {
				channels = append(channels, cmd.Channel)
			}
			c.mu.Lock()
			for _, ch := range channels {
				c.channels[ch] = true
			}
			c.mu.Unlock()
			for _, ch := range channels {
				c.greet(ch)
			}
		case "unsubscribe":
			c.mu.Lock()
			delete(c.channels, cmd.Channel)
			for _, ch := range cmd.Channels {
				delete(c.channels, ch)
			}
			c.mu.Unlock()
		case "ping":
			resp, _ := json.Marshal(map[string]string{"action": "pong"})
			c.trySend(resp)
		}
	}
}

func (c *WSClient) greet(channel string) {
	if c.hub.onSubscribe == nil {
		return
	}
	msg, ok := c.hub.onSubscribe(channel)
	if !ok {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.trySend(data)
}

// trySend may race with the hub closing send; the recover covers that window.
func (c *WSClient) trySend(data []byte) {
	defer func() { _ = recover() }()
	select {
	case c.send <- data:
	default:
	}
}

func (c *WSClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
