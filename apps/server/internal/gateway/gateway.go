// Package gateway owns the websocket edge: upgrade, session auth, the
// read/write pumps, and routing of client commands to matches.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"ludi-lite/apps/server/internal/auth"
	"ludi-lite/apps/server/internal/codec"
	"ludi-lite/apps/server/internal/lobby"
	"ludi-lite/apps/server/internal/match"
)

const (
	readLimit     = 65536
	pongWait      = 60 * time.Second
	pingPeriod    = 30 * time.Second
	writeWait     = 10 * time.Second
	sendQueueSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: Restrict in production
	},
}

// Connection is one authenticated websocket client.
type Connection struct {
	ID        string
	AccountID uint64
	Nickname  string
	Conn      *websocket.Conn
	Send      chan []byte
	Gateway   *Gateway

	mu    sync.Mutex
	match *match.Match
}

// Gateway manages websocket connections.
type Gateway struct {
	mu           sync.RWMutex
	connections  map[string]*Connection
	accountConns map[uint64]*Connection
	nextConnID   uint64

	auth  auth.Service
	lobby *lobby.Lobby
	log   zerolog.Logger
}

func New(authService auth.Service, lby *lobby.Lobby, logger zerolog.Logger) *Gateway {
	return &Gateway{
		connections:  make(map[string]*Connection),
		accountConns: make(map[uint64]*Connection),
		auth:         authService,
		lobby:        lby,
		log:          logger,
	}
}

// BroadcastToAccount delivers a push frame to one account's connection.
// Frames are dropped when the client's send queue is full.
func (g *Gateway) BroadcastToAccount(accountID uint64, data []byte) {
	g.mu.RLock()
	c := g.accountConns[accountID]
	g.mu.RUnlock()

	if c != nil {
		select {
		case c.Send <- data:
		default:
		}
	}
}

// HandleWebSocket authenticates the session token and upgrades the request.
// The token comes from the Authorization header or, for browser clients
// that cannot set headers on websocket requests, the token query parameter.
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := sessionToken(r)
	accountID, username, ok := g.auth.ResolveSession(token)
	if !ok {
		http.Error(w, "invalid session token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	g.mu.Lock()
	g.nextConnID++
	c := &Connection{
		ID:        fmt.Sprintf("conn_%d", g.nextConnID),
		AccountID: accountID,
		Nickname:  username,
		Conn:      conn,
		Send:      make(chan []byte, sendQueueSize),
		Gateway:   g,
	}
	// One connection per account; a reconnect displaces the old socket.
	if prev := g.accountConns[accountID]; prev != nil {
		prev.Conn.Close()
		delete(g.connections, prev.ID)
	}
	g.connections[c.ID] = c
	g.accountConns[accountID] = c
	total := len(g.connections)
	g.mu.Unlock()

	g.log.Info().Str("conn", c.ID).Uint64("account", accountID).Int("total", total).Msg("client connected")

	go c.readPump()
	go c.writePump()
}

func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); len(h) > 7 && h[:7] == "Bearer " {
		return h[7:]
	}
	return r.URL.Query().Get("token")
}

func (c *Connection) readPump() {
	defer func() {
		c.Gateway.removeConnection(c)
		c.leaveMatch()
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(readLimit)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Gateway.log.Warn().Err(err).Str("conn", c.ID).Msg("read error")
			}
			break
		}
		if messageType == websocket.TextMessage {
			c.handleMessage(message)
		}
	}
}

func (c *Connection) handleMessage(data []byte) {
	env, err := codec.Decode(data)
	if err != nil {
		c.send(codec.Error("invalid message format"))
		return
	}
	kind, err := codec.ParseCommand(env.Command)
	if err != nil {
		c.send(codec.Error(err.Error()))
		return
	}

	switch kind {
	case codec.CommandJoin:
		c.handleJoin(env.Payload)
	case codec.CommandLeave:
		c.leaveMatch()
		c.send(codec.Response(kind, true, ""))
	case codec.CommandHeartbeat:
		c.handleHeartbeat(env.Payload)
	case codec.CommandRoll, codec.CommandMove, codec.CommandSetBotPlayInterval, codec.CommandSpectate:
		c.handleMatchCommand(kind, env.Payload)
	default:
		c.send(codec.Error("unhandled command"))
	}
}

func (c *Connection) handleJoin(payload json.RawMessage) {
	var req codec.JoinPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			c.send(codec.Error("invalid join payload"))
			return
		}
	}

	var m *match.Match
	var err error
	if req.MatchID != "" {
		m, err = c.Gateway.lobby.Get(req.MatchID)
	} else {
		m, err = c.Gateway.lobby.QuickStart(c.AccountID)
	}
	if err != nil {
		c.send(codec.Error(err.Error()))
		return
	}

	if err := m.SubmitEvent(match.Event{
		Type:      match.EventJoin,
		AccountID: c.AccountID,
		Nickname:  c.Nickname,
	}); err != nil {
		c.send(codec.Error(err.Error()))
		return
	}

	c.mu.Lock()
	c.match = m
	c.mu.Unlock()

	var seat *int
	if s, ok := m.SeatOf(c.AccountID); ok {
		seat = &s
	}
	c.send(codec.Joined(m.ID, seat))
}

func (c *Connection) handleHeartbeat(payload json.RawMessage) {
	m := c.currentMatch()
	if m == nil {
		c.send(codec.Error("not in a match"))
		return
	}
	var req codec.HeartbeatPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			c.send(codec.Error("invalid heartbeat payload"))
			return
		}
	}
	env, err := m.Heartbeat(c.AccountID, req.StateHash)
	if err != nil {
		c.send(codec.Error("heartbeat failed"))
		return
	}
	c.send(env)
}

func (c *Connection) handleMatchCommand(kind codec.CommandKind, payload json.RawMessage) {
	m := c.currentMatch()
	if m == nil {
		c.send(codec.Response(kind, false, "not in a match"))
		return
	}

	e := match.Event{
		Type:      match.EventCommand,
		AccountID: c.AccountID,
		Kind:      kind,
	}
	switch kind {
	case codec.CommandMove:
		if err := json.Unmarshal(payload, &e.Move); err != nil {
			c.send(codec.Response(kind, false, "invalid move payload"))
			return
		}
	case codec.CommandSetBotPlayInterval:
		if err := json.Unmarshal(payload, &e.Interval); err != nil {
			c.send(codec.Response(kind, false, "invalid interval payload"))
			return
		}
	}

	if err := m.SubmitEvent(e); err != nil {
		c.send(codec.Response(kind, false, err.Error()))
		return
	}
	c.send(codec.Response(kind, true, ""))
}

func (c *Connection) currentMatch() *match.Match {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.match
}

func (c *Connection) leaveMatch() {
	c.mu.Lock()
	m := c.match
	c.match = nil
	c.mu.Unlock()

	if m == nil {
		return
	}
	err := m.SubmitEvent(match.Event{
		Type:      match.EventLeave,
		AccountID: c.AccountID,
	})
	if err != nil && !errors.Is(err, match.ErrMatchClosed) {
		c.Gateway.log.Warn().Err(err).Str("conn", c.ID).Msg("leave failed")
	}
}

func (c *Connection) send(env codec.ServerEnvelope) {
	data, err := codec.Encode(env)
	if err != nil {
		return
	}
	select {
	case c.Send <- data:
	default:
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (g *Gateway) removeConnection(c *Connection) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.connections, c.ID)
	if g.accountConns[c.AccountID] == c {
		delete(g.accountConns, c.AccountID)
	}
	g.log.Info().Str("conn", c.ID).Int("total", len(g.connections)).Msg("client disconnected")
}
