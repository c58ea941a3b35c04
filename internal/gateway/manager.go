package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/factduel/factduel/internal/game"
)

// Config holds configuration for WebSocket connections.
type Config struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConfig returns the default WebSocket configuration.
func DefaultConfig() Config {
	return Config{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Cross-origin policy is enforced by the CORS layer in front.
			return true
		},
	}
}

type deliveryMode int

const (
	modeRoom deliveryMode = iota
	modeRoomExcept
	modePlayer
)

// outbound is one queued delivery. Deliveries are processed by a single
// goroutine so events reach a room in the order the engine emitted them.
type outbound struct {
	mode     deliveryMode
	roomID   string
	playerID string // target for modePlayer, excluded for modeRoomExcept
	event    game.Event
}

// Manager owns every live connection and the per-game rooms, and fans
// session events out to them. It implements game.Broadcaster.
type Manager struct {
	mu    sync.RWMutex
	conns map[string]*Connection
	rooms map[string]map[string]*Connection

	upgrader    websocket.Upgrader
	config      Config
	broadcastCh chan outbound

	// router receives decoded inbound frames; set once at wiring time.
	router *Router
}

// NewManager creates a connection manager.
func NewManager(config Config) *Manager {
	return &Manager{
		conns: make(map[string]*Connection),
		rooms: make(map[string]map[string]*Connection),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		broadcastCh: make(chan outbound, 1024),
	}
}

// SetRouter wires the inbound command router. Must be called before any
// connection is accepted.
func (m *Manager) SetRouter(r *Router) {
	m.router = r
}

// Run processes queued deliveries until the context is cancelled.
func (m *Manager) Run(ctx context.Context) {
	log.Info().Msg("connection manager started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case out := <-m.broadcastCh:
			m.deliver(out)
		}
	}
}

// JoinRoom adds connections to a game's room.
func (m *Manager) JoinRoom(gameID string, playerIDs ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	room := m.rooms[gameID]
	if room == nil {
		room = make(map[string]*Connection)
		m.rooms[gameID] = room
	}
	for _, id := range playerIDs {
		if conn, ok := m.conns[id]; ok {
			room[id] = conn
		}
	}
}

// LeaveRoom removes a connection from a game's room.
func (m *Manager) LeaveRoom(gameID, playerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if room, ok := m.rooms[gameID]; ok {
		delete(room, playerID)
		if len(room) == 0 {
			delete(m.rooms, gameID)
		}
	}
}

// CloseRoom drops a game's room entirely. The connections stay registered.
func (m *Manager) CloseRoom(gameID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, gameID)
}

// ToRoom queues an event for every connection in a game's room.
func (m *Manager) ToRoom(gameID string, event game.Event) {
	m.enqueue(outbound{mode: modeRoom, roomID: gameID, event: event})
}

// ToRoomExcept queues an event for every room member but one.
func (m *Manager) ToRoomExcept(gameID, exceptPlayerID string, event game.Event) {
	m.enqueue(outbound{mode: modeRoomExcept, roomID: gameID, playerID: exceptPlayerID, event: event})
}

// ToPlayer queues an event for a single connection, in or out of a room.
func (m *Manager) ToPlayer(playerID string, event game.Event) {
	m.enqueue(outbound{mode: modePlayer, playerID: playerID, event: event})
}

func (m *Manager) enqueue(out outbound) {
	select {
	case m.broadcastCh <- out:
	default:
		log.Warn().Str("event", string(out.event.Name)).Msg("broadcast channel full, dropping event")
	}
}

func (m *Manager) deliver(out outbound) {
	data, err := json.Marshal(out.event)
	if err != nil {
		log.Error().Err(err).Str("event", string(out.event.Name)).Msg("failed to marshal event")
		return
	}

	// Send while holding the read lock: unregister takes the write lock, so
	// a send channel cannot be closed under us.
	m.mu.RLock()
	var slow []*Connection
	send := func(conn *Connection) {
		select {
		case conn.send <- data:
		default:
			slow = append(slow, conn)
		}
	}
	switch out.mode {
	case modePlayer:
		if conn, ok := m.conns[out.playerID]; ok {
			send(conn)
		}
	default:
		for id, conn := range m.rooms[out.roomID] {
			if out.mode == modeRoomExcept && id == out.playerID {
				continue
			}
			send(conn)
		}
	}
	m.mu.RUnlock()

	// Slow or dead consumers are dropped outside the read lock.
	for _, conn := range slow {
		log.Warn().Str("connection_id", conn.id).Msg("send buffer full, closing connection")
		m.unregister(conn)
		conn.close()
	}
}

func (m *Manager) register(conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.conns[conn.id] = conn

	log.Debug().
		Str("connection_id", conn.id).
		Int("total_connections", len(m.conns)).
		Msg("connection registered")
}

func (m *Manager) unregister(conn *Connection) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.conns[conn.id]; !ok {
		return
	}
	delete(m.conns, conn.id)
	for gameID, room := range m.rooms {
		delete(room, conn.id)
		if len(room) == 0 {
			delete(m.rooms, gameID)
		}
	}
	close(conn.send)

	log.Info().
		Str("connection_id", conn.id).
		Str("username", conn.username).
		Msg("connection unregistered")
}

// Stats returns counts of live connections and rooms.
func (m *Manager) Stats() (connections, rooms int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.conns), len(m.rooms)
}
