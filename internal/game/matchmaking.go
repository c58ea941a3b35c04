package game

import (
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Conn is the transport-side view of a connected player. Implemented by the
// gateway's websocket connection.
type Conn interface {
	ID() string
	Username() string
	Connected() bool
}

// Matchmaker holds waiting connections and pairs the two oldest into a
// session. Matchmaking is best-effort: every failure path is a silent
// requeue or no-op, retried by the next arrival.
type Matchmaker struct {
	registry *Registry
	provider FactProvider
	bc       Broadcaster
	clock    clockwork.Clock

	mu      sync.Mutex
	waiting []Conn
}

// NewMatchmaker creates a matchmaker over the given registry.
func NewMatchmaker(registry *Registry, provider FactProvider, bc Broadcaster, clock clockwork.Clock) *Matchmaker {
	return &Matchmaker{
		registry: registry,
		provider: provider,
		bc:       bc,
		clock:    clock,
	}
}

// Enqueue adds a connection to the wait list and pairs if possible.
// Idempotent: a connection already waiting is moved to the back rather than
// duplicated, so retried requests cannot produce double entries.
func (m *Matchmaker) Enqueue(conn Conn) {
	m.mu.Lock()
	m.removeLocked(conn.ID())
	m.waiting = append(m.waiting, conn)
	waiting := len(m.waiting)
	m.mu.Unlock()

	log.Info().Str("player_id", conn.ID()).Str("username", conn.Username()).Int("waiting", waiting).Msg("player queued for matchmaking")
	m.bc.ToPlayer(conn.ID(), Event{Name: EventPlayerWaiting})

	m.tryPair()
}

// Remove drops a connection from the wait list. No-op if absent.
func (m *Matchmaker) Remove(connID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeLocked(connID)
}

// Waiting returns the current wait list length.
func (m *Matchmaker) Waiting() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.waiting)
}

func (m *Matchmaker) removeLocked(connID string) {
	for i, c := range m.waiting {
		if c.ID() == connID {
			m.waiting = append(m.waiting[:i], m.waiting[i+1:]...)
			return
		}
	}
}

// tryPair dequeues the two oldest waiters and creates a session. If either
// has since disconnected the survivor is requeued at the back and pairing is
// aborted for this cycle.
func (m *Matchmaker) tryPair() {
	m.mu.Lock()
	if len(m.waiting) < 2 {
		m.mu.Unlock()
		return
	}
	p1, p2 := m.waiting[0], m.waiting[1]
	m.waiting = m.waiting[2:]

	if !p1.Connected() || !p2.Connected() {
		log.Info().Msg("dequeued player disconnected during matchmaking, requeueing survivor")
		if p1.Connected() {
			m.waiting = append(m.waiting, p1)
		}
		if p2.Connected() {
			m.waiting = append(m.waiting, p2)
		}
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	gameID := uuid.New().String()
	sess := NewSession(gameID, []Conn{p1, p2}, m.provider, m.bc, m.clock, m.registry.Remove)
	m.registry.Add(sess)

	m.bc.JoinRoom(gameID, p1.ID(), p2.ID())
	m.bc.ToRoom(gameID, Event{Name: EventPlayerMatched, Data: gameID})

	log.Info().
		Str("game_id", gameID).
		Str("player1", p1.Username()).
		Str("player2", p2.Username()).
		Msg("players matched")

	m.clock.AfterFunc(matchStartDelay, sess.StartRound)
}
