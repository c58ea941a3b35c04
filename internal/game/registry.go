package game

import (
	"sync"

	"github.com/rs/zerolog/log"
)

// Registry is the process-wide index of live sessions by identifier.
// Sessions are added at pairing time and removed when the last player is
// gone; at game over a session stays registered so a rematch can reuse it.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers a session under its identifier.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID()] = s
}

// Get looks up a session by identifier.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[id]
	return s, ok
}

// Remove deregisters a session. No-op if absent.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// HandleDisconnect removes the given player from whichever session holds
// them. Disconnection is the only cancellation signal from clients.
func (r *Registry) HandleDisconnect(playerID string) {
	r.mu.RLock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	for _, s := range sessions {
		if s.HasPlayer(playerID) {
			log.Info().Str("game_id", s.ID()).Str("player_id", playerID).Msg("removing disconnected player from session")
			s.Disconnect(playerID)
		}
	}
}
