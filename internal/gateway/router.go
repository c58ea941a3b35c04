package gateway

import (
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/factduel/factduel/internal/game"
)

// Inbound command names. Together with the implicit transport-level
// disconnect they form the closed set of client commands.
const (
	cmdFindOpponent     = "player:findOpponent"
	cmdGuess            = "game:guess"
	cmdRequestFact      = "game:requestFact"
	cmdRequestNextRound = "game:requestNextRound"
	cmdRequestRematch   = "game:requestRematch"
	cmdLeaveGame        = "game:leaveGame"
)

// clientMessage is the wire shape of an inbound frame.
type clientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// gamePayload covers the fields used by the game:* commands; commands that
// don't carry a field simply leave it empty.
type gamePayload struct {
	GameID   string `json:"gameId"`
	PlayerID string `json:"playerId"`
	Guess    string `json:"guess"`
}

// Router dispatches decoded client commands to the matchmaking queue and
// the session registry. Commands referencing unknown sessions are logged
// and dropped; the client may be racing a just-ended game.
type Router struct {
	matchmaker *game.Matchmaker
	registry   *game.Registry
	bc         game.Broadcaster
}

// NewRouter creates a router over the matchmaker and registry.
func NewRouter(matchmaker *game.Matchmaker, registry *game.Registry, bc game.Broadcaster) *Router {
	return &Router{
		matchmaker: matchmaker,
		registry:   registry,
		bc:         bc,
	}
}

// Dispatch routes one inbound frame from a connection.
func (r *Router) Dispatch(conn *Connection, raw []byte) {
	var msg clientMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		log.Warn().Err(err).Str("connection_id", conn.ID()).Msg("malformed client frame")
		return
	}

	var payload gamePayload
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			log.Warn().Err(err).Str("connection_id", conn.ID()).Str("event", msg.Event).Msg("malformed command payload")
			return
		}
	}

	switch msg.Event {
	case cmdFindOpponent:
		r.matchmaker.Enqueue(conn)

	case cmdGuess:
		if sess, ok := r.session(conn, msg.Event, payload.GameID); ok {
			sess.Guess(payload.PlayerID, payload.Guess)
		}

	case cmdRequestFact:
		if sess, ok := r.session(conn, msg.Event, payload.GameID); ok {
			sess.RequestFact(payload.PlayerID)
		}

	case cmdRequestNextRound:
		if sess, ok := r.session(conn, msg.Event, payload.GameID); ok {
			sess.RequestNextRound(conn.ID())
		}

	case cmdRequestRematch:
		if sess, ok := r.session(conn, msg.Event, payload.GameID); ok {
			sess.RequestRematch(conn.ID())
		}

	case cmdLeaveGame:
		sess, ok := r.registry.Get(payload.GameID)
		if !ok {
			// Acknowledge anyway so the client can re-enter matchmaking.
			log.Warn().Str("connection_id", conn.ID()).Str("game_id", payload.GameID).Msg("leave for unknown game")
			r.bc.ToPlayer(conn.ID(), game.Event{Name: game.EventLeftSuccess})
			return
		}
		sess.Leave(conn.ID())

	default:
		log.Warn().Str("connection_id", conn.ID()).Str("event", msg.Event).Msg("unknown client command")
	}
}

// HandleDisconnect reconciles a dropped connection: out of the wait list,
// out of whichever session holds it.
func (r *Router) HandleDisconnect(conn *Connection) {
	log.Info().Str("connection_id", conn.ID()).Str("username", conn.Username()).Msg("client disconnected")
	r.matchmaker.Remove(conn.ID())
	r.registry.HandleDisconnect(conn.ID())
}

func (r *Router) session(conn *Connection, event, gameID string) (*game.Session, bool) {
	sess, ok := r.registry.Get(gameID)
	if !ok {
		log.Warn().Str("connection_id", conn.ID()).Str("event", event).Str("game_id", gameID).Msg("command for unknown game")
	}
	return sess, ok
}
