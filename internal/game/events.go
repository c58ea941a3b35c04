package game

// EventType names an outbound event. The values are the wire-level event
// names consumed by clients.
type EventType string

const (
	EventPlayerWaiting EventType = "player:waiting"
	EventPlayerMatched EventType = "player:matched"

	EventGameStart   EventType = "game:start"
	EventTimerUpdate EventType = "game:timerUpdate"
	EventNewFact     EventType = "game:newFact"
	EventNoMoreFacts EventType = "game:noMoreFacts"
	EventGuessResult EventType = "game:guessResult"
	EventRoundOver   EventType = "game:roundOver"
	EventGameOver    EventType = "game:gameOver"

	EventOpponentReadyForNextRound EventType = "game:opponentReadyForNextRound"
	EventReadyForNextRoundAck      EventType = "game:player:readyForNextRoundAck"
	EventOpponentReadyForRematch   EventType = "game:opponentReadyForRematch"
	EventReadyForRematchAck        EventType = "game:player:readyForRematchAck"

	EventOpponentLeft EventType = "game:opponentLeft"
	EventLeftSuccess  EventType = "game:leftSuccess"
	EventGameError    EventType = "game:error"
)

// Event is a single outbound frame destined for a room or a single player.
type Event struct {
	Name EventType   `json:"event"`
	Data interface{} `json:"data,omitempty"`
}

// Broadcaster delivers session events to the connections in a game's room.
// For a given session, events must be delivered in the order they were
// emitted. Implemented by the gateway.
type Broadcaster interface {
	JoinRoom(gameID string, playerIDs ...string)
	LeaveRoom(gameID, playerID string)
	CloseRoom(gameID string)
	ToRoom(gameID string, event Event)
	ToRoomExcept(gameID, exceptPlayerID string, event Event)
	ToPlayer(playerID string, event Event)
}

// PlayerState is the client-facing snapshot of a player.
type PlayerState struct {
	ID                     string `json:"id"`
	Username               string `json:"username"`
	Score                  int    `json:"score"`
	FactsUsedThisRound     int    `json:"factsUsedThisRound"`
	GuessAttemptsThisRound int    `json:"guessAttemptsThisRound"`
}

// StartPayload is broadcast on game:start when a round begins.
type StartPayload struct {
	GameID       string        `json:"gameId"`
	Players      []PlayerState `json:"players"`
	CurrentRound int           `json:"currentRound"`
	InitialFact  string        `json:"initialFact"`
	Timer        int           `json:"timer"`
}

// NewFactPayload is unicast to the player who requested a fact.
type NewFactPayload struct {
	Fact              string `json:"fact"`
	FactsUsedByPlayer int    `json:"factsUsedByPlayer"`
}

// NoticePayload carries a plain message (game:noMoreFacts, game:error).
type NoticePayload struct {
	Message string `json:"message"`
}

// GuessResultPayload is unicast to the guessing player.
type GuessResultPayload struct {
	IsCorrect         bool   `json:"isCorrect"`
	CorrectCountry    string `json:"correctCountry,omitempty"`
	Points            int    `json:"points,omitempty"`
	Message           string `json:"message"`
	RemainingAttempts int    `json:"remainingAttempts"`
	FactsUsed         int    `json:"factsUsed"`
}

// RoundOverPayload is broadcast to the room when a round ends. WinnerID is
// nil when nobody guessed correctly.
type RoundOverPayload struct {
	WinnerID       *string       `json:"winnerId"`
	CorrectCountry string        `json:"correctCountry"`
	PlayerScores   []PlayerState `json:"playerScores"`
	CurrentRound   int           `json:"currentRound"`
}

// FinalScore is one entry of the game:gameOver summary.
type FinalScore struct {
	ID    string `json:"id"`
	Score int    `json:"score"`
}

// GameOverPayload is broadcast to the room when the match ends.
// OverallWinnerID is nil on a draw.
type GameOverPayload struct {
	OverallWinnerID *string      `json:"overallWinnerId"`
	PlayerScores    []FinalScore `json:"playerScores"`
}

// ReadyPayload identifies the player who signalled readiness.
type ReadyPayload struct {
	PlayerID string `json:"playerId"`
}

// OpponentLeftPayload is broadcast when a player leaves or disconnects.
type OpponentLeftPayload struct {
	Message      string `json:"message"`
	LeftPlayerID string `json:"leftPlayerId"`
}
