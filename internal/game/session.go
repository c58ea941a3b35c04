package game

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/factduel/factduel/internal/facts"
)

// Status is the session state machine position.
type Status string

const (
	StatusWaitingForPlayers Status = "waiting_for_players"
	StatusInGame            Status = "in_game"
	StatusRoundOver         Status = "round_over"
	StatusGameOver          Status = "game_over"
)

// FactProvider supplies a playable country for each round.
type FactProvider interface {
	RandomCountry() (facts.Country, error)
}

// Session owns one matched pair's full lifecycle: rounds, scoring, timers,
// readiness coordination and termination. All state is guarded by mu;
// handlers run to completion under it, so outbound events for a session are
// emitted in transition order.
type Session struct {
	id string

	mu           sync.Mutex
	players      []*Player
	currentRound int
	target       facts.Country
	revealed     []int
	secondsLeft  int
	timerStop    chan struct{}
	status       Status
	correct      []correctGuess
	ready        map[string]struct{}

	provider FactProvider
	bc       Broadcaster
	clock    clockwork.Clock

	// onClose deregisters the session once the last player is gone.
	onClose func(id string)
}

// correctGuess records one correct guess. Slice order is first-to-guess
// order; the first entry wins the round.
type correctGuess struct {
	PlayerID string
	Points   int
}

// NewSession creates a session for the given connections in the
// waiting_for_players state. The first round is started by the matchmaker.
func NewSession(id string, conns []Conn, provider FactProvider, bc Broadcaster, clock clockwork.Clock, onClose func(string)) *Session {
	players := make([]*Player, 0, len(conns))
	for _, c := range conns {
		players = append(players, &Player{ID: c.ID(), Username: c.Username()})
	}
	return &Session{
		id:       id,
		players:  players,
		status:   StatusWaitingForPlayers,
		ready:    make(map[string]struct{}),
		provider: provider,
		bc:       bc,
		clock:    clock,
		onClose:  onClose,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Status returns the current state machine position.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// HasPlayer reports whether the given player belongs to this session.
func (s *Session) HasPlayer(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playerLocked(playerID) != nil
}

// StartRound selects a fresh country, resets per-round state, reveals the
// first fact and starts the countdown. If the provider cannot supply a
// playable country the room is told and the session keeps its prior state.
func (s *Session) StartRound() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startRoundLocked()
}

func (s *Session) startRoundLocked() {
	country, err := s.provider.RandomCountry()
	if err != nil || len(country.Facts) < facts.MinFacts {
		log.Error().Err(err).Str("game_id", s.id).Msg("no playable country, round not started")
		s.bc.ToRoom(s.id, Event{Name: EventGameError, Data: NoticePayload{Message: "Failed to start round: no country data."}})
		return
	}

	s.currentRound++
	s.target = country
	s.revealed = []int{0}
	s.secondsLeft = RoundTimeSeconds
	s.status = StatusInGame
	s.correct = nil
	s.ready = make(map[string]struct{})
	for _, p := range s.players {
		p.resetRound()
	}

	s.stopTimerLocked()
	stop := make(chan struct{})
	s.timerStop = stop
	ticker := s.clock.NewTicker(time.Second)
	go s.runTimer(ticker, stop)

	s.bc.ToRoom(s.id, Event{Name: EventGameStart, Data: StartPayload{
		GameID:       s.id,
		Players:      s.playerStatesLocked(),
		CurrentRound: s.currentRound,
		InitialFact:  s.target.Facts[0],
		Timer:        s.secondsLeft,
	}})

	log.Info().
		Str("game_id", s.id).
		Int("round", s.currentRound).
		Str("country", s.target.Name).
		Msg("round started")
}

// runTimer drives the countdown at one tick per second until the round ends
// or the stop channel closes.
func (s *Session) runTimer(ticker clockwork.Ticker, stop chan struct{}) {
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			if s.tick() {
				return
			}
		}
	}
}

// tick advances the countdown by one second. Returns true once the round is
// no longer live.
func (s *Session) tick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusInGame {
		return true
	}

	s.secondsLeft--
	s.bc.ToRoom(s.id, Event{Name: EventTimerUpdate, Data: s.secondsLeft})

	if s.secondsLeft <= 0 {
		s.endRoundLocked()
		return true
	}
	return false
}

// stopTimerLocked cancels the active round timer, if any. At most one timer
// is alive per session at any instant.
func (s *Session) stopTimerLocked() {
	if s.timerStop != nil {
		close(s.timerStop)
		s.timerStop = nil
	}
}

// Guess applies one guess attempt. Guesses are matched case-insensitively
// against the target country name.
func (s *Session) Guess(playerID, guess string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusInGame {
		log.Warn().Str("game_id", s.id).Str("player_id", playerID).Msg("guess received while round not live")
		return
	}
	p := s.playerLocked(playerID)
	if p == nil {
		log.Warn().Str("game_id", s.id).Str("player_id", playerID).Msg("guess from unknown player")
		return
	}

	if s.guessedCorrectlyLocked(playerID) {
		s.bc.ToPlayer(playerID, Event{Name: EventGuessResult, Data: GuessResultPayload{
			IsCorrect:         false,
			Message:           "You already guessed correctly this round.",
			RemainingAttempts: MaxGuessAttemptsPerRound - p.GuessAttemptsThisRound,
			FactsUsed:         p.FactsUsedThisRound,
		}})
		return
	}

	// At the cap the guess is rejected without incrementing further.
	if p.GuessAttemptsThisRound >= MaxGuessAttemptsPerRound {
		s.bc.ToPlayer(playerID, Event{Name: EventGuessResult, Data: GuessResultPayload{
			IsCorrect:         false,
			Message:           "You are out of guess attempts for this round.",
			RemainingAttempts: 0,
			FactsUsed:         p.FactsUsedThisRound,
		}})
		if s.roundResolvedLocked() {
			s.endRoundLocked()
		}
		return
	}

	p.GuessAttemptsThisRound++

	if strings.EqualFold(guess, s.target.Name) {
		points := BasePoints - p.FactsUsedThisRound*PenaltyPerFact
		if points < 0 {
			points = 0
		}
		p.Score += points
		s.correct = append(s.correct, correctGuess{PlayerID: p.ID, Points: points})

		log.Info().
			Str("game_id", s.id).
			Str("player_id", p.ID).
			Int("points", points).
			Str("country", s.target.Name).
			Msg("correct guess")

		s.bc.ToPlayer(playerID, Event{Name: EventGuessResult, Data: GuessResultPayload{
			IsCorrect:         true,
			CorrectCountry:    s.target.Name,
			Points:            points,
			Message:           "Correct guess!",
			RemainingAttempts: MaxGuessAttemptsPerRound - p.GuessAttemptsThisRound,
			FactsUsed:         p.FactsUsedThisRound,
		}})

		if s.roundResolvedLocked() {
			s.endRoundLocked()
		}
		return
	}

	remaining := MaxGuessAttemptsPerRound - p.GuessAttemptsThisRound
	msg := fmt.Sprintf("Incorrect guess! You have %d attempts remaining.", remaining)
	if remaining <= 0 {
		msg = "Incorrect guess! You have no attempts remaining for this round."
	}
	s.bc.ToPlayer(playerID, Event{Name: EventGuessResult, Data: GuessResultPayload{
		IsCorrect:         false,
		Message:           msg,
		RemainingAttempts: remaining,
		FactsUsed:         p.FactsUsedThisRound,
	}})

	if s.roundResolvedLocked() {
		s.endRoundLocked()
	}
}

// RequestFact reveals the lowest-indexed fact not yet shown and returns it
// privately to the requester.
func (s *Session) RequestFact(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != StatusInGame {
		return
	}
	p := s.playerLocked(playerID)
	if p == nil {
		log.Warn().Str("game_id", s.id).Str("player_id", playerID).Msg("fact request from unknown player")
		return
	}

	if p.GuessAttemptsThisRound >= MaxGuessAttemptsPerRound || s.guessedCorrectlyLocked(playerID) {
		s.bc.ToPlayer(playerID, Event{Name: EventNoMoreFacts, Data: NoticePayload{
			Message: "You cannot request more facts. Either you are out of guesses or already guessed correctly.",
		}})
		return
	}

	next := -1
	for i := range s.target.Facts {
		if !s.revealedLocked(i) {
			next = i
			break
		}
	}
	if next == -1 {
		s.bc.ToPlayer(playerID, Event{Name: EventNoMoreFacts, Data: NoticePayload{
			Message: "No more facts available for this country.",
		}})
		return
	}

	s.revealed = append(s.revealed, next)
	p.FactsUsedThisRound++

	s.bc.ToPlayer(playerID, Event{Name: EventNewFact, Data: NewFactPayload{
		Fact:              s.target.Facts[next],
		FactsUsedByPlayer: p.FactsUsedThisRound,
	}})
}

// endRoundLocked finalizes the round: stops the timer, announces the winner
// (first correct guesser, or none) and cascades into game over after the
// last round. Idempotent: only a live round can end.
func (s *Session) endRoundLocked() {
	if s.status != StatusInGame {
		return
	}

	s.stopTimerLocked()
	s.status = StatusRoundOver

	var winnerID *string
	if len(s.correct) > 0 {
		id := s.correct[0].PlayerID
		winnerID = &id
	}

	s.bc.ToRoom(s.id, Event{Name: EventRoundOver, Data: RoundOverPayload{
		WinnerID:       winnerID,
		CorrectCountry: s.target.Name,
		PlayerScores:   s.playerStatesLocked(),
		CurrentRound:   s.currentRound,
	}})

	log.Info().
		Str("game_id", s.id).
		Int("round", s.currentRound).
		Str("country", s.target.Name).
		Msg("round ended")

	if s.currentRound >= MaxRounds {
		s.gameOverLocked()
	}
}

// RequestNextRound records readiness; once every remaining player is ready
// the next round starts (or game over is declared past the round cap).
func (s *Session) RequestNextRound(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.playerLocked(playerID)
	if p == nil {
		log.Warn().Str("game_id", s.id).Str("player_id", playerID).Msg("next-round request from unknown player")
		return
	}

	p.ReadyForNextRound = true
	s.ready[playerID] = struct{}{}
	s.bc.ToPlayer(playerID, Event{Name: EventReadyForNextRoundAck})

	if len(s.ready) < len(s.players) {
		s.bc.ToRoomExcept(s.id, playerID, Event{Name: EventOpponentReadyForNextRound, Data: ReadyPayload{PlayerID: playerID}})
		return
	}

	if s.currentRound < MaxRounds {
		s.startRoundLocked()
	} else {
		// Safeguard: game over should already have been emitted.
		s.gameOverLocked()
	}
}

// RequestRematch records readiness for a rematch; once every remaining
// player is ready the session is fully reset and round 1 starts again under
// the same identifier.
func (s *Session) RequestRematch(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.playerLocked(playerID)
	if p == nil {
		log.Warn().Str("game_id", s.id).Str("player_id", playerID).Msg("rematch request from unknown player")
		return
	}

	p.ReadyForNextRound = true
	s.ready[playerID] = struct{}{}
	s.bc.ToPlayer(playerID, Event{Name: EventReadyForRematchAck})

	if len(s.ready) < len(s.players) {
		s.bc.ToRoomExcept(s.id, playerID, Event{Name: EventOpponentReadyForRematch, Data: ReadyPayload{PlayerID: playerID}})
		return
	}

	log.Info().Str("game_id", s.id).Msg("all players ready, starting rematch")

	for _, pl := range s.players {
		pl.Score = 0
		pl.resetRound()
	}
	s.currentRound = 0
	s.status = StatusWaitingForPlayers
	s.revealed = nil
	s.secondsLeft = RoundTimeSeconds
	s.correct = nil
	s.ready = make(map[string]struct{})
	s.stopTimerLocked()

	s.startRoundLocked()
}

// gameOverLocked declares the match result: strict max cumulative score
// wins, equal scores draw, a sole remaining player wins outright.
func (s *Session) gameOverLocked() {
	s.stopTimerLocked()
	s.status = StatusGameOver

	var winnerID *string
	switch len(s.players) {
	case 2:
		a, b := s.players[0], s.players[1]
		if a.Score > b.Score {
			id := a.ID
			winnerID = &id
		} else if b.Score > a.Score {
			id := b.ID
			winnerID = &id
		}
	case 1:
		id := s.players[0].ID
		winnerID = &id
	}

	scores := make([]FinalScore, 0, len(s.players))
	for _, p := range s.players {
		scores = append(scores, FinalScore{ID: p.ID, Score: p.Score})
	}

	s.bc.ToRoom(s.id, Event{Name: EventGameOver, Data: GameOverPayload{
		OverallWinnerID: winnerID,
		PlayerScores:    scores,
	}})

	winner := "draw"
	if winnerID != nil {
		winner = *winnerID
	}
	log.Info().Str("game_id", s.id).Str("winner", winner).Msg("game over")
}

// Leave removes a player at their own request. The leaving connection is
// always acknowledged so it can re-enter matchmaking.
func (s *Session) Leave(playerID string) {
	s.removePlayer(playerID, true)
}

// Disconnect removes a player after transport-level loss.
func (s *Session) Disconnect(playerID string) {
	s.removePlayer(playerID, false)
}

func (s *Session) removePlayer(playerID string, explicit bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, p := range s.players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		log.Warn().Str("game_id", s.id).Str("player_id", playerID).Msg("leave for player not in session")
		if explicit {
			s.bc.ToPlayer(playerID, Event{Name: EventLeftSuccess})
		}
		return
	}

	leaving := s.players[idx]
	s.players = append(s.players[:idx], s.players[idx+1:]...)
	delete(s.ready, playerID)
	s.bc.LeaveRoom(s.id, playerID)

	log.Info().
		Str("game_id", s.id).
		Str("player_id", leaving.ID).
		Bool("explicit", explicit).
		Msg("player left session")

	if len(s.players) == 0 {
		s.closeLocked()
	} else {
		msg := fmt.Sprintf("%s has left the game.", leaving.Username)
		if !explicit {
			msg = fmt.Sprintf("%s has disconnected. Game ended.", leaving.Username)
		}
		s.bc.ToRoom(s.id, Event{Name: EventOpponentLeft, Data: OpponentLeftPayload{
			Message:      msg,
			LeftPlayerID: leaving.ID,
		}})
		s.stopTimerLocked()
		if s.status != StatusGameOver {
			s.gameOverLocked()
		}
	}

	if explicit {
		s.bc.ToPlayer(playerID, Event{Name: EventLeftSuccess})
	}
}

// closeLocked tears the session down once no players remain.
func (s *Session) closeLocked() {
	s.stopTimerLocked()
	s.status = StatusGameOver
	s.bc.CloseRoom(s.id)
	if s.onClose != nil {
		s.onClose(s.id)
	}
	log.Info().Str("game_id", s.id).Msg("session closed")
}

// roundResolvedLocked reports whether every player has either guessed
// correctly or exhausted their attempts.
func (s *Session) roundResolvedLocked() bool {
	for _, p := range s.players {
		if s.guessedCorrectlyLocked(p.ID) {
			continue
		}
		if p.GuessAttemptsThisRound < MaxGuessAttemptsPerRound {
			return false
		}
	}
	return true
}

func (s *Session) guessedCorrectlyLocked(playerID string) bool {
	for _, g := range s.correct {
		if g.PlayerID == playerID {
			return true
		}
	}
	return false
}

func (s *Session) revealedLocked(factIndex int) bool {
	for _, i := range s.revealed {
		if i == factIndex {
			return true
		}
	}
	return false
}

func (s *Session) playerLocked(playerID string) *Player {
	for _, p := range s.players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func (s *Session) playerStatesLocked() []PlayerState {
	states := make([]PlayerState, 0, len(s.players))
	for _, p := range s.players {
		states = append(states, p.state())
	}
	return states
}
