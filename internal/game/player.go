package game

// Player is per-session player state. It is owned by exactly one session and
// mutated only under that session's lock.
type Player struct {
	ID                     string
	Username               string
	Score                  int
	FactsUsedThisRound     int
	GuessAttemptsThisRound int
	ReadyForNextRound      bool
}

// resetRound clears the per-round counters and readiness flag.
func (p *Player) resetRound() {
	p.FactsUsedThisRound = 0
	p.GuessAttemptsThisRound = 0
	p.ReadyForNextRound = false
}

func (p *Player) state() PlayerState {
	return PlayerState{
		ID:                     p.ID,
		Username:               p.Username,
		Score:                  p.Score,
		FactsUsedThisRound:     p.FactsUsedThisRound,
		GuessAttemptsThisRound: p.GuessAttemptsThisRound,
	}
}
