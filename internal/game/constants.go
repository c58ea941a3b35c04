package game

import "time"

// Gameplay constants. These form the observable contract with clients and
// must stay in sync with the frontend.
const (
	// MaxRounds is the number of rounds in a full match.
	MaxRounds = 3

	// RoundTimeSeconds is the countdown each round starts from.
	RoundTimeSeconds = 30

	// BasePoints is awarded for a correct guess with no extra facts used.
	BasePoints = 10

	// PenaltyPerFact is subtracted from BasePoints for each fact requested.
	PenaltyPerFact = 2

	// MaxGuessAttemptsPerRound caps guesses per player per round.
	MaxGuessAttemptsPerRound = 3
)

// matchStartDelay is the pause between the matched notification and the
// first round, so clients can render the game board.
const matchStartDelay = time.Second
