// state/state.go
package state

import (
	"errors"

	"github.com/wfunc/partyserver/models"
)

// Game-state transition errors.
var (
	ErrInsufficientPlayers = errors.New("need at least 2 players to start a game")
	ErrInactiveGame        = errors.New("game is not active")
	ErrWrongTurn           = errors.New("not your turn")
)

// MinPlayers is the smallest table a game can start with.
const MinPlayers = 2

// Start installs a fresh active game state on the party, overwriting any
// prior state. The pot starts at zero for every settings chip color.
func Start(party *models.Party) error {
	if len(party.Players) < MinPlayers {
		return ErrInsufficientPlayers
	}

	party.GameState = models.GameState{
		Active:       true,
		CurrentRound: 0,
		DealerIndex:  0,
		TurnIndex:    0,
		Pot:          party.Settings.ChipValues.ZeroedCopy(),
		CurrentBet:   0,
	}
	return nil
}

// AdvanceTurn moves the turn pointer to the next seat, wrapping around the
// table. Only the player currently indicated by turn_index may advance.
// Returns the new turn index and the username now on turn.
func AdvanceTurn(party *models.Party, username string) (int, string, error) {
	if !party.GameState.Active {
		return 0, "", ErrInactiveGame
	}

	current := party.GameState.TurnIndex
	if current < 0 || current >= len(party.Players) {
		return 0, "", ErrWrongTurn
	}
	if party.Players[current].Username != username {
		return 0, "", ErrWrongTurn
	}

	next := (current + 1) % len(party.Players)
	party.GameState.TurnIndex = next
	return next, party.Players[next].Username, nil
}
