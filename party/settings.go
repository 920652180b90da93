// party/settings.go
package party

import (
	"fmt"

	"github.com/wfunc/partyserver/models"
)

// validateSettings checks an inbound settings update against the current
// player count and returns the fully-typed settings to apply.
func validateSettings(update models.SettingsUpdate, playerCount int) (*models.Settings, error) {
	if update.ChipValues == nil {
		return nil, fmt.Errorf("%w: chip_values", ErrMissingField)
	}
	if update.StartingStack == nil {
		return nil, fmt.Errorf("%w: starting_stack", ErrMissingField)
	}
	if update.SmallBlind == nil {
		return nil, fmt.Errorf("%w: small_blind", ErrMissingField)
	}
	if update.BigBlind == nil {
		return nil, fmt.Errorf("%w: big_blind", ErrMissingField)
	}
	if update.MaxPlayers == nil {
		return nil, fmt.Errorf("%w: max_players", ErrMissingField)
	}

	if !update.ChipValues.CoversAllColors() {
		return nil, fmt.Errorf("%w: chip_values", ErrMissingChipColor)
	}
	if !update.StartingStack.CoversAllColors() {
		return nil, fmt.Errorf("%w: starting_stack", ErrMissingChipColor)
	}

	for color, value := range *update.ChipValues {
		if value <= 0 {
			return nil, fmt.Errorf("%w: chip value for %s must be positive", ErrMissingChipColor, color)
		}
	}
	for color, count := range *update.StartingStack {
		if count < 0 {
			return nil, fmt.Errorf("%w: starting stack for %s cannot be negative", ErrMissingChipColor, color)
		}
	}

	if *update.SmallBlind < 1 {
		return nil, fmt.Errorf("%w: small_blind must be at least 1", ErrInvalidBlinds)
	}
	if *update.BigBlind < *update.SmallBlind {
		return nil, fmt.Errorf("%w: big_blind must be at least the small blind", ErrInvalidBlinds)
	}

	if *update.MaxPlayers < 2 || *update.MaxPlayers > 10 {
		return nil, ErrInvalidMaxPlayers
	}
	if *update.MaxPlayers < playerCount {
		return nil, ErrCapacityReduction
	}

	return &models.Settings{
		ChipValues:    update.ChipValues.Clone(),
		StartingStack: update.StartingStack.Clone(),
		SmallBlind:    *update.SmallBlind,
		BigBlind:      *update.BigBlind,
		MaxPlayers:    *update.MaxPlayers,
	}, nil
}
