// party/errors.go
package party

import (
	"errors"
)

// Validation failures surface synchronously as one of these. Game-state
// transition errors live in the state package.
var (
	ErrPartyNotFound     = errors.New("invalid party code")
	ErrUsernameTaken     = errors.New("username already taken")
	ErrPartyFull         = errors.New("party is full")
	ErrUnauthorized      = errors.New("host-only action")
	ErrUserNotInParty    = errors.New("user not in party")
	ErrPlayerNotFound    = errors.New("player not found in party")
	ErrSelfKickRejected  = errors.New("host cannot kick themselves")
	ErrInvalidOrder      = errors.New("invalid player order")
	ErrMissingField      = errors.New("missing settings field")
	ErrMissingChipColor  = errors.New("chip map must cover all five colors")
	ErrInvalidBlinds     = errors.New("invalid blinds")
	ErrInvalidMaxPlayers = errors.New("max players out of range")
	ErrCapacityReduction = errors.New("max players below current player count")
)
