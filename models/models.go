// models/models.go
package models

import (
	"time"
)

// ChipColor is one of the five fixed chip denominations used by every party.
type ChipColor string

const (
	ChipWhite ChipColor = "white"
	ChipRed   ChipColor = "red"
	ChipBlue  ChipColor = "blue"
	ChipGreen ChipColor = "green"
	ChipBlack ChipColor = "black"
)

// ChipColors lists every color a chip map must cover, in display order.
var ChipColors = []ChipColor{ChipWhite, ChipRed, ChipBlue, ChipGreen, ChipBlack}

// ChipMap maps a chip color to a denomination or count.
type ChipMap map[ChipColor]int

// Clone returns an independent copy of the map.
func (m ChipMap) Clone() ChipMap {
	out := make(ChipMap, len(m))
	for color, n := range m {
		out[color] = n
	}
	return out
}

// ZeroedCopy returns a map with the same colors and every count at zero.
func (m ChipMap) ZeroedCopy() ChipMap {
	out := make(ChipMap, len(m))
	for color := range m {
		out[color] = 0
	}
	return out
}

// CoversAllColors reports whether the map holds exactly the five fixed colors.
func (m ChipMap) CoversAllColors() bool {
	if len(m) != len(ChipColors) {
		return false
	}
	for _, color := range ChipColors {
		if _, ok := m[color]; !ok {
			return false
		}
	}
	return true
}

// Position marks a player's blind seat.
type Position string

const (
	PositionSmallBlind Position = "small_blind"
	PositionBigBlind   Position = "big_blind"
	PositionNone       Position = "none"
)

// Settings holds the host-configurable table parameters.
type Settings struct {
	ChipValues    ChipMap `json:"chip_values"`
	StartingStack ChipMap `json:"starting_stack"`
	SmallBlind    int     `json:"small_blind"`
	BigBlind      int     `json:"big_blind"`
	MaxPlayers    int     `json:"max_players"`
}

// DefaultSettings returns the table parameters a new party starts with.
func DefaultSettings() Settings {
	return Settings{
		ChipValues: ChipMap{
			ChipWhite: 1,
			ChipRed:   5,
			ChipBlue:  10,
			ChipGreen: 25,
			ChipBlack: 100,
		},
		StartingStack: ChipMap{
			ChipWhite: 20,
			ChipRed:   10,
			ChipBlue:  10,
			ChipGreen: 6,
			ChipBlack: 2,
		},
		SmallBlind: 5,
		BigBlind:   10,
		MaxPlayers: 6,
	}
}

// SettingsUpdate is the inbound shape of a settings change. Pointer fields
// distinguish a missing field from a zero value.
type SettingsUpdate struct {
	ChipValues    *ChipMap `json:"chip_values"`
	StartingStack *ChipMap `json:"starting_stack"`
	SmallBlind    *int     `json:"small_blind"`
	BigBlind      *int     `json:"big_blind"`
	MaxPlayers    *int     `json:"max_players"`
}

// Player is one seat at the table. Order within Party.Players is turn order.
type Player struct {
	Username  string   `json:"username"`
	Stack     ChipMap  `json:"stack"`
	IsActive  bool     `json:"is_active"`
	HasFolded bool     `json:"has_folded"`
	Position  Position `json:"position"`
}

// GameState is the minimal turn-rotation state of a party.
type GameState struct {
	Active       bool    `json:"active"`
	CurrentRound int     `json:"current_round"`
	DealerIndex  int     `json:"dealer_index"`
	TurnIndex    int     `json:"turn_index"`
	Pot          ChipMap `json:"pot"`
	CurrentBet   int     `json:"current_bet"`
}

// Party is a live game session identified by its code.
type Party struct {
	Code      string    `json:"code"`
	Host      string    `json:"host"`
	Settings  Settings  `json:"settings"`
	Players   []Player  `json:"players"`
	GameState GameState `json:"game_state"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Usernames returns the member names in seating order.
func (p *Party) Usernames() []string {
	names := make([]string, len(p.Players))
	for i, player := range p.Players {
		names[i] = player.Username
	}
	return names
}

// FindPlayer returns the seat index of username, or -1.
func (p *Party) FindPlayer(username string) int {
	for i, player := range p.Players {
		if player.Username == username {
			return i
		}
	}
	return -1
}
