// models/events.go
package models

// Event names pushed to subscribed clients.
const (
	EventPartyUpdate     = "party_update"
	EventPlayerKicked    = "player_kicked"
	EventStartGame       = "start_game"
	EventTurnUpdate      = "turn_update"
	EventSettingsUpdated = "settings_updated"
	EventJoinedRoom      = "joined_room"
)

// Event is the wire envelope for a pushed event.
type Event struct {
	Name string      `json:"event"`
	Data interface{} `json:"data,omitempty"`
}

// PartyUpdatePayload carries the member list after any membership change.
type PartyUpdatePayload struct {
	Members []string `json:"members"`
	Message string   `json:"message"`
}

// PlayerKickedPayload tells the removed client who was kicked.
type PlayerKickedPayload struct {
	Username string `json:"username"`
}

// TurnUpdatePayload announces whose turn it is after an advance.
type TurnUpdatePayload struct {
	CurrentTurn   int    `json:"currentTurn"`
	CurrentPlayer string `json:"currentPlayer"`
}

// SettingsUpdatedPayload carries the full settings after a host update.
type SettingsUpdatedPayload struct {
	Settings Settings `json:"settings"`
	Message  string   `json:"message"`
}

// JoinedRoomPayload acknowledges a room subscription.
type JoinedRoomPayload struct {
	Message string `json:"message"`
}
