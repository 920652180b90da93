// party/party.go
package party

import (
	"errors"
	"fmt"

	"github.com/wfunc/partyserver/broadcast"
	"github.com/wfunc/partyserver/logger"
	"github.com/wfunc/partyserver/models"
	"github.com/wfunc/partyserver/persistence"
	"github.com/wfunc/partyserver/registry"
	"github.com/wfunc/partyserver/state"
)

// Service is the per-party session logic: membership, settings and game-state
// transitions. Every mutating operation holds the party code's lock from read
// to publish, so concurrent requests on one party serialize instead of
// clobbering each other.
type Service struct {
	registry    *registry.Registry
	broadcaster broadcast.Broadcaster
	recorder    persistence.Recorder
	locks       *lockTable
}

// NewService wires the core against its collaborators. recorder may be nil
// when game history is not persisted.
func NewService(reg *registry.Registry, bc broadcast.Broadcaster, recorder persistence.Recorder) *Service {
	return &Service{
		registry:    reg,
		broadcaster: bc,
		recorder:    recorder,
		locks:       newLockTable(),
	}
}

func (s *Service) lookup(code string) (*models.Party, error) {
	party, err := s.registry.Lookup(code)
	if errors.Is(err, persistence.ErrRecordNotFound) {
		return nil, ErrPartyNotFound
	}
	return party, err
}

// CreateParty registers a new party hosted by hostName and returns it.
func (s *Service) CreateParty(hostName string) (*models.Party, error) {
	return s.registry.Create(hostName)
}

// JoinParty seats username at the table and returns the updated member list.
func (s *Service) JoinParty(code, username string) ([]string, error) {
	lock := s.locks.get(code)
	lock.Lock()
	defer lock.Unlock()

	party, err := s.lookup(code)
	if err != nil {
		return nil, err
	}

	if party.FindPlayer(username) >= 0 {
		return nil, ErrUsernameTaken
	}
	if len(party.Players) >= party.Settings.MaxPlayers {
		return nil, ErrPartyFull
	}

	// The host took the small blind at creation; the second joiner takes the
	// big blind, everyone after sits without a blind position.
	position := models.PositionNone
	if len(party.Players) == 1 {
		position = models.PositionBigBlind
	}

	party.Players = append(party.Players, models.Player{
		Username: username,
		Stack:    party.Settings.StartingStack.Clone(),
		IsActive: true,
		Position: position,
	})

	if err := s.registry.Update(party); err != nil {
		return nil, err
	}

	members := party.Usernames()
	s.publish(code, models.EventPartyUpdate, models.PartyUpdatePayload{
		Members: members,
		Message: fmt.Sprintf("%s joined the party", username),
	})
	return members, nil
}

// LeaveParty removes username from the table. A leaving host ends the party
// for everyone; that is the only destruction path. Returns the human-readable
// outcome message.
func (s *Service) LeaveParty(code, username string) (string, error) {
	lock := s.locks.get(code)
	lock.Lock()
	defer lock.Unlock()

	party, err := s.lookup(code)
	if err != nil {
		return "", err
	}

	if username == party.Host {
		if err := s.registry.Delete(code); err != nil {
			return "", err
		}
		s.locks.forget(code)
		s.publish(code, models.EventPartyUpdate, models.PartyUpdatePayload{
			Members: []string{},
			Message: "Host ended the party",
		})
		return "Host ended the party", nil
	}

	idx := party.FindPlayer(username)
	if idx < 0 {
		return "", ErrUserNotInParty
	}
	party.Players = append(party.Players[:idx], party.Players[idx+1:]...)

	if err := s.registry.Update(party); err != nil {
		return "", err
	}

	message := fmt.Sprintf("%s left the party", username)
	s.publish(code, models.EventPartyUpdate, models.PartyUpdatePayload{
		Members: party.Usernames(),
		Message: message,
	})
	return message, nil
}

// KickPlayer removes target from the party. Host-only; the host cannot kick
// themselves. The kicked client gets a dedicated event besides the membership
// update.
func (s *Service) KickPlayer(code, host, target string) ([]string, error) {
	lock := s.locks.get(code)
	lock.Lock()
	defer lock.Unlock()

	party, err := s.lookup(code)
	if err != nil {
		return nil, err
	}

	if host != party.Host {
		return nil, ErrUnauthorized
	}
	idx := party.FindPlayer(target)
	if idx < 0 {
		return nil, ErrPlayerNotFound
	}
	if target == host {
		return nil, ErrSelfKickRejected
	}

	party.Players = append(party.Players[:idx], party.Players[idx+1:]...)

	if err := s.registry.Update(party); err != nil {
		return nil, err
	}

	members := party.Usernames()
	s.publish(code, models.EventPartyUpdate, models.PartyUpdatePayload{
		Members: members,
		Message: fmt.Sprintf("%s has been kicked from the party", target),
	})
	s.publish(code, models.EventPlayerKicked, models.PlayerKickedPayload{
		Username: target,
	})
	return members, nil
}

// ReorderPlayers rebuilds the seating order. newOrder must be exactly a
// permutation of the current usernames; each player's stack, flags and blind
// position move with them, only the slot changes. Dealer and turn indices are
// deliberately left untouched.
func (s *Service) ReorderPlayers(code string, newOrder []string) error {
	lock := s.locks.get(code)
	lock.Lock()
	defer lock.Unlock()

	party, err := s.lookup(code)
	if err != nil {
		return err
	}

	if len(newOrder) != len(party.Players) {
		return ErrInvalidOrder
	}
	seen := make(map[string]bool, len(newOrder))
	reordered := make([]models.Player, 0, len(newOrder))
	for _, username := range newOrder {
		idx := party.FindPlayer(username)
		if idx < 0 || seen[username] {
			return ErrInvalidOrder
		}
		seen[username] = true
		reordered = append(reordered, party.Players[idx])
	}
	party.Players = reordered

	if err := s.registry.Update(party); err != nil {
		return err
	}

	s.publish(code, models.EventPartyUpdate, models.PartyUpdatePayload{
		Members: newOrder,
		Message: "Player order has been updated",
	})
	return nil
}

// UpdateSettings validates and applies a host settings change. While no game
// is running, every player's stack is reset to a fresh copy of the new
// starting stack.
func (s *Service) UpdateSettings(code, host string, update models.SettingsUpdate) (*models.Settings, error) {
	lock := s.locks.get(code)
	lock.Lock()
	defer lock.Unlock()

	party, err := s.lookup(code)
	if err != nil {
		return nil, err
	}

	if host != party.Host {
		return nil, ErrUnauthorized
	}

	settings, err := validateSettings(update, len(party.Players))
	if err != nil {
		return nil, err
	}

	party.Settings = *settings
	if !party.GameState.Active {
		for i := range party.Players {
			party.Players[i].Stack = settings.StartingStack.Clone()
		}
	}

	if err := s.registry.Update(party); err != nil {
		return nil, err
	}

	s.publish(code, models.EventSettingsUpdated, models.SettingsUpdatedPayload{
		Settings: *settings,
		Message:  "Settings have been updated",
	})
	return settings, nil
}

// StartGame activates the party's game state. Host-only, needs at least two
// players. Overwrites any previous game state.
func (s *Service) StartGame(code, host string) error {
	lock := s.locks.get(code)
	lock.Lock()
	defer lock.Unlock()

	party, err := s.lookup(code)
	if err != nil {
		return err
	}

	if host != party.Host {
		return ErrUnauthorized
	}

	if err := state.Start(party); err != nil {
		return err
	}

	if err := s.registry.Update(party); err != nil {
		return err
	}

	if s.recorder != nil {
		record := &models.GameRecord{
			Code:    code,
			Host:    party.Host,
			Players: party.Usernames(),
		}
		if err := s.recorder.SaveGameRecord(record); err != nil {
			logger.Log.Warnf("Failed to record game start for party %s: %v", code, err)
		}
	}

	s.publish(code, models.EventStartGame, nil)
	return nil
}

// AdvanceTurn passes the turn to the next seat. Only the player currently on
// turn may advance. Returns the payload that was also broadcast.
func (s *Service) AdvanceTurn(code, username string) (*models.TurnUpdatePayload, error) {
	lock := s.locks.get(code)
	lock.Lock()
	defer lock.Unlock()

	party, err := s.lookup(code)
	if err != nil {
		return nil, err
	}

	next, nextPlayer, err := state.AdvanceTurn(party, username)
	if err != nil {
		return nil, err
	}

	if err := s.registry.Update(party); err != nil {
		return nil, err
	}

	payload := &models.TurnUpdatePayload{
		CurrentTurn:   next,
		CurrentPlayer: nextPlayer,
	}
	s.publish(code, models.EventTurnUpdate, *payload)
	return payload, nil
}

// Status returns the member list in seating order.
func (s *Service) Status(code string) ([]string, error) {
	party, err := s.lookup(code)
	if err != nil {
		return nil, err
	}
	return party.Usernames(), nil
}

// GameData is the read model the game table renders from.
type GameData struct {
	Players     []string `json:"players"`
	CurrentTurn int      `json:"currentTurn"`
	Host        string   `json:"host"`
}

// GetGameData returns players, the current turn index and the host.
func (s *Service) GetGameData(code string) (*GameData, error) {
	party, err := s.lookup(code)
	if err != nil {
		return nil, err
	}
	return &GameData{
		Players:     party.Usernames(),
		CurrentTurn: party.GameState.TurnIndex,
		Host:        party.Host,
	}, nil
}

// GetGameSettings returns the party's current settings.
func (s *Service) GetGameSettings(code string) (*models.Settings, error) {
	party, err := s.lookup(code)
	if err != nil {
		return nil, err
	}
	settings := party.Settings
	return &settings, nil
}

// publish runs after a successful store write; a delivery failure never rolls
// the mutation back.
func (s *Service) publish(code, event string, payload interface{}) {
	if err := s.broadcaster.Publish(code, event, payload); err != nil {
		logger.Log.Warnf("Failed to publish %s for party %s: %v", event, code, err)
	}
}
