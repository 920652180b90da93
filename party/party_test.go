package party

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/wfunc/partyserver/logger"
	"github.com/wfunc/partyserver/models"
	"github.com/wfunc/partyserver/persistence"
	"github.com/wfunc/partyserver/registry"
	"github.com/wfunc/partyserver/state"
)

func TestMain(m *testing.M) {
	logger.Init()
	m.Run()
}

// mockBroadcaster records every published event for assertions.
type mockBroadcaster struct {
	mutex  sync.Mutex
	events []capturedEvent
}

type capturedEvent struct {
	Code    string
	Name    string
	Payload interface{}
}

func (b *mockBroadcaster) Publish(code, event string, payload interface{}) error {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.events = append(b.events, capturedEvent{Code: code, Name: event, Payload: payload})
	return nil
}

func (b *mockBroadcaster) last() capturedEvent {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if len(b.events) == 0 {
		return capturedEvent{}
	}
	return b.events[len(b.events)-1]
}

func (b *mockBroadcaster) byName(name string) []capturedEvent {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	var out []capturedEvent
	for _, e := range b.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func newTestService() (*Service, *mockBroadcaster, *persistence.MemoryStore) {
	store := persistence.NewMemoryStore()
	bc := &mockBroadcaster{}
	svc := NewService(registry.New(store), bc, store)
	return svc, bc, store
}

// validUpdate returns a settings update that passes every check.
func validUpdate() models.SettingsUpdate {
	defaults := models.DefaultSettings()
	chipValues := defaults.ChipValues.Clone()
	startingStack := defaults.StartingStack.Clone()
	smallBlind, bigBlind, maxPlayers := 10, 20, 4
	return models.SettingsUpdate{
		ChipValues:    &chipValues,
		StartingStack: &startingStack,
		SmallBlind:    &smallBlind,
		BigBlind:      &bigBlind,
		MaxPlayers:    &maxPlayers,
	}
}

func TestCreateParty_Defaults(t *testing.T) {
	svc, _, _ := newTestService()

	p, err := svc.CreateParty("Alice")
	if err != nil {
		t.Fatalf("CreateParty failed: %v", err)
	}

	if len(p.Code) != 6 {
		t.Errorf("Expected a 6-character code, got %q", p.Code)
	}
	for _, c := range p.Code {
		if !(c >= 'A' && c <= 'Z' || c >= '0' && c <= '9') {
			t.Errorf("Code %q contains invalid character %q", p.Code, c)
		}
	}

	if p.Host != "Alice" {
		t.Errorf("Expected host Alice, got %s", p.Host)
	}
	if len(p.Players) != 1 || p.Players[0].Username != "Alice" {
		t.Fatalf("Expected the host to be seated first, got %v", p.Players)
	}
	if p.Players[0].Position != models.PositionSmallBlind {
		t.Errorf("Expected host position small_blind, got %s", p.Players[0].Position)
	}
	if !p.Players[0].IsActive || p.Players[0].HasFolded {
		t.Error("Host should start active and unfolded")
	}

	defaults := models.DefaultSettings()
	if p.Settings.SmallBlind != defaults.SmallBlind || p.Settings.BigBlind != defaults.BigBlind {
		t.Errorf("Unexpected default blinds: %d/%d", p.Settings.SmallBlind, p.Settings.BigBlind)
	}
	if p.Settings.MaxPlayers != 6 {
		t.Errorf("Expected default max players 6, got %d", p.Settings.MaxPlayers)
	}

	if p.GameState.Active {
		t.Error("New party should start with an inactive game")
	}
	if !p.GameState.Pot.CoversAllColors() {
		t.Error("Pot should cover all five chip colors")
	}
	for color, count := range p.GameState.Pot {
		if count != 0 {
			t.Errorf("Pot for %s should start at 0, got %d", color, count)
		}
	}
}

func TestCreateParty_UniqueCodes(t *testing.T) {
	svc, _, _ := newTestService()

	codes := make(map[string]bool)
	for i := 0; i < 200; i++ {
		p, err := svc.CreateParty(fmt.Sprintf("host%d", i))
		if err != nil {
			t.Fatalf("CreateParty failed: %v", err)
		}
		if codes[p.Code] {
			t.Fatalf("Duplicate code generated: %s", p.Code)
		}
		codes[p.Code] = true
	}
}

func TestJoinParty(t *testing.T) {
	svc, bc, _ := newTestService()
	p, _ := svc.CreateParty("Alice")

	members, err := svc.JoinParty(p.Code, "Bob")
	if err != nil {
		t.Fatalf("JoinParty failed: %v", err)
	}
	if len(members) != 2 || members[1] != "Bob" {
		t.Errorf("Expected [Alice Bob], got %v", members)
	}

	event := bc.last()
	if event.Name != models.EventPartyUpdate {
		t.Fatalf("Expected a party_update event, got %s", event.Name)
	}
	payload := event.Payload.(models.PartyUpdatePayload)
	if payload.Message != "Bob joined the party" {
		t.Errorf("Unexpected message: %s", payload.Message)
	}

	stored, _ := svc.lookup(p.Code)
	if stored.Players[1].Position != models.PositionBigBlind {
		t.Errorf("Second joiner should take the big blind, got %s", stored.Players[1].Position)
	}

	svc.JoinParty(p.Code, "Carol")
	stored, _ = svc.lookup(p.Code)
	if stored.Players[2].Position != models.PositionNone {
		t.Errorf("Third joiner should have no blind position, got %s", stored.Players[2].Position)
	}

	// Each player's stack is an independent copy of the starting stack.
	stored.Players[1].Stack[models.ChipWhite] = 99
	if stored.Players[2].Stack[models.ChipWhite] == 99 {
		t.Error("Player stacks should be independent copies")
	}
}

func TestJoinParty_Failures(t *testing.T) {
	svc, _, _ := newTestService()
	p, _ := svc.CreateParty("Alice")

	if _, err := svc.JoinParty("XXXXXX", "Bob"); !errors.Is(err, ErrPartyNotFound) {
		t.Errorf("Expected ErrPartyNotFound, got %v", err)
	}

	if _, err := svc.JoinParty(p.Code, "Alice"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("Expected ErrUsernameTaken, got %v", err)
	}

	update := validUpdate()
	two := 2
	update.MaxPlayers = &two
	if _, err := svc.UpdateSettings(p.Code, "Alice", update); err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}

	if _, err := svc.JoinParty(p.Code, "Bob"); err != nil {
		t.Fatalf("JoinParty failed: %v", err)
	}
	if _, err := svc.JoinParty(p.Code, "Carol"); !errors.Is(err, ErrPartyFull) {
		t.Errorf("Expected ErrPartyFull, got %v", err)
	}

	members, _ := svc.Status(p.Code)
	if len(members) != 2 {
		t.Errorf("Failed join should leave membership unchanged, got %v", members)
	}
}

func TestLeaveParty_Guest(t *testing.T) {
	svc, bc, _ := newTestService()
	p, _ := svc.CreateParty("Alice")
	svc.JoinParty(p.Code, "Bob")

	message, err := svc.LeaveParty(p.Code, "Bob")
	if err != nil {
		t.Fatalf("LeaveParty failed: %v", err)
	}
	if message != "Bob left the party" {
		t.Errorf("Unexpected message: %s", message)
	}

	members, _ := svc.Status(p.Code)
	if len(members) != 1 || members[0] != "Alice" {
		t.Errorf("Expected [Alice], got %v", members)
	}

	payload := bc.last().Payload.(models.PartyUpdatePayload)
	if len(payload.Members) != 1 {
		t.Errorf("Event should carry the updated member list, got %v", payload.Members)
	}
}

func TestLeaveParty_HostDestroysParty(t *testing.T) {
	svc, bc, _ := newTestService()
	p, _ := svc.CreateParty("Alice")
	svc.JoinParty(p.Code, "Bob")

	if _, err := svc.LeaveParty(p.Code, "Alice"); err != nil {
		t.Fatalf("Host leave failed: %v", err)
	}

	if _, err := svc.Status(p.Code); !errors.Is(err, ErrPartyNotFound) {
		t.Errorf("Party should be gone after host leaves, got %v", err)
	}

	event := bc.last()
	if event.Name != models.EventPartyUpdate {
		t.Fatalf("Expected a final party_update, got %s", event.Name)
	}
	payload := event.Payload.(models.PartyUpdatePayload)
	if len(payload.Members) != 0 {
		t.Errorf("Final event should carry an empty member list, got %v", payload.Members)
	}
	if payload.Message != "Host ended the party" {
		t.Errorf("Unexpected message: %s", payload.Message)
	}
}

func TestLeaveParty_UserNotInParty(t *testing.T) {
	svc, _, _ := newTestService()
	p, _ := svc.CreateParty("Alice")

	if _, err := svc.LeaveParty(p.Code, "Mallory"); !errors.Is(err, ErrUserNotInParty) {
		t.Errorf("Expected ErrUserNotInParty, got %v", err)
	}
}

func TestKickPlayer(t *testing.T) {
	svc, bc, _ := newTestService()
	p, _ := svc.CreateParty("Alice")
	svc.JoinParty(p.Code, "Bob")

	members, err := svc.KickPlayer(p.Code, "Alice", "Bob")
	if err != nil {
		t.Fatalf("KickPlayer failed: %v", err)
	}
	if len(members) != 1 {
		t.Errorf("Expected one remaining member, got %v", members)
	}

	kicked := bc.byName(models.EventPlayerKicked)
	if len(kicked) != 1 {
		t.Fatalf("Expected one player_kicked event, got %d", len(kicked))
	}
	if kicked[0].Payload.(models.PlayerKickedPayload).Username != "Bob" {
		t.Error("player_kicked should name the removed player")
	}
	if len(bc.byName(models.EventPartyUpdate)) == 0 {
		t.Error("Kick should also publish a membership update")
	}
}

func TestKickPlayer_Failures(t *testing.T) {
	svc, _, _ := newTestService()
	p, _ := svc.CreateParty("Alice")
	svc.JoinParty(p.Code, "Bob")

	if _, err := svc.KickPlayer(p.Code, "Bob", "Alice"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.KickPlayer(p.Code, "Alice", "Mallory"); !errors.Is(err, ErrPlayerNotFound) {
		t.Errorf("Expected ErrPlayerNotFound, got %v", err)
	}
	if _, err := svc.KickPlayer(p.Code, "Alice", "Alice"); !errors.Is(err, ErrSelfKickRejected) {
		t.Errorf("Expected ErrSelfKickRejected, got %v", err)
	}

	members, _ := svc.Status(p.Code)
	if len(members) != 2 {
		t.Errorf("Failed kicks should leave membership unchanged, got %v", members)
	}
}

func TestReorderPlayers(t *testing.T) {
	svc, bc, _ := newTestService()
	p, _ := svc.CreateParty("Alice")
	svc.JoinParty(p.Code, "Bob")
	svc.JoinParty(p.Code, "Carol")

	if err := svc.ReorderPlayers(p.Code, []string{"Carol", "Alice", "Bob"}); err != nil {
		t.Fatalf("ReorderPlayers failed: %v", err)
	}

	stored, _ := svc.lookup(p.Code)
	got := stored.Usernames()
	want := []string{"Carol", "Alice", "Bob"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected order %v, got %v", want, got)
		}
	}

	// Non-order fields travel with the player.
	if stored.Players[1].Position != models.PositionSmallBlind {
		t.Errorf("Alice should keep the small blind, got %s", stored.Players[1].Position)
	}
	if stored.Players[2].Position != models.PositionBigBlind {
		t.Errorf("Bob should keep the big blind, got %s", stored.Players[2].Position)
	}

	payload := bc.last().Payload.(models.PartyUpdatePayload)
	if payload.Message != "Player order has been updated" {
		t.Errorf("Unexpected message: %s", payload.Message)
	}
}

func TestReorderPlayers_InvalidOrder(t *testing.T) {
	svc, _, _ := newTestService()
	p, _ := svc.CreateParty("Alice")
	svc.JoinParty(p.Code, "Bob")

	cases := [][]string{
		{"Alice"},                   // too short
		{"Alice", "Bob", "Carol"},   // too long
		{"Alice", "Mallory"},        // wrong member
		{"Alice", "Alice"},          // duplicate
	}
	for _, order := range cases {
		if err := svc.ReorderPlayers(p.Code, order); !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("Order %v: expected ErrInvalidOrder, got %v", order, err)
		}
	}

	members, _ := svc.Status(p.Code)
	if members[0] != "Alice" || members[1] != "Bob" {
		t.Errorf("Failed reorders should leave the order unchanged, got %v", members)
	}
}

func TestReorderPlayers_DoesNotRemapTurnIndex(t *testing.T) {
	svc, _, _ := newTestService()
	p, _ := svc.CreateParty("Alice")
	svc.JoinParty(p.Code, "Bob")
	svc.StartGame(p.Code, "Alice")
	svc.AdvanceTurn(p.Code, "Alice")

	if err := svc.ReorderPlayers(p.Code, []string{"Bob", "Alice"}); err != nil {
		t.Fatalf("ReorderPlayers failed: %v", err)
	}

	stored, _ := svc.lookup(p.Code)
	if stored.GameState.TurnIndex != 1 {
		t.Errorf("Reorder must not remap the turn index, got %d", stored.GameState.TurnIndex)
	}
	if stored.GameState.DealerIndex != 0 {
		t.Errorf("Reorder must not remap the dealer index, got %d", stored.GameState.DealerIndex)
	}
}

func TestUpdateSettings(t *testing.T) {
	svc, bc, _ := newTestService()
	p, _ := svc.CreateParty("Alice")
	svc.JoinParty(p.Code, "Bob")

	update := validUpdate()
	(*update.StartingStack)[models.ChipBlack] = 5

	settings, err := svc.UpdateSettings(p.Code, "Alice", update)
	if err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}
	if settings.SmallBlind != 10 || settings.BigBlind != 20 || settings.MaxPlayers != 4 {
		t.Errorf("Settings not applied: %+v", settings)
	}

	// Game inactive: every stack is reset to the new starting stack.
	stored, _ := svc.lookup(p.Code)
	for _, player := range stored.Players {
		if player.Stack[models.ChipBlack] != 5 {
			t.Errorf("%s stack not reset, got %d black chips", player.Username, player.Stack[models.ChipBlack])
		}
	}

	event := bc.last()
	if event.Name != models.EventSettingsUpdated {
		t.Fatalf("Expected settings_updated, got %s", event.Name)
	}
}

func TestUpdateSettings_NoStackResetWhileActive(t *testing.T) {
	svc, _, _ := newTestService()
	p, _ := svc.CreateParty("Alice")
	svc.JoinParty(p.Code, "Bob")
	svc.StartGame(p.Code, "Alice")

	update := validUpdate()
	(*update.StartingStack)[models.ChipBlack] = 50
	if _, err := svc.UpdateSettings(p.Code, "Alice", update); err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}

	stored, _ := svc.lookup(p.Code)
	defaults := models.DefaultSettings()
	if stored.Players[0].Stack[models.ChipBlack] != defaults.StartingStack[models.ChipBlack] {
		t.Error("Stacks must not be reset while the game is active")
	}
}

func TestUpdateSettings_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	p, _ := svc.CreateParty("Alice")

	missing := validUpdate()
	missing.SmallBlind = nil
	if _, err := svc.UpdateSettings(p.Code, "Alice", missing); !errors.Is(err, ErrMissingField) {
		t.Errorf("Expected ErrMissingField, got %v", err)
	}

	badColors := validUpdate()
	partial := models.ChipMap{models.ChipWhite: 1}
	badColors.ChipValues = &partial
	if _, err := svc.UpdateSettings(p.Code, "Alice", badColors); !errors.Is(err, ErrMissingChipColor) {
		t.Errorf("Expected ErrMissingChipColor, got %v", err)
	}

	badBlinds := validUpdate()
	zero := 0
	badBlinds.SmallBlind = &zero
	if _, err := svc.UpdateSettings(p.Code, "Alice", badBlinds); !errors.Is(err, ErrInvalidBlinds) {
		t.Errorf("Expected ErrInvalidBlinds, got %v", err)
	}

	inverted := validUpdate()
	small, big := 20, 10
	inverted.SmallBlind, inverted.BigBlind = &small, &big
	if _, err := svc.UpdateSettings(p.Code, "Alice", inverted); !errors.Is(err, ErrInvalidBlinds) {
		t.Errorf("Expected ErrInvalidBlinds, got %v", err)
	}

	tooMany := validUpdate()
	eleven := 11
	tooMany.MaxPlayers = &eleven
	if _, err := svc.UpdateSettings(p.Code, "Alice", tooMany); !errors.Is(err, ErrInvalidMaxPlayers) {
		t.Errorf("Expected ErrInvalidMaxPlayers, got %v", err)
	}

	if _, err := svc.UpdateSettings(p.Code, "Bob", validUpdate()); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestUpdateSettings_CapacityReduction(t *testing.T) {
	svc, _, _ := newTestService()
	p, _ := svc.CreateParty("Alice")
	svc.JoinParty(p.Code, "Bob")
	svc.JoinParty(p.Code, "Carol")

	update := validUpdate()
	two := 2
	update.MaxPlayers = &two
	if _, err := svc.UpdateSettings(p.Code, "Alice", update); !errors.Is(err, ErrCapacityReduction) {
		t.Fatalf("Expected ErrCapacityReduction, got %v", err)
	}

	// Stored settings untouched.
	settings, _ := svc.GetGameSettings(p.Code)
	if settings.MaxPlayers != 6 {
		t.Errorf("Failed update should leave settings untouched, got max players %d", settings.MaxPlayers)
	}
}

func TestStartGame(t *testing.T) {
	svc, bc, store := newTestService()
	p, _ := svc.CreateParty("Alice")

	if err := svc.StartGame(p.Code, "Alice"); !errors.Is(err, state.ErrInsufficientPlayers) {
		t.Errorf("Expected ErrInsufficientPlayers, got %v", err)
	}

	svc.JoinParty(p.Code, "Bob")
	if err := svc.StartGame(p.Code, "Bob"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}

	if err := svc.StartGame(p.Code, "Alice"); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	stored, _ := svc.lookup(p.Code)
	gs := stored.GameState
	if !gs.Active || gs.CurrentRound != 0 || gs.DealerIndex != 0 || gs.TurnIndex != 0 || gs.CurrentBet != 0 {
		t.Errorf("Unexpected fresh game state: %+v", gs)
	}
	if !gs.Pot.CoversAllColors() {
		t.Error("Pot should cover all chip colors")
	}

	if len(bc.byName(models.EventStartGame)) != 1 {
		t.Error("StartGame should publish a start_game event")
	}

	stats, err := store.GetPartyStats(p.Code)
	if err != nil || stats.TotalGames != 1 {
		t.Errorf("Expected one recorded game start, got %+v (err %v)", stats, err)
	}
}

func TestAdvanceTurn(t *testing.T) {
	svc, bc, _ := newTestService()
	p, _ := svc.CreateParty("Alice")
	svc.JoinParty(p.Code, "Bob")

	if _, err := svc.AdvanceTurn(p.Code, "Alice"); !errors.Is(err, state.ErrInactiveGame) {
		t.Errorf("Expected ErrInactiveGame, got %v", err)
	}

	svc.StartGame(p.Code, "Alice")

	if _, err := svc.AdvanceTurn(p.Code, "Bob"); !errors.Is(err, state.ErrWrongTurn) {
		t.Errorf("Expected ErrWrongTurn, got %v", err)
	}

	turn, err := svc.AdvanceTurn(p.Code, "Alice")
	if err != nil {
		t.Fatalf("AdvanceTurn failed: %v", err)
	}
	if turn.CurrentTurn != 1 || turn.CurrentPlayer != "Bob" {
		t.Errorf("Expected turn 1/Bob, got %+v", turn)
	}

	event := bc.byName(models.EventTurnUpdate)[0]
	payload := event.Payload.(models.TurnUpdatePayload)
	if payload.CurrentTurn != 1 || payload.CurrentPlayer != "Bob" {
		t.Errorf("Broadcast payload mismatch: %+v", payload)
	}
}

func TestAdvanceTurn_RotationClosure(t *testing.T) {
	svc, _, _ := newTestService()
	p, _ := svc.CreateParty("Alice")
	names := []string{"Bob", "Carol", "Dave"}
	for _, name := range names {
		svc.JoinParty(p.Code, name)
	}
	svc.StartGame(p.Code, "Alice")

	order := append([]string{"Alice"}, names...)
	for i := 0; i < len(order); i++ {
		if _, err := svc.AdvanceTurn(p.Code, order[i]); err != nil {
			t.Fatalf("Advance by %s failed: %v", order[i], err)
		}
	}

	stored, _ := svc.lookup(p.Code)
	if stored.GameState.TurnIndex != 0 {
		t.Errorf("N advances should return the turn to seat 0, got %d", stored.GameState.TurnIndex)
	}
}

// End-to-end walk through the create/join/start/advance flow.
func TestPartyLifecycleScenario(t *testing.T) {
	svc, bc, _ := newTestService()

	p, err := svc.CreateParty("Alice")
	if err != nil {
		t.Fatalf("CreateParty failed: %v", err)
	}

	if _, err := svc.JoinParty(p.Code, "Bob"); err != nil {
		t.Fatalf("JoinParty failed: %v", err)
	}

	update := validUpdate()
	two := 2
	update.MaxPlayers = &two
	if _, err := svc.UpdateSettings(p.Code, "Alice", update); err != nil {
		t.Fatalf("UpdateSettings failed: %v", err)
	}

	if _, err := svc.JoinParty(p.Code, "Carol"); !errors.Is(err, ErrPartyFull) {
		t.Fatalf("Expected ErrPartyFull for Carol, got %v", err)
	}

	if err := svc.StartGame(p.Code, "Alice"); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	if _, err := svc.AdvanceTurn(p.Code, "Bob"); !errors.Is(err, state.ErrWrongTurn) {
		t.Fatalf("Expected ErrWrongTurn for Bob, got %v", err)
	}

	turn, err := svc.AdvanceTurn(p.Code, "Alice")
	if err != nil {
		t.Fatalf("AdvanceTurn failed: %v", err)
	}
	if turn.CurrentTurn != 1 || turn.CurrentPlayer != "Bob" {
		t.Fatalf("Expected turn_update{1, Bob}, got %+v", turn)
	}

	events := bc.byName(models.EventTurnUpdate)
	payload := events[len(events)-1].Payload.(models.TurnUpdatePayload)
	if payload.CurrentTurn != 1 || payload.CurrentPlayer != "Bob" {
		t.Fatalf("Broadcast turn_update mismatch: %+v", payload)
	}
}

func TestConcurrentJoins_NeverExceedCapacity(t *testing.T) {
	svc, _, _ := newTestService()
	p, _ := svc.CreateParty("Alice")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			svc.JoinParty(p.Code, fmt.Sprintf("guest%d", n))
		}(i)
	}
	wg.Wait()

	members, err := svc.Status(p.Code)
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	if len(members) != 6 {
		t.Errorf("Expected exactly max_players=6 members under concurrency, got %d", len(members))
	}

	seen := make(map[string]bool)
	for _, m := range members {
		if seen[m] {
			t.Errorf("Duplicate member %s", m)
		}
		seen[m] = true
	}
}

func TestConcurrentAdvances_NoLostUpdate(t *testing.T) {
	svc, _, _ := newTestService()
	p, _ := svc.CreateParty("Alice")
	svc.JoinParty(p.Code, "Bob")
	svc.StartGame(p.Code, "Alice")

	// Two racing advances by the same on-turn player: exactly one may win.
	var wg sync.WaitGroup
	successes := make(chan struct{}, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.AdvanceTurn(p.Code, "Alice"); err == nil {
				successes <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(successes)

	count := 0
	for range successes {
		count++
	}
	if count != 1 {
		t.Errorf("Expected exactly one advance to win the race, got %d", count)
	}

	stored, _ := svc.lookup(p.Code)
	if stored.GameState.TurnIndex != 1 {
		t.Errorf("Expected turn index 1 after the race, got %d", stored.GameState.TurnIndex)
	}
}
