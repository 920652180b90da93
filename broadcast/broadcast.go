// broadcast/broadcast.go
package broadcast

import (
	"encoding/json"
	"sync"

	"github.com/wfunc/partyserver/models"
	"github.com/wfunc/partyserver/network"
	"github.com/wfunc/partyserver/session"
)

// 广播接口
type Broadcaster interface {
	Publish(code, event string, payload interface{}) error
}

// PartyBroadcaster fans events out to every session subscribed to a party
// code. Delivery is best-effort: a failed send is skipped, never retried.
type PartyBroadcaster struct {
	rooms map[string]map[string]*session.Session // code -> sessionID -> session
	mutex sync.RWMutex
}

func NewPartyBroadcaster() *PartyBroadcaster {
	return &PartyBroadcaster{
		rooms: make(map[string]map[string]*session.Session),
	}
}

// Subscribe associates the session with a party code. A session follows at
// most one code; subscribing again moves it.
func (b *PartyBroadcaster) Subscribe(code string, s *session.Session) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if s.PartyCode != "" && s.PartyCode != code {
		b.removeLocked(s)
	}

	room, exists := b.rooms[code]
	if !exists {
		room = make(map[string]*session.Session)
		b.rooms[code] = room
	}
	room[s.ID] = s
	s.PartyCode = code
}

// Unsubscribe detaches the session from its room, if any.
func (b *PartyBroadcaster) Unsubscribe(s *session.Session) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.removeLocked(s)
}

func (b *PartyBroadcaster) removeLocked(s *session.Session) {
	if room, exists := b.rooms[s.PartyCode]; exists {
		delete(room, s.ID)
		if len(room) == 0 {
			delete(b.rooms, s.PartyCode)
		}
	}
	s.PartyCode = ""
}

// Publish delivers the event to every subscriber of code. A code with no
// subscribers is not an error; the mutation already happened.
func (b *PartyBroadcaster) Publish(code, event string, payload interface{}) error {
	data, err := json.Marshal(models.Event{Name: event, Data: payload})
	if err != nil {
		return err
	}

	b.mutex.RLock()
	sessions := make([]*session.Session, 0, len(b.rooms[code]))
	for _, s := range b.rooms[code] {
		sessions = append(sessions, s)
	}
	b.mutex.RUnlock()

	for _, s := range sessions {
		if err := s.Send(network.MsgTypeEvent, data); err != nil {
			// 发送失败则跳过该连接
			continue
		}
	}
	return nil
}

// Rooms returns how many codes currently have subscribers.
func (b *PartyBroadcaster) Rooms() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return len(b.rooms)
}

// Subscribers returns how many sessions follow the code.
func (b *PartyBroadcaster) Subscribers(code string) int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return len(b.rooms[code])
}
