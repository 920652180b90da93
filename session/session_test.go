package session

import (
	"net"
	"testing"
	"time"

	"github.com/wfunc/partyserver/network"
)

// MockConnection is a test double for the network.Connection interface.
type MockConnection struct{}

func (m *MockConnection) Send(msgID uint16, data []byte) error { return nil }
func (m *MockConnection) Close() error                         { return nil }
func (m *MockConnection) RemoteAddr() net.Addr                 { return &net.TCPAddr{} }
func (m *MockConnection) SetHeartbeat(interval time.Duration)  {}
func (m *MockConnection) ReadPacket() (*network.Packet, error) { return nil, nil }

func TestNewManager(t *testing.T) {
	manager := NewManager()
	if manager == nil {
		t.Fatal("NewManager should not return nil")
	}
	if manager.sessions == nil {
		t.Fatal("NewManager should initialize the sessions map")
	}
}

func TestManager_Add_Get_Remove(t *testing.T) {
	manager := NewManager()
	sessionID := "test_session_1"
	sess := NewSession(sessionID, &MockConnection{})

	manager.Add(sess)
	if manager.Count() != 1 {
		t.Fatalf("Expected session count to be 1, got %d", manager.Count())
	}

	retrievedSess, exists := manager.Get(sessionID)
	if !exists {
		t.Fatal("Get should find the added session")
	}
	if retrievedSess != sess {
		t.Fatal("Get should return the same session instance")
	}

	manager.Remove(sessionID)
	if manager.Count() != 0 {
		t.Fatalf("Expected session count to be 0 after removal, got %d", manager.Count())
	}

	_, exists = manager.Get(sessionID)
	if exists {
		t.Fatal("Get should not find the removed session")
	}
}

func TestManager_All(t *testing.T) {
	manager := NewManager()
	manager.Add(NewSession("s1", &MockConnection{}))
	manager.Add(NewSession("s2", &MockConnection{}))

	all := manager.All()
	if len(all) != 2 {
		t.Errorf("Expected 2 sessions, got %d", len(all))
	}
}

func TestSession_IdleSince(t *testing.T) {
	sess := NewSession("s1", &MockConnection{})

	if sess.IdleSince(time.Minute) {
		t.Error("Fresh session should not be idle")
	}

	sess.LastActive = time.Now().Add(-2 * time.Minute)
	if !sess.IdleSince(time.Minute) {
		t.Error("Session silent for 2 minutes should be idle past a 1 minute limit")
	}

	sess.Touch()
	if sess.IdleSince(time.Minute) {
		t.Error("Touch should refresh the liveness timestamp")
	}
}
