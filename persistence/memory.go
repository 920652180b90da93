// persistence/memory.go
package persistence

import (
	"encoding/json"
	"sync"

	"github.com/wfunc/partyserver/models"
)

// MemoryStore keeps parties in process memory. Used when no database is
// configured and by tests.
type MemoryStore struct {
	parties map[string][]byte
	records []models.GameRecord
	mutex   sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		parties: make(map[string][]byte),
	}
}

func (s *MemoryStore) GetParty(code string) (*models.Party, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	raw, exists := s.parties[code]
	if !exists {
		return nil, ErrRecordNotFound
	}

	var party models.Party
	if err := json.Unmarshal(raw, &party); err != nil {
		return nil, err
	}
	return &party, nil
}

func (s *MemoryStore) PutParty(party *models.Party) error {
	raw, err := json.Marshal(party)
	if err != nil {
		return err
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.parties[party.Code] = raw
	return nil
}

func (s *MemoryStore) DeleteParty(code string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	delete(s.parties, code)
	return nil
}

func (s *MemoryStore) PartyExists(code string) (bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	_, exists := s.parties[code]
	return exists, nil
}

func (s *MemoryStore) SaveGameRecord(record *models.GameRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.records = append(s.records, *record)
	return nil
}

func (s *MemoryStore) GetPartyStats(code string) (*models.PartyStats, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	stats := &models.PartyStats{}
	for _, record := range s.records {
		if record.Code == code {
			stats.TotalGames++
		}
	}
	return stats, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
