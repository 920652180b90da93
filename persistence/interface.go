// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/wfunc/partyserver/models"
)

// Store 派对存储接口
type Store interface {
	GetParty(code string) (*models.Party, error)
	PutParty(party *models.Party) error
	DeleteParty(code string) error
	PartyExists(code string) (bool, error)
	Close() error
}

// Recorder persists game-start history. Implemented by the SQL stores; the
// memory store keeps records in a slice for tests.
type Recorder interface {
	SaveGameRecord(record *models.GameRecord) error
	GetPartyStats(code string) (*models.PartyStats, error)
}

// 错误定义
var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
