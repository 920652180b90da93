// registry/registry.go
package registry

import (
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/wfunc/partyserver/models"
	"github.com/wfunc/partyserver/persistence"
)

const (
	codeLength  = 6
	codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Registry owns party records: it generates unique codes and is the only
// component that touches the store.
type Registry struct {
	store persistence.Store

	// createMutex serializes code generation with the insert so two
	// concurrent creates cannot claim the same code.
	createMutex sync.Mutex
}

func New(store persistence.Store) *Registry {
	return &Registry{store: store}
}

// GenerateCode returns a random 6-character party code.
func GenerateCode() string {
	var b strings.Builder
	b.Grow(codeLength)
	for i := 0; i < codeLength; i++ {
		b.WriteByte(codeCharset[rand.IntN(len(codeCharset))])
	}
	return b.String()
}

// Create builds a new party hosted by hostName and persists it. The host is
// seated first with a copy of the default starting stack.
func (r *Registry) Create(hostName string) (*models.Party, error) {
	r.createMutex.Lock()
	defer r.createMutex.Unlock()

	code := GenerateCode()
	for {
		exists, err := r.store.PartyExists(code)
		if err != nil {
			return nil, err
		}
		if !exists {
			break
		}
		code = GenerateCode()
	}

	settings := models.DefaultSettings()
	now := time.Now()
	party := &models.Party{
		Code:     code,
		Host:     hostName,
		Settings: settings,
		Players: []models.Player{
			{
				Username: hostName,
				Stack:    settings.StartingStack.Clone(),
				IsActive: true,
				Position: models.PositionSmallBlind,
			},
		},
		GameState: models.GameState{
			Pot: settings.ChipValues.ZeroedCopy(),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := r.store.PutParty(party); err != nil {
		return nil, err
	}
	return party, nil
}

// Lookup returns the party for code, or persistence.ErrRecordNotFound.
func (r *Registry) Lookup(code string) (*models.Party, error) {
	return r.store.GetParty(code)
}

// Update writes the party back to the store.
func (r *Registry) Update(party *models.Party) error {
	party.UpdatedAt = time.Now()
	return r.store.PutParty(party)
}

// Delete removes the party record. Only the host-leave path uses this.
func (r *Registry) Delete(code string) error {
	return r.store.DeleteParty(code)
}
