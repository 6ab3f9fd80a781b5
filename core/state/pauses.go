package state

import (
	"artgrid/storage"
)

const prefixPaused = "pauses/"

// Pauses is a persistent module pause registry. It satisfies the native
// PauseController interface so engines can both consult and flip the flag,
// and the setting survives a node restart.
type Pauses struct {
	db storage.Database
}

// NewPauses wraps the supplied database.
func NewPauses(db storage.Database) *Pauses {
	return &Pauses{db: db}
}

func pausedKey(module string) []byte {
	return append([]byte(prefixPaused), module...)
}

// IsPaused reports whether the module is currently paused. Storage errors
// degrade to "not paused" so a read failure can never wedge the ledger shut.
func (p *Pauses) IsPaused(module string) bool {
	if p == nil || p.db == nil {
		return false
	}
	ok, err := p.db.Has(pausedKey(module))
	if err != nil {
		return false
	}
	return ok
}

// SetPaused flips the module pause flag.
func (p *Pauses) SetPaused(module string, paused bool) error {
	if paused {
		return p.db.Put(pausedKey(module), []byte{0x01})
	}
	return p.db.Delete(pausedKey(module))
}
