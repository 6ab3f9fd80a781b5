package common

import "errors"

var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a named module is currently paused.
type PauseView interface {
	IsPaused(module string) bool
}

// PauseController extends the read-only view with the ability to flip the
// pause flag. The ledger's admin entry points operate through this interface
// so the backing flag can live in persistent state.
type PauseController interface {
	PauseView
	SetPaused(module string, paused bool) error
}

func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
