package common

import "errors"

var (
	// ErrModulePaused signals that the targeted module is administratively
	// paused.
	ErrModulePaused = errors.New("module paused")
	// ErrReentrantCall signals that a value-moving entry point was invoked
	// again before the outer call finished.
	ErrReentrantCall = errors.New("reentrant call")
)

// PauseView exposes the pause switches maintained by governance.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard rejects the call when the module is paused.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// CallGuard is an in-progress flag protecting state-mutating entry points
// that move value. The engine runs single-sequenced, so the only way Enter
// can observe the flag set is a re-entrant call from within the same
// operation, e.g. a transfer callback dialing back into the engine.
type CallGuard struct {
	busy bool
}

// Enter marks the guard busy, failing if it already is.
func (g *CallGuard) Enter() error {
	if g == nil {
		return nil
	}
	if g.busy {
		return ErrReentrantCall
	}
	g.busy = true
	return nil
}

// Exit releases the guard. Intended for defer directly after Enter.
func (g *CallGuard) Exit() {
	if g == nil {
		return
	}
	g.busy = false
}
