package common

import "sort"

// PauseSet is the concrete pause switchboard engines consult through the
// PauseView interface. Governance flips switches per module name; engines
// never write it.
type PauseSet struct {
	paused map[string]bool
}

// NewPauseSet constructs a switchboard with every module running.
func NewPauseSet() *PauseSet {
	return &PauseSet{paused: make(map[string]bool)}
}

// IsPaused implements the PauseView interface.
func (p *PauseSet) IsPaused(module string) bool {
	if p == nil {
		return false
	}
	return p.paused[module]
}

// SetPaused flips the switch for a module. Authorization is the caller's
// responsibility.
func (p *PauseSet) SetPaused(module string, paused bool) {
	if p == nil || module == "" {
		return
	}
	if paused {
		p.paused[module] = true
		return
	}
	delete(p.paused, module)
}

// Paused returns the sorted list of paused module names.
func (p *PauseSet) Paused() []string {
	if p == nil {
		return nil
	}
	out := make([]string, 0, len(p.paused))
	for module := range p.paused {
		out = append(out, module)
	}
	sort.Strings(out)
	return out
}

// SetAll replaces the switchboard contents with the given module names.
func (p *PauseSet) SetAll(modules []string) {
	if p == nil {
		return
	}
	p.paused = make(map[string]bool, len(modules))
	for _, module := range modules {
		if module != "" {
			p.paused[module] = true
		}
	}
}

// Clone returns a deep copy of the switchboard.
func (p *PauseSet) Clone() *PauseSet {
	if p == nil {
		return nil
	}
	clone := NewPauseSet()
	for module := range p.paused {
		clone.paused[module] = true
	}
	return clone
}

// Restore copies the state of a snapshot produced by Clone back into the
// switchboard.
func (p *PauseSet) Restore(snapshot *PauseSet) {
	if p == nil || snapshot == nil {
		return
	}
	p.paused = snapshot.Clone().paused
}
