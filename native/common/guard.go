package common

import "errors"

// ErrModulePaused is returned by Guard when operations for a module have been
// administratively suspended.
var ErrModulePaused = errors.New("module paused")

// PauseView reports whether a named module is currently paused.
type PauseView interface {
	IsPaused(module string) bool
}

// PauseSet is a fixed PauseView over a list of module names.
type PauseSet map[string]bool

// NewPauseSet returns a view that reports exactly the given modules as paused.
func NewPauseSet(modules ...string) PauseSet {
	set := make(PauseSet, len(modules))
	for _, module := range modules {
		set[module] = true
	}
	return set
}

// IsPaused implements PauseView.
func (s PauseSet) IsPaused(module string) bool { return s[module] }

// Guard rejects the call when the module is paused. A nil view or empty module
// name disables the check.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}
