package attendance

import "sync/atomic"

// State holds the automation toggle shared between the scheduler and the
// control API. The process starts enabled and the flag is never persisted;
// a restart always comes back enabled.
type State struct {
	enabled atomic.Bool
}

// NewState returns a State with automation enabled.
func NewState() *State {
	s := &State{}
	s.enabled.Store(true)
	return s
}

// Enabled reports whether scheduled punches may fire.
func (s *State) Enabled() bool {
	return s.enabled.Load()
}

// Enable turns scheduled punching on.
func (s *State) Enable() {
	s.enabled.Store(true)
}

// Disable turns scheduled punching off. Manual triggers are unaffected.
func (s *State) Disable() {
	s.enabled.Store(false)
}
