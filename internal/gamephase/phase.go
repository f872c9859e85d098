// Package gamephase implements the game phase state machine described in
// spec.md §4.2: a single authoritative phase derived from the event stream,
// observed by a single pure callback.
package gamephase

import (
	"sync"

	"tacsuitcase/internal/event"
)

// Phase is one of the states in spec.md §3 "Game phase".
type Phase int

const (
	Lobby Phase = iota
	Spawning
	InGame
	Won
	Lost
	Ended
)

func (p Phase) String() string {
	switch p {
	case Lobby:
		return "LOBBY"
	case Spawning:
		return "SPAWNING"
	case InGame:
		return "IN_GAME"
	case Won:
		return "WON"
	case Lost:
		return "LOST"
	case Ended:
		return "ENDED"
	default:
		return "UNKNOWN"
	}
}

// Observer is called synchronously whenever the phase changes. Per
// spec.md §4.2, observers "must be pure (no blocking I/O)" — Machine makes
// no attempt to enforce this beyond documenting it.
type Observer func(old, new Phase)

// Machine tracks the current phase and applies the transition table from
// spec.md §3 in response to dispatched events.
type Machine struct {
	mu       sync.Mutex
	phase    Phase
	observer Observer
}

// New returns a Machine starting in LOBBY.
func New() *Machine {
	return &Machine{phase: Lobby}
}

// OnChange registers the single observer callback. Calling it again
// replaces the previous observer.
func (m *Machine) OnChange(fn Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = fn
}

// Get returns the current phase.
func (m *Machine) Get() Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Reset returns to LOBBY and fires the change callback if the phase
// actually changed. Per spec.md §3 this is invoked on WS connect/disconnect.
func (m *Machine) Reset() {
	m.transition(Lobby)
}

// Update applies the transition table in spec.md §3 for a single event.
// cmd/tacsuitcase registers it as a type-specific dispatcher handler for
// GAME_SPAWNING, GAME_START and GAME_END, not under ANY: the dispatcher
// runs type-specific handlers before wildcard ones, so the phase is
// already updated by the time the module manager's ANY-registered handler
// routes the same event to the modules.
func (m *Machine) Update(kind event.Kind, data event.Data) {
	m.mu.Lock()
	cur := m.phase
	next := cur
	switch kind {
	case event.GameSpawning:
		if cur == Lobby {
			next = Spawning
		}
	case event.GameStart:
		if cur == Lobby || cur == Spawning {
			next = InGame
		}
	case event.GameEnd:
		if cur == InGame {
			if data.HasVictory && data.Victory {
				next = Won
			} else if data.HasVictory && !data.Victory {
				next = Lost
			} else {
				next = Ended
			}
		}
	}
	m.phase = next
	m.mu.Unlock()

	if next != cur {
		m.fireChange(cur, next)
	}
}

func (m *Machine) transition(next Phase) {
	m.mu.Lock()
	cur := m.phase
	m.phase = next
	m.mu.Unlock()
	if next != cur {
		m.fireChange(cur, next)
	}
}

func (m *Machine) fireChange(old, new Phase) {
	m.mu.Lock()
	obs := m.observer
	m.mu.Unlock()
	if obs != nil {
		obs(old, new)
	}
}
