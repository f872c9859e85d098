package gamephase

import (
	"testing"

	"tacsuitcase/internal/event"
)

// TestGameStartThenVictoryEndsWon verifies invariant P3: update(GAME_START)
// followed immediately by update(GAME_END, victory:true) ends in WON, never
// IN_GAME.
func TestGameStartThenVictoryEndsWon(t *testing.T) {
	m := New()
	m.Update(event.GameStart, event.Data{})
	m.Update(event.GameEnd, event.Data{HasVictory: true, Victory: true})
	if got := m.Get(); got != Won {
		t.Fatalf("expected WON, got %s", got)
	}
}

func TestFullHappyPathFlow(t *testing.T) {
	m := New()
	var transitions []Phase
	m.OnChange(func(old, new Phase) { transitions = append(transitions, new) })

	m.Update(event.GameSpawning, event.Data{})
	m.Update(event.GameStart, event.Data{})
	m.Update(event.GameEnd, event.Data{HasVictory: true, Victory: true})

	want := []Phase{Spawning, InGame, Won}
	if len(transitions) != len(want) {
		t.Fatalf("got transitions %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("got transitions %v, want %v", transitions, want)
		}
	}
}

func TestGameEndWithoutVictoryFieldGoesToEnded(t *testing.T) {
	m := New()
	m.Update(event.GameStart, event.Data{})
	m.Update(event.GameEnd, event.Data{})
	if got := m.Get(); got != Ended {
		t.Fatalf("expected ENDED when victory field is absent, got %s", got)
	}
}

func TestResetReturnsToLobbyFromAnyTerminalPhase(t *testing.T) {
	for _, start := range []Phase{Won, Lost, Ended} {
		m := New()
		m.phase = start
		m.Reset()
		if got := m.Get(); got != Lobby {
			t.Fatalf("reset from %s: expected LOBBY, got %s", start, got)
		}
	}
}

func TestLossPath(t *testing.T) {
	m := New()
	m.Update(event.GameStart, event.Data{})
	m.Update(event.GameEnd, event.Data{HasVictory: true, Victory: false})
	if got := m.Get(); got != Lost {
		t.Fatalf("expected LOST, got %s", got)
	}
}
