package event

import "time"

// MaxDataBytes bounds the opaque JSON payload carried on an event
// (spec.md §3 "data (opaque JSON substring, ≤ 512 bytes)").
const MaxDataBytes = 512

// Data holds the frequently-inspected fields of a game event's payload as
// strongly typed values, plus the original JSON text as a fallback for
// anything a handler doesn't specifically care about. This replaces the
// "callbacks with untyped void*-style data fields" pattern flagged in
// spec.md §9: instead of an opaque 256-byte blob, the fields every module
// actually reads are named, and Raw exists only as the escape hatch.
type Data struct {
	NukeUnitID   uint32 `json:"nukeUnitID,omitempty"`
	UnitID       uint32 `json:"unitID,omitempty"`
	TroopsCurr   int64  `json:"-"`
	TroopsMax    int64  `json:"-"`
	HasTroops    bool   `json:"-"`
	Victory      bool   `json:"-"`
	HasVictory   bool   `json:"-"`
	SoundIndex   int    `json:"sound_index,omitempty"`
	NukeType     string `json:"type,omitempty"` // "Atom" | "Hydro" | "MIRV"
	TargetTile   string `json:"targetTile,omitempty"`
	ButtonIndex  int    `json:"-"` // pin index for BUTTON_PRESSED, an internal-only kind

	// Raw is the original JSON object text, truncated to MaxDataBytes.
	Raw string `json:"-"`
}

// GameEvent is the tagged value described in spec.md §3.
type GameEvent struct {
	Kind        Kind
	TimestampMs int64
	Message     string
	Data        Data
}

// Event extends GameEvent with the source of the event and is what actually
// flows through the Dispatcher (spec.md §3 "Internal event").
type Event struct {
	GameEvent
	Source Source
}

// NewSimple builds an Event carrying no payload beyond its kind and source.
func NewSimple(kind Kind, source Source) Event {
	return Event{
		GameEvent: GameEvent{Kind: kind, TimestampMs: nowMs()},
		Source:    source,
	}
}

// FromGameEvent tags a GameEvent with its source.
func FromGameEvent(ge GameEvent, source Source) Event {
	return Event{GameEvent: ge, Source: source}
}

// nowMs is a var so tests can stub it instead of depending on wall-clock
// time; spec.md §3 notes timestamps are "used only for logs/order hints".
var nowMs = func() int64 { return time.Now().UnixMilli() }
