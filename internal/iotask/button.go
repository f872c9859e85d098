// Package iotask implements the dual-cadence I/O scanner (spec.md §4.12):
// a single task that drives the button handler every tick and the ADC
// handler every other tick.
package iotask

import (
	"tacsuitcase/internal/event"
)

// DebounceMs is the minimum stable duration before a raw pin transition is
// accepted (spec.md §4.12.1).
const DebounceMs = 50

// NumButtons is the number of configured button pins (board 0, pins 1-3
// per spec.md §4.7, plus headroom for future pins).
const NumButtons = 16

// expanderReader is the subset of mcp23017.Board this handler needs.
type expanderReader interface {
	Read() (uint16, error)
}

type buttonRecord struct {
	lastStableState  bool // true = logic HIGH
	lastSampleState  bool
	stableSinceMs    int64
	haveStableSample bool
}

// ButtonHandler debounces board-0 input pins and posts BUTTON_PRESSED
// events on active-low rising edges (spec.md §3 "Button record",
// §4.12.1).
type ButtonHandler struct {
	board   expanderReader
	records [NumButtons]buttonRecord
	nowMs   func() int64

	post func(event.Event)
}

// NewButtonHandler returns a handler reading board's port A/B registers.
// post is called with BUTTON_PRESSED events (typically Dispatcher.Post).
func NewButtonHandler(board expanderReader, post func(event.Event)) *ButtonHandler {
	return &ButtonHandler{
		board: board,
		post:  post,
		nowMs: defaultNowMs,
	}
}

// Scan reads the board once and advances every configured pin's debounce
// state machine, emitting BUTTON_PRESSED for any newly-stable rising edge
// (active-low: a stable LOW means pressed).
func (b *ButtonHandler) Scan() error {
	raw, err := b.board.Read()
	if err != nil {
		return err
	}
	now := b.nowMs()

	for i := 0; i < NumButtons; i++ {
		sample := raw&(1<<uint(i)) != 0 // true = HIGH
		r := &b.records[i]

		if !r.haveStableSample {
			r.lastSampleState = sample
			r.lastStableState = sample
			r.stableSinceMs = now
			r.haveStableSample = true
			continue
		}

		if sample != r.lastSampleState {
			r.lastSampleState = sample
			r.stableSinceMs = now
			continue
		}

		if now-r.stableSinceMs >= DebounceMs && sample != r.lastStableState {
			r.lastStableState = sample
			if !sample { // active-low: stable LOW is "pressed"
				b.emitPressed(i)
			}
		}
	}
	return nil
}

func (b *ButtonHandler) emitPressed(index int) {
	ge := event.GameEvent{
		Kind: event.ButtonPressed,
		Data: event.Data{ButtonIndex: index},
	}
	b.post(event.FromGameEvent(ge, event.SourceButton))
}
