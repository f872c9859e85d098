// Package hwdriver adapts the MCP23017 output board to ledengine.Driver
// (LED on/off) and provides null stand-ins for a missing LCD or LED board.
// The button board needs no adapter here: *mcp23017.Board already
// satisfies iotask's expanderReader. LEDBoard
// generalizes the teacher's hardware/led.Controller, which toggled a single
// bit on an *expander.Expander via masked Write calls; here one board
// serves every LED the spec's pin map names (spec.md §6.4), addressed by
// (ledengine.Type, index) instead of one Controller per bit.
package hwdriver

import (
	"fmt"

	"tacsuitcase/internal/ledengine"
	"tacsuitcase/internal/mcp23017"
)

// board is the subset of *mcp23017.Board the LED driver needs.
type board interface {
	Write(value, mask uint16) error
}

// LEDBoard maps a ledengine.Command's (Type, Index) onto board-1 output
// pins, per spec.md §6.4.
type LEDBoard struct {
	dev board
}

// NewLEDBoard returns a ledengine.Driver backed by dev (ordinarily board 1,
// built with mcp23017.New("board1", ...)).
func NewLEDBoard(dev *mcp23017.Board) *LEDBoard {
	return &LEDBoard{dev: dev}
}

// Every module that submits ledengine.Command values already fills Index
// with the absolute board-1 bit from the fixed pin map (spec.md §6.4) —
// internal/modules/alert, nukemodule and mainpower each define their pin
// constants directly as board-1 bit numbers (0..5, 7, 8..10), so this
// driver only has to validate range, not remap per Type.
func pin(kind ledengine.Type, index int) (uint, error) {
	if index < 0 || index > 15 {
		return 0, fmt.Errorf("hwdriver: LED index %d out of range 0..15", index)
	}
	return uint(index), nil
}

// SetLED implements ledengine.Driver.
func (b *LEDBoard) SetLED(kind ledengine.Type, index int, on bool) error {
	bit, err := pin(kind, index)
	if err != nil {
		return err
	}
	mask := uint16(1) << bit
	val := uint16(0)
	if on {
		val = mask
	}
	return b.dev.Write(val, mask)
}
