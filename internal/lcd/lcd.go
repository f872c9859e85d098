// Package lcd implements an HD44780 character LCD driven in 4-bit mode
// through an 8-bit PCF8574 I2C expander (spec.md §4.14). The timing
// constants and init sequence follow the HD44780 datasheet; the SPI/GPIO
// pacing idiom (explicit named delay constants, init performed with
// host.Init() already done by the shared bus) is grounded on the
// teacher's hardware/oled package.
package lcd

import (
	"fmt"
	"strings"
	"time"
)

// PCF8574 bit assignment for a typical HD44780 backpack.
const (
	bitRS         = 1 << 0
	bitRW         = 1 << 1
	bitEnable     = 1 << 2
	bitBacklight  = 1 << 3
	dataNibbleLSB = 4 // D4..D7 occupy bits 4..7
)

// Width is the fixed column count (spec.md §4.14: 16x2 exactly).
const Width = 16

// Rows is the fixed row count.
const Rows = 2

// HD44780 minimum timings (spec.md §4.14: ">= 4.1ms, >= 100us, >= 37us").
const (
	initDelayLong  = 5 * time.Millisecond
	initDelayShort = 150 * time.Microsecond
	enablePulse    = 1 * time.Microsecond
	commandDelay   = 40 * time.Microsecond
)

// expander is the subset of *i2cbus.Device this driver needs; it exists so
// tests can substitute a fake PCF8574 instead of talking to real hardware.
type expander interface {
	Addr() uint8
	Probe() bool
	WriteRaw(buf []byte) error
}

// LCD drives a 16x2 HD44780 panel over a PCF8574 I2C expander.
type LCD struct {
	dev       expander
	backlight byte
	sleep     func(time.Duration)
}

// New initializes the panel. It returns an error if the expander does not
// acknowledge (spec.md §4.14: "returns error if the expander is absent").
func New(dev expander) (*LCD, error) {
	l := &LCD{dev: dev, backlight: bitBacklight, sleep: time.Sleep}
	if !dev.Probe() {
		return nil, fmt.Errorf("lcd: expander at 0x%02x not responding", dev.Addr())
	}
	if err := l.init4BitSequence(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *LCD) writeRaw(b byte) error {
	return l.dev.WriteRaw([]byte{b | l.backlight})
}

func (l *LCD) pulseEnable(b byte) error {
	if err := l.writeRaw(b | bitEnable); err != nil {
		return err
	}
	l.sleep(enablePulse)
	if err := l.writeRaw(b &^ bitEnable); err != nil {
		return err
	}
	l.sleep(commandDelay)
	return nil
}

// writeNibble sends the low 4 bits of nibble on D4..D7, with rs controlling
// the RS line (false = command, true = data).
func (l *LCD) writeNibble(nibble byte, rs bool) error {
	b := (nibble & 0x0F) << dataNibbleLSB
	if rs {
		b |= bitRS
	}
	if err := l.writeRaw(b); err != nil {
		return err
	}
	return l.pulseEnable(b)
}

func (l *LCD) writeByte(value byte, rs bool) error {
	if err := l.writeNibble(value>>4, rs); err != nil {
		return err
	}
	return l.writeNibble(value, rs)
}

// init4BitSequence performs the HD44780 4-bit mode init dance.
func (l *LCD) init4BitSequence() error {
	l.sleep(initDelayLong)
	// Three forced 8-bit-mode nibbles, per datasheet, with the required
	// settle times between them.
	for i := 0; i < 3; i++ {
		if err := l.writeNibble(0x03, false); err != nil {
			return err
		}
		if i == 0 {
			l.sleep(initDelayLong)
		} else {
			l.sleep(initDelayShort)
		}
	}
	// Switch to 4-bit mode.
	if err := l.writeNibble(0x02, false); err != nil {
		return err
	}
	l.sleep(commandDelay)

	// Function set: 4-bit, 2 lines, 5x8 font.
	if err := l.writeByte(0x28, false); err != nil {
		return err
	}
	// Display off.
	if err := l.writeByte(0x08, false); err != nil {
		return err
	}
	if err := l.Clear(); err != nil {
		return err
	}
	// Entry mode: increment, no shift.
	if err := l.writeByte(0x06, false); err != nil {
		return err
	}
	// Display on, cursor off, blink off.
	return l.writeByte(0x0C, false)
}

// Clear clears the display and returns the cursor home. This command
// requires the long HD44780 settle time.
func (l *LCD) Clear() error {
	if err := l.writeByte(0x01, false); err != nil {
		return err
	}
	l.sleep(initDelayLong)
	return nil
}

// Home returns the cursor to (0,0) without clearing the display.
func (l *LCD) Home() error {
	if err := l.writeByte(0x02, false); err != nil {
		return err
	}
	l.sleep(initDelayLong)
	return nil
}

var rowOffsets = [Rows]byte{0x00, 0x40}

// SetCursor positions the cursor at (col, row), 0-indexed.
func (l *LCD) SetCursor(col, row int) error {
	if row < 0 || row >= Rows || col < 0 || col >= Width {
		return fmt.Errorf("lcd: cursor position (%d,%d) out of bounds", col, row)
	}
	addr := rowOffsets[row] + byte(col)
	return l.writeByte(0x80|addr, false)
}

// WriteString writes s starting at the current cursor position.
func (l *LCD) WriteString(s string) error {
	for _, r := range s {
		if err := l.writeByte(byte(r), true); err != nil {
			return err
		}
	}
	return nil
}

// WriteLine writes exactly Width characters to row in a single logical
// transaction (one SetCursor plus one WriteString call), per spec.md
// §4.14: "the driver MUST write the full row in one transaction to avoid
// flicker." Shorter strings are space-padded; longer strings truncated.
func (l *LCD) WriteLine(row int, s string) error {
	line := s
	if len(line) > Width {
		line = line[:Width]
	} else if len(line) < Width {
		line = line + strings.Repeat(" ", Width-len(line))
	}
	if err := l.SetCursor(0, row); err != nil {
		return err
	}
	return l.WriteString(line)
}

// SetBacklight turns the backlight on or off.
func (l *LCD) SetBacklight(on bool) error {
	if on {
		l.backlight = bitBacklight
	} else {
		l.backlight = 0
	}
	return l.writeRaw(0)
}
