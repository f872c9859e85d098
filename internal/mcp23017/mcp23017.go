// Package mcp23017 implements the MCP23017 I2C GPIO expander driver with
// fault detection and recovery (spec.md §4.13), generalizing the teacher's
// hardware/expander package (a single fixed-address, no-recovery driver)
// to support multiple boards, health tracking, and automatic recovery.
package mcp23017

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Register offsets, 16-bit, [A7..A0 B7..B0], identical to the teacher's
// hardware/expander constants.
const (
	regDirection = 0x00
	regPolarity  = 0x02
	regPullUp    = 0x0C
	regOutput    = 0x14
	regInput     = 0x12
)

// ConsecutiveErrorThreshold marks a board unhealthy after this many
// consecutive failed operations (spec.md §4.13).
const ConsecutiveErrorThreshold = 3

// MaxRetryAttempts bounds retries for a single failing operation.
const MaxRetryAttempts = 5

// InitialRetryBackoff and MaxRetryBackoff bound the doubling backoff
// between retries (spec.md §4.13: "initial 100ms, x2 up to 5s").
const (
	InitialRetryBackoff = 100 * time.Millisecond
	MaxRetryBackoff     = 5 * time.Second
)

// OpTimeout bounds a single I2C operation (spec.md §4.13).
const OpTimeout = 100 * time.Millisecond

// HealthCheckInterval is the cadence of the background round-trip check.
const HealthCheckInterval = 10 * time.Second

// Health mirrors the "I2C expander health" record from spec.md §3.
type Health struct {
	Healthy           bool
	ErrorCount        uint32
	ConsecutiveErrors uint32
	RecoveryCount     uint32
	LastErrorMs       int64
	LastHealthCheckMs int64
}

// RecoveryCallback is invoked after a successful recovery.
type RecoveryCallback func(board *Board)

// Board is one MCP23017 chip: its cached configuration intent (needed to
// replay after recovery) plus its current health.
//
// register is the subset of *i2cbus.Device this driver needs; it exists so
// tests can substitute a fake bus instead of talking to real hardware.
type register interface {
	WriteRegisterU16LE(reg byte, value uint16) error
	ReadRegisterU16LE(reg byte) (uint16, error)
}

type Board struct {
	mu sync.Mutex

	dev  register
	name string

	// cached intent, replayed verbatim during recovery.
	direction uint16
	polarity  uint16
	pullUp    uint16
	output    uint16

	health Health

	onRecover RecoveryCallback
	nowMs     func() int64
	sleep     func(time.Duration)
}

// New creates a Board bound to a device address on the shared bus. Call
// Configure to set direction/polarity/pull-up/output intent.
func New(name string, dev register) *Board {
	return &Board{
		dev:    dev,
		name:   name,
		health: Health{Healthy: true},
		nowMs:  func() int64 { return time.Now().UnixMilli() },
		sleep:  time.Sleep,
	}
}

// OnRecover registers the recovery callback, invoked once per successful
// recovery after the board was marked unhealthy.
func (b *Board) OnRecover(fn RecoveryCallback) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onRecover = fn
}

// Name identifies the board for logs.
func (b *Board) Name() string { return b.name }

// Configure sets the initial direction/polarity/pull-up/output registers
// and caches the intent for recovery replay. Board 0 is all-inputs with
// pull-up (0xFFFF); board 1 is all-outputs cleared (0x0000) per spec.md
// §4.13 "begin(addresses[])".
func (b *Board) Configure(direction, polarity, pullUp, output uint16) error {
	b.mu.Lock()
	b.direction, b.polarity, b.pullUp, b.output = direction, polarity, pullUp, output
	b.mu.Unlock()
	return b.applyIntent()
}

func (b *Board) applyIntent() error {
	b.mu.Lock()
	direction, polarity, pullUp, output := b.direction, b.polarity, b.pullUp, b.output
	b.mu.Unlock()

	if err := b.writeWithRetry(regDirection, direction); err != nil {
		return fmt.Errorf("mcp23017[%s]: set direction: %w", b.name, err)
	}
	if err := b.writeWithRetry(regPolarity, polarity); err != nil {
		return fmt.Errorf("mcp23017[%s]: set polarity: %w", b.name, err)
	}
	if err := b.writeWithRetry(regPullUp, pullUp); err != nil {
		return fmt.Errorf("mcp23017[%s]: set pull-up: %w", b.name, err)
	}
	if err := b.writeWithRetry(regOutput, output); err != nil {
		return fmt.Errorf("mcp23017[%s]: set output: %w", b.name, err)
	}
	return nil
}

// Read returns the current input register value.
func (b *Board) Read() (uint16, error) {
	return b.readWithRetry(regInput)
}

// Write sets output pins, merging with cached output intent so a partial
// write (e.g. a single bit mask) never clobbers other pins.
func (b *Board) Write(value, mask uint16) error {
	b.mu.Lock()
	next := (b.output &^ mask) | (value & mask)
	b.mu.Unlock()

	if err := b.writeWithRetry(regOutput, next); err != nil {
		return err
	}
	b.mu.Lock()
	b.output = next
	b.mu.Unlock()
	return nil
}

// GetHealth returns a copy of the current health record.
func (b *Board) GetHealth() Health {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.health
}

func (b *Board) writeWithRetry(reg byte, value uint16) error {
	return b.withRetry(func() error { return b.dev.WriteRegisterU16LE(reg, value) })
}

func (b *Board) readWithRetry(reg byte) (uint16, error) {
	var v uint16
	err := b.withRetry(func() error {
		val, err := b.dev.ReadRegisterU16LE(reg)
		if err != nil {
			return err
		}
		v = val
		return nil
	})
	return v, err
}

// withRetry runs op with exponential backoff up to MaxRetryAttempts,
// recording health transitions along the way (spec.md §4.13).
func (b *Board) withRetry(op func() error) error {
	backoff := InitialRetryBackoff
	var lastErr error
	for attempt := 0; attempt < MaxRetryAttempts; attempt++ {
		if attempt > 0 {
			b.sleep(backoff)
			backoff *= 2
			if backoff > MaxRetryBackoff {
				backoff = MaxRetryBackoff
			}
		}
		lastErr = op()
		if lastErr == nil {
			b.recordSuccess()
			return nil
		}
		b.recordFailure(lastErr)
	}
	return fmt.Errorf("mcp23017[%s]: operation failed after %d attempts: %w", b.name, MaxRetryAttempts, lastErr)
}

func (b *Board) recordSuccess() {
	b.mu.Lock()
	wasUnhealthy := !b.health.Healthy
	b.health.ConsecutiveErrors = 0
	if wasUnhealthy {
		b.health.Healthy = true
		b.health.RecoveryCount++
	}
	cb := b.onRecover
	b.mu.Unlock()

	if wasUnhealthy && cb != nil {
		cb(b)
	}
}

func (b *Board) recordFailure(err error) {
	b.mu.Lock()
	b.health.ErrorCount++
	b.health.ConsecutiveErrors++
	b.health.LastErrorMs = b.nowMs()
	if b.health.ConsecutiveErrors >= ConsecutiveErrorThreshold {
		b.health.Healthy = false
	}
	b.mu.Unlock()
	log.Printf("mcp23017[%s]: operation error: %v", b.name, err)
}

// Recover reinitializes direction/pullup/output registers from cached
// intent (spec.md §4.13). It is meant to be called by a scheduler once a
// board is observed unhealthy.
func (b *Board) Recover() error {
	return b.applyIntent()
}

// HealthCheck performs a cheap write-IODIR/read-IODIR/compare round-trip
// (spec.md §4.13). Call this every HealthCheckInterval.
func (b *Board) HealthCheck() error {
	b.mu.Lock()
	direction := b.direction
	b.mu.Unlock()

	if err := b.writeWithRetry(regDirection, direction); err != nil {
		return err
	}
	got, err := b.readWithRetry(regDirection)
	if err != nil {
		return err
	}

	b.mu.Lock()
	b.health.LastHealthCheckMs = b.nowMs()
	b.mu.Unlock()

	if got != direction {
		return fmt.Errorf("mcp23017[%s]: health check mismatch: wrote 0x%04x, read 0x%04x", b.name, direction, got)
	}
	return nil
}
