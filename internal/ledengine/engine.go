package ledengine

import (
	"context"
	"log"
	"sync"
	"time"
)

// QueueCapacity bounds the command queue (spec.md §4.11: "bounded command
// queue (>= 16)").
const QueueCapacity = 16

// TickInterval yields a >= 50 Hz cadence (spec.md §4.11).
const TickInterval = 20 * time.Millisecond

// Driver is the hardware-facing side of the engine: it turns a single LED
// on or off. Implementations are expected to wrap an expander write, the
// way the teacher's hardware/led.Controller wraps an expander.Expander.
type Driver interface {
	SetLED(kind Type, index int, on bool) error
}

type record struct {
	effect        Effect
	phaseStartMs  int64
	blinkRateMs   int64
	offDeadlineMs int64
	hasDeadline   bool
	lastOn        bool
	haveLastOn    bool
}

// Engine owns the per-LED state table and the single consumer goroutine
// that applies it to a Driver. It mirrors the single-task-with-bounded-
// queue idiom used throughout this codebase's dispatcher and I/O task.
type Engine struct {
	driver Driver
	queue  chan Command

	mu      sync.Mutex
	records map[ledKey]*record

	nowMs func() int64
}

// New returns an Engine that will drive the given Driver once Run starts.
func New(driver Driver) *Engine {
	return &Engine{
		driver:  driver,
		queue:   make(chan Command, QueueCapacity),
		records: make(map[ledKey]*record),
		nowMs:   func() int64 { return time.Now().UnixMilli() },
	}
}

// Submit enqueues a command without blocking. If the queue is full, the
// new command is dropped and logged, matching the dispatcher's
// non-blocking overflow policy.
func (e *Engine) Submit(cmd Command) {
	select {
	case e.queue <- cmd:
	default:
		log.Printf("ledengine: queue full, dropping command for %s/%d", cmd.Type, cmd.Index)
	}
}

// Run drains the command queue and ticks the output table until ctx is
// canceled. It is meant to run on its own goroutine.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-e.queue:
			e.apply(cmd)
		case <-ticker.C:
			e.tick()
		}
	}
}

// apply installs a new command for its (type, index), overwriting any
// previous record atomically (spec.md §4.11).
func (e *Engine) apply(cmd Command) {
	rate := cmd.BlinkRateMs
	if rate <= 0 {
		rate = DefaultBlinkRateMs
	}

	e.mu.Lock()
	key := ledKey{cmd.Type, cmd.Index}
	now := e.nowMs()
	r := &record{
		effect:       cmd.Effect,
		phaseStartMs: now,
		blinkRateMs:  rate,
	}
	if cmd.Effect == BlinkTimed {
		r.hasDeadline = true
		r.offDeadlineMs = now + cmd.DurationMs
	}
	e.records[key] = r
	e.mu.Unlock()

	e.driveOne(key, r, now)
}

// tick re-evaluates every tracked LED's desired state and writes any that
// changed since the last tick.
func (e *Engine) tick() {
	now := e.nowMs()

	e.mu.Lock()
	keys := make([]ledKey, 0, len(e.records))
	for k := range e.records {
		keys = append(keys, k)
	}
	e.mu.Unlock()

	for _, k := range keys {
		e.mu.Lock()
		r, ok := e.records[k]
		e.mu.Unlock()
		if !ok {
			continue
		}
		e.driveOne(k, r, now)
	}
}

// driveOne computes the desired on/off state for one LED at time now and
// writes it through the driver if it changed, per spec.md §4.11:
//
//	OFF: low. ON: high.
//	BLINK: (now-phase_start)/rate even -> low, else high.
//	BLINK_TIMED: as BLINK until now >= deadline, then OFF.
func (e *Engine) driveOne(key ledKey, r *record, now int64) {
	e.mu.Lock()
	effect := r.effect
	if effect == BlinkTimed && r.hasDeadline && now >= r.offDeadlineMs {
		effect = Off
		r.effect = Off
	}
	var on bool
	switch effect {
	case Off:
		on = false
	case On:
		on = true
	case Blink, BlinkTimed:
		phase := (now - r.phaseStartMs) / r.blinkRateMs
		on = phase%2 != 0
	}
	changed := !r.haveLastOn || r.lastOn != on
	r.lastOn = on
	r.haveLastOn = true
	e.mu.Unlock()

	if changed {
		if err := e.driver.SetLED(key.kind, key.index, on); err != nil {
			log.Printf("ledengine: failed to drive %s/%d: %v", key.kind, key.index, err)
		}
	}
}
