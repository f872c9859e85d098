package ledengine

import "testing"

type fakeDriver struct {
	calls []struct {
		kind Type
		idx  int
		on   bool
	}
}

func (f *fakeDriver) SetLED(kind Type, index int, on bool) error {
	f.calls = append(f.calls, struct {
		kind Type
		idx  int
		on   bool
	}{kind, index, on})
	return nil
}

func (f *fakeDriver) last() (Type, int, bool) {
	c := f.calls[len(f.calls)-1]
	return c.kind, c.idx, c.on
}

func newTestEngine(driver Driver, t *int64) *Engine {
	e := New(driver)
	e.nowMs = func() int64 { return *t }
	return e
}

func TestOnEffectDrivesHigh(t *testing.T) {
	now := int64(1000)
	d := &fakeDriver{}
	e := newTestEngine(d, &now)

	e.apply(Command{Type: Nuke, Index: 0, Effect: On})

	kind, idx, on := d.last()
	if kind != Nuke || idx != 0 || !on {
		t.Fatalf("expected NUKE/0 on, got %s/%d on=%v", kind, idx, on)
	}
}

func TestOffEffectDrivesLow(t *testing.T) {
	now := int64(1000)
	d := &fakeDriver{}
	e := newTestEngine(d, &now)

	e.apply(Command{Type: Nuke, Index: 1, Effect: On})
	e.apply(Command{Type: Nuke, Index: 1, Effect: Off})

	kind, idx, on := d.last()
	if kind != Nuke || idx != 1 || on {
		t.Fatalf("expected NUKE/1 off, got %s/%d on=%v", kind, idx, on)
	}
}

func TestBlinkTogglesOnRatePhase(t *testing.T) {
	now := int64(0)
	d := &fakeDriver{}
	e := newTestEngine(d, &now)

	e.apply(Command{Type: Alert, Index: 2, Effect: Blink, BlinkRateMs: 100})
	// phase 0 (even) -> low; apply() drives this immediately.
	if _, _, on := d.last(); on {
		t.Fatal("expected initial blink phase to be off")
	}

	now = 100 // phase 1 (odd) -> high
	e.tick()
	if _, _, on := d.last(); !on {
		t.Fatal("expected blink phase 1 to be on")
	}

	now = 200 // phase 2 (even) -> low
	e.tick()
	if _, _, on := d.last(); on {
		t.Fatal("expected blink phase 2 to be off")
	}
}

func TestBlinkTimedTurnsOffAfterDeadline(t *testing.T) {
	now := int64(0)
	d := &fakeDriver{}
	e := newTestEngine(d, &now)

	e.apply(Command{Type: Link, Index: 0, Effect: BlinkTimed, BlinkRateMs: 50, DurationMs: 120})

	now = 50
	e.tick()
	if _, _, on := d.last(); !on {
		t.Fatal("expected blink-timed phase 1 to be on before deadline")
	}

	now = 150 // past the 120ms deadline
	e.tick()
	if _, _, on := d.last(); on {
		t.Fatal("expected blink-timed to be off once past its deadline")
	}

	// Once expired, it should stay off on subsequent ticks.
	now = 500
	calls := len(d.calls)
	e.tick()
	if len(d.calls) != calls {
		t.Fatal("expected no further writes once settled to off")
	}
}

func TestDefaultBlinkRateAppliedWhenOmitted(t *testing.T) {
	now := int64(0)
	d := &fakeDriver{}
	e := newTestEngine(d, &now)

	e.apply(Command{Type: Nuke, Index: 3, Effect: Blink})

	e.mu.Lock()
	r := e.records[ledKey{Nuke, 3}]
	e.mu.Unlock()
	if r.blinkRateMs != DefaultBlinkRateMs {
		t.Fatalf("expected default blink rate %d, got %d", DefaultBlinkRateMs, r.blinkRateMs)
	}
}

func TestSubmitDropsOnFullQueue(t *testing.T) {
	d := &fakeDriver{}
	e := New(d) // don't run the consumer
	for i := 0; i < QueueCapacity+5; i++ {
		e.Submit(Command{Type: Nuke, Index: i, Effect: On})
	}
	if len(e.queue) != QueueCapacity {
		t.Fatalf("expected queue to cap at %d, got %d", QueueCapacity, len(e.queue))
	}
}
