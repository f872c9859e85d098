package alert

import (
	"context"
	"sync"
	"testing"
	"time"

	"tacsuitcase/internal/event"
	"tacsuitcase/internal/ledengine"
	"tacsuitcase/internal/nuke"
)

type fakeDriver struct {
	mu    sync.Mutex
	state map[[2]int]bool // [kind,index] -> on
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{state: make(map[[2]int]bool)}
}

func (f *fakeDriver) SetLED(kind ledengine.Type, index int, on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state[[2]int{int(kind), index}] = on
	return nil
}

func (f *fakeDriver) get(index int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state[[2]int{int(ledengine.Alert), index}]
}

func newTestModule(t *testing.T) (*Module, *fakeDriver, func()) {
	t.Helper()
	driver := newFakeDriver()
	engine := ledengine.New(driver)
	ctx, cancel := context.WithCancel(context.Background())
	go engine.Run(ctx)

	m := New(nuke.New(), engine)
	m.Init()

	return m, driver, cancel
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}

func TestAtomAlertTurnsOnLEDAndWarning(t *testing.T) {
	m, driver, cancel := newTestModule(t)
	defer cancel()

	m.HandleEvent(event.Event{GameEvent: event.GameEvent{Kind: event.AlertAtom, Data: event.Data{UnitID: 1}}})

	waitFor(t, func() bool { return driver.get(PinAtom) && driver.get(PinWarning) })
}

func TestExplosionResolvesAtomAndWarningGoesOffWhenNoOthersActive(t *testing.T) {
	m, driver, cancel := newTestModule(t)
	defer cancel()

	m.HandleEvent(event.Event{GameEvent: event.GameEvent{Kind: event.AlertAtom, Data: event.Data{UnitID: 1}}})
	waitFor(t, func() bool { return driver.get(PinAtom) })

	m.HandleEvent(event.Event{GameEvent: event.GameEvent{Kind: event.NukeExploded, Data: event.Data{UnitID: 1}}})
	waitFor(t, func() bool { return !driver.get(PinAtom) && !driver.get(PinWarning) })
}

func TestLandAlertAutoExpires(t *testing.T) {
	m, driver, cancel := newTestModule(t)
	defer cancel()
	m.HandleEvent(event.Event{GameEvent: event.GameEvent{Kind: event.AlertLand, Data: event.Data{UnitID: 99}}})
	waitFor(t, func() bool { return driver.get(PinLand) })

	// Force immediate expiry instead of waiting the real 15s window.
	m.expireLand(kindLand, 99, PinLand)

	waitFor(t, func() bool { return !driver.get(PinLand) && !driver.get(PinWarning) })
}

func TestGameEndClearsEverythingIncludingExpiringTimers(t *testing.T) {
	m, driver, cancel := newTestModule(t)
	defer cancel()

	m.HandleEvent(event.Event{GameEvent: event.GameEvent{Kind: event.AlertAtom, Data: event.Data{UnitID: 1}}})
	m.HandleEvent(event.Event{GameEvent: event.GameEvent{Kind: event.AlertLand, Data: event.Data{UnitID: 2}}})
	waitFor(t, func() bool { return driver.get(PinAtom) && driver.get(PinLand) })

	m.HandleEvent(event.Event{GameEvent: event.GameEvent{Kind: event.GameEnd}})

	waitFor(t, func() bool {
		return !driver.get(PinAtom) && !driver.get(PinLand) && !driver.get(PinWarning)
	})
	if m.expiringCount(kindLand) != 0 {
		t.Fatalf("expected expiring timers cleared, got %d", m.expiringCount(kindLand))
	}
}

func TestDuplicateLandAlertForSameUnitIsNoOp(t *testing.T) {
	m, _, cancel := newTestModule(t)
	defer cancel()

	m.HandleEvent(event.Event{GameEvent: event.GameEvent{Kind: event.AlertLand, Data: event.Data{UnitID: 5}}})
	m.HandleEvent(event.Event{GameEvent: event.GameEvent{Kind: event.AlertLand, Data: event.Data{UnitID: 5}}})

	if m.expiringCount(kindLand) != 1 {
		t.Fatalf("expected exactly one tracked entry, got %d", m.expiringCount(kindLand))
	}
}
