// Package alert implements the Alert Module (spec.md §4.8): incoming-attack
// LEDs driven as a pure function of per-kind in-flight counts, the way
// internal/nuke.Tracker drives the Nuke Module — but LAND and NAVAL have no
// explicit resolution event, so this package carries its own small counter
// with per-unit 15-second auto-expiry for just those two kinds, while
// ATOM/HYDRO/MIRV delegate to the shared internal/nuke.Tracker (incoming
// direction) exactly as the spec requires ("must not use auto-expiry").
package alert

import (
	"sync"
	"time"

	"tacsuitcase/internal/event"
	"tacsuitcase/internal/hwmodule"
	"tacsuitcase/internal/ledengine"
	"tacsuitcase/internal/nuke"
)

// AutoExpiry is the LAND/NAVAL auto-resolution window (spec.md §4.8).
const AutoExpiry = 15 * time.Second

// Board 1 pin indices (spec.md §6.4), carried as ledengine.Alert indices.
const (
	PinWarning = 0
	PinAtom    = 1
	PinHydro   = 2
	PinMirv    = 3
	PinLand    = 4
	PinNaval   = 5
)

// expiringKind is LAND or NAVAL: the two kinds tracked by this package's
// own timer-based counter instead of the shared nuke.Tracker.
type expiringKind int

const (
	kindLand expiringKind = iota
	kindNaval
)

type expiringEntry struct {
	timer *time.Timer
}

// Module drives the six alert LEDs from incoming-attack counts.
type Module struct {
	mu sync.Mutex

	tracker *nuke.Tracker // shared ATOM/HYDRO/MIRV incoming counts
	leds    *ledengine.Engine

	// expiring tracks LAND/NAVAL unit_ids with their auto-expiry timer.
	expiring map[expiringKind]map[uint32]*expiringEntry

	status hwmodule.Status
	now    func() time.Time
}

// New returns a Module driving leds, sharing tracker with the Nuke Module
// for ATOM/HYDRO/MIRV (both modules observe the same incoming counts for
// those three kinds, independently, per spec.md §4.4 "route_event calls
// handle_event on every module").
func New(tracker *nuke.Tracker, leds *ledengine.Engine) *Module {
	return &Module{
		tracker: tracker,
		leds:    leds,
		expiring: map[expiringKind]map[uint32]*expiringEntry{
			kindLand:  make(map[uint32]*expiringEntry),
			kindNaval: make(map[uint32]*expiringEntry),
		},
		now: time.Now,
	}
}

func (m *Module) Name() string { return "alert" }

func (m *Module) Init() error {
	m.mu.Lock()
	m.status.Initialized = true
	m.status.Operational = true
	m.mu.Unlock()
	m.allOff()
	return nil
}

func (m *Module) Update() error { return nil }

func (m *Module) GetStatus() hwmodule.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Module) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, set := range m.expiring {
		for _, e := range set {
			e.timer.Stop()
		}
	}
	return nil
}

func (m *Module) HandleEvent(e event.Event) bool {
	switch e.GameEvent.Kind {
	case event.AlertAtom:
		m.registerNukeTrackerIncoming(nuke.Atom, e.GameEvent.Data.UnitID, PinAtom)
		return true
	case event.AlertHydro:
		m.registerNukeTrackerIncoming(nuke.Hydro, e.GameEvent.Data.UnitID, PinHydro)
		return true
	case event.AlertMirv:
		m.registerNukeTrackerIncoming(nuke.Mirv, e.GameEvent.Data.UnitID, PinMirv)
		return true
	case event.AlertLand:
		m.registerExpiring(kindLand, e.GameEvent.Data.UnitID, PinLand)
		return true
	case event.AlertNaval:
		m.registerExpiring(kindNaval, e.GameEvent.Data.UnitID, PinNaval)
		return true
	case event.NukeExploded:
		m.resolve(e.GameEvent.Data.UnitID, true)
		return true
	case event.NukeIntercepted:
		m.resolve(e.GameEvent.Data.UnitID, false)
		return true
	case event.GameEnd:
		m.clearAll()
		return true
	}
	return false
}

func (m *Module) registerNukeTrackerIncoming(kind nuke.Kind, unitID uint32, pin int) {
	m.tracker.RegisterLaunch(unitID, kind, nuke.Incoming)
	m.setLED(pin, true)
	m.refreshWarning()
}

func (m *Module) registerExpiring(kind expiringKind, unitID uint32, pin int) {
	m.mu.Lock()
	set := m.expiring[kind]
	if _, exists := set[unitID]; exists {
		m.mu.Unlock()
		return
	}
	timer := time.AfterFunc(AutoExpiry, func() { m.expireLand(kind, unitID, pin) })
	set[unitID] = &expiringEntry{timer: timer}
	m.mu.Unlock()

	m.setLED(pin, true)
	m.refreshWarning()
}

func (m *Module) expireLand(kind expiringKind, unitID uint32, pin int) {
	m.mu.Lock()
	set := m.expiring[kind]
	delete(set, unitID)
	empty := len(set) == 0
	m.mu.Unlock()

	if empty {
		m.setLED(pin, false)
	}
	m.refreshWarning()
}

// resolve handles NUKE_EXPLODED/NUKE_INTERCEPTED for the tracker-backed
// kinds (ATOM/HYDRO/MIRV incoming). LAND/NAVAL have no resolution event by
// design and rely solely on AutoExpiry.
func (m *Module) resolve(unitID uint32, exploded bool) {
	m.tracker.Resolve(unitID, exploded)

	if m.tracker.GetActiveCount(nuke.Atom, nuke.Incoming) == 0 {
		m.setLED(PinAtom, false)
	}
	if m.tracker.GetActiveCount(nuke.Hydro, nuke.Incoming) == 0 {
		m.setLED(PinHydro, false)
	}
	if m.tracker.GetActiveCount(nuke.Mirv, nuke.Incoming) == 0 {
		m.setLED(PinMirv, false)
	}
	m.refreshWarning()
}

func (m *Module) clearAll() {
	m.tracker.ClearAll()

	m.mu.Lock()
	for kind, set := range m.expiring {
		for unitID, e := range set {
			e.timer.Stop()
			delete(set, unitID)
		}
		_ = kind
	}
	m.mu.Unlock()

	m.allOff()
}

func (m *Module) refreshWarning() {
	any := m.tracker.GetActiveCount(nuke.Atom, nuke.Incoming) > 0 ||
		m.tracker.GetActiveCount(nuke.Hydro, nuke.Incoming) > 0 ||
		m.tracker.GetActiveCount(nuke.Mirv, nuke.Incoming) > 0 ||
		m.expiringCount(kindLand) > 0 ||
		m.expiringCount(kindNaval) > 0
	m.setLED(PinWarning, any)
}

func (m *Module) expiringCount(kind expiringKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.expiring[kind])
}

func (m *Module) allOff() {
	for _, pin := range []int{PinWarning, PinAtom, PinHydro, PinMirv, PinLand, PinNaval} {
		m.setLED(pin, false)
	}
}

func (m *Module) setLED(pin int, on bool) {
	effect := ledengine.Off
	if on {
		effect = ledengine.On
	}
	m.leds.Submit(ledengine.Command{Type: ledengine.Alert, Index: pin, Effect: effect})
}
