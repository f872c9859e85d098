// Package nukemodule implements the Nuke Module (spec.md §4.7): launch
// buttons produce outbound NUKE_LAUNCHED game events, and the dispatcher's
// own echo of that event (plus NUKE_EXPLODED/INTERCEPTED) drives the
// outgoing nuke LEDs as a pure function of internal/nuke.Tracker counts,
// mirroring how internal/modules/alert drives incoming LEDs.
package nukemodule

import (
	"sync"

	"tacsuitcase/internal/event"
	"tacsuitcase/internal/hwmodule"
	"tacsuitcase/internal/ledengine"
	"tacsuitcase/internal/nuke"
)

// Board 0 button pins and board 1 LED pins (spec.md §6.4).
const (
	ButtonAtom  = 1
	ButtonHydro = 2
	ButtonMirv  = 3

	LEDAtom  = 8
	LEDHydro = 9
	LEDMirv  = 10
)

// Outbound is the subset of a WS broadcaster the module needs to post a
// NUKE_LAUNCHED game event back to the browser client.
type Outbound interface {
	BroadcastEvent(ge event.GameEvent)
}

// Module implements hwmodule.Module.
type Module struct {
	mu sync.Mutex

	tracker  *nuke.Tracker
	leds     *ledengine.Engine
	outbound Outbound

	status hwmodule.Status
}

// New returns a Module sharing tracker with internal/modules/alert for
// ATOM/HYDRO/MIRV, but tracking OUTGOING direction here.
func New(tracker *nuke.Tracker, leds *ledengine.Engine, outbound Outbound) *Module {
	return &Module{tracker: tracker, leds: leds, outbound: outbound}
}

func (m *Module) Name() string { return "nuke" }

func (m *Module) Init() error {
	m.mu.Lock()
	m.status.Initialized = true
	m.status.Operational = true
	m.mu.Unlock()
	for _, pin := range []int{LEDAtom, LEDHydro, LEDMirv} {
		m.setLED(pin, false)
	}
	return nil
}

func (m *Module) Update() error { return nil }

func (m *Module) GetStatus() hwmodule.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Module) Shutdown() error { return nil }

func buttonToKind(index int) (nuke.Kind, string, int, bool) {
	switch index {
	case ButtonAtom:
		return nuke.Atom, "Atom", LEDAtom, true
	case ButtonHydro:
		return nuke.Hydro, "Hydro", LEDHydro, true
	case ButtonMirv:
		return nuke.Mirv, "MIRV", LEDMirv, true
	default:
		return 0, "", 0, false
	}
}

// HandleEvent reacts to BUTTON_PRESSED (launch request) and to the
// dispatcher's own NUKE_LAUNCHED/EXPLODED/INTERCEPTED kinds (spec.md §4.7).
func (m *Module) HandleEvent(e event.Event) bool {
	switch e.GameEvent.Kind {
	case event.ButtonPressed:
		_, label, _, ok := buttonToKind(e.GameEvent.Data.ButtonIndex)
		if !ok {
			return false
		}
		m.outbound.BroadcastEvent(event.GameEvent{
			Kind: event.NukeLaunched,
			Data: event.Data{NukeType: label},
		})
		return true

	case event.NukeLaunched:
		kind, _, led, ok := kindFromLabel(e.GameEvent.Data.NukeType)
		if !ok {
			return false
		}
		m.tracker.RegisterLaunch(e.GameEvent.Data.NukeUnitID, kind, nuke.Outgoing)
		m.setLED(led, true)
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

// clearAll wipes every outgoing in-flight entry this module owns and
// re-derives the LEDs off, mirroring internal/modules/alert.Module.clearAll
// so a GameEnd boundary never leaves a LED latched against a count the
// tracker has already zeroed.
func (m *Module) clearAll() {
	m.tracker.ClearAll()
	for _, pin := range []int{LEDAtom, LEDHydro, LEDMirv} {
		m.setLED(pin, false)
	}
}

func kindFromLabel(label string) (nuke.Kind, string, int, bool) {
	switch label {
	case "Atom":
		return nuke.Atom, "Atom", LEDAtom, true
	case "Hydro":
		return nuke.Hydro, "Hydro", LEDHydro, true
	case "MIRV":
		return nuke.Mirv, "MIRV", LEDMirv, true
	default:
		return 0, "", 0, false
	}
}

func (m *Module) resolve(unitID uint32, exploded bool) {
	m.tracker.Resolve(unitID, exploded)

	if m.tracker.GetActiveCount(nuke.Atom, nuke.Outgoing) == 0 {
		m.setLED(LEDAtom, false)
	}
	if m.tracker.GetActiveCount(nuke.Hydro, nuke.Outgoing) == 0 {
		m.setLED(LEDHydro, false)
	}
	if m.tracker.GetActiveCount(nuke.Mirv, nuke.Outgoing) == 0 {
		m.setLED(LEDMirv, false)
	}
}

func (m *Module) setLED(pin int, on bool) {
	effect := ledengine.Off
	if on {
		effect = ledengine.Blink
	}
	m.leds.Submit(ledengine.Command{Type: ledengine.Nuke, Index: pin, Effect: effect})
}
