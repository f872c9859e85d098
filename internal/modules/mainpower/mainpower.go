// Package mainpower implements the Main Power Module (spec.md §4.9): the
// LINK LED on board 1 pin 7 tracks the network/WS connectivity ladder as a
// pure function of the latest NETWORK_CONNECTED/DISCONNECTED and
// WS_CONNECTED/DISCONNECTED/WS_ERROR events, the same "state in, LED effect
// out" shape used by internal/modules/alert and internal/modules/nukemodule.
package mainpower

import (
	"sync"

	"tacsuitcase/internal/event"
	"tacsuitcase/internal/hwmodule"
	"tacsuitcase/internal/ledengine"
)

// PinLink is the board 1 LINK LED index (spec.md §6.4).
const PinLink = 7

// Blink rates (spec.md §4.9).
const (
	LinkBlinkRateMs      = 500
	LinkErrorBlinkRateMs = 200
)

// Module drives the LINK LED from network/WS connectivity state.
type Module struct {
	mu sync.Mutex

	leds *ledengine.Engine

	networkUp bool
	wsUp      bool
	wsError   bool

	status hwmodule.Status
}

// New returns a Module driving leds. Initial state is "no network".
func New(leds *ledengine.Engine) *Module {
	return &Module{leds: leds}
}

func (m *Module) Name() string { return "mainpower" }

func (m *Module) Init() error {
	m.mu.Lock()
	m.status.Initialized = true
	m.status.Operational = true
	m.mu.Unlock()
	m.refresh()
	return nil
}

func (m *Module) Update() error { return nil }

func (m *Module) GetStatus() hwmodule.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Module) Shutdown() error { return nil }

// HandleEvent reacts to the connectivity events that feed the LINK LED.
func (m *Module) HandleEvent(e event.Event) bool {
	switch e.GameEvent.Kind {
	case event.NetworkConnected:
		m.mu.Lock()
		m.networkUp = true
		m.mu.Unlock()
		m.refresh()
		return true
	case event.NetworkDisconnected:
		m.mu.Lock()
		m.networkUp = false
		m.wsUp = false
		m.wsError = false
		m.mu.Unlock()
		m.refresh()
		return true
	case event.WSConnected:
		m.mu.Lock()
		m.wsUp = true
		m.wsError = false
		m.mu.Unlock()
		m.refresh()
		return true
	case event.WSDisconnected:
		m.mu.Lock()
		m.wsUp = false
		m.mu.Unlock()
		m.refresh()
		return true
	case event.WSError:
		m.mu.Lock()
		m.wsError = true
		m.mu.Unlock()
		m.refresh()
		return true
	}
	return false
}

// derive applies the precedence rule from spec.md §4.9: WS_ERROR overrides
// everything else until a later WS_CONNECTED or NETWORK_DISCONNECTED clears
// it (WS_DISCONNECTED does not), then no network is off, then WS up is on,
// then network up with WS down blinks.
func (m *Module) derive() (ledengine.Effect, int64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch {
	case m.wsError:
		return ledengine.Blink, LinkErrorBlinkRateMs
	case !m.networkUp:
		return ledengine.Off, 0
	case m.wsUp:
		return ledengine.On, 0
	default:
		return ledengine.Blink, LinkBlinkRateMs
	}
}

func (m *Module) refresh() {
	effect, rate := m.derive()
	m.leds.Submit(ledengine.Command{Type: ledengine.Link, Index: PinLink, Effect: effect, BlinkRateMs: rate})
}
