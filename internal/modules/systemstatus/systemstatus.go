// Package systemstatus implements the System Status Module (spec.md §4.5):
// LCD arbitration across boot splash, captive portal, waiting-for-
// connection, lobby, spawning and game-end screens, yielding the display
// to internal/modules/troops while the game is in progress. Grounded on
// the same "derive then apply only on change" shape as
// internal/statusled.Indicator, generalized from three booleans to a
// small screen-selection switch.
package systemstatus

import (
	"fmt"
	"sync"
	"time"

	"tacsuitcase/internal/event"
	"tacsuitcase/internal/gamephase"
	"tacsuitcase/internal/hwmodule"
	"tacsuitcase/internal/lcd"
)

// BootSplashMinDuration is the minimum time the boot splash is shown
// (spec.md §4.5: "shown >= 1.2s at init").
const BootSplashMinDuration = 1200 * time.Millisecond

// ScanFrameInterval is the waiting-screen animation cadence (spec.md §4.5.1).
const ScanFrameInterval = 250 * time.Millisecond

// scanFrames are the 4 suffixes for the 3-column scan animation.
var scanFrames = [4]string{".  ", " . ", "  .", " . "}

// Display is the subset of *lcd.LCD this module needs, so tests can
// substitute a recording fake instead of real hardware.
type Display interface {
	WriteLine(row int, s string) error
}

type screen int

const (
	screenSplash screen = iota
	screenPortal
	screenWaiting
	screenLobby
	screenSpawning
	screenGameEnd
	screenYielded
)

// Module owns the LCD in every phase except IN_GAME.
type Module struct {
	mu sync.Mutex

	lcd Display
	now func() time.Time

	portalMode  bool
	wsListening bool
	wsConnected bool
	phase       gamephase.Phase
	showGameEnd bool
	playerWon   bool

	displayActive bool
	dirty         bool

	animFrame    int
	lastAnimTick time.Time

	bootSplashUntil time.Time

	lastLine1 string
	lastLine2 string
	curScreen screen

	status hwmodule.Status
}

// New returns a Module driving display. Init marks the LCD owned and dirty
// so the first Update renders the boot splash.
func New(display Display) *Module {
	return &Module{lcd: display, now: time.Now}
}

func (m *Module) Name() string { return "systemstatus" }

func (m *Module) Init() error {
	now := m.now()
	m.mu.Lock()
	m.status.Initialized = true
	m.status.Operational = true
	m.phase = gamephase.Lobby
	m.displayActive = true
	m.dirty = true
	m.curScreen = screenSplash
	m.bootSplashUntil = now.Add(BootSplashMinDuration)
	m.lastAnimTick = now
	m.mu.Unlock()
	return nil
}

// Update renders the arbitrated screen for the current state (spec.md
// §4.5 "Arbitration (on each update)"). Called at >= 50 Hz by the module
// manager.
func (m *Module) Update() error {
	m.mu.Lock()
	now := m.now()
	m.tickAnimation(now)
	sc, line1, line2 := m.derive(now)
	changed := sc != m.curScreen || line1 != m.lastLine1 || line2 != m.lastLine2 || m.dirty
	m.curScreen = sc
	m.dirty = false
	m.mu.Unlock()

	if !changed {
		return nil
	}
	return m.render(line1, line2)
}

func (m *Module) render(line1, line2 string) error {
	if err := m.lcd.WriteLine(0, line1); err != nil {
		return err
	}
	if err := m.lcd.WriteLine(1, line2); err != nil {
		return err
	}
	m.mu.Lock()
	m.lastLine1 = line1
	m.lastLine2 = line2
	m.mu.Unlock()
	return nil
}

// tickAnimation advances the waiting-screen scan frame at ScanFrameInterval
// but only while the display is active, per spec.md §4.5 rule 6.
func (m *Module) tickAnimation(now time.Time) {
	if !m.displayActive {
		return
	}
	if now.Sub(m.lastAnimTick) >= ScanFrameInterval {
		m.animFrame = (m.animFrame + 1) % len(scanFrames)
		m.lastAnimTick = now
	}
}

// derive implements the precedence-ordered arbitration rule. Caller must
// hold m.mu.
func (m *Module) derive(now time.Time) (screen, string, string) {
	switch {
	case m.portalMode:
		return screenPortal, "   Setup WiFi   ", "  Read Manual   "
	case !m.wsListening || now.Before(m.bootSplashUntil):
		return screenSplash, "  OTS Firmware  ", "  Booting...    "
	case !m.wsConnected:
		return screenWaiting, " Waiting for    ", waitingLine2(m.animFrame)
	case m.showGameEnd:
		if m.playerWon {
			return screenGameEnd, "   VICTORY!     ", " Good Game!     "
		}
		return screenGameEnd, "    DEFEAT      ", " Good Game!     "
	default:
		switch m.phase {
		case gamephase.Lobby:
			return screenLobby, " Connected!     ", " Waiting Game   "
		case gamephase.Spawning:
			return screenSpawning, "   Spawning...  ", " Get Ready!     "
		case gamephase.InGame:
			return screenYielded, "", ""
		default:
			return screenLobby, " Connected!     ", " Waiting Game   "
		}
	}
}

func waitingLine2(frame int) string {
	return fmt.Sprintf(" Connection %s", scanFrames[frame%len(scanFrames)])
}

func (m *Module) GetStatus() hwmodule.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Module) Shutdown() error { return nil }

// SetPortalMode toggles captive-portal rendering, fed by the provisioning
// collaborator (out of scope per spec.md §1; observed only at this seam).
func (m *Module) SetPortalMode(on bool) {
	m.mu.Lock()
	m.portalMode = on
	m.dirty = true
	m.mu.Unlock()
}

// SetWSListening is fed once the WS server core starts accepting
// connections (spec.md §4.5 rule 2: "If WS server not listening -> keep
// splash").
func (m *Module) SetWSListening(on bool) {
	m.mu.Lock()
	m.wsListening = on
	m.dirty = true
	m.mu.Unlock()
}

// DisplayActive reports whether this module currently owns the LCD, the
// signal internal/modules/troops polls before it may render (spec.md
// §4.5.1 "Troops module observes and takes over the LCD").
func (m *Module) DisplayActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.displayActive
}

// HandleEvent applies the event-handling rules in spec.md §4.5.
func (m *Module) HandleEvent(e event.Event) bool {
	switch e.GameEvent.Kind {
	case event.WSConnected:
		m.mu.Lock()
		m.wsConnected = true
		m.displayActive = true
		m.dirty = true
		m.showGameEnd = false
		m.phase = gamephase.Lobby
		m.animFrame = 0
		m.mu.Unlock()
		return true

	case event.WSDisconnected:
		m.mu.Lock()
		m.wsConnected = false
		m.displayActive = true
		m.dirty = true
		m.showGameEnd = false
		m.phase = gamephase.Lobby
		m.animFrame = 0
		m.mu.Unlock()
		return true

	case event.GameSpawning:
		m.mu.Lock()
		m.phase = gamephase.Spawning
		m.displayActive = true
		m.dirty = true
		m.mu.Unlock()
		return true

	case event.GameStart:
		m.mu.Lock()
		m.phase = gamephase.InGame
		m.displayActive = false
		m.dirty = true
		m.mu.Unlock()
		return true

	case event.GameEnd:
		m.mu.Lock()
		m.showGameEnd = true
		m.playerWon = e.GameEvent.Data.HasVictory && e.GameEvent.Data.Victory
		if !e.GameEvent.Data.HasVictory {
			// Missing/null victory: spec.md §4.5 "just returns to lobby
			// screen on next render" — don't latch a game-end screen.
			m.showGameEnd = false
			m.phase = gamephase.Lobby
		} else {
			m.phase = gamephase.Ended
		}
		m.displayActive = true
		m.dirty = true
		m.mu.Unlock()
		return true
	}
	return false
}

var _ Display = (*lcd.LCD)(nil)
