// Package troops implements the Troops Module (spec.md §4.6): it borrows
// the LCD from internal/modules/systemstatus while a game is in progress,
// renders troop counts driven by TROOP_UPDATE events, and polls the troop
// slider's ADC channel to push "set-troops-percent" commands back over the
// WebSocket. Grounded on the same scan-then-threshold idiom as
// internal/iotask.ADCHandler, and on internal/lcd.LCD's "write only on
// change" discipline already used by internal/modules/systemstatus.
package troops

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"tacsuitcase/internal/event"
	"tacsuitcase/internal/hwmodule"
	"tacsuitcase/internal/iotask"
	"tacsuitcase/internal/lcd"
	"tacsuitcase/internal/wsprotocol"
)

// SliderChannelID is the ADC registry key for the troop slider (spec.md
// §4.6: "ADS1015 AIN0 at I2C address 0x48").
const SliderChannelID = "TROOPS_SLIDER"

// ScanInterval is the slider poll cadence (spec.md §4.6).
const ScanInterval = 100 * time.Millisecond

// ChangeThreshold is the minimum percent delta before a new command is
// sent (spec.md §4.6: "if |percent - last_sent_percent| >= 1").
const ChangeThreshold = 1

// Display is the LCD surface, narrowed so tests can substitute a fake.
type Display interface {
	WriteLine(row int, s string) error
}

// SliderSource is the subset of *iotask.ADCHandler this module needs.
type SliderSource interface {
	GetValue(id string) (iotask.ChannelValue, bool)
}

// Outbound is the subset of *wsserver.Server this module needs to push the
// slider command back to the browser client.
type Outbound interface {
	Broadcast(raw []byte)
}

// SystemStatus is the subset of *systemstatus.Module this module polls to
// decide whether it currently owns the LCD (spec.md §4.6: "owns the LCD
// only while SystemStatus.display_active==false AND phase==IN_GAME").
type SystemStatus interface {
	DisplayActive() bool
}

// Module renders troop counts and relays slider position.
type Module struct {
	mu sync.Mutex

	lcd      Display
	slider   SliderSource
	outbound Outbound
	sysStat  SystemStatus
	now      func() time.Time

	gameActive bool

	current, max int64
	dirty        bool

	lastSentPercent int
	haveSentPercent bool
	lastScan        time.Time

	lastLine1, lastLine2 string

	status hwmodule.Status
}

// New returns a Module. slider/outbound/sysStat may be nil in tests that
// only exercise rendering.
func New(display Display, slider SliderSource, outbound Outbound, sysStat SystemStatus) *Module {
	return &Module{lcd: display, slider: slider, outbound: outbound, sysStat: sysStat, now: time.Now}
}

func (m *Module) Name() string { return "troops" }

func (m *Module) Init() error {
	m.mu.Lock()
	m.status.Initialized = true
	m.status.Operational = true
	m.lastScan = m.now()
	m.mu.Unlock()
	return nil
}

// Update is called at >= 50 Hz by the module manager; it gates the slider
// scan to ScanInterval internally and redraws the LCD only on change.
func (m *Module) Update() error {
	m.mu.Lock()
	owns := m.gameActive && (m.sysStat == nil || !m.sysStat.DisplayActive())
	now := m.now()
	shouldScan := owns && m.slider != nil && now.Sub(m.lastScan) >= ScanInterval
	m.mu.Unlock()

	if shouldScan {
		m.scanSlider()
	}

	if !owns {
		return nil
	}
	return m.renderIfDirty()
}

func (m *Module) scanSlider() {
	val, ok := m.slider.GetValue(SliderChannelID)
	m.mu.Lock()
	m.lastScan = m.now()
	m.mu.Unlock()
	if !ok {
		return
	}
	percent := int(val.Percent)

	m.mu.Lock()
	delta := percent - m.lastSentPercent
	if delta < 0 {
		delta = -delta
	}
	send := !m.haveSentPercent || delta >= ChangeThreshold
	if send {
		m.lastSentPercent = percent
		m.haveSentPercent = true
	}
	m.dirty = true
	m.mu.Unlock()

	if send && m.outbound != nil {
		raw, err := wsprotocol.BuildSetTroopsPercent(percent)
		if err == nil {
			m.outbound.Broadcast(raw)
		}
	}
}

func (m *Module) GetStatus() hwmodule.Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

func (m *Module) Shutdown() error { return nil }

// HandleEvent applies spec.md §4.6's event-handling rules.
func (m *Module) HandleEvent(e event.Event) bool {
	switch e.GameEvent.Kind {
	case event.TroopUpdate:
		m.mu.Lock()
		if e.GameEvent.Data.HasTroops {
			m.current = e.GameEvent.Data.TroopsCurr
			m.max = e.GameEvent.Data.TroopsMax
		}
		m.dirty = true
		m.mu.Unlock()
		return true
	case event.GameStart:
		m.mu.Lock()
		m.gameActive = true
		m.dirty = true
		m.mu.Unlock()
		return true
	case event.GameEnd:
		m.mu.Lock()
		m.gameActive = false
		m.haveSentPercent = false
		m.mu.Unlock()
		return true
	}
	return false
}

func (m *Module) renderIfDirty() error {
	m.mu.Lock()
	if !m.dirty {
		m.mu.Unlock()
		return nil
	}
	line1 := rightAlign(fmt.Sprintf("%s / %s", formatScaled(m.current), formatScaled(m.max)), lcd.Width)

	lastSent := m.lastSentPercent
	if !m.haveSentPercent {
		lastSent = 0
	}
	calc := int64(float64(lastSent) / 100 * float64(m.current))
	line2 := fmt.Sprintf("%d%% (%s)", lastSent, formatScaled(calc))
	m.dirty = false
	changed := line1 != m.lastLine1 || line2 != m.lastLine2
	m.lastLine1, m.lastLine2 = line1, line2
	m.mu.Unlock()

	if !changed {
		return nil
	}
	if err := m.lcd.WriteLine(0, line1); err != nil {
		return err
	}
	return m.lcd.WriteLine(1, line2)
}

func rightAlign(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return strings.Repeat(" ", width-len(s)) + s
}

// formatScaled renders n with K/M/B scaling, one decimal only when it
// changes the value (spec.md §4.6: "one decimal when helpful").
func formatScaled(n int64) string {
	neg := n < 0
	abs := n
	if neg {
		abs = -n
	}

	var scaled float64
	var suffix string
	switch {
	case abs >= 1_000_000_000:
		scaled, suffix = float64(abs)/1e9, "B"
	case abs >= 1_000_000:
		scaled, suffix = float64(abs)/1e6, "M"
	case abs >= 1_000:
		scaled, suffix = float64(abs)/1e3, "K"
	default:
		s := strconv.FormatInt(abs, 10)
		if neg {
			s = "-" + s
		}
		return s
	}

	rounded := math.Round(scaled*10) / 10
	var s string
	if rounded == math.Trunc(rounded) {
		s = strconv.FormatInt(int64(rounded), 10)
	} else {
		s = strconv.FormatFloat(rounded, 'f', 1, 64)
	}
	if neg {
		s = "-" + s
	}
	return s + suffix
}
