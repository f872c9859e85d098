// Package statusled drives the single onboard RGB status indicator
// described in spec.md §4.17, deriving its color/blink state from
// {network_up, userscript_connected, phase, error}. Line handling is
// ported from the teacher's hardware/oled GPIO line usage
// (gpiocdev.RequestLine/AsOutput), generalized from two dedicated
// DC/Reset lines to three color lines, and the blink goroutine follows
// the teacher's hardware/led.Controller.Blink ticker pattern generalized
// to drive three lines together instead of one expander bit.
package statusled

import (
	"time"

	"github.com/warthog618/go-gpiocdev"

	"tacsuitcase/internal/gamephase"
)

// FastBlinkRate is the ERROR indicator's blink period (spec.md §4.17
// "ERROR → red, fast blink").
const FastBlinkRate = 200 * time.Millisecond

// Color is a named RGB line combination.
type Color struct {
	R, G, B bool
}

var (
	colorOff    = Color{}
	colorRed    = Color{R: true}
	colorYellow = Color{R: true, G: true}
	colorPurple = Color{R: true, B: true}
	colorGreen  = Color{G: true}
)

// line is the subset of *gpiocdev.Line the indicator needs, so it can be
// unit tested with a fake instead of a real GPIO chip.
type line interface {
	SetValue(int) error
}

// Indicator owns the three color lines and the derived-state inputs.
type Indicator struct {
	r, g, b line

	networkUp   bool
	userscript  bool
	phase       gamephase.Phase
	errorActive bool

	blinkStop chan struct{}
}

// Config names the GPIO chip and line offsets for the three color wires.
type Config struct {
	GPIOChip string
	RedLine  int
	GreenLine int
	BlueLine int
}

// New requests the three output lines and returns an Indicator starting in
// the off state. Lines are requested active-low-safe: SetValue(1) lights
// the LED, matching the teacher's gpiocdev.AsOutput(0) / AsOutput(1)
// explicit-initial-value convention.
func New(cfg Config) (*Indicator, error) {
	chip, err := gpiocdev.NewChip(cfg.GPIOChip)
	if err != nil {
		return nil, err
	}
	defer chip.Close()

	rLine, err := gpiocdev.RequestLine(cfg.GPIOChip, cfg.RedLine, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, err
	}
	gLine, err := gpiocdev.RequestLine(cfg.GPIOChip, cfg.GreenLine, gpiocdev.AsOutput(0))
	if err != nil {
		rLine.Close()
		return nil, err
	}
	bLine, err := gpiocdev.RequestLine(cfg.GPIOChip, cfg.BlueLine, gpiocdev.AsOutput(0))
	if err != nil {
		rLine.Close()
		gLine.Close()
		return nil, err
	}

	return &Indicator{r: rLine, g: gLine, b: bLine}, nil
}

// newForTest builds an Indicator over injected line fakes, bypassing gpiocdev.
func newForTest(r, g, b line) *Indicator {
	return &Indicator{r: r, g: g, b: b}
}

// SetNetworkUp updates the network_up input and re-derives the displayed color.
func (ind *Indicator) SetNetworkUp(up bool) {
	ind.networkUp = up
	ind.refresh()
}

// SetUserscriptConnected updates the userscript_connected input.
func (ind *Indicator) SetUserscriptConnected(connected bool) {
	ind.userscript = connected
	ind.refresh()
}

// SetPhase updates the phase input.
func (ind *Indicator) SetPhase(p gamephase.Phase) {
	ind.phase = p
	ind.refresh()
}

// SetError updates the error input.
func (ind *Indicator) SetError(active bool) {
	ind.errorActive = active
	ind.refresh()
}

// Derive computes the color for the current inputs per spec.md §4.17's
// precedence-ordered rule list, exported for unit testing without needing
// to drive real lines.
func (ind *Indicator) Derive() (Color, bool) {
	switch {
	case ind.errorActive:
		return colorRed, true // blink
	case !ind.networkUp:
		return colorOff, false
	case !ind.userscript:
		return colorYellow, false
	case ind.userscript && ind.phase != gamephase.InGame:
		return colorPurple, false
	case ind.phase == gamephase.InGame:
		return colorGreen, false
	default:
		return colorOff, false
	}
}

func (ind *Indicator) refresh() {
	color, blink := ind.Derive()
	ind.stopBlink()
	if blink {
		ind.startBlink(color)
		return
	}
	ind.apply(color)
}

func (ind *Indicator) apply(c Color) {
	setLine(ind.r, c.R)
	setLine(ind.g, c.G)
	setLine(ind.b, c.B)
}

func setLine(l line, on bool) {
	if l == nil {
		return
	}
	v := 0
	if on {
		v = 1
	}
	_ = l.SetValue(v)
}

func (ind *Indicator) stopBlink() {
	if ind.blinkStop != nil {
		close(ind.blinkStop)
		ind.blinkStop = nil
	}
}

func (ind *Indicator) startBlink(c Color) {
	stop := make(chan struct{})
	ind.blinkStop = stop
	go func() {
		ticker := time.NewTicker(FastBlinkRate)
		defer ticker.Stop()
		on := true
		for {
			select {
			case <-stop:
				ind.apply(colorOff)
				return
			case <-ticker.C:
				if on {
					ind.apply(c)
				} else {
					ind.apply(colorOff)
				}
				on = !on
			}
		}
	}()
}

// Close stops any blink goroutine and releases the GPIO lines.
func (ind *Indicator) Close() error {
	ind.stopBlink()
	for _, l := range []line{ind.r, ind.g, ind.b} {
		if closer, ok := l.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}
	return nil
}
