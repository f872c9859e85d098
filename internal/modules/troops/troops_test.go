package troops

import (
	"testing"
	"time"

	"tacsuitcase/internal/event"
	"tacsuitcase/internal/iotask"
)

type fakeDisplay struct {
	line1, line2 string
	writes       int
}

func (f *fakeDisplay) WriteLine(row int, s string) error {
	f.writes++
	if row == 0 {
		f.line1 = s
	} else {
		f.line2 = s
	}
	return nil
}

type fakeSlider struct {
	value iotask.ChannelValue
	ok    bool
}

func (f *fakeSlider) GetValue(id string) (iotask.ChannelValue, bool) { return f.value, f.ok }

type fakeOutbound struct {
	sent [][]byte
}

func (f *fakeOutbound) Broadcast(raw []byte) { f.sent = append(f.sent, raw) }

type fakeSystemStatus struct {
	active bool
}

func (f *fakeSystemStatus) DisplayActive() bool { return f.active }

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time         { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestModule() (*Module, *fakeDisplay, *fakeSlider, *fakeOutbound, *fakeSystemStatus, *fakeClock) {
	disp := &fakeDisplay{}
	slider := &fakeSlider{ok: true}
	out := &fakeOutbound{}
	sys := &fakeSystemStatus{active: false}
	clk := &fakeClock{t: time.Now()}

	m := New(disp, slider, out, sys)
	m.now = clk.now
	m.Init()
	return m, disp, slider, out, sys, clk
}

func TestDoesNotRenderWhileSystemStatusOwnsLCD(t *testing.T) {
	m, disp, _, _, sys, _ := newTestModule()
	sys.active = true
	m.HandleEvent(event.Event{GameEvent: event.GameEvent{Kind: event.GameStart}})
	m.HandleEvent(event.Event{GameEvent: event.GameEvent{Kind: event.TroopUpdate, Data: event.Data{HasTroops: true, TroopsCurr: 100, TroopsMax: 200}}})

	m.Update()

	if disp.writes != 0 {
		t.Fatal("expected no LCD writes while system status still owns the display")
	}
}

func TestRendersScaledCountsOnceGameStartsAndSystemStatusYields(t *testing.T) {
	m, disp, _, _, sys, _ := newTestModule()
	m.HandleEvent(event.Event{GameEvent: event.GameEvent{Kind: event.GameStart}})
	m.HandleEvent(event.Event{GameEvent: event.GameEvent{Kind: event.TroopUpdate, Data: event.Data{HasTroops: true, TroopsCurr: 120_000, TroopsMax: 1_100_000}}})
	sys.active = false

	m.Update()

	if len(disp.line1) != 16 {
		t.Fatalf("expected 16-wide line1, got %q (%d)", disp.line1, len(disp.line1))
	}
	if disp.line1[len(disp.line1)-len("120K / 1.1M"):] != "120K / 1.1M" {
		t.Fatalf("expected right-aligned scaled counts, got %q", disp.line1)
	}
}

func TestSliderScanSendsCommandOnThresholdCrossing(t *testing.T) {
	m, _, slider, out, _, clk := newTestModule()
	m.HandleEvent(event.Event{GameEvent: event.GameEvent{Kind: event.GameStart}})
	slider.value = iotask.ChannelValue{Percent: 42}

	clk.advance(ScanInterval + time.Millisecond)
	m.Update()

	if len(out.sent) != 1 {
		t.Fatalf("expected exactly one outbound command on first scan, got %d", len(out.sent))
	}

	// A 1-point move meets ChangeThreshold and sends a second command.
	slider.value = iotask.ChannelValue{Percent: 43}
	clk.advance(ScanInterval + time.Millisecond)
	m.Update()

	if len(out.sent) != 2 {
		t.Fatalf("expected a second outbound command after crossing the threshold, got %d", len(out.sent))
	}
}

func TestSliderScanSkipsCommandBelowThreshold(t *testing.T) {
	m, _, slider, out, _, clk := newTestModule()
	m.HandleEvent(event.Event{GameEvent: event.GameEvent{Kind: event.GameStart}})
	slider.value = iotask.ChannelValue{Percent: 42}
	clk.advance(ScanInterval + time.Millisecond)
	m.Update()
	sentAfterFirst := len(out.sent)

	// Same value scanned again well past the next interval: no new send.
	clk.advance(ScanInterval + time.Millisecond)
	m.Update()

	if len(out.sent) != sentAfterFirst {
		t.Fatalf("expected no new command for an unchanged percent, before=%d after=%d", sentAfterFirst, len(out.sent))
	}
}

func TestGameEndReleasesLCDOwnership(t *testing.T) {
	m, disp, _, _, _, _ := newTestModule()
	m.HandleEvent(event.Event{GameEvent: event.GameEvent{Kind: event.GameStart}})
	m.HandleEvent(event.Event{GameEvent: event.GameEvent{Kind: event.TroopUpdate, Data: event.Data{HasTroops: true, TroopsCurr: 1, TroopsMax: 1}}})
	m.Update()
	writesBefore := disp.writes

	m.HandleEvent(event.Event{GameEvent: event.GameEvent{Kind: event.GameEnd}})
	m.Update()

	if disp.writes != writesBefore {
		t.Fatalf("expected no further renders after releasing the LCD, before=%d after=%d", writesBefore, disp.writes)
	}
}

func TestFormatScaledMatchesSpecExamples(t *testing.T) {
	cases := map[int64]string{
		0:         "0",
		999:       "999",
		120_000:   "120K",
		1_100_000: "1.1M",
		2_000_000: "2M",
	}
	for in, want := range cases {
		if got := formatScaled(in); got != want {
			t.Errorf("formatScaled(%d) = %q, want %q", in, got, want)
		}
	}
}
