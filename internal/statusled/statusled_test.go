package statusled

import (
	"testing"
	"time"

	"tacsuitcase/internal/gamephase"
)

type fakeLine struct {
	values []int
}

func (f *fakeLine) SetValue(v int) error {
	f.values = append(f.values, v)
	return nil
}

func (f *fakeLine) last() int {
	if len(f.values) == 0 {
		return -1
	}
	return f.values[len(f.values)-1]
}

func TestErrorTakesPrecedenceAndBlinks(t *testing.T) {
	ind := newForTest(&fakeLine{}, &fakeLine{}, &fakeLine{})
	ind.SetNetworkUp(true)
	ind.SetUserscriptConnected(true)
	ind.SetPhase(gamephase.InGame)
	ind.SetError(true)

	c, blink := ind.Derive()
	if c != colorRed || !blink {
		t.Fatalf("expected red+blink on error, got %+v blink=%v", c, blink)
	}
}

func TestNetworkDownIsOffRegardlessOfOtherInputs(t *testing.T) {
	ind := newForTest(&fakeLine{}, &fakeLine{}, &fakeLine{})
	ind.SetNetworkUp(false)
	ind.SetUserscriptConnected(true)
	ind.SetPhase(gamephase.InGame)

	c, blink := ind.Derive()
	if c != colorOff || blink {
		t.Fatalf("expected off, got %+v blink=%v", c, blink)
	}
}

func TestNetworkUpNoUserscriptIsYellow(t *testing.T) {
	ind := newForTest(&fakeLine{}, &fakeLine{}, &fakeLine{})
	ind.SetNetworkUp(true)
	ind.SetUserscriptConnected(false)

	c, _ := ind.Derive()
	if c != colorYellow {
		t.Fatalf("expected yellow, got %+v", c)
	}
}

func TestUserscriptConnectedNotInGameIsPurple(t *testing.T) {
	ind := newForTest(&fakeLine{}, &fakeLine{}, &fakeLine{})
	ind.SetNetworkUp(true)
	ind.SetUserscriptConnected(true)
	ind.SetPhase(gamephase.Lobby)

	c, _ := ind.Derive()
	if c != colorPurple {
		t.Fatalf("expected purple, got %+v", c)
	}
}

func TestInGameIsGreen(t *testing.T) {
	ind := newForTest(&fakeLine{}, &fakeLine{}, &fakeLine{})
	ind.SetNetworkUp(true)
	ind.SetUserscriptConnected(true)
	ind.SetPhase(gamephase.InGame)

	c, _ := ind.Derive()
	if c != colorGreen {
		t.Fatalf("expected green, got %+v", c)
	}
}

func TestFastBlinkRateMatchesSpecNormativeValue(t *testing.T) {
	if FastBlinkRate != 200*time.Millisecond {
		t.Fatalf("expected FastBlinkRate=200ms per spec.md §9, got %v", FastBlinkRate)
	}
}

func TestRefreshAppliesColorToLines(t *testing.T) {
	r, g, b := &fakeLine{}, &fakeLine{}, &fakeLine{}
	ind := newForTest(r, g, b)
	ind.SetNetworkUp(true)
	ind.SetUserscriptConnected(false) // yellow: R+G, no B

	if r.last() != 1 || g.last() != 1 || b.last() != 0 {
		t.Fatalf("expected yellow line pattern R=1 G=1 B=0, got R=%d G=%d B=%d", r.last(), g.last(), b.last())
	}
}
