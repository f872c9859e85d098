package hwdriver

import (
	"log"

	"tacsuitcase/internal/ledengine"
)

// NullDisplay stands in for a missing LCD panel: it logs every write
// instead of touching hardware, so module Update ticks never nil-panic
// when the panel failed to probe at boot (spec.md §7 "PeripheralDown":
// other modules continue; only the absent peripheral's owner is
// affected).
type NullDisplay struct{}

func (NullDisplay) WriteLine(row int, s string) error {
	log.Printf("lcd(null): line %d: %q", row, s)
	return nil
}

// NullDriver stands in for a missing LED output board: every command is
// logged and dropped.
type NullDriver struct{}

func (NullDriver) SetLED(kind ledengine.Type, index int, on bool) error {
	log.Printf("ledengine(null): %s/%d -> %v", kind, index, on)
	return nil
}
