// Package hwmodule implements the hardware module framework (spec.md §4.4):
// a uniform vtable that every concrete hardware-facing module (system
// status, troops, nuke, alert, main power, sound) implements, plus a
// manager that owns module lifecycle and event routing.
package hwmodule

import "tacsuitcase/internal/event"

// Status mirrors the "Hardware module record" status sub-struct from
// spec.md §3: {initialized, operational, error_count, last_error}.
type Status struct {
	Initialized bool
	Operational bool
	ErrorCount  uint32
	LastError   string // truncated to 64 bytes by the manager on Snapshot
}

// Module is the uniform vtable from spec.md §4.4. Implementations must
// never block in Update or HandleEvent: Update runs on the module
// manager's tick goroutine, and HandleEvent runs on the dispatcher's
// consumer goroutine (via Manager.RouteEvent).
type Module interface {
	// Name identifies the module for logs and status snapshots.
	Name() string

	// Init acquires peripherals. On error it must not leak partial state:
	// implementations should release anything they already opened before
	// returning.
	Init() error

	// Update runs one periodic tick. Called at >= 50 Hz by the manager.
	Update() error

	// HandleEvent processes a dispatched event, returning true if it
	// consumed it. The manager never short-circuits on this return value;
	// it is informational for callers that want to know.
	HandleEvent(e event.Event) bool

	// GetStatus fills in the module's current status snapshot.
	GetStatus() Status

	// Shutdown releases peripherals acquired by Init.
	Shutdown() error
}
