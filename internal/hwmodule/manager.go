package hwmodule

import (
	"fmt"
	"log"
	"sync"

	"tacsuitcase/internal/event"
)

// MaxModules bounds the module manager's registry (spec.md §4.4: "holds up
// to 8 registered modules").
const MaxModules = 8

// maxLastErrorBytes is the length Snapshot truncates Status.LastError to.
const maxLastErrorBytes = 64

type registration struct {
	module  Module
	enabled bool
}

// Manager owns module lifecycle (init/update/shutdown) and dispatches
// events to every registered module, mirroring the teacher's hub pattern
// of a single owner coordinating several independently-polled peripherals.
type Manager struct {
	mu   sync.RWMutex
	regs []*registration
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{}
}

// Register adds a module to the manager. It returns an error if the
// registry is already at MaxModules.
func (m *Manager) Register(mod Module, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.regs) >= MaxModules {
		return fmt.Errorf("hwmodule: cannot register %q, manager already holds %d modules", mod.Name(), MaxModules)
	}
	m.regs = append(m.regs, &registration{module: mod, enabled: enabled})
	return nil
}

// InitAll calls Init on every registered module in registration order. It
// stops at the first hard failure: a module whose Init returned an error
// AND whose enabled flag is set (spec.md §4.4). A failing disabled module
// is logged but does not abort startup.
func (m *Manager) InitAll() error {
	m.mu.RLock()
	regs := append([]*registration(nil), m.regs...)
	m.mu.RUnlock()

	for _, r := range regs {
		if err := r.module.Init(); err != nil {
			if r.enabled {
				return fmt.Errorf("hwmodule: init of %q failed: %w", r.module.Name(), err)
			}
			log.Printf("hwmodule: init of disabled module %q failed, continuing: %v", r.module.Name(), err)
		}
	}
	return nil
}

// UpdateAll calls Update on every enabled module, in registration order.
// Errors are logged, not propagated, so one module's failure never stalls
// the tick for the rest (spec.md §4.4: update must be non-blocking).
func (m *Manager) UpdateAll() {
	m.mu.RLock()
	regs := append([]*registration(nil), m.regs...)
	m.mu.RUnlock()

	for _, r := range regs {
		if !r.enabled {
			continue
		}
		if err := r.module.Update(); err != nil {
			log.Printf("hwmodule: update of %q failed: %v", r.module.Name(), err)
		}
	}
}

// RouteEvent calls HandleEvent on every registered module, enabled or not.
// It never short-circuits: multiple modules may independently react to the
// same event (spec.md §4.4).
func (m *Manager) RouteEvent(e event.Event) {
	m.mu.RLock()
	regs := append([]*registration(nil), m.regs...)
	m.mu.RUnlock()

	for _, r := range regs {
		r.module.HandleEvent(e)
	}
}

// ShutdownAll calls Shutdown on every registered module, in reverse
// registration order, collecting (not stopping on) errors.
func (m *Manager) ShutdownAll() []error {
	m.mu.RLock()
	regs := append([]*registration(nil), m.regs...)
	m.mu.RUnlock()

	var errs []error
	for i := len(regs) - 1; i >= 0; i-- {
		if err := regs[i].module.Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("hwmodule: shutdown of %q failed: %w", regs[i].module.Name(), err))
		}
	}
	return errs
}

// Snapshot aggregates GetStatus() across every registered module, keyed by
// name. This generalizes get_status() into a single call suitable for a
// status endpoint or diagnostic dump; it is additive to spec.md §4.4, not
// part of the per-module vtable.
func (m *Manager) Snapshot() map[string]Status {
	m.mu.RLock()
	regs := append([]*registration(nil), m.regs...)
	m.mu.RUnlock()

	out := make(map[string]Status, len(regs))
	for _, r := range regs {
		s := r.module.GetStatus()
		if len(s.LastError) > maxLastErrorBytes {
			s.LastError = s.LastError[:maxLastErrorBytes]
		}
		out[r.module.Name()] = s
	}
	return out
}
