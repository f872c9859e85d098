package nuke

import "testing"

// TestOverlappingAtomLaunches is scenario S1 from spec.md §8.
func TestOverlappingAtomLaunches(t *testing.T) {
	tr := New()

	tr.RegisterLaunch(10, Atom, Outgoing)
	tr.RegisterLaunch(11, Atom, Outgoing)
	if got := tr.GetActiveCount(Atom, Outgoing); got != 2 {
		t.Fatalf("expected 2 in flight, got %d", got)
	}

	tr.Resolve(10, true) // exploded
	if got := tr.GetActiveCount(Atom, Outgoing); got != 1 {
		t.Fatalf("P2 violated: resolving unit 10 should not affect unit 11, count=%d", got)
	}

	tr.Resolve(11, false) // intercepted
	if got := tr.GetActiveCount(Atom, Outgoing); got != 0 {
		t.Fatalf("expected 0 in flight after both resolved, got %d", got)
	}
}

func TestDuplicateLaunchIsNoOp(t *testing.T) {
	tr := New()
	tr.RegisterLaunch(5, Atom, Incoming)
	tr.RegisterLaunch(5, Atom, Incoming)
	if got := tr.GetActiveCount(Atom, Incoming); got != 1 {
		t.Fatalf("duplicate launch should not double-count, got %d", got)
	}
}

func TestResolveUnknownUnitIsNoOp(t *testing.T) {
	tr := New()
	tr.Resolve(999, true) // must not panic
	if got := tr.GetActiveCount(Atom, Outgoing); got != 0 {
		t.Fatalf("expected 0, got %d", got)
	}
}

// TestCapacityOverflowForceResolvesOldest verifies the 33rd launch in the
// same bucket forcibly resolves the oldest (spec.md §8 boundary behavior).
func TestCapacityOverflowForceResolvesOldest(t *testing.T) {
	tr := New()
	for i := uint32(1); i <= Capacity; i++ {
		tr.RegisterLaunch(i, Hydro, Incoming)
	}
	if got := tr.GetActiveCount(Hydro, Incoming); got != Capacity {
		t.Fatalf("expected %d in flight at capacity, got %d", Capacity, got)
	}

	tr.RegisterLaunch(Capacity+1, Hydro, Incoming)
	if got := tr.GetActiveCount(Hydro, Incoming); got != Capacity {
		t.Fatalf("expected count to stay at capacity after overflow, got %d", got)
	}

	// unit 1 (the oldest) should now be resolved, not in flight.
	tr.Resolve(1, true) // should be a no-op warning, not a double-resolve crash
	if got := tr.GetActiveCount(Hydro, Incoming); got != Capacity {
		t.Fatalf("resolving an already force-resolved unit should not change the count, got %d", got)
	}
}

func TestBucketsAreIndependent(t *testing.T) {
	tr := New()
	tr.RegisterLaunch(1, Atom, Outgoing)
	tr.RegisterLaunch(2, Atom, Incoming)
	tr.RegisterLaunch(3, Hydro, Outgoing)

	if got := tr.GetActiveCount(Atom, Outgoing); got != 1 {
		t.Fatalf("Atom/Outgoing: got %d", got)
	}
	if got := tr.GetActiveCount(Atom, Incoming); got != 1 {
		t.Fatalf("Atom/Incoming: got %d", got)
	}
	if got := tr.GetActiveCount(Hydro, Outgoing); got != 1 {
		t.Fatalf("Hydro/Outgoing: got %d", got)
	}
	if got := tr.GetActiveCount(Mirv, Outgoing); got != 0 {
		t.Fatalf("Mirv/Outgoing: got %d", got)
	}
}

func TestClearAll(t *testing.T) {
	tr := New()
	tr.RegisterLaunch(1, Atom, Outgoing)
	tr.RegisterLaunch(2, Mirv, Incoming)
	tr.ClearAll()
	if got := tr.GetActiveCount(Atom, Outgoing); got != 0 {
		t.Fatalf("expected 0 after ClearAll, got %d", got)
	}
	if got := tr.GetActiveCount(Mirv, Incoming); got != 0 {
		t.Fatalf("expected 0 after ClearAll, got %d", got)
	}
}
