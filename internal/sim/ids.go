package sim

import "strconv"

// IDAllocator produces monotonically increasing ids for marketplace
// offers (spec §4.10, §4.13 step 3). Trade events are numbered by
// market.Log, and battle and espionage reports take no ids from it.
// It is only ever touched from the simulation thread, so
// it carries no internal lock (spec §5 "Monotonic id counters are only
// mutated from the simulation thread").
type IDAllocator struct {
	next uint64
}

// NewIDAllocator starts counting from 1.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{next: 0}
}

// Next returns a fresh id as a string, matching the string-typed ids
// used throughout the persisted schema (§6.3).
func (a *IDAllocator) Next() string {
	a.next++
	return strconv.FormatUint(a.next, 10)
}

// Reconcile bumps the counter to at least `maxSeen`, called once at
// startup hydration after reading the DB maxima (§4.13 step 3) so newly
// allocated ids never collide with rows written before a restart.
func (a *IDAllocator) Reconcile(maxSeen uint64) {
	if maxSeen > a.next {
		a.next = maxSeen
	}
}
