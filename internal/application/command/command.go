// Package command contains write operations (CQRS - Commands).
// The risk engine's reconciliation, aggregation and detection workflows live
// here, orchestrating the domain model over the repository interfaces.
package command

import "sync"

// IDGenerator produces IDs for new entities. The production implementation
// (infrastructure/service) wraps google/uuid; tests use sequences.
type IDGenerator interface {
	NewID() string
}

// keyedMutex serializes work per string key. The reconciler locks on
// (studentID, riskType) so two concurrent detection runs for the same student
// cannot race each other into duplicate flags. Cross-process races are still
// possible; the safety sweep and the partial unique index clean those up.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*lockEntry)}
}

// Lock acquires the mutex for key and returns its release function.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &lockEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()

	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
