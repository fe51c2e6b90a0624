package service

import "sync"

// identityLocks serializes session operations per identity so two scans for
// the same member can never interleave state transitions.  Scans for
// different identities proceed in parallel; cross-identity races on the same
// card are decided only at the binding store's atomic Bind.
//
// Entries are a bare mutex each and are kept for the process lifetime; the
// map is bounded by the number of identities that ever enrolled.
type identityLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func newIdentityLocks() *identityLocks {
	return &identityLocks{m: make(map[string]*sync.Mutex)}
}

// lock acquires the identity's mutex and returns its unlock func.
func (l *identityLocks) lock(identityID string) func() {
	l.mu.Lock()
	m, ok := l.m[identityID]
	if !ok {
		m = &sync.Mutex{}
		l.m[identityID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
