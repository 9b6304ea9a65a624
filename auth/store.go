package auth

import (
	"sync"
	"time"
)

// tokenStore holds the mutable authorization state for one manager. Tokens
// for different flow kinds are independent spaces: a client-credentials
// exchange never touches the authorization-code record and vice versa.
type tokenStore struct {
	mu      sync.RWMutex
	records map[FlowKind]TokenRecord
}

func newTokenStore() *tokenStore {
	return &tokenStore{
		records: make(map[FlowKind]TokenRecord),
	}
}

// get returns the current record for the flow kind. A never-issued record
// comes back zero-valued, which counts as expired.
func (s *tokenStore) get(kind FlowKind) TokenRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[kind]
}

// put atomically replaces the record for the flow kind.
func (s *tokenStore) put(kind FlowKind, rec TokenRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[kind] = rec
}

// isExpired reports whether the flow kind's token is unusable at now.
func (s *tokenStore) isExpired(kind FlowKind, now time.Time) bool {
	return s.get(kind).ExpiredAt(now)
}
