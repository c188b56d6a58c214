package memory

import "sync"

// PaidSessions is a process-lifetime set of checkout sessions confirmed paid.
// Entries are never evicted and do not survive a restart.
type PaidSessions struct {
	mu   sync.RWMutex
	paid map[string]bool
}

func NewPaidSessions() *PaidSessions {
	return &PaidSessions{paid: make(map[string]bool)}
}

func (r *PaidSessions) RecordPaid(sessionID string) {
	if sessionID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paid[sessionID] = true
}

func (r *PaidSessions) IsPaid(sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.paid[sessionID]
}

func (r *PaidSessions) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.paid)
}
