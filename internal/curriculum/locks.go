package curriculum

import "sync"

// trainLocks serializes training runs per agent across every Orchestrator
// in this process. Cross-process serialization is the store's job, via the
// store.Locker interface.
var trainLocks = newAgentLocks()

// agentLocks is a registry of in-flight training runs keyed by agent.
type agentLocks struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func newAgentLocks() *agentLocks {
	return &agentLocks{active: make(map[string]struct{})}
}

func (l *agentLocks) acquire(agentID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, busy := l.active[agentID]; busy {
		return false
	}
	l.active[agentID] = struct{}{}
	return true
}

func (l *agentLocks) release(agentID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.active, agentID)
}
