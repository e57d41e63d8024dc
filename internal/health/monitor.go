package health

import (
	"sync"
)

// Status is the tri-state readiness snapshot collaborators gate on
type Status struct {
	ConfigValid       bool `json:"config_valid"`
	Initialized       bool `json:"initialized"`
	Ready             bool `json:"ready"`
	ListenerCount     int  `json:"listener_count"`
	ResyncRecommended bool `json:"resync_recommended"`
	Degraded          bool `json:"degraded"`
}

// Monitor tracks the engine's health states. ConfigValid is computed once at
// construction and is sticky-false: an invalid configuration cannot be fixed
// without reconstructing the engine.
type Monitor struct {
	mu sync.RWMutex

	configValid       bool
	initialized       bool
	clientAttached    bool
	listenerCount     int
	resyncRecommended bool
	degraded          bool
}

// NewMonitor creates a monitor with the construction-time config verdict
func NewMonitor(configValid bool) *Monitor {
	return &Monitor{configValid: configValid}
}

// ConfigValid reports the construction-time configuration verdict
func (m *Monitor) ConfigValid() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configValid
}

// SetInitialized records the result of a connectivity test. It can flip in
// both directions: a failed reinitialize clears it.
func (m *Monitor) SetInitialized(ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.initialized = ok
}

// SetClientAttached records whether a live ledger client handle is installed
func (m *Monitor) SetClientAttached(attached bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clientAttached = attached
}

// SetListenerCount records how many event handlers are registered
func (m *Monitor) SetListenerCount(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listenerCount = n
}

// RecommendResync flags that events may have been missed (set on every
// reconnect); cleared when a full sync completes.
func (m *Monitor) RecommendResync(recommended bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resyncRecommended = recommended
}

// SetDegraded flags exhausted write retries so operators can tell the engine
// is dropping events even while it stays ready.
func (m *Monitor) SetDegraded(degraded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.degraded = degraded
}

// Ready is the single boolean collaborators should gate on before trusting
// the engine's query results.
func (m *Monitor) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.configValid && m.initialized && m.clientAttached
}

// Snapshot returns the full status
func (m *Monitor) Snapshot() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{
		ConfigValid:       m.configValid,
		Initialized:       m.initialized,
		Ready:             m.configValid && m.initialized && m.clientAttached,
		ListenerCount:     m.listenerCount,
		ResyncRecommended: m.resyncRecommended,
		Degraded:          m.degraded,
	}
}
