package health_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chainrep/identity-engine/internal/health"
)

func TestMonitor_ReadyRequiresAllThree(t *testing.T) {
	m := health.NewMonitor(true)
	assert.False(t, m.Ready())

	m.SetInitialized(true)
	assert.False(t, m.Ready())

	m.SetClientAttached(true)
	assert.True(t, m.Ready())

	m.SetClientAttached(false)
	assert.False(t, m.Ready())
}

func TestMonitor_InvalidConfigIsSticky(t *testing.T) {
	m := health.NewMonitor(false)

	// Nothing that happens later can make a misconfigured engine ready
	m.SetInitialized(true)
	m.SetClientAttached(true)
	assert.False(t, m.ConfigValid())
	assert.False(t, m.Ready())
}

func TestMonitor_Snapshot(t *testing.T) {
	m := health.NewMonitor(true)
	m.SetInitialized(true)
	m.SetClientAttached(true)
	m.SetListenerCount(6)
	m.RecommendResync(true)
	m.SetDegraded(true)

	status := m.Snapshot()
	assert.True(t, status.ConfigValid)
	assert.True(t, status.Initialized)
	assert.True(t, status.Ready)
	assert.Equal(t, 6, status.ListenerCount)
	assert.True(t, status.ResyncRecommended)
	assert.True(t, status.Degraded)

	m.RecommendResync(false)
	assert.False(t, m.Snapshot().ResyncRecommended)
}
