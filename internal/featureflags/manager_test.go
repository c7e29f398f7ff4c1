package featureflags

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultsAreOn(t *testing.T) {
	m := NewManager("")
	assert.True(t, m.Enabled(ReviewSummaries, 0))
	assert.True(t, m.Enabled(SearchIndex, 0))
	assert.True(t, m.Enabled(QueuedCascade, 7))
	assert.Equal(t, []string{QueuedCascade, ReviewSummaries, SearchIndex}, m.Names())
}

func TestOverrides(t *testing.T) {
	m := NewManager(" search_index = OFF , bad ,queued_cascade=false,extra=1")
	assert.False(t, m.Enabled(SearchIndex, 1))
	assert.False(t, m.Enabled(QueuedCascade, 1))
	assert.True(t, m.Enabled("extra", 1))
	assert.False(t, m.Enabled("missing", 1))
}

func TestPercentageRollout(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%,broken=x%")

	assert.True(t, m.Enabled("always", 0))
	assert.False(t, m.Enabled("never", 1))
	assert.False(t, m.Enabled("broken", 1))
	assert.False(t, m.Enabled("canary", 0), "anonymous callers are outside partial rollouts")

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, m.Enabled("canary", 42))
	}

	on := 0
	for uid := uint(1); uid <= 1000; uid++ {
		if m.Enabled("canary", uid) {
			on++
		}
	}
	assert.InDelta(t, 250, on, 80)
}

func TestSnapshot(t *testing.T) {
	m := NewManager("review_summaries=off")
	snap := m.Snapshot(3)
	assert.Len(t, snap, 3)
	assert.False(t, snap[ReviewSummaries])
	assert.True(t, snap[SearchIndex])
}

func TestNilManager(t *testing.T) {
	var m *Manager
	assert.False(t, m.Enabled(SearchIndex, 1))
}
