package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qerrors "github.com/medleyre/leasehound/internal/errors"
)

func TestManager_GetOrCreate(t *testing.T) {
	m := NewManager()

	s1 := m.GetOrCreate("abc")
	s2 := m.GetOrCreate("abc")
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, m.Count())
}

func TestManager_GetOrCreate_GeneratesID(t *testing.T) {
	m := NewManager()

	s1 := m.GetOrCreate("")
	s2 := m.GetOrCreate("")
	require.NotEmpty(t, s1.ID)
	require.NotEmpty(t, s2.ID)
	assert.NotEqual(t, s1.ID, s2.ID)
	assert.Equal(t, 2, m.Count())
}

func TestManager_Get(t *testing.T) {
	m := NewManager()
	created := m.GetOrCreate("abc")

	got, err := m.Get("abc")
	require.NoError(t, err)
	assert.Same(t, created, got)

	_, err = m.Get("missing")
	assert.True(t, qerrors.IsCode(err, qerrors.ErrCodeSessionNotFound))
}

func TestManager_Remove(t *testing.T) {
	m := NewManager()
	m.GetOrCreate("abc")

	m.Remove("abc")
	m.Remove("abc") // no-op

	assert.Equal(t, 0, m.Count())
}

func TestManager_EvictStale(t *testing.T) {
	m := NewManager()

	stale := m.GetOrCreate("stale")
	stale.mu.Lock()
	stale.lastActive = time.Now().Add(-2 * time.Hour)
	stale.mu.Unlock()

	m.GetOrCreate("fresh")

	evicted := m.EvictStale(time.Hour)
	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, m.Count())

	_, err := m.Get("stale")
	assert.Error(t, err)
	_, err = m.Get("fresh")
	assert.NoError(t, err)
}

func TestManager_EvictStale_ZeroTimeout(t *testing.T) {
	m := NewManager()
	m.GetOrCreate("abc")
	assert.Equal(t, 0, m.EvictStale(0))
	assert.Equal(t, 1, m.Count())
}

func TestManager_MaxSessionsEvictsOldest(t *testing.T) {
	m := NewManager()
	m.SetMaxSessions(2)

	oldest := m.GetOrCreate("oldest")
	oldest.mu.Lock()
	oldest.lastActive = time.Now().Add(-time.Hour)
	oldest.mu.Unlock()

	m.GetOrCreate("second")
	m.GetOrCreate("third")

	assert.Equal(t, 2, m.Count())
	_, err := m.Get("oldest")
	assert.Error(t, err, "least recently active session evicted at cap")
	_, err = m.Get("second")
	assert.NoError(t, err)
	_, err = m.Get("third")
	assert.NoError(t, err)
}

func TestManager_NoCapByDefault(t *testing.T) {
	m := NewManager()
	for i := 0; i < 50; i++ {
		m.GetOrCreate("")
	}
	assert.Equal(t, 50, m.Count())
}

func TestManager_ConcurrentGetOrCreate(t *testing.T) {
	m := NewManager()

	var wg sync.WaitGroup
	sessions := make([]*Session, 20)
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessions[i] = m.GetOrCreate("shared")
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, m.Count())
	for _, s := range sessions[1:] {
		assert.Same(t, sessions[0], s)
	}
}
