package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoGetSet(t *testing.T) {
	m := NewMemo(4, time.Minute)

	_, ok := m.Get("k")
	assert.False(t, ok)

	m.Set("k", []int{2020, 2021})
	got, ok := m.Get("k")
	assert.True(t, ok)
	assert.Equal(t, []int{2020, 2021}, got)
}

func TestMemoSizeBoundEvictsLRU(t *testing.T) {
	m := NewMemo(3, time.Minute)
	for i := 0; i < 3; i++ {
		m.Set(fmt.Sprintf("k%d", i), i)
	}

	// Touch k0 so k1 becomes least recently used.
	_, ok := m.Get("k0")
	assert.True(t, ok)

	m.Set("k3", 3)
	assert.Equal(t, 3, m.Len())

	_, ok = m.Get("k1")
	assert.False(t, ok, "least recently used entry is gone")
	_, ok = m.Get("k0")
	assert.True(t, ok)
	_, ok = m.Get("k3")
	assert.True(t, ok)
}

func TestMemoTTLExpiry(t *testing.T) {
	m := NewMemo(4, time.Minute)
	current := time.Unix(1700000000, 0)
	m.now = func() time.Time { return current }

	m.Set("k", "v")
	_, ok := m.Get("k")
	assert.True(t, ok)

	current = current.Add(2 * time.Minute)
	_, ok = m.Get("k")
	assert.False(t, ok, "expired entries are invisible")
	assert.Equal(t, 0, m.Len(), "expired entries are dropped on access")
}

func TestMemoSetRefreshesExpiry(t *testing.T) {
	m := NewMemo(4, time.Minute)
	current := time.Unix(1700000000, 0)
	m.now = func() time.Time { return current }

	m.Set("k", "old")
	current = current.Add(50 * time.Second)
	m.Set("k", "new")
	current = current.Add(30 * time.Second)

	got, ok := m.Get("k")
	assert.True(t, ok, "rewrite restarted the TTL clock")
	assert.Equal(t, "new", got)
}

func TestMemoZeroBoundUsesDefault(t *testing.T) {
	m := NewMemo(0, 0)
	m.Set("k", "v")
	got, ok := m.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", got)
}
