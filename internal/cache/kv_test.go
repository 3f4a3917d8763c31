package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestKV(t *testing.T) *KVStore {
	t.Helper()
	kv := NewKVStore()
	require.NoError(t, kv.Open(":memory:"))
	t.Cleanup(func() { _ = kv.Close() })
	require.NoError(t, kv.Migrate())
	return kv
}

func TestKVStoreGetMiss(t *testing.T) {
	kv := openTestKV(t)

	_, ok, err := kv.Get("absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKVStoreSetGetRoundtrip(t *testing.T) {
	kv := openTestKV(t)

	require.NoError(t, kv.Set("groupvars:2023:DP02", `["DP02_0001E"]`))

	got, ok, err := kv.Get("groupvars:2023:DP02")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `["DP02_0001E"]`, got)
}

func TestKVStoreSetReplacesExistingValue(t *testing.T) {
	kv := openTestKV(t)

	require.NoError(t, kv.Set("k", "first"))
	require.NoError(t, kv.Set("k", "second"))

	got, ok, err := kv.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", got, "a write fully replaces the prior value")
}

func TestKVStoreUpdatedAt(t *testing.T) {
	kv := openTestKV(t)

	_, ok, err := kv.UpdatedAt("k")
	require.NoError(t, err)
	assert.False(t, ok)

	before := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, kv.Set("k", "v"))

	ts, ok, err := kv.UpdatedAt("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, ts.After(before))
}

func TestKVStoreOpenOnDisk(t *testing.T) {
	path := t.TempDir() + "/kv_cache.db"

	kv := NewKVStore()
	require.NoError(t, kv.Open(path))
	require.NoError(t, kv.Migrate())
	require.NoError(t, kv.Set("k", "v"))
	require.NoError(t, kv.Close())

	// Values survive a reopen.
	again := NewKVStore()
	require.NoError(t, again.Open(path))
	defer func() { _ = again.Close() }()

	got, ok, err := again.Get("k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestKVStoreRequiresOpen(t *testing.T) {
	kv := NewKVStore()
	_, _, err := kv.Get("k")
	assert.Error(t, err)
	assert.Error(t, kv.Set("k", "v"))
}
