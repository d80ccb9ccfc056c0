package gatekeeper_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/goliatone/go-gatekeeper"
)

func TestAPIKeyCachePrime(t *testing.T) {
	repo := &MockAPIKeys{}
	cache := gatekeeper.NewAPIKeyCache(repo)

	records := []*gatekeeper.APIKey{
		{ID: uuid.New(), Key: "key-one", Label: "one"},
		{ID: uuid.New(), Key: "key-two", Label: "two"},
	}
	repo.On("List", mock.Anything).Return(records, nil)

	assert.NoError(t, cache.Prime(context.Background()))
	assert.Equal(t, 2, cache.Len())

	record, ok := cache.Lookup("key-one")
	assert.True(t, ok)
	assert.Equal(t, "one", record.Label)

	_, ok = cache.Lookup("key-three")
	assert.False(t, ok)
}

func TestAPIKeyCachePrimeError(t *testing.T) {
	repo := &MockAPIKeys{}
	cache := gatekeeper.NewAPIKeyCache(repo)

	repo.On("List", mock.Anything).Return(nil, assert.AnError)
	assert.Error(t, cache.Prime(context.Background()))
}

func TestAPIKeyCacheWriteThrough(t *testing.T) {
	cache := gatekeeper.NewAPIKeyCache(&MockAPIKeys{})

	record := &gatekeeper.APIKey{ID: uuid.New(), Key: "key-one"}
	cache.Put(record)

	got, ok := cache.Lookup("key-one")
	assert.True(t, ok)
	assert.Equal(t, record.ID, got.ID)

	// updating the same id replaces the entry, not duplicates it
	cache.Put(&gatekeeper.APIKey{ID: record.ID, Key: "key-rotated"})
	assert.Equal(t, 1, cache.Len())

	_, ok = cache.Lookup("key-one")
	assert.False(t, ok)
	_, ok = cache.Lookup("key-rotated")
	assert.True(t, ok)

	cache.Remove(record.ID)
	assert.Equal(t, 0, cache.Len())
	_, ok = cache.Lookup("key-rotated")
	assert.False(t, ok)
}

func TestBlacklistCachePrime(t *testing.T) {
	repo := &MockBlacklist{}
	cache := gatekeeper.NewBlacklistCache(repo)

	records := []*gatekeeper.BlacklistEntry{
		{ID: uuid.New(), Kind: gatekeeper.BlacklistIP, Value: "203.0.113.7"},
		{ID: uuid.New(), Kind: gatekeeper.BlacklistDeviceID, Value: "device-1"},
	}
	repo.On("List", mock.Anything).Return(records, nil)

	assert.NoError(t, cache.Prime(context.Background()))
	assert.Equal(t, 2, cache.Len())

	assert.True(t, cache.HasIP("203.0.113.7"))
	assert.False(t, cache.HasIP("203.0.113.8"))
	assert.True(t, cache.HasDevice("device-1"))
	assert.False(t, cache.HasDevice("device-2"))
}

// Kinds never cross: an IP entry cannot block a device and vice versa.
func TestBlacklistCacheKindIsolation(t *testing.T) {
	cache := gatekeeper.NewBlacklistCache(&MockBlacklist{})

	cache.Put(&gatekeeper.BlacklistEntry{ID: uuid.New(), Kind: gatekeeper.BlacklistIP, Value: "203.0.113.7"})
	cache.Put(&gatekeeper.BlacklistEntry{ID: uuid.New(), Kind: gatekeeper.BlacklistDeviceID, Value: "device-1"})

	assert.False(t, cache.HasDevice("203.0.113.7"))
	assert.False(t, cache.HasIP("device-1"))
}

func TestBlacklistCacheEmptyDevice(t *testing.T) {
	cache := gatekeeper.NewBlacklistCache(&MockBlacklist{})
	cache.Put(&gatekeeper.BlacklistEntry{ID: uuid.New(), Kind: gatekeeper.BlacklistDeviceID, Value: ""})

	// requests without a device header never match
	assert.False(t, cache.HasDevice(""))
}

func TestBlacklistCacheRemove(t *testing.T) {
	cache := gatekeeper.NewBlacklistCache(&MockBlacklist{})

	entry := &gatekeeper.BlacklistEntry{ID: uuid.New(), Kind: gatekeeper.BlacklistIP, Value: "203.0.113.7"}
	cache.Put(entry)
	assert.True(t, cache.HasIP("203.0.113.7"))

	cache.Remove(entry.ID)
	assert.False(t, cache.HasIP("203.0.113.7"))
}
