package gatekeeper

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// APIKeyCache mirrors the api_keys table into process memory so the guard
// never touches the store. Admin mutations write through synchronously; the
// mutex is the only coordination between guard reads and admin writes.
type APIKeyCache struct {
	mu     sync.RWMutex
	keys   map[uuid.UUID]*APIKey
	repo   APIKeys
	logger Logger
}

func NewAPIKeyCache(repo APIKeys) *APIKeyCache {
	return &APIKeyCache{
		keys:   map[uuid.UUID]*APIKey{},
		repo:   repo,
		logger: defLogger{},
	}
}

func (c *APIKeyCache) WithLogger(logger Logger) *APIKeyCache {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// Prime loads every stored key at startup
func (c *APIKeyCache) Prime(ctx context.Context) error {
	records, err := c.repo.List(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.keys = make(map[uuid.UUID]*APIKey, len(records))
	for _, r := range records {
		c.keys[r.ID] = r
	}

	c.logger.Info("%d API keys loaded", len(records))
	return nil
}

// Lookup finds a key by its header value
func (c *APIKeyCache) Lookup(value string) (*APIKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, k := range c.keys {
		if k.Key == value {
			return k, true
		}
	}
	return nil, false
}

// Put inserts or replaces a key; called by admin create/update handlers
// after the row is persisted.
func (c *APIKeyCache) Put(record *APIKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[record.ID] = record
}

// Remove drops a key by id
func (c *APIKeyCache) Remove(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.keys, id)
}

// Len reports the number of cached keys
func (c *APIKeyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.keys)
}

// BlacklistCache mirrors the blacklist table, same write-through contract as
// APIKeyCache.
type BlacklistCache struct {
	mu      sync.RWMutex
	entries map[uuid.UUID]*BlacklistEntry
	repo    BlacklistEntries
	logger  Logger
}

func NewBlacklistCache(repo BlacklistEntries) *BlacklistCache {
	return &BlacklistCache{
		entries: map[uuid.UUID]*BlacklistEntry{},
		repo:    repo,
		logger:  defLogger{},
	}
}

func (c *BlacklistCache) WithLogger(logger Logger) *BlacklistCache {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// Prime loads every stored entry at startup
func (c *BlacklistCache) Prime(ctx context.Context) error {
	records, err := c.repo.List(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[uuid.UUID]*BlacklistEntry, len(records))
	for _, r := range records {
		c.entries[r.ID] = r
	}

	c.logger.Info("%d blacklist entries loaded", len(records))
	return nil
}

// HasIP reports whether the client address is denied
func (c *BlacklistCache) HasIP(ip string) bool {
	return c.has(BlacklistIP, ip)
}

// HasDevice reports whether the device id is denied
func (c *BlacklistCache) HasDevice(deviceID string) bool {
	if deviceID == "" {
		return false
	}
	return c.has(BlacklistDeviceID, deviceID)
}

func (c *BlacklistCache) has(kind BlacklistKind, value string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, e := range c.entries {
		if e.Kind == kind && e.Value == value {
			return true
		}
	}
	return false
}

// Put inserts or replaces an entry
func (c *BlacklistCache) Put(record *BlacklistEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[record.ID] = record
}

// Remove drops an entry by id
func (c *BlacklistCache) Remove(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

// Len reports the number of cached entries
func (c *BlacklistCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
