// Package cache provides an LRU cache of analysis results with msgpack disk
// persistence. Keys are content hashes, so a changed source file simply misses.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrKeyNotFound is returned when a key is not found in the cache.
var ErrKeyNotFound = errors.New("key not found")

// formatVersion is bumped whenever the persisted entry layout changes.
const formatVersion = 1

// Key derives a cache key from file content and any parameters that affect
// the cached value, such as the function name.
func Key(content []byte, params ...string) string {
	h := sha256.New()
	h.Write(content)
	for _, p := range params {
		h.Write([]byte{0})
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Entry is a cached value with its bookkeeping.
type Entry[V any] struct {
	Key        string    `msgpack:"key"`
	Value      V         `msgpack:"value"`
	CreatedAt  time.Time `msgpack:"created_at"`
	AccessedAt time.Time `msgpack:"accessed_at"`
}

type item[V any] struct {
	Entry[V]
	prev, next *item[V]
}

// LRU is a size-bounded least-recently-used cache safe for concurrent use.
type LRU[V any] struct {
	mu      sync.Mutex
	items   map[string]*item[V]
	head    *item[V] // most recently used
	tail    *item[V]
	maxSize int
	hits    int64
	misses  int64
	onEvict func(key string, value V)
	dirty   bool
}

// Options configures an LRU.
type Options[V any] struct {
	// MaxSize is the maximum number of entries. 0 means unlimited.
	MaxSize int

	// OnEvict is called when an entry is evicted to make room.
	OnEvict func(key string, value V)
}

// New creates an empty cache.
func New[V any](opts Options[V]) *LRU[V] {
	return &LRU[V]{
		items:   make(map[string]*item[V]),
		maxSize: opts.MaxSize,
		onEvict: opts.OnEvict,
	}
}

// Get returns the value stored under key and marks it most recently used.
func (c *LRU[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	it, ok := c.items[key]
	if !ok {
		c.misses++
		var zero V
		return zero, false
	}
	c.hits++
	it.AccessedAt = time.Now()
	c.unlink(it)
	c.pushFront(it)
	return it.Value, true
}

// Lookup is Get returning ErrKeyNotFound for a miss.
func (c *LRU[V]) Lookup(key string) (V, error) {
	v, ok := c.Get(key)
	if !ok {
		return v, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
	}
	return v, nil
}

// Set stores value under key, evicting the least recently used entries when
// the cache is full.
func (c *LRU[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	c.dirty = true
	if it, ok := c.items[key]; ok {
		it.Value = value
		it.AccessedAt = now
		c.unlink(it)
		c.pushFront(it)
		return
	}

	it := &item[V]{Entry: Entry[V]{Key: key, Value: value, CreatedAt: now, AccessedAt: now}}
	c.items[key] = it
	c.pushFront(it)
	for c.maxSize > 0 && len(c.items) > c.maxSize {
		victim := c.tail
		c.unlink(victim)
		delete(c.items, victim.Key)
		if c.onEvict != nil {
			c.onEvict(victim.Key, victim.Value)
		}
	}
}

// Delete removes key from the cache.
func (c *LRU[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if it, ok := c.items[key]; ok {
		c.unlink(it)
		delete(c.items, key)
		c.dirty = true
	}
}

// Clear removes every entry.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*item[V])
	c.head, c.tail = nil, nil
	c.dirty = true
}

// Len returns the number of entries.
func (c *LRU[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Keys returns the keys from most to least recently used.
func (c *LRU[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.items))
	for it := c.head; it != nil; it = it.next {
		keys = append(keys, it.Key)
	}
	return keys
}

// Stats reports cache usage.
type Stats struct {
	Length int   `json:"length"`
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

// Stats returns the current statistics.
func (c *LRU[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Length: len(c.items), Hits: c.hits, Misses: c.misses}
}

// Dirty reports whether the cache changed since it was last saved or loaded.
func (c *LRU[V]) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

func (c *LRU[V]) pushFront(it *item[V]) {
	it.prev = nil
	it.next = c.head
	if c.head != nil {
		c.head.prev = it
	}
	c.head = it
	if c.tail == nil {
		c.tail = it
	}
}

func (c *LRU[V]) unlink(it *item[V]) {
	if it.prev != nil {
		it.prev.next = it.next
	} else {
		c.head = it.next
	}
	if it.next != nil {
		it.next.prev = it.prev
	} else {
		c.tail = it.prev
	}
	it.prev, it.next = nil, nil
}

type snapshot[V any] struct {
	Version int        `msgpack:"version"`
	Entries []Entry[V] `msgpack:"entries"`
}

// Save writes the entries, most recently used first, to w using msgpack.
func (c *LRU[V]) Save(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data := snapshot[V]{Version: formatVersion, Entries: make([]Entry[V], 0, len(c.items))}
	for it := c.head; it != nil; it = it.next {
		data.Entries = append(data.Entries, it.Entry)
	}
	if err := msgpack.NewEncoder(w).Encode(&data); err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}
	c.dirty = false
	return nil
}

// Load replaces the content of the cache with the entries read from r,
// keeping their recency order. Entries beyond MaxSize are dropped.
func (c *LRU[V]) Load(r io.Reader) error {
	var data snapshot[V]
	if err := msgpack.NewDecoder(r).Decode(&data); err != nil {
		return fmt.Errorf("failed to decode cache: %w", err)
	}
	if data.Version != formatVersion {
		return fmt.Errorf("unsupported cache format version %d", data.Version)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*item[V])
	c.head, c.tail = nil, nil
	entries := data.Entries
	if c.maxSize > 0 && len(entries) > c.maxSize {
		entries = entries[:c.maxSize]
	}
	for i := len(entries) - 1; i >= 0; i-- {
		it := &item[V]{Entry: entries[i]}
		c.items[it.Key] = it
		c.pushFront(it)
	}
	c.dirty = false
	return nil
}

// PersistToFile saves the cache to path, creating parent directories.
func (c *LRU[V]) PersistToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	if err := c.Save(f); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

// LoadFromFile loads the cache from path. A missing file leaves the cache
// empty and is not an error.
func (c *LRU[V]) LoadFromFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open cache file: %w", err)
	}
	defer f.Close()
	return c.Load(f)
}
