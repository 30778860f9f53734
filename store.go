// store.go: sharded concurrent key-value store
//
// Copyright (c) 2025 Vektra Labs
// SPDX-License-Identifier: MPL-2.0

package scintilla

import "sync"

// storedEntry is what the store keeps per key: the value plus the metadata
// the admission policy and TTL wheel need to reason about it. expireAt is
// an absolute nanosecond timestamp (0 = no TTL); ttlID locates the entry's
// slot on the TTL wheel so it can be cancelled without a whole-wheel scan.
type storedEntry[V any] struct {
	value    V
	hash     uint64
	weight   int64
	ttlID    uint64 // 0 if the entry has no scheduled expiration
	expireAt int64  // 0 if the entry has no TTL
}

func (e *storedEntry[V]) hasTTL() bool { return e.ttlID != 0 }

// entryView is a read-only snapshot of a storedEntry's metadata, copied out
// from under the shard lock so callers never hold it across a suspension
// point.
type entryView[V any] struct {
	Value    V
	Weight   int64
	TTLID    uint64
	ExpireAt int64
	Found    bool
}

// shard is one lock-protected partition of the store. Reads take the read
// lock; the single command executor takes the write lock for every
// mutation, so writers never contend with each other.
type shard[K comparable, V any] struct {
	mu sync.RWMutex
	m  map[K]*storedEntry[V]
}

// Map is the storage backend the cache facade operates against. Store is
// the default sharded-mutex implementation;
// storexsync.go provides a lock-free alternative backed by xsync.Map for
// callers who configure Config.MapBackend accordingly.
type Map[K comparable, V any] interface {
	Lookup(key K, hash uint64) entryView[V]
	GetRef(key K, hash uint64) (*Ref[V], bool)
	Has(key K, hash uint64) bool
	Put(key K, e *storedEntry[V])
	Delete(key K, hash uint64) (*storedEntry[V], bool)
	// DeleteExpired removes the occupant of hash's partition whose ttlID
	// matches, as reported by the TTL wheel sweep. Scoped by both hash and
	// ttlID so a key that was deleted and reused between scheduling and
	// sweep is never mistakenly evicted.
	DeleteExpired(hash uint64, ttlID uint64) (key K, value V, weight int64, ok bool)
	Len() int
	Clear()
}

// Store is the sharded map backing the cache. Shard count defaults to the
// smallest power of two at or above max(256, capacity/8).
type Store[K comparable, V any] struct {
	shards []*shard[K, V]
	mask   uint64
}

func shardCountFor(capacity int64) int {
	n := capacity / 8
	if n < 256 {
		n = 256
	}
	return nextPowerOf2(int(n))
}

func newStore[K comparable, V any](shardCount int) *Store[K, V] {
	if shardCount < 1 {
		shardCount = 1
	}
	shardCount = nextPowerOf2(shardCount)

	s := &Store[K, V]{
		shards: make([]*shard[K, V], shardCount),
		mask:   uint64(shardCount - 1),
	}
	for i := range s.shards {
		s.shards[i] = &shard[K, V]{m: make(map[K]*storedEntry[V])}
	}
	return s
}

func (s *Store[K, V]) shardFor(hash uint64) *shard[K, V] {
	return s.shards[hash&s.mask]
}

// Lookup clones the value and metadata out of the store and releases the
// shard lock before returning, so callers never hold a lock across their
// own processing.
func (s *Store[K, V]) Lookup(key K, hash uint64) entryView[V] {
	sh := s.shardFor(hash)
	sh.mu.RLock()
	e, ok := sh.m[key]
	if !ok {
		sh.mu.RUnlock()
		return entryView[V]{}
	}
	v := entryView[V]{Value: e.value, Weight: e.weight, TTLID: e.ttlID, ExpireAt: e.expireAt, Found: true}
	sh.mu.RUnlock()
	return v
}

// Ref is a guard tied to the shard's read lock, letting a caller inspect a
// value without copying it. It MUST be released promptly and must never be
// held across a blocking call — see the Cache facade's GetRef doc comment.
type Ref[V any] struct {
	value   V
	release func()
	done    bool
}

// Value returns the referenced value. Valid until Release is called.
func (r *Ref[V]) Value() V { return r.value }

// Release unlocks the shard the reference was read from. Idempotent.
func (r *Ref[V]) Release() {
	if r.done {
		return
	}
	r.done = true
	r.release()
}

// GetRef returns a Ref holding the shard's read lock instead of cloning the
// value. Useful for large values where a copy-per-read is too expensive.
func (s *Store[K, V]) GetRef(key K, hash uint64) (*Ref[V], bool) {
	sh := s.shardFor(hash)
	sh.mu.RLock()
	e, ok := sh.m[key]
	if !ok {
		sh.mu.RUnlock()
		return nil, false
	}
	return &Ref[V]{value: e.value, release: sh.mu.RUnlock}, true
}

// Has reports key presence without copying the value.
func (s *Store[K, V]) Has(key K, hash uint64) bool {
	sh := s.shardFor(hash)
	sh.mu.RLock()
	_, ok := sh.m[key]
	sh.mu.RUnlock()
	return ok
}

// Put installs or overwrites key. Only the command executor may call this.
func (s *Store[K, V]) Put(key K, e *storedEntry[V]) {
	sh := s.shardFor(e.hash)
	sh.mu.Lock()
	sh.m[key] = e
	sh.mu.Unlock()
}

// Delete removes key, returning the removed entry (if any) so the caller
// can release its weight and cancel its TTL slot.
func (s *Store[K, V]) Delete(key K, hash uint64) (*storedEntry[V], bool) {
	sh := s.shardFor(hash)
	sh.mu.Lock()
	e, ok := sh.m[key]
	if ok {
		delete(sh.m, key)
	}
	sh.mu.Unlock()
	return e, ok
}

// DeleteExpired removes the entry in hash's shard whose ttlID matches, as
// reported by a TTL wheel sweep. Scanning is confined to a single shard, so
// a sweep never contends with puts landing in unrelated partitions.
func (s *Store[K, V]) DeleteExpired(hash uint64, ttlID uint64) (key K, value V, weight int64, ok bool) {
	sh := s.shardFor(hash)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	for k, e := range sh.m {
		if e.hash == hash && e.ttlID == ttlID && e.hasTTL() {
			delete(sh.m, k)
			return k, e.value, e.weight, true
		}
	}
	var zeroV V
	return key, zeroV, 0, false
}

// Len returns the total number of entries across all shards.
func (s *Store[K, V]) Len() int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.m)
		sh.mu.RUnlock()
	}
	return total
}

// Clear empties every shard. Only the command executor may call this.
func (s *Store[K, V]) Clear() {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.m = make(map[K]*storedEntry[V])
		sh.mu.Unlock()
	}
}
