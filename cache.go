// cache.go: public cache facade wiring admission, storage, TTL and the
// command pipeline together
//
// Copyright (c) 2025 Vektra Labs
// SPDX-License-Identifier: MPL-2.0

package scintilla

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Cache is a weight-bounded, concurrent key-value cache with W-TinyLFU
// admission and optional per-entry TTL. Build one with New;
// the zero value is not usable. Close releases its background goroutines
// and must be called when the cache is no longer needed; later calls are
// no-ops.
type Cache[K comparable, V any] struct {
	cfg Config[K, V]

	store  Map[K, V]
	policy *admissionPolicy[K]
	sketch *frequencyEstimator
	ttl    *ttlTicker
	access *accessLog
	exec   *executor[K, V]
	stats  *StatsRecorder

	// inflight deduplicates concurrent GetOrLoad calls for the same key
	// (component-adjacent to H, defined in loading.go). negativeCache
	// remembers recent loader failures so a consistently-failing loader
	// isn't retried on every call.
	inflight      sync.Map
	negativeCache sync.Map

	// negativeCacheTTL mirrors cfg.NegativeCacheTTL but is hot-reloadable
	// (see hot-reload.go) without requiring a pointer receiver on Config.
	negativeCacheTTL atomic.Int64

	closed atomic.Bool
}

// New builds a Cache from cfg, validating and defaulting its fields first.
// It starts the access-log drainer, the TTL sweeper and the command
// executor as background goroutines; call Close to stop them.
func New[K comparable, V any](cfg Config[K, V]) (*Cache[K, V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sketch := newFrequencyEstimator(int(cfg.Counters))
	policy := newAdmissionPolicy[K](cfg.CacheWeight, cfg.SampleSize)
	stats := newStatsRecorder()

	var store Map[K, V]
	switch cfg.MapBackend {
	case XSync:
		store = newXSyncStore[K, V](int(cfg.Capacity))
	default:
		store = newStore[K, V](cfg.Shards)
	}

	c := &Cache[K, V]{cfg: cfg, store: store, policy: policy, sketch: sketch, stats: stats}
	c.negativeCacheTTL.Store(int64(cfg.NegativeCacheTTL))

	c.ttl = newTTLTicker(cfg.TTLBuckets, cfg.TTLBucketWidth, cfg.TTLTickInterval, cfg.Clock, c.handleExpire)
	c.access = newAccessLog(cfg.AccessBufferSize, sketch)
	c.exec = newExecutor[K, V](
		cfg.CommandBufferSize, store, policy, sketch, c.ttl, stats, cfg.MetricsCollector,
		cfg.WeightFn, cfg.SampleSize, cfg.Logger, cfg.OnEvict, cfg.OnExpire,
	)

	go c.access.run()
	go c.ttl.run()
	go c.exec.run()

	return c, nil
}

// handleExpire is the TTL wheel's onExpire callback, wired at construction
// so a sweep never bypasses the single-writer command path.
func (c *Cache[K, V]) handleExpire(hash, ttlID uint64) {
	c.exec.submitExpire(hash, ttlID)
}

func (c *Cache[K, V]) expireAt(ttl time.Duration) int64 {
	return c.cfg.Clock.Now() + ttl.Nanoseconds()
}

// Put stores key/value, weighing it with the configured WeightFn and no
// expiration. Returns an Acknowledgement the caller may Wait on for the
// admission outcome.
func (c *Cache[K, V]) Put(key K, value V) *Acknowledgement {
	return c.put(key, value, c.cfg.WeightFn(key, value, false), 0, 0, false)
}

// PutWithWeight is like Put but uses an explicit weight instead of the
// configured WeightFn. weight must be between 1 and cfg.CacheWeight.
func (c *Cache[K, V]) PutWithWeight(key K, value V, weight int64) (*Acknowledgement, error) {
	if weight < 1 || weight > c.cfg.CacheWeight {
		return nil, NewErrInvalidWeight(fmt.Sprintf("%v", key), weight)
	}
	return c.put(key, value, weight, 0, 0, false), nil
}

// PutWithTTL is like Put but schedules the entry to expire after ttl. ttl
// must be greater than zero.
func (c *Cache[K, V]) PutWithTTL(key K, value V, ttl time.Duration) (*Acknowledgement, error) {
	if ttl <= 0 {
		return nil, NewErrInvalidTTL(fmt.Sprintf("%v", key), ttl)
	}
	weight := c.cfg.WeightFn(key, value, true)
	return c.put(key, value, weight, ttl, c.expireAt(ttl), true), nil
}

func (c *Cache[K, V]) put(key K, value V, weight int64, ttl time.Duration, expireAt int64, hasTTL bool) *Acknowledgement {
	start := c.cfg.Clock.Now()
	hash := c.cfg.Hasher.Hash(key)
	cmd := &command[K, V]{
		kind: cmdPut, key: key, hash: hash, value: value,
		weight: weight, ttl: ttl, expireAt: expireAt, hasTTL: hasTTL,
	}
	ack := c.submitOrShuttingDown(cmd)
	c.cfg.MetricsCollector.RecordPut(c.cfg.Clock.Now() - start)
	return ack
}

func (c *Cache[K, V]) submitOrShuttingDown(cmd *command[K, V]) *Acknowledgement {
	ack, err := c.exec.submit(cmd)
	if err != nil {
		ack = newAcknowledgement()
		ack.resolve(AckShuttingDown, err)
	}
	return ack
}

// UpsertRequest describes an Upsert call. A request that sets none of Value
// (with HasValue), UpdateFn, Weight (with HasWeight), TTL (with HasTTL) or
// ClearTTL is InvalidRequest. When both Value and UpdateFn are set, Value
// wins. A request with neither Value nor UpdateFn addressed to an absent key
// inserts V's zero value.
type UpsertRequest[K comparable, V any] struct {
	Key K

	// Value, if HasValue is true, replaces the stored value outright.
	Value    V
	HasValue bool

	// UpdateFn, if set, computes the new value from the current one.
	// exists is false when the key wasn't already present (current is the
	// zero value in that case).
	UpdateFn func(current V, exists bool) V

	// Weight, if HasWeight is true, sets the entry's weight. Omit to leave
	// an existing entry's weight unchanged, or to weigh a new entry with
	// the configured WeightFn.
	Weight    int64
	HasWeight bool

	// TTL, if HasTTL is true, (re)schedules the entry's expiration.
	TTL    time.Duration
	HasTTL bool

	// ClearTTL removes any existing expiration, making the entry permanent.
	ClearTTL bool
}

// Upsert inserts or updates key according to req. Returns InvalidRequest
// synchronously if req asks for no change at all: no value, no update
// function, no weight and no TTL change.
func (c *Cache[K, V]) Upsert(req UpsertRequest[K, V]) (*Acknowledgement, error) {
	if !req.HasValue && req.UpdateFn == nil && !req.HasWeight && !req.HasTTL && !req.ClearTTL {
		return nil, NewErrEmptyUpsert(fmt.Sprintf("%v", req.Key))
	}

	hash := c.cfg.Hasher.Hash(req.Key)
	spec := upsertSpec[V]{
		value: req.Value, hasValue: req.HasValue, updateFn: req.UpdateFn,
		weight: req.Weight, hasWeight: req.HasWeight,
		ttl: req.TTL, hasTTL: req.HasTTL, clearTTL: req.ClearTTL,
	}
	if req.HasTTL {
		spec.expireAt = c.expireAt(req.TTL)
	}

	cmd := &command[K, V]{kind: cmdUpsert, key: req.Key, hash: hash, upsert: spec}
	return c.submitOrShuttingDown(cmd), nil
}

// WeightOf reports the weight currently charged against capacity for key,
// or false if key isn't present. Useful for verifying the outcome of a
// weight-changing Upsert.
func (c *Cache[K, V]) WeightOf(key K) (int64, bool) {
	hash := c.cfg.Hasher.Hash(key)
	view := c.store.Lookup(key, hash)
	if !view.Found {
		return 0, false
	}
	return view.Weight, true
}

// Get returns a clone of key's value, recording the access for the
// admission policy on a hit. An entry observed past its TTL is treated as a
// miss and its removal is submitted asynchronously.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	start := c.cfg.Clock.Now()
	hash := c.cfg.Hasher.Hash(key)
	view := c.store.Lookup(key, hash)
	if !view.Found {
		c.stats.RecordMiss()
		c.cfg.MetricsCollector.RecordGet(c.cfg.Clock.Now()-start, false)
		var zero V
		return zero, false
	}
	if c.isExpired(view) {
		c.stats.RecordMiss()
		c.cfg.MetricsCollector.RecordGet(c.cfg.Clock.Now()-start, false)
		c.exec.submitExpire(hash, view.TTLID)
		var zero V
		return zero, false
	}
	c.access.record(hash)
	c.stats.RecordHit()
	c.cfg.MetricsCollector.RecordGet(c.cfg.Clock.Now()-start, true)
	return view.Value, true
}

func (c *Cache[K, V]) isExpired(view entryView[V]) bool {
	return view.ExpireAt != 0 && c.cfg.Clock.Now() >= view.ExpireAt
}

// GetRef returns a Ref bound to the owning shard's read lock instead of
// cloning the value, avoiding a copy for large values. The guard MUST be
// released promptly with Ref.Release and MUST NOT be held across a
// suspension point (an Acknowledgement Wait, a channel receive, anything
// that could block) — doing so can deadlock with the command executor,
// which takes the same shard's write lock to apply a mutation. Callers who
// need to hold a value across suspension points should use Get instead.
func (c *Cache[K, V]) GetRef(key K) (*Ref[V], bool) {
	hash := c.cfg.Hasher.Hash(key)
	view := c.store.Lookup(key, hash)
	if !view.Found || c.isExpired(view) {
		c.stats.RecordMiss()
		return nil, false
	}
	ref, ok := c.store.GetRef(key, hash)
	if !ok {
		c.stats.RecordMiss()
		return nil, false
	}
	c.access.record(hash)
	c.stats.RecordHit()
	return ref, true
}

// MapGet applies f to key's value and returns the projection, without
// exposing the value itself beyond f's scope.
func (c *Cache[K, V]) MapGet(key K, f func(V) any) (any, bool) {
	value, ok := c.Get(key)
	if !ok {
		return nil, false
	}
	return f(value), true
}

// MultiGet looks up every key in keys, returning a map of key to value (or
// nil if absent). Order of the input is not preserved since the result is a
// map; use MultiGetIterator for a streaming, order-preserving variant.
func (c *Cache[K, V]) MultiGet(keys []K) map[K]*V {
	out := make(map[K]*V, len(keys))
	for _, k := range keys {
		if v, ok := c.Get(k); ok {
			vv := v
			out[k] = &vv
		} else {
			out[k] = nil
		}
	}
	return out
}

// MultiGetResult is one element of a MultiGetIterator sequence.
type MultiGetResult[K comparable, V any] struct {
	Key   K
	Value V
	Found bool
}

// MultiGetIterator returns a finite, lazily-evaluated sequence over keys: Get
// is only called as the returned function is invoked, so a caller that stops
// early never pays for the remaining lookups.
func (c *Cache[K, V]) MultiGetIterator(keys []K) func() (MultiGetResult[K, V], bool) {
	i := 0
	return func() (MultiGetResult[K, V], bool) {
		if i >= len(keys) {
			return MultiGetResult[K, V]{}, false
		}
		k := keys[i]
		i++
		v, found := c.Get(k)
		return MultiGetResult[K, V]{Key: k, Value: v, Found: found}, true
	}
}

// Delete removes key. Idempotent: deleting an absent key still resolves
// Done, so callers never need to check existence first.
func (c *Cache[K, V]) Delete(key K) *Acknowledgement {
	start := c.cfg.Clock.Now()
	hash := c.cfg.Hasher.Hash(key)
	cmd := &command[K, V]{kind: cmdDelete, key: key, hash: hash}
	ack := c.submitOrShuttingDown(cmd)
	c.cfg.MetricsCollector.RecordDelete(c.cfg.Clock.Now() - start)
	return ack
}

// Len returns the number of live entries across every shard. Approximate
// under concurrent mutation, exact at quiescence.
func (c *Cache[K, V]) Len() int { return c.store.Len() }

// Stats returns a snapshot of the hit/miss/admission counters.
func (c *Cache[K, V]) Stats() StatsSummary { return c.stats.Snapshot() }

// Capacity returns the admission policy's configured weight budget
// (Config.CacheWeight).
func (c *Cache[K, V]) Capacity() int64 { return c.policy.Capacity() }

// UsedWeight returns the currently admitted total weight.
func (c *Cache[K, V]) UsedWeight() int64 { return c.policy.UsedWeight() }

// Close begins shutdown: in-flight commands resolve ShuttingDown, queued
// commands are drained without being applied, and every subsequent mutating
// call fails synchronously with ErrShuttingDown. Close blocks until the
// executor, the TTL sweeper and the access-log drainer have all stopped.
// Safe to call more than once.
func (c *Cache[K, V]) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	c.exec.Close()
	c.ttl.Close()
	c.access.Close()
}
