// config.go: cache configuration
//
// Copyright (c) 2025 Vektra Labs
// SPDX-License-Identifier: MPL-2.0

package scintilla

import (
	"time"

	"github.com/agilira/go-timecache"
)

// MapBackend selects which Map implementation backs a cache's Store.
type MapBackend int

const (
	// ShardedMutex is the default: a fixed shard count, each guarded by its
	// own sync.RWMutex.
	ShardedMutex MapBackend = iota
	// XSync uses github.com/puzpuzpuz/xsync/v4 instead of per-shard mutexes.
	XSync
)

// WeightFn computes the weight an entry consumes against CacheWeight. hasTTL
// reports whether the entry is being weighed for a TTL-bearing Put/Upsert,
// letting a weight function charge ephemeral entries differently. The
// default weighs every entry as 1, so with CacheWeight left at its default
// of Capacity, Capacity behaves like an entry count.
type WeightFn[K comparable, V any] func(key K, value V, hasTTL bool) int64

// Config holds the parameters used to build a Cache. Counters, Capacity and
// CacheWeight are independent sizing knobs
// and need not track each other: a byte-weighted cache, for
// instance, typically wants a CacheWeight in the millions while Capacity
// (an entry-count hint) and Counters (a distinct-key hint) stay in the
// thousands.
type Config[K comparable, V any] struct {
	// Counters sizes the frequency sketch: roughly how many
	// distinct keys it should resolve with low collision. 0 defaults to
	// Capacity.
	Counters int64

	// Capacity estimates the number of entries the store should size its
	// shards for (smallest power of two at or above max(256, Capacity/8)). It does not bound admitted weight — see CacheWeight.
	// Must be > 0.
	Capacity int64

	// CacheWeight is the maximum total weight the admission policy will
	// admit. 0 defaults to Capacity, so a cache
	// whose WeightFn charges 1 per entry can leave this unset and have
	// Capacity behave like an entry count, as before.
	CacheWeight int64

	// Shards is the number of Store partitions. Must be a power of two if
	// set; 0 selects the default derived from Capacity.
	Shards int

	// MapBackend selects the Store implementation. Default: ShardedMutex.
	MapBackend MapBackend

	// SampleSize is how many occupants the admission policy samples as
	// eviction candidates on a full cache. Default: DefaultSampleSize (5).
	SampleSize int

	// CommandBufferSize is the depth of the single-writer command queue.
	CommandBufferSize int

	// AccessBufferSize is the depth of the lossy access log feeding the
	// frequency estimator.
	AccessBufferSize int

	// TTLBucketWidth is the granularity of the TTL wheel. Entries expire
	// rounded up to the nearest multiple of this duration.
	TTLBucketWidth time.Duration

	// TTLBuckets is the number of buckets in the TTL wheel; one rotation
	// spans TTLBuckets * TTLBucketWidth. A longer TTL stays on the wheel for
	// the extra rotations it needs.
	TTLBuckets int

	// TTLTickInterval is how often the TTL wheel sweeps its current bucket.
	TTLTickInterval time.Duration

	// WeightFn computes entry weight. Default: every entry weighs 1.
	WeightFn WeightFn[K, V]

	// Hasher computes the digest used for sharding and frequency estimation.
	// Default: a zero-allocation hasher for strings/integers, xxhash for
	// everything else.
	Hasher Hasher[K]

	// Clock provides current time. Default: go-timecache's cached clock.
	Clock Clock

	// Logger receives events from the command executor: a Warn when a TTL
	// sweep candidate is dropped on a full queue and an Error when a panic
	// in user code is recovered. Default: NoOpLogger.
	Logger Logger

	// MetricsCollector receives per-operation metrics. Default: NoOpMetricsCollector.
	MetricsCollector MetricsCollector

	// NegativeCacheTTL caches GetOrLoad loader errors for this duration so a
	// consistently-failing loader isn't retried on every call. 0 disables it.
	NegativeCacheTTL time.Duration

	// OnEvict is called (off the caller's goroutine, from the executor) when
	// an entry is evicted to make room for another. Must be fast.
	OnEvict func(key K, value V)

	// OnExpire is called when an entry is removed by the TTL wheel. Must be fast.
	OnExpire func(key K, value V)
}

// DefaultConfig returns a Config with sensible defaults set. Counters and
// CacheWeight are left at zero; Validate fills them in.
func DefaultConfig[K comparable, V any]() Config[K, V] {
	return Config[K, V]{
		Capacity:          DefaultCapacity,
		// Counters and CacheWeight default to Capacity in Validate when left
		// at zero, so the common case needs only Capacity set.
		SampleSize:        DefaultSampleSize,
		CommandBufferSize: DefaultCommandBufferSize,
		AccessBufferSize:  DefaultAccessBufferSize,
		TTLBucketWidth:    time.Second,
		TTLBuckets:        3600,
		TTLTickInterval:   time.Second,
		Logger:            NoOpLogger{},
		MetricsCollector:  NoOpMetricsCollector{},
	}
}

// Validate normalizes zero-valued fields to their defaults and rejects
// structurally invalid configuration (capacity not above zero, negative
// Counters or CacheWeight, non-power-of-two shard counts).
func (c *Config[K, V]) Validate() error {
	if c.Capacity <= 0 {
		return NewErrInvalidCapacity(c.Capacity)
	}

	if c.Counters < 0 {
		return NewErrInvalidCounters(c.Counters)
	}
	if c.Counters == 0 {
		c.Counters = c.Capacity
	}

	if c.CacheWeight < 0 {
		return NewErrInvalidCacheWeight(c.CacheWeight)
	}
	if c.CacheWeight == 0 {
		c.CacheWeight = c.Capacity
	}

	if c.Shards == 0 {
		c.Shards = shardCountFor(c.Capacity)
	} else if c.Shards&(c.Shards-1) != 0 {
		return NewErrInvalidShardCount(c.Shards)
	}

	if c.SampleSize <= 0 {
		c.SampleSize = DefaultSampleSize
	}

	if c.CommandBufferSize <= 0 {
		c.CommandBufferSize = DefaultCommandBufferSize
	}

	if c.AccessBufferSize <= 0 {
		c.AccessBufferSize = DefaultAccessBufferSize
	}

	if c.TTLBucketWidth <= 0 {
		c.TTLBucketWidth = time.Second
	}

	if c.TTLBuckets <= 0 {
		c.TTLBuckets = 3600
	}

	if c.TTLTickInterval <= 0 {
		c.TTLTickInterval = c.TTLBucketWidth
	}

	if c.WeightFn == nil {
		c.WeightFn = func(K, V, bool) int64 { return 1 }
	}

	if c.Hasher == nil {
		c.Hasher = defaultHasher[K]{}
	}

	if c.Clock == nil {
		c.Clock = &systemClock{}
	}

	if c.Logger == nil {
		c.Logger = NoOpLogger{}
	}

	if c.MetricsCollector == nil {
		c.MetricsCollector = NoOpMetricsCollector{}
	}

	return nil
}

// systemClock is the default Clock, using go-timecache for a cached,
// low-overhead time source instead of calling time.Now() on every access.
type systemClock struct{}

func (systemClock) Now() int64 {
	return timecache.CachedTimeNano()
}
