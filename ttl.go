// ttl.go: bucketed time wheel for per-entry expiration
//
// Copyright (c) 2025 Vektra Labs
// SPDX-License-Identifier: MPL-2.0

package scintilla

import (
	"sync"
	"time"
)

// ttlSlot locates a scheduled expiration within the wheel so Cancel only
// has to scan that one bucket, not the whole wheel.
type ttlSlot struct {
	bucket int
	id     uint64
}

// ttlEntry is one occupant of a wheel bucket. rounds is nonzero only for a
// TTL longer than the wheel can represent in one rotation: the entry sits in
// the bucket its step count reduces to mod the wheel's span, and rounds
// counts the extra full rotations the cursor must complete before the entry
// is actually due. Each time the cursor passes through with rounds still
// positive the entry is decremented and left in the same bucket rather than
// expired early.
type ttlEntry struct {
	id     uint64
	hash   uint64
	rounds int
}

// ttlTicker is a ring of fixed-width buckets; scheduling a TTL places the
// key's hash into the bucket `ttl/bucketWidth` buckets ahead of the cursor,
// and a sweep goroutine advances the cursor every tick, expiring whatever
// lands in the bucket it passes through, so expiry scanning is amortized
// across ticks instead of one global pass over every entry.
type ttlTicker struct {
	mu      sync.Mutex
	buckets [][]ttlEntry
	index   map[uint64]ttlSlot
	cursor  int
	nextID  uint64
	width   time.Duration

	clock    Clock
	interval time.Duration
	onExpire func(hash uint64, ttlID uint64)

	stop chan struct{}
	done chan struct{}
}

func newTTLTicker(bucketCount int, width, interval time.Duration, clock Clock, onExpire func(hash uint64, ttlID uint64)) *ttlTicker {
	if bucketCount < 1 {
		bucketCount = 1
	}
	return &ttlTicker{
		buckets:  make([][]ttlEntry, bucketCount),
		index:    make(map[uint64]ttlSlot),
		width:    width,
		clock:    clock,
		interval: interval,
		onExpire: onExpire,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Schedule places hash on the wheel so it expires no earlier than ttl from
// now, rounded up to the nearest bucket width. If ttl needs more steps than
// the wheel has buckets, the entry is placed in the bucket its step count
// reduces to mod the wheel's span, carrying the extra full rotations as
// rounds so it is swept only once the cursor has passed through that bucket
// enough additional times, instead of expiring a full rotation early.
// Returns an id usable with Cancel.
func (t *ttlTicker) Schedule(hash uint64, ttl time.Duration) uint64 {
	if ttl <= 0 {
		ttl = t.width
	}

	steps := int(ttl / t.width)
	if ttl%t.width != 0 {
		steps++
	}
	if steps < 1 {
		steps = 1
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.nextID++
	id := t.nextID
	t.place(id, hash, steps)
	return id
}

// place buckets id/hash steps ticks ahead of the cursor. A step count beyond
// the wheel's span wraps: the bucket offset is steps mod span and the
// quotient becomes rounds, the extra full rotations owed before the entry is
// really due. A span-exact step count lands in the cursor's own bucket with
// at least one round owed, so it doesn't alias to "due immediately". Must be
// called with t.mu held.
func (t *ttlTicker) place(id, hash uint64, steps int) {
	span := len(t.buckets)
	offset := steps % span
	rounds := (steps - offset) / span

	bucket := (t.cursor + offset) % span
	t.buckets[bucket] = append(t.buckets[bucket], ttlEntry{id: id, hash: hash, rounds: rounds})
	t.index[id] = ttlSlot{bucket: bucket, id: id}
}

// requeue re-inserts an entry into bucket after a sweep finds rounds still
// owed, leaving it for the cursor's next pass through that same bucket.
func (t *ttlTicker) requeue(bucket int, e ttlEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buckets[bucket] = append(t.buckets[bucket], e)
	t.index[e.id] = ttlSlot{bucket: bucket, id: e.id}
}

// Cancel removes a previously scheduled expiration. Reports false if the id
// was already swept or never existed (e.g. it raced with an expiration).
func (t *ttlTicker) Cancel(id uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	slot, ok := t.index[id]
	if !ok {
		return false
	}
	delete(t.index, id)

	bucket := t.buckets[slot.bucket]
	for i, e := range bucket {
		if e.id == id {
			bucket[i] = bucket[len(bucket)-1]
			t.buckets[slot.bucket] = bucket[:len(bucket)-1]
			return true
		}
	}
	return false
}

// drainCurrent empties the bucket under the cursor and advances it by one.
// Returns the entries that expired, each carrying the id the executor needs
// to locate the exact occupant that was scheduled (hash alone isn't unique
// enough once a key has been deleted and a new one hashes to the same slot).
func (t *ttlTicker) drainCurrent() []ttlEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	bucket := t.buckets[t.cursor]
	t.buckets[t.cursor] = nil

	entries := make([]ttlEntry, len(bucket))
	for i, e := range bucket {
		entries[i] = e
		delete(t.index, e.id)
	}

	t.cursor = (t.cursor + 1) % len(t.buckets)
	return entries
}

// run sweeps the wheel on a fixed interval until Close is called. Each swept
// key is handed to onExpire, which the cache facade wires to a synthetic
// Delete command so expiration goes through the same single-writer path as
// any other mutation.
func (t *ttlTicker) run() {
	defer close(t.done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.mu.Lock()
			bucket := t.cursor
			t.mu.Unlock()

			for _, e := range t.drainCurrent() {
				if e.rounds > 0 {
					e.rounds--
					t.requeue(bucket, e)
					continue
				}
				t.onExpire(e.hash, e.id)
			}
		case <-t.stop:
			return
		}
	}
}

func (t *ttlTicker) Close() {
	close(t.stop)
	<-t.done
}
