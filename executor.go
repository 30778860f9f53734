// executor.go: single-writer command pipeline
//
// Copyright (c) 2025 Vektra Labs
// SPDX-License-Identifier: MPL-2.0

package scintilla

import (
	"fmt"
	"sync/atomic"
	"time"
)

type commandKind int

const (
	cmdPut commandKind = iota
	cmdUpsert
	cmdDelete
	cmdExpire
)

// upsertSpec carries the optional pieces of an Upsert request. A zero-value
// field means "leave this aspect of the entry unchanged" when the key
// already exists.
type upsertSpec[V any] struct {
	value     V
	hasValue  bool
	updateFn  func(current V, exists bool) V
	weight    int64
	hasWeight bool
	ttl       time.Duration
	expireAt  int64 // absolute nanosecond deadline, computed by the caller's Clock
	hasTTL    bool
	clearTTL  bool
}

// command is a serialized mutation request. Every mutating Cache method
// builds one of these and hands it to the executor; only the executor
// goroutine ever writes to the Map or the admission ledger. Same idea as
// ristretto's Item/processItems dispatch, with a typed command struct in
// place of a single flag byte.
type command[K comparable, V any] struct {
	kind commandKind

	key  K
	hash uint64

	// cmdPut fields.
	value    V
	weight   int64
	ttl      time.Duration
	expireAt int64 // absolute nanosecond deadline, computed by the caller's Clock
	hasTTL   bool

	// cmdUpsert fields.
	upsert upsertSpec[V]

	// cmdExpire fields: identifies a TTL-wheel candidate by hash+ttlID only,
	// since the sweeper never learns K.
	ttlID uint64

	ack *Acknowledgement
}

// executor is the single-consumer command pipeline. It is the
// only writer of the Map and the admissionPolicy's weight ledger, which is
// what lets admission and eviction decisions stay race-free without a
// global lock.
type executor[K comparable, V any] struct {
	queue chan *command[K, V]

	store      Map[K, V]
	policy     *admissionPolicy[K]
	sketch     *frequencyEstimator
	ttl        *ttlTicker
	stats      *StatsRecorder
	metrics    MetricsCollector
	weightFn   WeightFn[K, V]
	sampleSize int
	logger     Logger

	onEvict  func(K, V)
	onExpire func(K, V)

	closed atomic.Bool
	stop   chan struct{}
	done   chan struct{}
}

func newExecutor[K comparable, V any](
	bufferSize int,
	store Map[K, V],
	policy *admissionPolicy[K],
	sketch *frequencyEstimator,
	ticker *ttlTicker,
	stats *StatsRecorder,
	metrics MetricsCollector,
	weightFn WeightFn[K, V],
	sampleSize int,
	logger Logger,
	onEvict, onExpire func(K, V),
) *executor[K, V] {
	return &executor[K, V]{
		queue:      make(chan *command[K, V], bufferSize),
		store:      store,
		policy:     policy,
		sketch:     sketch,
		ttl:        ticker,
		stats:      stats,
		metrics:    metrics,
		weightFn:   weightFn,
		sampleSize: sampleSize,
		logger:     logger,
		onEvict:    onEvict,
		onExpire:   onExpire,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// submit enqueues cmd and returns its acknowledgement. It blocks only when
// the queue is full (backpressure); it never blocks waiting for the command
// to be applied. Fails synchronously, without enqueueing, once shutdown has
// begun.
func (e *executor[K, V]) submit(cmd *command[K, V]) (*Acknowledgement, error) {
	if e.closed.Load() {
		return nil, NewErrShuttingDown(fmt.Sprintf("%v", cmd.key))
	}

	cmd.ack = newAcknowledgement()

	select {
	case e.queue <- cmd:
		return cmd.ack, nil
	case <-e.stop:
		return nil, NewErrShuttingDown(fmt.Sprintf("%v", cmd.key))
	}
}

// submitExpire enqueues a synthetic expiration candidate from the TTL
// sweeper. It never blocks: a dropped sweep candidate is not
// data loss, because the entry stays in the store with its expire_at and is
// filtered on the next read, which submits the removal again. The dropped
// candidate is not put back on the TTL wheel.
func (e *executor[K, V]) submitExpire(hash, ttlID uint64) {
	if e.closed.Load() {
		return
	}
	cmd := &command[K, V]{kind: cmdExpire, hash: hash, ttlID: ttlID}
	select {
	case e.queue <- cmd:
	default:
		if e.logger != nil {
			e.logger.Warn("ttl sweep candidate dropped: command queue full", "hash", hash)
		}
	}
}

// run is the single consumer loop. Intended to be launched once as its own
// goroutine for the lifetime of the cache.
func (e *executor[K, V]) run() {
	defer close(e.done)
	for {
		select {
		case cmd := <-e.queue:
			e.apply(cmd)
		case <-e.stop:
			e.drainRemaining()
			return
		}
	}
}

// drainRemaining resolves every command still sitting in the queue as
// ShuttingDown without applying it, so no waiter blocks forever on Close.
func (e *executor[K, V]) drainRemaining() {
	for {
		select {
		case cmd := <-e.queue:
			if cmd.ack != nil {
				cmd.ack.resolve(AckShuttingDown, NewErrShuttingDown(fmt.Sprintf("%v", cmd.key)))
			}
		default:
			return
		}
	}
}

// Close begins shutdown: the run loop stops accepting new work after
// draining what's already queued, and every subsequent submit fails
// synchronously.
func (e *executor[K, V]) Close() {
	if e.closed.CompareAndSwap(false, true) {
		close(e.stop)
	}
	<-e.done
}

// apply dispatches one command. A panic out of user code reached from here
// (an Upsert UpdateFn, a WeightFn weighing an upserted value, an OnEvict or
// OnExpire callback) is confined to the offending command: it resolves
// Rejected with the captured panic and the loop moves on to the next
// command.
func (e *executor[K, V]) apply(cmd *command[K, V]) {
	defer func() {
		if r := recover(); r != nil {
			if e.logger != nil {
				e.logger.Error("panic applying command", "panic", r)
			}
			if cmd.ack != nil {
				cmd.ack.resolve(Rejected, NewErrPanicRecovered(fmt.Sprintf("apply:%v", cmd.key), r))
			}
		}
	}()
	switch cmd.kind {
	case cmdPut:
		e.applyPut(cmd)
	case cmdUpsert:
		e.applyUpsert(cmd)
	case cmdDelete:
		e.applyDelete(cmd)
	case cmdExpire:
		e.applyExpire(cmd)
	}
}

// toCandidates re-estimates frequency for each sampled occupant at decision
// time, since the sketch may have moved since the ledger was sampled.
func (e *executor[K, V]) toCandidates(samples []victimSample[K]) []candidate {
	out := make([]candidate, len(samples))
	for i, s := range samples {
		out[i] = candidate{Hash: s.Hash, Weight: s.Weight, Estimate: e.sketch.Estimate(s.Hash)}
	}
	return out
}

// removeVictim deletes one admitted-eviction victim from the store, cancels
// its TTL slot, releases its weight and notifies the configured callback.
func (e *executor[K, V]) removeVictim(key K, hash uint64) {
	stored, ok := e.store.Delete(key, hash)
	if !ok {
		return
	}
	if stored.hasTTL() {
		e.ttl.Cancel(stored.ttlID)
	}
	e.policy.Release(hash)
	e.stats.RecordEvicted()
	e.metrics.RecordEviction()
	if e.onEvict != nil {
		e.onEvict(key, stored.value)
	}
}

// evictVictims maps the policy's chosen victims (identified by hash) back to
// the concrete keys the store reported them under, and removes each one.
func (e *executor[K, V]) evictVictims(evicted []candidate, samples []victimSample[K]) {
	for _, v := range evicted {
		for _, s := range samples {
			if s.Hash == v.Hash {
				e.removeVictim(s.Key, s.Hash)
				break
			}
		}
	}
}

func (e *executor[K, V]) applyPut(cmd *command[K, V]) {
	if existing := e.store.Lookup(cmd.key, cmd.hash); existing.Found {
		// A Put over a live key is a replacement, not a second admission:
		// only the weight delta is charged against capacity, so the ledger
		// stays equal to the sum of live entry weights.
		e.applyReplace(cmd, existing)
		return
	}

	estimate := e.sketch.Estimate(cmd.hash) + 1 // the request itself counts as an access
	samples := e.policy.Sample(e.sampleSize, 0, false)
	dec := e.policy.Decide(cmd.weight, estimate, e.toCandidates(samples))

	if !dec.admit {
		e.stats.RecordRejected()
		e.metrics.RecordRejection()
		if cmd.ack != nil {
			cmd.ack.resolve(Rejected, NewErrRejected(fmt.Sprintf("%v", cmd.key)))
		}
		return
	}

	e.evictVictims(dec.evict, samples)

	entry := &storedEntry[V]{value: cmd.value, hash: cmd.hash, weight: cmd.weight}
	if cmd.hasTTL {
		entry.ttlID = e.ttl.Schedule(cmd.hash, cmd.ttl)
		entry.expireAt = cmd.expireAt
	}
	e.store.Put(cmd.key, entry)
	e.policy.Admit(cmd.key, cmd.hash, cmd.weight)
	e.stats.RecordAdded()
	if cmd.ack != nil {
		cmd.ack.resolve(Accepted, nil)
	}
}

// applyReplace overwrites a live entry in place for a Put addressed to an
// existing key. A weight increase must pass the same delta admission check an
// Upsert would; a decrease applies unconditionally. The old entry survives
// untouched when the increase is rejected.
func (e *executor[K, V]) applyReplace(cmd *command[K, V], existing entryView[V]) {
	delta := cmd.weight - existing.Weight
	if delta > 0 {
		estimate := e.sketch.Estimate(cmd.hash) + 1
		samples := e.policy.Sample(e.sampleSize, cmd.hash, true)
		dec := e.policy.Decide(delta, estimate, e.toCandidates(samples))
		if !dec.admit {
			e.stats.RecordRejected()
			e.metrics.RecordRejection()
			if cmd.ack != nil {
				cmd.ack.resolve(Rejected, NewErrRejected(fmt.Sprintf("%v", cmd.key)))
			}
			return
		}
		e.evictVictims(dec.evict, samples)
	}
	if delta != 0 {
		e.policy.AdjustWeight(cmd.hash, delta)
	}

	if existing.TTLID != 0 {
		e.ttl.Cancel(existing.TTLID)
	}
	entry := &storedEntry[V]{value: cmd.value, hash: cmd.hash, weight: cmd.weight}
	if cmd.hasTTL {
		entry.ttlID = e.ttl.Schedule(cmd.hash, cmd.ttl)
		entry.expireAt = cmd.expireAt
	}
	e.store.Put(cmd.key, entry)
	e.stats.RecordUpdated()
	if cmd.ack != nil {
		cmd.ack.resolve(Accepted, nil)
	}
}

func (e *executor[K, V]) applyUpsert(cmd *command[K, V]) {
	existing := e.store.Lookup(cmd.key, cmd.hash)

	if !existing.Found {
		var v V
		if cmd.upsert.hasValue {
			v = cmd.upsert.value
		} else if cmd.upsert.updateFn != nil {
			v = cmd.upsert.updateFn(v, false)
		}

		weight := cmd.upsert.weight
		if !cmd.upsert.hasWeight {
			weight = e.weightFn(cmd.key, v, cmd.upsert.hasTTL)
		}

		e.applyPut(&command[K, V]{
			kind: cmdPut, key: cmd.key, hash: cmd.hash, value: v,
			weight: weight, ttl: cmd.upsert.ttl, expireAt: cmd.upsert.expireAt,
			hasTTL: cmd.upsert.hasTTL, ack: cmd.ack,
		})
		return
	}

	newWeight := existing.Weight
	if cmd.upsert.hasWeight && cmd.upsert.weight != existing.Weight {
		delta := cmd.upsert.weight - existing.Weight
		if delta > 0 {
			estimate := e.sketch.Estimate(cmd.hash) + 1
			samples := e.policy.Sample(e.sampleSize, cmd.hash, true)
			dec := e.policy.Decide(delta, estimate, e.toCandidates(samples))
			if !dec.admit {
				e.stats.RecordRejected()
				e.metrics.RecordRejection()
				if cmd.ack != nil {
					cmd.ack.resolve(Rejected, NewErrRejected(fmt.Sprintf("%v", cmd.key)))
				}
				return
			}
			e.evictVictims(dec.evict, samples)
			e.policy.AdjustWeight(cmd.hash, delta)
		} else {
			// Weight reduction applies unconditionally: a shrinking entry
			// can never make the ledger overweight.
			e.policy.AdjustWeight(cmd.hash, delta)
		}
		newWeight = cmd.upsert.weight
	}

	newValue := existing.Value
	if cmd.upsert.hasValue {
		newValue = cmd.upsert.value
	} else if cmd.upsert.updateFn != nil {
		newValue = cmd.upsert.updateFn(existing.Value, true)
	}

	newTTLID := existing.TTLID
	newExpireAt := existing.ExpireAt
	switch {
	case cmd.upsert.clearTTL:
		if existing.TTLID != 0 {
			e.ttl.Cancel(existing.TTLID)
		}
		newTTLID, newExpireAt = 0, 0
	case cmd.upsert.hasTTL:
		if existing.TTLID != 0 {
			e.ttl.Cancel(existing.TTLID)
		}
		newTTLID = e.ttl.Schedule(cmd.hash, cmd.upsert.ttl)
		newExpireAt = cmd.upsert.expireAt
	}

	e.store.Put(cmd.key, &storedEntry[V]{
		value: newValue, hash: cmd.hash, weight: newWeight,
		ttlID: newTTLID, expireAt: newExpireAt,
	})
	e.stats.RecordUpdated()
	if cmd.ack != nil {
		cmd.ack.resolve(Accepted, nil)
	}
}

func (e *executor[K, V]) applyDelete(cmd *command[K, V]) {
	stored, ok := e.store.Delete(cmd.key, cmd.hash)
	if ok {
		if stored.hasTTL() {
			e.ttl.Cancel(stored.ttlID)
		}
		e.policy.Release(cmd.hash)
		e.stats.RecordDeleted()
	}
	// Idempotent: deleting an absent key still resolves Done.
	if cmd.ack != nil {
		cmd.ack.resolve(Done, nil)
	}
}

// applyExpire is the synthetic Delete the TTL sweeper routes through the
// same single-writer path as any other mutation, keeping weight accounting
// and stats consistent with every other removal.
func (e *executor[K, V]) applyExpire(cmd *command[K, V]) {
	key, value, _, ok := e.store.DeleteExpired(cmd.hash, cmd.ttlID)
	if !ok {
		return
	}
	e.policy.Release(cmd.hash)
	e.stats.RecordDeleted()
	e.metrics.RecordExpiration()
	if e.onExpire != nil {
		e.onExpire(key, value)
	}
}
