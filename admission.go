// admission.go: weight ledger and TinyLFU admission/eviction decisions
//
// Copyright (c) 2025 Vektra Labs
// SPDX-License-Identifier: MPL-2.0

package scintilla

import "sync/atomic"

// candidate describes one sampled occupant considered as an eviction victim.
// Hash and Weight are enough for the policy to reason about; the executor
// maps the winning candidates back to concrete keys for deletion.
type candidate struct {
	Hash     uint64
	Weight   int64
	Estimate uint64
}

// victimSample is a live ledger entry as seen from outside the policy: it
// carries the concrete key back to the executor so a winning eviction
// decision can be applied with a normal store Delete.
type victimSample[K comparable] struct {
	Key    K
	Hash   uint64
	Weight int64
}

// admissionPolicy tracks admitted weight against a capacity via a ledger of
// key_id -> weight, not just a running total, so victim
// sampling can draw from every admitted key instead of whichever shard a
// write candidate happens to land in. The shape follows dgraph-io/ristretto's
// defaultPolicy.Add (room, then sample, then compare, then evict), with a
// real per-key ledger in place of ristretto's sketch-only accounting.
//
// Only the single command executor goroutine ever calls Admit, Release,
// AdjustWeight or Sample; UsedWeight and Capacity are safe to call from any
// goroutine since they only touch the atomic total.
type admissionPolicy[K comparable] struct {
	capacity   int64
	sampleSize int

	usedWeight int64 // atomic, kept equal to the sum of ledger weights

	ledger map[uint64]victimSample[K]
}

func newAdmissionPolicy[K comparable](capacity int64, sampleSize int) *admissionPolicy[K] {
	return &admissionPolicy[K]{
		capacity:   capacity,
		sampleSize: sampleSize,
		ledger:     make(map[uint64]victimSample[K]),
	}
}

// UsedWeight returns the currently admitted total weight.
func (p *admissionPolicy[K]) UsedWeight() int64 {
	return atomic.LoadInt64(&p.usedWeight)
}

// Capacity returns the configured maximum total weight.
func (p *admissionPolicy[K]) Capacity() int64 {
	return p.capacity
}

func (p *admissionPolicy[K]) roomLeft(weight int64) bool {
	return atomic.LoadInt64(&p.usedWeight)+weight <= p.capacity
}

// Admit records key/hash as newly admitted with the given weight, entering
// it into the ledger and accounting its weight against the total. Overwrites
// any stale ledger entry already sitting under the same hash.
func (p *admissionPolicy[K]) Admit(key K, hash uint64, weight int64) {
	p.ledger[hash] = victimSample[K]{Key: key, Hash: hash, Weight: weight}
	atomic.AddInt64(&p.usedWeight, weight)
}

// Release removes hash from the ledger, for an eviction, expiration or
// delete, and accounts the weight it freed. Reports whether hash was present.
func (p *admissionPolicy[K]) Release(hash uint64) (weight int64, ok bool) {
	e, ok := p.ledger[hash]
	if !ok {
		return 0, false
	}
	delete(p.ledger, hash)
	atomic.AddInt64(&p.usedWeight, -e.Weight)
	return e.Weight, true
}

// AdjustWeight applies delta to hash's existing ledger entry in place, for an
// Upsert that changes a live key's weight without removing it. Reports
// whether hash was present.
func (p *admissionPolicy[K]) AdjustWeight(hash uint64, delta int64) bool {
	e, ok := p.ledger[hash]
	if !ok {
		return false
	}
	e.Weight += delta
	p.ledger[hash] = e
	atomic.AddInt64(&p.usedWeight, delta)
	return true
}

// Sample returns up to n ledger entries as eviction candidates, drawn from
// across the whole cache rather than any one shard, optionally excluding one
// hash (a key under a weight-increasing Upsert can't evict itself to make
// room for its own increase). Go's randomized map iteration order gives the
// uniform-ish sampling the admission policy wants without a dedicated RNG.
func (p *admissionPolicy[K]) Sample(n int, excludeHash uint64, hasExclude bool) []victimSample[K] {
	if n <= 0 || len(p.ledger) == 0 {
		return nil
	}
	out := make([]victimSample[K], 0, n)
	for h, e := range p.ledger {
		if hasExclude && h == excludeHash {
			continue
		}
		out = append(out, e)
		if len(out) >= n {
			break
		}
	}
	return out
}

// decision is the outcome of evaluating a write candidate against the
// admission policy.
type decision struct {
	admit bool
	evict []candidate // victims to remove to make room, empty if none needed
}

// Decide evaluates whether a candidate of the given weight and estimated
// frequency should be admitted, sampling from the supplied victim pool when
// the ledger has no room left. Ties favor the incumbents: a candidate must
// have a strictly greater estimate than every victim it displaces to be
// admitted.
func (p *admissionPolicy[K]) Decide(candidateWeight int64, candidateEstimate uint64, victims []candidate) decision {
	if candidateWeight > p.capacity {
		return decision{admit: false}
	}

	if p.roomLeft(candidateWeight) {
		return decision{admit: true}
	}

	if len(victims) == 0 {
		return decision{admit: false}
	}

	sorted := make([]candidate, len(victims))
	copy(sorted, victims)
	insertionSortByEstimate(sorted)

	if candidateEstimate <= sorted[0].Estimate {
		return decision{admit: false}
	}

	var reclaimable int64
	evict := make([]candidate, 0, len(sorted))
	for _, v := range sorted {
		if v.Estimate >= candidateEstimate {
			break
		}
		evict = append(evict, v)
		reclaimable += v.Weight
		if reclaimable >= candidateWeight {
			return decision{admit: true, evict: evict}
		}
	}

	return decision{admit: false}
}

// insertionSortByEstimate sorts small victim slices ascending by estimate.
// sampleSize is a handful of elements (default 5), so insertion sort avoids
// pulling in sort.Slice's reflection-based comparator for no real benefit.
func insertionSortByEstimate(c []candidate) {
	for i := 1; i < len(c); i++ {
		v := c[i]
		j := i - 1
		for j >= 0 && c[j].Estimate > v.Estimate {
			c[j+1] = c[j]
			j--
		}
		c[j+1] = v
	}
}
