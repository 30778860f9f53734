// storexsync.go: xsync-backed alternative store implementation
//
// Copyright (c) 2025 Vektra Labs
// SPDX-License-Identifier: MPL-2.0

package scintilla

import (
	"github.com/puzpuzpuz/xsync/v4"
)

// XSyncStore is an alternative Map backend built on xsync.Map, which uses
// per-bucket sequence locks instead of a single RWMutex per shard. It tends
// to win on read-heavy workloads with many shards contending on the same
// few hot keys; Store is the right default otherwise.
type XSyncStore[K comparable, V any] struct {
	m *xsync.Map[K, *storedEntry[V]]
}

func newXSyncStore[K comparable, V any](sizeHint int) *XSyncStore[K, V] {
	if sizeHint < 1 {
		sizeHint = DefaultCapacity
	}
	return &XSyncStore[K, V]{
		m: xsync.NewMap[K, *storedEntry[V]](xsync.WithPresize(sizeHint)),
	}
}

func (s *XSyncStore[K, V]) Lookup(key K, _ uint64) entryView[V] {
	e, ok := s.m.Load(key)
	if !ok {
		return entryView[V]{}
	}
	return entryView[V]{Value: e.value, Weight: e.weight, TTLID: e.ttlID, ExpireAt: e.expireAt, Found: true}
}

func (s *XSyncStore[K, V]) GetRef(key K, _ uint64) (*Ref[V], bool) {
	e, ok := s.m.Load(key)
	if !ok {
		return nil, false
	}
	// xsync.Map has no per-key lock to hold; the Ref still gives callers a
	// uniform API, it just has nothing to release.
	return &Ref[V]{value: e.value, release: func() {}}, true
}

func (s *XSyncStore[K, V]) Has(key K, _ uint64) bool {
	_, ok := s.m.Load(key)
	return ok
}

func (s *XSyncStore[K, V]) Put(key K, e *storedEntry[V]) {
	s.m.Store(key, e)
}

func (s *XSyncStore[K, V]) Delete(key K, _ uint64) (*storedEntry[V], bool) {
	e, ok := s.m.LoadAndDelete(key)
	return e, ok
}

// DeleteExpired scans every occupant for a matching hash+ttlID pair. xsync.Map
// has no shard-local view to confine the scan to, unlike Store; this is the
// cost of the lock-free backend's simpler structure and is only paid on TTL
// sweeps, not on the read/write hot path.
func (s *XSyncStore[K, V]) DeleteExpired(hash uint64, ttlID uint64) (key K, value V, weight int64, ok bool) {
	s.m.Range(func(k K, e *storedEntry[V]) bool {
		if e.hash == hash && e.ttlID == ttlID && e.hasTTL() {
			key, value, weight, ok = k, e.value, e.weight, true
			return false
		}
		return true
	})
	if ok {
		s.m.Delete(key)
	}
	return
}

func (s *XSyncStore[K, V]) Len() int {
	return s.m.Size()
}

func (s *XSyncStore[K, V]) Clear() {
	s.m.Clear()
}
