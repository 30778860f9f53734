// storexsync_test.go: unit tests for the xsync-backed store
//
// Copyright (c) 2025 Vektra Labs
// SPDX-License-Identifier: MPL-2.0

package scintilla

import "testing"

func TestXSyncStoreImplementsMapContract(t *testing.T) {
	var s Map[string, int] = newXSyncStore[string, int](0)

	s.Put("a", &storedEntry[int]{value: 1, hash: 11, weight: 2})
	s.Put("b", &storedEntry[int]{value: 2, hash: 12, weight: 3})

	view := s.Lookup("a", 11)
	if !view.Found || view.Value != 1 || view.Weight != 2 {
		t.Fatalf("unexpected view: %+v", view)
	}
	if !s.Has("b", 12) {
		t.Fatal("expected Has to report b")
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", s.Len())
	}

	removed, ok := s.Delete("a", 11)
	if !ok || removed.value != 1 {
		t.Fatalf("expected to remove a, got %+v ok=%v", removed, ok)
	}

	s.Clear()
	if s.Len() != 0 {
		t.Fatalf("expected empty store after Clear, got %d", s.Len())
	}
}

func TestXSyncStoreGetRefIsReleasable(t *testing.T) {
	s := newXSyncStore[string, int](0)
	s.Put("a", &storedEntry[int]{value: 9, hash: 3, weight: 1})

	ref, ok := s.GetRef("a", 3)
	if !ok || ref.Value() != 9 {
		t.Fatalf("expected 9, got ok=%v", ok)
	}
	ref.Release()
	ref.Release() // idempotent even though there is no lock behind it
}

func TestXSyncStoreDeleteExpiredScansForTTLID(t *testing.T) {
	s := newXSyncStore[string, int](0)
	s.Put("a", &storedEntry[int]{value: 1, hash: 7, weight: 2, ttlID: 5, expireAt: 1})
	s.Put("b", &storedEntry[int]{value: 2, hash: 8, weight: 1})

	if _, _, _, ok := s.DeleteExpired(7, 6); ok {
		t.Fatal("expected a mismatched ttlID to be ignored")
	}

	key, value, weight, ok := s.DeleteExpired(7, 5)
	if !ok || key != "a" || value != 1 || weight != 2 {
		t.Fatalf("unexpected result: key=%v value=%v weight=%d ok=%v", key, value, weight, ok)
	}
	if s.Has("a", 7) {
		t.Fatal("expected a to be gone")
	}
	if !s.Has("b", 8) {
		t.Fatal("expected b to survive")
	}
}

func TestCacheWithXSyncBackendRoundTrips(t *testing.T) {
	cfg := DefaultConfig[string, string]()
	cfg.Capacity = 100
	cfg.MapBackend = XSync
	c, err := New[string, string](cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	if state, _ := c.Put("key", "value").Wait(); state != Accepted {
		t.Fatalf("expected Accepted, got %v", state)
	}
	value, found := c.Get("key")
	if !found || value != "value" {
		t.Fatalf("expected value, got %v found=%v", value, found)
	}

	if state, _ := c.Delete("key").Wait(); state != Done {
		t.Fatalf("expected Done, got %v", state)
	}
	if _, found := c.Get("key"); found {
		t.Fatal("expected miss after delete")
	}
}
