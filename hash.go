// hash.go: pluggable key hashing for scintilla
//
// Copyright (c) 2025 Vektra Labs
// SPDX-License-Identifier: MPL-2.0
package scintilla

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Hasher computes the 64-bit digest scintilla uses for sharding, frequency
// estimation and TTL bucketing. Implementations must be deterministic and
// safe for concurrent use.
type Hasher[K comparable] interface {
	Hash(key K) uint64
}

// defaultHasher hashes the common key shapes, strings and int, int32,
// int64, uint32 and uint64, without heap allocation, and falls back to fmt
// formatting (which does allocate) for anything else, other integer types
// included. It is the zero-value
// Hasher used when a Config doesn't supply one.
type defaultHasher[K comparable] struct{}

func (defaultHasher[K]) Hash(key K) uint64 {
	switch k := any(key).(type) {
	case string:
		return xxhash.Sum64String(k)
	case int:
		return sumUint64(uint64(k))
	case int32:
		return sumUint64(uint64(k))
	case int64:
		return sumUint64(uint64(k))
	case uint32:
		return sumUint64(uint64(k))
	case uint64:
		return sumUint64(k)
	default:
		return xxhash.Sum64String(fmt.Sprintf("%v", k))
	}
}

// sumUint64 digests an integer through its 8-byte little-endian encoding.
// The buffer is a stack array, so the integer families never touch the heap.
func sumUint64(v uint64) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return xxhash.Sum64(b[:])
}
