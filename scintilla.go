// scintilla.go: package-wide version and default tuning constants
//
// Copyright (c) 2025 Vektra Labs
// SPDX-License-Identifier: MPL-2.0

package scintilla

const (
	// Version of the scintilla cache library.
	Version = "v0.1.0-dev"

	// DefaultCapacity is the default entry-count sizing hint, and the value
	// Counters and CacheWeight fall back to when left unset.
	DefaultCapacity = 10_000

	// DefaultCounterBits is the number of bits per counter in the frequency sketch.
	DefaultCounterBits = 4

	// DefaultSampleSize is the number of victim candidates sampled on admission.
	DefaultSampleSize = 5

	// DefaultCommandBufferSize is the depth of the single-writer command queue.
	DefaultCommandBufferSize = 2048

	// DefaultAccessBufferSize is the depth of the lossy access log.
	DefaultAccessBufferSize = 4096
)
