// clock_test.go: deterministic Clock for time-dependent tests
//
// Copyright (c) 2025 Vektra Labs
// SPDX-License-Identifier: MPL-2.0

package scintilla

import (
	"sync/atomic"
	"time"
)

// manualClock is a Clock whose Now() only changes when Advance is called,
// letting TTL and negative-cache tests exercise expiry deterministically
// instead of racing against wall-clock sleeps.
type manualClock struct {
	nanos int64
}

func newManualClock(start int64) *manualClock {
	return &manualClock{nanos: start}
}

func (c *manualClock) Now() int64 { return atomic.LoadInt64(&c.nanos) }

func (c *manualClock) Advance(d time.Duration) {
	atomic.AddInt64(&c.nanos, d.Nanoseconds())
}
