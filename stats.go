// stats.go: counter bank for cache operation outcomes
//
// Copyright (c) 2025 Vektra Labs
// SPDX-License-Identifier: MPL-2.0

package scintilla

import (
	"fmt"
	"sync/atomic"

	"github.com/dustin/go-humanize"
)

// StatsRecorder is a fixed bank of atomic counters. It never
// blocks and never allocates on the hot path; every field is bumped with a
// single atomic add.
type StatsRecorder struct {
	hits     int64
	misses   int64
	added    int64
	updated  int64
	deleted  int64
	rejected int64
	evicted  int64
}

func newStatsRecorder() *StatsRecorder { return &StatsRecorder{} }

func (s *StatsRecorder) RecordHit()      { atomic.AddInt64(&s.hits, 1) }
func (s *StatsRecorder) RecordMiss()     { atomic.AddInt64(&s.misses, 1) }
func (s *StatsRecorder) RecordAdded()    { atomic.AddInt64(&s.added, 1) }
func (s *StatsRecorder) RecordUpdated()  { atomic.AddInt64(&s.updated, 1) }
func (s *StatsRecorder) RecordDeleted()  { atomic.AddInt64(&s.deleted, 1) }
func (s *StatsRecorder) RecordRejected() { atomic.AddInt64(&s.rejected, 1) }
func (s *StatsRecorder) RecordEvicted()  { atomic.AddInt64(&s.evicted, 1) }

// StatsSummary is an immutable snapshot of a StatsRecorder taken at a point
// in time. Fields never change after construction.
type StatsSummary struct {
	Hits     int64
	Misses   int64
	Added    int64
	Updated  int64
	Deleted  int64
	Rejected int64
	Evicted  int64
}

// HitRatio returns Hits / (Hits + Misses), or 0 when there have been no
// reads at all.
func (s StatsSummary) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// String renders a human-readable one-line summary, handy for log lines
// and diagnostic output: request counts are comma-grouped the way
// go-humanize formats them for any other operational counter.
func (s StatsSummary) String() string {
	return fmt.Sprintf(
		"hits=%s misses=%s hit_ratio=%.2f%% added=%s updated=%s deleted=%s rejected=%s evicted=%s",
		humanize.Comma(s.Hits), humanize.Comma(s.Misses), s.HitRatio()*100,
		humanize.Comma(s.Added), humanize.Comma(s.Updated), humanize.Comma(s.Deleted),
		humanize.Comma(s.Rejected), humanize.Comma(s.Evicted),
	)
}

// Snapshot takes a consistent-enough read of every counter. Individual
// fields may be a few increments stale relative to each other since there is
// no global barrier across them; concurrent observers of metadata get no
// stronger guarantee anywhere else in the cache either.
func (s *StatsRecorder) Snapshot() StatsSummary {
	return StatsSummary{
		Hits:     atomic.LoadInt64(&s.hits),
		Misses:   atomic.LoadInt64(&s.misses),
		Added:    atomic.LoadInt64(&s.added),
		Updated:  atomic.LoadInt64(&s.updated),
		Deleted:  atomic.LoadInt64(&s.deleted),
		Rejected: atomic.LoadInt64(&s.rejected),
		Evicted:  atomic.LoadInt64(&s.evicted),
	}
}
