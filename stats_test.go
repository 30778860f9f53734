// stats_test.go: unit tests for the counter bank
//
// Copyright (c) 2025 Vektra Labs
// SPDX-License-Identifier: MPL-2.0

package scintilla

import (
	"strings"
	"testing"
)

func TestStatsRecorderCounters(t *testing.T) {
	s := newStatsRecorder()

	s.RecordHit()
	s.RecordHit()
	s.RecordMiss()
	s.RecordAdded()
	s.RecordUpdated()
	s.RecordDeleted()
	s.RecordRejected()
	s.RecordEvicted()

	snap := s.Snapshot()
	want := StatsSummary{Hits: 2, Misses: 1, Added: 1, Updated: 1, Deleted: 1, Rejected: 1, Evicted: 1}
	if snap != want {
		t.Fatalf("expected %+v, got %+v", want, snap)
	}
}

func TestStatsSummaryHitRatio(t *testing.T) {
	cases := []struct {
		summary StatsSummary
		want    float64
	}{
		{StatsSummary{}, 0},
		{StatsSummary{Hits: 3, Misses: 1}, 0.75},
		{StatsSummary{Hits: 0, Misses: 5}, 0},
		{StatsSummary{Hits: 5, Misses: 0}, 1},
	}
	for _, c := range cases {
		if got := c.summary.HitRatio(); got != c.want {
			t.Errorf("HitRatio(%+v) = %f, want %f", c.summary, got, c.want)
		}
	}
}

func TestStatsSummaryString(t *testing.T) {
	s := StatsSummary{Hits: 1234567, Misses: 3, Added: 2, Updated: 1, Deleted: 1, Rejected: 1, Evicted: 1}
	got := s.String()

	if !strings.Contains(got, "hits=1,234,567") {
		t.Errorf("String() = %q, want comma-grouped hits count", got)
	}
	if !strings.Contains(got, "hit_ratio=") {
		t.Errorf("String() = %q, want a hit_ratio field", got)
	}
}
