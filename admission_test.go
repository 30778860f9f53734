// admission_test.go: unit tests for the weight ledger and eviction decisions
//
// Copyright (c) 2025 Vektra Labs
// SPDX-License-Identifier: MPL-2.0

package scintilla

import "testing"

func TestAdmissionPolicyAdmitAdjustRelease(t *testing.T) {
	p := newAdmissionPolicy[string](100, 5)
	if p.UsedWeight() != 0 {
		t.Fatalf("expected 0 used weight, got %d", p.UsedWeight())
	}

	p.Admit("a", 1, 40)
	if p.UsedWeight() != 40 {
		t.Fatalf("expected 40 used weight, got %d", p.UsedWeight())
	}

	if !p.AdjustWeight(1, -15) {
		t.Fatal("expected AdjustWeight to find the admitted entry")
	}
	if p.UsedWeight() != 25 {
		t.Fatalf("expected 25 used weight, got %d", p.UsedWeight())
	}

	weight, ok := p.Release(1)
	if !ok || weight != 25 {
		t.Fatalf("expected release of weight 25, got %d ok=%v", weight, ok)
	}
	if p.UsedWeight() != 0 {
		t.Fatalf("expected 0 used weight after release, got %d", p.UsedWeight())
	}
	if _, ok := p.Release(1); ok {
		t.Fatal("expected a second release of the same hash to report false")
	}
}

func TestAdmissionPolicySampleExcludesHash(t *testing.T) {
	p := newAdmissionPolicy[string](100, 5)
	p.Admit("a", 1, 10)
	p.Admit("b", 2, 10)

	samples := p.Sample(5, 1, true)
	for _, s := range samples {
		if s.Hash == 1 {
			t.Fatal("expected the excluded hash to never be sampled")
		}
	}
	if len(samples) != 1 || samples[0].Hash != 2 {
		t.Fatalf("expected exactly hash 2 sampled, got %+v", samples)
	}
}

func TestAdmissionPolicySampleDrawsFromWholeLedgerRegardlessOfShard(t *testing.T) {
	// Ledger-wide sampling is what lets eviction work even when every
	// admitted key happens to land in a different store shard: the policy
	// never consults the store's partitioning at all.
	p := newAdmissionPolicy[string](100, 5)
	for i := uint64(0); i < 8; i++ {
		p.Admit("k", i, 1)
	}

	samples := p.Sample(8, 0, false)
	if len(samples) != 8 {
		t.Fatalf("expected all 8 ledger entries sampled, got %d", len(samples))
	}
}

func TestAdmissionDecideRoomAvailable(t *testing.T) {
	p := newAdmissionPolicy[string](100, 5)
	p.Admit("a", 1, 50)

	dec := p.Decide(10, 1, nil)
	if !dec.admit {
		t.Fatal("expected admission when room is available")
	}
	if len(dec.evict) != 0 {
		t.Fatalf("expected no evictions, got %d", len(dec.evict))
	}
}

func TestAdmissionDecideRejectsOverCapacityCandidate(t *testing.T) {
	p := newAdmissionPolicy[string](10, 5)
	dec := p.Decide(11, 1000, nil)
	if dec.admit {
		t.Fatal("expected rejection for a candidate heavier than total capacity")
	}
}

func TestAdmissionDecideRejectsWhenNoVictims(t *testing.T) {
	p := newAdmissionPolicy[string](10, 5)
	p.Admit("a", 1, 10)

	dec := p.Decide(5, 100, nil)
	if dec.admit {
		t.Fatal("expected rejection when the ledger is full and no victims are offered")
	}
}

func TestAdmissionDecideRejectsOnTie(t *testing.T) {
	p := newAdmissionPolicy[string](10, 5)
	p.Admit("a", 1, 10)

	victims := []candidate{{Hash: 1, Weight: 10, Estimate: 5}}
	dec := p.Decide(5, 5, victims)
	if dec.admit {
		t.Fatal("expected rejection when candidate estimate ties the weakest victim")
	}
}

func TestAdmissionDecideEvictsWeakerVictim(t *testing.T) {
	p := newAdmissionPolicy[string](10, 5)
	p.Admit("a", 1, 10)

	victims := []candidate{
		{Hash: 1, Weight: 10, Estimate: 1},
		{Hash: 2, Weight: 10, Estimate: 50},
	}
	dec := p.Decide(5, 10, victims)
	if !dec.admit {
		t.Fatal("expected admission by evicting the weaker victim")
	}
	if len(dec.evict) != 1 || dec.evict[0].Hash != 1 {
		t.Fatalf("expected exactly victim 1 evicted, got %+v", dec.evict)
	}
}

func TestAdmissionDecideEvictsMultipleVictimsForLargeCandidate(t *testing.T) {
	p := newAdmissionPolicy[string](10, 5)
	p.Admit("a", 1, 10)

	victims := []candidate{
		{Hash: 1, Weight: 3, Estimate: 1},
		{Hash: 2, Weight: 3, Estimate: 2},
		{Hash: 3, Weight: 3, Estimate: 100},
	}
	dec := p.Decide(5, 50, victims)
	if !dec.admit {
		t.Fatal("expected admission by evicting enough weaker victims to reclaim the weight")
	}
	if len(dec.evict) != 2 {
		t.Fatalf("expected 2 victims evicted to reclaim 6 >= 5 weight, got %+v", dec.evict)
	}
}

func TestAdmissionDecideRejectsWhenReclaimInsufficient(t *testing.T) {
	p := newAdmissionPolicy[string](10, 5)
	p.Admit("a", 1, 10)

	victims := []candidate{
		{Hash: 1, Weight: 1, Estimate: 1},
	}
	dec := p.Decide(5, 10, victims)
	if dec.admit {
		t.Fatal("expected rejection when evicting every weaker victim still can't reclaim enough weight")
	}
}

func TestInsertionSortByEstimate(t *testing.T) {
	c := []candidate{
		{Hash: 1, Estimate: 5},
		{Hash: 2, Estimate: 1},
		{Hash: 3, Estimate: 3},
	}
	insertionSortByEstimate(c)

	want := []uint64{1, 3, 5}
	for i, v := range c {
		if v.Estimate != want[i] {
			t.Fatalf("position %d: expected estimate %d, got %d", i, want[i], v.Estimate)
		}
	}
}
