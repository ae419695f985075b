// Copyright (c) 2023, The SPLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package unitmap converts between the several parallel index spaces of one
// utterance: phone index, acoustic-unit index (with half-phone doubling),
// global frame index, and duration-state index.
package unitmap

import (
	"fmt"

	"github.com/splab/unitfeat/phoneset"
	"github.com/splab/unitfeat/utterance"
)

// Mapper answers index-space conversion queries against one utterance
// snapshot. The NUS boundary map is keyed by phone index so identity does
// not depend on pointer values.
type Mapper struct {
	Utt       *utterance.Utterance
	Set       *phoneset.Set
	NusStarts map[int]*utterance.NusUnit `desc:"first-child phone index to NUS unit"`
}

// NewMapper precomputes the NUS boundary map for the utterance.
func NewMapper(utt *utterance.Utterance, set *phoneset.Set) *Mapper {
	mp := &Mapper{Utt: utt, Set: set, NusStarts: make(map[int]*utterance.NusUnit)}
	for _, nus := range utt.NusUnits {
		mp.NusStarts[nus.FirstPhone] = nus
	}
	return mp
}

// UnitRange returns the global frame range [start, start+count) of the unit.
func (mp *Mapper) UnitRange(unitIndex int) (startFrame, frameCount int) {
	u := mp.Utt.Units[unitIndex]
	return u.StartFrame, u.FrameCount
}

// NusStart returns the NUS unit whose run starts at the given phone, if any.
func (mp *Mapper) NusStart(phoneIndex int) (*utterance.NusUnit, bool) {
	nus, ok := mp.NusStarts[phoneIndex]
	return nus, ok
}

// UnitsForPhone is the half-phone doubling rule: a silence phone consumes
// one unit slot, every other phone consumes two (left half, right half).
func (mp *Mapper) UnitsForPhone(phoneIndex int) int {
	if mp.Set.IsSilence(mp.Utt.Phones[phoneIndex].Pron) {
		return 1
	}
	return 2
}

// CheckUnitFrames verifies that the duration row of a unit sums to the frame
// count the unit table reports. A mismatch means the upstream data is
// corrupt, and continuing would export wrong numbers silently, so it panics.
func (mp *Mapper) CheckUnitFrames(unitIndex int) {
	u := mp.Utt.Units[unitIndex]
	sum := 0
	for s := 0; s < mp.Utt.Durations.Dim(1); s++ {
		sum += int(mp.Utt.Durations.Value([]int{unitIndex, s}))
	}
	if sum != u.FrameCount {
		panic(fmt.Sprintf("unitmap: unit %d (%s) duration states sum to %d but frame count is %d",
			unitIndex, u.Name, sum, u.FrameCount))
	}
}

// Run is a contiguous run of phones exported as one item: either one NUS
// grouping or a single phone that starts no grouping.
type Run struct {
	Name       string
	FirstPhone int
	LastPhone  int
	StartUnit  int
	UnitCount  int
	Nus        *utterance.NusUnit `desc:"nil for a plain single-phone run"`
}

// Runs partitions the utterance's phones into runs, tracking the unit
// cursor through the half-phone doubling as it goes. A phone that neither
// starts a NUS grouping nor is silence is a 1-phone run of two unit slots.
func (mp *Mapper) Runs() []Run {
	var runs []Run
	unit := 0
	for p := 0; p < len(mp.Utt.Phones); {
		last := p
		var nus *utterance.NusUnit
		if n, ok := mp.NusStart(p); ok {
			nus = n
			last = n.LastPhone
		}
		r := Run{Name: mp.Utt.Phones[p].Pron, FirstPhone: p, LastPhone: last, StartUnit: unit, Nus: nus}
		if nus != nil {
			r.Name = nus.Name
		}
		for ; p <= last; p++ {
			r.UnitCount += mp.UnitsForPhone(p)
		}
		unit += r.UnitCount
		runs = append(runs, r)
	}
	return runs
}

// ReduceStates converts a 5-state per-state frame-count row to the 2-state
// topology: states 0,1 fold into the left half and states 3,4 into the
// right, with the middle state split evenly, odd remainder to the left.
func ReduceStates(states []int) [2]int {
	if len(states) != utterance.NumStates {
		panic(fmt.Sprintf("unitmap: ReduceStates needs %d states, got %d", utterance.NumStates, len(states)))
	}
	mid := states[2]
	var out [2]int
	out[0] = states[0] + states[1] + (mid+1)/2
	out[1] = mid/2 + states[3] + states[4]
	return out
}

// StateRow copies the duration row of a unit out of the matrix.
func (mp *Mapper) StateRow(unitIndex int) []int {
	n := mp.Utt.Durations.Dim(1)
	row := make([]int, n)
	for s := 0; s < n; s++ {
		row[s] = int(mp.Utt.Durations.Value([]int{unitIndex, s}))
	}
	return row
}
