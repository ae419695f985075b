// Copyright (c) 2023, The SPLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package lattice replays the best path through a unit-candidate cost
// lattice. The unit-selection runtime has already decided the path; it left
// a BestNodeIndex at the terminal position and a PrecedeNodeIndex on every
// node, so recovery is a pure backward pointer walk with no search.
package lattice

import (
	"fmt"

	"github.com/splab/unitfeat/utterance"
)

// PathEntry is one step of the recovered best path.
type PathEntry struct {
	UnitIndex int `desc:"unit position in the lattice"`
	NodeIndex int `desc:"chosen candidate at that position"`
}

// ReconstructBestPath walks backward from the terminal BestNodeIndex
// through the PrecedeNodeIndex pointers and returns the path in forward
// order, exactly one entry per unit position. A node index outside the
// candidate list at any position means the lattice is corrupt and panics.
func ReconstructBestPath(lat []utterance.CostNodeList) []PathEntry {
	n := len(lat)
	if n == 0 {
		return nil
	}
	path := make([]PathEntry, n)
	node := lat[n-1].BestNodeIndex
	for i := n - 1; i >= 0; i-- {
		if node < 0 || node >= len(lat[i].Nodes) {
			panic(fmt.Sprintf("lattice: node index %d out of range at position %d (%d candidates)",
				node, i, len(lat[i].Nodes)))
		}
		path[i] = PathEntry{UnitIndex: i, NodeIndex: node}
		node = lat[i].Nodes[node].PrecedeNodeIndex
	}
	return path
}

// UnitSpan joins one best-path entry with the recorded span behind it.
type UnitSpan struct {
	UnitIndex int
	NodeIndex int
	Name      string
	IsSilence bool
	Wave      utterance.WaveUnitInfo
}

// BestPathUnits resolves the recovered path against the unit table,
// optionally dropping silence positions. When silence is dropped, the
// remaining spans must form left/right half pairs of whole phones, so
// each pair's names are checked: a mismatch means the lattice and the unit
// table are out of sync, which is fatal.
func BestPathUnits(lat []utterance.CostNodeList, units []utterance.AcousticUnit, skipSilence bool) []UnitSpan {
	path := ReconstructBestPath(lat)
	spans := make([]UnitSpan, 0, len(path))
	for _, pe := range path {
		u := units[pe.UnitIndex]
		spans = append(spans, UnitSpan{
			UnitIndex: pe.UnitIndex,
			NodeIndex: pe.NodeIndex,
			Name:      u.Name,
			IsSilence: u.IsSilence,
			Wave:      lat[pe.UnitIndex].Nodes[pe.NodeIndex].Wave,
		})
	}
	if !skipSilence {
		return spans
	}
	out := make([]UnitSpan, 0, len(spans))
	for i := 0; i < len(spans); {
		if spans[i].IsSilence {
			i++
			continue
		}
		left, right := halfPair(spans, i)
		out = append(out, left, right)
		i += 2
	}
	return out
}

// halfPair reads the left/right half units of one phone starting at span i,
// verifying both halves exist and carry the same name.
func halfPair(spans []UnitSpan, i int) (left, right UnitSpan) {
	if i+1 >= len(spans) || spans[i+1].IsSilence {
		panic(fmt.Sprintf("lattice: unit %d (%s) has no right half", spans[i].UnitIndex, spans[i].Name))
	}
	left, right = spans[i], spans[i+1]
	if left.Name != right.Name {
		panic(fmt.Sprintf("lattice: half units %d and %d name mismatch: %s vs %s",
			left.UnitIndex, right.UnitIndex, left.Name, right.Name))
	}
	return left, right
}

// PhoneSpan pairs the left and right half-unit spans of one non-silence
// phone on the best path. FrameLength is the summed length of both halves.
type PhoneSpan struct {
	Name        string
	Left        UnitSpan
	Right       UnitSpan
	FrameLength int
}

// BestPathPhones merges adjacent left/right half units of the best path
// into whole phones, skipping silence positions. The two halves of a phone
// must carry the same name; a mismatch means the lattice and the unit table
// are out of sync, which is fatal.
func BestPathPhones(lat []utterance.CostNodeList, units []utterance.AcousticUnit) []PhoneSpan {
	spans := BestPathUnits(lat, units, false)
	var phones []PhoneSpan
	for i := 0; i < len(spans); {
		if spans[i].IsSilence {
			i++
			continue
		}
		left, right := halfPair(spans, i)
		phones = append(phones, PhoneSpan{
			Name:        left.Name,
			Left:        left,
			Right:       right,
			FrameLength: left.Wave.FrameLength + right.Wave.FrameLength,
		})
		i += 2
	}
	return phones
}

// PhoneDuration is one reconstructed 2-state duration record: frames spent
// in the left half unit and in the right half unit of a phone.
type PhoneDuration struct {
	Label  string
	Frames [2]int
}

// BestPathDurations reconstructs per-phone 2-state durations from the
// recorded spans on the best path, stepping two lattice positions per
// non-silence phone. The walk is backward, so records are inserted at the
// front to keep phone order.
func BestPathDurations(lat []utterance.CostNodeList, units []utterance.AcousticUnit) []PhoneDuration {
	spans := BestPathUnits(lat, units, false)
	var durs []PhoneDuration
	for i := len(spans) - 1; i >= 0; {
		if spans[i].IsSilence {
			i--
			continue
		}
		if i == 0 || spans[i-1].IsSilence {
			panic(fmt.Sprintf("lattice: unit %d (%s) has no left half", spans[i].UnitIndex, spans[i].Name))
		}
		left, right := spans[i-1], spans[i]
		if left.Name != right.Name {
			panic(fmt.Sprintf("lattice: half units %d and %d name mismatch: %s vs %s",
				left.UnitIndex, right.UnitIndex, left.Name, right.Name))
		}
		durs = append([]PhoneDuration{{
			Label:  left.Name,
			Frames: [2]int{left.Wave.FrameLength, right.Wave.FrameLength},
		}}, durs...)
		i -= 2
	}
	return durs
}
