// Copyright (c) 2023, The SPLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package utterance holds the read-only snapshot of one linguistically
// analyzed utterance as produced by the front end and the unit-selection
// runtime: phones, acoustic units with their frame ranges, per-unit state
// durations, frame-level F0/LSP/gain matrices, optional NUS groupings, and
// the candidate-unit cost lattice. This core never mutates an Utterance;
// it only reads it to fill standalone output buffers.
package utterance

import (
	"fmt"

	"github.com/emer/etable/etensor"
)

// NumStates is the HMM state topology the duration matrix is stored in.
const NumStates = 5

// Phone is one phone of the utterance as segmented by the front end.
type Phone struct {
	Pron      string `desc:"pronunciation string for this phone"`
	Tone      string `desc:"stress or tone marker"`
	UnitIndex int    `desc:"index of the first acoustic unit slot backing this phone, -1 if the phone has no unit"`
}

// AcousticUnit is one slot in the per-frame acoustic timeline: a phone or
// phone-half, possibly silence. Frame ranges are contiguous and
// non-overlapping in index order.
type AcousticUnit struct {
	Name       string `desc:"unit label, normally the phone name"`
	IsSilence  bool   `desc:"whether this unit is a silence unit"`
	StartFrame int    `desc:"first global frame index of this unit"`
	FrameCount int    `desc:"number of frames in this unit"`
}

// WaveUnitInfo identifies the recorded-audio span behind one candidate:
// which corpus sentence it was cut from and where.
type WaveUnitInfo struct {
	SentenceID   string `desc:"identifier of the source recording sentence"`
	FrameOffset  int    `desc:"first frame of the span within the recording"`
	FrameLength  int    `desc:"number of frames in the span"`
	SampleOffset int    `desc:"first raw sample of the span within the recording"`
	SampleLength int    `desc:"number of raw samples in the span"`
}

// CostNode is one candidate at one unit position of the lattice.
type CostNode struct {
	ConCost          float64          `desc:"join cost of this candidate against its chosen predecessor"`
	PrecedeNodeIndex int              `desc:"index into the candidate list of the previous position chosen as predecessor"`
	Wave             WaveUnitInfo     `desc:"recorded span this candidate plays back"`
	JoinCosts        *etensor.Float64 `desc:"1-D join costs of this candidate against every candidate of the previous position -- nil at position 0"`
}

// CostNodeList is the candidate list at one unit position. BestNodeIndex is
// meaningful only at the terminal position, where it seeds backward
// traversal of the already-selected best path.
type CostNodeList struct {
	Nodes         []CostNode
	BestNodeIndex int
}

// NusUnit groups a contiguous run of phones with its own independently
// encoded acoustic features. FirstPhone/LastPhone are phone indices into
// Utterance.Phones, not pointers, so identity survives copying.
type NusUnit struct {
	Name         string           `desc:"label of the multi-phone grouping"`
	FirstPhone   int              `desc:"index of the first phone of the run"`
	LastPhone    int              `desc:"index of the last phone of the run"`
	IsFixedPoint bool             `desc:"whether the feature matrices hold fixed-point integer encodings"`
	F0           *etensor.Float32 `desc:"frames x 1 encoded F0"`
	Lsp          *etensor.Float32 `desc:"frames x lpcOrder encoded LSP"`
	Gain         *etensor.Float32 `desc:"frames x 1 encoded gain"`
}

// Utterance is the full input snapshot for one export or validation pass.
type Utterance struct {
	Phones    []Phone          `desc:"ordered phones"`
	Units     []AcousticUnit   `desc:"ordered acoustic units, silence included"`
	Durations *etensor.Int32   `desc:"units x NumStates per-state frame counts"`
	F0        *etensor.Float32 `desc:"frames x 1 fundamental frequency"`
	Lsp       *etensor.Float32 `desc:"frames x LpcOrder line spectral pairs"`
	Gain      *etensor.Float32 `desc:"frames x 1 gain"`
	NusUnits  []*NusUnit       `desc:"optional alternate multi-phone encodings"`
	Lattice   []CostNodeList   `desc:"per-unit-position candidate lists, one entry per unit"`
	LpcOrder  int              `desc:"number of LSP coefficients per frame"`
}

// TotalFrames returns the frame count across all units.
func (utt *Utterance) TotalFrames() int {
	n := 0
	for _, u := range utt.Units {
		n += u.FrameCount
	}
	return n
}

// Validate checks the frame-accounting invariants the exporters depend on:
// unit frame ranges contiguous and non-overlapping in order, per-unit
// duration rows summing to the unit frame count, and feature matrix row
// counts equal to the total frame count. A failure here means the input is
// not ready for export, not that this core has a bug, so it is returned as
// an error rather than panicking.
func (utt *Utterance) Validate() error {
	next := 0
	for i, u := range utt.Units {
		if u.StartFrame != next {
			return fmt.Errorf("utterance: unit %d (%s) starts at frame %d, expected %d", i, u.Name, u.StartFrame, next)
		}
		if u.FrameCount < 0 {
			return fmt.Errorf("utterance: unit %d (%s) has negative frame count %d", i, u.Name, u.FrameCount)
		}
		next += u.FrameCount
	}
	if utt.Durations != nil {
		if utt.Durations.Dim(0) != len(utt.Units) {
			return fmt.Errorf("utterance: duration matrix has %d rows for %d units", utt.Durations.Dim(0), len(utt.Units))
		}
		for i, u := range utt.Units {
			sum := 0
			for s := 0; s < utt.Durations.Dim(1); s++ {
				sum += int(utt.Durations.Value([]int{i, s}))
			}
			if sum != u.FrameCount {
				return fmt.Errorf("utterance: unit %d (%s) duration states sum to %d, frame count is %d", i, u.Name, sum, u.FrameCount)
			}
		}
	}
	total := next
	for _, m := range []struct {
		name string
		tsr  *etensor.Float32
	}{{"f0", utt.F0}, {"lsp", utt.Lsp}, {"gain", utt.Gain}} {
		if m.tsr == nil {
			continue
		}
		if m.tsr.Dim(0) != total {
			return fmt.Errorf("utterance: %s matrix has %d rows, total frames is %d", m.name, m.tsr.Dim(0), total)
		}
	}
	if utt.Lattice != nil && len(utt.Lattice) != len(utt.Units) {
		return fmt.Errorf("utterance: lattice has %d positions for %d units", len(utt.Lattice), len(utt.Units))
	}
	return nil
}
