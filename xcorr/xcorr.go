// Copyright (c) 2023, The SPLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package xcorr validates the runtime's join costs by recomputing boundary
// continuity from the raw recordings. For every adjacent pair of unit
// positions it builds two parallel similarity matrices over all candidate
// pairs, one from normalized cross-correlation of boundary margin samples
// and one from the runtime's join-cost matrix remapped to the same
// higher-is-better scale, and reads off the values the best path realized.
package xcorr

import (
	"fmt"

	"github.com/emer/etable/etensor"
	"gonum.org/v1/gonum/floats"

	"github.com/splab/unitfeat/lattice"
	"github.com/splab/unitfeat/recfeat"
	"github.com/splab/unitfeat/sound"
	"github.com/splab/unitfeat/utterance"
)

// CandidateMargins holds the raw-sample windows around one candidate's
// boundaries: Tail ends at the unit's end boundary, Head straddles the
// unit's start boundary at twice the margin length.
type CandidateMargins struct {
	Tail []float64
	Head []float64
}

// Margins holds the loaded boundary windows for every candidate at every
// unit position. Lifetime is one Compare call; silence positions hold nil.
type Margins struct {
	ByPosition [][]CandidateMargins
}

// LoadMargins pulls the boundary windows for every candidate of every
// non-silence position from the candidates' source recordings. A position
// only needs the windows its pair roles consume: the tail when the next
// position is also non-silence (the candidate ends a join) and the head
// when the previous one is (the candidate starts a join). Each recording is
// fully read and released before the next candidate loads.
func LoadMargins(lat []utterance.CostNodeList, units []utterance.AcousticUnit, loader *recfeat.Loader, mg *sound.Margins) (*Margins, error) {
	out := &Margins{ByPosition: make([][]CandidateMargins, len(lat))}
	for i := range lat {
		if units[i].IsSilence {
			continue
		}
		needTail := i+1 < len(lat) && !units[i+1].IsSilence
		needHead := i > 0 && !units[i-1].IsSilence
		if !needTail && !needHead {
			continue
		}
		cms := make([]CandidateMargins, len(lat[i].Nodes))
		for c, node := range lat[i].Nodes {
			snd, err := loader.LoadWave(node.Wave.SentenceID)
			if err != nil {
				return nil, fmt.Errorf("xcorr: margins for position %d candidate %d: %w", i, c, err)
			}
			samples := snd.Samples(0)
			if needTail {
				cms[c].Tail = mg.TailWindow(samples, node.Wave.SampleOffset+node.Wave.SampleLength)
			}
			if needHead {
				cms[c].Head = mg.HeadWindow(samples, node.Wave.SampleOffset)
			}
		}
		out.ByPosition[i] = cms
	}
	return out, nil
}

// PairComparison is the result for one adjacent unit-position pair.
type PairComparison struct {
	Online      *etensor.Float64 `desc:"cross-correlation similarity, rows: previous position candidates, cols: current"`
	Runtime     *etensor.Float64 `desc:"runtime join costs remapped 1-v to the similarity scale, same shape"`
	OnlineBest  float64          `desc:"online similarity at the best-path coordinates"`
	RuntimeBest float64          `desc:"runtime similarity at the best-path coordinates"`
}

// Comparison holds one PairComparison per position pair (1..N-1, each
// against its predecessor).
type Comparison struct {
	Pairs []PairComparison
}

// Compare builds the online and runtime similarity tables for every
// adjacent pair. Pairs touching a silence unit degenerate to 1x1 zero
// matrices with online best 0 and runtime best 1-ConCost of the chosen
// node. Shape disagreement between an online and a runtime matrix means the
// validator and the runtime engine have fallen out of sync, which is fatal.
func Compare(lat []utterance.CostNodeList, units []utterance.AcousticUnit, margins *Margins, winLen int) (*Comparison, error) {
	if len(lat) < 2 {
		return nil, fmt.Errorf("xcorr: lattice has %d positions, need at least 2", len(lat))
	}
	path := lattice.ReconstructBestPath(lat)
	cmp := &Comparison{Pairs: make([]PairComparison, len(lat)-1)}
	for i := 1; i < len(lat); i++ {
		pair := &cmp.Pairs[i-1]
		bestPrev := path[i-1].NodeIndex
		bestCur := path[i].NodeIndex
		if units[i-1].IsSilence || units[i].IsSilence {
			pair.Online = etensor.NewFloat64([]int{1, 1}, nil, nil)
			pair.Runtime = etensor.NewFloat64([]int{1, 1}, nil, nil)
			pair.OnlineBest = 0
			pair.RuntimeBest = 1 - lat[i].Nodes[bestCur].ConCost
			continue
		}
		prevM := margins.ByPosition[i-1]
		curM := margins.ByPosition[i]
		online := etensor.NewFloat64([]int{len(prevM), len(curM)}, nil, nil)
		for r := range prevM {
			for c := range curM {
				online.Set([]int{r, c}, MaxCorrelation(prevM[r].Tail, curM[c].Head, winLen))
			}
		}
		runtime := runtimeSimilarity(lat[i].Nodes)
		if online.Dim(0) != runtime.Dim(0) || online.Dim(1) != runtime.Dim(1) {
			panic(fmt.Sprintf("xcorr: position %d online matrix %dx%d vs runtime %dx%d",
				i, online.Dim(0), online.Dim(1), runtime.Dim(0), runtime.Dim(1)))
		}
		pair.Online = online
		pair.Runtime = runtime
		pair.OnlineBest = online.Value([]int{bestPrev, bestCur})
		pair.RuntimeBest = runtime.Value([]int{bestPrev, bestCur})
	}
	return cmp, nil
}

// runtimeSimilarity assembles the per-node join-cost vectors of one
// position into a prev x cur matrix on the 1-v similarity scale.
func runtimeSimilarity(nodes []utterance.CostNode) *etensor.Float64 {
	rows := 0
	if len(nodes) > 0 && nodes[0].JoinCosts != nil {
		rows = nodes[0].JoinCosts.Len()
	}
	out := etensor.NewFloat64([]int{rows, len(nodes)}, nil, nil)
	for c, node := range nodes {
		if node.JoinCosts == nil || node.JoinCosts.Len() != rows {
			got := 0
			if node.JoinCosts != nil {
				got = node.JoinCosts.Len()
			}
			panic(fmt.Sprintf("xcorr: candidate %d join-cost vector has %d entries, expected %d", c, got, rows))
		}
		for r := 0; r < rows; r++ {
			out.Set([]int{r, c}, 1-node.JoinCosts.FloatVal1D(r))
		}
	}
	return out
}

// MaxCorrelation slides a window of winLen over the head margin and returns
// the maximum normalized cross-correlation against the last winLen samples
// of the tail margin. Zero-energy windows correlate to 0.
func MaxCorrelation(tail, head []float64, winLen int) float64 {
	if winLen <= 0 || winLen > len(tail) || winLen > len(head) {
		panic(fmt.Sprintf("xcorr: window %d does not fit margins of %d/%d samples", winLen, len(tail), len(head)))
	}
	ref := tail[len(tail)-winLen:]
	refNorm := floats.Norm(ref, 2)
	best := 0.0
	found := false
	for off := 0; off+winLen <= len(head); off++ {
		win := head[off : off+winLen]
		winNorm := floats.Norm(win, 2)
		if refNorm == 0 || winNorm == 0 {
			continue
		}
		r := floats.Dot(ref, win) / (refNorm * winNorm)
		if !found || r > best {
			best = r
			found = true
		}
	}
	return best
}
