// Copyright (c) 2023, The SPLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package export serializes duration, F0, and LSP/gain training targets out
// of one utterance snapshot into caller-owned append-only buffers. All
// exporters share the same scoping rules: an optional inclusive unit range
// and optional silence skipping. On any returned error the caller must
// discard whatever was appended; there are no partial-result semantics.
package export

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/emer/etable/etable"
	"github.com/emer/etable/etensor"

	"github.com/splab/unitfeat/unitmap"
)

// Numeric constants the downstream trainer depends on exactly.
const (
	// LogF0Floor is emitted for unvoiced (non-positive) F0 in log mode.
	LogF0Floor = -1.0e10
	// NusF0Scale decodes fixed-point F0: 3 bits of integer headroom over
	// the log-F0 range.
	NusF0Scale = 7.0 / 32768.0
	// NusLspScale decodes fixed-point LSP coefficients.
	NusLspScale = 1.0 / 32767.0
	// NusGainScale decodes fixed-point gain, x10 for its larger dynamic range.
	NusGainScale = 10.0 / 32767.0
)

// ErrInputNotReady reports that a required input (feature matrix, lattice,
// NUS data) is absent. These are hard missing-input conditions, never
// retried.
var ErrInputNotReady = errors.New("export: input not ready")

// DurationEntry is one duration record: a phone label and the frames spent
// in each HMM state.
type DurationEntry struct {
	PhoneLabel    string
	FramesInState []int
}

// DurationFile is an ordered sequence of duration records.
type DurationFile struct {
	Entries []DurationEntry
}

// Append adds a record at the end (forward traversals).
func (df *DurationFile) Append(e DurationEntry) {
	df.Entries = append(df.Entries, e)
}

// Prepend inserts a record at the front (backward traversals).
func (df *DurationFile) Prepend(e DurationEntry) {
	df.Entries = append([]DurationEntry{e}, df.Entries...)
}

// Table renders the duration file as an etable for saving or inspection.
// All entries must have the same state count.
func (df *DurationFile) Table() *etable.Table {
	nStates := 0
	if len(df.Entries) > 0 {
		nStates = len(df.Entries[0].FramesInState)
	}
	dt := &etable.Table{}
	dt.SetFromSchema(etable.Schema{
		{Name: "PhoneLabel", Type: etensor.STRING, CellShape: nil, DimNames: nil},
		{Name: "FramesInState", Type: etensor.INT32, CellShape: []int{nStates}, DimNames: nil},
	}, len(df.Entries))
	for row, e := range df.Entries {
		dt.SetCellString("PhoneLabel", row, e.PhoneLabel)
		for s, v := range e.FramesInState {
			dt.SetCellTensorFloat1D("FramesInState", row, s, float64(v))
		}
	}
	return dt
}

// WriteCSV writes the duration table tab-separated with headers.
func (df *DurationFile) WriteCSV(w io.Writer) error {
	return df.Table().WriteCSV(w, etable.Tab, etable.Headers)
}

// FloatBuffer is a flat ordered sequence of 32-bit float values, one value
// (or flattened tuple) per exported frame.
type FloatBuffer struct {
	Values []float32
}

// Append adds values at the end of the buffer.
func (fb *FloatBuffer) Append(vals ...float32) {
	fb.Values = append(fb.Values, vals...)
}

// Write serializes the buffer as little-endian 32-bit floats.
func (fb *FloatBuffer) Write(w io.Writer) error {
	return binary.Write(w, binary.LittleEndian, fb.Values)
}

// Range restricts an export to units [First, Last] inclusive.
type Range struct {
	First int
	Last  int
}

// Exporter walks an utterance's units and appends training features into
// output buffers. The mapper carries the phone set; silence classification
// of individual units follows the unit table. Construct with the mapper,
// then adjust the mode flags.
type Exporter struct {
	Map          *unitmap.Mapper `desc:"index mapper over the utterance being exported"`
	LogF0        bool            `def:"true" desc:"export log(f0) with LogF0Floor for unvoiced frames -- false passes raw values through, unvoiced included"`
	WithSilence  bool            `def:"false" desc:"include silence units in the export"`
	ReduceStates bool            `def:"false" desc:"emit 2-state durations by merging the 5-state rows"`
}

// Defaults sets the standard training-target export modes.
func (ex *Exporter) Defaults() {
	ex.LogF0 = true
	ex.WithSilence = false
	ex.ReduceStates = false
}

// inScope reports whether the unit participates in this export.
func (ex *Exporter) inScope(unitIndex int, rng *Range) bool {
	if rng != nil && (unitIndex < rng.First || unitIndex > rng.Last) {
		return false
	}
	if !ex.WithSilence && ex.Map.Utt.Units[unitIndex].IsSilence {
		return false
	}
	return true
}

// ExportDuration appends one {label, framesPerState} record per in-scope
// unit. Every exported unit's state row is checked against the unit's frame
// count; disagreement is upstream data corruption and panics.
func (ex *Exporter) ExportDuration(rng *Range, out *DurationFile) error {
	utt := ex.Map.Utt
	if utt.Durations == nil {
		return fmt.Errorf("%w: utterance has no duration matrix", ErrInputNotReady)
	}
	for i, u := range utt.Units {
		if !ex.inScope(i, rng) {
			continue
		}
		ex.Map.CheckUnitFrames(i)
		states := ex.Map.StateRow(i)
		if ex.ReduceStates {
			two := unitmap.ReduceStates(states)
			states = two[:]
		}
		out.Append(DurationEntry{PhoneLabel: u.Name, FramesInState: states})
	}
	return nil
}

// ExportF0 appends one value per frame of every in-scope unit. In log mode
// strictly positive values are log-transformed and everything else floors
// to LogF0Floor; in linear mode values pass through unmodified.
func (ex *Exporter) ExportF0(rng *Range, out *FloatBuffer) error {
	utt := ex.Map.Utt
	if utt.F0 == nil {
		return fmt.Errorf("%w: utterance has no f0 matrix", ErrInputNotReady)
	}
	for i := range utt.Units {
		if !ex.inScope(i, rng) {
			continue
		}
		start, count := ex.Map.UnitRange(i)
		for fr := start; fr < start+count; fr++ {
			out.Append(ex.f0Value(utt.F0.Value([]int{fr, 0})))
		}
	}
	return nil
}

// f0Value applies the log-mode floor rule to one F0 value.
func (ex *Exporter) f0Value(f0 float32) float32 {
	if !ex.LogF0 {
		return f0
	}
	if f0 > 0 {
		return float32(math.Log(float64(f0)))
	}
	return LogF0Floor
}

// ExportLspGain appends LpcOrder LSP coefficients followed by one gain
// value per frame of every in-scope unit, preserving row order.
func (ex *Exporter) ExportLspGain(rng *Range, out *FloatBuffer) error {
	utt := ex.Map.Utt
	if utt.Lsp == nil || utt.Gain == nil {
		return fmt.Errorf("%w: utterance has no lsp/gain matrices", ErrInputNotReady)
	}
	for i := range utt.Units {
		if !ex.inScope(i, rng) {
			continue
		}
		start, count := ex.Map.UnitRange(i)
		for fr := start; fr < start+count; fr++ {
			for d := 0; d < utt.LpcOrder; d++ {
				out.Append(utt.Lsp.Value([]int{fr, d}))
			}
			out.Append(utt.Gain.Value([]int{fr, 0}))
		}
	}
	return nil
}
