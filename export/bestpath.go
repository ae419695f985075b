// Copyright (c) 2023, The SPLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package export

import (
	"fmt"

	"github.com/splab/unitfeat/lattice"
	"github.com/splab/unitfeat/recfeat"
)

// ExportBestPathDuration reconstructs 2-state per-phone durations from the
// recorded spans on the best path. The lattice walk is backward, so records
// go in at the front, which leaves the file in phone order.
func (ex *Exporter) ExportBestPathDuration(out *DurationFile) error {
	utt := ex.Map.Utt
	if utt.Lattice == nil {
		return fmt.Errorf("%w: utterance has no lattice", ErrInputNotReady)
	}
	durs := lattice.BestPathDurations(utt.Lattice, utt.Units)
	for i := len(durs) - 1; i >= 0; i-- {
		d := durs[i]
		out.Prepend(DurationEntry{PhoneLabel: d.Label, FramesInState: []int{d.Frames[0], d.Frames[1]}})
	}
	return nil
}

// ExportBestPathF0 reads F0 for every non-silence best-path unit from the
// chosen recording's own .f0 file at the recording-local frame offsets,
// applying the same log/floor rule as ExportF0.
func (ex *Exporter) ExportBestPathF0(loader *recfeat.Loader, out *FloatBuffer) error {
	utt := ex.Map.Utt
	if utt.Lattice == nil {
		return fmt.Errorf("%w: utterance has no lattice", ErrInputNotReady)
	}
	spans := lattice.BestPathUnits(utt.Lattice, utt.Units, !ex.WithSilence)
	for _, sp := range spans {
		vals, err := loader.SliceF0(sp.Wave.SentenceID, sp.Wave.FrameOffset, sp.Wave.FrameLength)
		if err != nil {
			return fmt.Errorf("export: best-path f0 for unit %d: %w", sp.UnitIndex, err)
		}
		for _, v := range vals {
			out.Append(ex.f0Value(v))
		}
	}
	return nil
}

// ExportBestPathLspGain reads LSP+gain rows for every non-silence best-path
// unit from the chosen recording's own .lsp file.
func (ex *Exporter) ExportBestPathLspGain(loader *recfeat.Loader, out *FloatBuffer) error {
	utt := ex.Map.Utt
	if utt.Lattice == nil {
		return fmt.Errorf("%w: utterance has no lattice", ErrInputNotReady)
	}
	spans := lattice.BestPathUnits(utt.Lattice, utt.Units, !ex.WithSilence)
	for _, sp := range spans {
		rows, err := loader.SliceLsp(sp.Wave.SentenceID, sp.Wave.FrameOffset, sp.Wave.FrameLength)
		if err != nil {
			return fmt.Errorf("export: best-path lsp for unit %d: %w", sp.UnitIndex, err)
		}
		for _, row := range rows {
			out.Append(row...)
		}
	}
	return nil
}
