// Copyright (c) 2023, The SPLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package export

import "fmt"

// ExportNusF0 appends the F0 contours of every NUS grouping in order,
// decoding fixed-point encodings by NusF0Scale and passing float-point
// values through unchanged.
func (ex *Exporter) ExportNusF0(out *FloatBuffer) error {
	utt := ex.Map.Utt
	if len(utt.NusUnits) == 0 {
		return fmt.Errorf("%w: utterance has no NUS units", ErrInputNotReady)
	}
	for _, nus := range utt.NusUnits {
		if nus.F0 == nil {
			return fmt.Errorf("%w: NUS unit %s has no f0 data", ErrInputNotReady, nus.Name)
		}
		for fr := 0; fr < nus.F0.Dim(0); fr++ {
			v := nus.F0.Value([]int{fr, 0})
			if nus.IsFixedPoint {
				v *= NusF0Scale
			}
			out.Append(v)
		}
	}
	return nil
}

// ExportNusLspGain appends LpcOrder LSP coefficients then one gain value
// per frame of every NUS grouping, decoding fixed-point encodings by
// NusLspScale and NusGainScale.
func (ex *Exporter) ExportNusLspGain(out *FloatBuffer) error {
	utt := ex.Map.Utt
	if len(utt.NusUnits) == 0 {
		return fmt.Errorf("%w: utterance has no NUS units", ErrInputNotReady)
	}
	for _, nus := range utt.NusUnits {
		if nus.Lsp == nil || nus.Gain == nil {
			return fmt.Errorf("%w: NUS unit %s has no lsp/gain data", ErrInputNotReady, nus.Name)
		}
		if nus.Lsp.Dim(0) != nus.Gain.Dim(0) {
			panic(fmt.Sprintf("export: NUS unit %s lsp has %d frames, gain has %d",
				nus.Name, nus.Lsp.Dim(0), nus.Gain.Dim(0)))
		}
		for fr := 0; fr < nus.Lsp.Dim(0); fr++ {
			for d := 0; d < nus.Lsp.Dim(1); d++ {
				v := nus.Lsp.Value([]int{fr, d})
				if nus.IsFixedPoint {
					v *= NusLspScale
				}
				out.Append(v)
			}
			g := nus.Gain.Value([]int{fr, 0})
			if nus.IsFixedPoint {
				g *= NusGainScale
			}
			out.Append(g)
		}
	}
	return nil
}

// Class selects which phone runs a selective export covers.
type Class int

const (
	// NusOnly exports only phones inside a named multi-phone grouping.
	NusOnly Class = iota
	// DynamicOnly exports only phones outside any grouping.
	DynamicOnly
)

// ExportSelectiveF0 exports F0 from the utterance's own matrix, restricted
// to units whose phone run matches the class: phones inside a NUS grouping
// for NusOnly, phones outside any grouping for DynamicOnly.
func (ex *Exporter) ExportSelectiveF0(cls Class, out *FloatBuffer) error {
	utt := ex.Map.Utt
	if utt.F0 == nil {
		return fmt.Errorf("%w: utterance has no f0 matrix", ErrInputNotReady)
	}
	for _, run := range ex.Map.Runs() {
		if (run.Nus != nil) != (cls == NusOnly) {
			continue
		}
		rng := &Range{First: run.StartUnit, Last: run.StartUnit + run.UnitCount - 1}
		if err := ex.ExportF0(rng, out); err != nil {
			return err
		}
	}
	return nil
}

// ExportSelectiveLspGain exports LSP+gain rows restricted to the class.
func (ex *Exporter) ExportSelectiveLspGain(cls Class, out *FloatBuffer) error {
	utt := ex.Map.Utt
	if utt.Lsp == nil || utt.Gain == nil {
		return fmt.Errorf("%w: utterance has no lsp/gain matrices", ErrInputNotReady)
	}
	for _, run := range ex.Map.Runs() {
		if (run.Nus != nil) != (cls == NusOnly) {
			continue
		}
		rng := &Range{First: run.StartUnit, Last: run.StartUnit + run.UnitCount - 1}
		if err := ex.ExportLspGain(rng, out); err != nil {
			return err
		}
	}
	return nil
}
