// Copyright (c) 2023, The SPLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package export

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/splab/unitfeat/recfeat"
	"github.com/splab/unitfeat/utterance"
)

// writeCorpus lays out a small corpus under a temp root with one recording
// s0001: f0 values 100+fr, lsp rows fr/100 fr/100+0.01 with gain fr.
func writeCorpus(t *testing.T, frames int) *recfeat.Loader {
	t.Helper()
	root := t.TempDir()
	sub := filepath.Join(root, "wave16k")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	var f0, lsp string
	for fr := 0; fr < frames; fr++ {
		f0 += fmt.Sprintf("%d\n", 100+fr)
		lsp += fmt.Sprintf("%.4f %.4f %d\n", float64(fr)/100, float64(fr)/100+0.01, fr)
	}
	if err := os.WriteFile(filepath.Join(sub, "s0001.f0"), []byte(f0), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "s0001.lsp"), []byte(lsp), 0o644); err != nil {
		t.Fatal(err)
	}
	return &recfeat.Loader{Root: root, LpcOrder: 2}
}

// withBestPathLattice attaches a single-candidate lattice whose spans point
// into recording s0001 at the given frame offsets.
func withBestPathLattice(utt *utterance.Utterance, offsets, lens []int) {
	utt.Lattice = make([]utterance.CostNodeList, len(utt.Units))
	for i := range utt.Units {
		utt.Lattice[i].Nodes = []utterance.CostNode{{
			Wave: utterance.WaveUnitInfo{SentenceID: "s0001", FrameOffset: offsets[i], FrameLength: lens[i]},
		}}
	}
}

func TestExportBestPathF0(t *testing.T) {
	utt := makeUtt(
		[]string{"sil", "k", "k", "sil"},
		[]bool{true, false, false, true},
		[]int{1, 2, 1, 1},
		[]float32{0, 0, 0, 0, 0})
	withBestPathLattice(utt, []int{0, 3, 6, 0}, []int{1, 2, 1, 1})
	loader := writeCorpus(t, 10)
	ex := makeExporter(utt)
	ex.LogF0 = false

	var out FloatBuffer
	if err := ex.ExportBestPathF0(loader, &out); err != nil {
		t.Fatalf("ExportBestPathF0: %v", err)
	}
	// k left half: recording frames 3,4 -> 103,104; right half: frame 6 -> 106
	want := []float32{103, 104, 106}
	if len(out.Values) != len(want) {
		t.Fatalf("got %d values, want %d", len(out.Values), len(want))
	}
	for i, w := range want {
		if out.Values[i] != w {
			t.Errorf("value %d: got %g, want %g", i, out.Values[i], w)
		}
	}
}

func TestExportBestPathF0NameMismatchPanics(t *testing.T) {
	utt := makeUtt(
		[]string{"sil", "k", "k", "sil"},
		[]bool{true, false, false, true},
		[]int{1, 2, 1, 1},
		[]float32{0, 0, 0, 0, 0})
	utt.Units[2].Name = "g" // right half of k no longer matches
	withBestPathLattice(utt, []int{0, 3, 6, 0}, []int{1, 2, 1, 1})
	loader := writeCorpus(t, 10)
	ex := makeExporter(utt)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on half-unit name mismatch")
		}
	}()
	var out FloatBuffer
	ex.ExportBestPathF0(loader, &out)
}

func TestExportBestPathLspGain(t *testing.T) {
	utt := makeUtt(
		[]string{"sil", "k", "k", "sil"},
		[]bool{true, false, false, true},
		[]int{1, 1, 1, 1},
		[]float32{0, 0, 0, 0})
	withBestPathLattice(utt, []int{0, 2, 5, 0}, []int{1, 1, 1, 1})
	loader := writeCorpus(t, 10)
	ex := makeExporter(utt)

	var out FloatBuffer
	if err := ex.ExportBestPathLspGain(loader, &out); err != nil {
		t.Fatalf("ExportBestPathLspGain: %v", err)
	}
	// rows for recording frames 2 and 5, three values each
	if len(out.Values) != 6 {
		t.Fatalf("got %d values, want 6", len(out.Values))
	}
	if out.Values[2] != 2 || out.Values[5] != 5 {
		t.Errorf("gain columns got %g and %g, want 2 and 5", out.Values[2], out.Values[5])
	}
}

func TestExportBestPathDuration(t *testing.T) {
	utt := makeUtt(
		[]string{"sil", "k", "k", "sil"},
		[]bool{true, false, false, true},
		[]int{1, 2, 1, 1},
		[]float32{0, 0, 0, 0, 0})
	withBestPathLattice(utt, []int{0, 3, 6, 0}, []int{1, 2, 1, 1})
	ex := makeExporter(utt)

	var out DurationFile
	if err := ex.ExportBestPathDuration(&out); err != nil {
		t.Fatalf("ExportBestPathDuration: %v", err)
	}
	if len(out.Entries) != 1 {
		t.Fatalf("expected 1 record, got %d", len(out.Entries))
	}
	e := out.Entries[0]
	if e.PhoneLabel != "k" || len(e.FramesInState) != 2 || e.FramesInState[0] != 2 || e.FramesInState[1] != 1 {
		t.Errorf("unexpected record %+v", e)
	}
}

func TestExportBestPathNoLattice(t *testing.T) {
	utt := makeUtt([]string{"k"}, []bool{false}, []int{1}, []float32{1})
	ex := makeExporter(utt)
	var out FloatBuffer
	if err := ex.ExportBestPathF0(nil, &out); err == nil {
		t.Fatal("expected input-not-ready error without a lattice")
	}
}
