// Copyright (c) 2023, The SPLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package recfeat

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// makeCorpus writes a nested corpus layout with one recording's feature
// files and returns a loader rooted above it.
func makeCorpus(t *testing.T) *Loader {
	t.Helper()
	root := t.TempDir()
	sub := filepath.Join(root, "voice", "wave16k")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	f0 := "120.5\n0\n\n133.25\n140\n"
	lsp := "0.1 0.2 1.5\n0.3 0.4 2.5\n0.5 0.6 3.5\n"
	if err := os.WriteFile(filepath.Join(sub, "s0042.f0"), []byte(f0), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "s0042.lsp"), []byte(lsp), 0o644); err != nil {
		t.Fatal(err)
	}
	return &Loader{Root: root, LpcOrder: 2}
}

func TestLoadF0(t *testing.T) {
	ld := makeCorpus(t)
	vals, err := ld.LoadF0("s0042")
	if err != nil {
		t.Fatalf("LoadF0: %v", err)
	}
	want := []float32{120.5, 0, 133.25, 140}
	if len(vals) != len(want) {
		t.Fatalf("got %d frames, want %d (blank lines skipped)", len(vals), len(want))
	}
	for i, w := range want {
		if vals[i] != w {
			t.Errorf("frame %d: got %g, want %g", i, vals[i], w)
		}
	}
}

func TestLoadLsp(t *testing.T) {
	ld := makeCorpus(t)
	rows, err := ld.LoadLsp("s0042")
	if err != nil {
		t.Fatalf("LoadLsp: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d frames, want 3", len(rows))
	}
	if rows[1][0] != 0.3 || rows[1][2] != 2.5 {
		t.Errorf("frame 1 = %v, want [0.3 0.4 2.5]", rows[1])
	}
}

func TestSlices(t *testing.T) {
	ld := makeCorpus(t)
	f0, err := ld.SliceF0("s0042", 1, 2)
	if err != nil {
		t.Fatalf("SliceF0: %v", err)
	}
	if len(f0) != 2 || f0[0] != 0 || f0[1] != 133.25 {
		t.Errorf("f0 slice = %v, want [0 133.25]", f0)
	}
	lsp, err := ld.SliceLsp("s0042", 2, 1)
	if err != nil {
		t.Fatalf("SliceLsp: %v", err)
	}
	if len(lsp) != 1 || lsp[0][2] != 3.5 {
		t.Errorf("lsp slice = %v", lsp)
	}
	if _, err := ld.SliceF0("s0042", 3, 5); err == nil {
		t.Error("expected error for slice past contour end")
	}
}

func TestNotFound(t *testing.T) {
	ld := makeCorpus(t)
	if _, err := ld.LoadF0("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestLoadLspBadWidth(t *testing.T) {
	ld := makeCorpus(t)
	ld.LpcOrder = 7 // expects 8 values per line, files have 3
	if _, err := ld.LoadLsp("s0042"); err == nil {
		t.Error("expected error for wrong tuple width")
	}
}
