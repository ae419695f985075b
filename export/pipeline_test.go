// Copyright (c) 2023, The SPLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package export

import (
	"testing"

	"github.com/splab/unitfeat/utterance"
)

type countingExtender struct {
	inited    bool
	processed bool
	disposed  bool
}

func (ce *countingExtender) Initialize(cfg map[string]string) error { ce.inited = true; return nil }
func (ce *countingExtender) Process(utt *utterance.Utterance) error { ce.processed = true; return nil }
func (ce *countingExtender) Dispose()                               { ce.disposed = true }

func TestPipelineRun(t *testing.T) {
	utt := makeUtt([]string{"k"}, []bool{false}, []int{2}, []float32{100, 200})
	ext := &countingExtender{}
	pl := &Pipeline{Ex: makeExporter(utt), Extenders: []Extender{ext}}

	overridden := false
	out, err := pl.Run(nil, map[Stage]OverrideFunc{
		StageF0: func(o *Output) error {
			overridden = true
			// overwrite the stage output before the lsp stage runs
			o.F0.Values = []float32{0}
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !ext.inited || !ext.processed || !ext.disposed {
		t.Errorf("extender lifecycle incomplete: %+v", ext)
	}
	if !overridden {
		t.Fatal("f0 override never ran")
	}
	if len(out.F0.Values) != 1 || out.F0.Values[0] != 0 {
		t.Errorf("override result not kept: %v", out.F0.Values)
	}
	if len(out.Duration.Entries) != 1 {
		t.Errorf("duration stage produced %d entries, want 1", len(out.Duration.Entries))
	}
	if len(out.Lsp.Values) != 2*3 {
		t.Errorf("lsp stage produced %d values, want 6", len(out.Lsp.Values))
	}
}
