// Copyright (c) 2023, The SPLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package export

import (
	"fmt"

	"github.com/splab/unitfeat/utterance"
)

// Stage names one step of the export pipeline.
type Stage int

const (
	StageDuration Stage = iota
	StageF0
	StageLsp
)

func (st Stage) String() string {
	switch st {
	case StageDuration:
		return "duration"
	case StageF0:
		return "f0"
	case StageLsp:
		return "lsp"
	}
	return fmt.Sprintf("Stage(%d)", int(st))
}

// Output collects the buffers the pipeline fills, one per stage.
type Output struct {
	Duration *DurationFile
	F0       *FloatBuffer
	Lsp      *FloatBuffer
}

// OverrideFunc transforms the pipeline output after its stage has run and
// before the next stage starts. The override is a plain function parameter
// scoped to one Run call, so there is no subscriber state to leak or
// forget to unregister.
type OverrideFunc func(*Output) error

// Extender is a host-supplied utterance processor run before the stages.
// The host application owns discovery; this core just takes the collection.
type Extender interface {
	Initialize(cfg map[string]string) error
	Process(utt *utterance.Utterance) error
	Dispose()
}

// Pipeline runs the duration, F0, and LSP stages in order with optional
// per-stage output overrides.
type Pipeline struct {
	Ex        *Exporter  `desc:"exporter shared by all stages"`
	Rng       *Range     `desc:"optional unit range restriction applied to every stage"`
	Extenders []Extender `desc:"host-supplied utterance extenders run before the stages"`
}

// Run executes extenders then all stages in order, applying the override
// registered for a stage right after that stage fills its buffer. On error
// the partially filled Output must be discarded by the caller.
func (pl *Pipeline) Run(cfg map[string]string, overrides map[Stage]OverrideFunc) (*Output, error) {
	for _, ext := range pl.Extenders {
		if err := ext.Initialize(cfg); err != nil {
			return nil, fmt.Errorf("export: extender init: %w", err)
		}
		defer ext.Dispose()
		if err := ext.Process(pl.Ex.Map.Utt); err != nil {
			return nil, fmt.Errorf("export: extender process: %w", err)
		}
	}
	out := &Output{Duration: &DurationFile{}, F0: &FloatBuffer{}, Lsp: &FloatBuffer{}}
	stages := []struct {
		st  Stage
		run func() error
	}{
		{StageDuration, func() error { return pl.Ex.ExportDuration(pl.Rng, out.Duration) }},
		{StageF0, func() error { return pl.Ex.ExportF0(pl.Rng, out.F0) }},
		{StageLsp, func() error { return pl.Ex.ExportLspGain(pl.Rng, out.Lsp) }},
	}
	for _, sg := range stages {
		if err := sg.run(); err != nil {
			return nil, fmt.Errorf("export: stage %s: %w", sg.st, err)
		}
		if ov, ok := overrides[sg.st]; ok {
			if err := ov(out); err != nil {
				return nil, fmt.Errorf("export: override for stage %s: %w", sg.st, err)
			}
		}
	}
	return out, nil
}
