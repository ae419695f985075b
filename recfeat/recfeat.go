// Copyright (c) 2023, The SPLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package recfeat locates and loads the auxiliary per-recording feature
// files of the voice corpus: <sentenceID>.f0 with one ASCII float per line,
// and <sentenceID>.lsp with lpcOrder+1 ASCII values (LSP coefficients plus
// gain) per frame line. Files are discovered by recursive search under a
// data root. No caching is done across calls; callers that pull many units
// from the same recording may wrap a cache around this without changing
// observable behavior.
package recfeat

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/splab/unitfeat/sound"
)

// ErrNotFound reports that no feature file for the recording exists under
// the data root.
var ErrNotFound = errors.New("recfeat: recording feature file not found")

// Loader resolves sentence IDs to feature files under a corpus data root.
type Loader struct {
	Root     string `desc:"corpus data root searched recursively for per-recording files"`
	LpcOrder int    `def:"16" desc:"number of LSP coefficients per frame line, excluding the trailing gain"`
}

// Defaults initializes the Loader for the standard 16th-order voice font.
func (ld *Loader) Defaults() {
	ld.LpcOrder = 16
}

// errFoundFile stops the walk once the wanted file turns up.
var errFoundFile = errors.New("found")

// FindFile searches the data root recursively for <sentenceID><ext> and
// returns its path, or ErrNotFound.
func (ld *Loader) FindFile(sentenceID, ext string) (string, error) {
	want := sentenceID + ext
	var found string
	err := filepath.WalkDir(ld.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == want {
			found = path
			return errFoundFile
		}
		return nil
	})
	if err != nil && !errors.Is(err, errFoundFile) {
		return "", fmt.Errorf("recfeat: searching %s for %s: %w", ld.Root, want, err)
	}
	if found == "" {
		return "", fmt.Errorf("%w: %s under %s", ErrNotFound, want, ld.Root)
	}
	return found, nil
}

// LoadF0 loads the full F0 contour of a recording, one value per frame.
func (ld *Loader) LoadF0(sentenceID string) ([]float32, error) {
	path, err := ld.FindFile(sentenceID, ".f0")
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("recfeat: %w", err)
	}
	defer f.Close()
	var vals []float32
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		txt := strings.TrimSpace(sc.Text())
		if txt == "" {
			continue
		}
		v, err := strconv.ParseFloat(txt, 32)
		if err != nil {
			return nil, fmt.Errorf("recfeat: %s line %d: %w", path, line, err)
		}
		vals = append(vals, float32(v))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("recfeat: reading %s: %w", path, err)
	}
	return vals, nil
}

// LoadLsp loads the full LSP+gain contour of a recording, LpcOrder+1 values
// per frame line (the gain is the last value of each line).
func (ld *Loader) LoadLsp(sentenceID string) ([][]float32, error) {
	path, err := ld.FindFile(sentenceID, ".lsp")
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("recfeat: %w", err)
	}
	defer f.Close()
	want := ld.LpcOrder + 1
	var frames [][]float32
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if len(fields) != want {
			return nil, fmt.Errorf("recfeat: %s line %d: got %d values, want %d", path, line, len(fields), want)
		}
		row := make([]float32, want)
		for i, fv := range fields {
			v, err := strconv.ParseFloat(fv, 32)
			if err != nil {
				return nil, fmt.Errorf("recfeat: %s line %d: %w", path, line, err)
			}
			row[i] = float32(v)
		}
		frames = append(frames, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("recfeat: reading %s: %w", path, err)
	}
	return frames, nil
}

// SliceF0 loads the recording's F0 contour and slices out the frame range
// [startFrame, startFrame+frameCount) belonging to one selected unit.
func (ld *Loader) SliceF0(sentenceID string, startFrame, frameCount int) ([]float32, error) {
	vals, err := ld.LoadF0(sentenceID)
	if err != nil {
		return nil, err
	}
	if startFrame < 0 || startFrame+frameCount > len(vals) {
		return nil, fmt.Errorf("recfeat: f0 slice [%d,%d) outside %s contour of %d frames",
			startFrame, startFrame+frameCount, sentenceID, len(vals))
	}
	return vals[startFrame : startFrame+frameCount], nil
}

// SliceLsp loads the recording's LSP+gain contour and slices out the frame
// range belonging to one selected unit.
func (ld *Loader) SliceLsp(sentenceID string, startFrame, frameCount int) ([][]float32, error) {
	frames, err := ld.LoadLsp(sentenceID)
	if err != nil {
		return nil, err
	}
	if startFrame < 0 || startFrame+frameCount > len(frames) {
		return nil, fmt.Errorf("recfeat: lsp slice [%d,%d) outside %s contour of %d frames",
			startFrame, startFrame+frameCount, sentenceID, len(frames))
	}
	return frames[startFrame : startFrame+frameCount], nil
}

// LoadWave loads the raw recording <sentenceID>.wav for margin extraction.
// The file handle is closed before LoadWave returns.
func (ld *Loader) LoadWave(sentenceID string) (*sound.Wave, error) {
	path, err := ld.FindFile(sentenceID, ".wav")
	if err != nil {
		return nil, err
	}
	snd := &sound.Wave{}
	if err := snd.Load(path); err != nil {
		return nil, err
	}
	return snd, nil
}
