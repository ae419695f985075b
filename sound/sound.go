// Copyright (c) 2023, The SPLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package sound

import (
	"fmt"
	"log"
	"os"

	"github.com/emer/etable/etensor"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Wave is one loaded corpus recording.
type Wave struct {
	Buf *audio.IntBuffer `inactive:"+"`
}

// Load loads the wav file and decodes it. The file handle is released
// before Load returns, so callers may load many recordings in sequence
// without holding descriptors.
func (snd *Wave) Load(fn string) error {
	f, err := os.Open(fn)
	if err != nil {
		log.Printf("sound.Load: couldn't open %s %v", fn, err)
		return err
	}
	defer f.Close()
	d := wav.NewDecoder(f)
	snd.Buf, err = d.FullPCMBuffer()
	if err != nil {
		log.Printf("sound.Load: couldn't decode %s %v", fn, err)
		return err
	}
	return nil
}

// SampleRate returns the sample rate of the sound or 0 if snd is nil
func (snd *Wave) SampleRate() int {
	if snd == nil {
		log.Printf("sound.SampleRate: Sound is nil")
		return 0
	}
	return int(snd.Buf.Format.SampleRate)
}

// Channels returns the number of channels in the wav data or 0 if snd is nil
func (snd *Wave) Channels() int {
	if snd == nil {
		log.Printf("sound.Channels: Sound is nil")
		return 0
	}
	return int(snd.Buf.Format.NumChannels)
}

// Samples converts one channel of the decoded data to normalized -1..1
// float values.
func (snd *Wave) Samples(channel int) []float64 {
	nFrames := snd.Buf.NumFrames()
	out := make([]float64, nFrames)
	nc := snd.Channels()
	if nc == 1 {
		channel = 0
	}
	for i := 0; i < nFrames; i++ {
		out[i] = snd.sampleFloat(i*nc + channel)
	}
	return out
}

// SamplesToTensor converts one channel of the decoded data into a 1-D
// tensor of normalized float values.
func (snd *Wave) SamplesToTensor(samples *etensor.Float32, channel int) {
	vals := snd.Samples(channel)
	samples.SetShape([]int{len(vals)}, nil, nil)
	for i, v := range vals {
		samples.SetFloat1D(i, v)
	}
}

func (snd *Wave) sampleFloat(idx int) float64 {
	buf := snd.Buf
	switch buf.SourceBitDepth {
	case 32:
		return float64(buf.Data[idx]) / float64(0x7FFFFFFF)
	case 24:
		return float64(buf.Data[idx]) / float64(0x7FFFFF)
	case 16:
		return float64(buf.Data[idx]) / float64(0x7FFF)
	case 8:
		return float64(buf.Data[idx]) / float64(0x7F)
	}
	return 0
}

// Margins defines the raw-sample windows cut around unit boundaries for
// cross-correlation continuity checks.
type Margins struct {
	MarginSamples int `def:"160" desc:"margin length in samples -- tail windows are this long, head windows twice this long"`
}

// Defaults initializes the margin length for 16kHz recordings.
func (mg *Margins) Defaults() {
	mg.MarginSamples = 160
}

// TailWindow extracts the window of MarginSamples samples centered
// MarginSamples/2 before the unit end boundary, i.e. the last MarginSamples
// samples of the unit. Recordings are pre-validated to be long enough, so a
// window running past the sample bounds is a precondition violation.
func (mg *Margins) TailWindow(samples []float64, endSample int) []float64 {
	lo := endSample - mg.MarginSamples
	if lo < 0 || endSample > len(samples) {
		panic(fmt.Sprintf("sound: tail margin [%d,%d) outside recording of %d samples", lo, endSample, len(samples)))
	}
	out := make([]float64, mg.MarginSamples)
	copy(out, samples[lo:endSample])
	return out
}

// HeadWindow extracts the window spanning MarginSamples before to
// MarginSamples after the unit start boundary, 2*MarginSamples total.
func (mg *Margins) HeadWindow(samples []float64, startSample int) []float64 {
	lo := startSample - mg.MarginSamples
	hi := startSample + mg.MarginSamples
	if lo < 0 || hi > len(samples) {
		panic(fmt.Sprintf("sound: head margin [%d,%d) outside recording of %d samples", lo, hi, len(samples)))
	}
	out := make([]float64, 2*mg.MarginSamples)
	copy(out, samples[lo:hi])
	return out
}
