// Copyright (c) 2023, The SPLab Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Phone set configuration for voice-building feature extraction.
// Rather than package-level lookup tables built at init time, a Set is
// constructed explicitly at startup and passed into the exporters, so tests
// and alternate voices can substitute their own tables without process-wide
// side effects.
package phoneset

// Set holds the ordered phone inventory for one voice, silence membership,
// and display strings for pronunciation sources.
type Set struct {
	Phones     []string          `desc:"ordered phone inventory for this voice"`
	Silences   map[string]bool   `desc:"phones treated as silence units"`
	PronSource map[string]string `desc:"display string per pronunciation source tag, e.g. MainLexicon, LTS"`
	index      map[string]int
}

// NewSet builds a Set from an ordered phone list and the subset of phone
// names that are silence. The pronunciation-source display strings default
// to DefaultPronSources and can be replaced afterwards.
func NewSet(phones []string, silences []string) *Set {
	ps := &Set{
		Phones:     phones,
		Silences:   make(map[string]bool, len(silences)),
		PronSource: DefaultPronSources(),
		index:      make(map[string]int, len(phones)),
	}
	for i, p := range phones {
		ps.index[p] = i
	}
	for _, s := range silences {
		ps.Silences[s] = true
	}
	return ps
}

// Default returns the phone set of the standard en-US voice font, with the
// usual silence markers.
func Default() *Set {
	return NewSet([]string{"iy", "ih", "eh", "ae", "ax", "ah", "uw", "uh", "ao", "aa", "ey",
		"ay", "oy", "aw", "ow", "l", "r", "y", "w", "er", "m", "n", "ng",
		"ch", "jh", "dh", "b", "d", "dx", "g", "p", "t", "k", "z", "zh", "v", "f", "th", "s", "sh",
		"hh", "sil", "pau", "sp"},
		[]string{"sil", "pau", "sp"})
}

// DefaultPronSources gives the display strings for the places a phone's
// pronunciation can come from.
func DefaultPronSources() map[string]string {
	return map[string]string{
		"MainLexicon":  "main lexicon",
		"ExtraLexicon": "extra lexicon",
		"LTS":          "letter-to-sound rules",
		"Custom":       "custom pronunciation",
	}
}

// Index returns the position of the named phone in the inventory.
func (ps *Set) Index(name string) (int, bool) {
	i, ok := ps.index[name]
	return i, ok
}

// IsSilence reports whether the named phone is a silence phone.
func (ps *Set) IsSilence(name string) bool {
	return ps.Silences[name]
}
