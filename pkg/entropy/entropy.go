// Package entropy computes Shannon entropy over byte data, expressed in
// bits per byte (0.0 for constant data up to 8.0 for uniformly random data).
package entropy

import "math"

// Sum returns the Shannon entropy of b. Empty input carries no
// information and yields 0.0. The result always lies in [0, 8].
func Sum(b []byte) float64 {
	if len(b) == 0 {
		return 0.0
	}

	var counts [256]int
	for _, c := range b {
		counts[c]++
	}

	var entropy float64
	total := float64(len(b))
	for _, count := range counts {
		if count == 0 {
			continue
		}
		px := float64(count) / total
		entropy += -px * math.Log2(px)
	}
	return entropy
}

// Accumulator computes entropy incrementally so large inputs can be
// streamed through it (e.g. via io.Copy) without buffering them whole.
type Accumulator struct {
	counts [256]int
	total  int
}

func (a *Accumulator) Write(b []byte) (int, error) {
	for _, c := range b {
		a.counts[c]++
	}
	a.total += len(b)
	return len(b), nil
}

// Sum returns the entropy of all bytes written so far.
func (a *Accumulator) Sum() float64 {
	if a.total == 0 {
		return 0.0
	}
	var entropy float64
	total := float64(a.total)
	for _, count := range a.counts {
		if count == 0 {
			continue
		}
		px := float64(count) / total
		entropy += -px * math.Log2(px)
	}
	return entropy
}

func (a *Accumulator) Reset() {
	*a = Accumulator{}
}
