package main

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	welchSegment = 256
	psdMin       = 0.5
	psdMax       = 30.0
)

var ErrSegmentTooShort = errors.New("signal shorter than one welch segment")

type Band struct {
	Name string
	Low  float64
	High float64
}

var bands = []Band{
	{"delta", 0.5, 4.5},
	{"theta", 4.5, 8.5},
	{"alpha", 8.5, 11.5},
	{"sigma", 11.5, 15.5},
	{"beta", 15.5, 30},
}

// Spectrum is the power spectral density of one channel of one epoch.
type Spectrum struct {
	Freqs []float64
	Power []float64
}

// welch estimates the one-sided power spectral density of x with
// non-overlapping Hamming-windowed segments, keeping [psdMin, psdMax] Hz.
type welch struct {
	fft    *fourier.FFT
	window []float64
	scale  float64
	freqs  []float64
	keep   []int
}

func newWelch(frequency float64) *welch {
	// periodic Hamming: the symmetric window one sample longer, truncated
	w := make([]float64, welchSegment+1)
	for i := range w {
		w[i] = 1
	}
	w = window.Hamming(w)[:welchSegment]
	var energy float64
	for _, v := range w {
		energy += v * v
	}
	e := &welch{
		fft:    fourier.NewFFT(welchSegment),
		window: w,
		scale:  1 / (frequency * energy),
	}
	for k := 0; k <= welchSegment/2; k++ {
		f := float64(k) * frequency / welchSegment
		if f >= psdMin && f <= psdMax {
			e.freqs = append(e.freqs, f)
			e.keep = append(e.keep, k)
		}
	}
	return e
}

func (e *welch) spectrum(x []float64) (Spectrum, error) {
	segments := len(x) / welchSegment
	if segments == 0 {
		return Spectrum{}, fmt.Errorf("%w: %d < %d samples", ErrSegmentTooShort, len(x), welchSegment)
	}
	power := make([]float64, len(e.keep))
	seg := make([]float64, welchSegment)
	var coeffs []complex128
	for s := 0; s < segments; s++ {
		copy(seg, x[s*welchSegment:(s+1)*welchSegment])
		mean := stat.Mean(seg, nil)
		for i := range seg {
			seg[i] = (seg[i] - mean) * e.window[i]
		}
		coeffs = e.fft.Coefficients(coeffs, seg)
		for j, k := range e.keep {
			c := coeffs[k]
			p := (real(c)*real(c) + imag(c)*imag(c)) * e.scale
			if k != 0 && k != welchSegment/2 {
				p *= 2
			}
			power[j] += p
		}
	}
	floats.Scale(1/float64(segments), power)
	return Spectrum{Freqs: e.freqs, Power: power}, nil
}

// normalize scales p in place so that it sums to 1.
func normalize(p []float64) {
	if sum := floats.Sum(p); sum != 0 {
		floats.Scale(1/sum, p)
	}
}

// bandPower averages s over [b.Low, b.High). NaN if no bin falls in the band.
func bandPower(s Spectrum, b Band) float64 {
	var in []float64
	for i, f := range s.Freqs {
		if f >= b.Low && f < b.High {
			in = append(in, s.Power[i])
		}
	}
	if len(in) == 0 {
		return math.NaN()
	}
	return stat.Mean(in, nil)
}

// epochFeatures computes normalised band powers for every epoch. Each row is
// band-major: delta for every channel, then theta, and so on.
func epochFeatures(epochs []Epoch, frequency float64) ([][]float64, error) {
	w := newWelch(frequency)
	rows := make([][]float64, 0, len(epochs))
	for _, ep := range epochs {
		channels := len(ep.Data)
		row := make([]float64, len(bands)*channels)
		for c, series := range ep.Data {
			s, err := w.spectrum(series)
			if err != nil {
				return nil, fmt.Errorf("epoch at %gs: %w", ep.Onset, err)
			}
			normalize(s.Power)
			for b, band := range bands {
				row[b*channels+c] = bandPower(s, band)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
