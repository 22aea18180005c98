// Package mastering implements the stateful per-chunk DSP pipeline (spec
// §4.5): 31-band graphic EQ, compressor, optional multiband pass, level
// gain, harmonic enhancement and soft limiter, in that fixed order. Filter
// and envelope state persists across chunks of the same stream to avoid
// boundary clicks, owned exclusively by one ChunkProcessor at a time.
package mastering

import "math"

// biquad is a direct-form-I IIR biquad filter with persistent state,
// parameterized via the RBJ Audio EQ Cookbook peaking-filter formulas.
type biquad struct {
	b0, b1, b2 float64
	a1, a2     float64
	x1, x2     float64
	y1, y2     float64
}

// newPeakingBiquad builds a peaking EQ biquad for center frequency f0 (Hz),
// Q and gain (dB) at sample rate fs (Hz).
func newPeakingBiquad(f0, fs, q, gainDB float64) *biquad {
	if f0 <= 0 {
		f0 = 20
	}
	if f0 >= fs/2 {
		f0 = fs/2 - 1
	}
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * f0 / fs
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)

	b0 := 1 + alpha*a
	b1 := -2 * cosw0
	b2 := 1 - alpha*a
	a0 := 1 + alpha/a
	a1 := -2 * cosw0
	a2 := 1 - alpha/a

	return &biquad{
		b0: b0 / a0, b1: b1 / a0, b2: b2 / a0,
		a1: a1 / a0, a2: a2 / a0,
	}
}

// newLowpassBiquad builds a Butterworth-Q lowpass biquad, used by the
// multiband crossover.
func newLowpassBiquad(f0, fs float64) *biquad {
	if f0 <= 0 {
		f0 = 20
	}
	if f0 >= fs/2 {
		f0 = fs/2 - 1
	}
	const q = 0.7071067811865476
	w0 := 2 * math.Pi * f0 / fs
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)

	b0 := (1 - cosw0) / 2
	b1 := 1 - cosw0
	b2 := (1 - cosw0) / 2
	a0 := 1 + alpha
	a1 := -2 * cosw0
	a2 := 1 - alpha

	return &biquad{
		b0: b0 / a0, b1: b1 / a0, b2: b2 / a0,
		a1: a1 / a0, a2: a2 / a0,
	}
}

// newHighpassBiquad builds a Butterworth-Q highpass biquad.
func newHighpassBiquad(f0, fs float64) *biquad {
	if f0 <= 0 {
		f0 = 20
	}
	if f0 >= fs/2 {
		f0 = fs/2 - 1
	}
	const q = 0.7071067811865476
	w0 := 2 * math.Pi * f0 / fs
	alpha := math.Sin(w0) / (2 * q)
	cosw0 := math.Cos(w0)

	b0 := (1 + cosw0) / 2
	b1 := -(1 + cosw0)
	b2 := (1 + cosw0) / 2
	a0 := 1 + alpha
	a1 := -2 * cosw0
	a2 := 1 - alpha

	return &biquad{
		b0: b0 / a0, b1: b1 / a0, b2: b2 / a0,
		a1: a1 / a0, a2: a2 / a0,
	}
}

// newHighShelfBiquad builds a high-shelf biquad, used by the harmonic
// exciter to add brightness above f0.
func newHighShelfBiquad(f0, fs, gainDB float64) *biquad {
	if f0 <= 0 {
		f0 = 20
	}
	if f0 >= fs/2 {
		f0 = fs/2 - 1
	}
	a := math.Pow(10, gainDB/40)
	w0 := 2 * math.Pi * f0 / fs
	cosw0 := math.Cos(w0)
	sinw0 := math.Sin(w0)
	const s = 1.0
	alpha := sinw0 / 2 * math.Sqrt((a+1/a)*(1/s-1)+2)
	twoSqrtAAlpha := 2 * math.Sqrt(a) * alpha

	b0 := a * ((a + 1) + (a-1)*cosw0 + twoSqrtAAlpha)
	b1 := -2 * a * ((a - 1) + (a+1)*cosw0)
	b2 := a * ((a + 1) + (a-1)*cosw0 - twoSqrtAAlpha)
	a0 := (a + 1) - (a-1)*cosw0 + twoSqrtAAlpha
	a1 := 2 * ((a - 1) - (a+1)*cosw0)
	a2 := (a + 1) - (a-1)*cosw0 - twoSqrtAAlpha

	return &biquad{
		b0: b0 / a0, b1: b1 / a0, b2: b2 / a0,
		a1: a1 / a0, a2: a2 / a0,
	}
}

// process filters one sample, updating persistent state.
func (f *biquad) process(x float64) float64 {
	y := f.b0*x + f.b1*f.x1 + f.b2*f.x2 - f.a1*f.y1 - f.a2*f.y2
	f.x2, f.x1 = f.x1, x
	f.y2, f.y1 = f.y1, y
	return y
}

// reset clears filter state (used after a malformed-input passthrough to
// avoid propagating NaN/Inf through subsequent chunks).
func (f *biquad) reset() {
	f.x1, f.x2, f.y1, f.y2 = 0, 0, 0, 0
}
