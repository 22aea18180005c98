package fingerprint

import "math/cmplx"

// fft computes the discrete Fourier transform of x in place using an
// iterative radix-2 Cooley-Tukey algorithm. len(x) must be a power of two;
// callers use nextPow2 to size their buffers. No third-party FFT library
// appears anywhere in the reference corpus, so this is hand-rolled on
// math/cmplx in the same spirit as the pack's only spectrogram
// implementation (STFT over a Hann-windowed, low-pass-filtered signal).
func fft(x []complex128) {
	n := len(x)
	if n <= 1 {
		return
	}

	for i, j := 1, 0; i < n; i++ {
		bit := n >> 1
		for ; j&bit != 0; bit >>= 1 {
			j ^= bit
		}
		j ^= bit
		if i < j {
			x[i], x[j] = x[j], x[i]
		}
	}

	for length := 2; length <= n; length <<= 1 {
		ang := -2 * 3.141592653589793 / float64(length)
		wlen := cmplx.Rect(1, ang)
		for i := 0; i < n; i += length {
			w := complex(1, 0)
			half := length / 2
			for k := 0; k < half; k++ {
				u := x[i+k]
				v := x[i+k+half] * w
				x[i+k] = u + v
				x[i+k+half] = u - v
				w *= wlen
			}
		}
	}
}

// nextPow2 returns the smallest power of two >= n (minimum 1).
func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// magnitudeSpectrum runs fft on a zero-padded, windowed real frame and
// returns the magnitude of the first half (DC..Nyquist) of the spectrum.
func magnitudeSpectrum(frame []float64) []float64 {
	n := nextPow2(len(frame))
	buf := make([]complex128, n)
	for i, v := range frame {
		buf[i] = complex(v, 0)
	}
	fft(buf)
	out := make([]float64, n/2+1)
	for i := range out {
		out[i] = cmplx.Abs(buf[i])
	}
	return out
}
