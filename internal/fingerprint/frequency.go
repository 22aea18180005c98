package fingerprint

// band is a half-open [lowHz, highHz) range.
type band struct {
	lowHz, highHz float64
}

// freqBands are the seven frequency groups spec §4.3 defines, in order
// sub_bass..air.
var freqBands = [7]band{
	{20, 60},
	{60, 250},
	{250, 500},
	{500, 2000},
	{2000, 4000},
	{4000, 6000},
	{6000, 20000},
}

// analyzeFrequencyBands computes |rFFT(mono)|² averaged over STFT frames,
// then sums energy into each of the seven bands and normalizes by total
// energy across all bands, giving each a 0..1 fraction of total spectral
// energy (spec §4.3).
func analyzeFrequencyBands(mono []float64, sampleRate int) (subBass, bass, lowMid, mid, upperMid, presence, air float64) {
	frames := frameMono(mono)
	if len(frames) == 0 {
		return neutralFrequency()
	}

	n := nextPow2(frameSize)
	binHz := float64(sampleRate) / float64(n)

	energies := make([]float64, len(freqBands))
	for _, frame := range frames {
		mag := magnitudeSpectrum(frame)
		for bi, b := range freqBands {
			loBin := int(b.lowHz / binHz)
			hiBin := int(b.highHz / binHz)
			if hiBin > len(mag) {
				hiBin = len(mag)
			}
			if loBin < 0 {
				loBin = 0
			}
			for k := loBin; k < hiBin; k++ {
				energies[bi] += mag[k] * mag[k]
			}
		}
	}

	total := 0.0
	for _, e := range energies {
		total += e
	}
	if total <= 0 {
		return neutralFrequency()
	}

	out := make([]float64, len(freqBands))
	for i, e := range energies {
		out[i] = clamp01(e / total)
	}
	return out[0], out[1], out[2], out[3], out[4], out[5], out[6]
}
