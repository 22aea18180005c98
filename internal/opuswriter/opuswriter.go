package opuswriter

import (
	"bytes"

	"github.com/thesyncim/gopus"

	"github.com/auralis/auralis-core/internal/errors"
)

// EncodeSampleRate is the only rate close to Auralis's canonical 44.1kHz
// that libopus-style encoders accept; PCM is resampled to this rate before
// encoding. OpusHead still records the caller's original rate (spec §4.2
// calls out 44_100 as the nominal argument to encode).
const EncodeSampleRate = 48000

// BitrateKbps and Complexity are the fixed encoder parameters spec §4.2
// specifies: 192 kbps VBR, complexity 10, application=audio.
const (
	BitrateKbps = 192
	Complexity  = 10
)

const frameDurationMs = 20

// maxPacketBytes bounds a single Opus frame's encoded size; 192kbps at 20ms
// tops out around 480 bytes, so this leaves ample headroom.
const maxPacketBytes = 4000

// Encode converts interleaved float32 PCM at sr Hz into a WebM/Opus blob.
// Mono input is duplicated to stereo first. Each call constructs a fresh
// encoder, so Encode is safe for concurrent use (spec §4.2).
func Encode(pcm []float32, channels, sr int) ([]byte, error) {
	if channels == 1 {
		pcm = monoToStereo(pcm)
		channels = 2
	}
	if channels != 2 {
		return nil, errors.Newf("opuswriter: unsupported channel count %d", channels).
			Component("opuswriter").
			Category(errors.CategoryEncode).
			Build()
	}

	resampled := resampleLinear(pcm, channels, sr, EncodeSampleRate)

	enc, err := gopus.NewEncoder(EncodeSampleRate, channels, gopus.ApplicationAudio)
	if err != nil {
		return nil, wrapEncodeErr(err)
	}
	if err := enc.SetBitrate(BitrateKbps * 1000); err != nil {
		return nil, wrapEncodeErr(err)
	}
	if err := enc.SetComplexity(Complexity); err != nil {
		return nil, wrapEncodeErr(err)
	}

	frameSize := EncodeSampleRate / 1000 * frameDurationMs // 960 samples @48kHz/20ms
	totalFrames := len(resampled) / channels

	var clusterBlocks bytes.Buffer
	relMs := int16(0)
	packet := make([]byte, maxPacketBytes)

	for start := 0; start < totalFrames; start += frameSize {
		frame := make([]float32, frameSize*channels)
		for i := 0; i < frameSize; i++ {
			srcIdx := start + i
			if srcIdx >= totalFrames {
				break
			}
			for c := 0; c < channels; c++ {
				frame[i*channels+c] = resampled[srcIdx*channels+c]
			}
		}

		n, err := enc.Encode(frame, packet)
		if err != nil {
			return nil, wrapEncodeErr(err)
		}
		if n == 0 {
			// encoder lookahead buffering, nothing to emit yet this frame
			relMs += frameDurationMs
			continue
		}

		clusterBlocks.Write(buildSimpleBlock(relMs, packet[:n]))
		relMs += frameDurationMs
	}

	var out bytes.Buffer
	out.Write(buildInitSegment(uint8(channels), uint32(sr)))
	out.Write(buildCluster(0, clusterBlocks.Bytes()))
	return out.Bytes(), nil
}

func wrapEncodeErr(err error) error {
	return errors.Wrap(err).
		Component("opuswriter").
		Category(errors.CategoryEncode).
		Context("stage", "gopus encode").
		Build()
}

func monoToStereo(mono []float32) []float32 {
	out := make([]float32, len(mono)*2)
	for i, v := range mono {
		out[i*2] = v
		out[i*2+1] = v
	}
	return out
}

// resampleLinear resamples interleaved PCM from srcRate to dstRate via
// linear interpolation per channel. Used to bridge Auralis's 44.1kHz
// canonical rate to the encoder's required 48kHz.
func resampleLinear(src []float32, channels, srcRate, dstRate int) []float32 {
	if srcRate == dstRate || srcRate <= 0 {
		return src
	}
	srcFrames := len(src) / channels
	ratio := float64(srcRate) / float64(dstRate)
	dstFrames := int(float64(srcFrames) / ratio)
	out := make([]float32, dstFrames*channels)

	for i := 0; i < dstFrames; i++ {
		srcPos := float64(i) * ratio
		i0 := int(srcPos)
		i1 := i0 + 1
		frac := float32(srcPos - float64(i0))
		if i1 >= srcFrames {
			i1 = srcFrames - 1
		}
		if i0 >= srcFrames {
			i0 = srcFrames - 1
		}
		for c := 0; c < channels; c++ {
			a := src[i0*channels+c]
			b := src[i1*channels+c]
			out[i*channels+c] = a + (b-a)*frac
		}
	}
	return out
}
