// Package decode implements the WaveformDecoder boundary: turning a catalog
// path into interleaved float32 PCM (spec §3.1). Sources above Auralis's
// canonical 44.1 kHz rate are downsampled to it; lower rates and the
// source channel count are kept. Dispatch is by file extension, one decoder per
// container, grounded on the teacher's readAudioData (WAV via go-audio) and
// extended to FLAC and MP3 using the rest of the pack's decoders.
package decode

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/tphakala/flac"

	"github.com/auralis/auralis-core/internal/errors"
)

// TargetSampleRate is Auralis's canonical internal rate (spec §3.1).
const TargetSampleRate = 44100

// Track is a fully decoded PCM track held in memory, downsampled to
// TargetSampleRate when the source rate was higher.
// Auralis chunks operate on seekable spans of a decoded track, so the whole
// file is materialized once at ChunkProcessor construction time.
type Track struct {
	Samples    []float32 // interleaved
	Channels   int
	SampleRate int
}

// DurationSeconds returns the track's length in seconds.
func (t *Track) DurationSeconds() float64 {
	if t.Channels == 0 || t.SampleRate == 0 {
		return 0
	}
	frames := len(t.Samples) / t.Channels
	return float64(frames) / float64(t.SampleRate)
}

// ReadSpan implements chunkops.Source over a fully decoded in-memory track.
// Reads are clipped to [0, duration) and zero-padded at either edge.
func (t *Track) ReadSpan(startS, endS float64) ([]float32, int, int) {
	if t.Channels == 0 || t.SampleRate == 0 || endS <= startS {
		return nil, t.Channels, t.SampleRate
	}
	totalFrames := len(t.Samples) / t.Channels
	startFrame := int(startS * float64(t.SampleRate))
	endFrame := int(endS * float64(t.SampleRate))

	wantFrames := endFrame - startFrame
	if wantFrames <= 0 {
		return nil, t.Channels, t.SampleRate
	}
	out := make([]float32, wantFrames*t.Channels)

	srcStart := startFrame
	srcEnd := endFrame
	dstStart := 0
	if srcStart < 0 {
		dstStart = -srcStart
		srcStart = 0
	}
	if srcEnd > totalFrames {
		srcEnd = totalFrames
	}
	if srcEnd > srcStart {
		copy(out[dstStart*t.Channels:], t.Samples[srcStart*t.Channels:srcEnd*t.Channels])
	}
	return out, t.Channels, t.SampleRate
}

// Decode reads path and returns a Track, downsampled to TargetSampleRate if
// the source rate is higher and left at the source rate otherwise. No
// mono/stereo conversion happens here: the Track keeps the source channel
// count, and callers fold it with ToMono/ToStereo at the point of use.
func Decode(path string) (*Track, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".wav":
		return decodeWAV(path)
	case ".flac":
		return decodeFLAC(path)
	case ".mp3":
		return decodeMP3(path)
	default:
		return nil, errors.Newf("unsupported audio container %q", ext).
			Component("decode").
			Category(errors.CategoryDecode).
			Context("path", path).
			Build()
	}
}

func decodeWAV(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapDecodeErr(path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return nil, errors.Newf("not a valid WAV file").
			Component("decode").Category(errors.CategoryDecode).Context("path", path).Build()
	}

	channels := int(dec.NumChans)
	if channels == 0 {
		channels = 1
	}
	srcRate := int(dec.SampleRate)

	var divisor float32
	switch dec.BitDepth {
	case 8:
		divisor = 128.0
	case 16:
		divisor = 32768.0
	case 24:
		divisor = 8388608.0
	case 32:
		divisor = 2147483648.0
	default:
		return nil, errors.Newf("unsupported WAV bit depth %d", dec.BitDepth).
			Component("decode").Category(errors.CategoryDecode).Context("path", path).Build()
	}

	buf := &audio.IntBuffer{
		Data:   make([]int, 65536),
		Format: &audio.Format{SampleRate: srcRate, NumChannels: channels},
	}

	samples := make([]float32, 0, 1<<20)
	for {
		n, rerr := dec.PCMBuffer(buf)
		if rerr != nil && rerr != io.EOF {
			return nil, wrapDecodeErr(path, rerr)
		}
		if n == 0 {
			break
		}
		for _, s := range buf.Data[:n] {
			samples = append(samples, float32(s)/divisor)
		}
		if rerr == io.EOF {
			break
		}
	}

	return resample(samples, channels, srcRate), nil
}

func decodeFLAC(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapDecodeErr(path, err)
	}
	defer f.Close()

	stream, err := flac.Decode(f)
	if err != nil {
		return nil, wrapDecodeErr(path, err)
	}

	channels := int(stream.Info.NChannels)
	if channels == 0 {
		channels = 2
	}
	srcRate := int(stream.Info.SampleRate)
	bps := int(stream.Info.BitsPerSample)
	divisor := float32(int64(1) << uint(bps-1))
	if divisor == 0 {
		divisor = 32768.0
	}

	samples := make([]float32, 0, 1<<20)
	for {
		frame, ferr := stream.ParseNext()
		if ferr == io.EOF {
			break
		}
		if ferr != nil {
			return nil, wrapDecodeErr(path, ferr)
		}
		nSamples := frame.Subframes[0].NSamples
		for i := 0; i < nSamples; i++ {
			for c := 0; c < channels; c++ {
				samples = append(samples, float32(frame.Subframes[c].Samples[i])/divisor)
			}
		}
	}

	return resample(samples, channels, srcRate), nil
}

func decodeMP3(path string) (*Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, wrapDecodeErr(path, err)
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, wrapDecodeErr(path, err)
	}

	const channels = 2 // go-mp3 always decodes to interleaved stereo 16-bit PCM
	srcRate := dec.SampleRate()

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, wrapDecodeErr(path, err)
	}

	samples := make([]float32, len(raw)/2)
	for i := range samples {
		lo := raw[i*2]
		hi := raw[i*2+1]
		v := int16(uint16(lo) | uint16(hi)<<8)
		samples[i] = float32(v) / 32768.0
	}

	return resample(samples, channels, srcRate), nil
}

func wrapDecodeErr(path string, err error) error {
	return errors.Wrap(err).
		Component("decode").
		Category(errors.CategoryDecode).
		Context("path", path).
		Build()
}

// resample downsamples src (never upsamples, per spec §3.1) to
// TargetSampleRate via linear interpolation on each channel independently.
func resample(src []float32, channels, srcRate int) *Track {
	if channels == 0 {
		channels = 2
	}
	if srcRate <= 0 {
		srcRate = TargetSampleRate
	}
	if srcRate <= TargetSampleRate {
		return &Track{Samples: src, Channels: channels, SampleRate: srcRate}
	}

	srcFrames := len(src) / channels
	ratio := float64(srcRate) / float64(TargetSampleRate)
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

	return &Track{Samples: out, Channels: channels, SampleRate: TargetSampleRate}
}

// ToMono averages stereo channels down to one, per spec §3.1.
func ToMono(t *Track) *Track {
	if t.Channels == 1 {
		return t
	}
	frames := len(t.Samples) / t.Channels
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < t.Channels; c++ {
			sum += t.Samples[i*t.Channels+c]
		}
		out[i] = sum / float32(t.Channels)
	}
	return &Track{Samples: out, Channels: 1, SampleRate: t.SampleRate}
}

// ToStereo duplicates a mono channel, per spec §3.1.
func ToStereo(t *Track) *Track {
	if t.Channels == 2 {
		return t
	}
	if t.Channels != 1 {
		return t
	}
	out := make([]float32, len(t.Samples)*2)
	for i, s := range t.Samples {
		out[i*2] = s
		out[i*2+1] = s
	}
	return &Track{Samples: out, Channels: 2, SampleRate: t.SampleRate}
}
