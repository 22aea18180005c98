// Package opuswriter encodes a mastered PCM chunk into a self-contained
// WebM/Opus blob (spec §4.2). The EBML muxer here is hand-rolled — the
// reference corpus carries no WebM muxing library, only this standalone
// streaming-session example (petervdpas/goop2's call/webm.go), whose
// element-ID table and vint/element encoding helpers are adapted below for
// a file-at-a-time (rather than live-streaming) Opus-only container.
package opuswriter

import (
	"bytes"
	"encoding/binary"
	"math"
)

func ebmlVint(v uint64) []byte {
	switch {
	case v < 0x7F:
		return []byte{byte(0x80 | v)}
	case v < 0x3FFF:
		return []byte{byte(0x40 | (v >> 8)), byte(v)}
	case v < 0x1FFFFF:
		return []byte{byte(0x20 | (v >> 16)), byte(v >> 8), byte(v)}
	default:
		return []byte{byte(0x10 | (v >> 24)), byte(v >> 16), byte(v >> 8), byte(v)}
	}
}

var ebmlUnkSize = []byte{0x01, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

func ebmlElem(id, data []byte) []byte {
	b := make([]byte, 0, len(id)+8+len(data))
	b = append(b, id...)
	b = append(b, ebmlVint(uint64(len(data)))...)
	return append(b, data...)
}

func ebmlUint(v uint64) []byte {
	if v == 0 {
		return []byte{0}
	}
	n := 0
	for x := v; x > 0; x >>= 8 {
		n++
	}
	b := make([]byte, n)
	for i := n - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}

func ebmlConcat(slices ...[]byte) []byte {
	n := 0
	for _, s := range slices {
		n += len(s)
	}
	b := make([]byte, 0, n)
	for _, s := range slices {
		b = append(b, s...)
	}
	return b
}

var (
	idEBML         = []byte{0x1A, 0x45, 0xDF, 0xA3}
	idEBMLVersion  = []byte{0x42, 0x86}
	idEBMLReadVer  = []byte{0x42, 0xF7}
	idEBMLMaxIDLen = []byte{0x42, 0xF2}
	idEBMLMaxSzLen = []byte{0x42, 0xF3}
	idDocType      = []byte{0x42, 0x82}
	idDocTypeVer   = []byte{0x42, 0x87}
	idDocTypeRdVer = []byte{0x42, 0x85}
	idSegment      = []byte{0x18, 0x53, 0x80, 0x67}
	idInfo         = []byte{0x15, 0x49, 0xA9, 0x66}
	idTcScale      = []byte{0x2A, 0xD7, 0xB1}
	idDuration     = []byte{0x44, 0x89}
	idMuxApp       = []byte{0x4D, 0x80}
	idWrtApp       = []byte{0x57, 0x41}
	idTracks       = []byte{0x16, 0x54, 0xAE, 0x6B}
	idTrackEntry   = []byte{0xAE}
	idTrackNum     = []byte{0xD7}
	idTrackUID     = []byte{0x73, 0xC5}
	idTrackType    = []byte{0x83}
	idCodecID      = []byte{0x86}
	idCodecPrv     = []byte{0x63, 0xA2}
	idAudio        = []byte{0xE1}
	idSampFreq     = []byte{0xB5}
	idChannels     = []byte{0x9F}
	idCluster      = []byte{0x1F, 0x43, 0xB6, 0x75}
	idTimecode     = []byte{0xE7}
	idSimpleBlock  = []byte{0xA3}
)

// opusHead builds the codec-private OpusHead block (RFC 7845 §5.1).
// inputSampleRate is informational only; the encoder may internally code
// at a libopus-supported rate regardless.
func opusHead(channels uint8, preSkip uint16, inputSampleRate uint32) []byte {
	b := make([]byte, 19)
	copy(b[0:8], "OpusHead")
	b[8] = 1 // version
	b[9] = channels
	binary.LittleEndian.PutUint16(b[10:12], preSkip)
	binary.LittleEndian.PutUint32(b[12:16], inputSampleRate)
	binary.LittleEndian.PutUint16(b[16:18], 0) // output gain
	b[18] = 0                                  // channel mapping family
	return b
}

// buildInitSegment returns the EBML header + Segment(unknown size) + Info +
// single-audio-track Tracks element.
func buildInitSegment(channels uint8, inputSampleRate uint32) []byte {
	var buf bytes.Buffer

	ebmlBody := ebmlConcat(
		ebmlElem(idEBMLVersion, ebmlUint(1)),
		ebmlElem(idEBMLReadVer, ebmlUint(1)),
		ebmlElem(idEBMLMaxIDLen, ebmlUint(4)),
		ebmlElem(idEBMLMaxSzLen, ebmlUint(8)),
		ebmlElem(idDocType, []byte("webm")),
		ebmlElem(idDocTypeVer, ebmlUint(2)),
		ebmlElem(idDocTypeRdVer, ebmlUint(2)),
	)
	buf.Write(ebmlElem(idEBML, ebmlBody))

	buf.Write(idSegment)
	buf.Write(ebmlUnkSize)

	infoBody := ebmlConcat(
		ebmlElem(idTcScale, ebmlUint(1000000)), // 1ms per timecode unit
		ebmlElem(idMuxApp, []byte("auralis")),
		ebmlElem(idWrtApp, []byte("auralis")),
	)
	buf.Write(ebmlElem(idInfo, infoBody))

	freqBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(freqBytes, math.Float32bits(48000.0))
	audioBody := ebmlConcat(
		ebmlElem(idSampFreq, freqBytes),
		ebmlElem(idChannels, ebmlUint(uint64(channels))),
	)
	trackEntry := ebmlConcat(
		ebmlElem(idTrackNum, ebmlUint(1)),
		ebmlElem(idTrackUID, ebmlUint(1)),
		ebmlElem(idTrackType, ebmlUint(2)), // 2 = audio
		ebmlElem(idCodecID, []byte("A_OPUS")),
		ebmlElem(idCodecPrv, opusHead(channels, 312, inputSampleRate)),
		ebmlElem(idAudio, audioBody),
	)
	buf.Write(ebmlElem(idTracks, ebmlElem(idTrackEntry, trackEntry)))

	return buf.Bytes()
}

// buildSimpleBlock wraps one Opus packet as a keyframe SimpleBlock (every
// Opus frame decodes independently, so all blocks are marked keyframes).
func buildSimpleBlock(relMs int16, data []byte) []byte {
	trackVint := ebmlVint(1)
	content := make([]byte, len(trackVint)+2+1+len(data))
	copy(content, trackVint)
	binary.BigEndian.PutUint16(content[len(trackVint):], uint16(relMs))
	content[len(trackVint)+2] = 0x80 // keyframe flag
	copy(content[len(trackVint)+3:], data)
	return ebmlElem(idSimpleBlock, content)
}

// buildCluster wraps a sequence of SimpleBlocks in one Cluster at
// clusterMs absolute timecode.
func buildCluster(clusterMs int64, blocks []byte) []byte {
	tcElem := ebmlElem(idTimecode, ebmlUint(uint64(clusterMs)))
	return ebmlElem(idCluster, ebmlConcat(tcElem, blocks))
}
