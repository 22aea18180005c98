package pcm

// ComponentPCM identifies this package in error context/telemetry.
const ComponentPCM = "pcm"

const (
	// DefaultSmallBufferSize fits a single 10ms frame at 44.1kHz stereo f32.
	DefaultSmallBufferSize = 4 * 1024
	// DefaultMediumBufferSize fits roughly one crossfade window.
	DefaultMediumBufferSize = 64 * 1024
	// DefaultLargeBufferSize fits a full 15s mastering chunk at 44.1kHz stereo f32.
	DefaultLargeBufferSize = 8 * 1024 * 1024

	// BufferGrowthFactor is the extra capacity reserved when Resize grows a buffer.
	BufferGrowthFactor = 1.1
)
