package pcm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBufferPoolGetPutTiers(t *testing.T) {
	pool := NewBufferPool(BufferPoolConfig{
		SmallBufferSize:  1024,
		MediumBufferSize: 8192,
		LargeBufferSize:  1 << 20,
		EnableMetrics:    true,
	})

	small := pool.Get(256)
	require.Equal(t, 256, small.Len())

	medium := pool.Get(4096)
	require.Equal(t, 4096, medium.Len())

	large := pool.Get(1 << 19)
	require.Equal(t, 1<<19, large.Len())

	pool.Put(small)
	pool.Put(medium)
	pool.Put(large)

	stats := pool.Stats()
	assert.Equal(t, 3, stats.TotalBuffers)
	assert.Equal(t, 0, stats.ActiveBuffers)
}

func TestBufferResizeGrows(t *testing.T) {
	pool := NewBufferPool(BufferPoolConfig{SmallBufferSize: 16, MediumBufferSize: 32, LargeBufferSize: 64})
	b := pool.Get(8)
	require.NoError(t, b.Resize(48))
	assert.Equal(t, 48, b.Len())
	assert.GreaterOrEqual(t, b.Cap(), 48)
}

func TestBufferSliceOutOfRange(t *testing.T) {
	pool := NewBufferPool(BufferPoolConfig{SmallBufferSize: 16})
	b := pool.Get(16)
	_, err := b.Slice(-1, 4)
	assert.Error(t, err)
	_, err = b.Slice(0, 32)
	assert.Error(t, err)
}

func TestBufferAcquireReleaseReturnsToPool(t *testing.T) {
	pool := NewBufferPool(BufferPoolConfig{SmallBufferSize: 16})
	b := pool.Get(16)
	b.Acquire()
	b.Release()
	// still referenced once more (the initial Get ref)
	b.Release()
	assert.Equal(t, 0, b.Len())
}

type fakeProcessor struct {
	id string
}

func (f *fakeProcessor) ID() string { return f.id }
func (f *fakeProcessor) Process(ctx context.Context, input *Samples) (*Samples, error) {
	return input, nil
}
func (f *fakeProcessor) GetRequiredFormat() *Format { return nil }
func (f *fakeProcessor) GetOutputFormat(in Format) Format { return in }

func TestProcessorChainOrderingAndDuplicateRejection(t *testing.T) {
	chain := NewProcessorChain()
	require.NoError(t, chain.AddProcessor(&fakeProcessor{id: "a"}))
	require.NoError(t, chain.AddProcessor(&fakeProcessor{id: "b"}))
	assert.Error(t, chain.AddProcessor(&fakeProcessor{id: "a"}))

	out, err := chain.Process(context.Background(), &Samples{Buffer: []byte{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, out.Buffer)

	require.NoError(t, chain.RemoveProcessor("a"))
	assert.Len(t, chain.GetProcessors(), 1)
	assert.ErrorIs(t, chain.RemoveProcessor("missing"), ErrProcessorNotFound)
}

func TestProcessorChainCancellation(t *testing.T) {
	chain := NewProcessorChain()
	require.NoError(t, chain.AddProcessor(&fakeProcessor{id: "a"}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := chain.Process(ctx, &Samples{})
	assert.ErrorIs(t, err, context.Canceled)
}
