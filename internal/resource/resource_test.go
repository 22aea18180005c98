package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestNewStoresZeroSampleBeforeStart(t *testing.T) {
	m := New(time.Second, 90, 90)
	s := m.Latest()
	assert.Equal(t, float64(0), s.CPUPercent)
}

func TestStartPopulatesSampleImmediately(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("testing.(*T).Run"))

	m := New(time.Hour, 90, 90)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	s := m.Latest()
	assert.GreaterOrEqual(t, s.MemUsedPercent, float64(0))
}

func TestExceededReflectsLowThresholds(t *testing.T) {
	m := New(time.Hour, 0, 0)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	assert.True(t, m.Exceeded())
}

func TestExceededFalseWithHighThresholds(t *testing.T) {
	m := New(time.Hour, 100, 100)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	defer m.Stop()

	assert.False(t, m.Exceeded())
}
