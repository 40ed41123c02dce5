package resource

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControllerDefaults(t *testing.T) {
	c := NewController(Config{})
	assert.Equal(t, 1, c.MaxEmbedWorkers())

	// Unlimited IO never blocks.
	require.NoError(t, c.WaitIO(context.Background(), 1<<30))
}

func TestNilControllerIsNoop(t *testing.T) {
	var c *Controller
	assert.Equal(t, 1, c.MaxEmbedWorkers())
	assert.NoError(t, c.AcquireEmbedSlot(context.Background()))
	c.ReleaseEmbedSlot()
	assert.NoError(t, c.WaitIO(context.Background(), 123))
}

func TestEmbedSlots(t *testing.T) {
	ctx := context.Background()
	c := NewController(Config{MaxEmbedWorkers: 2})

	require.NoError(t, c.AcquireEmbedSlot(ctx))
	require.NoError(t, c.AcquireEmbedSlot(ctx))

	// Third acquisition must block until a slot is released.
	blocked, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.Error(t, c.AcquireEmbedSlot(blocked))

	c.ReleaseEmbedSlot()
	require.NoError(t, c.AcquireEmbedSlot(ctx))

	c.ReleaseEmbedSlot()
	c.ReleaseEmbedSlot()
}

func TestWaitIOSplitsLargeRequests(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1024})

	// A request larger than the burst must not fail outright.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, c.WaitIO(ctx, 1536))
}

func TestWaitIOCanceled(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, c.WaitIO(ctx, 100))
}
