// Package resource bounds what an ingestion run may consume: how many
// embeddings are computed concurrently and how fast image bytes are read
// from disk.
package resource

import (
	"context"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// Config holds resource limits.
type Config struct {
	// MaxEmbedWorkers is the maximum number of concurrent embedding
	// computations. If 0, defaults to 1 (sequential ingestion).
	MaxEmbedWorkers int64

	// IOLimitBytesPerSec is the maximum rate at which image files are
	// read during ingestion. If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller enforces ingestion resource limits.
type Controller struct {
	cfg Config

	embedSem  *semaphore.Weighted
	ioLimiter *rate.Limiter // nil if unlimited
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxEmbedWorkers <= 0 {
		cfg.MaxEmbedWorkers = 1
	}

	c := &Controller{
		cfg:      cfg,
		embedSem: semaphore.NewWeighted(cfg.MaxEmbedWorkers),
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// MaxEmbedWorkers returns the configured embedding concurrency.
func (c *Controller) MaxEmbedWorkers() int {
	if c == nil {
		return 1
	}
	return int(c.cfg.MaxEmbedWorkers)
}

// AcquireEmbedSlot blocks until an embedding slot is available or ctx is
// canceled.
func (c *Controller) AcquireEmbedSlot(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.embedSem.Acquire(ctx, 1)
}

// ReleaseEmbedSlot returns a previously acquired embedding slot.
func (c *Controller) ReleaseEmbedSlot() {
	if c == nil {
		return
	}
	c.embedSem.Release(1)
}

// WaitIO blocks until reading the given number of bytes fits the IO budget.
func (c *Controller) WaitIO(ctx context.Context, bytes int64) error {
	if c == nil || c.ioLimiter == nil || bytes <= 0 {
		return nil
	}

	// rate.Limiter caps a single reservation at its burst; split large
	// files into burst-sized waits.
	burst := int64(c.ioLimiter.Burst())
	for bytes > 0 {
		n := bytes
		if n > burst {
			n = burst
		}
		if err := c.ioLimiter.WaitN(ctx, int(n)); err != nil {
			return err
		}
		bytes -= n
	}
	return nil
}
