package scanning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Coordinator runs extractions with a hard timeout and allows at most one
// in-flight extraction per image key. Starting a new extraction for a key
// cancels the previous one, whose caller gets ErrSuperseded.
type Coordinator struct {
	extractor TextExtractor
	timeout   time.Duration

	mu       sync.Mutex
	seq      uint64
	inflight map[string]flight
}

type flight struct {
	id     uint64
	cancel context.CancelCauseFunc
}

type extractResult struct {
	text string
	err  error
}

// NewCoordinator wraps extractor. A non-positive timeout uses DefaultTimeout.
func NewCoordinator(extractor TextExtractor, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Coordinator{
		extractor: extractor,
		timeout:   timeout,
		inflight:  make(map[string]flight),
	}
}

// Extract reads the text of one image. key identifies the capture; an
// empty key never supersedes anything.
func (c *Coordinator) Extract(ctx context.Context, key string, imageData []byte, contentType string) (string, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	id := c.begin(key, cancel)
	defer c.end(key, id, cancel)

	ctx, stop := context.WithTimeoutCause(ctx, c.timeout, ErrTimeout)
	defer stop()

	start := time.Now()
	// Buffered so a late result from an extractor that ignores ctx
	// does not block its goroutine forever.
	done := make(chan extractResult, 1)
	go func() {
		text, err := c.extractor.ExtractText(ctx, imageData, contentType)
		done <- extractResult{text: text, err: err}
	}()

	select {
	case res := <-done:
		if cause := context.Cause(ctx); cause != nil && res.err != nil {
			return "", c.failed(key, start, cause)
		}
		if res.err != nil {
			return "", c.failed(key, start, res.err)
		}
		slog.Debug("Extracted receipt text", "key", key, "chars", len(res.text), "duration", time.Since(start))
		return res.text, nil
	case <-ctx.Done():
		return "", c.failed(key, start, context.Cause(ctx))
	}
}

func (c *Coordinator) failed(key string, start time.Time, err error) error {
	switch {
	case errors.Is(err, ErrSuperseded):
		slog.Info("Text extraction superseded", "key", key)
	case errors.Is(err, ErrTimeout):
		slog.Warn("Text extraction timed out", "key", key, "timeout", c.timeout)
	default:
		slog.Error("Text extraction failed", "key", key, "duration", time.Since(start), "error", err)
	}
	return fmt.Errorf("extracting text: %w", err)
}

func (c *Coordinator) begin(key string, cancel context.CancelCauseFunc) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seq++
	if key == "" {
		return c.seq
	}
	if prev, ok := c.inflight[key]; ok {
		prev.cancel(ErrSuperseded)
	}
	c.inflight[key] = flight{id: c.seq, cancel: cancel}
	return c.seq
}

func (c *Coordinator) end(key string, id uint64, cancel context.CancelCauseFunc) {
	cancel(nil)

	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.inflight[key]; ok && cur.id == id {
		delete(c.inflight, key)
	}
}

// InFlight reports how many keyed extractions are running.
func (c *Coordinator) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.inflight)
}

// Close closes the underlying extractor.
func (c *Coordinator) Close() error {
	return c.extractor.Close()
}
