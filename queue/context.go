package queue

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ryswick/floodgate/mempool"
	"github.com/ryswick/floodgate/types"
)

// RequestContext carries one admitted request through the queues to a worker.
// It is exclusively owned by whichever queue or worker currently holds it;
// handoff is by pointer transfer under the queue lock, so none of its fields
// need their own synchronization except the release guard.
type RequestContext struct {
	id       types.RequestID
	handle   types.RequestHandle
	priority types.PriorityLevel

	createdAt  time.Time
	enqueuedAt time.Time
	timeout    time.Duration

	requestBuf    []byte
	responseBuf   []byte
	processingBuf []byte
	bufferSize    int

	processingStart time.Time
	processed       bool

	alloc    mempool.Allocator
	released atomic.Bool
}

// newRequestID generates a unique request identifier.
func newRequestID() types.RequestID {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return types.RequestID(RequestIDPrefix + raw[:8])
}

// ID returns the context's unique request identifier.
func (c *RequestContext) ID() types.RequestID { return c.id }

// Handle returns the underlying transport request handle.
func (c *RequestContext) Handle() types.RequestHandle { return c.handle }

// Priority returns the priority the context was admitted at.
func (c *RequestContext) Priority() types.PriorityLevel { return c.priority }

// Timeout returns the context's queue-residency timeout.
func (c *RequestContext) Timeout() time.Duration { return c.timeout }

// CreatedAt returns when the context was created.
func (c *RequestContext) CreatedAt() time.Time { return c.createdAt }

// BufferSize returns the usable size of the request and response buffers.
func (c *RequestContext) BufferSize() int { return c.bufferSize }

// RequestBuffer returns the request payload buffer. Nil for zero-size
// contexts.
func (c *RequestContext) RequestBuffer() []byte { return c.requestBuf }

// ResponseBuffer returns the response payload buffer. Nil for zero-size
// contexts.
func (c *RequestContext) ResponseBuffer() []byte { return c.responseBuf }

// Expired reports whether the context has been waiting longer than its
// timeout, measured from enqueue time (creation time if never enqueued).
func (c *RequestContext) Expired(now time.Time) bool {
	since := c.enqueuedAt
	if since.IsZero() {
		since = c.createdAt
	}
	return now.Sub(since) > c.timeout
}

// MarkProcessingStarted records the start of processing.
func (c *RequestContext) MarkProcessingStarted(now time.Time) {
	c.processingStart = now
}

// MarkProcessed records completion of processing.
func (c *RequestContext) MarkProcessed() { c.processed = true }

// Processed reports whether processing has completed.
func (c *RequestContext) Processed() bool { return c.processed }

// WaitTime returns how long the context sat queued before processing began.
func (c *RequestContext) WaitTime() time.Duration {
	if c.processingStart.IsZero() || c.enqueuedAt.IsZero() {
		return 0
	}
	return c.processingStart.Sub(c.enqueuedAt)
}

// AttachProcessingBuffer allocates an auxiliary buffer released together with
// the context. Any previous processing buffer is freed first.
func (c *RequestContext) AttachProcessingBuffer(size int, tier mempool.Tier) error {
	buf, err := c.alloc.Alloc(size, tier)
	if err != nil {
		return err
	}
	if c.processingBuf != nil {
		c.alloc.Free(c.processingBuf)
	}
	c.processingBuf = buf
	return nil
}

// ProcessingBuffer returns the auxiliary processing buffer, if attached.
func (c *RequestContext) ProcessingBuffer() []byte { return c.processingBuf }

// Release frees the context's buffers. Idempotent: every exit path may call
// it, including enqueue failure, and only the first call frees anything.
func (c *RequestContext) Release() {
	if c == nil || !c.released.CompareAndSwap(false, true) {
		return
	}
	if c.requestBuf != nil {
		c.alloc.Free(c.requestBuf)
		c.requestBuf = nil
	}
	if c.responseBuf != nil {
		c.alloc.Free(c.responseBuf)
		c.responseBuf = nil
	}
	if c.processingBuf != nil {
		c.alloc.Free(c.processingBuf)
		c.processingBuf = nil
	}
}

// Released reports whether Release has run.
func (c *RequestContext) Released() bool { return c.released.Load() }
