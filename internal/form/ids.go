package form

import (
	"encoding/binary"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// IDSource hands out field identifiers.  Implementations must never return
// the same value twice for one document.
type IDSource interface {
	NextID() int64
}

// Counter is a monotonic IDSource seeded from the wall clock in
// milliseconds.  Two calls inside the same millisecond still get distinct,
// increasing values.
type Counter struct {
	last atomic.Int64
	now  func() time.Time
}

// NewCounter returns a Counter that reads time from now, or time.Now when
// now is nil.
func NewCounter(now func() time.Time) *Counter {
	if now == nil {
		now = time.Now
	}
	return &Counter{now: now}
}

// NextID implements IDSource.
func (c *Counter) NextID() int64 {
	for {
		last := c.last.Load()
		next := c.now().UnixMilli()
		if next <= last {
			next = last + 1
		}
		if c.last.CompareAndSwap(last, next) {
			return next
		}
	}
}

// Observe moves the counter past id so ids loaded from a stored document
// are never handed out again.
func (c *Counter) Observe(id int64) {
	for {
		last := c.last.Load()
		if id <= last || c.last.CompareAndSwap(last, id) {
			return
		}
	}
}

// ID source kinds understood by NewIDSource.
const (
	IDsCounter = "counter"
	IDsUUID    = "uuid"
)

// NewIDSource returns a fresh source of the named kind.  Anything other
// than IDsUUID yields a clock-seeded Counter.
func NewIDSource(kind string) IDSource {
	if kind == IDsUUID {
		return UUIDSource{}
	}
	return NewCounter(nil)
}

// UUIDSource derives identifiers from random UUIDs, truncated to 53 bits so
// they survive a round trip through JavaScript numbers.
type UUIDSource struct{}

const jsSafeMask = 1<<53 - 1

// NextID implements IDSource.
func (UUIDSource) NextID() int64 {
	for {
		u := uuid.New()
		id := int64(binary.BigEndian.Uint64(u[:8]) & jsSafeMask)
		if id != 0 {
			return id
		}
	}
}
