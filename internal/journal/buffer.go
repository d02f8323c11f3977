package journal

import "sync"

// Buffer is a thread-safe ring of records that doubles its capacity when
// it reaches 70% full, up to a hard limit. Past the limit new records are
// dropped instead of grown into, keeping memory bounded when the database
// falls behind.
type Buffer struct {
	mu       sync.Mutex
	buf      []Record
	head     int // read position
	tail     int // write position
	count    int
	capacity int
	limit    int
	closed   bool

	// Stats
	totalAccepted int64
	totalDrained  int64
	totalDropped  int64
	resizeCount   int
}

// NewBuffer creates a buffer with the given initial capacity. The buffer
// grows on demand up to 8x its initial capacity.
func NewBuffer(initialCapacity int) *Buffer {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	return &Buffer{
		buf:      make([]Record, initialCapacity),
		capacity: initialCapacity,
		limit:    initialCapacity * 8,
	}
}

// Push adds a record. Returns false when the record was dropped, either
// because the buffer is closed or because it is full at its growth limit.
func (b *Buffer) Push(rec Record) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		b.totalDropped++
		return false
	}

	// Grow before hitting 70% occupancy, while under the limit.
	threshold := (b.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if b.count+1 >= threshold && b.capacity < b.limit {
		b.grow()
	}
	if b.count == b.capacity {
		b.totalDropped++
		return false
	}

	b.buf[b.tail] = rec
	b.tail = (b.tail + 1) % b.capacity
	b.count++
	b.totalAccepted++
	return true
}

// Drain removes up to max records, oldest first. Returns nil when empty.
func (b *Buffer) Drain(max int) []Record {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 {
		return nil
	}

	n := b.count
	if max > 0 && max < n {
		n = max
	}

	out := make([]Record, n)
	for i := 0; i < n; i++ {
		out[i] = b.buf[b.head]
		b.buf[b.head] = Record{}
		b.head = (b.head + 1) % b.capacity
		b.count--
		b.totalDrained++
	}
	return out
}

// Close marks the buffer closed. Subsequent pushes are dropped; already
// buffered records remain drainable.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
}

// Len returns the number of buffered records.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Cap returns the current capacity.
func (b *Buffer) Cap() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capacity
}

// Stats returns buffer counters.
func (b *Buffer) Stats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BufferStats{
		Count:         b.count,
		Capacity:      b.capacity,
		TotalAccepted: b.totalAccepted,
		TotalDrained:  b.totalDrained,
		TotalDropped:  b.totalDropped,
		ResizeCount:   b.resizeCount,
	}
}

// BufferStats contains buffer counters.
type BufferStats struct {
	Count         int
	Capacity      int
	TotalAccepted int64
	TotalDrained  int64
	TotalDropped  int64
	ResizeCount   int
}

// grow doubles capacity, clamped to the limit. Must hold the lock.
func (b *Buffer) grow() {
	newCapacity := b.capacity * 2
	if newCapacity > b.limit {
		newCapacity = b.limit
	}
	if newCapacity == b.capacity {
		return
	}
	newBuf := make([]Record, newCapacity)

	if b.count > 0 {
		if b.head < b.tail {
			copy(newBuf, b.buf[b.head:b.tail])
		} else {
			n := copy(newBuf, b.buf[b.head:])
			copy(newBuf[n:], b.buf[:b.tail])
		}
	}

	b.buf = newBuf
	b.head = 0
	b.tail = b.count
	b.capacity = newCapacity
	b.resizeCount++
}
