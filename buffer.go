package reactor

import (
	"encoding/binary"
)

const (
	// initialBufferSize is the default payload capacity reserved by
	// NewBuffer, sized to fit a typical small message without growing.
	initialBufferSize = 1024
	// prependSize is headroom reserved at the front of a Buffer so a
	// length header can be written in place ahead of the payload,
	// without shifting the payload itself.
	prependSize = 8
)

// Buffer is a growable byte buffer with a read and write cursor, used for
// both a TcpConnection's accumulated input and its pending output.
// Buffer is not safe for concurrent use; every TcpConnection only ever
// touches its own buffers from its owning loop's goroutine.
type Buffer struct {
	data      []byte
	readerIdx int
	writerIdx int
}

// NewBuffer returns an empty Buffer with initialBufferSize of headroom
// beyond the reserved prepend area.
func NewBuffer() *Buffer {
	return NewBufferSize(initialBufferSize)
}

// NewBufferSize returns an empty Buffer with the given payload capacity
// reserved beyond the prepend area.
func NewBufferSize(size int) *Buffer {
	return &Buffer{
		data:      make([]byte, prependSize+size),
		readerIdx: prependSize,
		writerIdx: prependSize,
	}
}

// ReadableBytes returns how many unread bytes are currently buffered.
func (b *Buffer) ReadableBytes() int { return b.writerIdx - b.readerIdx }

// WritableBytes returns how much space remains before the buffer must
// grow on the next Append.
func (b *Buffer) WritableBytes() int { return len(b.data) - b.writerIdx }

// PrependableBytes returns how much of the reserved header region ahead
// of the readable data is still unused.
func (b *Buffer) PrependableBytes() int { return b.readerIdx }

// Peek returns the unread portion of the buffer without consuming it.
// The returned slice aliases the buffer's storage and is invalidated by
// the next mutating call.
func (b *Buffer) Peek() []byte { return b.data[b.readerIdx:b.writerIdx] }

// Retrieve consumes n bytes from the front of the readable region. An n
// of ReadableBytes or more consumes everything, as RetrieveAll does.
func (b *Buffer) Retrieve(n int) {
	if n < b.ReadableBytes() {
		b.readerIdx += n
		return
	}
	b.RetrieveAll()
}

// RetrieveAll consumes every unread byte, resetting both cursors to the
// start of the payload region.
func (b *Buffer) RetrieveAll() {
	b.readerIdx = prependSize
	b.writerIdx = prependSize
}

// RetrieveAllString consumes every unread byte and returns it as a
// string.
func (b *Buffer) RetrieveAllString() string {
	s := string(b.Peek())
	b.RetrieveAll()
	return s
}

// RetrieveAllBytes consumes every unread byte and returns a copy of it.
// The returned slice is independent of the buffer's backing array, so it
// stays valid across subsequent Append calls.
func (b *Buffer) RetrieveAllBytes() []byte {
	data := append([]byte(nil), b.Peek()...)
	b.RetrieveAll()
	return data
}

// Append appends data to the writable end, growing the buffer if
// necessary.
func (b *Buffer) Append(data []byte) {
	b.ensureWritable(len(data))
	b.writerIdx += copy(b.data[b.writerIdx:], data)
}

// AppendString appends s to the writable end.
func (b *Buffer) AppendString(s string) {
	b.Append([]byte(s))
}

// ensureWritable grows the buffer so at least n more bytes can be
// appended, first trying to reclaim space by shifting readable data down
// to the front of the payload region before allocating.
func (b *Buffer) ensureWritable(n int) {
	if b.WritableBytes() >= n {
		return
	}
	if b.PrependableBytes()-prependSize+b.WritableBytes() >= n {
		readable := b.ReadableBytes()
		copy(b.data[prependSize:], b.data[b.readerIdx:b.writerIdx])
		b.readerIdx = prependSize
		b.writerIdx = prependSize + readable
		return
	}
	needed := b.writerIdx + n
	grown := make([]byte, needed*2)
	copy(grown, b.data[:b.writerIdx])
	b.data = grown
}

// PrependInt32 writes a big-endian uint32 length header immediately
// ahead of the current readable region, consuming prepend headroom
// instead of shifting the payload. Used to frame a message with a fixed
// 4-byte length prefix without an extra copy.
func (b *Buffer) PrependInt32(v uint32) {
	b.readerIdx -= 4
	binary.BigEndian.PutUint32(b.data[b.readerIdx:], v)
}
