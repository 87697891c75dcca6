// Package message implements the data message object that flows between
// processes: a tagged byte buffer readable/writable as a stream, plus a
// positional list of transferable, non-serialisable runtime resources.
package message

import (
	"fmt"
	"io"
)

// Resource is the closed set of transferable, non-byte objects a
// DataMessage can carry across a plugin-transform boundary (a compiled wasm
// module, a TCP/UDP/TLS connection, ...). Modelled as Go's `any` with
// type-asserted take-out, mirroring the dynamically-typed `Arc<dyn Any>`
// slot the source uses — TakeResource performs the downcast.
type Resource = any

// DataMessage is a tagged byte buffer with a movable read pointer and a
// positionally-stable list of resource slots. It implements io.Reader and
// io.Writer.
type DataMessage struct {
	tag       *int64
	readPtr   int
	buffer    []byte
	resources []*Resource
}

// New creates an empty message with the given tag (nil for untagged) and
// initial buffer capacity.
func New(tag *int64, bufferCapacity int) *DataMessage {
	return &DataMessage{tag: tag, buffer: make([]byte, 0, bufferCapacity)}
}

// NewFromBytes creates a message whose buffer is initialised directly from
// buf (copied).
func NewFromBytes(tag *int64, buf []byte) *DataMessage {
	b := append([]byte(nil), buf...)
	return &DataMessage{tag: tag, buffer: b}
}

// Tag returns the message's tag, if any.
func (m *DataMessage) Tag() *int64 { return m.tag }

// Buffer returns the message's buffer contents.
func (m *DataMessage) Buffer() []byte { return m.buffer }

// ResourcesIsEmpty reports whether no resources have ever been added.
func (m *DataMessage) ResourcesIsEmpty() bool { return len(m.resources) == 0 }

// Size is the current buffer length.
func (m *DataMessage) Size() int { return len(m.buffer) }

// IntoParts consumes the message, returning its tag and buffer. Resources
// are not exposed here — they have already been taken by their owners, or
// are dropped with the message.
func (m *DataMessage) IntoParts() (*int64, []byte) {
	return m.tag, m.buffer
}

// Write appends buf to the buffer. It always succeeds and reports the
// number of bytes written, equal to len(buf).
func (m *DataMessage) Write(buf []byte) (int, error) {
	m.buffer = append(m.buffer, buf...)
	return len(buf), nil
}

// Read copies from buffer[readPtr:] into dst, advancing readPtr by the
// number of bytes transferred. It returns 0, nil at end of buffer, and
// errors only when readPtr has been seeked past the buffer's length.
func (m *DataMessage) Read(dst []byte) (int, error) {
	if m.readPtr > len(m.buffer) {
		return 0, fmt.Errorf("message: read past end of buffer (read_ptr=%d, len=%d): %w", m.readPtr, len(m.buffer), io.ErrUnexpectedEOF)
	}
	n := copy(dst, m.buffer[m.readPtr:])
	m.readPtr += n
	return n, nil
}

// Seek sets readPtr to offset. Out-of-range seeks are not rejected here; the
// next Read either returns 0 (offset == len) or errors (offset > len).
func (m *DataMessage) Seek(offset int) {
	m.readPtr = offset
}

// AddResource appends a resource and returns its new, monotonically
// increasing index.
func (m *DataMessage) AddResource(r Resource) int {
	m.resources = append(m.resources, &r)
	return len(m.resources) - 1
}

// TakeResource removes the resource at index if present and assignable to
// T, leaving a stable nil hole in its place so unrelated indices never
// shift. If the slot is empty, out of range, or holds a different type, the
// slot (if any) is left untouched and ok is false.
func TakeResource[T any](m *DataMessage, index int) (value T, ok bool) {
	if index < 0 || index >= len(m.resources) {
		return value, false
	}
	slot := m.resources[index]
	if slot == nil {
		return value, false
	}
	v, isT := (*slot).(T)
	if !isT {
		return value, false
	}
	m.resources[index] = nil
	return v, true
}

// Message is the closed sum type: a Data message, a LinkDied notification
// (carrying the dead link's optional tag), or a ProcessDied notification
// (carrying the dead process's id).
type Message struct {
	data       *DataMessage
	linkDied   bool
	linkTag    *int64
	processDied bool
	pid        uint64
}

// Data wraps a DataMessage as a Message.
func Data(d *DataMessage) Message { return Message{data: d} }

// LinkDied builds a Message for a link-death signal turned into a message.
func LinkDied(tag *int64) Message { return Message{linkDied: true, linkTag: tag} }

// ProcessDied builds a Message for a process-death notification.
func ProcessDied(pid uint64) Message { return Message{processDied: true, pid: pid} }

// AsData returns the inner DataMessage and true if m is a Data message.
func (m Message) AsData() (*DataMessage, bool) {
	if m.data != nil {
		return m.data, true
	}
	return nil, false
}

// Tag returns the inner tag for Data and LinkDied, nil for ProcessDied.
func (m Message) Tag() *int64 {
	switch {
	case m.data != nil:
		return m.data.Tag()
	case m.linkDied:
		return m.linkTag
	default:
		return nil
	}
}

// ProcessID returns the dead process's id, only for ProcessDied messages.
func (m Message) ProcessID() (uint64, bool) {
	if m.processDied {
		return m.pid, true
	}
	return 0, false
}
