// Package message holds the relay payload shared between outbound queues.
package message

// Buffer - immutable chunk of bytes received from one connection.
// A single Buffer is referenced by the queue entries of all recipients,
// so nobody may modify the slice returned by Bytes.
type Buffer struct {
	data []byte
}

// New - copies p into a new Buffer, so the caller may reuse p for the next read.
func New(p []byte) *Buffer {
	data := make([]byte, len(p))
	copy(data, p)
	return &Buffer{data: data}
}

// Bytes - returns payload. Read only.
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	return b.data
}

// Len - returns payload size in bytes.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.data)
}

// String - returns payload as string, helps in logs and tests.
func (b *Buffer) String() string {
	return string(b.Bytes())
}
