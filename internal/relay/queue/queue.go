// Package queue implements the per-connection outbound FIFO.
//
// Each entry is owned by exactly one queue and only points to a shared
// message.Buffer, so one inbound chunk fans out into independent queues.
// Entries keep their own write offset: a short write leaves the remainder
// at the front of the queue until the next flush.
package queue

import (
	"io"

	"github.com/wtask/chatrelay/internal/relay/message"
)

type entry struct {
	buf *message.Buffer
	off int
}

func (e *entry) remaining() []byte {
	return e.buf.Bytes()[e.off:]
}

func (e *entry) done() bool {
	return e.off >= e.buf.Len()
}

// Queue - ordered outbound entries of one connection. Not safe for concurrent use.
type Queue struct {
	entries []entry
}

// New - builds empty queue.
func New() *Queue {
	return &Queue{}
}

// Push - appends a new entry for buf. Empty payloads are ignored.
func (q *Queue) Push(buf *message.Buffer) {
	if buf.Len() == 0 {
		return
	}
	q.entries = append(q.entries, entry{buf: buf})
}

// Len - returns number of pending entries, including a partially written one.
func (q *Queue) Len() int {
	return len(q.entries)
}

// Empty - reports whether nothing is pending.
func (q *Queue) Empty() bool {
	return len(q.entries) == 0
}

// PendingBytes - returns number of bytes not written yet.
func (q *Queue) PendingBytes() int {
	total := 0
	for i := range q.entries {
		total += len(q.entries[i].remaining())
	}
	return total
}

// Pending - returns buffers of pending entries in delivery order.
func (q *Queue) Pending() []*message.Buffer {
	list := make([]*message.Buffer, len(q.entries))
	for i := range q.entries {
		list[i] = q.entries[i].buf
	}
	return list
}

// Reset - drops all pending entries and returns their number.
func (q *Queue) Reset() int {
	n := len(q.entries)
	for i := range q.entries {
		q.entries[i] = entry{}
	}
	q.entries = q.entries[:0]
	return n
}

func (q *Queue) pop() {
	q.entries[0] = entry{}
	q.entries = q.entries[1:]
	if len(q.entries) == 0 {
		// reuse backing array from its start
		q.entries = nil
	}
}

// Flush - writes pending entries to w in FIFO order.
// An entry is popped only after all its bytes are accepted by w.
// Flush stops on the first short write (remainder stays queued) or error,
// and returns the number of bytes written during this call.
func (q *Queue) Flush(w io.Writer) (int, error) {
	written := 0
	for len(q.entries) > 0 {
		e := &q.entries[0]
		rest := e.remaining()
		n, err := w.Write(rest)
		if n > 0 {
			e.off += n
			written += n
		}
		if e.done() {
			q.pop()
		}
		if err != nil {
			return written, err
		}
		if n < len(rest) {
			return written, nil
		}
	}
	return written, nil
}
