package queue

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wtask/chatrelay/internal/relay/message"
)

// limitWriter - accepts at most limit bytes per call, then fails with err if set.
type limitWriter struct {
	out   bytes.Buffer
	limit int
	calls int
	err   error
}

func (w *limitWriter) Write(p []byte) (int, error) {
	w.calls++
	if w.err != nil {
		return 0, w.err
	}
	n := len(p)
	if w.limit > 0 && n > w.limit {
		n = w.limit
	}
	w.out.Write(p[:n])
	return n, nil
}

func TestQueue_PushIgnoresEmpty(test *testing.T) {
	q := New()
	q.Push(message.New(nil))
	q.Push(nil)
	assert.True(test, q.Empty())
	assert.Equal(test, 0, q.Len())
}

func TestQueue_FlushFIFO(test *testing.T) {
	q := New()
	a, b := message.New([]byte("A-chunk")), message.New([]byte("B-chunk"))
	q.Push(a)
	q.Push(b)
	require.Equal(test, []*message.Buffer{a, b}, q.Pending())

	w := &limitWriter{}
	n, err := q.Flush(w)
	require.NoError(test, err)
	assert.Equal(test, 14, n)
	assert.Equal(test, "A-chunkB-chunk", w.out.String())
	assert.True(test, q.Empty())
}

func TestQueue_FlushShortWriteKeepsRemainder(test *testing.T) {
	q := New()
	q.Push(message.New([]byte("hello")))
	q.Push(message.New([]byte("world")))

	w := &limitWriter{limit: 3}
	n, err := q.Flush(w)
	require.NoError(test, err)
	assert.Equal(test, 3, n)
	assert.Equal(test, 1, w.calls, "flush must stop on short write")
	assert.Equal(test, 2, q.Len())
	assert.Equal(test, 7, q.PendingBytes())

	n, err = q.Flush(w)
	require.NoError(test, err)
	assert.Equal(test, 5, n)
	// "lo" completed the first entry, "wor" started the second
	assert.Equal(test, "hellowor", w.out.String())
	assert.Equal(test, 1, q.Len())
	assert.Equal(test, 2, q.PendingBytes())

	w.limit = 0
	_, err = q.Flush(w)
	require.NoError(test, err)
	assert.Equal(test, "helloworld", w.out.String())
	assert.True(test, q.Empty())
}

func TestQueue_FlushError(test *testing.T) {
	boom := errors.New("boom")
	q := New()
	q.Push(message.New([]byte("payload")))

	n, err := q.Flush(&limitWriter{err: boom})
	assert.ErrorIs(test, err, boom)
	assert.Equal(test, 0, n)
	assert.Equal(test, 1, q.Len(), "failed entry stays queued")
}

func TestQueue_SharedBufferIndependentEntries(test *testing.T) {
	shared := message.New([]byte("fan-out"))
	q1, q2 := New(), New()
	q1.Push(shared)
	q2.Push(shared)

	w1 := &limitWriter{limit: 3}
	_, err := q1.Flush(w1)
	require.NoError(test, err)

	// offset of q1 entry must not leak into q2
	w2 := &limitWriter{}
	_, err = q2.Flush(w2)
	require.NoError(test, err)
	assert.Equal(test, "fan-out", w2.out.String())
	assert.Equal(test, 4, q1.PendingBytes())
	assert.Equal(test, "fan-out", shared.String())
}

func TestQueue_Reset(test *testing.T) {
	q := New()
	q.Push(message.New([]byte("1")))
	q.Push(message.New([]byte("2")))
	assert.Equal(test, 2, q.Reset())
	assert.True(test, q.Empty())
	assert.Equal(test, 0, q.Reset())

	q.Push(message.New([]byte("3")))
	assert.Equal(test, 1, q.Len())
}
