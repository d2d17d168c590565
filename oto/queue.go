package oto

import (
	"io"
	"sync"
	"time"

	"github.com/vsariola/msynth"
)

// queue is the bounded byte queue between the synthesis loop, which writes
// frames, and the oto player, which reads bytes from it.
type queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      []byte
	capacity int // bytes
	started  bool
	starved  bool
	closed   bool
}

func newQueue(frames int) *queue {
	q := &queue{
		buf:      make([]byte, 0, frames*bytesPerFrame),
		capacity: frames * bytesPerFrame,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Read implements io.Reader for the oto player. When the queue is empty, it
// plays silence so the device keeps running; if that happens after the first
// write, the next write reports an underrun.
func (q *queue) Read(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.buf) == 0 {
		if q.closed {
			return 0, io.EOF
		}
		if q.started {
			q.starved = true
		}
		n := len(p) / bytesPerFrame * bytesPerFrame
		clear(p[:n])
		return n, nil
	}
	n := copy(p, q.buf)
	q.buf = append(q.buf[:0], q.buf[n:]...)
	q.cond.Broadcast()
	return n, nil
}

// write blocks until there is room for at least one frame, then queues as
// many frames as fit.
func (q *queue) write(frames []msynth.Frame) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.starved {
		q.starved = false
		return 0, msynth.ErrUnderrun
	}
	for !q.closed && q.capacity-len(q.buf) < bytesPerFrame {
		q.cond.Wait()
	}
	if q.closed {
		return 0, io.ErrClosedPipe
	}
	n := min(len(frames), (q.capacity-len(q.buf))/bytesPerFrame)
	q.buf = appendFrames(q.buf, frames[:n])
	q.started = true
	return n, nil
}

// drain blocks until everything written has been read, or until timeout.
func (q *queue) drain(timeout time.Duration) bool {
	deadline := time.AfterFunc(timeout, func() {
		q.mu.Lock()
		q.closed = true
		q.cond.Broadcast()
		q.mu.Unlock()
	})
	defer deadline.Stop()
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.buf) > 0 && !q.closed {
		q.cond.Wait()
	}
	return len(q.buf) == 0
}

func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.buf = q.buf[:0]
	q.cond.Broadcast()
	q.mu.Unlock()
}
