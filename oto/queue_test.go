package oto

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsariola/msynth"
)

func TestAppendFrames(t *testing.T) {
	got := appendFrames(nil, []msynth.Frame{{1, -1}, {0x1234, -32768}})
	assert.Equal(t, []byte{1, 0, 0xff, 0xff, 0x34, 0x12, 0x00, 0x80}, got)
}

func TestQueueRoundTrip(t *testing.T) {
	q := newQueue(4)
	n, err := q.write([]msynth.Frame{{1, 2}, {3, 4}, {5, 6}, {7, 8}, {9, 10}})
	require.NoError(t, err)
	assert.Equal(t, 4, n, "only as many frames as fit")
	p := make([]byte, 6)
	n, err = q.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, []byte{1, 0, 2, 0, 3, 0}, p)
	n, err = q.write([]msynth.Frame{{9, 10}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	rest := make([]byte, 64)
	n, err = q.Read(rest)
	require.NoError(t, err)
	assert.Equal(t, []byte{4, 0, 5, 0, 6, 0, 7, 0, 8, 0, 9, 0, 10, 0}, rest[:n])
}

func TestQueueSilenceBeforeStart(t *testing.T) {
	q := newQueue(4)
	p := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	n, err := q.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 8, n, "whole frames of silence")
	assert.Equal(t, make([]byte, 8), p[:8])
	n, err = q.write([]msynth.Frame{{1, 1}})
	assert.NoError(t, err, "no underrun before the first write")
	assert.Equal(t, 1, n)
}

func TestQueueUnderrun(t *testing.T) {
	q := newQueue(4)
	_, err := q.write([]msynth.Frame{{1, 1}})
	require.NoError(t, err)
	p := make([]byte, 16)
	_, _ = q.Read(p)
	_, _ = q.Read(p) // starves
	n, err := q.write([]msynth.Frame{{2, 2}})
	assert.ErrorIs(t, err, msynth.ErrUnderrun)
	assert.Zero(t, n)
	assert.True(t, msynth.IsRecoverable(err))
	n, err = q.write([]msynth.Frame{{2, 2}})
	assert.NoError(t, err, "underrun is reported once")
	assert.Equal(t, 1, n)
}

func TestQueueWriteBlocksUntilRead(t *testing.T) {
	q := newQueue(1)
	_, err := q.write([]msynth.Frame{{1, 1}})
	require.NoError(t, err)
	done := make(chan int)
	go func() {
		n, _ := q.write([]msynth.Frame{{2, 2}})
		done <- n
	}()
	select {
	case <-done:
		t.Fatal("write did not block on a full queue")
	case <-time.After(20 * time.Millisecond):
	}
	p := make([]byte, 4)
	_, err = q.Read(p)
	require.NoError(t, err)
	assert.Equal(t, 1, <-done)
}

func TestQueueDrainAndClose(t *testing.T) {
	q := newQueue(4)
	_, err := q.write([]msynth.Frame{{1, 1}, {2, 2}})
	require.NoError(t, err)
	assert.False(t, q.drain(10*time.Millisecond), "nobody reads")
	q = newQueue(4)
	_, err = q.write([]msynth.Frame{{1, 1}, {2, 2}})
	require.NoError(t, err)
	go func() {
		p := make([]byte, 4)
		for i := 0; i < 2; i++ {
			time.Sleep(time.Millisecond)
			q.Read(p)
		}
	}()
	assert.True(t, q.drain(time.Second))
	q.close()
	_, err = q.Read(make([]byte, 4))
	assert.ErrorIs(t, err, io.EOF)
	_, err = q.write([]msynth.Frame{{1, 1}})
	assert.ErrorIs(t, err, io.ErrClosedPipe)
}

func TestParams(t *testing.T) {
	assert.Equal(t, msynth.StreamParams{SampleRate: 44100, BufferSize: 2048, PeriodSize: 512}, Params(msynth.AudioConfig{}))
	assert.Equal(t, msynth.StreamParams{SampleRate: 48000, BufferSize: 4800, PeriodSize: 480},
		Params(msynth.AudioConfig{SampleRate: 48000, BufferTime: 100000, PeriodTime: 10000}))
	assert.Equal(t, msynth.StreamParams{SampleRate: 48000, BufferSize: 480, PeriodSize: 480},
		Params(msynth.AudioConfig{SampleRate: 48000, BufferTime: 10000, PeriodTime: 100000}), "period clamped to buffer")
}

func TestOpenRejectsDevice(t *testing.T) {
	_, err := Open(msynth.AudioConfig{Device: "hw:1"})
	assert.ErrorIs(t, err, ErrDevice)
}
