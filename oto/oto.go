// Package oto is the default audio backend, playing through
// github.com/ebitengine/oto/v3.
package oto

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/vsariola/msynth"
)

type OtoSink struct {
	context *oto.Context
	player  *oto.Player
	queue   *queue
	params  msynth.StreamParams
}

const (
	defaultSampleRate = 44100
	defaultBufferSize = 2048 // frames
)

var ErrDevice = errors.New("oto backend can only use the default device")

// oto allows only one context per process
var (
	contextMu  sync.Mutex
	shared     *oto.Context
	sharedRate int
)

// Open opens the default output device. It implements msynth.Opener.
func Open(config msynth.AudioConfig) (msynth.AudioSink, error) {
	if config.Device != "" && config.Device != msynth.DefaultDevice {
		return nil, fmt.Errorf("%w: %q", ErrDevice, config.Device)
	}
	params := Params(config)
	c, err := getContext(params)
	if err != nil {
		return nil, err
	}
	q := newQueue(params.BufferSize)
	player := c.NewPlayer(q)
	player.SetBufferSize(params.PeriodSize * bytesPerFrame)
	player.Play()
	return &OtoSink{context: c, player: player, queue: q, params: params}, nil
}

// Params returns the stream parameters Open would negotiate for config.
func Params(config msynth.AudioConfig) msynth.StreamParams {
	rate := config.SampleRate
	if rate <= 0 {
		rate = defaultSampleRate
	}
	buffer := msynth.FramesFor(config.BufferTime, rate, defaultBufferSize)
	period := min(msynth.FramesFor(config.PeriodTime, rate, buffer/4), buffer)
	return msynth.StreamParams{SampleRate: rate, BufferSize: buffer, PeriodSize: max(period, 1)}
}

func getContext(params msynth.StreamParams) (*oto.Context, error) {
	contextMu.Lock()
	defer contextMu.Unlock()
	if shared != nil {
		if sharedRate != params.SampleRate {
			return nil, fmt.Errorf("cannot reopen oto context at %d Hz, already running at %d Hz", params.SampleRate, sharedRate)
		}
		if err := shared.Resume(); err != nil {
			return nil, fmt.Errorf("cannot resume oto context: %w", err)
		}
		return shared, nil
	}
	c, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   params.SampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   time.Duration(params.BufferSize) * time.Second / time.Duration(params.SampleRate),
	})
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	shared, sharedRate = c, params.SampleRate
	return c, nil
}

func (o *OtoSink) Params() msynth.StreamParams {
	return o.params
}

func (o *OtoSink) WriteFrames(frames []msynth.Frame) (int, error) {
	if err := o.context.Err(); err != nil {
		return 0, fmt.Errorf("oto context failed: %w", err)
	}
	if err := o.player.Err(); err != nil {
		return 0, fmt.Errorf("oto player failed: %w", err)
	}
	return o.queue.write(frames)
}

func (o *OtoSink) Recover(err error) error {
	if errors.Is(err, msynth.ErrSuspended) {
		if err := o.context.Resume(); err != nil {
			return fmt.Errorf("cannot resume oto context: %w", err)
		}
	}
	if !o.player.IsPlaying() {
		o.player.Play()
	}
	return nil
}

// Drain waits until the queued frames and the player's own buffer have been
// played.
func (o *OtoSink) Drain() error {
	timeout := 2 * time.Duration(o.params.BufferSize) * time.Second / time.Duration(o.params.SampleRate)
	if !o.queue.drain(timeout) {
		return fmt.Errorf("oto queue not drained in %v", timeout)
	}
	deadline := time.Now().Add(timeout)
	for o.player.BufferedSize() > 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	return nil
}

// Close disposes of resources
func (o *OtoSink) Close() error {
	o.queue.close()
	o.player.Pause()
	if err := o.context.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}
