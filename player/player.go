// Package player runs the synthesis loop: it renders the engine one period at
// a time and feeds the frames to an audio backend, recovering from underruns
// and suspends.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vsariola/msynth"
	"github.com/vsariola/msynth/vm"
)

type (
	// Player owns the synthesis goroutine. The engine may be edited
	// concurrently; the player takes the engine lock once per period.
	Player struct {
		engine *vm.Engine
		open   msynth.Opener
		config msynth.AudioConfig
		logger *slog.Logger
		limit  int64

		state     atomic.Int32
		volume    atomic.Uint32 // float32 bits
		samples   atomic.Int64
		underruns atomic.Int64
		resumes   atomic.Int64

		mu     sync.Mutex // guards level and params
		level  Level
		params msynth.StreamParams

		done chan struct{}
		err  error
	}

	// Stats are the counters of a player.
	Stats struct {
		Samples   int64 // frames accepted by the backend
		Underruns int64 // underruns recovered
		Resumes   int64 // suspends recovered
	}

	State int32
)

const (
	Idle State = iota
	Running
	Stopped
)

var (
	ErrStarted    = errors.New("player already started")
	ErrNotStarted = errors.New("player not started")
	ErrVolume     = errors.New("volume must be between 0 and 1")
	ErrParams     = errors.New("invalid stream parameters")
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// New creates an idle player. Nothing is opened before Start.
func New(engine *vm.Engine, open msynth.Opener, config msynth.AudioConfig, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Player{
		engine: engine,
		open:   open,
		config: config,
		logger: logger,
		done:   make(chan struct{}),
	}
	p.volume.Store(math.Float32bits(msynth.DefaultVolume))
	return p
}

// SetLimit makes the player stop by itself after frames frames. Zero plays
// until the context is cancelled. Call before Start.
func (p *Player) SetLimit(frames int) {
	p.limit = int64(max(frames, 0))
}

// Start opens the backend in the synthesis goroutine and returns when the
// stream is running, or with the error that prevented it.
func (p *Player) Start(ctx context.Context) error {
	if !p.state.CompareAndSwap(int32(Idle), int32(Running)) {
		return ErrStarted
	}
	ready := make(chan error, 1)
	go p.run(ctx, ready)
	return <-ready
}

// Wait blocks until the synthesis goroutine has stopped and returns the error
// that stopped it. Stopping because the context was cancelled or the limit was
// reached is not an error.
func (p *Player) Wait() error {
	if p.State() == Idle {
		return ErrNotStarted
	}
	<-p.done
	return p.err
}

// Done is closed when the synthesis goroutine has stopped.
func (p *Player) Done() <-chan struct{} {
	return p.done
}

func (p *Player) State() State {
	return State(p.state.Load())
}

// Params returns the stream parameters negotiated with the backend; zero
// before Start has returned successfully.
func (p *Player) Params() msynth.StreamParams {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.params
}

func (p *Player) Stats() Stats {
	return Stats{
		Samples:   p.samples.Load(),
		Underruns: p.underruns.Load(),
		Resumes:   p.resumes.Load(),
	}
}

// Level returns the level of the last rendered period.
func (p *Player) Level() Level {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

func (p *Player) SetVolume(v float32) error {
	if v < 0 || v > 1 || v != v {
		return fmt.Errorf("%w: %v", ErrVolume, v)
	}
	p.volume.Store(math.Float32bits(v))
	return nil
}

func (p *Player) Volume() float32 {
	return math.Float32frombits(p.volume.Load())
}

func (p *Player) run(ctx context.Context, ready chan<- error) {
	sink, err := p.open(p.config)
	if err != nil {
		err = fmt.Errorf("cannot open audio backend: %w", err)
		p.stop(err)
		ready <- err
		return
	}
	params := sink.Params()
	if params.SampleRate <= 0 || params.PeriodSize <= 0 {
		err = fmt.Errorf("%w: %+v", ErrParams, params)
		p.stop(errors.Join(err, sink.Close()))
		ready <- err
		return
	}
	p.mu.Lock()
	p.params = params
	p.mu.Unlock()
	logLevel := slog.LevelDebug
	if p.config.Verbose {
		logLevel = slog.LevelInfo
	}
	p.logger.Log(ctx, logLevel, "audio stream open",
		"samplerate", params.SampleRate, "buffer", params.BufferSize, "period", params.PeriodSize)
	ready <- nil
	err = p.loop(ctx, sink, params)
	if derr := sink.Drain(); derr != nil {
		err = errors.Join(err, fmt.Errorf("cannot drain audio backend: %w", derr))
	}
	if cerr := sink.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("cannot close audio backend: %w", cerr))
	}
	stats := p.Stats()
	p.logger.Info("player stopped",
		"samples", stats.Samples, "underruns", stats.Underruns, "resumes", stats.Resumes)
	if err != nil {
		p.logger.Error("synthesis loop failed", "err", err)
	}
	p.stop(err)
}

func (p *Player) stop(err error) {
	p.err = err
	p.state.Store(int32(Stopped))
	close(p.done)
}

func (p *Player) loop(ctx context.Context, sink msynth.AudioSink, params msynth.StreamParams) error {
	clock := msynth.ClockAt(params.SampleRate, 0)
	buf := make(msynth.AudioBuffer, params.PeriodSize)
	frames := make([]msynth.Frame, params.PeriodSize)
	var m meter
	var rendered int64
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		n := int64(len(buf))
		if p.limit > 0 {
			if rendered >= p.limit {
				return nil
			}
			n = min(n, p.limit-rendered)
		}
		start := time.Now()
		clock = p.engine.Render(buf[:n], clock)
		periodSeconds.Observe(time.Since(start).Seconds())
		rendered += n
		volume := p.Volume()
		for i, s := range buf[:n] {
			frames[i] = msynth.ToFrame(s, volume)
		}
		level := m.update(buf[:n])
		p.mu.Lock()
		p.level = level
		p.mu.Unlock()
		if err := p.write(sink, frames[:n]); err != nil {
			return err
		}
	}
}

// write hands frames to the sink until all of them are taken, recovering from
// recoverable faults in between.
func (p *Player) write(sink msynth.AudioSink, frames []msynth.Frame) error {
	for len(frames) > 0 {
		n, err := sink.WriteFrames(frames)
		if n > 0 {
			frames = frames[n:]
			p.samples.Add(int64(n))
			samplesTotal.Add(float64(n))
		}
		if err == nil {
			if n == 0 {
				return fmt.Errorf("cannot write audio: %w", io.ErrShortWrite)
			}
			continue
		}
		if !msynth.IsRecoverable(err) {
			return fmt.Errorf("cannot write audio: %w", err)
		}
		if errors.Is(err, msynth.ErrSuspended) {
			p.resumes.Add(1)
			resumesTotal.Inc()
		} else {
			p.underruns.Add(1)
			underrunsTotal.Inc()
		}
		p.logger.Debug("recovering audio backend", "err", err)
		if rerr := sink.Recover(err); rerr != nil {
			return fmt.Errorf("cannot recover from %v: %w", err, rerr)
		}
	}
	return nil
}
