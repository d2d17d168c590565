//go:build portaudio

// Package portaudio is a blocking-write audio backend on PortAudio. It is
// only built with the portaudio build tag, as it needs the PortAudio C
// library.
package portaudio

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/vsariola/msynth"
)

type PortAudioSink struct {
	stream *portaudio.Stream
	buffer []int16 // interleaved, bound to the stream
	params msynth.StreamParams
}

const defaultPeriodSize = 512

var ErrNoDevice = errors.New("no such output device")

// Open opens a blocking output stream. It implements msynth.Opener.
func Open(config msynth.AudioConfig) (msynth.AudioSink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("cannot initialize portaudio: %w", err)
	}
	sink, err := open(config)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	return sink, nil
}

func open(config msynth.AudioConfig) (*PortAudioSink, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("cannot list devices: %w", err)
	}
	var device *portaudio.DeviceInfo
	if config.Device == "" || config.Device == msynth.DefaultDevice {
		if device, err = portaudio.DefaultOutputDevice(); err != nil {
			return nil, fmt.Errorf("cannot get default output device: %w", err)
		}
	} else if device, err = pickDevice(devices, config.Device); err != nil {
		return nil, err
	}
	p := portaudio.HighLatencyParameters(nil, device)
	p.Output.Channels = 2
	if config.SampleRate > 0 {
		p.SampleRate = float64(config.SampleRate)
	}
	if config.BufferTime > 0 {
		p.Output.Latency = time.Duration(config.BufferTime) * time.Microsecond
	}
	rate := int(p.SampleRate)
	p.FramesPerBuffer = msynth.FramesFor(config.PeriodTime, rate, defaultPeriodSize)
	buffer := make([]int16, 2*p.FramesPerBuffer)
	stream, err := portaudio.OpenStream(p, buffer)
	if err != nil {
		return nil, fmt.Errorf("cannot open stream on %q at %d Hz: %w", device.Name, rate, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("cannot start stream: %w", err)
	}
	info := stream.Info()
	return &PortAudioSink{
		stream: stream,
		buffer: buffer,
		params: msynth.StreamParams{
			SampleRate: int(info.SampleRate),
			BufferSize: max(int(info.OutputLatency.Seconds()*info.SampleRate), p.FramesPerBuffer),
			PeriodSize: p.FramesPerBuffer,
		},
	}, nil
}

// pickDevice returns the first output device whose name starts with name.
func pickDevice(devices []*portaudio.DeviceInfo, name string) (*portaudio.DeviceInfo, error) {
	for _, d := range devices {
		if d.MaxOutputChannels >= 2 && strings.HasPrefix(d.Name, name) {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoDevice, name)
}

func (s *PortAudioSink) Params() msynth.StreamParams {
	return s.params
}

// WriteFrames writes at most one period. A short period is padded with
// silence.
func (s *PortAudioSink) WriteFrames(frames []msynth.Frame) (int, error) {
	n := min(len(frames), s.params.PeriodSize)
	for i, f := range frames[:n] {
		s.buffer[2*i], s.buffer[2*i+1] = f[0], f[1]
	}
	clear(s.buffer[2*n:])
	if err := s.stream.Write(); err != nil {
		if errors.Is(err, portaudio.OutputUnderflowed) {
			return n, fmt.Errorf("%w: %v", msynth.ErrUnderrun, err)
		}
		return 0, fmt.Errorf("cannot write stream: %w", err)
	}
	return n, nil
}

// Recover does nothing: PortAudio restarts by itself after an underflow and
// the frames of the failed write were already played.
func (s *PortAudioSink) Recover(err error) error {
	return nil
}

func (s *PortAudioSink) Drain() error {
	if err := s.stream.Stop(); err != nil {
		return fmt.Errorf("cannot stop stream: %w", err)
	}
	return nil
}

func (s *PortAudioSink) Close() error {
	defer portaudio.Terminate()
	if err := s.stream.Close(); err != nil {
		return fmt.Errorf("cannot close stream: %w", err)
	}
	return nil
}
