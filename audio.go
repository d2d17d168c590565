package msynth

import (
	"errors"
	"math"
)

type (
	// Frame is one interleaved stereo sample, left channel first.
	Frame [2]int16

	// AudioBuffer is a buffer of stereo float samples, as read from the left
	// and right variables.
	AudioBuffer [][2]float32

	// StreamParams are the stream parameters the backend actually agreed on.
	StreamParams struct {
		SampleRate int // frames per second
		BufferSize int // frames the device queues in total
		PeriodSize int // frames the synthesis loop produces per write
	}

	// AudioSink is the output end of the synthesis loop. WriteFrames blocks
	// until the device has taken the frames (or some of them) and returns how
	// many were taken. Recoverable faults are reported as errors wrapping
	// ErrUnderrun or ErrSuspended; the caller then calls Recover and keeps
	// writing the remaining frames.
	AudioSink interface {
		Params() StreamParams
		WriteFrames(frames []Frame) (int, error)
		Recover(err error) error
		Drain() error
		Close() error
	}

	// AudioConfig is passed unchanged from the command line to the backend
	// negotiation.
	AudioConfig struct {
		SampleRate int    `yaml:"samplerate,omitempty"` // 0 = backend default
		Resample   bool   `yaml:"resample,omitempty"`   // allow software resampling
		BufferTime int    `yaml:"buffertime,omitempty"` // microseconds, 0 = backend default
		PeriodTime int    `yaml:"periodtime,omitempty"` // microseconds, 0 = backend default
		Device     string `yaml:"device,omitempty"`
		Verbose    bool   `yaml:"verbose,omitempty"`
	}

	// Opener opens an audio backend.
	Opener func(config AudioConfig) (AudioSink, error)
)

// DefaultDevice selects whatever device the backend considers default.
const DefaultDevice = "default"

var (
	// ErrUnderrun means the device ran out of frames to play.
	ErrUnderrun = errors.New("audio buffer underrun")
	// ErrSuspended means the platform paused the device.
	ErrSuspended = errors.New("audio device suspended")
)

// IsRecoverable tells if the synthesis loop should recover from err and
// continue, instead of stopping.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrUnderrun) || errors.Is(err, ErrSuspended)
}

// FramesFor returns how many frames last micros microseconds at the given
// sample rate. Returns def if micros is not positive.
func FramesFor(micros, sampleRate, def int) int {
	if micros <= 0 {
		return def
	}
	n := int(int64(micros) * int64(sampleRate) / 1000000)
	if n < 1 {
		n = 1
	}
	return n
}

// ToFrame scales a stereo sample by volume and clips it to 16-bit integers.
func ToFrame(s [2]float32, volume float32) Frame {
	return Frame{toInt16(s[0] * volume), toInt16(s[1] * volume)}
}

func toInt16(v float32) int16 {
	i := int(32767.5 * float64(v))
	if i > math.MaxInt16 {
		return math.MaxInt16
	}
	if i < math.MinInt16 {
		return math.MinInt16
	}
	return int16(i)
}
