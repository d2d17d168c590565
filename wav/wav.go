// Package wav renders to a 16-bit stereo WAV file instead of an audio device.
package wav

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	gowav "github.com/go-audio/wav"
	"github.com/vsariola/msynth"
)

type WavSink struct {
	encoder *gowav.Encoder
	closer  io.Closer
	buffer  *audio.IntBuffer
	params  msynth.StreamParams
}

const (
	DefaultSampleRate = 44100
	defaultPeriodSize = 4096
	wavFormatPCM      = 1
)

// Opener returns an opener that creates the file path when called.
func Opener(path string) msynth.Opener {
	return func(config msynth.AudioConfig) (msynth.AudioSink, error) {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("cannot create wav file: %w", err)
		}
		return NewSink(f, config), nil
	}
}

// NewSink writes to w; closing the sink closes w if it is an io.Closer. Only
// the sample rate and period time of config matter.
func NewSink(w io.WriteSeeker, config msynth.AudioConfig) *WavSink {
	rate := config.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	period := msynth.FramesFor(config.PeriodTime, rate, defaultPeriodSize)
	s := &WavSink{
		encoder: gowav.NewEncoder(w, rate, 16, 2, wavFormatPCM),
		buffer: &audio.IntBuffer{
			Format:         &audio.Format{NumChannels: 2, SampleRate: rate},
			Data:           make([]int, 0, 2*period),
			SourceBitDepth: 16,
		},
		params: msynth.StreamParams{SampleRate: rate, BufferSize: period, PeriodSize: period},
	}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	return s
}

func (s *WavSink) Params() msynth.StreamParams {
	return s.params
}

// WriteFrames never blocks on a device, so it never underruns.
func (s *WavSink) WriteFrames(frames []msynth.Frame) (int, error) {
	s.buffer.Data = s.buffer.Data[:0]
	for _, f := range frames {
		s.buffer.Data = append(s.buffer.Data, int(f[0]), int(f[1]))
	}
	if err := s.encoder.Write(s.buffer); err != nil {
		return 0, fmt.Errorf("cannot encode wav: %w", err)
	}
	return len(frames), nil
}

func (s *WavSink) Recover(err error) error {
	return err
}

func (s *WavSink) Drain() error {
	return nil
}

// Close writes the header and closes the file.
func (s *WavSink) Close() error {
	err := s.encoder.Close()
	if err != nil {
		err = fmt.Errorf("cannot finish wav file: %w", err)
	}
	if s.closer != nil {
		err = errors.Join(err, s.closer.Close())
	}
	return err
}
