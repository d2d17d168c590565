package msynth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsariola/msynth"
)

func TestSampleClock(t *testing.T) {
	c := msynth.ClockAt(48000, 0)
	assert.Equal(t, 0.0, c.Seconds)
	assert.Equal(t, 0.0, c.Phase)
	c = msynth.ClockAt(48000, 12000)
	assert.Equal(t, 0.25, c.Seconds)
	assert.Equal(t, 0.25, c.Phase)
	c = msynth.ClockAt(48000, 72000)
	assert.Equal(t, 1.5, c.Seconds)
	assert.Equal(t, 0.5, c.Phase)
	n := c.Next()
	assert.Equal(t, 72001, n.Sample)
	assert.Equal(t, 72000, c.Sample, "clock is a value")
	assert.Equal(t, 0, n.Rewind(100000).Sample)
	assert.Equal(t, 71990, n.Rewind(11).Sample)
	assert.Panics(t, func() { msynth.ClockAt(0, 0) })
}

func TestFramesFor(t *testing.T) {
	assert.Equal(t, 4800, msynth.FramesFor(100000, 48000, 1024))
	assert.Equal(t, 1024, msynth.FramesFor(0, 48000, 1024))
	assert.Equal(t, 1, msynth.FramesFor(1, 48000, 1024))
}

func TestIsRecoverable(t *testing.T) {
	assert.True(t, msynth.IsRecoverable(msynth.ErrUnderrun))
	assert.True(t, msynth.IsRecoverable(wrap(msynth.ErrSuspended)))
	assert.False(t, msynth.IsRecoverable(assert.AnError))
	assert.False(t, msynth.IsRecoverable(nil))
}

func wrap(err error) error {
	return &wrapped{err}
}

type wrapped struct{ err error }

func (w *wrapped) Error() string { return "wrapped: " + w.err.Error() }
func (w *wrapped) Unwrap() error { return w.err }

func TestConfig(t *testing.T) {
	c := msynth.DefaultConfig()
	require.NoError(t, c.Validate())
	assert.Equal(t, float32(0.5), c.Volume)
	assert.Equal(t, "default", c.Audio.Device)

	err := msynth.ReadConfig(strings.NewReader(`
backend: wav
volume: 0.25
audio:
  samplerate: 44100
  resample: true
  buffertime: 500000
  periodtime: 250000
`), &c)
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	assert.Equal(t, "wav", c.Backend)
	assert.Equal(t, float32(0.25), c.Volume)
	assert.Equal(t, 44100, c.Audio.SampleRate)
	assert.Equal(t, "default", c.Audio.Device, "unset keys keep their defaults")

	require.NoError(t, msynth.ReadConfig(strings.NewReader(""), &c), "empty file is fine")
	assert.Error(t, msynth.ReadConfig(strings.NewReader("bogus: 1"), &c))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *msynth.Config)
	}{
		{"resample without rate", func(c *msynth.Config) { c.Audio.Resample = true }},
		{"negative rate", func(c *msynth.Config) { c.Audio.SampleRate = -1 }},
		{"negative period", func(c *msynth.Config) { c.Audio.PeriodTime = -1 }},
		{"period exceeds buffer", func(c *msynth.Config) { c.Audio.BufferTime = 100; c.Audio.PeriodTime = 200 }},
		{"volume too loud", func(c *msynth.Config) { c.Volume = 2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := msynth.DefaultConfig()
			tt.modify(&c)
			assert.ErrorIs(t, c.Validate(), msynth.ErrInvalidConfig)
		})
	}
}
