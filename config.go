package msynth

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Config is the process configuration. It can be read from a yaml file;
// command line flags override the values read.
type Config struct {
	Audio       AudioConfig `yaml:"audio,omitempty"`
	Backend     string      `yaml:"backend,omitempty"` // name of the audio backend
	Volume      float32     `yaml:"volume"`            // master volume in [0,1]
	Script      string      `yaml:"script,omitempty"`  // script file run at startup
	Watch       bool        `yaml:"watch,omitempty"`   // rerun Script when it changes
	MetricsAddr string      `yaml:"metricsaddr,omitempty"`
	MIDI        string      `yaml:"midi,omitempty"` // MIDI input name prefix
	History     string      `yaml:"history,omitempty"`
}

const (
	DefaultBackend = "oto"
	DefaultVolume  = 0.5
)

var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultConfig returns the configuration used when nothing is given.
func DefaultConfig() Config {
	return Config{
		Audio:   AudioConfig{Device: DefaultDevice},
		Backend: DefaultBackend,
		Volume:  DefaultVolume,
	}
}

// ReadConfig decodes yaml from r on top of the values already in c. Unknown
// keys are errors.
func ReadConfig(r io.Reader, c *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("cannot decode config: %w", err)
	}
	return nil
}

// Validate checks that the configuration makes sense.
func (c *Config) Validate() error {
	if c.Audio.Resample && c.Audio.SampleRate <= 0 {
		return fmt.Errorf("%w: software resampling requires a sample rate", ErrInvalidConfig)
	}
	if c.Audio.SampleRate < 0 {
		return fmt.Errorf("%w: negative sample rate %d", ErrInvalidConfig, c.Audio.SampleRate)
	}
	if c.Audio.BufferTime < 0 || c.Audio.PeriodTime < 0 {
		return fmt.Errorf("%w: negative buffer or period time", ErrInvalidConfig)
	}
	if c.Audio.BufferTime > 0 && c.Audio.PeriodTime > c.Audio.BufferTime {
		return fmt.Errorf("%w: period time %dus exceeds buffer time %dus", ErrInvalidConfig, c.Audio.PeriodTime, c.Audio.BufferTime)
	}
	if c.Volume < 0 || c.Volume > 1 {
		return fmt.Errorf("%w: volume %v not in [0,1]", ErrInvalidConfig, c.Volume)
	}
	if c.Audio.Device == "" {
		c.Audio.Device = DefaultDevice
	}
	if c.Backend == "" {
		c.Backend = DefaultBackend
	}
	return nil
}
