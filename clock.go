package msynth

import "math"

// SampleClock tells the position of a single output sample. It is a value
// type; every sample gets a new one.
type SampleClock struct {
	SampleRate int     // samples per second, always > 0
	Sample     int     // index of the sample since the start of the stream
	Seconds    float64 // Sample / SampleRate
	Phase      float64 // Seconds mod 1, in [0,1)
}

// ClockAt returns the clock for the sample with the given index. Panics if
// the sample rate is not positive.
func ClockAt(sampleRate, sample int) SampleClock {
	if sampleRate <= 0 {
		panic("msynth: sample rate must be positive")
	}
	if sample < 0 {
		sample = 0
	}
	seconds := float64(sample) / float64(sampleRate)
	_, phase := math.Modf(seconds)
	return SampleClock{
		SampleRate: sampleRate,
		Sample:     sample,
		Seconds:    seconds,
		Phase:      phase,
	}
}

// Next returns the clock one sample later.
func (c SampleClock) Next() SampleClock {
	return ClockAt(c.SampleRate, c.Sample+1)
}

// Rewind returns the clock n samples earlier, stopping at sample 0.
func (c SampleClock) Rewind(n int) SampleClock {
	return ClockAt(c.SampleRate, c.Sample-n)
}
