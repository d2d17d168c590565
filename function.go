package msynth

import "math"

type (
	// Func0 computes a sample from the clock alone, e.g. noise.
	Func0 func(c SampleClock, s *State) float32
	// Func1 computes a sample from one input signal. Oscillators take their
	// frequency in hertz as the input.
	Func1 func(c SampleClock, s *State, in float32) float32
	// Func2 combines two input signals.
	Func2 func(c SampleClock, s *State, a, b float32) float32

	// FuncDef documents one function callable from a script: its name, how
	// many signal inputs it takes and the implementation for that arity.
	FuncDef struct {
		Name     string
		Arity    int   // 0, 1 or 2; exactly one of F0, F1, F2 is set accordingly
		F0       Func0 `yaml:"-"`
		F1       Func1 `yaml:"-"`
		F2       Func2 `yaml:"-"`
		Stateful bool  // uses the per-node State between samples
	}

	// State is the private evaluation state of a single node. Only the fields
	// relevant to the node's function are used.
	State struct {
		Cycle       float64   // oscillator phase accumulator, in [0,1)
		PrevSeconds float64   // clock seconds at the previous evaluation
		Started     bool      // false until the first evaluation
		Seed        uint32    // noise generator state, always odd
		History     []float32 // delay line ring buffer
		Pos         int       // delay line write cursor
	}
)

// Advance moves the oscillator phase forward by the time elapsed since the
// last call, at the frequency hz, and returns the new phase. Integrating the
// frequency instead of multiplying it with absolute time keeps the phase
// continuous when hz is modulated.
func (s *State) Advance(c SampleClock, hz float32) float64 {
	if !s.Started {
		s.Started = true
		s.PrevSeconds = c.Seconds
	}
	cycle := math.Mod(s.Cycle+(c.Seconds-s.PrevSeconds)*float64(hz), 1)
	if cycle < 0 {
		cycle += 1
	}
	s.Cycle = cycle
	s.PrevSeconds = c.Seconds
	return cycle
}

// SetDelay resizes the delay line to exactly length samples, zeroes it and
// resets the write cursor.
func (s *State) SetDelay(length int) {
	if length < 0 {
		length = 0
	}
	s.History = make([]float32, length)
	s.Pos = 0
}
