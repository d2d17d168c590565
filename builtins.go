package msynth

import (
	"math"
	"sort"
)

// Builtins documents all the functions a script can call, keyed by name.
var Builtins = map[string]FuncDef{
	"sin":        {Name: "sin", Arity: 1, F1: Sin, Stateful: true},
	"cos":        {Name: "cos", Arity: 1, F1: Cos, Stateful: true},
	"saw":        {Name: "saw", Arity: 1, F1: Saw, Stateful: true},
	"rsaw":       {Name: "rsaw", Arity: 1, F1: RSaw, Stateful: true},
	"triangle":   {Name: "triangle", Arity: 1, F1: Triangle, Stateful: true},
	"pulse":      {Name: "pulse", Arity: 1, F1: Pulse, Stateful: true},
	"square":     {Name: "square", Arity: 1, F1: Square, Stateful: true},
	"whitenoise": {Name: "whitenoise", Arity: 0, F0: WhiteNoise, Stateful: true},
	"chipify":    {Name: "chipify", Arity: 1, F1: Chipify},
	"abs":        {Name: "abs", Arity: 1, F1: Abs},
	"floor":      {Name: "floor", Arity: 1, F1: Floor},
	"ceil":       {Name: "ceil", Arity: 1, F1: Ceil},
	"add":        {Name: "add", Arity: 2, F2: Add},
	"sub":        {Name: "sub", Arity: 2, F2: Sub},
	"mul":        {Name: "mul", Arity: 2, F2: Mul},
	"div":        {Name: "div", Arity: 2, F2: Div},
	"min":        {Name: "min", Arity: 2, F2: Min},
	"max":        {Name: "max", Arity: 2, F2: Max},
	"clamp":      {Name: "clamp", Arity: 2, F2: Clamp},
}

// DelayFunc is the structural delay operator. It is not callable by name;
// scripts write it as an index suffix, e.g. x[100].
var DelayFunc = FuncDef{Name: "delay", Arity: 1, F1: Delay, Stateful: true}

// Lookup returns the builtin with the given name.
func Lookup(name string) (FuncDef, bool) {
	f, ok := Builtins[name]
	return f, ok
}

// Names returns the names of all builtins in alphabetical order.
func Names() []string {
	names := make([]string, 0, len(Builtins))
	for name := range Builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func Sin(c SampleClock, s *State, hz float32) float32 {
	return float32(math.Sin(2 * math.Pi * s.Advance(c, hz)))
}

func Cos(c SampleClock, s *State, hz float32) float32 {
	return float32(math.Cos(2 * math.Pi * s.Advance(c, hz)))
}

func Saw(c SampleClock, s *State, hz float32) float32 {
	return float32(2*s.Advance(c, hz) - 1)
}

// RSaw is a falling sawtooth.
func RSaw(c SampleClock, s *State, hz float32) float32 {
	return float32(1 - 2*s.Advance(c, hz))
}

// Triangle starts at 0 and rises, like Sin.
func Triangle(c SampleClock, s *State, hz float32) float32 {
	cycle := s.Advance(c, hz) + 0.25
	if cycle >= 1 {
		cycle -= 1
	}
	if cycle < 0.5 {
		return float32(-1 + 4*cycle)
	}
	return float32(1 - 4*(cycle-0.5))
}

func Square(c SampleClock, s *State, hz float32) float32 {
	if s.Advance(c, hz) < 0.5 {
		return 1
	}
	return -1
}

// Pulse is 1 on the samples where the phase wraps around and 0 otherwise,
// i.e. a click train at hz.
func Pulse(c SampleClock, s *State, hz float32) float32 {
	prev := s.Cycle
	cycle := s.Advance(c, hz)
	if (hz > 0 && cycle < prev) || (hz < 0 && cycle > prev) {
		return 1
	}
	return 0
}

// WhiteNoise returns uniform noise in [-1,1) using a multiplicative LCG; the
// seed must be odd for the generator to have full period.
func WhiteNoise(c SampleClock, s *State) float32 {
	s.Seed |= 1
	s.Seed *= 16007
	return float32(int32(s.Seed)) / -2147483648.0
}

// Chipify quantizes the signal to 8 bits.
func Chipify(c SampleClock, s *State, in float32) float32 {
	v := float64(in) * 128
	v = math.Max(-128, math.Min(127, v))
	return float32(math.Round(v) / 128)
}

func Abs(c SampleClock, s *State, in float32) float32 {
	return float32(math.Abs(float64(in)))
}

func Floor(c SampleClock, s *State, in float32) float32 {
	return float32(math.Floor(float64(in)))
}

func Ceil(c SampleClock, s *State, in float32) float32 {
	return float32(math.Ceil(float64(in)))
}

func Add(c SampleClock, s *State, a, b float32) float32 { return a + b }
func Sub(c SampleClock, s *State, a, b float32) float32 { return a - b }
func Mul(c SampleClock, s *State, a, b float32) float32 { return a * b }

// Div returns a/b, or 0 when b is 0.
func Div(c SampleClock, s *State, a, b float32) float32 {
	if b == 0 {
		return 0
	}
	return a / b
}

func Min(c SampleClock, s *State, a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func Max(c SampleClock, s *State, a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

// Clamp returns a, unless its magnitude exceeds that of b, in which case b.
func Clamp(c SampleClock, s *State, a, b float32) float32 {
	if math.Abs(float64(a)) > math.Abs(float64(b)) {
		return b
	}
	return a
}

// Delay returns the input from len(s.History) samples ago. A zero length
// delay passes the input through.
func Delay(c SampleClock, s *State, in float32) float32 {
	if len(s.History) == 0 {
		return in
	}
	out := s.History[s.Pos]
	s.History[s.Pos] = in
	s.Pos++
	if s.Pos >= len(s.History) {
		s.Pos = 0
	}
	return out
}
