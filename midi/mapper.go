// Package midi turns MIDI input into variable rebinds, so that scripts can
// play notes: note is the frequency of the last note in Hz, velocity and
// gate follow the keyboard, and ccN follows control change N.
package midi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/vsariola/msynth/vm"
	"gitlab.com/gomidi/midi/v2"
)

type Mapper struct {
	engine *vm.Engine
	logger *slog.Logger
	events chan midi.Message
}

// Names of the variables the mapper binds.
const (
	NoteVar     = "note"
	VelocityVar = "velocity"
	GateVar     = "gate"
)

const eventBufferSize = 1024

// defaults are bound in this order, which is also their evaluation order
// within a cycle.
var defaults = []Binding{{Name: NoteVar, Value: 440}, {Name: VelocityVar, Value: 0}, {Name: GateVar, Value: 0}}

var (
	ErrNoDriver = errors.New("no MIDI driver in builds without cgo")
	ErrNoInput  = errors.New("no such MIDI input")
)

// NewMapper binds note, velocity and gate, unless they are bound already, so
// that scripts can refer to them before the first note.
func NewMapper(engine *vm.Engine, logger *slog.Logger) (*Mapper, error) {
	if logger == nil {
		logger = slog.Default()
	}
	err := engine.Edit(func(b *vm.Batch) error {
		for _, d := range defaults {
			if _, ok := b.GetVariable(d.Name); ok {
				continue
			}
			if err := b.SetVariable(d.Name, b.MakeConstant(d.Value)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("cannot bind midi variables: %w", err)
	}
	return &Mapper{engine: engine, logger: logger, events: make(chan midi.Message, eventBufferSize)}, nil
}

// HandleMessage queues msg for Run. It never blocks: if the queue is full,
// the message is dropped. Its signature matches the callback of
// midi.ListenTo.
func (m *Mapper) HandleMessage(msg midi.Message, timestampms int32) {
	select {
	case m.events <- msg:
	default:
		m.logger.Warn("midi queue full, message dropped", "msg", msg.String())
	}
}

// Run applies queued messages until ctx is done.
func (m *Mapper) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-m.events:
			if err := m.Apply(msg); err != nil {
				m.logger.Warn("cannot apply midi message", "msg", msg.String(), "err", err)
			}
		}
	}
}

// Apply rebinds the variables msg maps to in one edit. Messages that map to
// nothing are ignored.
func (m *Mapper) Apply(msg midi.Message) error {
	values := Map(msg)
	if len(values) == 0 {
		return nil
	}
	return m.engine.Edit(func(b *vm.Batch) error {
		for _, v := range values {
			if err := b.SetVariable(v.Name, b.MakeConstant(v.Value)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Binding is a variable and the constant it is bound to.
type Binding struct {
	Name  string
	Value float32
}

// Map returns the bindings a message translates to.
func Map(msg midi.Message) []Binding {
	var channel, key, velocity, controller, value uint8
	switch {
	case msg.GetNoteStart(&channel, &key, &velocity):
		return []Binding{
			{NoteVar, NoteFrequency(key)},
			{VelocityVar, float32(velocity) / 127},
			{GateVar, 1},
		}
	case msg.GetNoteEnd(&channel, &key):
		return []Binding{{GateVar, 0}}
	case msg.GetControlChange(&channel, &controller, &value):
		return []Binding{{fmt.Sprintf("cc%d", controller), float32(value) / 127}}
	}
	return nil
}

// NoteFrequency returns the equal tempered frequency of a MIDI key, A4 = 69
// = 440 Hz.
func NoteFrequency(key uint8) float32 {
	return float32(440 * math.Pow(2, (float64(key)-69)/12))
}
