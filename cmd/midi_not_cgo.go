//go:build !cgo

package cmd

import (
	"github.com/vsariola/msynth/midi"
	"gitlab.com/gomidi/midi/v2/drivers"
)

func NewMIDIDriver() (drivers.Driver, error) {
	// with no cgo, there is no rtmidi
	return nil, midi.ErrNoDriver
}
