package midi

import (
	"fmt"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Listen opens the first input of driver whose name starts with namePrefix
// (the first input, if namePrefix is empty) and feeds it to m. Call the
// returned function to close the input; closing the driver is up to the
// caller.
func Listen(driver drivers.Driver, namePrefix string, m *Mapper) (stop func(), err error) {
	ins, err := driver.Ins()
	if err != nil {
		return nil, fmt.Errorf("cannot list MIDI inputs: %w", err)
	}
	for _, in := range ins {
		if !strings.HasPrefix(in.String(), namePrefix) {
			continue
		}
		stopListening, err := midi.ListenTo(in, m.HandleMessage)
		if err != nil {
			return nil, fmt.Errorf("cannot listen to MIDI input %q: %w", in.String(), err)
		}
		m.logger.Info("listening to MIDI input", "name", in.String())
		return func() {
			stopListening()
			in.Close()
		}, nil
	}
	return nil, fmt.Errorf("%w: no input starting with %q", ErrNoInput, namePrefix)
}
