package cmd

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/vsariola/msynth"
	"github.com/vsariola/msynth/oto"
)

// Backends are the audio backends compiled in, by name. Build tags add more.
var Backends = map[string]msynth.Opener{
	"oto": oto.Open,
}

var ErrUnknownBackend = errors.New("unknown audio backend")

func Backend(name string) (msynth.Opener, error) {
	open, ok := Backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q, available: %s", ErrUnknownBackend, name, strings.Join(BackendNames(), ", "))
	}
	return open, nil
}

func BackendNames() []string {
	names := make([]string, 0, len(Backends))
	for name := range Backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
