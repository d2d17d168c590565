//go:build portaudio

package cmd

import "github.com/vsariola/msynth/portaudio"

func init() {
	Backends["portaudio"] = portaudio.Open
}
