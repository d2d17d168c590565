//go:build portaudio

package portaudio

import (
	"testing"

	"github.com/gordonklaus/portaudio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickDevice(t *testing.T) {
	devices := []*portaudio.DeviceInfo{
		{Name: "Microphone", MaxInputChannels: 2},
		{Name: "Speakers (USB)", MaxOutputChannels: 2},
		{Name: "Speakers (HDMI)", MaxOutputChannels: 8},
	}
	d, err := pickDevice(devices, "Speakers")
	require.NoError(t, err)
	assert.Equal(t, "Speakers (USB)", d.Name)
	d, err = pickDevice(devices, "Speakers (H")
	require.NoError(t, err)
	assert.Equal(t, "Speakers (HDMI)", d.Name)
	_, err = pickDevice(devices, "Microphone")
	assert.ErrorIs(t, err, ErrNoDevice)
}
