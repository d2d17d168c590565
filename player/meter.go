package player

import (
	"math"

	"github.com/viterin/vek/vek32"
	"github.com/vsariola/msynth"
)

type (
	// Level is the peak and RMS level of one period, per channel.
	Level struct {
		Peak [2]float32
		RMS  [2]float32
	}

	meter struct {
		channels [2][]float32
		tmp      []float32
	}
)

var channelNames = [2]string{"left", "right"}

func (m *meter) update(buf msynth.AudioBuffer) Level {
	var ret Level
	if len(buf) == 0 {
		return ret
	}
	for c := range m.channels {
		m.channels[c] = m.channels[c][:0]
	}
	for _, s := range buf {
		m.channels[0] = append(m.channels[0], s[0])
		m.channels[1] = append(m.channels[1], s[1])
	}
	if cap(m.tmp) < len(buf) {
		m.tmp = make([]float32, len(buf))
	}
	m.tmp = m.tmp[:len(buf)]
	for c, x := range m.channels {
		ret.Peak[c] = vek32.Max(vek32.Abs_Into(m.tmp, x))
		ret.RMS[c] = float32(math.Sqrt(float64(vek32.Mean(vek32.Mul_Into(m.tmp, x, x)))))
		peakLevel.WithLabelValues(channelNames[c]).Set(float64(ret.Peak[c]))
		rmsLevel.WithLabelValues(channelNames[c]).Set(float64(ret.RMS[c]))
	}
	return ret
}
