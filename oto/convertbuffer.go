package oto

import (
	"encoding/binary"

	"github.com/vsariola/msynth"
)

const bytesPerFrame = 4

// appendFrames appends frames to dst as interleaved 16-bit little-endian
// samples.
func appendFrames(dst []byte, frames []msynth.Frame) []byte {
	for _, f := range frames {
		dst = binary.LittleEndian.AppendUint16(dst, uint16(f[0]))
		dst = binary.LittleEndian.AppendUint16(dst, uint16(f[1]))
	}
	return dst
}
