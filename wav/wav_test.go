package wav_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	gowav "github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsariola/msynth"
	"github.com/vsariola/msynth/player"
	"github.com/vsariola/msynth/vm"
	"github.com/vsariola/msynth/wav"
)

func decode(t *testing.T, path string) (*gowav.Decoder, []int) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	dec := gowav.NewDecoder(f)
	require.True(t, dec.IsValidFile())
	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	return dec, buf.Data
}

func TestWriteFrames(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	sink, err := wav.Opener(path)(msynth.AudioConfig{SampleRate: 22050})
	require.NoError(t, err)
	assert.Equal(t, 22050, sink.Params().SampleRate)
	n, err := sink.WriteFrames([]msynth.Frame{{1, -1}, {32767, -32768}})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	require.NoError(t, sink.Drain())
	require.NoError(t, sink.Close())
	dec, data := decode(t, path)
	assert.Equal(t, uint32(22050), dec.SampleRate)
	assert.Equal(t, uint16(2), dec.NumChans)
	assert.Equal(t, uint16(16), dec.BitDepth)
	assert.Equal(t, []int{1, -1, 32767, -32768}, data)
}

func TestRender(t *testing.T) {
	e := vm.New(nil)
	require.NoError(t, e.Edit(func(b *vm.Batch) error {
		if err := b.SetVariable(vm.Left, b.MakeConstant(1)); err != nil {
			return err
		}
		return b.SetVariable(vm.Right, b.MakeConstant(-1))
	}))
	path := filepath.Join(t.TempDir(), "render.wav")
	p := player.New(e, wav.Opener(path), msynth.AudioConfig{SampleRate: 8000, PeriodTime: 10000}, nil)
	require.NoError(t, p.SetVolume(1))
	p.SetLimit(1000)
	require.NoError(t, p.Start(context.Background()))
	require.NoError(t, p.Wait())
	_, data := decode(t, path)
	require.Len(t, data, 2000)
	assert.Equal(t, 32767, data[0])
	assert.Equal(t, -32767, data[1])
	assert.Equal(t, player.Stats{Samples: 1000}, p.Stats())
}

func TestOpenerError(t *testing.T) {
	_, err := wav.Opener(filepath.Join(t.TempDir(), "no", "such", "dir.wav"))(msynth.AudioConfig{})
	assert.Error(t, err)
}
