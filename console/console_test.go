package console

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsariola/msynth"
	"github.com/vsariola/msynth/player"
	"github.com/vsariola/msynth/script"
	"github.com/vsariola/msynth/vm"
)

type fakePlayer struct {
	volume float32
}

func (p *fakePlayer) Stats() player.Stats { return player.Stats{Samples: 1234, Underruns: 2, Resumes: 1} }
func (p *fakePlayer) Level() player.Level {
	return player.Level{Peak: [2]float32{0.5, 0.25}, RMS: [2]float32{0.125, 0.0625}}
}
func (p *fakePlayer) Volume() float32 { return p.volume }
func (p *fakePlayer) SetVolume(v float32) error {
	if v < 0 || v > 1 {
		return player.ErrVolume
	}
	p.volume = v
	return nil
}

func newConsole(t *testing.T) (*Console, *vm.Engine, *bytes.Buffer, *fakePlayer) {
	t.Helper()
	e := vm.New(nil)
	p := &fakePlayer{volume: 0.5}
	c := New(e, script.New(e, nil), p, nil)
	var out bytes.Buffer
	c.Out = &out
	return c, e, &out, p
}

func TestExecScriptLine(t *testing.T) {
	c, e, _, _ := newConsole(t)
	require.NoError(t, c.Exec("left = 0.25"))
	assert.Equal(t, [2]float32{0.25, 0}, e.Step(msynth.ClockAt(44100, 0)))
	assert.ErrorIs(t, c.Exec("left = nosuch(1)"), vm.ErrUnknownFunction)
	assert.ErrorIs(t, c.Exec("quit"), ErrQuit)
	assert.ErrorIs(t, c.Exec("  exit "), ErrQuit)
	assert.ErrorIs(t, c.Exec(":nosuch"), ErrUnknownCommand)
}

func TestVarsAndOrder(t *testing.T) {
	c, e, out, _ := newConsole(t)
	require.NoError(t, c.Exec("a = 2"))
	require.NoError(t, c.Exec("left = a * 3"))
	e.Step(msynth.ClockAt(44100, 0))
	require.NoError(t, c.Exec(":vars"))
	assert.Equal(t, "left = 6\nright = 0\na = 2\n", out.String())
	out.Reset()
	require.NoError(t, c.Exec(":order"))
	assert.Contains(t, out.String(), "a\n")
	assert.Less(t, bytes.Index(out.Bytes(), []byte(". a")), bytes.Index(out.Bytes(), []byte(". left")))
}

func TestStatsAndVolume(t *testing.T) {
	c, _, out, p := newConsole(t)
	require.NoError(t, c.Exec(":stats"))
	assert.Contains(t, out.String(), "samples 1234, underruns 2, resumes 1")
	assert.Contains(t, out.String(), "peak 0.500 0.250")
	out.Reset()
	require.NoError(t, c.Exec(":volume"))
	assert.Equal(t, "volume 50%\n", out.String())
	require.NoError(t, c.Exec(":volume 80"))
	assert.InDelta(t, 0.8, p.volume, 1e-6)
	assert.ErrorIs(t, c.Exec(":volume 180"), player.ErrVolume)
	assert.ErrorIs(t, c.Exec(":volume loud"), ErrUsage)
	c.player = nil
	assert.ErrorIs(t, c.Exec(":stats"), ErrNoPlayer)
}

func TestDelayCommand(t *testing.T) {
	c, e, _, _ := newConsole(t)
	require.NoError(t, c.Exec("ramp = 1"))
	require.NoError(t, c.Exec("left = ramp[2]"))
	require.NoError(t, c.Exec(":delay left 1"))
	clock := msynth.ClockAt(44100, 0)
	assert.Equal(t, float32(0), e.Step(clock)[0])
	assert.Equal(t, float32(1), e.Step(clock.Next())[0])
	assert.ErrorIs(t, c.Exec(":delay ramp 1"), vm.ErrNotDelay)
	assert.ErrorIs(t, c.Exec(":delay nosuch 1"), vm.ErrUndefined)
	assert.ErrorIs(t, c.Exec(":delay left -1"), vm.ErrDelayLength)
	assert.ErrorIs(t, c.Exec(":delay left"), ErrUsage)
}

func TestLoadAndHelp(t *testing.T) {
	c, e, out, _ := newConsole(t)
	path := filepath.Join(t.TempDir(), "a.msy")
	require.NoError(t, os.WriteFile(path, []byte("x = 0.5\nleft = x\n"), 0644))
	require.NoError(t, c.Exec(":load "+path))
	assert.Equal(t, float32(0.5), e.Step(msynth.ClockAt(44100, 0))[0])
	assert.Error(t, c.Exec(":load "+path+".missing"))
	require.NoError(t, c.Exec(":help"))
	for _, cmd := range commands {
		assert.Contains(t, out.String(), ":"+cmd.name)
	}
}

func TestComplete(t *testing.T) {
	c, _, _, _ := newConsole(t)
	require.NoError(t, c.Exec("sinewave = 1"))
	head, completions, tail := c.complete("x = si + 1", 6)
	assert.Equal(t, "x = ", head)
	assert.Equal(t, []string{"sin", "sinewave"}, completions)
	assert.Equal(t, " + 1", tail)
	_, completions, _ = c.complete("x = ", 4)
	assert.Empty(t, completions)
}

func TestWatcherReruns(t *testing.T) {
	e := vm.New(nil)
	path := filepath.Join(t.TempDir(), "live.msy")
	require.NoError(t, os.WriteFile(path, []byte("left = 0.1\n"), 0644))
	w := NewWatcher(path, script.New(e, nil), nil)
	w.Debounce = 10 * time.Millisecond
	w.ran = make(chan error, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error)
	go func() { done <- w.Run(ctx) }()
	// give the watcher time to start watching
	require.Eventually(t, func() bool {
		require.NoError(t, os.WriteFile(path, []byte("left = 0.75\n"), 0644))
		select {
		case err := <-w.ran:
			require.NoError(t, err)
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, float32(0.75), e.Step(msynth.ClockAt(44100, 0))[0])
	cancel()
	assert.NoError(t, <-done)
}
