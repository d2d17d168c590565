package script_test

import (
	"errors"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsariola/msynth"
	"github.com/vsariola/msynth/script"
	"github.com/vsariola/msynth/vm"
	"gopkg.in/yaml.v3"
)

type regressionTest struct {
	SampleRate int    `yaml:"samplerate"`
	Frames     int    `yaml:"frames"`
	Script     string `yaml:"script"`
	Errors     int    `yaml:"errors"`
	Expect     []struct {
		Frame int     `yaml:"frame"`
		Left  float32 `yaml:"left"`
		Right float32 `yaml:"right"`
	} `yaml:"expect"`
}

func TestAllRegressionTests(t *testing.T) {
	_, myname, _, _ := runtime.Caller(0)
	files, err := filepath.Glob(path.Join(path.Dir(myname), "testdata", "*.yml"))
	require.NoError(t, err)
	require.NotEmpty(t, files)
	for _, filename := range files {
		basename := filepath.Base(filename)
		testname := strings.TrimSuffix(basename, path.Ext(basename))
		t.Run(testname, func(t *testing.T) {
			contents, err := os.ReadFile(filename)
			require.NoError(t, err)
			var test regressionTest
			require.NoError(t, yaml.Unmarshal(contents, &test))
			engine := vm.New(nil)
			err = script.New(engine, nil).ExecFile(strings.NewReader(test.Script))
			if test.Errors == 0 {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Len(t, err.(interface{ Unwrap() []error }).Unwrap(), test.Errors)
			}
			buffer := make(msynth.AudioBuffer, test.Frames)
			engine.Render(buffer, msynth.ClockAt(test.SampleRate, 0))
			for _, e := range test.Expect {
				assert.InDelta(t, e.Left, buffer[e.Frame][0], 1e-4, "left at frame %d", e.Frame)
				assert.InDelta(t, e.Right, buffer[e.Frame][1], 1e-4, "right at frame %d", e.Frame)
			}
		})
	}
}

func TestExecErrors(t *testing.T) {
	tests := []struct {
		line string
		want error
	}{
		{"x = nosuchfunc(1)", vm.ErrUnknownFunction},
		{"x = sin()", vm.ErrArity},
		{"x = add(1)", vm.ErrArity},
		{"x = y", vm.ErrUndefined},
		{"x = x + 1", vm.ErrCycle},
		{"x = x[0] + 1", vm.ErrCycle},
		{"x = \"hello\"", script.ErrSyntax},
		{"x = true", script.ErrSyntax},
		{"x = a.b", script.ErrSyntax},
		{"x = sin(1)[1.5]", script.ErrSyntax},
		{"x = sin(1)[2000000000]", vm.ErrDelayLength},
		{"x = sin(1)[1e30]", vm.ErrDelayLength},
		{"x = sin(1)[a]", script.ErrSyntax},
		{"x = 1 % 2", script.ErrSyntax},
		{"x = 1 == 2", script.ErrSyntax},
		{"x = !1", script.ErrSyntax},
		{"x = ", script.ErrSyntax},
		{"sin(1", script.ErrSyntax},
		{"block { }", script.ErrSyntax},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			engine := vm.New(nil)
			live := engine.Live()
			err := script.New(engine, nil).Exec(tt.line)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, live, engine.Live(), "failed line leaves the graph intact")
			assert.Len(t, engine.Variables(), 2, "failed line creates no variables")
		})
	}
}

func TestErrorPosition(t *testing.T) {
	engine := vm.New(nil)
	in := script.New(engine, nil)
	err := in.ExecFile(strings.NewReader("a = 1\n\n# comment\nb = a + nosuch(2)\n"))
	var serr *script.Error
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, 4, serr.Line)
	assert.Equal(t, 9, serr.Column)
	assert.ErrorIs(t, err, vm.ErrUnknownFunction)
	assert.Contains(t, err.Error(), "4:9")
}

func TestBlankAndCommentLines(t *testing.T) {
	engine := vm.New(nil)
	in := script.New(engine, nil)
	for _, line := range []string{"", "   ", "# hello", "// hello"} {
		assert.NoError(t, in.Exec(line))
	}
	assert.Len(t, engine.Variables(), 2)
}

func TestRedefinitionKeepsDependents(t *testing.T) {
	engine := vm.New(nil)
	in := script.New(engine, nil)
	require.NoError(t, in.Exec("freq = 1"))
	require.NoError(t, in.Exec("left = sin(freq)"))
	require.NoError(t, in.Exec("freq = 2"))
	buf := make(msynth.AudioBuffer, 6001)
	engine.Render(buf, msynth.ClockAt(48000, 0))
	// 2 Hz reaches its peak at 1/8 s
	assert.InDelta(t, 1, buf[6000][0], 1e-5)
}

func TestNegativeLiteralAndNesting(t *testing.T) {
	engine := vm.New(nil)
	in := script.New(engine, nil)
	require.NoError(t, in.Exec("left = -(2 * (3 + -1))"))
	require.NoError(t, in.Exec("right = -left"))
	assert.Equal(t, [2]float32{-4, 4}, engine.Step(msynth.ClockAt(48000, 0)))
}
