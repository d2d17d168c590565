package console

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/vsariola/msynth/vm"
)

type command struct {
	name, args, help string
	run              func(c *Console, args []string) error
}

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrUsage          = errors.New("usage")
	ErrNoPlayer       = errors.New("no player running")
)

var commands []command

func init() {
	commands = []command{
		{"vars", "", "list variables and their last values", (*Console).vars},
		{"order", "", "show the evaluation order", (*Console).order},
		{"stats", "", "show player statistics", (*Console).stats},
		{"volume", "[percent]", "show or set the volume", (*Console).volume},
		{"delay", "name samples", "set the length of the delay at the root of a variable", (*Console).delay},
		{"load", "file", "run a script file", (*Console).load},
		{"help", "", "show this help", (*Console).help},
	}
}

func (c *Console) vars(args []string) error {
	for _, v := range c.engine.Variables() {
		fmt.Fprintf(c.Out, "%s = %g\n", v.Name, v.Value)
	}
	return nil
}

func (c *Console) order(args []string) error {
	for i, name := range c.engine.Order() {
		fmt.Fprintf(c.Out, "%d. %s\n", i+1, name)
	}
	return nil
}

func (c *Console) stats(args []string) error {
	if c.player == nil {
		return ErrNoPlayer
	}
	s := c.player.Stats()
	l := c.player.Level()
	fmt.Fprintf(c.Out, "samples %d, underruns %d, resumes %d\n", s.Samples, s.Underruns, s.Resumes)
	fmt.Fprintf(c.Out, "peak %.3f %.3f, rms %.3f %.3f\n", l.Peak[0], l.Peak[1], l.RMS[0], l.RMS[1])
	fmt.Fprintf(c.Out, "nodes %d\n", c.engine.Live())
	return nil
}

func (c *Console) volume(args []string) error {
	if c.player == nil {
		return ErrNoPlayer
	}
	switch len(args) {
	case 0:
		fmt.Fprintf(c.Out, "volume %g%%\n", c.player.Volume()*100)
		return nil
	case 1:
		percent, err := strconv.ParseFloat(args[0], 32)
		if err != nil {
			return fmt.Errorf("%w: :volume percent", ErrUsage)
		}
		return c.player.SetVolume(float32(percent / 100))
	}
	return fmt.Errorf("%w: :volume [percent]", ErrUsage)
}

func (c *Console) delay(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("%w: :delay name samples", ErrUsage)
	}
	length, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("%w: :delay name samples", ErrUsage)
	}
	return c.engine.Edit(func(b *vm.Batch) error {
		root, ok := b.Graph(args[0])
		if !ok {
			return fmt.Errorf("%w: %s", vm.ErrUndefined, args[0])
		}
		return b.SetDelay(root, length)
	})
}

func (c *Console) load(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: :load file", ErrUsage)
	}
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("cannot load script: %w", err)
	}
	defer f.Close()
	return c.interp.ExecFile(f)
}

func (c *Console) help(args []string) error {
	fmt.Fprintln(c.Out, "Type name = expression to bind a variable, or an expression to play it.")
	for _, cmd := range commands {
		fmt.Fprintf(c.Out, "  :%-7s %-13s %s\n", cmd.name, cmd.args, cmd.help)
	}
	fmt.Fprintln(c.Out, "  quit                  exit")
	return nil
}
