// Package console is the interactive front end: a line editor prompt that
// runs script lines and a few meta commands, and a watcher that reruns a
// script file when it changes.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode"

	"github.com/peterh/liner"
	"github.com/vsariola/msynth"
	"github.com/vsariola/msynth/player"
	"github.com/vsariola/msynth/script"
	"github.com/vsariola/msynth/vm"
)

type (
	// Console runs lines typed by the user. Output of the commands goes to
	// Out.
	Console struct {
		Out         io.Writer
		HistoryFile string

		engine *vm.Engine
		interp *script.Interpreter
		player Player
		logger *slog.Logger
	}

	// Player is what the console controls of the synthesis loop.
	Player interface {
		Stats() player.Stats
		Level() player.Level
		Volume() float32
		SetVolume(v float32) error
	}
)

const Prompt = "msynth> "

// ErrQuit is returned by Exec when the user asks to quit.
var ErrQuit = errors.New("quit")

func New(engine *vm.Engine, interp *script.Interpreter, p Player, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{Out: os.Stdout, engine: engine, interp: interp, player: p, logger: logger}
}

// DefaultHistoryFile is ~/.msynth_history, or empty if there is no home
// directory.
func DefaultHistoryFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".msynth_history")
}

// Run prompts for lines until the user quits, closes the input or ctx is
// done. Errors of the lines are printed; they do not stop the console.
func (c *Console) Run(ctx context.Context) error {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetTabCompletionStyle(liner.TabPrints)
	line.SetWordCompleter(c.complete)
	if c.HistoryFile != "" {
		if f, err := os.Open(c.HistoryFile); err == nil {
			line.ReadHistory(f)
			f.Close()
		}
		defer c.saveHistory(line)
	}
	for ctx.Err() == nil {
		input, err := line.Prompt(Prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(c.Out)
			return nil
		}
		if err != nil {
			return fmt.Errorf("cannot read prompt: %w", err)
		}
		if strings.TrimSpace(input) != "" {
			line.AppendHistory(input)
		}
		if err := c.Exec(input); errors.Is(err, ErrQuit) {
			return nil
		} else if err != nil {
			fmt.Fprintln(c.Out, err)
		}
	}
	return nil
}

func (c *Console) saveHistory(line *liner.State) {
	f, err := os.Create(c.HistoryFile)
	if err != nil {
		c.logger.Warn("cannot save history", "err", err)
		return
	}
	defer f.Close()
	if _, err := line.WriteHistory(f); err != nil {
		c.logger.Warn("cannot save history", "err", err)
	}
}

// Exec runs one line: a meta command starting with ':', quit, or a line of
// script.
func (c *Console) Exec(input string) error {
	trimmed := strings.TrimSpace(input)
	switch {
	case trimmed == "quit" || trimmed == "exit":
		return ErrQuit
	case strings.HasPrefix(trimmed, ":"):
		fields := strings.Fields(trimmed[1:])
		if len(fields) == 0 {
			return c.help(nil)
		}
		for _, cmd := range commands {
			if cmd.name == fields[0] {
				return cmd.run(c, fields[1:])
			}
		}
		return fmt.Errorf("%w: %s, try :help", ErrUnknownCommand, fields[0])
	}
	return c.interp.Exec(input)
}

// complete completes the identifier under the cursor with builtin and
// variable names.
func (c *Console) complete(line string, pos int) (head string, completions []string, tail string) {
	runes := []rune(line)
	pos = min(pos, len(runes))
	start := pos
	for start > 0 && isIdent(runes[start-1]) {
		start--
	}
	word := string(runes[start:pos])
	if word == "" {
		return string(runes[:pos]), nil, string(runes[pos:])
	}
	names := msynth.Names()
	for _, v := range c.engine.Variables() {
		names = append(names, v.Name)
	}
	slices.Sort(names)
	for _, n := range slices.Compact(names) {
		if strings.HasPrefix(n, word) {
			completions = append(completions, n)
		}
	}
	return string(runes[:start]), completions, string(runes[pos:])
}

func isIdent(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
