// Package script compiles lines of script into edits of the signal graph.
//
// A line is either an assignment, "name = expression", or a bare expression,
// which is played on both channels. Expressions use the HCL native syntax:
// numbers, variable names, + - * /, parentheses and calls to the builtin
// functions. An index suffix delays a signal by a whole number of samples,
// e.g. "echo = sin(440)[24000] * 0.5".
package script

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vsariola/msynth/vm"
)

type (
	// Interpreter runs lines of script against an engine. Every line is one
	// edit: either it applies completely or not at all.
	Interpreter struct {
		engine *vm.Engine
		logger *slog.Logger
	}

	// Error is an error at a position of the script.
	Error struct {
		Line, Column int
		Err          error
	}

	statement struct {
		name string // empty for a bare expression
		expr hclsyntax.Expression
	}
)

var ErrSyntax = errors.New("syntax error")

const filename = "<script>"

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %v", e.Line, e.Column, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(engine *vm.Engine, logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interpreter{engine: engine, logger: logger}
}

// Exec runs one line of script.
func (in *Interpreter) Exec(line string) error {
	return in.exec(line, 1)
}

// ExecFile runs a script line by line. Lines with errors are skipped; the
// errors of all of them are returned joined.
func (in *Interpreter) ExecFile(r io.Reader) error {
	var errs []error
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		if err := in.exec(scanner.Text(), lineNo); err != nil {
			errs = append(errs, err)
		}
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, fmt.Errorf("cannot read script: %w", err))
	}
	return errors.Join(errs...)
}

func (in *Interpreter) exec(line string, lineNo int) error {
	stmt, ok, err := parse(line, lineNo)
	if err != nil || !ok {
		return err
	}
	err = in.engine.Edit(func(b *vm.Batch) error {
		return stmt.apply(b)
	})
	if err != nil {
		in.logger.Debug("script line rejected", "line", lineNo, "err", err)
		return err
	}
	return nil
}

// parse parses one line. ok is false for lines with nothing to do.
func parse(line string, lineNo int) (stmt statement, ok bool, err error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "//") {
		return statement{}, false, nil
	}
	start := hcl.Pos{Line: lineNo, Column: 1, Byte: 0}
	expr, exprDiags := hclsyntax.ParseExpression([]byte(line), filename, start)
	if !exprDiags.HasErrors() {
		return statement{expr: expr}, true, nil
	}
	file, diags := hclsyntax.ParseConfig([]byte(line), filename, start)
	if diags.HasErrors() {
		if !strings.Contains(line, "=") {
			diags = exprDiags
		}
		return statement{}, false, diagError(diags)
	}
	body := file.Body.(*hclsyntax.Body)
	if len(body.Blocks) > 0 {
		return statement{}, false, at(body.Blocks[0].TypeRange, fmt.Errorf("%w: blocks are not supported", ErrSyntax))
	}
	if len(body.Attributes) != 1 {
		return statement{}, false, &Error{Line: lineNo, Column: 1, Err: fmt.Errorf("%w: expected one assignment", ErrSyntax)}
	}
	for name, attr := range body.Attributes {
		stmt = statement{name: name, expr: attr.Expr}
	}
	return stmt, true, nil
}

func (s statement) apply(b *vm.Batch) error {
	if s.name == "" {
		root, err := compile(b, s.expr)
		if err != nil {
			return err
		}
		if err := b.SetVariable(vm.Right, root); err != nil {
			return at(s.expr.Range(), err)
		}
		return b.SetVariable(vm.Left, b.MakeVariableRef(vm.Right))
	}
	b.SetDummy(s.name)
	root, err := compile(b, s.expr)
	if err != nil {
		return err
	}
	if err := b.SetVariable(s.name, root); err != nil {
		return at(s.expr.Range(), err)
	}
	return nil
}

func at(rng hcl.Range, err error) error {
	return &Error{Line: rng.Start.Line, Column: rng.Start.Column, Err: err}
}

func diagError(diags hcl.Diagnostics) error {
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		err := fmt.Errorf("%w: %s", ErrSyntax, d.Summary)
		if d.Detail != "" {
			err = fmt.Errorf("%w: %s; %s", ErrSyntax, d.Summary, d.Detail)
		}
		if d.Subject != nil {
			return at(*d.Subject, err)
		}
		return err
	}
	return ErrSyntax
}
