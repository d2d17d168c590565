package vm

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vsariola/msynth"
)

type (
	// Engine owns the signal graph: every node, the variable table and the
	// evaluation order. All access goes through a single mutex: edits hold it
	// for the whole batch and rendering holds it while evaluating one period,
	// so the renderer never sees a half edited graph.
	Engine struct {
		mu     sync.Mutex
		arena  arena
		vars   map[string]*Variable
		list   []*Variable // in creation order
		order  []*Variable // evaluation order, see regroup
		seed   uint32
		left   *Variable
		right  *Variable
		logger *slog.Logger
	}

	// Variable is a named, rebindable graph. Value is the result of the last
	// evaluation.
	Variable struct {
		Name  string
		Value float32
		root  NodeID
	}

	// VariableInfo is a snapshot of a variable.
	VariableInfo struct {
		Name  string
		Value float32
		Root  NodeID
	}
)

// Names of the output channel variables.
const (
	Left  = "left"
	Right = "right"
)

const initialSeed = 20091989

// MaxDelayLength is the longest delay in samples, a bit over 6 minutes at
// 44.1 kHz.
const MaxDelayLength = 1 << 24

var (
	ErrUnknownFunction = errors.New("unknown function")
	ErrArity           = errors.New("wrong number of arguments")
	ErrUndefined       = errors.New("undefined variable")
	ErrCycle           = errors.New("variable depends on itself without a delay")
	ErrShared          = errors.New("node already used in another graph")
	ErrInvalidNode     = errors.New("invalid node")
	ErrNotDelay        = errors.New("node is not a delay")
	ErrDelayLength     = errors.New("delay length out of range")
)

// New creates an engine with the output variables bound to silence.
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		vars:   make(map[string]*Variable),
		seed:   initialSeed,
		logger: logger,
	}
	err := e.Edit(func(b *Batch) error {
		if err := b.SetVariable(Left, b.MakeConstant(0)); err != nil {
			return err
		}
		return b.SetVariable(Right, b.MakeConstant(0))
	})
	if err != nil {
		panic("vm: cannot bind output variables: " + err.Error())
	}
	e.left, e.right = e.vars[Left], e.vars[Right]
	return e
}

// Edit runs fn as one batch while holding the engine lock. If fn returns an
// error, every variable binding and delay length changed by the batch is
// restored. Either way, unreachable nodes are collected and the evaluation
// order recomputed before the lock is released.
func (e *Engine) Edit(fn func(b *Batch) error) error {
	waitStart := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()
	start := time.Now()
	editWaitSeconds.Observe(start.Sub(waitStart).Seconds())
	b := &Batch{e: e}
	err := fn(b)
	if err != nil {
		b.rollback()
		editsRejected.Inc()
	}
	freed := e.collect()
	e.regroup()
	nodesLive.Set(float64(e.arena.live))
	variablesBound.Set(float64(len(e.list)))
	editSeconds.Observe(time.Since(start).Seconds())
	e.logger.Debug("edit", "ok", err == nil, "freed", freed, "live", e.arena.live)
	return err
}

// Render evaluates one period: for every frame, all variables are evaluated
// once in order and the output variables are copied to buf. Returns the clock
// of the sample after the last one rendered.
func (e *Engine) Render(buf msynth.AudioBuffer, c msynth.SampleClock) msynth.SampleClock {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range buf {
		e.evalAll(c)
		buf[i] = [2]float32{e.left.Value, e.right.Value}
		c = c.Next()
	}
	return c
}

// Step renders a single frame.
func (e *Engine) Step(c msynth.SampleClock) [2]float32 {
	var buf [1][2]float32
	e.Render(buf[:], c)
	return buf[0]
}

// Variables returns a snapshot of all variables in creation order.
func (e *Engine) Variables() []VariableInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	ret := make([]VariableInfo, len(e.list))
	for i, v := range e.list {
		ret[i] = VariableInfo{Name: v.Name, Value: v.Value, Root: v.root}
	}
	return ret
}

// Order returns the names of the variables in evaluation order.
func (e *Engine) Order() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	ret := make([]string, len(e.order))
	for i, v := range e.order {
		ret[i] = v.Name
	}
	return ret
}

// Live returns the number of allocated nodes.
func (e *Engine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.arena.live
}

// collect frees every node not reachable from a variable.
func (e *Engine) collect() int {
	marked := make([]bool, len(e.arena.nodes))
	for _, v := range e.list {
		e.arena.mark(v.root, marked)
	}
	return e.arena.sweep(marked)
}

func (e *Engine) nextSeed() uint32 {
	e.seed = e.seed*1103515245 + 12345
	return e.seed | 1
}
