package vm

import (
	"fmt"

	"github.com/vsariola/msynth"
)

// Batch is one edit of the engine, valid only inside the function given to
// Engine.Edit. Nodes made by a batch are pending until they are attached to a
// variable, directly or through a parent; pending nodes are freed when the
// batch ends.
type Batch struct {
	e    *Engine
	undo []func()
}

func (b *Batch) MakeConstant(value float32) NodeID {
	return b.e.arena.alloc(node{kind: KindConstant, value: value, in: [2]NodeID{Nil, Nil}})
}

// MakeVariableRef makes a node reading the last value of the variable name.
// The name needs to be bound only when the node is attached to a variable.
func (b *Batch) MakeVariableRef(name string) NodeID {
	return b.e.arena.alloc(node{kind: KindVariableRef, name: name, in: [2]NodeID{Nil, Nil}})
}

func (b *Batch) MakeCall0(name string) (NodeID, error) {
	return b.MakeCall(name)
}

func (b *Batch) MakeCall1(name string, in NodeID) (NodeID, error) {
	return b.MakeCall(name, in)
}

func (b *Batch) MakeCall2(name string, left, right NodeID) (NodeID, error) {
	return b.MakeCall(name, left, right)
}

// MakeCall makes a node calling the builtin function name, with args as its
// inputs.
func (b *Batch) MakeCall(name string, args ...NodeID) (NodeID, error) {
	def, ok := msynth.Lookup(name)
	if !ok {
		return Nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}
	if def.Arity != len(args) {
		return Nil, fmt.Errorf("%w: %s takes %d, got %d", ErrArity, name, def.Arity, len(args))
	}
	for _, a := range args {
		if !b.e.arena.valid(a) {
			return Nil, fmt.Errorf("%w: argument %d of %s", ErrInvalidNode, a, name)
		}
	}
	n := node{fn: def, in: [2]NodeID{Nil, Nil}}
	copy(n.in[:], args)
	switch def.Arity {
	case 0:
		n.kind = KindCall0
		n.state.Seed = b.e.nextSeed()
	case 1:
		n.kind = KindCall1
	case 2:
		n.kind = KindCall2
	}
	return b.e.arena.alloc(n), nil
}

// MakeDelay makes a node delaying in by length samples.
func (b *Batch) MakeDelay(in NodeID, length int) (NodeID, error) {
	if !b.e.arena.valid(in) {
		return Nil, fmt.Errorf("%w: delay input %d", ErrInvalidNode, in)
	}
	if length < 0 || length > MaxDelayLength {
		return Nil, fmt.Errorf("%w: %d", ErrDelayLength, length)
	}
	n := node{kind: KindCall1, delay: true, fn: msynth.DelayFunc, in: [2]NodeID{in, Nil}}
	n.state.SetDelay(length)
	return b.e.arena.alloc(n), nil
}

// SetDelay changes the length of an existing delay node. The history is
// cleared. Shortening a delay to zero is rejected if that leaves a variable
// depending on itself without a delay.
func (b *Batch) SetDelay(id NodeID, length int) error {
	if !b.IsDelay(id) {
		return fmt.Errorf("%w: %d", ErrNotDelay, id)
	}
	if length < 0 || length > MaxDelayLength {
		return fmt.Errorf("%w: %d", ErrDelayLength, length)
	}
	n := b.e.arena.get(id)
	history, pos := n.state.History, n.state.Pos
	restore := func() {
		n := &b.e.arena.nodes[id]
		n.state.History, n.state.Pos = history, pos
	}
	n.state.SetDelay(length)
	if length == 0 {
		for _, v := range b.e.list {
			if b.e.SpeculateCycle(v.Name, v.root) {
				restore()
				return fmt.Errorf("%w: %s", ErrCycle, v.Name)
			}
		}
	}
	b.undo = append(b.undo, restore)
	return nil
}

func (b *Batch) IsDelay(id NodeID) bool {
	return b.e.arena.valid(id) && b.e.arena.nodes[id].delay
}

// DelayLength returns the length of a delay node.
func (b *Batch) DelayLength(id NodeID) (int, error) {
	if !b.IsDelay(id) {
		return 0, fmt.Errorf("%w: %d", ErrNotDelay, id)
	}
	return len(b.e.arena.nodes[id].state.History), nil
}

// Kind returns the variant of a node, KindFree for invalid handles.
func (b *Batch) Kind(id NodeID) Kind {
	if !b.e.arena.valid(id) {
		return KindFree
	}
	return b.e.arena.nodes[id].kind
}

// Child returns the input in the given slot of a call node, or Nil.
func (b *Batch) Child(id NodeID, slot int) NodeID {
	if !b.e.arena.valid(id) {
		return Nil
	}
	c := b.e.arena.nodes[id].children()
	if slot < 0 || slot >= len(c) {
		return Nil
	}
	return c[slot]
}

// Graph returns the root of the graph bound to name.
func (b *Batch) Graph(name string) (NodeID, bool) {
	v, ok := b.e.vars[name]
	if !ok {
		return Nil, false
	}
	return v.root, true
}

// Evaluate evaluates a single node at clock c, without storing anything to
// the variables.
func (b *Batch) Evaluate(id NodeID, c msynth.SampleClock) float32 {
	return b.e.eval(b.e.arena.get(id), c)
}

// Live returns the number of allocated nodes, pending ones included.
func (b *Batch) Live() int {
	return b.e.arena.live
}

// Pending returns the number of allocated nodes not reachable from any
// variable, i.e. the ones the next collection would free.
func (b *Batch) Pending() int {
	marked := make([]bool, len(b.e.arena.nodes))
	for _, v := range b.e.list {
		b.e.arena.mark(v.root, marked)
	}
	n := 0
	for i := range b.e.arena.nodes {
		if b.e.arena.nodes[i].kind != KindFree && !marked[i] {
			n++
		}
	}
	return n
}

func (b *Batch) rollback() {
	for i := len(b.undo) - 1; i >= 0; i-- {
		b.undo[i]()
	}
	b.undo = nil
}
