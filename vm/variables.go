package vm

import (
	"fmt"
	"slices"
)

// SetVariable binds name to the graph rooted at root, creating the variable
// if needed. The previously bound graph is freed at the end of the batch,
// except for the nodes that the new graph reuses.
//
// The binding is rejected if the graph references an unbound variable, if a
// node of the graph is already used by another variable or twice within the
// graph, or if it makes name depend on itself without a delay in between.
func (b *Batch) SetVariable(name string, root NodeID) error {
	e := b.e
	if !e.arena.valid(root) {
		return fmt.Errorf("%w: %d", ErrInvalidNode, root)
	}
	v, exists := e.vars[name]
	if exists && v.root == root {
		return nil
	}
	if err := b.checkGraph(name, root); err != nil {
		return err
	}
	if e.SpeculateCycle(name, root) {
		return fmt.Errorf("%w: %s", ErrCycle, name)
	}
	if !exists {
		v = b.newVariable(name)
	}
	prev := v.root
	b.undo = append(b.undo, func() { v.root = prev })
	v.root = root
	b.resolve(root)
	return nil
}

// SetDummy binds name to constant zero if it is not bound yet. This lets a
// definition refer to the variable it defines.
func (b *Batch) SetDummy(name string) {
	if _, ok := b.e.vars[name]; ok {
		return
	}
	v := b.newVariable(name)
	v.root = b.MakeConstant(0)
}

// GetVariable returns the variable bound to name.
func (b *Batch) GetVariable(name string) (VariableInfo, bool) {
	v, ok := b.e.vars[name]
	if !ok {
		return VariableInfo{}, false
	}
	return VariableInfo{Name: v.Name, Value: v.Value, Root: v.root}, true
}

func (b *Batch) newVariable(name string) *Variable {
	e := b.e
	v := &Variable{Name: name, root: Nil}
	e.vars[name] = v
	e.list = append(e.list, v)
	b.undo = append(b.undo, func() {
		delete(e.vars, name)
		if i := slices.Index(e.list, v); i >= 0 {
			e.list = slices.Delete(e.list, i, i+1)
		}
	})
	return v
}

// checkGraph verifies that every node of the candidate graph appears in it
// only once and in no other variable's graph, and that all the variables it
// refers to are bound.
func (b *Batch) checkGraph(name string, root NodeID) error {
	e := b.e
	others := make([]bool, len(e.arena.nodes))
	for _, v := range e.list {
		if v.Name != name {
			e.arena.mark(v.root, others)
		}
	}
	seen := make([]bool, len(e.arena.nodes))
	var check func(id NodeID) error
	check = func(id NodeID) error {
		if seen[id] || others[id] {
			return fmt.Errorf("%w: node %d", ErrShared, id)
		}
		seen[id] = true
		n := &e.arena.nodes[id]
		if n.kind == KindVariableRef {
			if _, ok := e.vars[n.name]; !ok {
				return fmt.Errorf("%w: %s", ErrUndefined, n.name)
			}
		}
		for _, c := range n.children() {
			if err := check(c); err != nil {
				return err
			}
		}
		return nil
	}
	return check(root)
}

// resolve points every variable reference in the graph to its variable, so
// evaluation does not need to look names up.
func (b *Batch) resolve(id NodeID) {
	n := &b.e.arena.nodes[id]
	if n.kind == KindVariableRef {
		n.ref = b.e.vars[n.name]
	}
	for _, c := range n.children() {
		b.resolve(c)
	}
}
