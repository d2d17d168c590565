package vm

import (
	"fmt"

	"github.com/vsariola/msynth"
)

type (
	// NodeID is a handle to a node in the engine's arena. Handles of freed
	// nodes are reused, so a handle is only meaningful until the edit that
	// created it has been collected.
	NodeID int32

	// Kind tells which variant a node is.
	Kind uint8

	node struct {
		kind  Kind
		delay bool // a Call1 running msynth.Delay
		value float32
		name  string    // referenced variable of a KindVariableRef
		ref   *Variable // resolved when the node is bound to a variable
		fn    msynth.FuncDef
		in    [2]NodeID
		state msynth.State
	}

	arena struct {
		nodes []node
		free  []NodeID
		live  int
	}
)

// Nil is the handle of no node.
const Nil NodeID = -1

const (
	KindFree Kind = iota
	KindConstant
	KindVariableRef
	KindCall0
	KindCall1
	KindCall2
)

func (k Kind) String() string {
	switch k {
	case KindFree:
		return "free"
	case KindConstant:
		return "constant"
	case KindVariableRef:
		return "variable"
	case KindCall0:
		return "call0"
	case KindCall1:
		return "call1"
	case KindCall2:
		return "call2"
	}
	return fmt.Sprintf("Kind(%d)", k)
}

func (n *node) children() []NodeID {
	switch n.kind {
	case KindCall1:
		return n.in[:1]
	case KindCall2:
		return n.in[:2]
	}
	return nil
}

func (a *arena) alloc(n node) NodeID {
	a.live++
	if k := len(a.free); k > 0 {
		id := a.free[k-1]
		a.free = a.free[:k-1]
		a.nodes[id] = n
		return id
	}
	a.nodes = append(a.nodes, n)
	return NodeID(len(a.nodes) - 1)
}

func (a *arena) valid(id NodeID) bool {
	return id >= 0 && int(id) < len(a.nodes) && a.nodes[id].kind != KindFree
}

func (a *arena) get(id NodeID) *node {
	if !a.valid(id) {
		panic(fmt.Sprintf("vm: invalid node handle %d", id))
	}
	return &a.nodes[id]
}

// mark adds id and its direct descendants to marked.
func (a *arena) mark(id NodeID, marked []bool) {
	marked[id] = true
	for _, c := range a.nodes[id].children() {
		a.mark(c, marked)
	}
}

// sweep frees every allocated node that is not marked and returns how many
// were freed.
func (a *arena) sweep(marked []bool) int {
	freed := 0
	for i := range a.nodes {
		if a.nodes[i].kind == KindFree || marked[i] {
			continue
		}
		a.nodes[i] = node{kind: KindFree}
		a.free = append(a.free, NodeID(i))
		a.live--
		freed++
	}
	return freed
}
