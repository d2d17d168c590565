package vm

import (
	"fmt"

	"github.com/vsariola/msynth"
)

// evalAll evaluates every variable once, in evaluation order, storing the
// results. Runs on the audio path: it must not allocate.
func (e *Engine) evalAll(c msynth.SampleClock) {
	for _, v := range e.order {
		v.Value = e.eval(&e.arena.nodes[v.root], c)
	}
}

// eval reduces the graph at n to one sample. A variable reference reads the
// last value of the variable and never evaluates its graph.
func (e *Engine) eval(n *node, c msynth.SampleClock) float32 {
	switch n.kind {
	case KindConstant:
		return n.value
	case KindVariableRef:
		v := n.ref
		if v == nil {
			var ok bool
			if v, ok = e.vars[n.name]; !ok {
				panic(fmt.Sprintf("vm: reference to unbound variable %q", n.name))
			}
		}
		return v.Value
	case KindCall0:
		return n.fn.F0(c, &n.state)
	case KindCall1:
		in := e.eval(&e.arena.nodes[n.in[0]], c)
		return n.fn.F1(c, &n.state, in)
	case KindCall2:
		a := e.eval(&e.arena.nodes[n.in[0]], c)
		b := e.eval(&e.arena.nodes[n.in[1]], c)
		return n.fn.F2(c, &n.state, a, b)
	}
	panic(fmt.Sprintf("vm: cannot evaluate a %v node", n.kind))
}
