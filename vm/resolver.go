package vm

import "slices"

// Usage classifies how one variable depends on another.
type Usage int

const (
	UsageNone     Usage = iota // no path between the two
	UsageOneWay                // the first reaches the second, not the other way around
	UsageCircular              // the two reach each other
)

func (u Usage) String() string {
	switch u {
	case UsageNone:
		return "none"
	case UsageOneWay:
		return "oneway"
	case UsageCircular:
		return "circular"
	}
	return "unknown"
}

// UsageOf tells how the variable v1 depends on v2. With v2 empty or equal to
// v1, it tells if v1 reaches itself. Unbound names have no usage.
func (b *Batch) UsageOf(v1, v2 string) Usage {
	return b.e.usageOf(v1, v2)
}

func (e *Engine) usageOf(v1, v2 string) Usage {
	var1, ok := e.vars[v1]
	if !ok {
		return UsageNone
	}
	used := e.reachable(var1.root, e.rootOf, false)
	if v2 == "" || v2 == v1 {
		if used[v1] {
			return UsageCircular
		}
		return UsageNone
	}
	var2, ok := e.vars[v2]
	if !ok || !used[v2] {
		return UsageNone
	}
	if e.reachable(var2.root, e.rootOf, false)[v1] {
		return UsageCircular
	}
	return UsageOneWay
}

// SpeculateCycle tells if binding name to the graph at candidate would make
// name reach itself without passing a delay of at least one sample. Nothing is
// modified.
func (b *Batch) SpeculateCycle(name string, candidate NodeID) bool {
	return b.e.SpeculateCycle(name, candidate)
}

// SpeculateCycle is Batch.SpeculateCycle for callers that already hold the
// engine lock.
func (e *Engine) SpeculateCycle(name string, candidate NodeID) bool {
	roots := func(n string) NodeID {
		if n == name {
			return candidate
		}
		return e.rootOf(n)
	}
	return e.reachable(candidate, roots, true)[name]
}

func (e *Engine) rootOf(name string) NodeID {
	if v, ok := e.vars[name]; ok {
		return v.root
	}
	return Nil
}

// reachable returns the names of the variables that the graph at root refers
// to, directly or through the graphs of other variables. If undelayed is set,
// the inputs of delays at least one sample long are not followed.
func (e *Engine) reachable(root NodeID, roots func(string) NodeID, undelayed bool) map[string]bool {
	used := make(map[string]bool)
	walked := make(map[string]bool)
	var walk func(id NodeID)
	walk = func(id NodeID) {
		n := &e.arena.nodes[id]
		switch n.kind {
		case KindVariableRef:
			used[n.name] = true
			if walked[n.name] {
				return
			}
			walked[n.name] = true
			if r := roots(n.name); r != Nil {
				walk(r)
			}
		case KindCall1:
			if undelayed && n.delay && len(n.state.History) > 0 {
				return
			}
			walk(n.in[0])
		case KindCall2:
			walk(n.in[0])
			walk(n.in[1])
		}
	}
	walk(root)
	return used
}

// regroup recomputes the evaluation order so that every variable comes after
// the variables it uses one way. The variables are grouped into strongly
// connected components, which are emitted dependencies first; the members of
// a cycle keep their creation order, and whichever is evaluated first reads
// the previous sample's value of the others.
func (e *Engine) regroup() {
	index := make(map[*Variable]int, len(e.list))
	creation := make(map[*Variable]int, len(e.list))
	low := make(map[*Variable]int, len(e.list))
	onStack := make(map[*Variable]bool, len(e.list))
	var stack []*Variable
	order := make([]*Variable, 0, len(e.list))
	for i, v := range e.list {
		creation[v] = i
	}
	var connect func(v *Variable)
	connect = func(v *Variable) {
		index[v] = len(index)
		low[v] = index[v]
		stack = append(stack, v)
		onStack[v] = true
		for _, w := range e.directRefs(v.root) {
			if _, ok := index[w]; !ok {
				connect(w)
				low[v] = min(low[v], low[w])
			} else if onStack[w] {
				low[v] = min(low[v], index[w])
			}
		}
		if low[v] != index[v] {
			return
		}
		start := len(order)
		for {
			w := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[w] = false
			order = append(order, w)
			if w == v {
				break
			}
		}
		component := order[start:]
		slices.SortFunc(component, func(a, b *Variable) int { return creation[a] - creation[b] })
	}
	for _, v := range e.list {
		if _, ok := index[v]; !ok {
			connect(v)
		}
	}
	e.order = order
}

// directRefs returns the variables referenced by the graph at root, without
// following into their graphs.
func (e *Engine) directRefs(root NodeID) []*Variable {
	var refs []*Variable
	var walk func(id NodeID)
	walk = func(id NodeID) {
		n := &e.arena.nodes[id]
		if n.kind == KindVariableRef {
			if v, ok := e.vars[n.name]; ok {
				refs = append(refs, v)
			}
			return
		}
		for _, c := range n.children() {
			walk(c)
		}
	}
	walk(root)
	return refs
}
