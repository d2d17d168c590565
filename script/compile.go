package script

import (
	"fmt"
	"math/big"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vsariola/msynth/vm"
	"github.com/zclconf/go-cty/cty"
)

var binaryOps = map[*hclsyntax.Operation]string{
	hclsyntax.OpAdd:      "add",
	hclsyntax.OpSubtract: "sub",
	hclsyntax.OpMultiply: "mul",
	hclsyntax.OpDivide:   "div",
}

// compile builds the graph of an expression and returns its root.
func compile(b *vm.Batch, expr hclsyntax.Expression) (vm.NodeID, error) {
	switch e := expr.(type) {
	case *hclsyntax.LiteralValueExpr:
		v, err := number(e.Val)
		if err != nil {
			return vm.Nil, at(e.SrcRange, err)
		}
		return b.MakeConstant(float32(v)), nil
	case *hclsyntax.ScopeTraversalExpr:
		root, ok := e.Traversal[0].(hcl.TraverseRoot)
		if !ok {
			return vm.Nil, at(e.SrcRange, fmt.Errorf("%w: expected a variable name", ErrSyntax))
		}
		return delays(b, b.MakeVariableRef(root.Name), e.Traversal[1:])
	case *hclsyntax.RelativeTraversalExpr:
		src, err := compile(b, e.Source)
		if err != nil {
			return vm.Nil, err
		}
		return delays(b, src, e.Traversal)
	case *hclsyntax.IndexExpr:
		return vm.Nil, at(e.BracketRange, fmt.Errorf("%w: delay length must be a whole number literal", ErrSyntax))
	case *hclsyntax.ParenthesesExpr:
		return compile(b, e.Expression)
	case *hclsyntax.UnaryOpExpr:
		if e.Op != hclsyntax.OpNegate {
			return vm.Nil, at(e.SymbolRange, fmt.Errorf("%w: unsupported operator", ErrSyntax))
		}
		if lit, ok := e.Val.(*hclsyntax.LiteralValueExpr); ok {
			v, err := number(lit.Val)
			if err != nil {
				return vm.Nil, at(lit.SrcRange, err)
			}
			return b.MakeConstant(float32(-v)), nil
		}
		val, err := compile(b, e.Val)
		if err != nil {
			return vm.Nil, err
		}
		return call(b, e.SrcRange, "sub", b.MakeConstant(0), val)
	case *hclsyntax.BinaryOpExpr:
		fn, ok := binaryOps[e.Op]
		if !ok {
			return vm.Nil, at(e.SrcRange, fmt.Errorf("%w: unsupported operator", ErrSyntax))
		}
		lhs, err := compile(b, e.LHS)
		if err != nil {
			return vm.Nil, err
		}
		rhs, err := compile(b, e.RHS)
		if err != nil {
			return vm.Nil, err
		}
		return call(b, e.SrcRange, fn, lhs, rhs)
	case *hclsyntax.FunctionCallExpr:
		if e.ExpandFinal {
			return vm.Nil, at(e.CloseParenRange, fmt.Errorf("%w: argument expansion is not supported", ErrSyntax))
		}
		args := make([]vm.NodeID, len(e.Args))
		for i, a := range e.Args {
			var err error
			if args[i], err = compile(b, a); err != nil {
				return vm.Nil, err
			}
		}
		return call(b, e.NameRange, e.Name, args...)
	}
	return vm.Nil, at(expr.Range(), fmt.Errorf("%w: unsupported expression", ErrSyntax))
}

func call(b *vm.Batch, rng hcl.Range, name string, args ...vm.NodeID) (vm.NodeID, error) {
	n, err := b.MakeCall(name, args...)
	if err != nil {
		return vm.Nil, at(rng, err)
	}
	return n, nil
}

// delays wraps in with one delay per index step, e.g. x[1][2].
func delays(b *vm.Batch, in vm.NodeID, steps hcl.Traversal) (vm.NodeID, error) {
	for _, step := range steps {
		idx, ok := step.(hcl.TraverseIndex)
		if !ok {
			return vm.Nil, at(step.SourceRange(), fmt.Errorf("%w: attribute access is not supported", ErrSyntax))
		}
		length, err := wholeNumber(idx.Key)
		if err != nil {
			return vm.Nil, at(idx.SrcRange, err)
		}
		if in, err = b.MakeDelay(in, length); err != nil {
			return vm.Nil, at(idx.SrcRange, err)
		}
	}
	return in, nil
}

func number(v cty.Value) (float64, error) {
	if v.IsNull() || !v.IsKnown() || v.Type() != cty.Number {
		return 0, fmt.Errorf("%w: expected a number", ErrSyntax)
	}
	f, _ := v.AsBigFloat().Float64()
	return f, nil
}

func wholeNumber(v cty.Value) (int, error) {
	if v.IsNull() || !v.IsKnown() || v.Type() != cty.Number {
		return 0, fmt.Errorf("%w: delay length must be a whole number", ErrSyntax)
	}
	f := v.AsBigFloat()
	if !f.IsInt() || f.Sign() < 0 {
		return 0, fmt.Errorf("%w: delay length must be a whole number >= 0", ErrSyntax)
	}
	if f.Cmp(big.NewFloat(vm.MaxDelayLength)) > 0 {
		return 0, fmt.Errorf("%w: %s samples, at most %d", vm.ErrDelayLength, f.Text('f', 0), vm.MaxDelayLength)
	}
	i, _ := f.Int64()
	return int(i), nil
}
