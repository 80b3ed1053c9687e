package filter

import (
	"fmt"
	"strings"
)

// Eval evaluates expr against metadata, looked up by dotted path so
// "doc.tags.0" style paths resolve into nested maps. Type mismatches (e.g.
// comparing a string field with `>`) evaluate to false rather than
// erroring, matching a permissive filter semantics where non-matching
// fields simply fail the predicate.
func Eval(expr Expr, metadata map[string]any) bool {
	v, ok := evalValue(expr, metadata)
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func evalValue(expr Expr, metadata map[string]any) (any, bool) {
	switch e := expr.(type) {
	case Ident:
		return lookup(metadata, e.Name)
	case Literal:
		return e.Value, true
	case ListLiteral:
		return e.Values, true
	case Unary:
		if e.Op != Not {
			return nil, false
		}
		v, ok := evalValue(e.Operand, metadata)
		if !ok {
			return nil, false
		}
		b, ok := v.(bool)
		if !ok {
			return nil, false
		}
		return !b, true
	case Binary:
		return evalBinary(e, metadata)
	default:
		return nil, false
	}
}

func evalBinary(b Binary, metadata map[string]any) (any, bool) {
	switch b.Op {
	case And:
		l, ok := evalValue(b.Left, metadata)
		if !ok {
			return false, true
		}
		lb, _ := l.(bool)
		if !lb {
			return false, true
		}
		r, ok := evalValue(b.Right, metadata)
		if !ok {
			return false, true
		}
		rb, _ := r.(bool)
		return rb, true
	case Or:
		l, ok := evalValue(b.Left, metadata)
		if ok {
			if lb, _ := l.(bool); lb {
				return true, true
			}
		}
		r, ok := evalValue(b.Right, metadata)
		if !ok {
			return false, true
		}
		rb, _ := r.(bool)
		return rb, true
	case In:
		left, ok := evalValue(b.Left, metadata)
		if !ok {
			return false, true
		}
		list, ok := b.Right.(ListLiteral)
		if !ok {
			return false, true
		}
		for _, v := range list.Values {
			if compareEqual(left, v) {
				return true, true
			}
		}
		return false, true
	case Eq, Ne, Gt, Ge, Lt, Le:
		left, lok := evalValue(b.Left, metadata)
		right, rok := evalValue(b.Right, metadata)
		if !lok || !rok {
			return b.Op == Ne, lok || rok
		}
		return compareOp(b.Op, left, right), true
	default:
		return nil, false
	}
}

func compareEqual(a, b any) bool {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		return af == bf
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func compareOp(op Kind, a, b any) bool {
	switch op {
	case Eq:
		return compareEqual(a, b)
	case Ne:
		return !compareEqual(a, b)
	}

	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch op {
		case Gt:
			return af > bf
		case Ge:
			return af >= bf
		case Lt:
			return af < bf
		case Le:
			return af <= bf
		}
	}

	as, aIsStr := a.(string)
	bs, bIsStr := b.(string)
	if aIsStr && bIsStr {
		switch op {
		case Gt:
			return as > bs
		case Ge:
			return as >= bs
		case Lt:
			return as < bs
		case Le:
			return as <= bs
		}
	}

	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// lookup resolves a dotted path against metadata: a path without a dot is a
// direct key lookup, and a dotted path is matched against metadata
// flattened into dotted keys (nested maps only; slices are not indexed).
func lookup(metadata map[string]any, path string) (any, bool) {
	if !strings.Contains(path, ".") {
		v, ok := metadata[path]
		return v, ok
	}

	flat := flatten(metadata)
	v, ok := flat[path]
	return v, ok
}

func flatten(metadata map[string]any) map[string]any {
	out := make(map[string]any)
	var walk func(prefix string, v any)
	walk = func(prefix string, v any) {
		switch m := v.(type) {
		case map[string]any:
			for k, sub := range m {
				p := k
				if prefix != "" {
					p = prefix + "." + k
				}
				walk(p, sub)
			}
		default:
			out[prefix] = v
		}
	}
	for k, v := range metadata {
		walk(k, v)
	}
	return out
}
