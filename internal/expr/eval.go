package expr

import (
	"fmt"
	"reflect"

	"github.com/spf13/cast"

	"github.com/zoeflow/ragcore/internal/ragerr"
)

// Scope is the fixed binding set a template expression evaluates against:
// input, messages, contextMessages, vars. Values are plain JSON-shaped data
// (map[string]any, []any, string, float64, bool, nil) the same way gjson
// and encoding/json hand data back.
type Scope map[string]any

// Eval evaluates a parsed expression against scope.
func Eval(e Expr, scope Scope) (any, error) {
	switch n := e.(type) {
	case Ident:
		v, ok := scope[n.Name]
		if !ok {
			return nil, ragerr.Newf(ragerr.Validation, "expr: undefined name %q", n.Name)
		}
		return v, nil
	case Literal:
		return n.Value, nil
	case Field:
		target, err := Eval(n.Target, scope)
		if err != nil {
			return nil, err
		}
		return getField(target, n.Name)
	case Index:
		target, err := Eval(n.Target, scope)
		if err != nil {
			return nil, err
		}
		idx, err := Eval(n.IndexExpr, scope)
		if err != nil {
			return nil, err
		}
		return getIndex(target, idx)
	case Unary:
		return evalUnary(n, scope)
	case Binary:
		return evalBinary(n, scope)
	default:
		return nil, ragerr.Newf(ragerr.Internal, "expr: unhandled node %T", e)
	}
}

func getField(v any, name string) (any, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, ragerr.Newf(ragerr.Validation, "expr: cannot access field %q of %T", name, v)
	}
	return m[name], nil
}

func getIndex(v, idx any) (any, error) {
	s, ok := v.([]any)
	if !ok {
		return nil, ragerr.Newf(ragerr.Validation, "expr: cannot index into %T", v)
	}
	i, err := cast.ToIntE(idx)
	if err != nil {
		return nil, ragerr.Newf(ragerr.Validation, "expr: index %v is not an integer", idx)
	}
	if i < 0 {
		i += len(s)
	}
	if i < 0 || i >= len(s) {
		return nil, ragerr.Newf(ragerr.NotFound, "expr: index %d out of range (len %d)", i, len(s))
	}
	return s[i], nil
}

func evalUnary(n Unary, scope Scope) (any, error) {
	v, err := Eval(n.Operand, scope)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case Minus:
		f, err := cast.ToFloat64E(v)
		if err != nil {
			return nil, ragerr.Newf(ragerr.Validation, "expr: cannot negate %v", v)
		}
		return -f, nil
	case Not:
		return !truthy(v), nil
	default:
		return nil, ragerr.Newf(ragerr.Internal, "expr: unhandled unary op %v", n.Op)
	}
}

func evalBinary(n Binary, scope Scope) (any, error) {
	switch n.Op {
	case And:
		left, err := Eval(n.Left, scope)
		if err != nil {
			return nil, err
		}
		if !truthy(left) {
			return false, nil
		}
		right, err := Eval(n.Right, scope)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	case Or:
		left, err := Eval(n.Left, scope)
		if err != nil {
			return nil, err
		}
		if truthy(left) {
			return true, nil
		}
		right, err := Eval(n.Right, scope)
		if err != nil {
			return nil, err
		}
		return truthy(right), nil
	}

	left, err := Eval(n.Left, scope)
	if err != nil {
		return nil, err
	}
	right, err := Eval(n.Right, scope)
	if err != nil {
		return nil, err
	}

	switch n.Op {
	case Plus:
		return evalPlus(left, right)
	case Minus, Star, Slash:
		return evalArith(n.Op, left, right)
	case Eq:
		return equalValues(left, right), nil
	case Ne:
		return !equalValues(left, right), nil
	case Gt, Ge, Lt, Le:
		return evalCompare(n.Op, left, right)
	default:
		return nil, ragerr.Newf(ragerr.Internal, "expr: unhandled binary op %v", n.Op)
	}
}

// evalPlus concatenates when either operand is a string, otherwise adds
// numerically — "string templates" per the grammar's design note.
func evalPlus(left, right any) (any, error) {
	_, leftIsStr := left.(string)
	_, rightIsStr := right.(string)
	if leftIsStr || rightIsStr {
		return stringify(left) + stringify(right), nil
	}
	lf, err := cast.ToFloat64E(left)
	if err != nil {
		return nil, ragerr.Newf(ragerr.Validation, "expr: cannot add %v and %v", left, right)
	}
	rf, err := cast.ToFloat64E(right)
	if err != nil {
		return nil, ragerr.Newf(ragerr.Validation, "expr: cannot add %v and %v", left, right)
	}
	return lf + rf, nil
}

func evalArith(op Kind, left, right any) (any, error) {
	lf, err := cast.ToFloat64E(left)
	if err != nil {
		return nil, ragerr.Newf(ragerr.Validation, "expr: %v is not a number", left)
	}
	rf, err := cast.ToFloat64E(right)
	if err != nil {
		return nil, ragerr.Newf(ragerr.Validation, "expr: %v is not a number", right)
	}
	switch op {
	case Minus:
		return lf - rf, nil
	case Star:
		return lf * rf, nil
	case Slash:
		if rf == 0 {
			return nil, ragerr.New(ragerr.Validation, "expr: division by zero")
		}
		return lf / rf, nil
	default:
		return nil, ragerr.Newf(ragerr.Internal, "expr: unhandled arithmetic op %v", op)
	}
}

func evalCompare(op Kind, left, right any) (any, error) {
	lf, lerr := cast.ToFloat64E(left)
	rf, rerr := cast.ToFloat64E(right)
	if lerr == nil && rerr == nil {
		switch op {
		case Gt:
			return lf > rf, nil
		case Ge:
			return lf >= rf, nil
		case Lt:
			return lf < rf, nil
		case Le:
			return lf <= rf, nil
		}
	}
	ls, rs := stringify(left), stringify(right)
	switch op {
	case Gt:
		return ls > rs, nil
	case Ge:
		return ls >= rs, nil
	case Lt:
		return ls < rs, nil
	case Le:
		return ls <= rs, nil
	default:
		return nil, ragerr.Newf(ragerr.Internal, "expr: unhandled comparison op %v", op)
	}
}

func equalValues(left, right any) bool {
	lf, lerr := cast.ToFloat64E(left)
	rf, rerr := cast.ToFloat64E(right)
	if lerr == nil && rerr == nil {
		return lf == rf
	}
	return reflect.DeepEqual(left, right)
}

func truthy(v any) bool {
	if v == nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	default:
		return true
	}
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%g", t)
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", t)
	}
}
