package flowengine

import (
	"strings"

	"github.com/zoeflow/ragcore/internal/expr"
)

// ResolveConfigValue evaluates a node config field that may be a bare
// literal, a whole expression wrapped as "${...}" (preserving the
// evaluated type), or a string containing one or more "${...}" templates
// (always rendered to a string). Every node executor that reads config
// through a port-like binding (Set Variable's "value", the "enable" gate
// in executeNode) shares this resolution rule.
func ResolveConfigValue(v any, state State) (any, error) {
	s, ok := v.(string)
	if !ok {
		return v, nil
	}

	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "${") && strings.HasSuffix(trimmed, "}") {
		e, err := expr.Parse(trimmed[2 : len(trimmed)-1])
		if err != nil {
			return nil, err
		}
		return expr.Eval(e, state.Scope())
	}

	if expr.HasPlaceholder(s) {
		return expr.Render(s, state.Scope())
	}

	return s, nil
}
