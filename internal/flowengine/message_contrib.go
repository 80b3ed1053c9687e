package flowengine

import (
	"github.com/zoeflow/ragcore/internal/expr"
)

// BuildContextMessage renders a Message node's configured content template
// against state's scope and returns the ContextMessage it contributes to
// downstream nodes. ok is false when the node has no content configured.
func BuildContextMessage(n Node, state *State) (ContextMessage, bool) {
	content, _ := n.Config["content"].(string)
	if content == "" {
		return ContextMessage{}, false
	}

	rendered := content
	if expr.HasPlaceholder(content) {
		if out, err := expr.Render(content, state.Scope()); err == nil {
			rendered = out
		}
	}

	role, _ := n.Config["role"].(string)
	if role == "" {
		role = "system"
	}
	priority := 0
	if p, ok := n.Config["priority"].(float64); ok {
		priority = int(p)
	}

	return ContextMessage{
		Role:         role,
		Content:      rendered,
		Priority:     priority,
		SourceNodeID: n.ID,
	}, true
}
