package nodes

import (
	"context"

	"github.com/zoeflow/ragcore/internal/expr"
	"github.com/zoeflow/ragcore/internal/flowengine"
	"github.com/zoeflow/ragcore/internal/ragerr"
)

// ToolNode is a developer-defined tool: name, description, and JSON schema
// come from config, and its result is a "${...}" template rendered against
// the run scope plus the call's arguments (bound as "args"). There is no
// external execution backend — the template is the tool's entire behavior.
type ToolNode struct{}

func (ToolNode) Execute(ctx context.Context, env *flowengine.Env, node flowengine.Node, state *flowengine.State) (flowengine.ExecResult, error) {
	text, err := renderToolTemplate(node, state, nil)
	if err != nil {
		return flowengine.ExecResult{}, err
	}
	return flowengine.ExecResult{Payload: text}, nil
}

func renderToolTemplate(node flowengine.Node, state *flowengine.State, args map[string]any) (string, error) {
	tmpl, _ := node.Config["response"].(string)
	if tmpl == "" {
		return "", ragerr.New(ragerr.Validation, "flow: tool node missing \"response\" template")
	}

	var scope expr.Scope
	state.WithVarsLock(func() {
		scope = state.Scope()
	})
	scope["args"] = args

	return expr.Render(tmpl, scope)
}

type developerTool struct {
	node flowengine.Node
}

func newDeveloperTool(node flowengine.Node) flowengine.Tool {
	return developerTool{node: node}
}

func (t developerTool) Name() string {
	if name, _ := t.node.Config["name"].(string); name != "" {
		return name
	}
	return "tool_" + t.node.ID
}

func (t developerTool) Description() string {
	desc, _ := t.node.Config["description"].(string)
	return desc
}

func (t developerTool) Schema() map[string]any {
	if schema, ok := t.node.Config["parameters"].(map[string]any); ok {
		return schema
	}
	return map[string]any{"type": "object", "properties": map[string]any{}}
}

func (t developerTool) Call(ctx context.Context, env *flowengine.Env, state *flowengine.State, args map[string]any) (string, error) {
	return renderToolTemplate(t.node, state, args)
}
