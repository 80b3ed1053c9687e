package nodes

import (
	"context"

	"github.com/zoeflow/ragcore/internal/flowengine"
	"github.com/zoeflow/ragcore/internal/ragerr"
)

// SetVariable resolves a dotted path and a value from node config, writes
// the value into state.Vars at that path, and passes the input payload
// through unchanged.
type SetVariable struct{}

func (SetVariable) Execute(ctx context.Context, env *flowengine.Env, node flowengine.Node, state *flowengine.State) (flowengine.ExecResult, error) {
	path, _ := node.Config["path"].(string)
	if path == "" {
		return flowengine.ExecResult{}, ragerr.New(ragerr.Validation, "flow: setVariable node missing \"path\"")
	}

	value, err := flowengine.ResolveConfigValue(node.Config["value"], *state)
	if err != nil {
		return flowengine.ExecResult{}, err
	}

	vars, err := flowengine.SetVar(state.Vars, path, value)
	if err != nil {
		return flowengine.ExecResult{}, err
	}
	state.Vars = vars

	return flowengine.ExecResult{Payload: state.Payload}, nil
}
