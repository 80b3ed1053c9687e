package nodes

import (
	"context"

	"github.com/zoeflow/ragcore/internal/flowengine"
)

// End is the terminal-node executor: a pure pass-through. The engine stops
// traversal naturally once no outgoing edge is found, so End exists mainly
// as an explicit, self-documenting terminus in authored graphs.
type End struct{}

func (End) Execute(ctx context.Context, env *flowengine.Env, node flowengine.Node, state *flowengine.State) (flowengine.ExecResult, error) {
	return flowengine.ExecResult{Payload: state.Payload}, nil
}
