// Package nodes holds the per-NodeType executors flowengine.Registry
// dispatches to: Start, Message, Set Variable, Guardrails, Completion, End,
// and the tool-like nodes (RAG, ReadDocument, CoinFlip, DiceRoll, Tool).
package nodes

import (
	"context"

	"github.com/zoeflow/ragcore/internal/flowengine"
)

// Start is the entry-node executor: a pass-through that seeds the run's
// payload from config's "input" field when the caller hasn't already set
// one via initial state.
type Start struct{}

func (Start) Execute(ctx context.Context, env *flowengine.Env, node flowengine.Node, state *flowengine.State) (flowengine.ExecResult, error) {
	payload := state.Payload
	if payload == nil {
		payload = node.Config["input"]
	}
	return flowengine.ExecResult{Payload: payload}, nil
}

// Register installs every executor in this package onto reg.
func Register(reg *flowengine.Registry) {
	reg.Register(flowengine.NodeStart, Start{})
	reg.Register(flowengine.NodeMessage, Message{})
	reg.Register(flowengine.NodeSetVariable, SetVariable{})
	reg.Register(flowengine.NodeEnd, End{})
	reg.Register(flowengine.NodeGuardrails, Guardrails{})
	reg.Register(flowengine.NodeCompletion, Completion{})
	reg.Register(flowengine.NodeRAG, RAG{})
	reg.Register(flowengine.NodeReadDocument, ReadDocument{})
	reg.Register(flowengine.NodeCoinFlip, CoinFlip{})
	reg.Register(flowengine.NodeDiceRoll, DiceRoll{})
	reg.Register(flowengine.NodeTool, ToolNode{})
}
