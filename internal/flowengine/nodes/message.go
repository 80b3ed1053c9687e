package nodes

import (
	"context"

	"github.com/zoeflow/ragcore/internal/flowengine"
	"github.com/zoeflow/ragcore/internal/provider"
)

// Message contributes a (role, content, priority, sourceNodeId) context
// message to whatever node it feeds (handled generically by the engine's
// gatherContextMessages for every node type). When the traversal path runs
// through it directly, it additionally emits a user/assistant chat message
// — system-role messages never appear in the visible conversation.
type Message struct{}

func (Message) Execute(ctx context.Context, env *flowengine.Env, node flowengine.Node, state *flowengine.State) (flowengine.ExecResult, error) {
	cm, ok := flowengine.BuildContextMessage(node, state)
	if !ok {
		return flowengine.ExecResult{Payload: state.Payload}, nil
	}

	if cm.Role == "user" || cm.Role == "assistant" {
		state.Conversation = append(state.Conversation, provider.Message{
			Role:    provider.Role(cm.Role),
			Content: cm.Content,
		})
	}

	return flowengine.ExecResult{Payload: state.Payload}, nil
}
