package nodes

import "github.com/zoeflow/ragcore/internal/flowengine"

// DefaultToolBuilders returns the tool-like-node-to-Tool translations for
// every node type Completion can connect to implicitly. Callers assign the
// result to Env.ToolBuilders.
func DefaultToolBuilders() map[flowengine.NodeType]flowengine.ToolBuilder {
	return map[flowengine.NodeType]flowengine.ToolBuilder{
		flowengine.NodeRAG:          newRAGTool,
		flowengine.NodeReadDocument: newReadDocumentTool,
		flowengine.NodeCoinFlip:     newCoinFlipTool,
		flowengine.NodeDiceRoll:     newDiceRollTool,
		flowengine.NodeTool:         newDeveloperTool,
	}
}

// GlobalStateTool returns the always-available global_state tool, which is
// not tied to any connected node.
func GlobalStateTool() flowengine.Tool {
	return newGlobalStateTool()
}
