package flowengine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToolNodesFeeding_OnlyDirectToolLikePredecessors(t *testing.T) {
	g := &Graph{
		Nodes: map[string]Node{
			"start": {ID: "start", Type: NodeStart},
			"rag":   {ID: "rag", Type: NodeRAG},
			"msg":   {ID: "msg", Type: NodeMessage},
			"comp":  {ID: "comp", Type: NodeCompletion},
		},
		Edges: []Edge{
			{ID: "e1", From: "start", To: "rag"},
			{ID: "e2", From: "rag", To: "comp"},
			{ID: "e3", From: "msg", To: "comp"},
		},
		StartNodeID: "start",
	}

	tools := ToolNodesFeeding(g, "comp")
	assert.Len(t, tools, 1)
	assert.Equal(t, "rag", tools[0].ID)
}

func TestMessageNodesFeeding_Dedup(t *testing.T) {
	g := &Graph{
		Nodes: map[string]Node{
			"msg":  {ID: "msg", Type: NodeMessage},
			"comp": {ID: "comp", Type: NodeCompletion},
		},
		Edges: []Edge{
			{ID: "e1", From: "msg", To: "comp", FromPort: "a"},
			{ID: "e2", From: "msg", To: "comp", FromPort: "b"},
		},
		StartNodeID: "msg",
	}

	msgs := messageNodesFeeding(g, "comp")
	assert.Len(t, msgs, 1)
}
