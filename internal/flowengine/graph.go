// Package flowengine executes a flow graph: a directed graph of typed nodes
// (Start, Completion, Message, Guardrails, Set Variable, the tool-like
// nodes, End) whose executors are looked up in a Registry keyed by node
// type, mirroring the dynamic-node-payload design note's "tagged variant,
// executors looked up in a registry keyed by tag" — rather than a
// generically composable graph library, since every node type here carries
// domain-specific config and talks to a specific collaborator (the
// provider client, the vector store, the document store).
package flowengine

import (
	"github.com/zoeflow/ragcore/internal/ragerr"
)

// NodeType identifies which executor handles a node.
type NodeType string

const (
	NodeStart        NodeType = "start"
	NodeCompletion   NodeType = "completion"
	NodeMessage      NodeType = "message"
	NodeGuardrails   NodeType = "guardrails"
	NodeSetVariable  NodeType = "setVariable"
	NodeRAG          NodeType = "rag"
	NodeReadDocument NodeType = "readDocument"
	NodeTool         NodeType = "tool"
	NodeCoinFlip     NodeType = "coinFlip"
	NodeDiceRoll     NodeType = "diceRoll"
	NodeEnd          NodeType = "end"
)

// toolLikeTypes are node types that, when connected into a Completion
// node, are offered to the model as callable tools rather than traversed
// as a direct successor.
var toolLikeTypes = map[NodeType]bool{
	NodeRAG:          true,
	NodeReadDocument: true,
	NodeTool:         true,
	NodeCoinFlip:     true,
	NodeDiceRoll:     true,
}

// Node is one vertex in a flow graph.
type Node struct {
	ID     string         `json:"id"`
	Type   NodeType       `json:"type"`
	Muted  bool           `json:"muted,omitempty"`
	Config map[string]any `json:"config,omitempty"`
}

// Edge is a directed connection between two nodes. FromPort is the
// declared output port name the edge leaves from; "" is the default
// (port-less) output.
type Edge struct {
	ID       string `json:"id"`
	From     string `json:"from"`
	FromPort string `json:"fromPort,omitempty"`
	To       string `json:"to"`
}

// Graph is a flow definition: nodes plus the edges between them.
type Graph struct {
	ID          string          `json:"id"`
	Nodes       map[string]Node `json:"nodes"`
	Edges       []Edge          `json:"edges"`
	StartNodeID string          `json:"startNodeId"`
}

// Validate rejects dangling or unknown node references.
func Validate(g *Graph) error {
	if g == nil {
		return ragerr.New(ragerr.Validation, "flow: graph is nil")
	}
	if _, ok := g.Nodes[g.StartNodeID]; !ok {
		return ragerr.Newf(ragerr.Validation, "flow: unknown start node %q", g.StartNodeID)
	}
	for _, e := range g.Edges {
		if _, ok := g.Nodes[e.From]; !ok {
			return ragerr.Newf(ragerr.Validation, "flow: edge %q references unknown source node %q", e.ID, e.From)
		}
		if _, ok := g.Nodes[e.To]; !ok {
			return ragerr.Newf(ragerr.Validation, "flow: edge %q references unknown target node %q", e.ID, e.To)
		}
	}
	return nil
}

// edgesFrom returns the edges leaving id, in declared order.
func edgesFrom(g *Graph, id string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// edgesInto returns the edges arriving at id, in declared order.
func edgesInto(g *Graph, id string) []Edge {
	var out []Edge
	for _, e := range g.Edges {
		if e.To == id {
			out = append(out, e)
		}
	}
	return out
}

// ToolNodesFeeding returns the tool-like nodes with an edge directly into
// id, the implicit-tool-connection mechanism the Completion node's tool
// list is built from.
func ToolNodesFeeding(g *Graph, id string) []Node {
	var out []Node
	for _, e := range edgesInto(g, id) {
		n, ok := g.Nodes[e.From]
		if ok && toolLikeTypes[n.Type] {
			out = append(out, n)
		}
	}
	return out
}

// messageNodesFeeding returns the Message-type nodes with an edge directly
// into id, deduplicated by node id — the "scoped context messages" a node
// gathers from its incoming edges before executing.
func messageNodesFeeding(g *Graph, id string) []Node {
	seen := map[string]bool{}
	var out []Node
	for _, e := range edgesInto(g, id) {
		n, ok := g.Nodes[e.From]
		if !ok || n.Type != NodeMessage || seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		out = append(out, n)
	}
	return out
}

func nodeIndex(g *Graph) map[string]uint {
	idx := make(map[string]uint, len(g.Nodes))
	var i uint
	for id := range g.Nodes {
		idx[id] = i
		i++
	}
	return idx
}
