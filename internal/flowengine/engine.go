package flowengine

import (
	"context"
	"sort"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/google/uuid"

	"github.com/zoeflow/ragcore/internal/ragerr"
)

// Step is one node-transition in a run's append-only log: sufficient to
// resume from, per spec's resumability requirement (re-running with
// startNodeId = step.NextNodeID and initialState = step.State must produce
// the same downstream behavior, modulo provider nondeterminism).
type Step struct {
	ID         string
	RunID      string
	NodeID     string
	NextNodeID string
	NextPort   string
	State      State
}

// Run is a single execution of a graph: its steps and final status.
type Run struct {
	ID      string
	GraphID string
	Steps   []Step
	Status  string // "running", "completed", "cancelled", "failed"
}

const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusFailed    = "failed"
)

// Engine executes graphs against a Registry of node executors.
type Engine struct {
	Registry *Registry
}

// New returns an Engine backed by reg.
func New(reg *Registry) *Engine {
	return &Engine{Registry: reg}
}

// Run validates graph, then traverses it from startNodeID with initial as
// the starting state, appending one Step per node executed. preferredEdgeID
// (may be "") selects the Start node's fan-out edge directly, per spec's
// "preferredEdgeId wins when supplied and valid" rule — it only applies to
// the first transition. A cycle (a node id revisited within one run) fails
// the run, as does a cancelled context — on cancellation the run
// terminates without emitting a final assistant message beyond what was
// already accumulated.
func (e *Engine) Run(ctx context.Context, env *Env, graph *Graph, startNodeID string, initial State, preferredEdgeID string) (*Run, error) {
	if err := Validate(graph); err != nil {
		return nil, err
	}
	if _, ok := graph.Nodes[startNodeID]; !ok {
		return nil, ragerr.Newf(ragerr.Validation, "flow: unknown start node %q", startNodeID)
	}

	run := &Run{ID: uuid.NewString(), GraphID: graph.ID, Status: StatusRunning}

	idx := nodeIndex(graph)
	visited := bitset.New(uint(len(idx)))

	state := initial
	if state.Vars == nil {
		state.Vars = map[string]any{}
	}
	if state.NodeOutputs == nil {
		state.NodeOutputs = map[string]any{}
	}
	if state.varsMu == nil {
		state.varsMu = &sync.Mutex{}
	}
	state.Graph = graph
	state.RunID = run.ID

	currentID := startNodeID
	nextPreferredEdgeID := preferredEdgeID

	for currentID != "" {
		if err := ctx.Err(); err != nil {
			run.Status = StatusCancelled
			return run, ragerr.Wrap(ragerr.Cancelled, "flow: run cancelled", err)
		}

		pos, ok := idx[currentID]
		if !ok {
			run.Status = StatusFailed
			return run, ragerr.Newf(ragerr.Validation, "flow: unknown node %q", currentID)
		}
		if visited.Test(pos) {
			run.Status = StatusFailed
			return run, ragerr.Newf(ragerr.Validation, "flow: cycle detected at node %q", currentID)
		}
		visited.Set(pos)

		node := graph.Nodes[currentID]

		result, err := e.executeNode(ctx, env, graph, node, &state)
		if err != nil {
			run.Status = StatusFailed
			return run, err
		}

		state.Payload = result.Payload
		state.NodeOutputs[currentID] = result.Payload

		nextID, nextPort, err := nextNode(graph, currentID, result.NextPort, nextPreferredEdgeID)
		if err != nil {
			run.Status = StatusFailed
			return run, err
		}
		nextPreferredEdgeID = ""

		run.Steps = append(run.Steps, Step{
			ID:         uuid.NewString(),
			RunID:      run.ID,
			NodeID:     currentID,
			NextNodeID: nextID,
			NextPort:   nextPort,
			State:      state.Snapshot(),
		})

		currentID = nextID
	}

	run.Status = StatusCompleted
	return run, nil
}

// executeNode handles the enable/muted pass-through check, gathers scoped
// context messages, and dispatches to the registered executor.
func (e *Engine) executeNode(ctx context.Context, env *Env, graph *Graph, node Node, state *State) (ExecResult, error) {
	enabled, err := evalEnable(node, state)
	if err != nil {
		return ExecResult{}, err
	}
	if node.Muted || !enabled {
		return ExecResult{Payload: state.Payload}, nil
	}

	gatherContextMessages(graph, node.ID, state)

	exec, err := e.Registry.MustLookup(node.Type)
	if err != nil {
		return ExecResult{}, err
	}
	return exec.Execute(ctx, env, node, state)
}

// evalEnable reads node's "enable" input port: a bare bool literal, an
// "${...}" expression referencing an upstream node's output or a var
// (resolved the same way Set Variable resolves its "value" config), or
// absent entirely — which defaults to true, per spec. Any other resolved
// type also defaults to true rather than silently disabling the node.
func evalEnable(node Node, state *State) (bool, error) {
	raw, ok := node.Config["enable"]
	if !ok || raw == nil {
		return true, nil
	}
	resolved, err := ResolveConfigValue(raw, *state)
	if err != nil {
		return false, err
	}
	if b, ok := resolved.(bool); ok {
		return b, nil
	}
	return true, nil
}

// gatherContextMessages appends the contributions of every Message node
// feeding directly into nodeID, deduplicated by source node id, unless
// already present (a node may be visited as both a direct predecessor and,
// transitively, an ancestor of one — spec requires dedup by source id, not
// by position in the graph).
func gatherContextMessages(graph *Graph, nodeID string, state *State) {
	seen := map[string]bool{}
	for _, m := range state.ContextMessages {
		seen[m.SourceNodeID] = true
	}
	for _, n := range messageNodesFeeding(graph, nodeID) {
		if seen[n.ID] {
			continue
		}
		cm, ok := BuildContextMessage(n, state)
		if !ok {
			continue
		}
		state.ContextMessages = append(state.ContextMessages, cm)
	}
	sort.SliceStable(state.ContextMessages, func(i, j int) bool {
		return state.ContextMessages[i].Priority > state.ContextMessages[j].Priority
	})
}

// nextNode implements the next-node-selection rule: a valid preferredEdgeID
// wins outright; otherwise a non-empty nextPort picks its matching edge;
// otherwise the first port-less edge, or else the first edge, in declared
// order. Returns ("", "", nil) at the end of the graph.
func nextNode(graph *Graph, fromID, nextPort, preferredEdgeID string) (string, string, error) {
	edges := edgesFrom(graph, fromID)

	if preferredEdgeID != "" {
		for _, e := range edges {
			if e.ID == preferredEdgeID {
				return e.To, e.FromPort, nil
			}
		}
	}

	if nextPort != "" {
		for _, e := range edges {
			if e.FromPort == nextPort {
				return e.To, e.FromPort, nil
			}
		}
	}

	for _, e := range edges {
		if e.FromPort == "" {
			return e.To, "", nil
		}
	}

	if len(edges) > 0 {
		return edges[0].To, edges[0].FromPort, nil
	}

	return "", "", nil
}
