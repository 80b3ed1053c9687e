package flowengine

import (
	"context"

	"github.com/zoeflow/ragcore/internal/ragerr"
)

// ExecResult is what a node executor hands back to the engine.
type ExecResult struct {
	// Payload becomes the run's new Payload and is recorded into
	// NodeOutputs under the executing node's id.
	Payload any
	// NextPort selects which outgoing edge to follow; "" means "the first
	// port-less edge, or the first edge" per the next-node-selection rule.
	NextPort string
}

// Executor runs one node's logic against the run's shared state.
type Executor interface {
	Execute(ctx context.Context, env *Env, node Node, state *State) (ExecResult, error)
}

// ExecutorFunc adapts a function to an Executor.
type ExecutorFunc func(ctx context.Context, env *Env, node Node, state *State) (ExecResult, error)

func (f ExecutorFunc) Execute(ctx context.Context, env *Env, node Node, state *State) (ExecResult, error) {
	return f(ctx, env, node, state)
}

// Registry maps a node type to the executor that runs it.
type Registry struct {
	executors map[NodeType]Executor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{executors: map[NodeType]Executor{}}
}

// Register installs the executor for a node type, replacing any previous
// registration.
func (r *Registry) Register(t NodeType, e Executor) {
	r.executors[t] = e
}

// Lookup returns the executor registered for t, if any.
func (r *Registry) Lookup(t NodeType) (Executor, bool) {
	e, ok := r.executors[t]
	return e, ok
}

// MustLookup returns the executor for t or a typed error if none is
// registered.
func (r *Registry) MustLookup(t NodeType) (Executor, error) {
	e, ok := r.Lookup(t)
	if !ok {
		return nil, ragerr.Newf(ragerr.Validation, "flow: no executor registered for node type %q", t)
	}
	return e, nil
}
