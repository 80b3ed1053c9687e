package flowengine

import (
	"sync"

	"github.com/zoeflow/ragcore/internal/expr"
	"github.com/zoeflow/ragcore/internal/provider"
)

// ContextMessage is a system-role snippet a Message node contributes to
// downstream LLM prompts.
type ContextMessage struct {
	Role         string
	Content      string
	Priority     int
	SourceNodeID string
}

// State is a run's execution state: the value flowing along edges, the
// context messages gathered so far, the mutable vars map, and the LLM chat
// history. NodeOutputs and Graph are excluded from persisted snapshots —
// NodeOutputs exists only to let a node look up a sibling's last-produced
// value mid-run, and Graph is plumbing the engine attaches so executors
// (Completion, in particular) can discover tool-like predecessors, not
// part of the state spec describes.
type State struct {
	Payload         any
	ContextMessages []ContextMessage
	Vars            map[string]any
	Conversation    []provider.Message
	NodeOutputs     map[string]any
	Graph           *Graph
	RunID           string

	// varsMu guards Vars during the Completion node's concurrent tool
	// dispatch within one iteration (spec: "concurrent tool calls inside
	// one iteration run in parallel") — a *sync.Mutex rather than an
	// embedded sync.Mutex so State stays copyable by value. nil is treated
	// as "no concurrent access possible" by WithVarsLock.
	varsMu *sync.Mutex
}

// NewState returns a zero-value State with its maps/slices initialized.
func NewState() State {
	return State{
		Vars:        map[string]any{},
		NodeOutputs: map[string]any{},
		varsMu:      &sync.Mutex{},
	}
}

// WithVarsLock runs fn while holding s's vars lock, if one is set. Tool
// implementations that read or mutate Vars (global_state, the templated
// developer tool) call this so concurrent tool dispatch within one
// Completion iteration never races on the shared map.
func (s *State) WithVarsLock(fn func()) {
	if s.varsMu == nil {
		fn()
		return
	}
	s.varsMu.Lock()
	defer s.varsMu.Unlock()
	fn()
}

// Snapshot returns the persisted-safe copy of s: everything except
// NodeOutputs, which is transient per spec's state shape, and Graph.
func (s State) Snapshot() State {
	return State{
		Payload:         s.Payload,
		ContextMessages: append([]ContextMessage(nil), s.ContextMessages...),
		Vars:            s.Vars,
		Conversation:    append([]provider.Message(nil), s.Conversation...),
		RunID:           s.RunID,
	}
}

// Scope builds the expr.Scope a template or condition expression evaluates
// {input, messages, contextMessages, vars, nodeOutputs} against. nodeOutputs
// lets an expression (e.g. a node's "enable" config) read an upstream
// node's last-produced payload by id.
func (s State) Scope() expr.Scope {
	return expr.Scope{
		"input":           s.Payload,
		"messages":        messagesToAny(s.Conversation),
		"contextMessages": contextMessagesToAny(s.ContextMessages),
		"vars":            s.Vars,
		"nodeOutputs":     s.NodeOutputs,
	}
}

func messagesToAny(msgs []provider.Message) []any {
	out := make([]any, len(msgs))
	for i, m := range msgs {
		out[i] = map[string]any{
			"role":    string(m.Role),
			"content": m.Content,
		}
	}
	return out
}

func contextMessagesToAny(msgs []ContextMessage) []any {
	out := make([]any, len(msgs))
	for i, m := range msgs {
		out[i] = map[string]any{
			"role":         m.Role,
			"content":      m.Content,
			"priority":     float64(m.Priority),
			"sourceNodeId": m.SourceNodeID,
		}
	}
	return out
}
