package nodes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/zoeflow/ragcore/internal/expr"
	"github.com/zoeflow/ragcore/internal/flowengine"
	"github.com/zoeflow/ragcore/internal/provider"
	"github.com/zoeflow/ragcore/internal/ragerr"
	"github.com/zoeflow/ragcore/internal/usage"
)

// Completion drives the chat model: a single streaming call when no tools
// are connected, or an iterative tool loop (re-resolving inputs each turn,
// since a prior tool call may have mutated vars and hence context values)
// up to Env.MaxToolIterations when tools are available — either explicit
// config tools, implicitly connected tool-like nodes, or the always-
// available global_state tool.
type Completion struct{}

func (Completion) Execute(ctx context.Context, env *flowengine.Env, node flowengine.Node, state *flowengine.State) (flowengine.ExecResult, error) {
	model, _ := node.Config["model"].(string)
	if model == "" {
		model = env.ChatModel
	}
	temperature := configTemperature(node.Config["temperature"])
	forceTool, _ := node.Config["forceTool"].(string)

	tools, builders := resolveTools(env, node, state.Graph)

	if len(tools) == 0 {
		return completionStreamOnce(ctx, env, model, temperature, node, state)
	}

	return completionToolLoop(ctx, env, model, temperature, forceTool, tools, builders, node, state)
}

func configTemperature(v any) *float64 {
	f := configFloat(v, -1)
	if f < 0 {
		return nil
	}
	return &f
}

func configFloat(v any, def float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return def
}

// resolveTools builds the merged tool list (explicit config tools, the
// connected tool-like nodes translated via Env.ToolBuilders, and the
// always-available global_state tool) and an index from tool name to the
// flowengine.Tool that executes it.
func resolveTools(env *flowengine.Env, node flowengine.Node, graph *flowengine.Graph) ([]provider.ToolSchema, map[string]flowengine.Tool) {
	byName := map[string]flowengine.Tool{}

	gs := GlobalStateTool()
	byName[gs.Name()] = gs

	if configured, ok := node.Config["tools"].([]any); ok {
		for i, raw := range configured {
			cfg, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			t := newDeveloperTool(flowengine.Node{ID: fmt.Sprintf("configured-tool-%d", i), Config: cfg})
			byName[t.Name()] = t
		}
	}

	if graph != nil {
		for _, n := range flowengine.ToolNodesFeeding(graph, node.ID) {
			builder, ok := env.ToolBuilders[n.Type]
			if !ok {
				continue
			}
			t := builder(n)
			byName[t.Name()] = t
		}
	}

	schemas := make([]provider.ToolSchema, 0, len(byName))
	for _, t := range byName {
		schemas = append(schemas, provider.ToolSchema{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Schema(),
		})
	}
	return schemas, byName
}

func completionSystemPrompt(node flowengine.Node, state *flowengine.State) (string, error) {
	tmpl, _ := node.Config["systemPrompt"].(string)
	if tmpl == "" {
		return "", nil
	}
	if !expr.HasPlaceholder(tmpl) {
		return tmpl, nil
	}
	return expr.Render(tmpl, state.Scope())
}

func completionMessages(node flowengine.Node, state *flowengine.State) ([]provider.Message, error) {
	sys, err := completionSystemPrompt(node, state)
	if err != nil {
		return nil, err
	}
	msgs := make([]provider.Message, 0, len(state.Conversation)+1)
	if sys != "" {
		msgs = append(msgs, provider.Message{Role: provider.RoleSystem, Content: sys})
	}
	msgs = append(msgs, state.Conversation...)
	return msgs, nil
}

func completionStreamOnce(ctx context.Context, env *flowengine.Env, model string, temperature *float64, node flowengine.Node, state *flowengine.State) (flowengine.ExecResult, error) {
	msgs, err := completionMessages(node, state)
	if err != nil {
		return flowengine.ExecResult{}, err
	}

	stream, err := env.Provider.Stream(ctx, provider.ChatRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: temperature,
	})
	if err != nil {
		return flowengine.ExecResult{}, err
	}
	defer stream.Close()

	for stream.Next() {
		if err := ctx.Err(); err != nil {
			return flowengine.ExecResult{}, ragerr.Wrap(ragerr.Cancelled, "flow: completion node cancelled mid-stream", err)
		}
	}
	if err := stream.Err(); err != nil {
		return flowengine.ExecResult{}, err
	}

	result := stream.Final()
	state.Conversation = append(state.Conversation, provider.Message{
		Role:    provider.RoleAssistant,
		Content: result.Content,
	})
	recordUsage(env, state, model, result.Usage, usage.VariantStandard)

	return flowengine.ExecResult{Payload: result.Content}, nil
}

// recordUsage appends one usage-ledger entry for a completed provider
// call, a no-op when Env.Usage isn't configured.
func recordUsage(env *flowengine.Env, state *flowengine.State, model string, u provider.Usage, variant usage.Variant) {
	if env.Usage == nil {
		return
	}
	_ = env.Usage.Append(context.Background(), usage.Entry{
		RunID:            state.RunID,
		Model:            model,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
		Variant:          variant,
		CreatedAt:        time.Now().Unix(),
	})
}

func completionToolLoop(ctx context.Context, env *flowengine.Env, model string, temperature *float64, forceTool string, tools []provider.ToolSchema, byName map[string]flowengine.Tool, node flowengine.Node, state *flowengine.State) (flowengine.ExecResult, error) {
	var lastContent string

	maxIter := env.MaxToolIterations
	if maxIter <= 0 {
		maxIter = 10
	}

	for iter := 0; iter < maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return flowengine.ExecResult{}, ragerr.Wrap(ragerr.Cancelled, "flow: completion node cancelled between tool iterations", err)
		}

		msgs, err := completionMessages(node, state)
		if err != nil {
			return flowengine.ExecResult{}, err
		}

		req := provider.ChatRequest{
			Model:       model,
			Messages:    msgs,
			Tools:       tools,
			Temperature: temperature,
		}
		if iter == 0 {
			req.ForceTool = forceTool
		}

		result, err := streamToCompletion(ctx, env, req)
		if err != nil && req.ForceTool != "" && errors.Is(err, provider.ErrToolChoiceRejected) {
			req.ForceTool = ""
			result, err = streamToCompletion(ctx, env, req)
		}
		if err != nil {
			return flowengine.ExecResult{}, err
		}

		lastContent = result.Content

		if len(result.ToolCalls) == 0 {
			state.Conversation = append(state.Conversation, provider.Message{
				Role:    provider.RoleAssistant,
				Content: result.Content,
			})
			recordUsage(env, state, model, result.Usage, usage.VariantStandard)
			return flowengine.ExecResult{Payload: lastContent}, nil
		}
		recordUsage(env, state, model, result.Usage, usage.VariantInternal)

		calls := assignCallIDs(result.ToolCalls)
		state.Conversation = append(state.Conversation, provider.Message{
			Role:      provider.RoleAssistant,
			Content:   result.Content,
			ToolCalls: calls,
		})

		if err := ctx.Err(); err != nil {
			return flowengine.ExecResult{}, ragerr.Wrap(ragerr.Cancelled, "flow: completion node cancelled before tool dispatch", err)
		}
		for _, msg := range dispatchToolCalls(ctx, env, state, byName, calls) {
			state.Conversation = append(state.Conversation, msg)
		}
	}

	return flowengine.ExecResult{Payload: lastContent}, nil
}

// dispatchToolCalls runs every call in calls concurrently, bounded to
// len(calls) goroutines via an ants pool, and returns the resulting tool
// messages in the order they completed (spec: "tool results are appended
// in the order they completed (each carries its toolCallId)") rather than
// the order they were requested in.
func dispatchToolCalls(ctx context.Context, env *flowengine.Env, state *flowengine.State, byName map[string]flowengine.Tool, calls []provider.ToolCall) []provider.Message {
	results := make(chan provider.Message, len(calls))

	pool, err := ants.NewPool(len(calls))
	if err != nil {
		for _, call := range calls {
			results <- executeToolCall(ctx, env, state, byName, call)
		}
		close(results)
		out := make([]provider.Message, 0, len(calls))
		for m := range results {
			out = append(out, m)
		}
		return out
	}
	defer pool.Release()

	for _, call := range calls {
		call := call
		if submitErr := pool.Submit(func() {
			results <- executeToolCall(ctx, env, state, byName, call)
		}); submitErr != nil {
			results <- provider.Message{Role: provider.RoleTool, Content: submitErr.Error(), ToolCallID: call.ID}
		}
	}

	out := make([]provider.Message, 0, len(calls))
	for i := 0; i < len(calls); i++ {
		out = append(out, <-results)
	}
	return out
}

func executeToolCall(ctx context.Context, env *flowengine.Env, state *flowengine.State, byName map[string]flowengine.Tool, call provider.ToolCall) provider.Message {
	args := provider.ParseToolArguments(call.Arguments)
	tool, ok := byName[call.Name]

	var output string
	var err error
	if !ok {
		output = ragerr.Newf(ragerr.Validation, "flow: no tool registered named %q", call.Name).Error()
	} else {
		output, err = tool.Call(ctx, env, state, args)
		if err != nil {
			output = err.Error()
		}
	}

	return provider.Message{Role: provider.RoleTool, Content: output, ToolCallID: call.ID}
}

func streamToCompletion(ctx context.Context, env *flowengine.Env, req provider.ChatRequest) (provider.ChatResult, error) {
	stream, err := env.Provider.Stream(ctx, req)
	if err != nil {
		return provider.ChatResult{}, err
	}
	defer stream.Close()

	for stream.Next() {
		if err := ctx.Err(); err != nil {
			return provider.ChatResult{}, ragerr.Wrap(ragerr.Cancelled, "flow: completion node cancelled mid-stream", err)
		}
	}
	if err := stream.Err(); err != nil {
		return provider.ChatResult{}, err
	}
	return stream.Final(), nil
}

// assignCallIDs assigns a stable id to any tool call that arrived without
// one, per the Completion node's documented handling of providers that omit
// ids on streamed tool calls.
func assignCallIDs(calls []provider.ToolCall) []provider.ToolCall {
	out := make([]provider.ToolCall, len(calls))
	for i, c := range calls {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		out[i] = c
	}
	return out
}
