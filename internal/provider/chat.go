package provider

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/packages/ssestream"
)

// Role is a chat message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a model-issued request to invoke a named function.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// Message is one chat turn. ToolCalls is populated on assistant messages
// that requested tool invocations; ToolCallID is populated on tool-role
// messages reporting a result back.
type Message struct {
	Role       Role
	Content    string
	Name       string
	ToolCallID string
	ToolCalls  []ToolCall
}

// ToolSchema describes a callable function exposed to the model.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// Usage is token accounting for one provider call.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
}

// ChatRequest is one non-streaming or streaming chat completion request.
type ChatRequest struct {
	Model       string
	Messages    []Message
	Tools       []ToolSchema
	ForceTool   string // non-empty forces tool_choice to this tool name
	Temperature *float64
}

// ChatResult is the outcome of a (possibly accumulated, if streamed) chat
// completion call.
type ChatResult struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
	Usage        Usage
}

// ErrToolChoiceRejected is returned when the upstream provider rejects a
// forced tool_choice. Callers (Completion/Guardrails nodes) retry once
// with tool_choice="auto" on this error, per spec.
var ErrToolChoiceRejected = errors.New("provider: forced tool_choice rejected")

func buildParams(req ChatRequest) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model:    req.Model,
		Messages: buildMessages(req.Messages),
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}
	if len(req.Tools) > 0 {
		params.Tools = buildTools(req.Tools)
	}
	if req.ForceTool != "" {
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfChatCompletionNamedToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Type: "function",
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{
					Name: req.ForceTool,
				},
			},
		}
	}
	return params
}

func buildTools(tools []ToolSchema) []openai.ChatCompletionToolParam {
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        t.Name,
				Description: openai.String(t.Description),
				Strict:      openai.Bool(true),
				Parameters:  t.Parameters,
			},
		})
	}
	return out
}

func buildMessages(msgs []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		default:
			out = append(out, buildAssistantMessage(m))
		}
	}
	return out
}

func buildAssistantMessage(m Message) openai.ChatCompletionMessageParamUnion {
	if len(m.ToolCalls) == 0 {
		return openai.AssistantMessage(m.Content)
	}
	calls := make([]openai.ChatCompletionMessageToolCallUnionParam, 0, len(m.ToolCalls))
	for _, tc := range m.ToolCalls {
		calls = append(calls, openai.ChatCompletionMessageToolCallUnionParam{
			OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
				ID: tc.ID,
				Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			},
		})
	}
	asst := openai.ChatCompletionAssistantMessageParam{
		ToolCalls: calls,
	}
	if m.Content != "" {
		asst.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
			OfString: openai.String(m.Content),
		}
	}
	return openai.ChatCompletionMessageParamUnion{OfAssistant: &asst}
}

func resultOf(resp *openai.ChatCompletion) ChatResult {
	if len(resp.Choices) == 0 {
		return ChatResult{Usage: usageOf(resp.Usage)}
	}
	choice := resp.Choices[0]
	return ChatResult{
		Content:      choice.Message.Content,
		ToolCalls:    toolCallsOf(choice.Message.ToolCalls),
		FinishReason: string(choice.FinishReason),
		Usage:        usageOf(resp.Usage),
	}
}

func toolCallsOf(calls []openai.ChatCompletionMessageToolCall) []ToolCall {
	out := make([]ToolCall, 0, len(calls))
	for _, c := range calls {
		out = append(out, ToolCall{ID: c.ID, Name: c.Function.Name, Arguments: c.Function.Arguments})
	}
	return out
}

func usageOf(u openai.CompletionUsage) Usage {
	return Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:       u.TotalTokens,
	}
}

// isToolChoiceRejection matches provider errors surfaced when a forced
// tool_choice is not supported/accepted by the upstream model. OpenRouter
// and OpenAI-compatible gateways report this as a 400 with "tool_choice" in
// the message body; matched on substring since the error shape varies by
// gateway.
func isToolChoiceRejection(err error) bool {
	if err == nil {
		return false
	}
	return containsFold(err.Error(), "tool_choice") || containsFold(err.Error(), "tool choice")
}

func containsFold(s, substr string) bool {
	return len(s) >= len(substr) && indexFold(s, substr) >= 0
}

func indexFold(s, substr string) int {
	ls, lsub := []rune(toLower(s)), []rune(toLower(substr))
	if len(lsub) == 0 {
		return 0
	}
	for i := 0; i+len(lsub) <= len(ls); i++ {
		match := true
		for j := range lsub {
			if ls[i+j] != lsub[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func toLower(s string) string {
	b := []rune(s)
	for i, r := range b {
		if r >= 'A' && r <= 'Z' {
			b[i] = r + ('a' - 'A')
		}
	}
	return string(b)
}

// Complete runs a single non-streaming chat completion. On a forced
// tool_choice rejection, the caller is expected to retry with ForceTool
// cleared (ErrToolChoiceRejected wraps the upstream error for that check).
func (c *Client) Complete(ctx context.Context, req ChatRequest) (ChatResult, error) {
	params := buildParams(req)
	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		if req.ForceTool != "" && isToolChoiceRejection(err) {
			return ChatResult{}, errors.Join(ErrToolChoiceRejected, err)
		}
		return ChatResult{}, err
	}
	return resultOf(resp), nil
}

// StreamDelta is one incremental chunk of a streaming chat completion.
type StreamDelta struct {
	ContentDelta string
}

// Stream is a cursor over a streaming chat completion. Next advances and
// must be called before the first Current; after Next returns false, Err
// reports any stream error and Final returns the accumulated result.
type Stream struct {
	inner     *ssestream.Stream[openai.ChatCompletionChunk]
	acc       openai.ChatCompletionAccumulator
	cur       StreamDelta
	forceTool string
}

// Stream starts a streaming chat completion. On a forced tool_choice
// rejection, Err wraps the upstream error in ErrToolChoiceRejected, same as
// Complete, so callers can retry with ForceTool cleared regardless of which
// call path they used.
func (c *Client) Stream(ctx context.Context, req ChatRequest) (*Stream, error) {
	params := buildParams(req)
	inner := c.api.Chat.Completions.NewStreaming(ctx, params)
	return &Stream{inner: inner, forceTool: req.ForceTool}, nil
}

// Next advances to the next delta, returning false at stream end or error.
func (s *Stream) Next() bool {
	if !s.inner.Next() {
		return false
	}
	chunk := s.inner.Current()
	s.acc.AddChunk(chunk)
	s.cur = StreamDelta{}
	if len(chunk.Choices) > 0 {
		s.cur.ContentDelta = chunk.Choices[0].Delta.Content
	}
	return true
}

// Current returns the delta produced by the most recent Next call.
func (s *Stream) Current() StreamDelta { return s.cur }

// Err returns any error the stream terminated with.
func (s *Stream) Err() error {
	err := s.inner.Err()
	if err != nil && s.forceTool != "" && isToolChoiceRejection(err) {
		return errors.Join(ErrToolChoiceRejected, err)
	}
	return err
}

// Close releases the underlying HTTP stream.
func (s *Stream) Close() error { return s.inner.Close() }

// Final returns the fully accumulated result once the stream is exhausted.
func (s *Stream) Final() ChatResult {
	return resultOf(&s.acc.ChatCompletion)
}

// ParseToolArguments unmarshals raw tool-call arguments as JSON, falling
// back to wrapping the raw string under "__raw" when it is not valid JSON,
// per the Completion node's documented argument-parsing behavior.
func ParseToolArguments(raw string) map[string]any {
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err == nil {
		return out
	}
	return map[string]any{"__raw": raw}
}
