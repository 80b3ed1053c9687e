package nodes

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoeflow/ragcore/internal/flowengine"
	"github.com/zoeflow/ragcore/internal/vectorstore"
)

func TestStart_SeedsPayloadFromConfigOnlyWhenNil(t *testing.T) {
	node := flowengine.Node{ID: "start", Config: map[string]any{"input": "seeded"}}

	state := flowengine.NewState()
	res, err := Start{}.Execute(context.Background(), &flowengine.Env{}, node, &state)
	require.NoError(t, err)
	assert.Equal(t, "seeded", res.Payload)

	state2 := flowengine.NewState()
	state2.Payload = "already set"
	res2, err := Start{}.Execute(context.Background(), &flowengine.Env{}, node, &state2)
	require.NoError(t, err)
	assert.Equal(t, "already set", res2.Payload)
}

func TestEnd_IsPassThrough(t *testing.T) {
	state := flowengine.NewState()
	state.Payload = "x"
	res, err := End{}.Execute(context.Background(), &flowengine.Env{}, flowengine.Node{ID: "end"}, &state)
	require.NoError(t, err)
	assert.Equal(t, "x", res.Payload)
}

func TestMessage_AppendsUserAssistantButNotSystem(t *testing.T) {
	state := flowengine.NewState()
	node := flowengine.Node{ID: "m", Config: map[string]any{"role": "user", "content": "hi there"}}
	_, err := Message{}.Execute(context.Background(), &flowengine.Env{}, node, &state)
	require.NoError(t, err)
	require.Len(t, state.Conversation, 1)
	assert.Equal(t, "hi there", state.Conversation[0].Content)

	state2 := flowengine.NewState()
	node2 := flowengine.Node{ID: "m2", Config: map[string]any{"role": "system", "content": "sys note"}}
	_, err = Message{}.Execute(context.Background(), &flowengine.Env{}, node2, &state2)
	require.NoError(t, err)
	assert.Empty(t, state2.Conversation)
}

func TestMessage_RendersTemplateAgainstVars(t *testing.T) {
	state := flowengine.NewState()
	state.Vars["name"] = "ada"
	node := flowengine.Node{ID: "m", Config: map[string]any{"role": "assistant", "content": "hello ${vars.name}"}}
	_, err := Message{}.Execute(context.Background(), &flowengine.Env{}, node, &state)
	require.NoError(t, err)
	require.Len(t, state.Conversation, 1)
	assert.Equal(t, "hello ada", state.Conversation[0].Content)
}

func TestSetVariable_LiteralAndExpression(t *testing.T) {
	state := flowengine.NewState()
	node := flowengine.Node{ID: "sv", Config: map[string]any{"path": "count", "value": "${1 + 2}"}}
	_, err := SetVariable{}.Execute(context.Background(), &flowengine.Env{}, node, &state)
	require.NoError(t, err)
	v, err := flowengine.GetVar(state.Vars, "count")
	require.NoError(t, err)
	assert.Equal(t, float64(3), v)
}

func TestSetVariable_MissingPath(t *testing.T) {
	state := flowengine.NewState()
	node := flowengine.Node{ID: "sv", Config: map[string]any{"value": "x"}}
	_, err := SetVariable{}.Execute(context.Background(), &flowengine.Env{}, node, &state)
	require.Error(t, err)
}

type fakeRAG struct {
	embedCalls int
	lastQuery  []float32
	results    []vectorstore.Result
}

func (f *fakeRAG) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	f.embedCalls++
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func (f *fakeRAG) Query(ctx context.Context, storeID string, queryVec []float32, topK int, filterExpr string) ([]vectorstore.Result, error) {
	f.lastQuery = queryVec
	return f.results, nil
}

func TestRAG_Execute_EmbedsAndSearches(t *testing.T) {
	fake := &fakeRAG{results: []vectorstore.Result{{Text: "chunk one"}, {Text: "chunk two"}}}
	env := &flowengine.Env{RAG: fake, EmbeddingModel: "embed-test"}
	node := flowengine.Node{ID: "rag", Config: map[string]any{"storeId": "store-1", "topK": float64(3)}}
	state := flowengine.NewState()
	state.Payload = "what is x"

	res, err := RAG{}.Execute(context.Background(), env, node, &state)
	require.NoError(t, err)
	assert.Equal(t, "chunk one\n\nchunk two", res.Payload)
	assert.Equal(t, 1, fake.embedCalls)
}

func TestRAG_Execute_NoSearcherConfigured(t *testing.T) {
	env := &flowengine.Env{}
	node := flowengine.Node{ID: "rag", Config: map[string]any{}}
	state := flowengine.NewState()
	state.Payload = "q"
	_, err := RAG{}.Execute(context.Background(), env, node, &state)
	require.Error(t, err)
}

type fakeDocs struct {
	text string
	err  error
}

func (f *fakeDocs) ReadDocument(ctx context.Context, docID string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func TestReadDocument_Execute(t *testing.T) {
	env := &flowengine.Env{Docs: &fakeDocs{text: "full text"}}
	node := flowengine.Node{ID: "rd", Config: map[string]any{"documentId": "doc-1"}}
	state := flowengine.NewState()
	res, err := ReadDocument{}.Execute(context.Background(), env, node, &state)
	require.NoError(t, err)
	assert.Equal(t, "full text", res.Payload)
}

func TestReadDocument_FallsBackToPayload(t *testing.T) {
	env := &flowengine.Env{Docs: &fakeDocs{text: "from payload"}}
	node := flowengine.Node{ID: "rd", Config: map[string]any{}}
	state := flowengine.NewState()
	state.Payload = "doc-2"
	res, err := ReadDocument{}.Execute(context.Background(), env, node, &state)
	require.NoError(t, err)
	assert.Equal(t, "from payload", res.Payload)
}

func TestCoinFlip_UsesEnvRandSource(t *testing.T) {
	env := &flowengine.Env{RandIntN: func(n int) int { return 1 }}
	state := flowengine.NewState()
	res, err := CoinFlip{}.Execute(context.Background(), env, flowengine.Node{ID: "c"}, &state)
	require.NoError(t, err)
	assert.Equal(t, "tails", res.Payload)
}

func TestDiceRoll_RespectsConfiguredSides(t *testing.T) {
	env := &flowengine.Env{RandIntN: func(n int) int {
		assert.Equal(t, 20, n)
		return 0
	}}
	node := flowengine.Node{ID: "d", Config: map[string]any{"sides": float64(20)}}
	state := flowengine.NewState()
	res, err := DiceRoll{}.Execute(context.Background(), env, node, &state)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Payload)
}

func TestToolNode_RendersResponseTemplate(t *testing.T) {
	state := flowengine.NewState()
	state.Vars["x"] = "42"
	node := flowengine.Node{ID: "t", Config: map[string]any{"response": "the answer is ${vars.x}"}}
	res, err := ToolNode{}.Execute(context.Background(), &flowengine.Env{}, node, &state)
	require.NoError(t, err)
	assert.Equal(t, "the answer is 42", res.Payload)
}

func TestGlobalStateTool_SetThenGet(t *testing.T) {
	tool := GlobalStateTool()
	state := flowengine.NewState()
	env := &flowengine.Env{}

	out, err := tool.Call(context.Background(), env, &state, map[string]any{
		"action": "set", "path": "counters.visits", "value": float64(4),
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)

	out, err = tool.Call(context.Background(), env, &state, map[string]any{
		"action": "get", "path": "counters.visits",
	})
	require.NoError(t, err)
	assert.Equal(t, "4", out)
}

func TestGlobalStateTool_RequiresPath(t *testing.T) {
	tool := GlobalStateTool()
	state := flowengine.NewState()
	_, err := tool.Call(context.Background(), &flowengine.Env{}, &state, map[string]any{"action": "get"})
	require.Error(t, err)
}

func TestDefaultToolBuilders_CoversEveryToolLikeType(t *testing.T) {
	builders := DefaultToolBuilders()
	for _, nt := range []flowengine.NodeType{
		flowengine.NodeRAG, flowengine.NodeReadDocument, flowengine.NodeCoinFlip,
		flowengine.NodeDiceRoll, flowengine.NodeTool,
	} {
		_, ok := builders[nt]
		assert.True(t, ok, "missing builder for %s", nt)
	}
}

func TestRegister_InstallsEveryNodeType(t *testing.T) {
	reg := flowengine.NewRegistry()
	Register(reg)
	for _, nt := range []flowengine.NodeType{
		flowengine.NodeStart, flowengine.NodeMessage, flowengine.NodeSetVariable,
		flowengine.NodeEnd, flowengine.NodeGuardrails, flowengine.NodeCompletion,
		flowengine.NodeRAG, flowengine.NodeReadDocument, flowengine.NodeCoinFlip,
		flowengine.NodeDiceRoll, flowengine.NodeTool,
	} {
		_, ok := reg.Lookup(nt)
		assert.True(t, ok, "missing executor for %s", nt)
	}
}
