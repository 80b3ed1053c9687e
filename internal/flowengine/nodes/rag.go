package nodes

import (
	"context"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/zoeflow/ragcore/internal/flowengine"
	"github.com/zoeflow/ragcore/internal/jsonutil"
	"github.com/zoeflow/ragcore/internal/ragerr"
)

// RAG is the tool-like node executor that embeds a query and searches a
// configured store, returning the joined result text as its payload. When
// connected into a Completion node instead, the same search is exposed as
// a callable "rag_search" tool via ragTool.
type RAG struct{}

func (RAG) Execute(ctx context.Context, env *flowengine.Env, node flowengine.Node, state *flowengine.State) (flowengine.ExecResult, error) {
	storeID, _ := node.Config["storeId"].(string)
	topK := configInt(node.Config["topK"], 5)

	query, _ := state.Payload.(string)
	if q, ok := node.Config["query"].(string); ok && q != "" {
		query = q
	}

	text, err := ragSearch(ctx, env, storeID, query, topK, "")
	if err != nil {
		return flowengine.ExecResult{}, err
	}
	return flowengine.ExecResult{Payload: text}, nil
}

func ragSearch(ctx context.Context, env *flowengine.Env, storeID, query string, topK int, filterExpr string) (string, error) {
	if env.RAG == nil {
		return "", ragerr.New(ragerr.Internal, "flow: no RAG searcher configured")
	}
	if strings.TrimSpace(query) == "" {
		return "", ragerr.New(ragerr.Validation, "flow: rag search requires a non-empty query")
	}

	vecs, err := env.RAG.Embed(ctx, env.EmbeddingModel, []string{query})
	if err != nil {
		return "", err
	}
	if len(vecs) == 0 {
		return "", ragerr.New(ragerr.Internal, "flow: embedding provider returned no vectors")
	}

	results, err := env.RAG.Query(ctx, storeID, vecs[0], topK, filterExpr)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(r.Text)
	}
	return b.String(), nil
}

// ragTool wraps RAG as a Completion-node tool.
type ragTool struct {
	storeID string
	topK    int
}

func newRAGTool(node flowengine.Node) flowengine.Tool {
	storeID, _ := node.Config["storeId"].(string)
	return ragTool{storeID: storeID, topK: configInt(node.Config["topK"], 5)}
}

func (t ragTool) Name() string        { return "rag_search" }
func (t ragTool) Description() string { return "Search the connected document store for relevant passages." }
func (t ragTool) Schema() map[string]any {
	return jsonutil.MustMapDefSchemaOf(struct {
		Query string `json:"query" jsonschema_description:"The search query."`
	}{})
}

func (t ragTool) Call(ctx context.Context, env *flowengine.Env, state *flowengine.State, args map[string]any) (string, error) {
	query, _ := args["query"].(string)
	return ragSearch(ctx, env, t.storeID, query, t.topK, "")
}

func configInt(v any, def int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	case string:
		if r := gjson.Parse(n); r.Exists() {
			return int(r.Int())
		}
	}
	return def
}
