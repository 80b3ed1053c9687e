package flowengine

import (
	"context"

	"github.com/zoeflow/ragcore/internal/provider"
	"github.com/zoeflow/ragcore/internal/usage"
	"github.com/zoeflow/ragcore/internal/vectorstore"
)

// Tool is a callable function exposed to a Completion node: either a
// developer-connected tool-like node (RAG, ReadDocument, CoinFlip,
// DiceRoll, Tool) translated via Env's tool builders, or the always-
// available global_state tool.
type Tool interface {
	Name() string
	Description() string
	Schema() map[string]any
	Call(ctx context.Context, env *Env, state *State, args map[string]any) (string, error)
}

// ToolBuilder turns a tool-like graph node into its callable Tool.
type ToolBuilder func(node Node) Tool

// RAGSearcher is the subset of the query path a RAG tool node calls into.
type RAGSearcher interface {
	Query(ctx context.Context, storeID string, queryVec []float32, topK int, filterExpr string) ([]vectorstore.Result, error)
	Embed(ctx context.Context, model string, texts []string) ([][]float32, error)
}

// DocumentReader is the subset of document storage a ReadDocument tool
// node calls into.
type DocumentReader interface {
	ReadDocument(ctx context.Context, docID string) (string, error)
}

// Env bundles the collaborators node executors need: the provider client,
// default model names, and the domain services tool-like nodes call into.
type Env struct {
	Provider *provider.Client

	ChatModel       string
	EmbeddingModel  string
	MaxToolIterations int

	RAG      RAGSearcher
	Docs     DocumentReader
	RandIntN func(n int) int // used by CoinFlip/DiceRoll; defaults to math/rand/v2 if nil

	ToolBuilders map[NodeType]ToolBuilder

	Usage *usage.Ledger // optional; when set, Completion records per-call token usage
}
