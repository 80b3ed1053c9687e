package ragservice

import (
	"context"

	"github.com/zoeflow/ragcore/internal/flowengine"
	"github.com/zoeflow/ragcore/internal/flowengine/nodes"
	"github.com/zoeflow/ragcore/internal/provider"
	"github.com/zoeflow/ragcore/internal/ragerr"
	"github.com/zoeflow/ragcore/internal/vectorstore"
)

// RunFlowInput is the runFlow request body.
type RunFlowInput struct {
	Graph        *flowengine.Graph
	UserMessage  string
	Conversation []provider.Message
	InitialVars  map[string]any
	StartEdgeID  string
	StartNodeID  string
	InitialState *flowengine.State
}

// RunFlow traverses graph from its start node (or StartNodeID, if given),
// dispatching to the registered node executors and returning the completed
// run's step log.
func (s *Service) RunFlow(ctx context.Context, in RunFlowInput) (*flowengine.Run, error) {
	if in.Graph == nil {
		return nil, ragerr.New(ragerr.Validation, "graph is required")
	}

	startNodeID := in.StartNodeID
	if startNodeID == "" {
		startNodeID = in.Graph.StartNodeID
	}

	state := flowengine.NewState()
	if in.InitialState != nil {
		state = *in.InitialState
		if state.Vars == nil {
			state.Vars = map[string]any{}
		}
	}
	for k, v := range in.InitialVars {
		state.Vars[k] = v
	}
	if in.Conversation != nil {
		state.Conversation = in.Conversation
	}
	if in.UserMessage != "" {
		state.Conversation = append(state.Conversation, provider.Message{Role: provider.RoleUser, Content: in.UserMessage})
		state.Payload = in.UserMessage
	}

	env := &flowengine.Env{
		Provider:       s.provider,
		ChatModel:      s.cfg.ChatModel,
		EmbeddingModel: s.cfg.OpenRouterEmbeddingModel,
		RAG:            ragSearcherAdapter{svc: s},
		Docs:           documentReaderAdapter{svc: s},
		ToolBuilders:   nodes.DefaultToolBuilders(),
	}

	return s.engine.Run(ctx, env, in.Graph, startNodeID, state, in.StartEdgeID)
}

// ragSearcherAdapter satisfies flowengine.RAGSearcher against the service's
// per-store vector stores and shared query-embedding cache.
type ragSearcherAdapter struct {
	svc *Service
}

func (a ragSearcherAdapter) Query(ctx context.Context, storeID string, queryVec []float32, topK int, filterExpr string) ([]vectorstore.Result, error) {
	store, err := a.svc.storeFor(ctx, storeID)
	if err != nil {
		return nil, err
	}
	return store.Query(ctx, queryVec, topK, filterExpr)
}

func (a ragSearcherAdapter) Embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	return a.svc.embedWithCache(ctx, a.svc.queryCache, model, texts)
}

// documentReaderAdapter satisfies flowengine.DocumentReader against the
// service's document store, always reading the latest version.
type documentReaderAdapter struct {
	svc *Service
}

func (a documentReaderAdapter) ReadDocument(ctx context.Context, docID string) (string, error) {
	doc, err := a.svc.docs.ReadDocument(ctx, docID, "")
	if err != nil {
		return "", err
	}
	return string(doc.Bytes), nil
}
