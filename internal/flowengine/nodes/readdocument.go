package nodes

import (
	"context"
	"strings"

	"github.com/zoeflow/ragcore/internal/flowengine"
	"github.com/zoeflow/ragcore/internal/jsonutil"
	"github.com/zoeflow/ragcore/internal/ragerr"
)

// ReadDocument fetches the full text of a configured (or caller-supplied)
// document id through Env.Docs.
type ReadDocument struct{}

func (ReadDocument) Execute(ctx context.Context, env *flowengine.Env, node flowengine.Node, state *flowengine.State) (flowengine.ExecResult, error) {
	docID, _ := node.Config["documentId"].(string)
	if docID == "" {
		docID, _ = state.Payload.(string)
	}
	text, err := readDocument(ctx, env, docID)
	if err != nil {
		return flowengine.ExecResult{}, err
	}
	return flowengine.ExecResult{Payload: text}, nil
}

func readDocument(ctx context.Context, env *flowengine.Env, docID string) (string, error) {
	if env.Docs == nil {
		return "", ragerr.New(ragerr.Internal, "flow: no document reader configured")
	}
	if strings.TrimSpace(docID) == "" {
		return "", ragerr.New(ragerr.Validation, "flow: read_document requires a non-empty documentId")
	}
	return env.Docs.ReadDocument(ctx, docID)
}

type readDocumentTool struct {
	defaultDocID string
}

func newReadDocumentTool(node flowengine.Node) flowengine.Tool {
	docID, _ := node.Config["documentId"].(string)
	return readDocumentTool{defaultDocID: docID}
}

func (t readDocumentTool) Name() string { return "read_document" }
func (t readDocumentTool) Description() string {
	return "Read the full text of a document by id."
}
func (t readDocumentTool) Schema() map[string]any {
	return jsonutil.MustMapDefSchemaOf(struct {
		DocumentID string `json:"documentId" jsonschema_description:"The document id to read."`
	}{})
}

func (t readDocumentTool) Call(ctx context.Context, env *flowengine.Env, state *flowengine.State, args map[string]any) (string, error) {
	docID, _ := args["documentId"].(string)
	if docID == "" {
		docID = t.defaultDocID
	}
	return readDocument(ctx, env, docID)
}
