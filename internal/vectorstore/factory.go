package vectorstore

import (
	"path/filepath"

	"github.com/zoeflow/ragcore/internal/vectorstore/jsonstore"
	"github.com/zoeflow/ragcore/internal/vectorstore/localindex"
)

// Backend selects which vectorstore.Store implementation Open constructs.
type Backend int

const (
	// BackendJSON is the self-contained JSON file backend.
	BackendJSON Backend = iota
	// BackendLocalIndex is the chromem-go-backed embedded index backend.
	BackendLocalIndex
)

// Open constructs the store for storeId under root (conventionally
// content/vectorstores/), using backend to select the JSON or local-index
// implementation.
func Open(root string, storeID string, backend Backend) (Store, error) {
	switch backend {
	case BackendLocalIndex:
		dir := filepath.Join(root, storeID+".vectra")
		return localindex.New(dir, storeID)
	default:
		path := filepath.Join(root, storeID+".json")
		return jsonstore.New(path), nil
	}
}
