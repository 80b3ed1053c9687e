package registry

import (
	"context"

	"github.com/zoeflow/ragcore/internal/metadata"
)

// Recover runs once at process start. The registry is ephemeral, so any
// document metadata left in pending or processing state from a prior
// process has no live job backing it; Recover transitions those records to
// cancelled so they don't appear to be in progress forever.
func Recover(ctx context.Context, store *metadata.Store, reg *Registry) error {
	docs, err := store.List(ctx)
	if err != nil {
		return err
	}

	for _, doc := range docs {
		if doc.Status != metadata.StatusPending && doc.Status != metadata.StatusProcessing {
			continue
		}
		if reg.IsProcessing(doc.DocID) {
			continue
		}

		_, err := store.UpdateStatus(ctx, doc.DocID, metadata.StatusCancelled, nil)
		if err != nil {
			return err
		}
	}

	return nil
}
