package ingest

import (
	"context"

	"github.com/zoeflow/ragcore/internal/vectorstore"
)

// deleteStale implements phase 5: delete every item in storeID whose
// metadata.doc_id equals docID and metadata.version differs from version,
// in delete-batches of deleteBatchSize.
func (p *Pipeline) deleteStale(ctx context.Context, storeID, docID, version string) error {
	items, err := p.store.List(ctx)
	if err != nil {
		return err
	}

	var stale []string
	for _, item := range items {
		if docIDOf(item) == docID && versionOf(item) != version {
			stale = append(stale, item.ID)
		}
	}

	for start := 0; start < len(stale); start += deleteBatchSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := start + deleteBatchSize
		if end > len(stale) {
			end = len(stale)
		}
		if _, err := p.store.Delete(ctx, stale[start:end]); err != nil {
			return err
		}
	}

	return nil
}

func docIDOf(item vectorstore.Item) string {
	v, _ := item.Metadata["doc_id"].(string)
	return v
}

func versionOf(item vectorstore.Item) string {
	v, _ := item.Metadata["version"].(string)
	return v
}

// filterForDocument builds the metadata filter expression matching every
// chunk of a given document and version. Nothing in the module calls it:
// deleteStale lists and scans instead.
func filterForDocument(docID, version string) string {
	return "doc_id = " + quoteFilterValue(docID) + " AND version = " + quoteFilterValue(version)
}

func quoteFilterValue(s string) string {
	return "\"" + s + "\""
}
