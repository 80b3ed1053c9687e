package ragservice

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/zoeflow/ragcore/internal/docstore"
	"github.com/zoeflow/ragcore/internal/ingest"
	"github.com/zoeflow/ragcore/internal/metadata"
	"github.com/zoeflow/ragcore/internal/ragerr"
	"github.com/zoeflow/ragcore/internal/statusstream"
	"github.com/zoeflow/ragcore/internal/vectorstore"
)

// UploadDocumentInput is the uploadDocument request body.
type UploadDocumentInput struct {
	StoreID   string
	SourceURI string
	Bytes     []byte
}

// UploadDocumentResult is the uploadDocument response body.
type UploadDocumentResult struct {
	DocID      string
	StoreID    string
	SourceURI  string
	Version    string
	Status     metadata.Status
	UploadedAt int64
}

// UploadDocument stores bytes as a new version of sourceUri, reusing the
// existing docId for that sourceUri if one has already been uploaded so a
// reprocessed document keeps its identity across content changes.
func (s *Service) UploadDocument(ctx context.Context, in UploadDocumentInput) (UploadDocumentResult, error) {
	if in.SourceURI == "" {
		return UploadDocumentResult{}, ragerr.New(ragerr.Validation, "sourceUri must not be empty")
	}
	if !vectorstore.ValidStoreID(in.StoreID) {
		return UploadDocumentResult{}, ragerr.Newf(ragerr.Validation, "invalid storeId %q", in.StoreID)
	}
	if len(in.Bytes) == 0 {
		return UploadDocumentResult{}, ragerr.New(ragerr.Validation, "document bytes must not be empty")
	}

	docID, err := s.meta.FindDocIDBySourceURI(ctx, in.SourceURI)
	if err != nil {
		if !ragerr.Is(err, ragerr.NotFound) {
			return UploadDocumentResult{}, err
		}
		docID = docstore.CreateDocumentID(in.SourceURI, sha256Hex(in.Bytes))
	}

	version := docstore.NewVersion()
	if err := s.docs.StoreDocument(ctx, docID, version, in.Bytes); err != nil {
		return UploadDocumentResult{}, err
	}

	now := time.Now().UnixMilli()
	doc := metadata.Document{
		DocID:      docID,
		StoreID:    in.StoreID,
		SourceURI:  in.SourceURI,
		Version:    version,
		Status:     metadata.StatusPending,
		UploadedAt: now,
	}
	if err := s.meta.Store(ctx, doc); err != nil {
		return UploadDocumentResult{}, err
	}
	s.stream.NotifyDocument(doc)

	return UploadDocumentResult{
		DocID:      docID,
		StoreID:    in.StoreID,
		SourceURI:  in.SourceURI,
		Version:    version,
		Status:     metadata.StatusPending,
		UploadedAt: now,
	}, nil
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// StartProcessingInput is the startProcessing request body.
type StartProcessingInput struct {
	DocID       string
	Author      string
	Description string
	Tags        []string
}

// StartProcessingResult is the startProcessing response body.
type StartProcessingResult struct {
	DocID             string
	Started           bool
	AlreadyProcessing bool
	Status            metadata.Status
}

// StartProcessing launches ingestion for docId in a background goroutine
// bounded by the service's ingestion semaphore, returning as soon as the
// job is registered rather than waiting for it to finish.
func (s *Service) StartProcessing(ctx context.Context, in StartProcessingInput) (StartProcessingResult, error) {
	doc, err := s.meta.Read(ctx, in.DocID)
	if err != nil {
		return StartProcessingResult{}, err
	}

	if s.registry.IsProcessing(in.DocID) {
		return StartProcessingResult{DocID: in.DocID, AlreadyProcessing: true}, nil
	}

	doc, err = s.meta.UpdateStatus(ctx, in.DocID, metadata.StatusProcessing, func(d *metadata.Document) {
		d.Author = in.Author
		d.Description = in.Description
		d.Tags = in.Tags
		d.Error = ""
	})
	if err != nil {
		return StartProcessingResult{}, err
	}
	s.stream.NotifyDocument(doc)

	jobCtx, _ := s.registry.Register(context.Background(), in.DocID)
	go s.runIngestion(jobCtx, doc)

	return StartProcessingResult{DocID: in.DocID, Started: true, Status: metadata.StatusProcessing}, nil
}

func (s *Service) runIngestion(ctx context.Context, doc metadata.Document) {
	defer s.registry.Unregister(doc.DocID)

	if err := s.ingestSem.Acquire(ctx, 1); err != nil {
		s.finishWithError(ctx, doc.DocID, err)
		return
	}
	defer s.ingestSem.Release(1)

	blob, err := s.docs.ReadDocument(ctx, doc.DocID, doc.Version)
	if err != nil {
		s.finishWithError(ctx, doc.DocID, err)
		return
	}

	pipeline, err := s.pipelineFor(ctx, doc.StoreID)
	if err != nil {
		s.finishWithError(ctx, doc.DocID, err)
		return
	}

	result, err := pipeline.Run(ctx, ingest.Input{
		DocID:       doc.DocID,
		StoreID:     doc.StoreID,
		Content:     string(blob.Bytes),
		Version:     doc.Version,
		SourceURI:   doc.SourceURI,
		Author:      doc.Author,
		Description: doc.Description,
		Tags:        doc.Tags,
	})
	if err != nil {
		s.finishWithError(ctx, doc.DocID, err)
		return
	}

	chunkCount := result.ChunkCount
	now := time.Now().UnixMilli()
	updated, uErr := s.meta.UpdateStatus(ctx, doc.DocID, metadata.StatusCompleted, func(d *metadata.Document) {
		d.ChunkCount = &chunkCount
		d.ProcessedAt = &now
		d.TotalTokens = result.TotalTokens
		d.TotalCost = result.TotalCost
		d.ProcessingStep = ""
		d.Progress = nil
	})
	if uErr != nil {
		s.log.Error("failed to finalize document metadata", "docId", doc.DocID, "error", uErr)
		return
	}
	s.stream.NotifyDocument(updated)
}

func (s *Service) finishWithError(ctx context.Context, docID string, err error) {
	status := metadata.StatusError
	if ragerr.Is(err, ragerr.Cancelled) {
		status = metadata.StatusCancelled
	}
	updated, uErr := s.meta.UpdateStatus(ctx, docID, status, func(d *metadata.Document) {
		d.Error = err.Error()
		d.ProcessingStep = ""
		d.Progress = nil
	})
	if uErr != nil {
		s.log.Error("failed to record document error", "docId", docID, "error", uErr)
		return
	}
	s.stream.NotifyDocument(updated)
}

// CancelProcessing cancels docId's in-flight job, if any. It is a no-op
// (not an error) when no job is currently registered for docId.
func (s *Service) CancelProcessing(ctx context.Context, docID string) (bool, error) {
	if _, err := s.meta.Read(ctx, docID); err != nil {
		return false, err
	}
	s.registry.Cancel(docID)
	return true, nil
}

// ReprocessDocumentResult is the reprocessDocument response body.
type ReprocessDocumentResult struct {
	DocID         string
	Reprocessing  bool
	ChunksDeleted int
}

// ReprocessDocument re-runs ingestion over the currently stored version of
// docId, first removing that version's existing chunks so the reported
// chunksDeleted count reflects what changed rather than relying on
// ingestion's own stale-version cleanup, which only fires on a version
// change.
func (s *Service) ReprocessDocument(ctx context.Context, docID string) (ReprocessDocumentResult, error) {
	doc, err := s.meta.Read(ctx, docID)
	if err != nil {
		return ReprocessDocumentResult{}, err
	}

	store, err := s.storeFor(ctx, doc.StoreID)
	if err != nil {
		return ReprocessDocumentResult{}, err
	}

	items, err := store.List(ctx)
	if err != nil {
		return ReprocessDocumentResult{}, err
	}
	var staleIDs []string
	for _, item := range items {
		if docIDField(item.Metadata) == docID && versionField(item.Metadata) == doc.Version {
			staleIDs = append(staleIDs, item.ID)
		}
	}
	deleted := 0
	if len(staleIDs) > 0 {
		deleted, err = store.Delete(ctx, staleIDs)
		if err != nil {
			return ReprocessDocumentResult{}, err
		}
	}

	if _, err := s.StartProcessing(ctx, StartProcessingInput{
		DocID:       docID,
		Author:      doc.Author,
		Description: doc.Description,
		Tags:        doc.Tags,
	}); err != nil {
		return ReprocessDocumentResult{}, err
	}

	return ReprocessDocumentResult{DocID: docID, Reprocessing: true, ChunksDeleted: deleted}, nil
}

// DeleteDocument removes docId's blobs, metadata record, and every chunk it
// has in storeId.
func (s *Service) DeleteDocument(ctx context.Context, docID, storeID string) error {
	store, err := s.storeFor(ctx, storeID)
	if err != nil {
		return err
	}

	items, err := store.List(ctx)
	if err != nil {
		return err
	}
	var ids []string
	for _, item := range items {
		if docIDField(item.Metadata) == docID {
			ids = append(ids, item.ID)
		}
	}
	if len(ids) > 0 {
		if _, err := store.Delete(ctx, ids); err != nil {
			return err
		}
	}

	if err := s.docs.DeleteDocument(ctx, docID); err != nil && !ragerr.Is(err, ragerr.NotFound) {
		return err
	}
	if err := s.meta.Delete(ctx, docID); err != nil {
		return err
	}

	return nil
}

// ListDocuments returns every document's metadata, optionally filtered to
// one storeId.
func (s *Service) ListDocuments(ctx context.Context, storeID string) ([]metadata.Document, error) {
	docs, err := s.meta.List(ctx)
	if err != nil {
		return nil, err
	}
	if storeID == "" {
		return docs, nil
	}
	filtered := make([]metadata.Document, 0, len(docs))
	for _, d := range docs {
		if d.StoreID == storeID {
			filtered = append(filtered, d)
		}
	}
	return filtered, nil
}

// DocumentStatusEvents subscribes to the status stream for the given
// docIds or storeId filter.
func (s *Service) DocumentStatusEvents(ctx context.Context, docIDs []string, storeID string) (*statusstream.Subscription, error) {
	return s.stream.Subscribe(ctx, statusstream.Filter{DocIDs: docIDs, StoreID: storeID})
}

func docIDField(md map[string]any) string {
	v, _ := md["doc_id"].(string)
	return v
}

func versionField(md map[string]any) string {
	v, _ := md["version"].(string)
	return v
}
