// Package metadata is the per-document metadata store: one JSON file per
// document, updated via read-modify-write.
package metadata

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/zoeflow/ragcore/internal/fileio"
	"github.com/zoeflow/ragcore/internal/ragerr"
)

// Status is the lifecycle state of a document.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
	StatusCancelled  Status = "cancelled"
)

// ProcessingStep names the ingestion phase currently in flight.
type ProcessingStep string

const (
	StepNormalizing ProcessingStep = "normalizing"
	StepParsing     ProcessingStep = "parsing"
	StepChunking    ProcessingStep = "chunking"
	StepEnriching   ProcessingStep = "enriching"
	StepEmbedding   ProcessingStep = "embedding"
	StepStoring     ProcessingStep = "storing"
)

// Progress reports coarse-grained completion within the current step.
type Progress struct {
	Current int    `json:"current"`
	Total   int    `json:"total"`
	Step    string `json:"step"`
}

// Document is the full per-document metadata record.
type Document struct {
	DocID           string          `json:"docId"`
	StoreID         string          `json:"storeId"`
	SourceURI       string          `json:"sourceUri"`
	Author          string          `json:"author,omitempty"`
	Description     string          `json:"description,omitempty"`
	Tags            []string        `json:"tags,omitempty"`
	Version         string          `json:"version"`
	Status          Status          `json:"status"`
	ChunkCount      *int            `json:"chunkCount,omitempty"`
	UploadedAt      int64           `json:"uploadedAt"`
	ProcessedAt     *int64          `json:"processedAt,omitempty"`
	Error           string          `json:"error,omitempty"`
	Usage           []UsageEntry    `json:"usage,omitempty"`
	TotalCost       float64         `json:"totalCost,omitempty"`
	TotalTokens     int64           `json:"totalTokens,omitempty"`
	ProcessingStep  ProcessingStep  `json:"processingStep,omitempty"`
	Progress        *Progress       `json:"progress,omitempty"`
}

// UsageEntry is a single provider-call cost/token record attached to a
// document. The usage ledger (internal/usage) is the durable source of
// truth; this slice is a denormalized summary for quick reads.
type UsageEntry struct {
	Model  string  `json:"model"`
	Tokens int64   `json:"tokens"`
	Cost   float64 `json:"cost"`
}

// Store is a directory of <docId>.json metadata files.
type Store struct {
	root string
	mu   sync.Mutex
}

// New returns a Store rooted at dir (conventionally
// content/vectorstores/_metadata/).
func New(dir string) *Store {
	return &Store{root: dir}
}

func (s *Store) path(docID string) string {
	return filepath.Join(s.root, docID+".json")
}

// Read returns the stored metadata for docId.
func (s *Store) Read(_ context.Context, docID string) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(docID)
}

func (s *Store) read(docID string) (Document, error) {
	data, err := os.ReadFile(s.path(docID))
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, ragerr.Newf(ragerr.NotFound, "document %q not found", docID)
		}
		return Document{}, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, ragerr.Wrap(ragerr.Corrupt, "document metadata corrupt", err)
	}
	return doc, nil
}

// Store persists doc, overwriting any existing record for its docId.
func (s *Store) Store(_ context.Context, doc Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store(doc)
}

func (s *Store) store(doc Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return fileio.WriteFileAtomic(s.path(doc.DocID), data, 0o644)
}

// Mutate is the single read-modify-write entry point: it loads the current
// record, applies fn, and persists the result while holding the store's
// lock, so concurrent callers on the same Store instance never interleave.
// Last-write-wins across separate processes is acceptable per spec.
func (s *Store) Mutate(_ context.Context, docID string, fn func(Document) (Document, error)) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(docID)
	if err != nil {
		return Document{}, err
	}

	updated, err := fn(current)
	if err != nil {
		return Document{}, err
	}
	updated.DocID = docID

	if err := s.store(updated); err != nil {
		return Document{}, err
	}
	return updated, nil
}

// UpdateStatus is the single mutation entry point named in spec.md: it
// transitions status and merges patch fields (currently: error, chunkCount,
// processedAt, processingStep, progress) via fn.
func (s *Store) UpdateStatus(ctx context.Context, docID string, status Status, patch func(*Document)) (Document, error) {
	return s.Mutate(ctx, docID, func(doc Document) (Document, error) {
		doc.Status = status
		if patch != nil {
			patch(&doc)
		}
		return doc, nil
	})
}

// List returns every document's metadata, sorted by uploadedAt descending.
func (s *Store) List(_ context.Context) ([]Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var docs []Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		docID := strings.TrimSuffix(entry.Name(), ".json")
		doc, err := s.read(docID)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].UploadedAt > docs[j].UploadedAt })
	return docs, nil
}

// FindDocIDBySourceURI returns the most recently uploaded document whose
// sourceUri matches uri, or ragerr.NotFound if none does.
func (s *Store) FindDocIDBySourceURI(ctx context.Context, uri string) (string, error) {
	docs, err := s.List(ctx)
	if err != nil {
		return "", err
	}
	for _, doc := range docs {
		if doc.SourceURI == uri {
			return doc.DocID, nil
		}
	}
	return "", ragerr.Newf(ragerr.NotFound, "no document with sourceUri %q", uri)
}

// Delete removes the metadata record for docId.
func (s *Store) Delete(_ context.Context, docID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(docID)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return ragerr.Newf(ragerr.NotFound, "document %q not found", docID)
	}
	return os.Remove(path)
}
