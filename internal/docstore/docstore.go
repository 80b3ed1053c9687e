// Package docstore is the versioned blob store for uploaded source
// documents: one directory per document id, one file per version.
package docstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/zoeflow/ragcore/internal/fileio"
	"github.com/zoeflow/ragcore/internal/ragerr"
)

// Document is a single stored version of a source document.
type Document struct {
	DocID     string
	StoreID   string
	SourceURI string
	Version   string
	Bytes     []byte
}

// Store is a directory of documents/<docId>/<version>.md blobs.
type Store struct {
	root string
}

// New returns a Store rooted at dir (conventionally content/documents/).
func New(dir string) *Store {
	return &Store{root: dir}
}

func (s *Store) docDir(docID string) string {
	return filepath.Join(s.root, docID)
}

// CreateDocumentID derives the 16-hex document id for sourceURI. When
// contentHash is empty the current time is used instead, per spec.
func CreateDocumentID(sourceURI string, contentHash string) string {
	disambiguator := contentHash
	if disambiguator == "" {
		disambiguator = strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	sum := sha256.Sum256([]byte(sourceURI + ":" + disambiguator))
	return hex.EncodeToString(sum[:])[:16]
}

// NewVersion returns a monotonic decimal-timestamp version string. Callers
// storing multiple versions of the same document in quick succession should
// still see strictly increasing values since UnixNano has nanosecond
// resolution.
func NewVersion() string {
	return strconv.FormatInt(time.Now().UnixNano(), 10)
}

// StoreDocument writes bytes as the given version of docId, creating parent
// directories as needed.
func (s *Store) StoreDocument(_ context.Context, docID, version string, bytes []byte) error {
	if docID == "" || version == "" {
		return ragerr.New(ragerr.Validation, "docId and version are required")
	}
	path := filepath.Join(s.docDir(docID), version+".md")
	return fileio.WriteFileAtomic(path, bytes, 0o644)
}

// ReadDocument returns the requested version of docId, or the newest
// version when version is empty.
func (s *Store) ReadDocument(_ context.Context, docID, version string) (Document, error) {
	dir := s.docDir(docID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, ragerr.Newf(ragerr.NotFound, "document %q not found", docID)
		}
		return Document{}, err
	}

	versions := versionsOf(entries)
	if len(versions) == 0 {
		return Document{}, ragerr.Newf(ragerr.NotFound, "document %q not found", docID)
	}

	resolved := version
	if resolved == "" {
		resolved = versions[len(versions)-1]
	} else if !containsString(versions, resolved) {
		return Document{}, ragerr.Newf(ragerr.NotFound, "document %q version %q not found", docID, version)
	}

	data, err := os.ReadFile(filepath.Join(dir, resolved+".md"))
	if err != nil {
		return Document{}, err
	}

	return Document{DocID: docID, Version: resolved, Bytes: data}, nil
}

// ListDocuments walks the store and returns one entry per document id
// (latest version only), sorted by document id. It takes no storeId: the
// on-disk layout is not partitioned by store, and the returned Documents
// leave StoreID and SourceURI empty.
func (s *Store) ListDocuments(_ context.Context) ([]Document, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var docs []Document
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		docID := entry.Name()
		versionEntries, err := os.ReadDir(filepath.Join(s.root, docID))
		if err != nil {
			return nil, err
		}
		versions := versionsOf(versionEntries)
		if len(versions) == 0 {
			continue
		}
		docs = append(docs, Document{DocID: docID, Version: versions[len(versions)-1]})
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].DocID < docs[j].DocID })
	return docs, nil
}

// DeleteDocument removes the entire directory for docId, including every
// stored version.
func (s *Store) DeleteDocument(_ context.Context, docID string) error {
	dir := s.docDir(docID)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return ragerr.Newf(ragerr.NotFound, "document %q not found", docID)
	}
	return os.RemoveAll(dir)
}

func versionsOf(entries []os.DirEntry) []string {
	var versions []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".md") {
			continue
		}
		versions = append(versions, strings.TrimSuffix(name, ".md"))
	}
	sort.Strings(versions)
	return versions
}

func containsString(haystack []string, needle string) bool {
	for _, v := range haystack {
		if v == needle {
			return true
		}
	}
	return false
}
