package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoeflow/ragcore/internal/ragerr"
)

func TestStore_StoreAndReadDocument(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir())

	require.NoError(t, s.StoreDocument(ctx, "doc1", "100", []byte("hello")))

	doc, err := s.ReadDocument(ctx, "doc1", "")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(doc.Bytes))
	assert.Equal(t, "100", doc.Version)
}

func TestStore_ReadDocument_LatestVersionIsNewest(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir())

	require.NoError(t, s.StoreDocument(ctx, "doc1", "100", []byte("first")))
	require.NoError(t, s.StoreDocument(ctx, "doc1", "200", []byte("second")))

	doc, err := s.ReadDocument(ctx, "doc1", "")
	require.NoError(t, err)
	assert.Equal(t, "second", string(doc.Bytes))
	assert.Equal(t, "200", doc.Version)
}

func TestStore_ReadDocument_SpecificVersion(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir())

	require.NoError(t, s.StoreDocument(ctx, "doc1", "100", []byte("first")))
	require.NoError(t, s.StoreDocument(ctx, "doc1", "200", []byte("second")))

	doc, err := s.ReadDocument(ctx, "doc1", "100")
	require.NoError(t, err)
	assert.Equal(t, "first", string(doc.Bytes))
}

func TestStore_ReadDocument_NotFound(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir())

	_, err := s.ReadDocument(ctx, "missing", "")
	require.Error(t, err)
	assert.True(t, ragerr.Is(err, ragerr.NotFound))
}

func TestStore_ReadDocument_MissingVersion(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir())

	require.NoError(t, s.StoreDocument(ctx, "doc1", "100", []byte("first")))

	_, err := s.ReadDocument(ctx, "doc1", "999")
	require.Error(t, err)
	assert.True(t, ragerr.Is(err, ragerr.NotFound))
}

func TestStore_ListDocuments(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir())

	require.NoError(t, s.StoreDocument(ctx, "doc1", "100", []byte("a")))
	require.NoError(t, s.StoreDocument(ctx, "doc2", "100", []byte("b")))
	require.NoError(t, s.StoreDocument(ctx, "doc2", "200", []byte("c")))

	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "doc1", docs[0].DocID)
	assert.Equal(t, "doc2", docs[1].DocID)
	assert.Equal(t, "200", docs[1].Version)
}

func TestStore_ListDocuments_EmptyStore(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir())

	docs, err := s.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestStore_DeleteDocument(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir())

	require.NoError(t, s.StoreDocument(ctx, "doc1", "100", []byte("a")))
	require.NoError(t, s.DeleteDocument(ctx, "doc1"))

	_, err := s.ReadDocument(ctx, "doc1", "")
	require.Error(t, err)
	assert.True(t, ragerr.Is(err, ragerr.NotFound))
}

func TestStore_DeleteDocument_NotFound(t *testing.T) {
	ctx := context.Background()
	s := New(t.TempDir())

	err := s.DeleteDocument(ctx, "missing")
	require.Error(t, err)
	assert.True(t, ragerr.Is(err, ragerr.NotFound))
}

func TestCreateDocumentID_DeterministicWithContentHash(t *testing.T) {
	a := CreateDocumentID("https://example.com/doc", "hash1")
	b := CreateDocumentID("https://example.com/doc", "hash1")
	assert.Equal(t, a, b)
	assert.Len(t, a, 16)
}

func TestCreateDocumentID_DifferentHashDifferentID(t *testing.T) {
	a := CreateDocumentID("https://example.com/doc", "hash1")
	b := CreateDocumentID("https://example.com/doc", "hash2")
	assert.NotEqual(t, a, b)
}

func TestCreateDocumentID_NoHashFallsBackToTimestamp(t *testing.T) {
	a := CreateDocumentID("https://example.com/doc", "")
	time.Sleep(time.Millisecond)
	b := CreateDocumentID("https://example.com/doc", "")
	assert.NotEqual(t, a, b)
}

func TestNewVersion_Monotonic(t *testing.T) {
	a := NewVersion()
	b := NewVersion()
	assert.Less(t, a, b)
}
