package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RegisterAndIsProcessing(t *testing.T) {
	r := New()
	assert.False(t, r.IsProcessing("doc1"))

	_, job := r.Register(context.Background(), "doc1")
	defer r.Unregister("doc1")

	assert.True(t, r.IsProcessing("doc1"))
	assert.Equal(t, "doc1", job.DocID)
}

func TestRegistry_Unregister(t *testing.T) {
	r := New()
	r.Register(context.Background(), "doc1")
	r.Unregister("doc1")
	assert.False(t, r.IsProcessing("doc1"))
}

func TestRegistry_UnregisterIsIdempotent(t *testing.T) {
	r := New()
	r.Register(context.Background(), "doc1")
	r.Unregister("doc1")
	assert.NotPanics(t, func() { r.Unregister("doc1") })
}

func TestRegistry_CancelIsIdempotent(t *testing.T) {
	r := New()
	assert.NotPanics(t, func() { r.Cancel("missing") })

	ctx, _ := r.Register(context.Background(), "doc1")
	r.Cancel("doc1")
	r.Cancel("doc1")

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("expected job context to be cancelled")
	}
}

func TestRegistry_ReregisterCancelsPreviousAndWaits(t *testing.T) {
	r := New()
	firstCtx, _ := r.Register(context.Background(), "doc1")

	unregistered := make(chan struct{})
	go func() {
		<-firstCtx.Done()
		r.Unregister("doc1")
		close(unregistered)
	}()

	secondCtx, job := r.Register(context.Background(), "doc1")
	defer r.Unregister("doc1")

	select {
	case <-unregistered:
	case <-time.After(time.Second):
		t.Fatal("expected first job to be unregistered before Register returned")
	}

	require.NotNil(t, job)
	assert.NoError(t, secondCtx.Err())
}
