// Package registry tracks in-flight ingestion jobs so that at most one
// runs per document id at a time, and so a running job can be cancelled by
// id from another goroutine.
package registry

import (
	"context"
	"sync"
	"time"

	"github.com/zoeflow/ragcore/internal/metadata"
)

// Job is a single registered, cancellable unit of work for a document.
type Job struct {
	DocID     string
	startedAt time.Time
	cancel    context.CancelFunc
	done      chan struct{}
}

// StartedAt is when the job was registered.
func (j *Job) StartedAt() time.Time { return j.startedAt }

// Registry is an in-process docId -> *Job map. The zero value is not
// usable; construct with New.
type Registry struct {
	jobs sync.Map // docID -> *Job
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Register creates a cancellable child of ctx for docId and records it. If
// docId already has a live job, Register first cancels it and blocks until
// it calls Unregister, per spec's "at most one live registration per
// docId" rule.
func (r *Registry) Register(ctx context.Context, docID string) (context.Context, *Job) {
	if existing, ok := r.jobs.Load(docID); ok {
		job := existing.(*Job)
		job.cancel()
		<-job.done
	}

	jobCtx, cancel := context.WithCancel(ctx)
	job := &Job{
		DocID:     docID,
		startedAt: time.Now(),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	r.jobs.Store(docID, job)
	return jobCtx, job
}

// IsProcessing reports whether docId currently has a live registration.
func (r *Registry) IsProcessing(docID string) bool {
	_, ok := r.jobs.Load(docID)
	return ok
}

// Cancel cancels docId's job if one is registered. It is idempotent: it is
// a no-op if no job is registered, or if the job was already cancelled.
func (r *Registry) Cancel(docID string) {
	if existing, ok := r.jobs.Load(docID); ok {
		existing.(*Job).cancel()
	}
}

// Unregister removes docId's registration and signals Register's waiters.
// It is the job's responsibility to call this exactly once, typically in a
// deferred statement right after Register.
func (r *Registry) Unregister(docID string) {
	if existing, ok := r.jobs.LoadAndDelete(docID); ok {
		close(existing.(*Job).done)
	}
}

// Recover is the crash-recovery pass run once at process start: a
// pending/processing record with no live registration in r means the
// process died mid-job, so it is transitioned to cancelled rather than
// left stuck forever.
func Recover(ctx context.Context, r *Registry, meta *metadata.Store) error {
	docs, err := meta.List(ctx)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		if doc.Status != metadata.StatusPending && doc.Status != metadata.StatusProcessing {
			continue
		}
		if r.IsProcessing(doc.DocID) {
			continue
		}
		if _, err := meta.UpdateStatus(ctx, doc.DocID, metadata.StatusCancelled, nil); err != nil {
			return err
		}
	}
	return nil
}
