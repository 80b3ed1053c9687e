// Package statusstream fans out per-document metadata changes to
// subscribers addressed by docId or storeId. Delivery is best-effort, not
// at-least-once: a slow subscriber drops its oldest buffered event rather
// than blocking the publisher, so events can be lost, and a dropped-event
// counter tells the subscriber its feed has gaps so it can re-snapshot.
package statusstream

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	concpool "github.com/sourcegraph/conc/pool"

	"github.com/zoeflow/ragcore/internal/metadata"
)

// EventType distinguishes a status push from a terminal subscription error.
type EventType string

const (
	EventStatus EventType = "status"
	EventError  EventType = "error"
)

// Event is the push payload: a snapshot of the fields spec.md calls out as
// change triggers (status, processingStep, progress, chunkCount, error) or
// an isProcessing flip.
type Event struct {
	Type           EventType               `json:"type"`
	DocID          string                  `json:"docId,omitempty"`
	Status         metadata.Status         `json:"status,omitempty"`
	IsProcessing   bool                    `json:"isProcessing,omitempty"`
	ProcessingStep metadata.ProcessingStep `json:"processingStep,omitempty"`
	Progress       *metadata.Progress      `json:"progress,omitempty"`
	ChunkCount     *int                    `json:"chunkCount,omitempty"`
	Error          string                  `json:"error,omitempty"`

	// storeID is carried internally for storeId-scoped subscription
	// matching; it is never serialized, since the schema spec.md names
	// only emits docId-shaped events.
	storeID string
}

// Filter selects which events a subscription receives. Exactly one of
// DocIDs or StoreID is normally set; if both are, either match suffices.
type Filter struct {
	DocIDs  []string
	StoreID string
}

func (f Filter) matches(ev Event) bool {
	for _, id := range f.DocIDs {
		if id == ev.DocID {
			return true
		}
	}
	return f.StoreID != "" && f.StoreID == ev.storeID
}

const subscriberBuffer = 64

// Subscription is a live feed of Events. Callers range over Events() until
// the context passed to Subscribe is done, then call Close to release the
// registry slot.
type Subscription struct {
	id      string
	filter  Filter
	hub     *Hub
	ch      chan Event
	mu      sync.Mutex
	closed  bool
	dropped atomic.Int64
}

// Events returns the channel to range over. It is closed when the
// subscription's context is done or Close is called.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Dropped reports how many events this subscription has lost to a full
// buffer since it was created.
func (s *Subscription) Dropped() int64 { return s.dropped.Load() }

// Close unregisters the subscription and closes its channel. Safe to call
// more than once.
func (s *Subscription) Close() {
	s.hub.remove(s.id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

func (s *Subscription) deliver(ev Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- ev:
		return
	default:
	}
	// Buffer full: drop the oldest queued event and retry once, so a
	// burst of changes never blocks the publisher.
	select {
	case <-s.ch:
		s.dropped.Add(1)
	default:
	}
	select {
	case s.ch <- ev:
	default:
		s.dropped.Add(1)
	}
}

// Hub is the fan-out registry. The zero value is not usable; construct one
// with New.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
	meta *metadata.Store
}

// New returns a Hub that assembles initial snapshots from meta.
func New(meta *metadata.Store) *Hub {
	return &Hub{subs: make(map[string]*Subscription), meta: meta}
}

// Subscribe registers filter and returns a Subscription that has already
// been seeded with a synthetic snapshot of every currently-known document
// matching the filter, so a joiner never misses state that changed before
// it connected. The subscription is automatically closed when ctx is done.
func (h *Hub) Subscribe(ctx context.Context, filter Filter) (*Subscription, error) {
	sub := &Subscription{
		id:     uuid.NewString(),
		filter: filter,
		hub:    h,
		ch:     make(chan Event, subscriberBuffer),
	}

	docs, err := h.meta.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		ev := eventFromDocument(doc)
		if !filter.matches(ev) {
			continue
		}
		sub.deliver(ev)
	}

	h.mu.Lock()
	h.subs[sub.id] = sub
	h.mu.Unlock()

	if ctx != nil {
		context.AfterFunc(ctx, sub.Close)
	}
	return sub, nil
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs, id)
}

// Publish pushes ev to every subscription whose filter matches. Delivery to
// each subscriber runs in its own goroutine under a conc pool so one
// subscriber's slow channel (or, in principle, a panic in future delivery
// logic) never holds up or takes down the others.
func (h *Hub) Publish(ev Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	p := concpool.New()
	for _, sub := range h.subs {
		sub := sub
		if !sub.filter.matches(ev) {
			continue
		}
		p.Go(func() { sub.deliver(ev) })
	}
	p.Wait()
}

// PublishError sends a terminal EventError to every subscription matching
// filter, without requiring a docId (used when a subscription request
// itself is malformed downstream of Subscribe, e.g. missing args).
func (h *Hub) PublishError(filter Filter, msg string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	p := concpool.New()
	for _, sub := range h.subs {
		sub := sub
		matches := false
		for _, id := range filter.DocIDs {
			for _, subID := range sub.filter.DocIDs {
				if id == subID {
					matches = true
				}
			}
		}
		if filter.StoreID != "" && filter.StoreID == sub.filter.StoreID {
			matches = true
		}
		if !matches {
			continue
		}
		p.Go(func() { sub.deliver(Event{Type: EventError, Error: msg}) })
	}
	p.Wait()
}

// NotifyDocument publishes a status event derived from doc's current
// fields. Callers invoke this after every metadata.Store mutation so the
// stream reflects status, processingStep, progress, chunkCount, and error
// changes, plus isProcessing flips, as spec.md requires.
func (h *Hub) NotifyDocument(doc metadata.Document) {
	h.Publish(eventFromDocument(doc))
}

func eventFromDocument(doc metadata.Document) Event {
	return Event{
		Type:           EventStatus,
		DocID:          doc.DocID,
		Status:         doc.Status,
		IsProcessing:   isProcessing(doc.Status),
		ProcessingStep: doc.ProcessingStep,
		Progress:       doc.Progress,
		ChunkCount:     doc.ChunkCount,
		Error:          doc.Error,
		storeID:        doc.StoreID,
	}
}

func isProcessing(status metadata.Status) bool {
	return status == metadata.StatusPending || status == metadata.StatusProcessing
}
