// Package usage is the append-only usage ledger: one JSONL file per store,
// recording a line per provider call, aggregated on read.
package usage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Variant distinguishes intermediate tool-producing provider calls from the
// final content-bearing one within a flow run's completion loop.
type Variant string

const (
	VariantStandard Variant = "standard"
	VariantInternal Variant = "internal"
)

// Entry is one recorded provider call.
type Entry struct {
	DocID            string  `json:"docId,omitempty"`
	RunID            string  `json:"runId,omitempty"`
	Model            string  `json:"model"`
	PromptTokens     int64   `json:"promptTokens"`
	CompletionTokens int64   `json:"completionTokens"`
	TotalTokens      int64   `json:"totalTokens"`
	Cost             float64 `json:"cost"`
	Variant          Variant `json:"variant,omitempty"`
	CreatedAt        int64   `json:"createdAt"`
}

// Totals aggregates a set of entries.
type Totals struct {
	TotalTokens int64
	TotalCost   float64
	Count       int
}

// Ledger is a single store's append-only usage log.
type Ledger struct {
	path string
	mu   sync.Mutex
}

// New returns a Ledger backed by the JSONL file at path (conventionally
// content/vectorstores/_usage/<storeId>.jsonl).
func New(path string) *Ledger {
	return &Ledger{path: path}
}

// Append writes entry as one JSON line, synchronized against concurrent
// writers via a per-Ledger mutex and the file's O_APPEND mode.
func (l *Ledger) Append(_ context.Context, entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	_, err = f.Write(data)
	return err
}

// All returns every entry recorded in the ledger, in append order.
// Malformed lines are skipped rather than failing the whole read, since an
// interrupted final write should not make prior entries unreadable.
func (l *Ledger) All(_ context.Context) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// TotalsFor aggregates tokens/cost across every entry matching pred. Pass a
// predicate that matches on DocID or RunID to scope the aggregation.
func (l *Ledger) TotalsFor(ctx context.Context, pred func(Entry) bool) (Totals, error) {
	entries, err := l.All(ctx)
	if err != nil {
		return Totals{}, err
	}

	var t Totals
	for _, e := range entries {
		if pred != nil && !pred(e) {
			continue
		}
		t.TotalTokens += e.TotalTokens
		t.TotalCost += e.Cost
		t.Count++
	}
	return t, nil
}
