package persistqueue

import (
	"context"

	"github.com/yanqian/askcache/internal/domain/qacache"
)

// Immediate inserts entries into the store on the caller's goroutine.
type Immediate struct {
	store qacache.Store
}

// NewImmediate constructs the writer.
func NewImmediate(store qacache.Store) *Immediate {
	return &Immediate{store: store}
}

// Write implements qacache.EntryWriter.
func (w *Immediate) Write(ctx context.Context, entry qacache.NewEntry) error {
	_, err := w.store.Insert(ctx, entry)
	return err
}

var _ qacache.EntryWriter = (*Immediate)(nil)
