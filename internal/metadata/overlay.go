// Package metadata holds the workflow overlay: status, publish date, sources
// and word goal for each article id, kept apart from the document body.
package metadata

import (
	"fmt"
	"sync"

	"github.com/starford/haven/internal/models"
)

// Store persists overlay records. The overlay calls it while holding its
// own lock, so implementations need no extra synchronisation for ordering.
type Store interface {
	LoadAll() (map[string]models.Metadata, error)
	Put(id string, md models.Metadata) error
	Delete(id string) error
}

// Overlay is the process-wide id → metadata table. Every operation runs
// under a single mutex; returned records are copies.
type Overlay struct {
	mu      sync.Mutex
	records map[string]models.Metadata
	store   Store // optional
}

// NewOverlay returns an empty in-memory overlay.
func NewOverlay() *Overlay {
	return &Overlay{records: make(map[string]models.Metadata)}
}

// NewPersistentOverlay hydrates an overlay from store and writes every
// subsequent mutation through to it.
func NewPersistentOverlay(store Store) (*Overlay, error) {
	loaded, err := store.LoadAll()
	if err != nil {
		return nil, fmt.Errorf("metadata: load: %w", err)
	}
	o := NewOverlay()
	for id, md := range loaded {
		o.records[id] = md.Clone()
	}
	o.store = store
	return o, nil
}

// Get returns the record for id, synthesizing defaults on first access.
// Synthesized defaults are retained in memory but not persisted.
func (o *Overlay) Get(id string) models.Metadata {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.getLocked(id).Clone()
}

func (o *Overlay) getLocked(id string) models.Metadata {
	md, ok := o.records[id]
	if !ok {
		md = models.DefaultMetadata()
		o.records[id] = md
	}
	return md
}

// Put replaces the record for id wholesale.
func (o *Overlay) Put(id string, md models.Metadata) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.putLocked(id, md.Clone())
}

func (o *Overlay) putLocked(id string, md models.Metadata) error {
	if o.store != nil {
		if err := o.store.Put(id, md); err != nil {
			return fmt.Errorf("metadata: persist %s: %w", id, err)
		}
	}
	o.records[id] = md
	return nil
}

// Update applies fn to the current record (defaults if unseen) and stores
// the result, all under one lock. If fn returns an error nothing changes.
func (o *Overlay) Update(id string, fn func(*models.Metadata) error) (models.Metadata, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	md := o.getLocked(id).Clone()
	if err := fn(&md); err != nil {
		return models.Metadata{}, err
	}
	if err := o.putLocked(id, md); err != nil {
		return models.Metadata{}, err
	}
	return md.Clone(), nil
}

// Delete evicts id. Absent ids are a no-op.
func (o *Overlay) Delete(id string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.store != nil {
		if err := o.store.Delete(id); err != nil {
			return fmt.Errorf("metadata: delete %s: %w", id, err)
		}
	}
	delete(o.records, id)
	return nil
}

// Len returns the number of records held.
func (o *Overlay) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.records)
}
