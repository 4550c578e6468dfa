package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const photoIndexKey = "photo_index"

// PhotoRef is one entry in the photo index; the blob itself is stored under
// its own key so the index stays small.
type PhotoRef struct {
	ID      string    `json:"id"`
	ChildID string    `json:"childId"`
	TakenAt time.Time `json:"takenAt"`
	Bytes   int       `json:"bytes"`
}

// Photos stores check-in/check-out photos taken while offline, pending
// upload. Unlike the QR cache, callers do care whether a photo was actually
// kept, so these operations return errors.
type Photos struct {
	store Store
	now   func() time.Time
}

// NewPhotos builds a photo store.
func NewPhotos(store Store) *Photos { return &Photos{store: store, now: time.Now} }

func photoKey(id string) string { return "photo:" + id }

// Put stores a photo blob and indexes it, returning the generated id.
func (p *Photos) Put(ctx context.Context, childID string, data []byte) (string, error) {
	id := uuid.NewString()
	if err := p.store.Save(ctx, photoKey(id), data); err != nil {
		return "", fmt.Errorf("photo save: %w", err)
	}
	index, err := p.List(ctx)
	if err != nil {
		return "", err
	}
	index = append(index, PhotoRef{ID: id, ChildID: childID, TakenAt: p.now(), Bytes: len(data)})
	if err := p.saveIndex(ctx, index); err != nil {
		return "", err
	}
	return id, nil
}

// Get returns a photo blob by id.
func (p *Photos) Get(ctx context.Context, id string) ([]byte, error) {
	return p.store.Load(ctx, photoKey(id))
}

// Delete removes a photo blob and its index entry.
func (p *Photos) Delete(ctx context.Context, id string) error {
	if err := p.store.Delete(ctx, photoKey(id)); err != nil {
		return err
	}
	index, err := p.List(ctx)
	if err != nil {
		return err
	}
	kept := index[:0]
	for _, ref := range index {
		if ref.ID != id {
			kept = append(kept, ref)
		}
	}
	return p.saveIndex(ctx, kept)
}

// List returns the photo index.
func (p *Photos) List(ctx context.Context) ([]PhotoRef, error) {
	data, err := p.store.Load(ctx, photoIndexKey)
	if err == ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var index []PhotoRef
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("photo index corrupt: %w", err)
	}
	return index, nil
}

func (p *Photos) saveIndex(ctx context.Context, index []PhotoRef) error {
	if len(index) == 0 {
		return p.store.Delete(ctx, photoIndexKey)
	}
	data, err := json.Marshal(index)
	if err != nil {
		return err
	}
	return p.store.Save(ctx, photoIndexKey, data)
}
