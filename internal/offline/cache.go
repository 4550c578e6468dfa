package offline

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"schoolgate/internal/qr"
)

const qrListKey = "offline_qr"

// DefaultTTL bounds how long a cached code stays scannable: long enough to
// cover a school day without connectivity, short enough that a leaked or
// stale code ages out.
const DefaultTTL = 8 * time.Hour

// Entry is one cached QR code for one child.
type Entry struct {
	ChildID     string    `json:"childId"`
	ChildName   string    `json:"childName"`
	Payload     string    `json:"payload"`
	Image       []byte    `json:"image"`
	GeneratedAt time.Time `json:"generatedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Cache persists short-lived QR codes so a caregiver's device can display a
// valid code without connectivity. It is advisory and best-effort: storage
// failures are logged, never raised, and expired entries are swept on read.
type Cache struct {
	store Store
	codec *qr.Codec
	ttl   time.Duration
	now   func() time.Time
}

// NewCache builds a cache; ttl defaults to DefaultTTL.
func NewCache(store Store, codec *qr.Codec, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, codec: codec, ttl: ttl, now: time.Now}
}

// Store caches a freshly rendered QR image for a child, replacing any prior
// entry for the same child.
func (c *Cache) Store(ctx context.Context, childID, childName string, image []byte) {
	entries := c.load(ctx)
	kept := entries[:0]
	for _, e := range entries {
		if e.ChildID != childID {
			kept = append(kept, e)
		}
	}
	now := c.now()
	kept = append(kept, Entry{
		ChildID:     childID,
		ChildName:   childName,
		Payload:     c.codec.Generate(qr.KindChild, childID),
		Image:       image,
		GeneratedAt: now,
		ExpiresAt:   now.Add(c.ttl),
	})
	c.save(ctx, kept)
}

// GetAll returns the still-valid entries, dropping expired ones from storage
// along the way.
func (c *Cache) GetAll(ctx context.Context) []Entry {
	entries := c.load(ctx)
	now := c.now()
	valid := entries[:0]
	for _, e := range entries {
		if e.ExpiresAt.After(now) {
			valid = append(valid, e)
		}
	}
	if len(valid) != len(entries) {
		c.save(ctx, valid)
	}
	return valid
}

// GetForChild returns the valid entry for one child, or nil.
func (c *Cache) GetForChild(ctx context.Context, childID string) *Entry {
	for _, e := range c.GetAll(ctx) {
		if e.ChildID == childID {
			return &e
		}
	}
	return nil
}

// Remove evicts one child's entry.
func (c *Cache) Remove(ctx context.Context, childID string) {
	entries := c.load(ctx)
	kept := entries[:0]
	for _, e := range entries {
		if e.ChildID != childID {
			kept = append(kept, e)
		}
	}
	c.save(ctx, kept)
}

// Clear evicts everything.
func (c *Cache) Clear(ctx context.Context) {
	if err := c.store.Delete(ctx, qrListKey); err != nil {
		log.Printf("offline qr clear failed: %v", err)
	}
}

func (c *Cache) load(ctx context.Context) []Entry {
	data, err := c.store.Load(ctx, qrListKey)
	if err != nil {
		if err != ErrNotFound {
			log.Printf("offline qr read failed: %v", err)
		}
		return nil
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Printf("offline qr list corrupt, resetting: %v", err)
		return nil
	}
	return entries
}

func (c *Cache) save(ctx context.Context, entries []Entry) {
	if len(entries) == 0 {
		c.Clear(ctx)
		return
	}
	data, err := json.Marshal(entries)
	if err != nil {
		log.Printf("offline qr encode failed: %v", err)
		return
	}
	if err := c.store.Save(ctx, qrListKey, data); err != nil {
		log.Printf("offline qr write failed: %v", err)
	}
}
