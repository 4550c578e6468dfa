package offline

import (
	"context"
	"testing"
	"time"

	"schoolgate/internal/qr"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	return NewCache(NewMemStore(), qr.NewCodec("", 0), DefaultTTL)
}

func TestCacheStoreAndGet(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	c.Store(ctx, "child-1", "Ada", []byte("png-bytes"))

	e := c.GetForChild(ctx, "child-1")
	if e == nil {
		t.Fatal("GetForChild = nil after Store")
	}
	if e.ChildName != "Ada" {
		t.Errorf("name = %q", e.ChildName)
	}
	if p := qr.NewCodec("", 0).Parse(e.Payload); p == nil || p.ID != "child-1" {
		t.Errorf("cached payload %q does not decode to the child", e.Payload)
	}
	if !e.ExpiresAt.Equal(e.GeneratedAt.Add(DefaultTTL)) {
		t.Errorf("expiry window = %s", e.ExpiresAt.Sub(e.GeneratedAt))
	}
	if c.GetForChild(ctx, "other") != nil {
		t.Error("unexpected entry for other child")
	}
}

func TestCacheSingleEntryPerChild(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	c.Store(ctx, "child-1", "Ada", []byte("first"))
	c.Store(ctx, "child-1", "Ada", []byte("second"))

	all := c.GetAll(ctx)
	if len(all) != 1 {
		t.Fatalf("len(GetAll) = %d, want 1", len(all))
	}
	if string(all[0].Image) != "second" {
		t.Errorf("kept image = %q, want the most recent", all[0].Image)
	}
}

func TestCacheExpirySweep(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)
	t0 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return t0 }

	c.Store(ctx, "child-1", "Ada", []byte("png"))

	c.now = func() time.Time { return t0.Add(7*time.Hour + 59*time.Minute) }
	if c.GetForChild(ctx, "child-1") == nil {
		t.Fatal("entry missing just before expiry")
	}

	c.now = func() time.Time { return t0.Add(8*time.Hour + time.Minute) }
	if c.GetForChild(ctx, "child-1") != nil {
		t.Fatal("entry present after expiry")
	}
	// the sweep is self-healing: the expired entry is gone from storage too
	if got := len(c.load(ctx)); got != 0 {
		t.Errorf("storage still holds %d entries after sweep", got)
	}
}

func TestCacheRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	c.Store(ctx, "a", "A", nil)
	c.Store(ctx, "b", "B", nil)

	c.Remove(ctx, "a")
	if c.GetForChild(ctx, "a") != nil {
		t.Error("entry a survived Remove")
	}
	if c.GetForChild(ctx, "b") == nil {
		t.Error("entry b lost by Remove(a)")
	}

	c.Clear(ctx)
	if got := len(c.GetAll(ctx)); got != 0 {
		t.Errorf("len(GetAll) after Clear = %d", got)
	}
}

func TestCacheNeverPanicsOnCorruptStorage(t *testing.T) {
	ctx := context.Background()
	store := NewMemStore()
	_ = store.Save(ctx, qrListKey, []byte("{not json"))
	c := NewCache(store, qr.NewCodec("", 0), 0)

	if got := c.GetAll(ctx); len(got) != 0 {
		t.Errorf("GetAll on corrupt storage = %v", got)
	}
	c.Store(ctx, "child-1", "Ada", nil)
	if c.GetForChild(ctx, "child-1") == nil {
		t.Error("cache did not recover from corrupt list")
	}
}

func TestPrefsRoundTrip(t *testing.T) {
	ctx := context.Background()
	p := NewPrefs(NewMemStore())

	s := p.Load(ctx)
	if !s.NotificationsEnabled {
		t.Error("default notifications should be enabled")
	}
	if s.LocationVerifyEnabled {
		t.Error("default location verify should be disabled")
	}

	lat, lon := 48.8566, 2.3522
	s.LocationVerifyEnabled = true
	s.SchoolLat, s.SchoolLon = &lat, &lon
	p.Save(ctx, s)

	got := p.Load(ctx)
	if !got.LocationVerifyEnabled || got.SchoolLat == nil || *got.SchoolLat != lat {
		t.Errorf("loaded settings = %+v", got)
	}
}

func TestPhotosPutGetDelete(t *testing.T) {
	ctx := context.Background()
	ph := NewPhotos(NewMemStore())

	id, err := ph.Put(ctx, "child-1", []byte("jpeg"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	data, err := ph.Get(ctx, id)
	if err != nil || string(data) != "jpeg" {
		t.Fatalf("Get = %q, %v", data, err)
	}
	refs, err := ph.List(ctx)
	if err != nil || len(refs) != 1 || refs[0].ChildID != "child-1" {
		t.Fatalf("List = %+v, %v", refs, err)
	}
	if err := ph.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if refs, _ := ph.List(ctx); len(refs) != 0 {
		t.Errorf("index not empty after delete: %+v", refs)
	}
	if _, err := ph.Get(ctx, id); err != ErrNotFound {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
}
