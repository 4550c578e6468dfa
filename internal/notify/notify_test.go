package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"schoolgate/internal/offline"
)

type fakePlatform struct {
	perm      Permission
	requested int
	sent      []string
	sendErr   error
}

func (f *fakePlatform) Permission() Permission { return f.perm }

func (f *fakePlatform) RequestPermission() Permission {
	f.requested++
	f.perm = PermissionGranted
	return f.perm
}

func (f *fakePlatform) Send(title, body string) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, title+"|"+body)
	return nil
}

func newHelper(perm Permission, enabled bool) (*Helper, *fakePlatform) {
	p := &fakePlatform{perm: perm}
	prefs := offline.NewPrefs(offline.NewMemStore())
	s := prefs.Load(context.Background())
	s.NotificationsEnabled = enabled
	prefs.Save(context.Background(), s)
	return NewHelper(p, prefs), p
}

func TestInitializeRequestsOnlyWhenUndetermined(t *testing.T) {
	h, p := newHelper(PermissionDefault, true)
	h.Initialize(context.Background())
	if p.requested != 1 {
		t.Errorf("requested %d times, want 1", p.requested)
	}

	h, p = newHelper(PermissionDenied, true)
	h.Initialize(context.Background())
	if p.requested != 0 {
		t.Errorf("requested despite denied state")
	}

	h, p = newHelper(PermissionDefault, false)
	h.Initialize(context.Background())
	if p.requested != 0 {
		t.Errorf("requested despite disabled preference")
	}
}

func TestNotifySuppressedWithoutPermission(t *testing.T) {
	h, p := newHelper(PermissionDenied, true)
	h.Notify("t", "b")
	if len(p.sent) != 0 {
		t.Errorf("sent %v despite denied permission", p.sent)
	}
}

func TestNotifySwallowsSendFailure(t *testing.T) {
	h, p := newHelper(PermissionGranted, true)
	p.sendErr = errors.New("platform down")
	h.Notify("t", "b") // must not panic or propagate
}

func TestCheckInOutTemplates(t *testing.T) {
	h, p := newHelper(PermissionGranted, true)
	at := time.Date(2026, 3, 2, 15, 4, 0, 0, time.UTC)

	h.NotifyCheckIn("Ada", at)
	h.NotifyCheckOut("Ada", at)

	if len(p.sent) != 2 {
		t.Fatalf("sent %d notifications, want 2", len(p.sent))
	}
	if !strings.Contains(p.sent[0], "Ada was checked in at 3:04 PM.") {
		t.Errorf("check-in body = %q", p.sent[0])
	}
	if !strings.Contains(p.sent[1], "Ada was checked out at 3:04 PM.") {
		t.Errorf("check-out body = %q", p.sent[1])
	}
}
