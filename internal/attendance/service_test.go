package attendance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"schoolgate/internal/children"
	"schoolgate/internal/qr"
)

// fakeStore is an in-memory RecordStore enforcing the same invariants as the
// Postgres repository: one active record per child, conditional checkout.
type fakeStore struct {
	records []Record
	failAll error
}

func (f *fakeStore) Create(_ context.Context, rec Record) (string, error) {
	if f.failAll != nil {
		return "", f.failAll
	}
	for _, r := range f.records {
		if r.ChildID == rec.ChildID && r.Status == StatusCheckedIn {
			return "", ErrAlreadyCheckedIn
		}
	}
	rec.ID = uuid.NewString()
	rec.Status = StatusCheckedIn
	f.records = append(f.records, rec)
	return rec.ID, nil
}

func (f *fakeStore) Checkout(_ context.Context, id string, at time.Time, staffID string, loc *Location, photoURL string) (bool, error) {
	if f.failAll != nil {
		return false, f.failAll
	}
	for i := range f.records {
		if f.records[i].ID == id && f.records[i].Status == StatusCheckedIn {
			f.records[i].Status = StatusCompleted
			f.records[i].CheckOutAt = &at
			f.records[i].CheckOutStaffID = &staffID
			f.records[i].CheckOutLoc = loc
			if photoURL != "" {
				f.records[i].CheckOutPhotoURL = &photoURL
			}
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) FindActiveByChild(_ context.Context, childID string) ([]Record, error) {
	if f.failAll != nil {
		return nil, f.failAll
	}
	var res []Record
	for _, r := range f.records {
		if r.ChildID == childID && r.Status == StatusCheckedIn {
			res = append(res, r)
		}
	}
	return res, nil
}

func (f *fakeStore) FindAll(_ context.Context, filter Filter) ([]Record, error) {
	var res []Record
	for _, r := range f.records {
		if filter.ChildID != "" && r.ChildID != filter.ChildID {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		res = append(res, r)
	}
	return res, nil
}

func (f *fakeStore) GetActive(_ context.Context) ([]Record, error) {
	var res []Record
	for _, r := range f.records {
		if r.Status == StatusCheckedIn {
			res = append(res, r)
		}
	}
	return res, nil
}

func (f *fakeStore) Summarize(context.Context, time.Time, time.Time, string) (Summary, error) {
	return Summary{}, nil
}
func (f *fakeStore) DailyCounts(context.Context, time.Time, time.Time, string) ([]DailyCount, error) {
	return nil, nil
}
func (f *fakeStore) ChildCounts(context.Context, time.Time, time.Time) ([]ChildCount, error) {
	return nil, nil
}
func (f *fakeStore) MonthlyCounts(context.Context, time.Time, time.Time, string) ([]MonthlyCount, error) {
	return nil, nil
}

type fakeDirectory map[string]children.Child

func (d fakeDirectory) Get(_ context.Context, id string) (*children.Child, error) {
	c, ok := d[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func newTestService(store RecordStore) *Service {
	dir := fakeDirectory{
		"c1": {ID: "c1", FirstName: "Ada", LastName: "Byron", GuardianID: "g1"},
	}
	return NewService(store, dir, qr.NewCodec("", 0), GeoPolicy{})
}

func validQR(childID string) string {
	return qr.NewCodec("", 0).Generate(qr.KindChild, childID)
}

func TestCheckInCreatesActiveRecord(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	svc := newTestService(store)

	res, err := svc.CheckIn(ctx, "staff-1", validQR("c1"), nil, nil, nil)
	if err != nil {
		t.Fatalf("CheckIn: %v", err)
	}
	if res.RecordID == "" || res.ChildName != "Ada Byron" {
		t.Errorf("result = %+v", res)
	}

	active, _ := store.FindActiveByChild(ctx, "c1")
	if len(active) != 1 {
		t.Fatalf("active records = %d, want 1", len(active))
	}
	rec := active[0]
	if rec.Status != StatusCheckedIn || rec.CheckOutAt != nil {
		t.Errorf("record = %+v", rec)
	}
	if rec.GuardianID != "g1" {
		t.Errorf("guardian not denormalized from child: %q", rec.GuardianID)
	}
	if rec.CheckInStaffID != "staff-1" {
		t.Errorf("check-in staff = %q", rec.CheckInStaffID)
	}
}

func TestCheckInRejectsBadPayload(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	svc := newTestService(store)

	for _, raw := range []string{"", "CHILD:c1", "COURSE:c1:1690000000000", "CHILD:c1:nope"} {
		if _, err := svc.CheckIn(ctx, "staff-1", raw, nil, nil, nil); !errors.Is(err, ErrBadPayload) {
			t.Errorf("CheckIn(%q) err = %v, want ErrBadPayload", raw, err)
		}
	}
	if len(store.records) != 0 {
		t.Error("store touched by rejected check-in")
	}
}

func TestCheckInUnknownChild(t *testing.T) {
	svc := newTestService(&fakeStore{})
	_, err := svc.CheckIn(context.Background(), "staff-1", "CHILD:60f1a2:1690000000000", nil, nil, nil)
	if !errors.Is(err, ErrChildNotFound) {
		t.Errorf("err = %v, want ErrChildNotFound", err)
	}
}

func TestCheckInDuplicateActiveFailsLoudly(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&fakeStore{})

	if _, err := svc.CheckIn(ctx, "staff-1", validQR("c1"), nil, nil, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CheckIn(ctx, "staff-2", validQR("c1"), nil, nil, nil); !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Errorf("second check-in err = %v, want ErrAlreadyCheckedIn", err)
	}
}

func TestCheckOutLifecycle(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	svc := newTestService(store)

	in, err := svc.CheckIn(ctx, "staff-1", validQR("c1"), nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	out, err := svc.CheckOut(ctx, "staff-2", validQR("c1"), nil, "")
	if err != nil {
		t.Fatalf("CheckOut: %v", err)
	}
	if out.RecordID != in.RecordID {
		t.Errorf("checked out %q, want %q", out.RecordID, in.RecordID)
	}

	active, _ := store.FindActiveByChild(ctx, "c1")
	if len(active) != 0 {
		t.Errorf("active records after checkout = %d, want 0", len(active))
	}
	all, _ := store.FindAll(ctx, Filter{ChildID: "c1"})
	rec := all[0]
	if rec.Status != StatusCompleted || rec.CheckOutAt == nil || rec.CheckOutStaffID == nil {
		t.Errorf("record after checkout = %+v", rec)
	}
	if *rec.CheckOutStaffID != "staff-2" {
		t.Errorf("check-out staff = %q", *rec.CheckOutStaffID)
	}
}

func TestCheckOutRequiresActiveRecord(t *testing.T) {
	svc := newTestService(&fakeStore{})
	_, err := svc.CheckOut(context.Background(), "staff-1", validQR("c1"), nil, "")
	if !errors.Is(err, ErrNoActiveRecord) {
		t.Errorf("err = %v, want ErrNoActiveRecord", err)
	}
}

func TestCheckOutTwiceFails(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(&fakeStore{})

	if _, err := svc.CheckIn(ctx, "staff-1", validQR("c1"), nil, nil, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CheckOut(ctx, "staff-1", validQR("c1"), nil, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CheckOut(ctx, "staff-1", validQR("c1"), nil, ""); !errors.Is(err, ErrNoActiveRecord) {
		t.Errorf("double check-out err = %v, want ErrNoActiveRecord", err)
	}
}

func TestCheckOutLocationVerification(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{}
	dir := fakeDirectory{"c1": {ID: "c1", FirstName: "Ada", GuardianID: "g1"}}
	svc := NewService(store, dir, qr.NewCodec("", 0), GeoPolicy{
		Enabled: true, Lat: 48.8566, Lon: 2.3522, RadiusM: 150,
	})

	if _, err := svc.CheckIn(ctx, "staff-1", validQR("c1"), nil, nil, nil); err != nil {
		t.Fatal(err)
	}
	near := &Location{Lat: 48.8570, Lon: 2.3522, AccuracyM: 10}
	out, err := svc.CheckOut(ctx, "staff-1", validQR("c1"), near, "")
	if err != nil {
		t.Fatal(err)
	}
	if out.LocationVerified == nil || !*out.LocationVerified {
		t.Errorf("near fix not verified: %+v", out.LocationVerified)
	}

	if _, err := svc.CheckIn(ctx, "staff-1", validQR("c1"), nil, nil, nil); err != nil {
		t.Fatal(err)
	}
	far := &Location{Lat: 48.9, Lon: 2.3522, AccuracyM: 10}
	out, err = svc.CheckOut(ctx, "staff-1", validQR("c1"), far, "")
	if err != nil {
		t.Fatalf("out-of-range fix must not block check-out: %v", err)
	}
	if out.LocationVerified == nil || *out.LocationVerified {
		t.Errorf("far fix verified: %+v", out.LocationVerified)
	}
}

func TestStoreErrorsSurfaceUnchanged(t *testing.T) {
	boom := errors.New("connection reset")
	svc := newTestService(&fakeStore{failAll: boom})
	if _, err := svc.CheckIn(context.Background(), "s", validQR("c1"), nil, nil, nil); !errors.Is(err, boom) {
		t.Errorf("err = %v, want the raw store error", err)
	}
}

func TestAnalyticsRejectsUnknownType(t *testing.T) {
	svc := newTestService(&fakeStore{})
	_, err := svc.Analytics(context.Background(), "weekly", time.Time{}, time.Time{}, "")
	if !errors.Is(err, ErrBadAnalyticsType) {
		t.Errorf("err = %v, want ErrBadAnalyticsType", err)
	}
}
