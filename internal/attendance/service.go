package attendance

import (
	"context"
	"errors"
	"log"
	"time"

	"schoolgate/internal/children"
	"schoolgate/internal/geo"
	"schoolgate/internal/qr"
)

// Sentinel errors the handlers translate into HTTP statuses.
var (
	ErrBadPayload     = errors.New("attendance: invalid QR payload")
	ErrChildNotFound  = errors.New("attendance: child not found")
	ErrNoActiveRecord = errors.New("attendance: no active check-in found")
	ErrNotModified    = errors.New("attendance: record was not modified")
)

// RecordStore is the persistence surface the service drives. *Repository
// implements it; tests substitute a fake.
type RecordStore interface {
	Create(ctx context.Context, rec Record) (string, error)
	Checkout(ctx context.Context, id string, at time.Time, staffID string, loc *Location, photoURL string) (bool, error)
	FindActiveByChild(ctx context.Context, childID string) ([]Record, error)
	FindAll(ctx context.Context, f Filter) ([]Record, error)
	GetActive(ctx context.Context) ([]Record, error)
	Summarize(ctx context.Context, from, to time.Time, childID string) (Summary, error)
	DailyCounts(ctx context.Context, from, to time.Time, childID string) ([]DailyCount, error)
	ChildCounts(ctx context.Context, from, to time.Time) ([]ChildCount, error)
	MonthlyCounts(ctx context.Context, from, to time.Time, childID string) ([]MonthlyCount, error)
}

// ChildDirectory resolves scanned child references.
type ChildDirectory interface {
	Get(ctx context.Context, id string) (*children.Child, error)
}

// GeoPolicy is the school reference point used to annotate check-out
// locations. Verification never blocks a check-out; out-of-range fixes are
// reported to the caller and logged.
type GeoPolicy struct {
	Enabled bool
	Lat     float64
	Lon     float64
	RadiusM float64
}

// Service owns the check-in/check-out state machine.
type Service struct {
	store RecordStore
	dir   ChildDirectory
	codec *qr.Codec
	geo   GeoPolicy
	now   func() time.Time
}

// NewService creates a service.
func NewService(store RecordStore, dir ChildDirectory, codec *qr.Codec, geoPolicy GeoPolicy) *Service {
	return &Service{store: store, dir: dir, codec: codec, geo: geoPolicy, now: time.Now}
}

// CheckInResult is returned on a successful check-in.
type CheckInResult struct {
	RecordID   string
	ChildID    string
	GuardianID string
	ChildName  string
	At         time.Time
}

// CheckOutResult is returned on a successful check-out.
type CheckOutResult struct {
	RecordID         string
	ChildID          string
	GuardianID       string
	ChildName        string
	At               time.Time
	LocationVerified *bool
}

// resolve decodes a QR payload and looks up the referenced child.
func (s *Service) resolve(ctx context.Context, qrData string) (*children.Child, error) {
	payload := s.codec.Parse(qrData)
	if payload == nil || payload.Kind != qr.KindChild {
		return nil, ErrBadPayload
	}
	child, err := s.dir.Get(ctx, payload.ID)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, ErrChildNotFound
	}
	return child, nil
}

// CheckIn opens a new attendance record for the scanned child. The guardian
// reference is denormalized from the resolved child; the scanning staff
// member is recorded as the check-in teacher.
func (s *Service) CheckIn(ctx context.Context, staffID, qrData string, courseID, notes *string, loc *Location) (CheckInResult, error) {
	child, err := s.resolve(ctx, qrData)
	if err != nil {
		return CheckInResult{}, err
	}
	now := s.now().UTC()
	id, err := s.store.Create(ctx, Record{
		ChildID:        child.ID,
		GuardianID:     child.GuardianID,
		CourseID:       courseID,
		CheckInStaffID: staffID,
		CheckInAt:      now,
		Notes:          notes,
		CheckInLoc:     loc,
	})
	if err != nil {
		return CheckInResult{}, err
	}
	return CheckInResult{
		RecordID:   id,
		ChildID:    child.ID,
		GuardianID: child.GuardianID,
		ChildName:  child.Name(),
		At:         now,
	}, nil
}

// CheckOut closes the child's active record. With location verification
// enabled and a location supplied, the fix is checked against the school
// reference point and the outcome reported alongside the result.
func (s *Service) CheckOut(ctx context.Context, staffID, qrData string, loc *Location, photoURL string) (CheckOutResult, error) {
	child, err := s.resolve(ctx, qrData)
	if err != nil {
		return CheckOutResult{}, err
	}
	active, err := s.store.FindActiveByChild(ctx, child.ID)
	if err != nil {
		return CheckOutResult{}, err
	}
	var open *Record
	for i := range active {
		if active[i].Status == StatusCheckedIn {
			open = &active[i]
			break
		}
	}
	if open == nil {
		return CheckOutResult{}, ErrNoActiveRecord
	}

	now := s.now().UTC()
	modified, err := s.store.Checkout(ctx, open.ID, now, staffID, loc, photoURL)
	if err != nil {
		return CheckOutResult{}, err
	}
	if !modified {
		return CheckOutResult{}, ErrNotModified
	}

	res := CheckOutResult{
		RecordID:   open.ID,
		ChildID:    child.ID,
		GuardianID: child.GuardianID,
		ChildName:  child.Name(),
		At:         now,
	}
	if s.geo.Enabled && loc != nil {
		ok := geo.IsWithinRange(loc.Lat, loc.Lon, s.geo.Lat, s.geo.Lon, s.geo.RadiusM, loc.AccuracyM)
		res.LocationVerified = &ok
		if !ok {
			log.Printf("check-out location out of range for child %s (%.1f m radius)", child.ID, s.geo.RadiusM)
		}
	}
	return res, nil
}

// Active returns every record currently checked in.
func (s *Service) Active(ctx context.Context) ([]Record, error) {
	return s.store.GetActive(ctx)
}

// ForChild returns a child's records, newest first.
func (s *Service) ForChild(ctx context.Context, childID string) ([]Record, error) {
	return s.store.FindAll(ctx, Filter{ChildID: childID})
}

// ErrBadAnalyticsType rejects unknown analytics report types.
var ErrBadAnalyticsType = errors.New("attendance: invalid analytics type")

// Analytics dispatches the admin reporting queries by type.
func (s *Service) Analytics(ctx context.Context, kind string, from, to time.Time, childID string) (any, error) {
	switch kind {
	case "summary":
		return s.store.Summarize(ctx, from, to, childID)
	case "daily":
		return s.store.DailyCounts(ctx, from, to, childID)
	case "by-child":
		return s.store.ChildCounts(ctx, from, to)
	case "monthly":
		return s.store.MonthlyCounts(ctx, from, to, childID)
	default:
		return nil, ErrBadAnalyticsType
	}
}
