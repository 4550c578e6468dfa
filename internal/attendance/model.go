package attendance

import "time"

// Status is the attendance record lifecycle state. checked-in is set at
// creation; completed is terminal and set by checkout only.
type Status string

const (
	StatusCheckedIn Status = "checked-in"
	StatusCompleted Status = "completed"
)

// Location is a position snapshot captured at a check event.
type Location struct {
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	AccuracyM float64 `json:"accuracyM"`
}

// Record is one supervised session for one child.
type Record struct {
	ID               string     `json:"id"`
	ChildID          string     `json:"childId"`
	GuardianID       string     `json:"guardianId"`
	CourseID         *string    `json:"courseId,omitempty"`
	CheckInStaffID   string     `json:"checkInStaffId"`
	CheckOutStaffID  *string    `json:"checkOutStaffId,omitempty"`
	CheckInAt        time.Time  `json:"checkInAt"`
	CheckOutAt       *time.Time `json:"checkOutAt,omitempty"`
	Status           Status     `json:"status"`
	Notes            *string    `json:"notes,omitempty"`
	CheckInLoc       *Location  `json:"checkInLocation,omitempty"`
	CheckOutLoc      *Location  `json:"checkOutLocation,omitempty"`
	CheckInPhotoURL  *string    `json:"checkInPhotoUrl,omitempty"`
	CheckOutPhotoURL *string    `json:"checkOutPhotoUrl,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

// Filter narrows FindAll queries.
type Filter struct {
	ChildID string
	Status  Status
	From    time.Time
	To      time.Time
	Limit   int
	Offset  int
}

// Summary is the analytics roll-up over a date range.
type Summary struct {
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	Active         int     `json:"active"`
	AvgDurationMin float64 `json:"avgDurationMinutes"`
}

// DailyCount is one day's check-in/check-out totals.
type DailyCount struct {
	Date      string `json:"date"`
	CheckIns  int    `json:"checkIns"`
	CheckOuts int    `json:"checkOuts"`
}

// ChildCount is one child's totals over a range.
type ChildCount struct {
	ChildID      string  `json:"childId"`
	Sessions     int     `json:"sessions"`
	TotalMinutes float64 `json:"totalMinutes"`
}

// MonthlyCount is one month's session total.
type MonthlyCount struct {
	Month    string `json:"month"`
	Sessions int    `json:"sessions"`
}
