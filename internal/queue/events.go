package queue

import (
	"encoding/json"
	"time"
)

// Message types carried on the queue.
const (
	TypeCheckIn  = "checkin"
	TypeCheckOut = "checkout"
)

// AttendanceEvent is the payload the API publishes after a successful
// transition; the worker turns it into a guardian notification.
type AttendanceEvent struct {
	RecordID   string    `json:"recordId"`
	ChildID    string    `json:"childId"`
	ChildName  string    `json:"childName"`
	GuardianID string    `json:"guardianId"`
	At         time.Time `json:"at"`
}

// NewAttendanceMessage encodes an event for publishing.
func NewAttendanceMessage(msgType string, evt AttendanceEvent) (Message, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return Message{}, err
	}
	return Message{Type: msgType, Body: body}, nil
}

// DecodeAttendanceEvent parses a message body back into an event.
func DecodeAttendanceEvent(msg Message) (AttendanceEvent, error) {
	var evt AttendanceEvent
	err := json.Unmarshal(msg.Body, &evt)
	return evt, err
}
