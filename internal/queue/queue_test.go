package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	msg, err := NewAttendanceMessage(TypeCheckIn, AttendanceEvent{
		RecordID:   "r1",
		ChildID:    "c1",
		ChildName:  "Ada",
		GuardianID: "g1",
		At:         time.Date(2026, 3, 2, 8, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := q.Publish(ctx, msg); err != nil {
		t.Fatal(err)
	}

	out, err := q.Consume(ctx)
	if err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-out:
		if got.Type != TypeCheckIn {
			t.Errorf("type = %q", got.Type)
		}
		evt, err := DecodeAttendanceEvent(got)
		if err != nil {
			t.Fatal(err)
		}
		if evt.ChildName != "Ada" || evt.GuardianID != "g1" {
			t.Errorf("event = %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatal("no message received")
	}
}

func TestSerializeBodyMayContainDelimiter(t *testing.T) {
	msg := Message{Type: TypeCheckOut, Body: []byte(`{"note":"a|b"}`)}
	got, err := deserialize(serialize(msg))
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != msg.Type || string(got.Body) != string(msg.Body) {
		t.Errorf("round trip = %+v", got)
	}
}

func TestPublishHonorsContext(t *testing.T) {
	q := NewInMemory(0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := q.Publish(ctx, Message{Type: TypeCheckIn}); err == nil {
		t.Error("publish to a full queue should fail once the context ends")
	}
}
