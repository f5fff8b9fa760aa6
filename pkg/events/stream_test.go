package events

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestPublishAndRead(t *testing.T) {
	r := miniredis.RunT(t)
	stream, err := NewStream(r.Addr(), "", "test:events", 100)
	if err != nil {
		t.Fatalf("new stream: %v", err)
	}

	stream.Publish(TypeEnrolled, "user-1", "course-1", nil)
	stream.Publish(TypePaymentRecorded, "user-1", "course-1", map[string]string{"outcome": "paid"})

	got, lastID, err := stream.ReadFrom(context.Background(), "0", 10)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].Type != TypeEnrolled || got[1].Type != TypePaymentRecorded {
		t.Fatalf("event order: %+v", got)
	}
	if got[0].UserID != "user-1" || got[0].CourseID != "course-1" {
		t.Fatalf("event fields: %+v", got[0])
	}

	// Cursor resumes after the last delivered event.
	stream.Publish(TypeStatusChanged, "user-1", "course-1", nil)
	more, _, err := stream.ReadFrom(context.Background(), lastID, 10)
	if err != nil {
		t.Fatalf("read more: %v", err)
	}
	if len(more) != 1 || more[0].Type != TypeStatusChanged {
		t.Fatalf("resume read: %+v", more)
	}
}

func TestPublishNilStreamIsNoop(t *testing.T) {
	var stream *Stream
	stream.Publish(TypeEnrolled, "user-1", "course-1", nil)
}

func TestNewStreamRequiresAddr(t *testing.T) {
	if _, err := NewStream("", "", "test:events", 0); err == nil {
		t.Fatal("expected error for empty addr")
	}
}

func TestPublishSurvivesRedisOutage(t *testing.T) {
	r := miniredis.RunT(t)
	stream, err := NewStream(r.Addr(), "", "test:events", 0)
	if err != nil {
		t.Fatalf("new stream: %v", err)
	}
	r.Close()
	// Must not panic or block the caller.
	stream.Publish(TypeEnrolled, "user-1", "course-1", nil)
}
