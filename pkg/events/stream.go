// Package events publishes enrollment lifecycle events onto a Redis stream
// for downstream consumers (receipts, notifications, analytics). Publishing
// is best effort: the HTTP request that triggered the event never fails
// because the stream is down.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"learngate/internal/util"
)

const (
	TypeEnrolled        = "enrollment.created"
	TypePaymentRecorded = "enrollment.payment_recorded"
	TypeStatusChanged   = "enrollment.status_changed"
	TypeLessonCompleted = "lesson.completed"
)

// Event is one lifecycle notification.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	UserID     string    `json:"userId"`
	CourseID   string    `json:"courseId"`
	Payload    any       `json:"payload,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Stream appends events to a capped Redis stream.
type Stream struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewStream connects a publisher to the named stream. maxLen caps the
// stream size via approximate trimming; 0 keeps the default of 10000.
func NewStream(addr, password, stream string, maxLen int64) (*Stream, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("event stream redis addr required")
	}
	stream = strings.TrimSpace(stream)
	if stream == "" {
		stream = "learngate:events"
	}
	if maxLen <= 0 {
		maxLen = 10000
	}
	return &Stream{
		client: redis.NewClient(&redis.Options{Addr: addr, Password: password}),
		stream: stream,
		maxLen: maxLen,
	}, nil
}

// Publish appends one event. A nil Stream is a no-op so callers can wire
// the publisher only when Redis is configured.
func (s *Stream) Publish(eventType, userID, courseID string, payload any) {
	if s == nil {
		return
	}
	evt := Event{
		ID:         util.NewID(),
		Type:       eventType,
		UserID:     userID,
		CourseID:   courseID,
		Payload:    payload,
		OccurredAt: time.Now().UTC(),
	}
	body, err := json.Marshal(evt)
	if err != nil {
		slog.Error("marshal event", "type", eventType, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{"event": string(body)},
	}).Err()
	if err != nil {
		slog.Error("publish event", "type", eventType, "stream", s.stream, "err", err)
	}
}

// ReadFrom returns up to count events after the given stream ID ("0" for
// the beginning). Consumers track their own cursor.
func (s *Stream) ReadFrom(ctx context.Context, lastID string, count int64) ([]Event, string, error) {
	if lastID == "" {
		lastID = "0"
	}
	res, err := s.client.XRangeN(ctx, s.stream, incrementID(lastID), "+", count).Result()
	if err != nil {
		return nil, lastID, err
	}
	out := make([]Event, 0, len(res))
	for _, msg := range res {
		raw, ok := msg.Values["event"].(string)
		if !ok {
			continue
		}
		var evt Event
		if err := json.Unmarshal([]byte(raw), &evt); err != nil {
			continue
		}
		out = append(out, evt)
		lastID = msg.ID
	}
	return out, lastID, nil
}

// incrementID turns a stream ID into an exclusive lower bound.
func incrementID(id string) string {
	if id == "0" {
		return "-"
	}
	return "(" + id
}
