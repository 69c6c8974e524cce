package usersink_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-content/pkg/activity"
	"github.com/goliatone/go-content/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	userID := uuid.New()
	tenantID := uuid.New()

	event := activity.BuildFieldUpdatedEvent(activity.FieldEventInput{
		Section:    "products",
		Item:       "1",
		Path:       "available",
		OldValue:   true,
		NewValue:   false,
		OccurredAt: now,
	})
	event.ActorID = actorID.String()
	event.UserID = userID.String()
	event.TenantID = tenantID.String()
	event.Channel = "content"

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID || record.UserID != userID || record.TenantID != tenantID {
		t.Fatalf("unexpected ids: %+v", record)
	}
	if record.Verb != activity.VerbFieldUpdated || record.ObjectType != activity.ObjectField || record.ObjectID != "products/1.available" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "content" {
		t.Fatalf("expected channel content got %q", record.Channel)
	}
	if !record.OccurredAt.Equal(now) {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
	if record.Data["path"] != "available" || record.Data["new_value"] != false {
		t.Fatalf("expected metadata passthrough got %v", record.Data)
	}
}

func TestHookNotifySkipsIncompleteEvent(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	_ = hook.Notify(context.Background(), activity.Event{Verb: activity.VerbItemAdded})

	if len(sink.records) != 0 {
		t.Fatalf("expected no records for incomplete event, got %d", len(sink.records))
	}
}

func TestHookNotifyNonUUIDActor(t *testing.T) {
	sink := &recordingSink{}
	event := activity.Event{
		Verb:       activity.VerbSnapshotCommitted,
		ObjectType: activity.ObjectSnapshot,
		ObjectID:   "snap-1",
		ActorID:    "cli",
	}

	if err := (usersink.Hook{Sink: sink}).Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if sink.records[0].ActorID != uuid.Nil {
		t.Fatalf("expected nil uuid for non-uuid actor")
	}
	if _, ok := sink.records[0].Data["actor_id"]; ok {
		t.Fatalf("raw id must not be kept by default")
	}

	if err := (usersink.Hook{Sink: sink, KeepRawIDs: true}).Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}
	if sink.records[1].Data["actor_id"] != "cli" {
		t.Fatalf("expected raw actor id in data, got %v", sink.records[1].Data)
	}
	if sink.records[1].OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be defaulted")
	}
}

func TestHookWithoutSink(t *testing.T) {
	if err := (usersink.Hook{}).Notify(context.Background(), activity.Event{Verb: "a", ObjectType: "b", ObjectID: "c"}); err != nil {
		t.Fatalf("expected nil error without sink, got %v", err)
	}
}
