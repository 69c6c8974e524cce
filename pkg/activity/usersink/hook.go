// Package usersink forwards content activity to a go-users ActivitySink.
package usersink

import (
	"context"
	"strings"

	"github.com/goliatone/go-content/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook adapts activity events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
	// KeepRawIDs stores actor, user and tenant ids that are not UUIDs in the
	// record data instead of dropping them.
	KeepRawIDs bool
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := activity.NormalizeEvent(event)
	if !normalized.Complete() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	data := copyData(normalized.Metadata)
	record := usertypes.ActivityRecord{
		ActorID:    h.parseID(normalized.ActorID, "actor_id", &data),
		UserID:     h.parseID(normalized.UserID, "user_id", &data),
		TenantID:   h.parseID(normalized.TenantID, "tenant_id", &data),
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		OccurredAt: normalized.OccurredAt,
	}
	record.Data = data
	return h.Sink.Log(ctx, record)
}

func (h Hook) parseID(input, key string, data *map[string]any) uuid.UUID {
	value := strings.TrimSpace(input)
	if value == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(value)
	if err == nil {
		return id
	}
	if h.KeepRawIDs {
		if *data == nil {
			*data = map[string]any{}
		}
		(*data)[key] = value
	}
	return uuid.Nil
}

func copyData(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
