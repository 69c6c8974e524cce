package activity

import (
	"fmt"
	"strings"
	"time"
)

// Verbs of content events.
const (
	VerbFieldUpdated      = "content.field.updated"
	VerbItemAdded         = "content.item.added"
	VerbItemRemoved       = "content.item.removed"
	VerbItemMoved         = "content.item.moved"
	VerbSnapshotCommitted = "content.snapshot.committed"
	VerbSnapshotReset     = "content.snapshot.reset"
)

// Object types of content events.
const (
	ObjectField    = "content.field"
	ObjectItem     = "content.item"
	ObjectSnapshot = "content.snapshot"
)

// FieldEventInput describes a saved field edit.
type FieldEventInput struct {
	Section  string
	Item     string
	Path     string
	OldValue any
	NewValue any
	Metadata map[string]any
	// OccurredAt defaults to now when zero.
	OccurredAt time.Time
}

// ItemEventInput describes a collection change. Key is the item id for list
// sections and the slug for keyed sections.
type ItemEventInput struct {
	Section    string
	Key        string
	Index      int
	ToIndex    int
	Metadata   map[string]any
	OccurredAt time.Time
}

// SnapshotEventInput describes a commit or reset.
type SnapshotEventInput struct {
	Ref        string
	SnapshotID string
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildFieldUpdatedEvent builds the event emitted when an edit is saved.
func BuildFieldUpdatedEvent(input FieldEventInput) Event {
	meta := cloneMap(input.Metadata)
	meta = setMeta(meta, "section", input.Section)
	meta = setMeta(meta, "path", input.Path)
	meta = setMeta(meta, "item", input.Item)
	if input.OldValue != nil {
		meta = setMeta(meta, "old_value", input.OldValue)
	}
	if input.NewValue != nil {
		meta = setMeta(meta, "new_value", input.NewValue)
	}
	objectID := input.Section
	if input.Item != "" {
		objectID += "/" + input.Item
	}
	objectID += "." + input.Path
	return Event{
		Verb:       VerbFieldUpdated,
		ObjectType: ObjectField,
		ObjectID:   strings.Trim(objectID, "."),
		Metadata:   meta,
		OccurredAt: input.OccurredAt,
	}
}

// BuildItemAddedEvent builds the event emitted when a list item or keyed
// entry is created.
func BuildItemAddedEvent(input ItemEventInput) Event {
	return buildItemEvent(VerbItemAdded, input, false)
}

// BuildItemRemovedEvent builds the event emitted when a list item or keyed
// entry is deleted.
func BuildItemRemovedEvent(input ItemEventInput) Event {
	return buildItemEvent(VerbItemRemoved, input, false)
}

// BuildItemMovedEvent builds the event emitted when a list item is reordered.
func BuildItemMovedEvent(input ItemEventInput) Event {
	return buildItemEvent(VerbItemMoved, input, true)
}

func buildItemEvent(verb string, input ItemEventInput, moved bool) Event {
	meta := cloneMap(input.Metadata)
	meta = setMeta(meta, "section", input.Section)
	meta = setMeta(meta, "index", input.Index)
	if moved {
		meta = setMeta(meta, "to_index", input.ToIndex)
	}
	key := strings.TrimSpace(input.Key)
	if key == "" {
		key = fmt.Sprint(input.Index)
	}
	return Event{
		Verb:       verb,
		ObjectType: ObjectItem,
		ObjectID:   input.Section + "/" + key,
		Metadata:   meta,
		OccurredAt: input.OccurredAt,
	}
}

// BuildCommittedEvent builds the event emitted after a successful commit.
func BuildCommittedEvent(input SnapshotEventInput) Event {
	return buildSnapshotEvent(VerbSnapshotCommitted, input)
}

// BuildResetEvent builds the event emitted when the working document is
// discarded.
func BuildResetEvent(input SnapshotEventInput) Event {
	return buildSnapshotEvent(VerbSnapshotReset, input)
}

func buildSnapshotEvent(verb string, input SnapshotEventInput) Event {
	meta := cloneMap(input.Metadata)
	meta = setMeta(meta, "ref", input.Ref)
	if input.SnapshotID != "" {
		meta = setMeta(meta, "snapshot_id", input.SnapshotID)
	}
	objectID := strings.TrimSpace(input.SnapshotID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.Ref)
	}
	if objectID == "" {
		objectID = ObjectSnapshot
	}
	return Event{
		Verb:       verb,
		ObjectType: ObjectSnapshot,
		ObjectID:   objectID,
		Metadata:   meta,
		OccurredAt: input.OccurredAt,
	}
}

func setMeta(meta map[string]any, key string, value any) map[string]any {
	if s, ok := value.(string); ok && s == "" {
		return meta
	}
	if meta == nil {
		meta = map[string]any{}
	}
	meta[key] = value
	return meta
}
