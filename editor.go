package content

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/goliatone/go-content/pkg/activity"
)

type editorConfig struct {
	registry    *Registry
	gateway     *Gateway
	ids         IDGenerator
	emitter     *activity.Emitter
	logger      Logger
	sessionOpts []SessionOption
	initial     *Document
}

// Option configures an Editor.
type Option func(*editorConfig)

// WithRegistry sets the section registry. Defaults to DefaultRegistry.
func WithRegistry(registry *Registry) Option {
	return func(cfg *editorConfig) {
		cfg.registry = registry
	}
}

// WithGateway enables Commit, Reset and ResetToDefaults against durable
// storage. The initial document is loaded through it.
func WithGateway(gateway *Gateway) Option {
	return func(cfg *editorConfig) {
		cfg.gateway = gateway
	}
}

// WithIDGenerator sets the generator used for new items.
func WithIDGenerator(ids IDGenerator) Option {
	return func(cfg *editorConfig) {
		cfg.ids = ids
	}
}

// WithActivity sets the emitter notified of every change.
func WithActivity(emitter *activity.Emitter) Option {
	return func(cfg *editorConfig) {
		cfg.emitter = emitter
	}
}

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(cfg *editorConfig) {
		cfg.logger = logger
	}
}

// WithSessionOptions configures the editor's edit session.
func WithSessionOptions(opts ...SessionOption) Option {
	return func(cfg *editorConfig) {
		cfg.sessionOpts = append(cfg.sessionOpts, opts...)
	}
}

// WithDocument sets the initial document of an editor without a gateway.
func WithDocument(doc Document) Option {
	return func(cfg *editorConfig) {
		cfg.initial = &doc
	}
}

// Editor is the entry point for editing a content document: field edits go
// through a single Session, collection changes are applied directly and the
// result can be committed to or reset from durable storage. All methods are
// safe for concurrent use; mutations are serialized.
type Editor struct {
	mu       sync.Mutex
	registry *Registry
	docs     *DocumentStore
	session  *Session
	gateway  *Gateway
	ids      IDGenerator
	emitter  *activity.Emitter
	logger   Logger
}

// NewEditor builds an editor. With a gateway the initial document is loaded
// from storage; otherwise the WithDocument document or the built-in default
// is used.
func NewEditor(ctx context.Context, opts ...Option) (*Editor, error) {
	cfg := editorConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.registry == nil {
		cfg.registry = DefaultRegistry()
	}
	if cfg.ids == nil {
		cfg.ids = NewClockIDs()
	}

	var initial Document
	switch {
	case cfg.gateway != nil:
		doc, err := cfg.gateway.Load(ctx)
		if err != nil {
			return nil, err
		}
		initial = doc
	case cfg.initial != nil:
		initial = *cfg.initial
	default:
		initial = DefaultDocument(cfg.registry)
	}
	if initial.IsZero() {
		initial = EmptyDocument(cfg.registry)
	}

	docs := NewDocumentStore(initial)
	return &Editor{
		registry: cfg.registry,
		docs:     docs,
		session:  NewSession(docs, cfg.sessionOpts...),
		gateway:  cfg.gateway,
		ids:      cfg.ids,
		emitter:  cfg.emitter,
		logger:   loggerOrNoop(cfg.logger),
	}, nil
}

// Registry returns the section registry.
func (e *Editor) Registry() *Registry {
	return e.registry
}

// GetDocument returns the working document including saved edits.
func (e *Editor) GetDocument() Document {
	return e.docs.Document()
}

// GetEditingField returns the field under edit, if any.
func (e *Editor) GetEditingField() (FieldRef, bool) {
	return e.session.Field()
}

// EditState returns the lifecycle state of the edit session.
func (e *Editor) EditState() State {
	return e.session.State()
}

// Staged returns the staged value of the open edit.
func (e *Editor) Staged() (any, bool) {
	return e.session.Staged()
}

// Read returns one field of the working document.
func (e *Editor) Read(section, path string, item Item) (any, error) {
	return Read(e.docs.Document(), section, path, item)
}

// Dirty reports whether the working document differs from the last loaded or
// committed one.
func (e *Editor) Dirty() bool {
	return e.docs.Dirty()
}

// Subscribe registers fn for every new working document.
func (e *Editor) Subscribe(fn func(Document)) func() {
	return e.docs.Subscribe(fn)
}

// BeginEdit opens an edit on one field.
func (e *Editor) BeginEdit(section, path string, item Item) error {
	return e.session.Begin(section, path, item)
}

// Stage stages a typed value for the open edit.
func (e *Editor) Stage(value any) error {
	return e.session.Stage(value)
}

// StageText stages free text for the open edit.
func (e *Editor) StageText(text string) error {
	return e.session.StageText(text)
}

// StageBool stages a boolean for the open edit.
func (e *Editor) StageBool(value bool) error {
	return e.session.StageBool(value)
}

// StageImage encodes data and stages the reference for the open edit. The
// editor lock is not held while encoding.
func (e *Editor) StageImage(ctx context.Context, data []byte) error {
	return e.session.StageImage(ctx, data)
}

// CancelEdit discards the open edit.
func (e *Editor) CancelEdit() {
	e.session.Cancel()
}

// SaveEdit applies the open edit to the working document.
func (e *Editor) SaveEdit(ctx context.Context) (Document, error) {
	release := e.docs.hold()
	defer release()
	e.mu.Lock()
	defer e.mu.Unlock()

	field, open := e.session.Field()
	staged, _ := e.session.Staged()
	before := e.docs.Document()
	doc, err := e.session.Save()
	if err != nil || !open || Same(before, doc) {
		return doc, err
	}

	old, _ := Read(before, field.Section, field.Path, field.Item)
	logEvent(e.logger, LevelInfo, "field saved", nil, map[string]any{
		"section": field.Section,
		"path":    field.Path,
		"item":    e.itemKey(before, field.Section, field.Item),
	})
	e.emit(ctx, activity.BuildFieldUpdatedEvent(activity.FieldEventInput{
		Section:  field.Section,
		Item:     e.itemKey(before, field.Section, field.Item),
		Path:     field.Path,
		OldValue: old,
		NewValue: staged,
	}))
	return doc, nil
}

// Edit is BeginEdit, Stage and SaveEdit in one step. The edit is cancelled
// when staging or saving fails.
func (e *Editor) Edit(ctx context.Context, section, path string, item Item, value any) (Document, error) {
	if err := e.BeginEdit(section, path, item); err != nil {
		return e.GetDocument(), err
	}
	var err error
	if text, ok := value.(string); ok {
		err = e.StageText(text)
	} else {
		err = e.Stage(value)
	}
	if err != nil {
		e.CancelEdit()
		return e.GetDocument(), err
	}
	doc, err := e.SaveEdit(ctx)
	if err != nil {
		e.CancelEdit()
	}
	return doc, err
}

// AddItem appends a template item to a list section.
func (e *Editor) AddItem(ctx context.Context, section string) (Document, error) {
	return e.AddItemWith(ctx, section, nil)
}

// AddItemWith appends a template item with overrides to a list section.
func (e *Editor) AddItemWith(ctx context.Context, section string, overrides map[string]any) (Document, error) {
	release := e.docs.hold()
	defer release()
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelEditIn(section)
	doc, err := AddItemWith(e.docs.Document(), section, overrides, e.ids)
	if err != nil {
		return e.docs.Document(), err
	}
	e.docs.Set(doc)

	list, _ := doc.List(section)
	index := len(list) - 1
	e.emit(ctx, activity.BuildItemAddedEvent(activity.ItemEventInput{
		Section: section,
		Key:     e.itemKey(doc, section, AtIndex(index)),
		Index:   index,
	}))
	logEvent(e.logger, LevelDebug, "item added", nil, map[string]any{"section": section, "index": index})
	return doc, nil
}

// RemoveItem deletes the record at index from a list section.
func (e *Editor) RemoveItem(ctx context.Context, section string, index int) (Document, error) {
	release := e.docs.hold()
	defer release()
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelEditIn(section)
	before := e.docs.Document()
	doc, err := RemoveItem(before, section, index)
	if err != nil {
		return before, err
	}
	e.docs.Set(doc)

	e.emit(ctx, activity.BuildItemRemovedEvent(activity.ItemEventInput{
		Section: section,
		Key:     e.itemKey(before, section, AtIndex(index)),
		Index:   index,
	}))
	logEvent(e.logger, LevelDebug, "item removed", nil, map[string]any{"section": section, "index": index})
	return doc, nil
}

// MoveItem reorders a list section.
func (e *Editor) MoveItem(ctx context.Context, section string, from, to int) (Document, error) {
	release := e.docs.hold()
	defer release()
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelEditIn(section)
	before := e.docs.Document()
	doc, err := MoveItem(before, section, from, to)
	if err != nil {
		return before, err
	}
	if Same(before, doc) {
		return doc, nil
	}
	e.docs.Set(doc)

	e.emit(ctx, activity.BuildItemMovedEvent(activity.ItemEventInput{
		Section: section,
		Key:     e.itemKey(before, section, AtIndex(from)),
		Index:   from,
		ToIndex: to,
	}))
	return doc, nil
}

// RemoveKey deletes one entry of a keyed section.
func (e *Editor) RemoveKey(ctx context.Context, section, slug string) (Document, error) {
	release := e.docs.hold()
	defer release()
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelEditIn(section)
	doc, err := RemoveKey(e.docs.Document(), section, slug)
	if err != nil {
		return e.docs.Document(), err
	}
	e.docs.Set(doc)

	e.emit(ctx, activity.BuildItemRemovedEvent(activity.ItemEventInput{Section: section, Key: slug}))
	logEvent(e.logger, LevelDebug, "key removed", nil, map[string]any{"section": section, "slug": slug})
	return doc, nil
}

// AddProductDetail creates a product detail entry under slug.
func (e *Editor) AddProductDetail(ctx context.Context, slug string, template map[string]any) (Document, error) {
	release := e.docs.hold()
	defer release()
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, err := AddProductDetail(e.docs.Document(), slug, template, e.ids)
	if err != nil {
		return e.docs.Document(), err
	}
	e.docs.Set(doc)

	e.emit(ctx, activity.BuildItemAddedEvent(activity.ItemEventInput{
		Section: SectionProductDetails,
		Key:     slug,
		Index:   len(doc.Slugs(SectionProductDetails)) - 1,
	}))
	logEvent(e.logger, LevelDebug, "product detail added", nil, map[string]any{"slug": slug})
	return doc, nil
}

// Commit stores the working document. An open edit is not included; only
// saved edits are part of the working document.
func (e *Editor) Commit(ctx context.Context) error {
	if e.gateway == nil {
		return ErrNoGateway
	}
	release := e.docs.hold()
	defer release()
	e.mu.Lock()
	defer e.mu.Unlock()

	doc := e.docs.Document()
	if err := e.gateway.Commit(ctx, doc); err != nil {
		logEvent(e.logger, LevelError, "commit failed", err, map[string]any{"ref": e.gateway.Ref().String()})
		return err
	}
	e.docs.Adopt(doc)

	e.emit(ctx, activity.BuildCommittedEvent(activity.SnapshotEventInput{
		Ref:        e.gateway.Ref().String(),
		SnapshotID: e.gateway.Meta().SnapshotID,
	}))
	return nil
}

// Reset discards the working document and any open edit and reloads the last
// committed document. Without a gateway the document loaded at start is
// restored.
func (e *Editor) Reset(ctx context.Context) (Document, error) {
	release := e.docs.hold()
	defer release()
	e.mu.Lock()
	defer e.mu.Unlock()

	e.session.Cancel()
	var (
		doc Document
		ref string
	)
	if e.gateway == nil {
		doc = e.docs.Revert()
	} else {
		var err error
		if doc, err = e.gateway.Reset(ctx, e.docs); err != nil {
			return doc, err
		}
		ref = e.gateway.Ref().String()
	}

	e.emit(ctx, activity.BuildResetEvent(activity.SnapshotEventInput{Ref: ref}))
	logEvent(e.logger, LevelInfo, "document reset", nil, map[string]any{"ref": ref})
	return doc, nil
}

// ResetToDefaults removes the stored snapshot and replaces the working
// document with the built-in default.
func (e *Editor) ResetToDefaults(ctx context.Context) (Document, error) {
	if e.gateway == nil {
		return e.GetDocument(), ErrNoGateway
	}
	release := e.docs.hold()
	defer release()
	e.mu.Lock()
	defer e.mu.Unlock()

	e.session.Cancel()
	if err := e.gateway.Purge(ctx); err != nil {
		return e.docs.Document(), err
	}
	doc := e.gateway.defaults()
	e.docs.Adopt(doc)

	e.emit(ctx, activity.BuildResetEvent(activity.SnapshotEventInput{
		Ref:      e.gateway.Ref().String(),
		Metadata: map[string]any{"defaults": true},
	}))
	logEvent(e.logger, LevelInfo, "document reset to defaults", nil, map[string]any{"ref": e.gateway.Ref().String()})
	return doc, nil
}

func (e *Editor) cancelEditIn(section string) {
	if field, open := e.session.Field(); open && field.Section == section {
		e.session.Cancel()
		logEvent(e.logger, LevelDebug, "open edit cancelled by collection change", nil, map[string]any{
			"section": section,
			"path":    field.Path,
		})
	}
}

func (e *Editor) emit(ctx context.Context, event activity.Event) {
	if err := e.emitter.Emit(ctx, event); err != nil {
		logEvent(e.logger, LevelWarn, "activity hook failed", err, map[string]any{"verb": event.Verb})
	}
}

// itemKey names the item for activity records: the id of list records, the
// slug of keyed entries.
func (e *Editor) itemKey(doc Document, section string, item Item) string {
	if slug, ok := item.Slug(); ok {
		return slug
	}
	index, ok := item.Index()
	if !ok {
		return ""
	}
	if id, err := Read(doc, section, "id", item); err == nil && id != nil {
		return fmt.Sprint(id)
	}
	return strconv.Itoa(index)
}
