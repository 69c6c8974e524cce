package content

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-content/pkg/activity"
	"github.com/goliatone/go-content/pkg/state"
)

type editorFixture struct {
	editor  *Editor
	store   *state.MemoryStore[[]byte]
	capture *activity.CaptureHook
	logger  *recordingLogger
}

func newEditorFixture(t *testing.T) editorFixture {
	t.Helper()
	ctx := context.Background()
	store := state.NewMemoryStore[[]byte]()
	logger := &recordingLogger{}
	gateway := newTestGateway(t, store, WithGatewayLogger(logger))
	if err := gateway.Commit(ctx, loadDocumentFixture(t, "document_small.json")); err != nil {
		t.Fatalf("seed commit: %v", err)
	}

	capture := &activity.CaptureHook{}
	emitter := activity.NewEmitter(activity.Hooks{capture}, activity.Config{Enabled: true, ActorID: "tester"})
	editor, err := NewEditor(ctx,
		WithGateway(gateway),
		WithIDGenerator(&fixedIDs{next: 100}),
		WithActivity(emitter),
		WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("new editor: %v", err)
	}
	return editorFixture{editor: editor, store: store, capture: capture, logger: logger}
}

func TestEditorLoadsCommittedDocument(t *testing.T) {
	fx := newEditorFixture(t)
	if !Equal(fx.editor.GetDocument(), loadDocumentFixture(t, "document_small.json")) {
		t.Fatalf("editor did not start from the stored document")
	}
	if fx.editor.Dirty() {
		t.Fatalf("fresh editor must not be dirty")
	}
}

func TestEditorWithoutGatewayUsesDefaults(t *testing.T) {
	editor, err := NewEditor(context.Background())
	if err != nil {
		t.Fatalf("new editor: %v", err)
	}
	if !Equal(editor.GetDocument(), DefaultDocument(nil)) {
		t.Fatalf("expected default document")
	}
	if err := editor.Commit(context.Background()); !errors.Is(err, ErrNoGateway) {
		t.Fatalf("expected ErrNoGateway, got %v", err)
	}
	if _, err := editor.ResetToDefaults(context.Background()); !errors.Is(err, ErrNoGateway) {
		t.Fatalf("expected ErrNoGateway, got %v", err)
	}
}

func TestEditorEditEmitsFieldEvent(t *testing.T) {
	fx := newEditorFixture(t)
	ctx := context.Background()

	doc, err := fx.editor.Edit(ctx, SectionProducts, "price", AtIndex(0), "$14.00")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if got := mustRead(t, doc, SectionProducts, "price", AtIndex(0)); got != "$14.00" {
		t.Fatalf("expected new price, got %v", got)
	}
	if !fx.editor.Dirty() {
		t.Fatalf("expected dirty editor after edit")
	}

	if len(fx.capture.Events) != 1 {
		t.Fatalf("expected one event, got %v", fx.capture.Verbs())
	}
	event := fx.capture.Events[0]
	if event.Verb != activity.VerbFieldUpdated || event.ObjectID != "products/1.price" {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.ActorID != "tester" || event.Channel != activity.DefaultChannel {
		t.Fatalf("emitter defaults not applied: %+v", event)
	}
	if event.Metadata["old_value"] != "$12.95" || event.Metadata["new_value"] != "$14.00" {
		t.Fatalf("unexpected metadata: %v", event.Metadata)
	}
}

func TestEditorEditFailureLeavesNoOpenEdit(t *testing.T) {
	fx := newEditorFixture(t)
	ctx := context.Background()
	before := fx.editor.GetDocument()

	if _, err := fx.editor.Edit(ctx, SectionProducts, "price", AtIndex(0), "free"); !errors.Is(err, ErrEdit) {
		t.Fatalf("expected ErrEdit, got %v", err)
	}
	if _, err := fx.editor.Edit(ctx, SectionProducts, "available", AtIndex(0), "No"); !errors.Is(err, ErrEdit) {
		t.Fatalf("expected ErrEdit for text on bool, got %v", err)
	}
	if fx.editor.EditState() != StateIdle {
		t.Fatalf("failed edit must be cancelled")
	}
	if !Same(before, fx.editor.GetDocument()) {
		t.Fatalf("failed edit changed the document")
	}
	if len(fx.capture.Events) != 0 {
		t.Fatalf("failed edits must not emit, got %v", fx.capture.Verbs())
	}

	if _, err := fx.editor.Edit(ctx, SectionProducts, "available", AtIndex(0), false); err != nil {
		t.Fatalf("edit bool: %v", err)
	}
}

func TestEditorCollectionOperations(t *testing.T) {
	fx := newEditorFixture(t)
	ctx := context.Background()

	doc, err := fx.editor.AddItem(ctx, SectionTeam)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := mustRead(t, doc, SectionTeam, "id", AtIndex(2)); got != int64(101) {
		t.Fatalf("expected generated id 101, got %v", got)
	}
	if _, err := fx.editor.MoveItem(ctx, SectionNavigation, 2, 0); err != nil {
		t.Fatalf("move: %v", err)
	}
	if _, err := fx.editor.RemoveItem(ctx, SectionTeam, 0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := fx.editor.RemoveKey(ctx, SectionProductDetails, "shiitake"); err != nil {
		t.Fatalf("remove key: %v", err)
	}
	doc, err = fx.editor.AddProductDetail(ctx, "enoki", map[string]any{"name": "Enoki"})
	if err != nil {
		t.Fatalf("add product detail: %v", err)
	}
	if got := doc.Slugs(SectionProductDetails); !reflect.DeepEqual(got, []string{"pearl-oyster", "lions-mane", "enoki"}) {
		t.Fatalf("unexpected slugs: %v", got)
	}

	wantVerbs := []string{
		activity.VerbItemAdded,
		activity.VerbItemMoved,
		activity.VerbItemRemoved,
		activity.VerbItemRemoved,
		activity.VerbItemAdded,
	}
	if got := fx.capture.Verbs(); !reflect.DeepEqual(got, wantVerbs) {
		t.Fatalf("unexpected verbs: %v", got)
	}
	if got := fx.capture.Events[0].ObjectID; got != "team/101" {
		t.Fatalf("expected added item object id team/101, got %q", got)
	}
	if got := fx.capture.Events[2].ObjectID; got != "team/10" {
		t.Fatalf("expected removed item object id team/10, got %q", got)
	}
	if got := fx.capture.Events[3].ObjectID; got != "productDetails/shiitake" {
		t.Fatalf("expected removed key object id, got %q", got)
	}

	if _, err := fx.editor.RemoveItem(ctx, SectionTeam, 10); !errors.Is(err, ErrIndex) {
		t.Fatalf("expected ErrIndex, got %v", err)
	}
	if _, err := fx.editor.AddItem(ctx, SectionProductDetails); !errors.Is(err, ErrAddress) {
		t.Fatalf("expected ErrAddress adding to a keyed section, got %v", err)
	}
}

func TestEditorCollectionChangeCancelsOpenEditInSection(t *testing.T) {
	fx := newEditorFixture(t)
	ctx := context.Background()

	if err := fx.editor.BeginEdit(SectionTeam, "name", AtIndex(1)); err != nil {
		t.Fatalf("begin: %v", err)
	}
	_ = fx.editor.StageText("Samantha")

	if _, err := fx.editor.AddItem(ctx, SectionNavigation); err != nil {
		t.Fatalf("add navigation: %v", err)
	}
	if fx.editor.EditState() != StateDirty {
		t.Fatalf("edit in another section must stay open")
	}

	if _, err := fx.editor.RemoveItem(ctx, SectionTeam, 0); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if fx.editor.EditState() != StateIdle {
		t.Fatalf("edit in the changed section must be cancelled")
	}
	if got := mustRead(t, fx.editor.GetDocument(), SectionTeam, "name", AtIndex(0)); got != "Sam" {
		t.Fatalf("staged value must not be applied, got %v", got)
	}
}

func TestEditorCommitAndReset(t *testing.T) {
	fx := newEditorFixture(t)
	ctx := context.Background()

	if _, err := fx.editor.Edit(ctx, SectionSite, "name", Root, "Mycelia Collective"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if err := fx.editor.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if fx.editor.Dirty() {
		t.Fatalf("commit must clear dirty")
	}
	committed := fx.editor.GetDocument()

	if _, err := fx.editor.Edit(ctx, SectionSite, "name", Root, "Scratch"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	_ = fx.editor.BeginEdit(SectionSite, "tagline", Root)

	doc, err := fx.editor.Reset(ctx)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !Equal(doc, committed) {
		t.Fatalf("reset did not restore the committed document")
	}
	if fx.editor.EditState() != StateIdle {
		t.Fatalf("reset must cancel the open edit")
	}

	want := []string{
		activity.VerbFieldUpdated,
		activity.VerbSnapshotCommitted,
		activity.VerbFieldUpdated,
		activity.VerbSnapshotReset,
	}
	if got := fx.capture.Verbs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected verbs: %v", got)
	}
}

func TestEditorResetWithoutGatewayRevertsToStart(t *testing.T) {
	ctx := context.Background()
	start := loadDocumentFixture(t, "document_small.json")
	editor, err := NewEditor(ctx, WithDocument(start))
	if err != nil {
		t.Fatalf("new editor: %v", err)
	}
	if _, err := editor.Edit(ctx, SectionContact, "phone", Root, "555-0100"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	doc, err := editor.Reset(ctx)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !Same(doc, start) {
		t.Fatalf("expected the starting document back")
	}
}

func TestEditorResetToDefaults(t *testing.T) {
	fx := newEditorFixture(t)
	ctx := context.Background()

	doc, err := fx.editor.ResetToDefaults(ctx)
	if err != nil {
		t.Fatalf("reset to defaults: %v", err)
	}
	if !Equal(doc, DefaultDocument(nil)) || fx.editor.Dirty() {
		t.Fatalf("expected clean default document")
	}
	if _, _, ok, _ := fx.store.Load(ctx, DefaultRef); ok {
		t.Fatalf("stored snapshot must be removed")
	}
	events := fx.capture.Events
	if len(events) != 1 || events[0].Verb != activity.VerbSnapshotReset || events[0].Metadata["defaults"] != true {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestEditorSubscribe(t *testing.T) {
	fx := newEditorFixture(t)
	ctx := context.Background()

	var seen []Document
	unsubscribe := fx.editor.Subscribe(func(doc Document) {
		seen = append(seen, doc)
	})
	if _, err := fx.editor.Edit(ctx, SectionSite, "tagline", Root, "Fresh weekly"); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if _, err := fx.editor.AddItem(ctx, SectionFeatures); err != nil {
		t.Fatalf("add: %v", err)
	}
	unsubscribe()
	if _, err := fx.editor.Edit(ctx, SectionSite, "tagline", Root, "Ignored"); err != nil {
		t.Fatalf("edit: %v", err)
	}

	if len(seen) != 2 {
		t.Fatalf("expected two notifications, got %d", len(seen))
	}
	if got := mustRead(t, seen[0], SectionSite, "tagline", Root); got != "Fresh weekly" {
		t.Fatalf("unexpected notified document: %v", got)
	}
	if list, _ := seen[1].List(SectionFeatures); len(list) != 1 {
		t.Fatalf("expected added feature in second notification, got %d items", len(list))
	}
}

func TestEditorLogsActivityHookFailures(t *testing.T) {
	ctx := context.Background()
	logger := &recordingLogger{}
	capture := &activity.CaptureHook{Err: errors.New("sink offline")}
	editor, err := NewEditor(ctx,
		WithDocument(loadDocumentFixture(t, "document_small.json")),
		WithActivity(activity.NewEmitter(activity.Hooks{capture}, activity.Config{Enabled: true})),
		WithLogger(logger),
	)
	if err != nil {
		t.Fatalf("new editor: %v", err)
	}
	if _, err := editor.Edit(ctx, SectionSite, "name", Root, "Renamed"); err != nil {
		t.Fatalf("hook failure must not fail the edit: %v", err)
	}
	warnings := logger.byLevel(LevelWarn)
	if len(warnings) != 1 || warnings[0].Fields["verb"] != activity.VerbFieldUpdated {
		t.Fatalf("expected one hook warning, got %+v", warnings)
	}
}

// finishWithin fails the test when fn does not return in time.
func finishWithin(t *testing.T, name string, fn func() error) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("%s did not return: subscriber blocked on an editor lock", name)
	}
}

func TestEditorSubscriberMayQueryEditState(t *testing.T) {
	fx := newEditorFixture(t)
	ctx := context.Background()

	var (
		mu    sync.Mutex
		calls int
		open  []bool
	)
	fx.editor.Subscribe(func(Document) {
		_, editing := fx.editor.GetEditingField()
		state := fx.editor.EditState()
		_ = fx.editor.Dirty()
		mu.Lock()
		calls++
		open = append(open, editing || state != StateIdle)
		mu.Unlock()
	})

	finishWithin(t, "SaveEdit", func() error {
		if err := fx.editor.BeginEdit(SectionSite, "name", Root); err != nil {
			return err
		}
		if err := fx.editor.StageText("Spore & Stem"); err != nil {
			return err
		}
		_, err := fx.editor.SaveEdit(ctx)
		return err
	})
	finishWithin(t, "Commit", func() error { return fx.editor.Commit(ctx) })
	finishWithin(t, "Reset", func() error {
		_, err := fx.editor.Reset(ctx)
		return err
	})

	mu.Lock()
	defer mu.Unlock()
	if calls != 3 {
		t.Fatalf("expected three notifications, got %d", calls)
	}
	for i, wasOpen := range open {
		if wasOpen {
			t.Fatalf("notification %d saw an open edit; it must run after the edit closed", i)
		}
	}
}

func TestEditorSubscriberMayEditReentrantly(t *testing.T) {
	fx := newEditorFixture(t)
	ctx := context.Background()

	var taglines []any
	fx.editor.Subscribe(func(doc Document) {
		taglines = append(taglines, mustRead(t, doc, SectionSite, "tagline", Root))
		if name := mustRead(t, doc, SectionSite, "name", Root); name == "Renamed" && len(taglines) == 1 {
			if _, err := fx.editor.Edit(ctx, SectionSite, "tagline", Root, "Follow-up"); err != nil {
				t.Errorf("nested edit: %v", err)
			}
		}
	})

	finishWithin(t, "Edit", func() error {
		_, err := fx.editor.Edit(ctx, SectionSite, "name", Root, "Renamed")
		return err
	})

	if len(taglines) != 2 || taglines[1] != "Follow-up" {
		t.Fatalf("expected the nested edit to be delivered after the first, got %v", taglines)
	}
	if got := mustRead(t, fx.editor.GetDocument(), SectionSite, "tagline", Root); got != "Follow-up" {
		t.Fatalf("nested edit lost: %v", got)
	}
}
