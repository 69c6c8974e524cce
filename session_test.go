package content

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-content/pkg/rules"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func newTestSession(t *testing.T, opts ...SessionOption) (*Session, *DocumentStore) {
	t.Helper()
	docs := NewDocumentStore(loadDocumentFixture(t, "document_small.json"))
	return NewSession(docs, opts...), docs
}

func TestSessionCancelLeavesDocumentUntouched(t *testing.T) {
	session, docs := newTestSession(t)
	before := docs.Document()

	if err := session.Begin(SectionTeam, "name", AtIndex(0)); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := session.StageText("Someone else"); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if got := mustRead(t, docs.Document(), SectionTeam, "name", AtIndex(0)); got != "Dana" {
		t.Fatalf("staged value leaked into the document: %v", got)
	}
	session.Cancel()

	if !Same(before, docs.Document()) {
		t.Fatalf("cancel replaced the document")
	}
	if session.State() != StateIdle {
		t.Fatalf("expected idle after cancel, got %s", session.State())
	}
	if _, open := session.Field(); open {
		t.Fatalf("expected no field under edit")
	}
}

func TestSessionSaveAppliesStagedValue(t *testing.T) {
	session, docs := newTestSession(t)

	if err := session.Begin(SectionProductDetails, "nutrition.calories", AtSlug("pearl-oyster")); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if session.State() != StateEditing {
		t.Fatalf("expected editing, got %s", session.State())
	}
	if staged, _ := session.Staged(); staged != "34" {
		t.Fatalf("expected current value staged, got %v", staged)
	}
	if err := session.StageText("40"); err != nil {
		t.Fatalf("stage: %v", err)
	}
	if session.State() != StateDirty {
		t.Fatalf("expected dirty, got %s", session.State())
	}

	doc, err := session.Save()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := mustRead(t, doc, SectionProductDetails, "nutrition.calories", AtSlug("pearl-oyster")); got != "40" {
		t.Fatalf("expected saved value, got %v", got)
	}
	if !Same(doc, docs.Document()) {
		t.Fatalf("store does not hold the saved document")
	}
	if session.State() != StateIdle {
		t.Fatalf("expected idle after save")
	}
}

func TestSessionStagingBackToOriginalIsNotDirty(t *testing.T) {
	session, docs := newTestSession(t)
	before := docs.Document()

	_ = session.Begin(SectionSite, "name", Root)
	_ = session.StageText("Changed")
	_ = session.StageText("Mycelia Farms")
	if session.State() != StateEditing {
		t.Fatalf("expected editing when staged equals stored, got %s", session.State())
	}
	if _, err := session.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !Same(before, docs.Document()) {
		t.Fatalf("saving an unchanged value must not replace the document")
	}
}

func TestSessionRejectsSecondEdit(t *testing.T) {
	session, _ := newTestSession(t)
	if err := session.Begin(SectionSite, "name", Root); err != nil {
		t.Fatalf("begin: %v", err)
	}
	err := session.Begin(SectionSite, "tagline", Root)
	if !errors.Is(err, ErrEditInProgress) {
		t.Fatalf("expected ErrEditInProgress, got %v", err)
	}
	if field, _ := session.Field(); field.Path != "name" {
		t.Fatalf("first edit must stay open, got %+v", field)
	}
}

func TestSessionWithoutEdit(t *testing.T) {
	session, _ := newTestSession(t)
	if err := session.Stage("x"); !errors.Is(err, ErrNoActiveEdit) {
		t.Fatalf("expected ErrNoActiveEdit from Stage, got %v", err)
	}
	if err := session.StageText("x"); !errors.Is(err, ErrNoActiveEdit) {
		t.Fatalf("expected ErrNoActiveEdit from StageText, got %v", err)
	}
	if _, err := session.Save(); !errors.Is(err, ErrNoActiveEdit) {
		t.Fatalf("expected ErrNoActiveEdit from Save, got %v", err)
	}
	session.Cancel()
}

func TestSessionBooleanFieldsRejectText(t *testing.T) {
	session, docs := newTestSession(t)
	if err := session.Begin(SectionProducts, "available", AtIndex(0)); err != nil {
		t.Fatalf("begin: %v", err)
	}
	for _, text := range []string{"No", "Yes", "false"} {
		if err := session.StageText(text); !errors.Is(err, ErrEdit) {
			t.Fatalf("expected ErrEdit for %q, got %v", text, err)
		}
	}
	if err := session.Stage("No"); !errors.Is(err, ErrEdit) {
		t.Fatalf("expected ErrEdit for string value, got %v", err)
	}
	if err := session.StageBool(false); err != nil {
		t.Fatalf("stage bool: %v", err)
	}
	doc, err := session.Save()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := mustRead(t, doc, SectionProducts, "available", AtIndex(0)); got != false {
		t.Fatalf("expected boolean false stored, got %#v", got)
	}
	if _, ok := mustRead(t, docs.Document(), SectionProducts, "available", AtIndex(0)).(bool); !ok {
		t.Fatalf("stored value must stay a bool")
	}
}

func TestSessionStringFieldsRejectOtherTypes(t *testing.T) {
	session, _ := newTestSession(t)
	_ = session.Begin(SectionSite, "name", Root)
	if err := session.Stage(42); !errors.Is(err, ErrEdit) {
		t.Fatalf("expected ErrEdit, got %v", err)
	}
	if err := session.StageBool(true); !errors.Is(err, ErrEdit) {
		t.Fatalf("expected ErrEdit, got %v", err)
	}
}

func TestSessionBeginRejectsNonScalarTargets(t *testing.T) {
	session, _ := newTestSession(t)
	for _, tc := range []struct {
		section, path string
		item          Item
	}{
		{SectionProductDetails, "nutrition", AtSlug("pearl-oyster")},
		{SectionProductDetails, "cookingTips", AtSlug("pearl-oyster")},
		{SectionTeam, "id", AtIndex(0)},
	} {
		if err := session.Begin(tc.section, tc.path, tc.item); !errors.Is(err, ErrAddress) {
			t.Fatalf("expected ErrAddress for %s.%s, got %v", tc.section, tc.path, err)
		}
	}
	if session.State() != StateIdle {
		t.Fatalf("failed begin must leave the session idle")
	}
	if err := session.Begin(SectionNavigation, "name", AtIndex(9)); !errors.Is(err, ErrIndex) {
		t.Fatalf("expected ErrIndex, got %v", err)
	}
}

func TestSessionFieldRuleFailureKeepsDocument(t *testing.T) {
	session, docs := newTestSession(t)
	before := docs.Document()

	if err := session.Begin(SectionProducts, "price", AtIndex(0)); err != nil {
		t.Fatalf("begin: %v", err)
	}
	_ = session.StageText("cheap")
	_, err := session.Save()
	if !errors.Is(err, ErrEdit) || !errors.Is(err, rules.ErrRuleFailed) {
		t.Fatalf("expected rule failure EditError, got %v", err)
	}
	if !Same(before, docs.Document()) {
		t.Fatalf("failed rule replaced the document")
	}
	if session.State() != StateDirty {
		t.Fatalf("failed save must keep the edit open, got %s", session.State())
	}

	_ = session.StageText("$9.50")
	if _, err := session.Save(); err != nil {
		t.Fatalf("save valid price: %v", err)
	}
}

func TestSessionCELRuleOnContactEmail(t *testing.T) {
	session, _ := newTestSession(t)
	_ = session.Begin(SectionContact, "email", Root)
	_ = session.StageText("not-an-email")
	if _, err := session.Save(); !errors.Is(err, ErrEdit) {
		t.Fatalf("expected ErrEdit for invalid email, got %v", err)
	}
	_ = session.StageText("")
	if _, err := session.Save(); err != nil {
		t.Fatalf("empty email must be allowed: %v", err)
	}
}

func TestSessionCustomValidator(t *testing.T) {
	validator := rules.NewValidator(rules.WithCustomFunction("never", func(args ...any) (any, error) {
		return false, nil
	}))
	session, _ := newTestSession(t, WithValidator(validator))
	_ = session.Begin(SectionProducts, "price", AtIndex(0))
	_ = session.StageText("$1.00")
	if _, err := session.Save(); err != nil {
		t.Fatalf("built-in price rule must pass with a custom validator: %v", err)
	}
}

func TestSessionStageImage(t *testing.T) {
	session, _ := newTestSession(t)
	_ = session.Begin(SectionTeam, "image", AtIndex(0))

	if err := session.StageImage(context.Background(), pngHeader); err != nil {
		t.Fatalf("stage image: %v", err)
	}
	staged, _ := session.Staged()
	ref, _ := staged.(string)
	if !strings.HasPrefix(ref, "data:image/png;base64,") {
		t.Fatalf("expected png data url, got %.40q", ref)
	}
	doc, err := session.Save()
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if got := mustRead(t, doc, SectionTeam, "image", AtIndex(0)); got != ref {
		t.Fatalf("image reference not stored")
	}
}

func TestSessionStageImageErrors(t *testing.T) {
	failing := ImageEncoderFunc(func(context.Context, []byte) (string, error) {
		return "", errors.New("decoder exploded")
	})
	session, _ := newTestSession(t, WithImageEncoder(failing))

	_ = session.Begin(SectionTeam, "name", AtIndex(0))
	if err := session.StageImage(context.Background(), pngHeader); !errors.Is(err, ErrEdit) {
		t.Fatalf("expected ErrEdit for non-image field, got %v", err)
	}
	session.Cancel()

	_ = session.Begin(SectionTeam, "image", AtIndex(0))
	err := session.StageImage(context.Background(), pngHeader)
	if !errors.Is(err, ErrEdit) || !strings.Contains(err.Error(), "decoder exploded") {
		t.Fatalf("expected wrapped encoder failure, got %v", err)
	}
}

func TestSessionCancelDuringImageEncodeDropsResult(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	encoder := ImageEncoderFunc(func(ctx context.Context, data []byte) (string, error) {
		close(started)
		select {
		case <-ctx.Done():
		case <-release:
		}
		return "data:image/png;base64,late", nil
	})
	session, docs := newTestSession(t, WithImageEncoder(encoder))
	before := docs.Document()
	_ = session.Begin(SectionTeam, "image", AtIndex(0))

	result := make(chan error, 1)
	go func() {
		result <- session.StageImage(context.Background(), pngHeader)
	}()

	<-started
	session.Cancel()
	close(release)

	select {
	case err := <-result:
		if !errors.Is(err, ErrStaleSession) {
			t.Fatalf("expected ErrStaleSession, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("image encode did not return after cancel")
	}

	if !Same(before, docs.Document()) {
		t.Fatalf("late image result changed the document")
	}
	if err := session.Begin(SectionTeam, "bio", AtIndex(1)); err != nil {
		t.Fatalf("session must be reusable after cancel: %v", err)
	}
	if staged, _ := session.Staged(); staged != "" {
		t.Fatalf("late result leaked into the next edit: %v", staged)
	}
}

func TestSessionCancelCancelsEncoderContext(t *testing.T) {
	started := make(chan struct{})
	cancelled := make(chan struct{})
	encoder := ImageEncoderFunc(func(ctx context.Context, data []byte) (string, error) {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return "", ctx.Err()
	})
	session, _ := newTestSession(t, WithImageEncoder(encoder))
	_ = session.Begin(SectionHero, "image", Root)

	done := make(chan error, 1)
	go func() { done <- session.StageImage(context.Background(), pngHeader) }()

	<-started
	session.Cancel()

	select {
	case <-cancelled:
	case <-time.After(2 * time.Second):
		t.Fatalf("encoder context was not cancelled")
	}
	if err := <-done; !errors.Is(err, ErrStaleSession) {
		t.Fatalf("expected ErrStaleSession, got %v", err)
	}
}

func TestDataURLEncoder(t *testing.T) {
	enc := DataURLEncoder{MaxBytes: 64}
	if _, err := enc.EncodeImage(context.Background(), []byte("plain text")); !errors.Is(err, ErrNotAnImage) {
		t.Fatalf("expected ErrNotAnImage, got %v", err)
	}
	if _, err := enc.EncodeImage(context.Background(), nil); err == nil {
		t.Fatalf("expected error for empty payload")
	}
	if _, err := enc.EncodeImage(context.Background(), make([]byte, 65)); err == nil {
		t.Fatalf("expected error for oversized payload")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := enc.EncodeImage(ctx, pngHeader); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSessionSaveNotifiesAfterReleasingLock(t *testing.T) {
	session, docs := newTestSession(t)

	states := make(chan State, 1)
	docs.Subscribe(func(Document) {
		states <- session.State()
	})

	if err := session.Begin(SectionSite, "name", Root); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := session.StageText("Renamed"); err != nil {
		t.Fatalf("stage: %v", err)
	}

	saved := make(chan error, 1)
	go func() {
		_, err := session.Save()
		saved <- err
	}()
	select {
	case err := <-saved:
		if err != nil {
			t.Fatalf("save: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("save did not return while a subscriber read the session state")
	}
	if got := <-states; got != StateIdle {
		t.Fatalf("subscriber must see the closed edit, got %s", got)
	}
}
