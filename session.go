package content

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-content/pkg/rules"
)

// State is the lifecycle state of a Session.
type State uint8

const (
	// StateIdle means no field is being edited.
	StateIdle State = iota
	// StateEditing means a field is open and the staged value equals the
	// stored one.
	StateEditing
	// StateDirty means the staged value differs from the stored one.
	StateDirty
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateEditing:
		return "editing"
	case StateDirty:
		return "dirty"
	default:
		return "unknown"
	}
}

// FieldRef identifies the field an edit is open on.
type FieldRef struct {
	Section string
	Path    string
	Item    Item
}

func (r FieldRef) String() string {
	return r.Section + r.Item.String() + "." + r.Path
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithValidator sets the validator used for field rules.
func WithValidator(validator *rules.Validator) SessionOption {
	return func(s *Session) {
		if validator != nil {
			s.validator = validator
		}
	}
}

// WithImageEncoder sets the encoder used by StageImage.
func WithImageEncoder(encoder ImageEncoder) SessionOption {
	return func(s *Session) {
		if encoder != nil {
			s.encoder = encoder
		}
	}
}

// Session stages a new value for one field at a time. Nothing is visible in
// the document before Save, and Cancel never touches the document. Opening a
// second edit while one is open fails with ErrEditInProgress.
type Session struct {
	docs      *DocumentStore
	validator *rules.Validator
	encoder   ImageEncoder

	mu       sync.Mutex
	state    State
	field    FieldRef
	addr     Address
	kind     FieldKind
	rule     *rules.Rule
	original any
	staged   any
	// gen changes every time an edit is closed so late async results can be
	// detected.
	gen        uint64
	editCtx    context.Context
	editCancel context.CancelFunc
}

// NewSession returns an idle session editing docs.
func NewSession(docs *DocumentStore, opts ...SessionOption) *Session {
	s := &Session{
		docs:    docs,
		encoder: DataURLEncoder{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if s.validator == nil {
		s.validator = rules.NewValidator()
	}
	return s
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Field returns the field under edit.
func (s *Session) Field() (FieldRef, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.field, s.state != StateIdle
}

// Staged returns the staged value of the open edit.
func (s *Session) Staged() (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.staged, s.state != StateIdle
}

// Kind returns the declared kind of the field under edit.
func (s *Session) Kind() (FieldKind, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.kind, s.state != StateIdle
}

// Begin opens an edit on one field of the working document.
func (s *Session) Begin(section, path string, item Item) error {
	addr, err := ParseAddress(path)
	if err != nil {
		return withSection(err, section)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return fmt.Errorf("%w: %s", ErrEditInProgress, s.field)
	}

	doc := s.docs.Document()
	desc, err := doc.Registry().section(section)
	if err != nil {
		return err
	}
	current, err := ReadAddress(doc, section, addr, item)
	if err != nil {
		return err
	}
	kind, rule, err := fieldKind(desc, addr, current)
	if err != nil {
		return err
	}

	s.state = StateEditing
	s.field = FieldRef{Section: section, Path: addr.String(), Item: item}
	s.addr = addr
	s.kind = kind
	s.rule = rule
	s.original = current
	s.staged = current
	s.editCtx, s.editCancel = context.WithCancel(context.Background())
	return nil
}

// Stage replaces the staged value. The value must match the field kind.
func (s *Session) Stage(value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stageLocked(normalizeValue(value))
}

// StageText stages free text. Text is only accepted by string-like fields;
// numeric fields parse it and boolean fields reject it.
func (s *Session) StageText(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateIdle {
		return ErrNoActiveEdit
	}
	switch s.kind {
	case KindBool:
		return s.editError("boolean field does not accept text", nil)
	case KindNumber:
		n, err := parseNumber(text)
		if err != nil {
			return s.editError("not a number", err)
		}
		return s.stageLocked(n)
	default:
		return s.stageLocked(text)
	}
}

// StageBool stages a boolean.
func (s *Session) StageBool(value bool) error {
	return s.Stage(value)
}

// StageImage encodes data with the session's ImageEncoder and stages the
// resulting reference. The session lock is not held while encoding; if the
// edit is cancelled or saved meanwhile the result is dropped and
// ErrStaleSession is returned.
func (s *Session) StageImage(ctx context.Context, data []byte) error {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		return ErrNoActiveEdit
	}
	if s.kind != KindImage {
		err := s.editError("field is not an image", nil)
		s.mu.Unlock()
		return err
	}
	gen := s.gen
	editCtx := s.editCtx
	encoder := s.encoder
	s.mu.Unlock()

	encodeCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(editCtx, cancel)
	defer stop()

	ref, err := encoder.EncodeImage(encodeCtx, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen || s.state == StateIdle {
		return ErrStaleSession
	}
	if err != nil {
		return s.editError("image encoding failed", err)
	}
	return s.stageLocked(ref)
}

// Save applies the staged value to the working document and closes the edit.
// Field rules are checked first; a failing rule leaves the edit open and the
// document untouched.
func (s *Session) Save() (Document, error) {
	release := s.docs.hold()
	defer release()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateIdle {
		return s.docs.Document(), ErrNoActiveEdit
	}

	doc := s.docs.Document()
	if s.state == StateEditing {
		s.closeLocked()
		return doc, nil
	}

	if s.rule != nil {
		desc, err := doc.Registry().section(s.field.Section)
		if err != nil {
			return doc, err
		}
		record, err := selectRecord(doc, desc, s.field.Item)
		if err != nil {
			return doc, err
		}
		err = s.validator.Check(rules.RuleContext{
			Value:   s.staged,
			Section: s.field.Section,
			Field:   s.addr.Leaf(),
			Path:    s.field.Path,
			Record:  record,
		}, *s.rule)
		if err != nil {
			return doc, s.editError("", err)
		}
	}

	updated, err := WriteAddress(doc, s.field.Section, s.addr, s.staged, s.field.Item)
	if err != nil {
		return doc, err
	}
	s.docs.Set(updated)
	s.closeLocked()
	return updated, nil
}

// Cancel discards the staged value. It is a no-op when no edit is open.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateIdle {
		return
	}
	s.closeLocked()
}

func (s *Session) stageLocked(value any) error {
	if s.state == StateIdle {
		return ErrNoActiveEdit
	}
	if err := checkKind(s.kind, value); err != nil {
		return s.editError(err.Error(), nil)
	}
	s.staged = value
	if valuesEqual(value, s.original) {
		s.state = StateEditing
	} else {
		s.state = StateDirty
	}
	return nil
}

func (s *Session) closeLocked() {
	if s.editCancel != nil {
		s.editCancel()
	}
	s.gen++
	s.state = StateIdle
	s.field = FieldRef{}
	s.addr = Address{}
	s.kind = KindString
	s.rule = nil
	s.original = nil
	s.staged = nil
	s.editCtx = nil
	s.editCancel = nil
}

func (s *Session) editError(reason string, err error) error {
	return &EditError{Section: s.field.Section, Path: s.field.Path, Reason: reason, Err: err}
}

func fieldKind(desc Section, addr Address, current any) (FieldKind, *rules.Rule, error) {
	if field, ok := desc.Describe(addr); ok {
		if field.Kind == KindID {
			return 0, nil, &AddressError{Section: desc.Name, Path: addr.String(), Reason: "item ids are immutable"}
		}
		if !field.Kind.Scalar() {
			return 0, nil, &AddressError{Section: desc.Name, Path: addr.String(), Reason: "address must target a scalar field"}
		}
		return field.Kind, field.Rule, nil
	}
	switch current.(type) {
	case nil, string:
		return KindString, nil, nil
	case bool:
		return KindBool, nil, nil
	case int64, float64:
		return KindNumber, nil, nil
	default:
		return 0, nil, &AddressError{Section: desc.Name, Path: addr.String(), Reason: "address must target a scalar field"}
	}
}

func checkKind(kind FieldKind, value any) error {
	switch kind {
	case KindBool:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("expected bool, got %T", value)
		}
	case KindNumber:
		switch value.(type) {
		case int64, float64:
		default:
			return fmt.Errorf("expected number, got %T", value)
		}
	default:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("expected %s, got %T", kind, value)
		}
	}
	return nil
}

func parseNumber(text string) (any, error) {
	text = strings.TrimSpace(text)
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, err
	}
	return normalizeFloat(f), nil
}
