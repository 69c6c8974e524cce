package content

import (
	"errors"
	"fmt"
)

var (
	// ErrAddress matches every *AddressError.
	ErrAddress = errors.New("content: invalid address")
	// ErrIndex matches every *IndexError.
	ErrIndex = errors.New("content: index out of range")
	// ErrEdit matches every *EditError.
	ErrEdit = errors.New("content: edit rejected")
	// ErrPersistence matches every *PersistenceError.
	ErrPersistence = errors.New("content: persistence failed")
	// ErrCorruptSnapshot matches every *CorruptSnapshotError.
	ErrCorruptSnapshot = errors.New("content: corrupt snapshot")
)

// Session errors
var (
	// ErrEditInProgress is returned when a second field edit is opened while
	// another one is still open.
	ErrEditInProgress = errors.New("content: another field is already being edited")
	// ErrNoActiveEdit is returned when staging or saving without an open edit.
	ErrNoActiveEdit = errors.New("content: no field is being edited")
	// ErrStaleSession is returned when an asynchronous result arrives for an
	// edit that was cancelled or saved in the meantime.
	ErrStaleSession = errors.New("content: edit session was discarded")
	// ErrNoGateway is returned by Editor operations that need durable storage
	// when none was configured.
	ErrNoGateway = errors.New("content: no persistence gateway configured")
)

// AddressError reports a malformed path or an unsupported section/item
// combination.
type AddressError struct {
	Section string
	Path    string
	Reason  string
}

func (e *AddressError) Error() string {
	if e == nil {
		return "<nil>"
	}
	target := e.Section
	if e.Path != "" {
		if target != "" {
			target += " "
		}
		target += fmt.Sprintf("%q", e.Path)
	}
	if target == "" {
		return "content: invalid address: " + e.Reason
	}
	return fmt.Sprintf("content: invalid address %s: %s", target, e.Reason)
}

func (e *AddressError) Is(target error) bool {
	return target == ErrAddress
}

// IndexError reports a collection index or key that does not exist.
type IndexError struct {
	Section string
	Path    string
	Index   int
	Key     string
	Len     int
}

func (e *IndexError) Error() string {
	if e == nil {
		return "<nil>"
	}
	where := e.Section
	if e.Path != "" {
		where += "." + e.Path
	}
	if e.Key != "" {
		return fmt.Sprintf("content: key %q not found in %s", e.Key, where)
	}
	return fmt.Sprintf("content: index %d out of range for %s (len %d)", e.Index, where, e.Len)
}

func (e *IndexError) Is(target error) bool {
	return target == ErrIndex
}

// EditError reports a staged value that cannot be saved: a type mismatch,
// a failed field rule or an image encoding failure.
type EditError struct {
	Section string
	Path    string
	Reason  string
	Err     error
}

func (e *EditError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("content: edit %s.%s rejected", e.Section, e.Path)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *EditError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *EditError) Is(target error) bool {
	return target == ErrEdit
}

// PersistenceError reports a durable store failure. The in-memory document is
// never modified when one is returned.
type PersistenceError struct {
	Op  string
	Ref string
	Err error
}

func (e *PersistenceError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("content: %s snapshot %s: %v", e.Op, e.Ref, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// CorruptSnapshotError describes a stored snapshot that could not be decoded.
// Gateway.Load recovers from it; it is only ever observed by loggers.
type CorruptSnapshotError struct {
	Ref string
	Err error
}

func (e *CorruptSnapshotError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("content: corrupt snapshot %s: %v", e.Ref, e.Err)
}

func (e *CorruptSnapshotError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *CorruptSnapshotError) Is(target error) bool {
	return target == ErrCorruptSnapshot
}
