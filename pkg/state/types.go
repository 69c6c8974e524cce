package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrETagMismatch is returned by Save when the stored snapshot changed
	// since the caller loaded it.
	ErrETagMismatch = errors.New("state: etag mismatch")
	// ErrInvalidRef is returned for refs that do not map to a storage key.
	ErrInvalidRef = errors.New("state: invalid ref")
)

// Scope names understood by Ref.Identifier.
const (
	ScopeSite   = "site"
	ScopeTenant = "tenant"
	ScopeTeam   = "team"
	ScopeUser   = "user"
)

// Ref identifies one persisted snapshot.
type Ref struct {
	Domain string
	// Scope defaults to ScopeSite.
	Scope string
	// Owner is required for tenant, team and user scopes.
	Owner string
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads and saves one snapshot for a single Ref.
type Store[T any] interface {
	Load(ctx context.Context, ref Ref) (snapshot T, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error)
}

// Deleter is implemented by stores that can remove a snapshot. Deleting a
// missing snapshot is not an error.
type Deleter interface {
	Delete(ctx context.Context, ref Ref) error
}

// Identifier returns the storage key of r.
func (r Ref) Identifier() (string, error) {
	if r.Domain == "" {
		return "", fmt.Errorf("%w: domain is required", ErrInvalidRef)
	}
	switch r.Scope {
	case "", ScopeSite:
		return fmt.Sprintf("%s/%s", ScopeSite, r.Domain), nil
	case ScopeTenant, ScopeTeam, ScopeUser:
		if r.Owner == "" {
			return "", fmt.Errorf("%w: missing owner for scope %q", ErrInvalidRef, r.Scope)
		}
		return fmt.Sprintf("%s/%s/%s", r.Scope, r.Owner, r.Domain), nil
	default:
		return "", fmt.Errorf("%w: unsupported scope %q", ErrInvalidRef, r.Scope)
	}
}

func (r Ref) String() string {
	id, err := r.Identifier()
	if err != nil {
		return fmt.Sprintf("%s/%s/%s", r.Scope, r.Owner, r.Domain)
	}
	return id
}

// checkETag compares the caller's expected ETag with the stored one.
func checkETag(expected, stored string) error {
	if expected != "" && stored != "" && expected != stored {
		return fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, expected, stored)
	}
	return nil
}

// nextMeta builds the metadata of a new revision.
func nextMeta(requested Meta, now time.Time) Meta {
	return Meta{
		SnapshotID: uuid.NewString(),
		ETag:       uuid.NewString(),
		UpdatedAt:  now.UTC(),
		Extra:      cloneExtra(requested.Extra),
	}
}

func cloneMeta(meta Meta) Meta {
	out := meta
	out.Extra = cloneExtra(meta.Extra)
	return out
}

func cloneExtra(extra map[string]string) map[string]string {
	if extra == nil {
		return nil
	}
	out := make(map[string]string, len(extra))
	for k, v := range extra {
		out[k] = v
	}
	return out
}
