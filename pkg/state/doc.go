// Package state persists whole-document snapshots.
//
// A Store loads and saves one snapshot per Ref. Stores never interpret the
// snapshot; encoding and versioning belong to the caller.
//
// Concurrency control:
//
//	Save takes the ETag the caller last observed in Meta.ETag. When both the
//	expected and the stored ETag are set and differ, Save fails with
//	ErrETagMismatch and nothing is written. An empty expected ETag writes
//	unconditionally. Every successful Save issues a fresh SnapshotID and ETag.
//
// Keys:
//
//	Ref.Identifier() yields the canonical storage key: `site/<domain>` for the
//	deployment-wide document and `<scope>/<owner>/<domain>` for tenant, team
//	and user scoped documents.
package state
