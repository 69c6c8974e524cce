package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/goliatone/go-content/pkg/state"
)

// SnapshotVersion is the envelope version written by Commit.
const SnapshotVersion = 1

// DefaultRef is the storage ref used when none is configured.
var DefaultRef = state.Ref{Domain: "content", Scope: state.ScopeSite}

type snapshotEnvelope struct {
	Version  int             `json:"version"`
	Document json.RawMessage `json:"document"`
}

// GatewayOption configures a Gateway.
type GatewayOption func(*Gateway)

// WithRef sets the storage ref snapshots are kept under.
func WithRef(ref state.Ref) GatewayOption {
	return func(g *Gateway) {
		g.ref = ref
	}
}

// WithGatewayRegistry sets the registry used to decode snapshots.
func WithGatewayRegistry(registry *Registry) GatewayOption {
	return func(g *Gateway) {
		if registry != nil {
			g.registry = registry
		}
	}
}

// WithDefaults sets the factory of the document used when nothing usable is
// stored.
func WithDefaults(defaults func() Document) GatewayOption {
	return func(g *Gateway) {
		if defaults != nil {
			g.defaults = defaults
		}
	}
}

// WithGatewayLogger sets the logger recovered failures are reported to.
func WithGatewayLogger(logger Logger) GatewayOption {
	return func(g *Gateway) {
		g.logger = loggerOrNoop(logger)
	}
}

// Gateway commits documents to a state.Store and loads them back.
type Gateway struct {
	store    state.Store[[]byte]
	ref      state.Ref
	registry *Registry
	defaults func() Document
	logger   Logger

	mu   sync.Mutex
	meta state.Meta
}

// NewGateway returns a gateway over store.
func NewGateway(store state.Store[[]byte], opts ...GatewayOption) (*Gateway, error) {
	if store == nil {
		return nil, fmt.Errorf("content: gateway store is required")
	}
	g := &Gateway{
		store:    store,
		ref:      DefaultRef,
		registry: DefaultRegistry(),
		logger:   noopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	if g.defaults == nil {
		registry := g.registry
		g.defaults = func() Document { return DefaultDocument(registry) }
	}
	if _, err := g.ref.Identifier(); err != nil {
		return nil, fmt.Errorf("content: gateway ref: %w", err)
	}
	return g, nil
}

// Ref returns the storage ref.
func (g *Gateway) Ref() state.Ref {
	return g.ref
}

// Meta returns the metadata of the snapshot last loaded or committed.
func (g *Gateway) Meta() state.Meta {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.meta
}

// Load returns the last committed document. When nothing is stored, or the
// stored snapshot cannot be decoded, the default document is returned; the
// decode failure is logged and not reported. Store failures are returned as
// *PersistenceError.
func (g *Gateway) Load(ctx context.Context) (Document, error) {
	raw, meta, ok, err := g.store.Load(ctx, g.ref)
	if err != nil {
		return Document{}, &PersistenceError{Op: "load", Ref: g.ref.String(), Err: err}
	}

	g.mu.Lock()
	g.meta = meta
	g.mu.Unlock()

	if !ok {
		logEvent(g.logger, LevelDebug, "no snapshot stored, using defaults", nil, map[string]any{"ref": g.ref.String()})
		return g.defaults(), nil
	}
	doc, err := g.decode(raw)
	if err != nil {
		corrupt := &CorruptSnapshotError{Ref: g.ref.String(), Err: err}
		logEvent(g.logger, LevelWarn, "corrupt snapshot, using defaults", corrupt, map[string]any{
			"ref":         g.ref.String(),
			"snapshot_id": meta.SnapshotID,
		})
		return g.defaults(), nil
	}
	return doc, nil
}

// Commit replaces the stored snapshot with doc. A store failure, including a
// concurrent commit detected through the ETag, is returned as
// *PersistenceError.
func (g *Gateway) Commit(ctx context.Context, doc Document) error {
	body, err := doc.MarshalJSON()
	if err != nil {
		return &PersistenceError{Op: "encode", Ref: g.ref.String(), Err: err}
	}
	payload, err := json.Marshal(snapshotEnvelope{Version: SnapshotVersion, Document: body})
	if err != nil {
		return &PersistenceError{Op: "encode", Ref: g.ref.String(), Err: err}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	saved, err := g.store.Save(ctx, g.ref, payload, state.Meta{ETag: g.meta.ETag})
	if err != nil {
		return &PersistenceError{Op: "commit", Ref: g.ref.String(), Err: err}
	}
	g.meta = saved
	logEvent(g.logger, LevelInfo, "snapshot committed", nil, map[string]any{
		"ref":         g.ref.String(),
		"snapshot_id": saved.SnapshotID,
		"bytes":       len(payload),
	})
	return nil
}

// Reset reloads the last committed document into docs, discarding the
// working copy.
func (g *Gateway) Reset(ctx context.Context, docs *DocumentStore) (Document, error) {
	doc, err := g.Load(ctx)
	if err != nil {
		return docs.Document(), err
	}
	docs.Adopt(doc)
	return doc, nil
}

// Purge removes the stored snapshot so the next Load yields the default
// document. Stores that cannot delete get the default document committed
// instead.
func (g *Gateway) Purge(ctx context.Context) error {
	deleter, ok := g.store.(state.Deleter)
	if !ok {
		return g.Commit(ctx, g.defaults())
	}
	if err := deleter.Delete(ctx, g.ref); err != nil {
		return &PersistenceError{Op: "purge", Ref: g.ref.String(), Err: err}
	}
	g.mu.Lock()
	g.meta = state.Meta{}
	g.mu.Unlock()
	return nil
}

func (g *Gateway) decode(raw []byte) (Document, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Document{}, err
	}
	if probe == nil {
		return Document{}, errors.New("snapshot is not an object")
	}
	versionRaw, hasVersion := probe["version"]
	body, hasDocument := probe["document"]
	if !hasVersion || !hasDocument {
		// Bare documents predate the envelope.
		return DecodeDocument(raw, g.registry)
	}
	var version int
	if err := json.Unmarshal(versionRaw, &version); err != nil {
		return Document{}, fmt.Errorf("snapshot version: %w", err)
	}
	if version < 1 || version > SnapshotVersion {
		return Document{}, fmt.Errorf("unsupported snapshot version %d", version)
	}
	return DecodeDocument(body, g.registry)
}
