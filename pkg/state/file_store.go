package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore keeps each snapshot in its own file under a root directory. The
// snapshot and its metadata share one envelope file that is replaced by
// writing a temporary file, syncing it and renaming it over the old one, so
// readers in any process see the old or the new snapshot with its own ETag.
type FileStore struct {
	root string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileStore creates root if needed and returns a store rooted there.
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("state: file store root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("state: create %s: %w", root, err)
	}
	return &FileStore{root: root, now: time.Now}, nil
}

// Root returns the directory snapshots are stored in.
func (s *FileStore) Root() string {
	return s.root
}

// envelope is the on-disk layout of one snapshot file.
type envelope struct {
	Meta     Meta   `json:"meta"`
	Snapshot []byte `json:"snapshot"`
}

func (s *FileStore) path(ref Ref) (string, error) {
	key, err := ref.Identifier()
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(key)) + ".json", nil
}

func (s *FileStore) Load(ctx context.Context, ref Ref) ([]byte, Meta, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, Meta{}, false, err
	}
	path, err := s.path(ref)
	if err != nil {
		return nil, Meta{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	env, ok, err := readEnvelope(path)
	if err != nil || !ok {
		return nil, Meta{}, false, err
	}
	return env.Snapshot, env.Meta, true, nil
}

func (s *FileStore) Save(ctx context.Context, ref Ref, snapshot []byte, meta Meta) (Meta, error) {
	if err := ctx.Err(); err != nil {
		return Meta{}, err
	}
	path, err := s.path(ref)
	if err != nil {
		return Meta{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok, err := readEnvelope(path)
	if err != nil {
		return Meta{}, err
	}
	if ok {
		if err := checkETag(meta.ETag, stored.Meta.ETag); err != nil {
			return Meta{}, err
		}
	}

	saved := nextMeta(meta, s.now())
	raw, err := json.Marshal(envelope{Meta: saved, Snapshot: snapshot})
	if err != nil {
		return Meta{}, fmt.Errorf("state: encode %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Meta{}, fmt.Errorf("state: create %s: %w", filepath.Dir(path), err)
	}
	if err := writeAtomic(path, raw); err != nil {
		return Meta{}, err
	}
	return cloneMeta(saved), nil
}

func (s *FileStore) Delete(ctx context.Context, ref Ref) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := s.path(ref)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("state: remove %s: %w", path, err)
	}
	return nil
}

func readEnvelope(path string) (envelope, bool, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return envelope{}, false, nil
	}
	if err != nil {
		return envelope{}, false, fmt.Errorf("state: read %s: %w", path, err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope{}, false, fmt.Errorf("state: decode %s: %w", path, err)
	}
	return env, true, nil
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("state: create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("state: write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("state: sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("state: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("state: rename %s: %w", path, err)
	}
	return nil
}
