package catalog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	pkgerrors "github.com/pharmaline/catalog-backend/pkg/errors"
)

// Store is the persistence boundary for the medicine collection. Every
// mutation is a whole-collection read-modify-write; nothing else may touch
// the backing file.
type Store interface {
	Load(ctx context.Context) ([]Medicine, error)
	Save(ctx context.Context, records []Medicine) error
}

type fileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore builds a Store over a JSON-array file at the given path.
func NewFileStore(path string) (Store, error) {
	if path == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "medicines path required")
	}
	return &fileStore{path: path}, nil
}

func (s *fileStore) Load(ctx context.Context) ([]Medicine, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "read medicine collection")
		}
		if err := s.writeLocked([]Medicine{}); err != nil {
			return nil, err
		}
		return []Medicine{}, nil
	}

	var records []Medicine
	if err := json.Unmarshal(raw, &records); err != nil {
		// A corrupt collection is surfaced, never clobbered.
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "decode medicine collection")
	}
	if records == nil {
		records = []Medicine{}
	}
	return records, nil
}

func (s *fileStore) Save(ctx context.Context, records []Medicine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(records)
}

func (s *fileStore) writeLocked(records []Medicine) error {
	if records == nil {
		records = []Medicine{}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "create data directory")
	}
	raw, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "encode medicine collection")
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "write medicine collection")
	}
	return nil
}
