package categories

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	pkgerrors "github.com/pharmaline/catalog-backend/pkg/errors"
)

// Store persists the explicit category label list as a sorted JSON array.
type Store interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, labels []string) error
}

type fileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore builds a Store over a JSON string-array file at the given path.
func NewFileStore(path string) (Store, error) {
	if path == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "categories path required")
	}
	return &fileStore{path: path}, nil
}

// Load returns the stored labels, trimmed and deduplicated. A missing file is
// seeded with the default label set.
func (s *fileStore) Load(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "read category list")
		}
		seeded := dedupe(defaultLabels)
		if err := s.writeLocked(seeded); err != nil {
			return nil, err
		}
		return seeded, nil
	}

	var labels []string
	if err := json.Unmarshal(raw, &labels); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "decode category list")
	}
	return dedupe(labels), nil
}

func (s *fileStore) Save(ctx context.Context, labels []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sorted := dedupe(labels)
	sort.Strings(sorted)
	return s.writeLocked(sorted)
}

func (s *fileStore) writeLocked(labels []string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "create data directory")
	}
	raw, err := json.MarshalIndent(labels, "", "  ")
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "encode category list")
	}
	if err := os.WriteFile(s.path, raw, 0o644); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "write category list")
	}
	return nil
}

func dedupe(labels []string) []string {
	seen := make(map[string]bool, len(labels))
	out := make([]string, 0, len(labels))
	for _, label := range labels {
		label = strings.TrimSpace(label)
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		out = append(out, label)
	}
	return out
}
