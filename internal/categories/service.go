package categories

import (
	"context"
	"sort"
	"strings"

	"github.com/pharmaline/catalog-backend/internal/catalog"
	pkgerrors "github.com/pharmaline/catalog-backend/pkg/errors"
	"github.com/pharmaline/catalog-backend/pkg/logger"
)

// Service manages the category label set and guards its relationship with
// the medicine collection: labels referenced by records are always listed,
// renames cascade into records, and referenced labels cannot be deleted.
type Service interface {
	List(ctx context.Context) ([]string, error)
	Create(ctx context.Context, label string) ([]string, error)
	Rename(ctx context.Context, oldLabel, newLabel string) ([]string, error)
	Delete(ctx context.Context, label string) ([]string, error)
	ValidateLabel(ctx context.Context, label string) (string, error)
}

// ServiceParams wires the category service dependencies.
type ServiceParams struct {
	Store     Store
	Medicines catalog.Store
	Logger    *logger.Logger
}

type service struct {
	store     Store
	medicines catalog.Store
	logg      *logger.Logger
}

// NewService constructs the category service.
func NewService(params ServiceParams) (Service, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category store required")
	}
	if params.Medicines == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "medicine store required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "logger required")
	}
	return &service{
		store:     params.Store,
		medicines: params.Medicines,
		logg:      params.Logger,
	}, nil
}

// List returns the stored labels unioned with every label any medicine still
// references, legacy names normalized, sorted.
func (s *service) List(ctx context.Context) ([]string, error) {
	stored, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(stored))
	for _, label := range stored {
		set[label] = true
	}

	records, err := s.medicines.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		for _, label := range recordLabels(record) {
			if label = Normalize(strings.TrimSpace(label)); label != "" {
				set[label] = true
			}
		}
	}

	out := make([]string, 0, len(set))
	for label := range set {
		out = append(out, label)
	}
	sort.Strings(out)
	return out, nil
}

func (s *service) Create(ctx context.Context, label string) ([]string, error) {
	name := strings.TrimSpace(label)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "label is required")
	}
	stored, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if contains(stored, name) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "category already exists").
			WithDetails(map[string]any{"label": name})
	}
	stored = append(stored, name)
	if err := s.store.Save(ctx, stored); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithCategory(ctx, name), "category created")
	return stored, nil
}

// Rename locates oldLabel by exact, case-insensitive, then legacy-mapped
// match. When the label is not stored at all it still rewrites matching
// medicine records and adopts newLabel into the stored list, so renames of
// foreign labels that only live inside records are possible.
func (s *service) Rename(ctx context.Context, oldLabel, newLabel string) ([]string, error) {
	from := strings.TrimSpace(oldLabel)
	to := strings.TrimSpace(newLabel)
	if from == "" || to == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "oldLabel and newLabel are required")
	}
	if from == to {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "category name unchanged").
			WithDetails(map[string]any{"label": from})
	}

	stored, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	idx := locate(stored, from)
	if idx >= 0 {
		if contains(stored, to) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "target label already exists").
				WithDetails(map[string]any{"label": to})
		}
		stored[idx] = to
	} else if !contains(stored, to) {
		stored = append(stored, to)
	}
	if err := s.store.Save(ctx, stored); err != nil {
		return nil, err
	}

	if err := s.renameInRecords(ctx, from, to); err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"from": from, "to": to}), "category renamed")
	return s.store.Load(ctx)
}

func (s *service) renameInRecords(ctx context.Context, from, to string) error {
	records, err := s.medicines.Load(ctx)
	if err != nil {
		return err
	}
	changed := false
	for i := range records {
		if matchesLabel(records[i].Category, from) {
			records[i].Category = to
			changed = true
		}
		for j, label := range records[i].Categories {
			if matchesLabel(label, from) {
				records[i].Categories[j] = to
				changed = true
			}
		}
	}
	if !changed {
		return nil
	}
	return s.medicines.Save(ctx, records)
}

func (s *service) Delete(ctx context.Context, label string) ([]string, error) {
	name := strings.TrimSpace(label)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "label is required")
	}
	stored, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !contains(stored, name) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}

	records, err := s.medicines.Load(ctx)
	if err != nil {
		return nil, err
	}
	used := 0
	for _, record := range records {
		if record.Category == name || contains(record.Categories, name) {
			used++
		}
	}
	if used > 0 {
		return nil, pkgerrors.Newf(pkgerrors.CodeConflict,
			"category in use by %d medicine(s); rename instead", used).
			WithDetails(map[string]any{"label": name, "count": used})
	}

	kept := stored[:0:0]
	for _, candidate := range stored {
		if candidate != name {
			kept = append(kept, candidate)
		}
	}
	if err := s.store.Save(ctx, kept); err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithCategory(ctx, name), "category deleted")
	return kept, nil
}

// ValidateLabel resolves a requested label against the allowed set, mapping
// legacy names first. Rejections name the allowed categories so the admin UI
// can present them.
func (s *service) ValidateLabel(ctx context.Context, label string) (string, error) {
	normalized := Normalize(strings.TrimSpace(label))
	allowed, err := s.List(ctx)
	if err != nil {
		return "", err
	}
	if normalized == "" || !contains(allowed, normalized) {
		return "", pkgerrors.Newf(pkgerrors.CodeValidation,
			"invalid category; allowed: %s", strings.Join(allowed, ", ")).
			WithDetails(map[string]any{"allowed": allowed})
	}
	return normalized, nil
}

// recordLabels yields the category labels one record references, falling back
// to the legacy single field when the list is empty.
func recordLabels(record catalog.Medicine) []string {
	if len(record.Categories) > 0 {
		return record.Categories
	}
	if record.Category == "" {
		return nil
	}
	return []string{record.Category}
}

func locate(stored []string, label string) int {
	for i, candidate := range stored {
		if candidate == label {
			return i
		}
	}
	for i, candidate := range stored {
		if strings.EqualFold(candidate, label) {
			return i
		}
	}
	if mapped := Normalize(label); mapped != label {
		for i, candidate := range stored {
			if candidate == mapped {
				return i
			}
		}
	}
	return -1
}

func contains(labels []string, label string) bool {
	for _, candidate := range labels {
		if candidate == label {
			return true
		}
	}
	return false
}

func matchesLabel(candidate, target string) bool {
	return candidate == target || strings.EqualFold(strings.TrimSpace(candidate), target)
}
